package player

import (
	"context"
	"errors"
)

var (
	ErrNoContent     = errors.New("no content loaded")
	ErrUnknownSource = errors.New("unknown playback source")
)

// Element is a native media player the coordinator drives.
// Implementations report native state changes through the callback they were
// built with; the coordinator learns about them via OnNativeStatus.
type Element interface {
	Load(ctx context.Context, identifier string) error
	Loaded() bool
	Identifier() string
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	Position() float64
	SetVolume(ctx context.Context, level int) error
	SetMuted(ctx context.Context, muted bool) error
}

// Preloader is an Element whose Load needs slow I/O. Preload does that work
// off the event loop so the Load that follows only swaps the result in.
type Preloader interface {
	Preload(ctx context.Context, identifier string) error
}
