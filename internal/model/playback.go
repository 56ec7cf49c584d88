package model

import "fmt"

type PlaybackSource string

const (
	SourceNone   PlaybackSource = "none"
	SourceLocal  PlaybackSource = "local"
	SourceRemote PlaybackSource = "remote"
)

func ParsePlaybackSource(s string) (PlaybackSource, error) {
	switch PlaybackSource(s) {
	case SourceNone, SourceLocal, SourceRemote:
		return PlaybackSource(s), nil
	}
	return "", fmt.Errorf("unknown playback source %q", s)
}

// NativeStatus is what a media element reports about itself.
type NativeStatus string

const (
	NativePlaying NativeStatus = "playing"
	NativePaused  NativeStatus = "paused"
	NativeEnded   NativeStatus = "ended"
)

// SavedPlaybackSnapshot is taken when playback is force-suspended and is
// consumed once on resume.
type SavedPlaybackSnapshot struct {
	WasPlaying      bool           `json:"was_playing"`
	SourceKind      PlaybackSource `json:"source_kind"`
	PositionSeconds float64        `json:"position_seconds"`
	Identifier      string         `json:"identifier"`
}

// RemoteStatus is what the embedded video player reports about itself.
type RemoteStatus struct {
	State    string  `json:"state"`
	Position float64 `json:"position"`
	VideoID  string  `json:"video_id"`
}

// RemoteCommand is published to the embedded video player.
type RemoteCommand struct {
	Event string `json:"event"`
	Func  string `json:"func"`
	Args  []any  `json:"args"`
}
