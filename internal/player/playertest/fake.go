// Package playertest provides an in-memory Element that records every call.
package playertest

import (
	"context"
	"errors"
	"sync"
)

var ErrRejected = errors.New("play rejected")

type FakeElement struct {
	mu sync.Mutex

	identifier string
	position   float64
	playing    bool

	Plays      int
	Pauses     int
	Seeks      []float64
	Volumes    []int
	Mutes      []bool
	LoadErr    error
	RejectPlay bool
}

func New(identifier string) *FakeElement {
	return &FakeElement{identifier: identifier}
}

func (f *FakeElement) Load(_ context.Context, identifier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return f.LoadErr
	}
	f.identifier = identifier
	f.position = 0
	f.playing = false
	return nil
}

func (f *FakeElement) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identifier != ""
}

func (f *FakeElement) Identifier() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identifier
}

func (f *FakeElement) Play(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Plays++
	if f.RejectPlay {
		return ErrRejected
	}
	f.playing = true
	return nil
}

func (f *FakeElement) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Pauses++
	f.playing = false
	return nil
}

func (f *FakeElement) Seek(_ context.Context, seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Seeks = append(f.Seeks, seconds)
	f.position = seconds
	return nil
}

func (f *FakeElement) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// SetPosition simulates playback progress.
func (f *FakeElement) SetPosition(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.position = seconds
}

func (f *FakeElement) SetVolume(_ context.Context, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Volumes = append(f.Volumes, level)
	return nil
}

func (f *FakeElement) SetMuted(_ context.Context, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Mutes = append(f.Mutes, muted)
	return nil
}

func (f *FakeElement) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

// Counts returns play and pause call totals.
func (f *FakeElement) Counts() (plays, pauses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Plays, f.Pauses
}

// Reset clears call counters but keeps loaded content.
func (f *FakeElement) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Plays, f.Pauses = 0, 0
	f.Seeks, f.Volumes, f.Mutes = nil, nil, nil
}
