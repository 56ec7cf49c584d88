package player

import (
	"context"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/storage"
)

const speakerRate = beep.SampleRate(48000)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond))
	})
	return speakerErr
}

// Opener gives access to stored audio files.
type Opener interface {
	Open(location string) (io.ReadSeekCloser, error)
}

// LocalElement plays an audio file through the system speaker.
type LocalElement struct {
	opener   Opener
	onStatus func(model.NativeStatus)

	mu         sync.Mutex
	identifier string
	streamer   beep.StreamSeekCloser
	format     beep.Format
	ctrl       *beep.Ctrl
	volume     *effects.Volume
	level      int
	muted      bool
	ended      atomic.Bool
	prepared   *track

	events    chan model.NativeStatus
	done      chan struct{}
	closeOnce sync.Once
}

var _ Element = (*LocalElement)(nil)

// NewLocalElement builds the speaker-backed element. onStatus is called from
// the audio goroutine and must not block.
func NewLocalElement(opener Opener, onStatus func(model.NativeStatus)) *LocalElement {
	if onStatus == nil {
		onStatus = func(model.NativeStatus) {}
	}
	e := &LocalElement{
		opener:   opener,
		onStatus: onStatus,
		level:    defaultVolume,
		events:   make(chan model.NativeStatus, 16),
		done:     make(chan struct{}),
	}
	go e.dispatch()
	return e
}

// dispatch delivers status events in order, off the speaker goroutine.
func (e *LocalElement) dispatch() {
	for {
		select {
		case <-e.done:
			return
		case s := <-e.events:
			e.onStatus(s)
		}
	}
}

func (e *LocalElement) report(s model.NativeStatus) {
	select {
	case <-e.done:
	case e.events <- s:
	default:
		log.Warn().Str("status", string(s)).Msg("local player status dropped")
	}
}

// Close stops playback and releases the open file.
func (e *LocalElement) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closeLocked()
		e.discardPreparedLocked()
		e.mu.Unlock()
		close(e.done)
	})
}

func decode(location string, rc io.ReadSeekCloser) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(location)) {
	case ".mp3":
		return mp3.Decode(rc)
	case ".wav":
		return wav.Decode(rc)
	}
	return nil, beep.Format{}, fmt.Errorf("%w: %s", storage.ErrUnsupportedFormat, filepath.Ext(location))
}

type track struct {
	location string
	streamer beep.StreamSeekCloser
	format   beep.Format
}

// Preload opens and decodes location without touching what is playing. It
// does the slow storage I/O and may be called from any goroutine; a following
// Load of the same location only swaps the track in.
func (e *LocalElement) Preload(_ context.Context, location string) error {
	t, err := e.open(location)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discardPreparedLocked()
	e.prepared = t
	return nil
}

func (e *LocalElement) open(location string) (*track, error) {
	if _, err := storage.AudioContentType(location); err != nil {
		return nil, err
	}
	rc, err := e.opener.Open(location)
	if err != nil {
		return nil, err
	}
	streamer, format, err := decode(location, rc)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("decode %q: %w", location, err)
	}
	if err := initSpeaker(); err != nil {
		streamer.Close()
		return nil, fmt.Errorf("audio output unavailable: %w", err)
	}
	return &track{location: location, streamer: streamer, format: format}, nil
}

func (e *LocalElement) discardPreparedLocked() {
	if e.prepared == nil {
		return
	}
	if err := e.prepared.streamer.Close(); err != nil {
		log.Debug().Err(err).Str("track", e.prepared.location).Msg("closing unused track")
	}
	e.prepared = nil
}

// Load makes location the current track. Without a matching Preload the file
// is opened and decoded inline.
func (e *LocalElement) Load(_ context.Context, location string) error {
	e.mu.Lock()
	t := e.prepared
	if t != nil && t.location == location {
		e.prepared = nil
	} else {
		t = nil
	}
	e.mu.Unlock()

	if t == nil {
		var err error
		if t, err = e.open(location); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()

	var s beep.Streamer = t.streamer
	if t.format.SampleRate != speakerRate {
		s = beep.Resample(4, t.format.SampleRate, speakerRate, s)
	}
	e.volume = &effects.Volume{Streamer: s, Base: 2}
	e.ctrl = &beep.Ctrl{Streamer: e.volume, Paused: true}
	e.streamer = t.streamer
	e.format = t.format
	e.identifier = location
	e.applyVolumeLocked()
	e.startLocked()
	return nil
}

// startLocked hands the chain to the speaker. The ended callback runs under the
// speaker lock, so it only flips a flag and queues the event.
func (e *LocalElement) startLocked() {
	e.ended.Store(false)
	ctrl := e.ctrl
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		e.ended.Store(true)
		e.report(model.NativeEnded)
	})))
}

func (e *LocalElement) closeLocked() {
	if e.streamer == nil {
		return
	}
	speaker.Clear()
	if err := e.streamer.Close(); err != nil {
		log.Debug().Err(err).Str("track", e.identifier).Msg("closing previous track")
	}
	e.streamer = nil
	e.ctrl = nil
	e.volume = nil
	e.identifier = ""
}

func (e *LocalElement) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.streamer != nil
}

func (e *LocalElement) Identifier() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identifier
}

func (e *LocalElement) Play(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return ErrNoContent
	}
	if e.ended.Load() {
		speaker.Lock()
		err := e.streamer.Seek(0)
		speaker.Unlock()
		if err != nil {
			return fmt.Errorf("rewind: %w", err)
		}
		e.startLocked()
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.report(model.NativePlaying)
	return nil
}

func (e *LocalElement) Pause(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ctrl == nil {
		return nil
	}
	speaker.Lock()
	e.ctrl.Paused = true
	speaker.Unlock()
	e.report(model.NativePaused)
	return nil
}

func (e *LocalElement) Seek(_ context.Context, seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return ErrNoContent
	}
	pos := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if pos >= e.streamer.Len() {
		pos = e.streamer.Len() - 1
	}
	if pos < 0 {
		pos = 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return e.streamer.Seek(pos)
}

func (e *LocalElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := e.streamer.Position()
	speaker.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

func (e *LocalElement) SetVolume(_ context.Context, level int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = level
	e.applyVolumeLocked()
	return nil
}

func (e *LocalElement) SetMuted(_ context.Context, muted bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	e.applyVolumeLocked()
	return nil
}

func (e *LocalElement) applyVolumeLocked() {
	if e.volume == nil {
		return
	}
	exp, silent := volumeExponent(e.level)
	speaker.Lock()
	e.volume.Volume = exp
	e.volume.Silent = silent || e.muted
	speaker.Unlock()
}

// volumeExponent maps a 0..100 level onto a base-2 gain exponent.
func volumeExponent(level int) (float64, bool) {
	if level <= 0 {
		return 0, true
	}
	if level > 100 {
		level = 100
	}
	return math.Log2(float64(level) / 100), false
}
