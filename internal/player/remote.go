package player

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

var ErrInvalidVideo = errors.New("not a video url or id")

// CommandChannel carries commands to the embedded video player. SendCommand
// only queues the command; the returned channel yields its delivery result.
type CommandChannel interface {
	SendCommand(ctx context.Context, action string, args ...any) (<-chan error, error)
}

// RemoteElement drives an embedded video player it cannot see directly.
// Position is the last reported one, advanced by wall time while playing.
type RemoteElement struct {
	channel  CommandChannel
	onStatus func(model.NativeStatus)
	now      func() time.Time

	mu         sync.Mutex
	videoID    string
	position   float64
	reportedAt time.Time
	playing    bool
}

var _ Element = (*RemoteElement)(nil)

func NewRemoteElement(channel CommandChannel, onStatus func(model.NativeStatus), now func() time.Time) *RemoteElement {
	if onStatus == nil {
		onStatus = func(model.NativeStatus) {}
	}
	if now == nil {
		now = time.Now
	}
	return &RemoteElement{channel: channel, onStatus: onStatus, now: now}
}

// send queues a command and confirms its delivery on another goroutine, so
// callers on the event loop never wait for the broker.
func (e *RemoteElement) send(ctx context.Context, action string, args ...any) error {
	ack, err := e.channel.SendCommand(ctx, action, args...)
	if err != nil {
		return err
	}
	if ack != nil {
		go e.confirm(action, ack)
	}
	return nil
}

// confirm reports an undelivered play as paused so the coordinator drops its
// playing intent.
func (e *RemoteElement) confirm(action string, ack <-chan error) {
	err, ok := <-ack
	if !ok || err == nil {
		return
	}
	log.Warn().Err(err).Str("func", action).Msg("player command not delivered")
	if action != "playVideo" {
		return
	}
	e.mu.Lock()
	e.playing = false
	e.mu.Unlock()
	e.onStatus(model.NativePaused)
}

// Load cues the video without starting it.
func (e *RemoteElement) Load(ctx context.Context, videoID string) error {
	id, err := ParseVideoID(videoID)
	if err != nil {
		return err
	}
	if err := e.send(ctx, "cueVideoById", id, 0); err != nil {
		return err
	}
	e.mu.Lock()
	e.videoID = id
	e.position = 0
	e.reportedAt = e.now()
	e.playing = false
	e.mu.Unlock()
	return nil
}

func (e *RemoteElement) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.videoID != ""
}

func (e *RemoteElement) Identifier() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.videoID
}

func (e *RemoteElement) Play(ctx context.Context) error {
	return e.send(ctx, "playVideo")
}

func (e *RemoteElement) Pause(ctx context.Context) error {
	return e.send(ctx, "pauseVideo")
}

func (e *RemoteElement) Seek(ctx context.Context, seconds float64) error {
	if err := e.send(ctx, "seekTo", seconds, true); err != nil {
		return err
	}
	e.mu.Lock()
	e.position = seconds
	e.reportedAt = e.now()
	e.mu.Unlock()
	return nil
}

func (e *RemoteElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.playing {
		return e.position
	}
	return e.position + e.now().Sub(e.reportedAt).Seconds()
}

func (e *RemoteElement) SetVolume(ctx context.Context, level int) error {
	return e.send(ctx, "setVolume", level)
}

func (e *RemoteElement) SetMuted(ctx context.Context, muted bool) error {
	if muted {
		return e.send(ctx, "mute")
	}
	return e.send(ctx, "unMute")
}

// HandleStatus applies a report from the player. Reports for another video are ignored.
func (e *RemoteElement) HandleStatus(report model.RemoteStatus) {
	var status model.NativeStatus
	switch strings.ToLower(report.State) {
	case "playing":
		status = model.NativePlaying
	case "paused", "cued":
		status = model.NativePaused
	case "ended":
		status = model.NativeEnded
	default:
		return
	}

	e.mu.Lock()
	if report.VideoID != "" && report.VideoID != e.videoID {
		e.mu.Unlock()
		return
	}
	e.position = report.Position
	e.reportedAt = e.now()
	e.playing = status == model.NativePlaying
	e.mu.Unlock()

	e.onStatus(status)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID accepts a bare 11 character id or a watch, short, embed or
// shorts YouTube url.
func ParseVideoID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return "", ErrInvalidVideo
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com", "youtube-nocookie.com", "music.youtube.com":
		switch {
		case u.Path == "/watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(u.Path, "/embed/"):
			id = strings.TrimPrefix(u.Path, "/embed/")
		case strings.HasPrefix(u.Path, "/shorts/"):
			id = strings.TrimPrefix(u.Path, "/shorts/")
		case strings.HasPrefix(u.Path, "/v/"):
			id = strings.TrimPrefix(u.Path, "/v/")
		}
	}
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	if !videoIDPattern.MatchString(id) {
		return "", ErrInvalidVideo
	}
	return id, nil
}
