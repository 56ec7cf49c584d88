package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

type sentCommand struct {
	action string
	args   []any
}

type recordingChannel struct {
	sent   []sentCommand
	err    error
	ackErr error
}

func (r *recordingChannel) SendCommand(_ context.Context, action string, args ...any) (<-chan error, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, sentCommand{action: action, args: args})
	ack := make(chan error, 1)
	ack <- r.ackErr
	return ack, nil
}

// stalledChannel accepts commands but never confirms delivery.
type stalledChannel struct {
	mu   sync.Mutex
	sent []string
}

func (s *stalledChannel) SendCommand(_ context.Context, action string, _ ...any) (<-chan error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, action)
	return make(chan error), nil
}

func TestParseVideoID(t *testing.T) {
	cases := map[string]string{
		"dQw4w9WgXcQ":                                  "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":  "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=10":            "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":    "dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ&a=1": "dQw4w9WgXcQ",
		"https://youtube.com/shorts/dQw4w9WgXcQ":       "dQw4w9WgXcQ",
	}
	for in, want := range cases {
		got, err := ParseVideoID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "short", "https://vimeo.com/12345678901", "https://youtube.com/watch?v=bad"} {
		_, err := ParseVideoID(bad)
		assert.ErrorIs(t, err, ErrInvalidVideo, bad)
	}
}

func TestRemoteElementCommands(t *testing.T) {
	ctx := context.Background()
	ch := &recordingChannel{}
	e := NewRemoteElement(ch, nil, nil)

	assert.False(t, e.Loaded())
	require.NoError(t, e.Load(ctx, "https://youtu.be/dQw4w9WgXcQ"))
	assert.True(t, e.Loaded())
	require.NoError(t, e.Play(ctx))
	require.NoError(t, e.Seek(ctx, 30))
	require.NoError(t, e.SetVolume(ctx, 40))
	require.NoError(t, e.SetMuted(ctx, true))
	require.NoError(t, e.Pause(ctx))

	actions := make([]string, 0, len(ch.sent))
	for _, c := range ch.sent {
		actions = append(actions, c.action)
	}
	assert.Equal(t, []string{"cueVideoById", "playVideo", "seekTo", "setVolume", "mute", "pauseVideo"}, actions)
	assert.Equal(t, []any{"dQw4w9WgXcQ", 0}, ch.sent[0].args)
}

func TestRemoteElementLoadFailureKeepsOldVideo(t *testing.T) {
	ctx := context.Background()
	ch := &recordingChannel{}
	e := NewRemoteElement(ch, nil, nil)
	require.NoError(t, e.Load(ctx, "dQw4w9WgXcQ"))

	ch.err = errors.New("broker down")
	assert.Error(t, e.Load(ctx, "M7lc1UVf-VE"))
	assert.Equal(t, "dQw4w9WgXcQ", e.Identifier())
}

func TestRemoteElementStatusAndPosition(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var statuses []model.NativeStatus
	e := NewRemoteElement(&recordingChannel{}, func(s model.NativeStatus) { statuses = append(statuses, s) },
		func() time.Time { return now })
	require.NoError(t, e.Load(context.Background(), "dQw4w9WgXcQ"))

	e.HandleStatus(model.RemoteStatus{State: "playing", Position: 10, VideoID: "dQw4w9WgXcQ"})
	now = now.Add(5 * time.Second)
	assert.InDelta(t, 15, e.Position(), 0.001)

	e.HandleStatus(model.RemoteStatus{State: "paused", Position: 16})
	now = now.Add(time.Minute)
	assert.InDelta(t, 16, e.Position(), 0.001)

	e.HandleStatus(model.RemoteStatus{State: "playing", Position: 0, VideoID: "otherVideo1"})
	e.HandleStatus(model.RemoteStatus{State: "buffering"})
	assert.Equal(t, []model.NativeStatus{model.NativePlaying, model.NativePaused}, statuses)
}

func TestRemoteElementDoesNotWaitForDelivery(t *testing.T) {
	ctx := context.Background()
	ch := &stalledChannel{}
	e := NewRemoteElement(ch, nil, nil)

	start := time.Now()
	require.NoError(t, e.Load(ctx, "dQw4w9WgXcQ"))
	require.NoError(t, e.SetVolume(ctx, 50))
	require.NoError(t, e.Play(ctx))
	assert.Less(t, time.Since(start), time.Second)

	ch.mu.Lock()
	defer ch.mu.Unlock()
	assert.Equal(t, []string{"cueVideoById", "setVolume", "playVideo"}, ch.sent)
}

func TestRemoteElementUndeliveredPlayReportsPaused(t *testing.T) {
	statuses := make(chan model.NativeStatus, 1)
	ch := &recordingChannel{}
	e := NewRemoteElement(ch, func(s model.NativeStatus) { statuses <- s }, nil)
	require.NoError(t, e.Load(context.Background(), "dQw4w9WgXcQ"))

	ch.ackErr = errors.New("puback timeout")
	require.NoError(t, e.Play(context.Background()))
	select {
	case s := <-statuses:
		assert.Equal(t, model.NativePaused, s)
	case <-time.After(2 * time.Second):
		t.Fatal("undelivered play not reported")
	}
}
