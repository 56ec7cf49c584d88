package ezan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop/looptest"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player/playertest"
)

type harness struct {
	clock  *looptest.Manual
	store  *db.MemoryStore
	panel  *panel.Panel
	coord  *player.Coordinator
	local  *playertest.FakeElement
	remote *playertest.FakeElement
	ezan   *Controller
}

func newHarness(t *testing.T, start time.Time) *harness {
	t.Helper()
	h := &harness{
		clock:  looptest.NewManual(start),
		store:  db.NewMemoryStore(),
		local:  playertest.New("uploads/nasheed.mp3"),
		remote: playertest.New("dQw4w9WgXcQ"),
	}
	h.panel = panel.New(h.clock.Now)
	h.coord = player.NewCoordinator(h.local, h.remote)
	h.ezan = New(Deps{
		Playback:  h.coord,
		Panel:     h.panel,
		Store:     h.store,
		Scheduler: h.clock,
		Clock:     h.clock,
		Location:  time.UTC,
	})
	h.ezan.SetPrayerTimes(model.PrayerTimeTable{
		model.Fajr:    "05:12",
		model.Dhuhr:   "13:05",
		model.Asr:     "16:40",
		model.Maghrib: "19:21",
		model.Isha:    "20:50",
	})
	return h
}

func (h *harness) persisted(t *testing.T) (model.EzanInterruptState, bool) {
	t.Helper()
	var s model.EzanInterruptState
	found, err := db.LoadJSON(context.Background(), h.store, stateKey, &s)
	require.NoError(t, err)
	return s, found
}

func at(hh, mm, ss int) time.Time {
	return time.Date(2026, 6, 12, hh, mm, ss, 0, time.UTC)
}

func TestEzanResumesRemoteAtSavedPosition(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(13, 4, 59))
	require.NoError(t, h.coord.SwitchSource(ctx, model.SourceRemote))
	h.remote.SetPosition(120.5)
	h.local.Reset()
	h.remote.Reset()

	h.clock.Advance(time.Second)
	h.ezan.Tick(ctx)
	require.True(t, h.ezan.Suspended())
	assert.Equal(t, 1, h.remote.Pauses)

	h.remote.SetPosition(150)
	h.clock.Advance(model.EzanDuration)
	require.False(t, h.ezan.Suspended())
	assert.Equal(t, []float64{120.5}, h.remote.Seeks)
	assert.Equal(t, 1, h.remote.Plays)
	assert.True(t, h.remote.Playing())

	assert.Zero(t, h.local.Plays)
	assert.Zero(t, h.local.Pauses)
	assert.Empty(t, h.local.Seeks)
}

func TestEzanSuspendsAndResumes(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(13, 4, 58))
	require.NoError(t, h.coord.SwitchSource(ctx, model.SourceLocal))
	h.local.SetPosition(42)
	h.local.Reset()

	h.ezan.Tick(ctx)
	assert.False(t, h.ezan.Suspended())

	h.clock.Advance(2 * time.Second)
	h.ezan.Tick(ctx)
	require.True(t, h.ezan.Suspended())
	assert.Equal(t, 1, h.local.Pauses)
	assert.False(t, h.local.Playing())

	snap := h.panel.Snapshot()
	assert.True(t, snap.Overlay.Visible)
	assert.Equal(t, panel.OwnerEzan, snap.Overlay.Owner)
	assert.False(t, snap.ControlsEnabled)
	require.Len(t, snap.Notifications, 1)
	assert.Equal(t, panel.LevelPrayer, snap.Notifications[0].Level)

	state, found := h.persisted(t)
	require.True(t, found)
	assert.Equal(t, model.Dhuhr, state.PrayerKey)
	assert.Equal(t, at(13, 5, 0).UnixMilli(), state.StartTimestampMillis)

	status := h.ezan.Status()
	assert.True(t, status.Active)
	assert.True(t, status.WillResume)
	assert.InDelta(t, 270, status.Remaining, 0.001)

	h.local.SetPosition(80)
	h.clock.Advance(269 * time.Second)
	assert.True(t, h.ezan.Suspended())
	assert.Zero(t, h.local.Plays)

	h.clock.Advance(time.Second)
	assert.False(t, h.ezan.Suspended())
	assert.Equal(t, []float64{42}, h.local.Seeks)
	assert.Equal(t, 1, h.local.Plays)
	assert.True(t, h.local.Playing())

	snap = h.panel.Snapshot()
	assert.False(t, snap.Overlay.Visible)
	assert.True(t, snap.ControlsEnabled)
	assert.Empty(t, snap.Notifications)
	_, found = h.persisted(t)
	assert.False(t, found)
}

func TestEzanWhileIdleDoesNotStartPlayback(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(16, 40, 0))
	require.NoError(t, h.coord.SwitchSource(ctx, model.SourceRemote))
	h.coord.PauseActive(ctx)
	h.remote.Reset()

	h.ezan.Tick(ctx)
	require.True(t, h.ezan.Suspended())
	assert.False(t, h.ezan.Status().WillResume)

	h.clock.Advance(model.EzanDuration)
	assert.False(t, h.ezan.Suspended())
	assert.Zero(t, h.remote.Plays)
}

func TestDetectorFiresOncePerMinute(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(13, 5, 0))
	h.ezan.duration = 10 * time.Second

	h.ezan.Tick(ctx)
	require.True(t, h.ezan.Suspended())
	first, _ := h.persisted(t)

	for i := 0; i < 50; i++ {
		h.clock.Advance(time.Second)
		h.ezan.Tick(ctx)
	}
	// the short suspension ended inside 13:05 and must not restart
	assert.False(t, h.ezan.Suspended())
	_, found := h.persisted(t)
	assert.False(t, found)
	assert.NotZero(t, first.StartTimestampMillis)
}

func TestBeginWhileActiveIsRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(10, 0, 0))

	require.NoError(t, h.ezan.Begin(ctx, model.Asr))
	assert.ErrorIs(t, h.ezan.Begin(ctx, model.Isha), ErrInterruptActive)
	assert.Equal(t, 1, h.clock.Pending())
}

func TestRecoverResumesRemainingTime(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(13, 6, 40))
	require.NoError(t, db.SaveJSON(ctx, h.store, stateKey, model.EzanInterruptState{
		PrayerKey:            model.Dhuhr,
		StartTimestampMillis: at(13, 5, 0).UnixMilli(),
	}))
	require.NoError(t, h.coord.SwitchSource(ctx, model.SourceLocal))
	h.local.Reset()

	h.ezan.Recover(ctx)
	require.True(t, h.ezan.Suspended())
	assert.True(t, h.coord.Interrupted())
	assert.False(t, h.panel.Snapshot().ControlsEnabled)
	assert.True(t, h.panel.Snapshot().Overlay.Visible)
	assert.InDelta(t, 170, h.ezan.Status().Remaining, 0.001)

	h.clock.Advance(169 * time.Second)
	assert.True(t, h.ezan.Suspended())
	h.clock.Advance(time.Second)
	assert.False(t, h.ezan.Suspended())
	assert.False(t, h.coord.Interrupted())
	assert.Zero(t, h.local.Plays, "no snapshot survives a restart")
	assert.True(t, h.panel.Snapshot().ControlsEnabled)
}

func TestRecoverClearsExpiredState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(13, 10, 0))
	require.NoError(t, db.SaveJSON(ctx, h.store, stateKey, model.EzanInterruptState{
		PrayerKey:            model.Dhuhr,
		StartTimestampMillis: at(13, 5, 0).UnixMilli(),
	}))

	h.ezan.Recover(ctx)
	assert.False(t, h.ezan.Suspended())
	assert.Equal(t, 0, h.clock.Pending())
	_, found := h.persisted(t)
	assert.False(t, found)
	assert.True(t, h.panel.Snapshot().ControlsEnabled)
}

func TestRecoverDiscardsMalformedState(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(13, 6, 0))

	for _, raw := range []string{"{broken", `{"prayer_key":"Dhuhr","start_timestamp_millis":0}`, `{}`} {
		require.NoError(t, h.store.Set(ctx, stateKey, raw))
		h.ezan.Recover(ctx)
		assert.False(t, h.ezan.Suspended(), raw)
		_, ok, _ := h.store.Get(ctx, stateKey)
		assert.False(t, ok, raw)
	}
}

func TestCancelResumeKeepsPlaybackPaused(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(19, 21, 0))
	require.NoError(t, h.coord.SwitchSource(ctx, model.SourceLocal))
	h.local.Reset()

	h.ezan.Tick(ctx)
	require.True(t, h.ezan.Suspended())
	h.ezan.CancelResume()
	assert.False(t, h.ezan.Status().WillResume)

	h.clock.Advance(model.EzanDuration)
	assert.False(t, h.ezan.Suspended())
	assert.Zero(t, h.local.Plays)
}

func TestCloseLeavesStateForRecovery(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, at(20, 50, 0))
	h.ezan.Tick(ctx)
	require.True(t, h.ezan.Suspended())

	h.ezan.Close()
	assert.Equal(t, 0, h.clock.Pending())
	_, found := h.persisted(t)
	assert.True(t, found)
}
