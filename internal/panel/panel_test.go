package panel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

func fixedNow() time.Time { return time.Date(2026, 5, 1, 13, 0, 0, 0, time.UTC) }

func TestOverlayOwnership(t *testing.T) {
	p := New(fixedNow)

	assert.True(t, p.ShowOverlay(OwnerEzan, "Öğle", "ezan in progress"))
	assert.False(t, p.ShowOverlay(OwnerAlarm, "Alarm", "music stopped"), "alarm must not cover ezan")
	assert.False(t, p.HideOverlay(OwnerAlarm), "alarm must not clear ezan")
	assert.Equal(t, OwnerEzan, p.Snapshot().Overlay.Owner)

	assert.True(t, p.HideOverlay(OwnerEzan))
	assert.False(t, p.Snapshot().Overlay.Visible)

	assert.True(t, p.ShowOverlay(OwnerAlarm, "Alarm", "music stopped"))
	assert.True(t, p.ShowOverlay(OwnerEzan, "Öğle", "ezan in progress"), "ezan replaces alarm")
	assert.Equal(t, OwnerEzan, p.Snapshot().Overlay.Owner)
}

func TestNotifications(t *testing.T) {
	p := New(fixedNow)

	id := p.Notify(LevelAlarm, "Alarm", "07:30 start")
	require.NotEmpty(t, id)
	require.Len(t, p.Snapshot().Notifications, 1)

	assert.True(t, p.Dismiss(id))
	assert.False(t, p.Dismiss(id))
	assert.Empty(t, p.Snapshot().Notifications)

	for i := 0; i < maxNotifications+3; i++ {
		p.Notify(LevelInfo, "n", "m")
	}
	assert.Len(t, p.Snapshot().Notifications, maxNotifications)
}

func TestSubscribeGetsLatest(t *testing.T) {
	p := New(fixedNow)
	ch, cancel := p.Subscribe()
	defer cancel()

	first := <-ch
	assert.True(t, first.ControlsEnabled)

	p.SetControlsEnabled(false)
	p.SetStatus("paused for ezan")
	latest := <-ch
	assert.False(t, latest.ControlsEnabled)
	assert.Equal(t, "paused for ezan", latest.Status)

	cancel()
	p.SetConnected(true)
	select {
	case <-ch:
		t.Fatal("unsubscribed channel received an update")
	default:
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	p := New(fixedNow)
	p.SetPrayerTimes(model.PrayerTimeTable{model.Fajr: "05:12"})
	p.SetBackend(model.StateReport{State: "ACTIVE"})

	s := p.Snapshot()
	s.PrayerTimes[model.Fajr] = "00:00"
	s.Backend.State = "DISABLED"

	again := p.Snapshot()
	assert.Equal(t, "05:12", again.PrayerTimes[model.Fajr])
	assert.Equal(t, "ACTIVE", again.Backend.State)
}
