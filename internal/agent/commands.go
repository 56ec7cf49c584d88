package agent

import (
	"context"

	"github.com/Nixie-Tech-LLC/pausetime/internal/ezan"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player"
)

func (a *Agent) Play(ctx context.Context) error {
	return a.transport(ctx, func() error {
		if err := a.playable(); err != nil {
			return err
		}
		a.coord.PlayActive(ctx)
		return nil
	})
}

func (a *Agent) Pause(ctx context.Context) error {
	return a.transport(ctx, func() error {
		a.coord.PauseActive(ctx)
		return nil
	})
}

func (a *Agent) TogglePlay(ctx context.Context) error {
	return a.transport(ctx, func() error {
		if err := a.playable(); err != nil {
			return err
		}
		a.coord.TogglePlay(ctx)
		return nil
	})
}

func (a *Agent) Seek(ctx context.Context, seconds float64) error {
	return a.transport(ctx, func() error {
		return a.coord.Seek(ctx, seconds)
	})
}

func (a *Agent) SwitchSource(ctx context.Context, source model.PlaybackSource) error {
	return a.transport(ctx, func() error {
		return a.coord.SwitchSource(ctx, source)
	})
}

// LoadRemote accepts a video URL or bare id and makes the remote source active.
func (a *Agent) LoadRemote(ctx context.Context, input string) (string, error) {
	id, err := player.ParseVideoID(input)
	if err != nil {
		return "", err
	}
	return id, a.transport(ctx, func() error {
		return a.coord.Load(ctx, model.SourceRemote, id)
	})
}

// SetLooping turns loop mode on or off for whichever source is active.
func (a *Agent) SetLooping(ctx context.Context, on bool) error {
	return a.transport(ctx, func() error {
		a.coord.SetLooping(on)
		return nil
	})
}

// LoadLocal loads a stored audio file into the local source. The file is read
// and decoded on the caller's goroutine; only the swap runs on the loop.
func (a *Agent) LoadLocal(ctx context.Context, location string) error {
	if err := a.transport(ctx, func() error { return nil }); err != nil {
		return err
	}
	if p, ok := a.local.(player.Preloader); ok {
		if err := p.Preload(ctx, location); err != nil {
			return err
		}
	}
	return a.transport(ctx, func() error {
		return a.coord.Load(ctx, model.SourceLocal, location)
	})
}

func (a *Agent) SetVolume(ctx context.Context, level int) error {
	return a.do(ctx, func() error {
		a.coord.SetVolume(ctx, level)
		return nil
	})
}

func (a *Agent) SetMuted(ctx context.Context, muted bool) error {
	return a.do(ctx, func() error {
		a.coord.SetMuted(ctx, muted)
		return nil
	})
}

func (a *Agent) ListAlarms(ctx context.Context) ([]model.Alarm, error) {
	var out []model.Alarm
	err := a.do(ctx, func() error {
		out = a.alarms.List()
		return nil
	})
	return out, err
}

func (a *Agent) AddAlarm(ctx context.Context, hhmm string, action model.AlarmAction) (model.Alarm, error) {
	var out model.Alarm
	err := a.do(ctx, func() error {
		var err error
		out, err = a.alarms.Add(ctx, hhmm, action)
		return err
	})
	return out, err
}

func (a *Agent) UpdateAlarm(ctx context.Context, id int64, hhmm string, action model.AlarmAction) (model.Alarm, error) {
	var out model.Alarm
	err := a.do(ctx, func() error {
		var err error
		out, err = a.alarms.Update(ctx, id, hhmm, action)
		return err
	})
	return out, err
}

func (a *Agent) DeleteAlarm(ctx context.Context, id int64) error {
	return a.do(ctx, func() error {
		return a.alarms.Delete(ctx, id)
	})
}

func (a *Agent) DismissAlarmOverlay(ctx context.Context) (bool, error) {
	var hidden bool
	err := a.do(ctx, func() error {
		hidden = a.alarms.DismissOverlay()
		return nil
	})
	return hidden, err
}

func (a *Agent) Dismiss(ctx context.Context, notificationID string) (bool, error) {
	var ok bool
	err := a.do(ctx, func() error {
		ok = a.panel.Dismiss(notificationID)
		return nil
	})
	return ok, err
}

func (a *Agent) EzanStatus(ctx context.Context) (ezan.Status, error) {
	var out ezan.Status
	err := a.do(ctx, func() error {
		out = a.ezan.Status()
		return nil
	})
	return out, err
}

// Status is everything a panel needs to render in one read.
type Status struct {
	Player      player.Status         `json:"player"`
	Ezan        ezan.Status           `json:"ezan"`
	ActiveAlarm *model.Alarm          `json:"active_alarm,omitempty"`
	Alarms      []model.Alarm         `json:"alarms"`
	Panel       panel.Snapshot        `json:"panel"`
	PrayerTimes model.PrayerTimeTable `json:"prayer_times"`
	Running     bool                  `json:"running"`
}

func (a *Agent) Status(ctx context.Context) (Status, error) {
	var out Status
	err := a.do(ctx, func() error {
		out = Status{
			Player:      a.coord.Status(),
			Ezan:        a.ezan.Status(),
			ActiveAlarm: a.alarms.Active(),
			Alarms:      a.alarms.List(),
			Panel:       a.panel.Snapshot(),
			PrayerTimes: a.ezan.PrayerTimes(),
			Running:     a.running,
		}
		return nil
	})
	return out, err
}

// CachedSchedules returns the poller's schedule list and whether it is current.
func (a *Agent) CachedSchedules(ctx context.Context) ([]model.Schedule, bool, error) {
	var (
		list  []model.Schedule
		valid bool
	)
	err := a.do(ctx, func() error {
		list, valid = a.poller.Schedules()
		return nil
	})
	return list, valid, err
}

// SchedulesChanged drops the schedule cache and refetches it and the state.
func (a *Agent) SchedulesChanged(ctx context.Context) error {
	return a.do(ctx, func() error {
		a.poller.InvalidateSchedules()
		a.poller.RefreshSchedules()
		a.poller.RefreshState()
		return nil
	})
}

// BackendChanged refetches state and, when asked, the prayer table.
func (a *Agent) BackendChanged(ctx context.Context, prayerTimes bool) error {
	return a.do(ctx, func() error {
		a.poller.RefreshState()
		if prayerTimes {
			a.poller.RefreshPrayerTimes()
		}
		return nil
	})
}
