// Package agent builds the player, ezan, alarm and poller components once and
// runs every one of them on a single event loop.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nixie-Tech-LLC/pausetime/internal/alarm"
	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/ezan"
	"github.com/Nixie-Tech-LLC/pausetime/internal/logger"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
	"github.com/Nixie-Tech-LLC/pausetime/internal/player"
	"github.com/Nixie-Tech-LLC/pausetime/internal/poller"
)

const tickInterval = time.Second

var ErrSuspended = errors.New("playback controls are disabled during the ezan")

// Runtime is everything the agent needs from the event loop.
type Runtime interface {
	loop.Scheduler
	loop.Clock
	loop.Poster
	loop.Executor
}

// ElementFactory builds a native element that reports status through onStatus.
// onStatus may be called from any goroutine.
type ElementFactory func(onStatus func(model.NativeStatus)) player.Element

type Deps struct {
	Runtime Runtime
	Local   ElementFactory
	Remote  ElementFactory
	Backend poller.Backend
	Store   db.Store
	Panel   *panel.Panel
	Metrics *metrics.Metrics
	// Go runs backend fetches off the loop. Defaults to a new goroutine.
	Go func(func())
}

// Timing holds the tunable intervals. Zero values fall back to the defaults.
type Timing struct {
	Location           *time.Location
	EzanDuration       time.Duration
	AlarmDisplayWindow time.Duration
	StatePoll          time.Duration
	PrayerPoll         time.Duration
	SchedulePoll       time.Duration
}

type Agent struct {
	rt      Runtime
	panel   *panel.Panel
	store   db.Store
	metrics *metrics.Metrics
	log     zerolog.Logger

	local  player.Element
	coord  *player.Coordinator
	ezan   *ezan.Controller
	alarms *alarm.Scheduler
	poller *poller.Poller

	tick    loop.Handle
	running bool
}

func New(d Deps, t Timing) *Agent {
	if d.Panel == nil {
		d.Panel = panel.New(d.Runtime.Now)
	}
	if d.Store == nil {
		d.Store = db.NewMemoryStore()
	}
	a := &Agent{
		rt:      d.Runtime,
		panel:   d.Panel,
		store:   d.Store,
		metrics: d.Metrics,
		log:     logger.Component("agent"),
	}

	a.local = d.Local(a.statusHandler(model.SourceLocal))
	remote := d.Remote(a.statusHandler(model.SourceRemote))
	a.coord = player.NewCoordinator(a.local, remote,
		player.WithStore(d.Store),
		player.WithMetrics(d.Metrics),
	)
	a.ezan = ezan.New(ezan.Deps{
		Playback:  a.coord,
		Panel:     d.Panel,
		Store:     d.Store,
		Scheduler: d.Runtime,
		Clock:     d.Runtime,
		Location:  t.Location,
		Duration:  t.EzanDuration,
		Metrics:   d.Metrics,
	})
	a.alarms = alarm.New(alarm.Deps{
		Playback:      a.coord,
		Ezan:          a.ezan,
		Panel:         d.Panel,
		Store:         d.Store,
		Scheduler:     d.Runtime,
		Clock:         d.Runtime,
		Location:      t.Location,
		DisplayWindow: t.AlarmDisplayWindow,
		Metrics:       d.Metrics,
	})
	a.poller = poller.New(poller.Deps{
		Backend:          d.Backend,
		Playback:         a.coord,
		Prayer:           a.ezan,
		Panel:            d.Panel,
		Scheduler:        d.Runtime,
		Poster:           d.Runtime,
		StateInterval:    t.StatePoll,
		PrayerInterval:   t.PrayerPoll,
		ScheduleInterval: t.SchedulePoll,
		Metrics:          d.Metrics,
		Go:               d.Go,
	})
	return a
}

// statusHandler moves a native status report onto the loop.
func (a *Agent) statusHandler(source model.PlaybackSource) func(model.NativeStatus) {
	return func(status model.NativeStatus) {
		if !a.rt.Post(func() { a.coord.OnNativeStatus(context.Background(), source, status) }) {
			a.log.Debug().Str("source", string(source)).Str("status", string(status)).Msg("loop stopped, native status dropped")
		}
	}
}

// Start restores persisted state and arms the 1 Hz tick and the pollers.
func (a *Agent) Start(ctx context.Context) error {
	return a.do(ctx, func() error {
		if a.running {
			return nil
		}
		a.ezan.Recover(ctx)
		if err := a.alarms.Load(ctx); err != nil {
			a.log.Warn().Err(err).Msg("alarms not loaded, starting with an empty list")
		}
		a.coord.LoadVolume(ctx)
		a.tick = a.rt.Every(tickInterval, a.onTick)
		a.poller.Start()
		a.running = true
		a.log.Info().Msg("agent started")
		return nil
	})
}

// Stop cancels every timer the agent armed. A live ezan suspension stays
// persisted so the next Start picks it up.
func (a *Agent) Stop(ctx context.Context) error {
	return a.do(ctx, func() error {
		if !a.running {
			return nil
		}
		a.rt.Cancel(a.tick)
		a.poller.Stop()
		a.alarms.Close(ctx)
		a.ezan.Close()
		a.running = false
		a.log.Info().Msg("agent stopped")
		return nil
	})
}

// onTick runs the ezan detector before the alarm check so an ezan starting in
// the same second wins.
func (a *Agent) onTick() {
	ctx := context.Background()
	a.ezan.Tick(ctx)
	a.alarms.CheckTick(ctx)
}

func (a *Agent) do(ctx context.Context, fn func() error) error {
	var err error
	if callErr := a.rt.Call(ctx, func() { err = fn() }); callErr != nil {
		return callErr
	}
	return err
}

// transport guards commands that would make or stop sound.
func (a *Agent) transport(ctx context.Context, fn func() error) error {
	return a.do(ctx, func() error {
		if a.ezan.Suspended() {
			a.panel.Notify(panel.LevelWarning, "Ezan", "Playback controls are disabled during the ezan.")
			return ErrSuspended
		}
		return fn()
	})
}

// playable guards play commands that have nothing to start.
func (a *Agent) playable() error {
	if !a.coord.Loaded() {
		a.panel.Notify(panel.LevelWarning, "Player", "Choose a music file or video first.")
		return player.ErrNoContent
	}
	return nil
}

// Suspended reports whether transport commands are refused right now.
func (a *Agent) Suspended(ctx context.Context) (bool, error) {
	var out bool
	err := a.do(ctx, func() error {
		out = a.ezan.Suspended()
		return nil
	})
	return out, err
}

func (a *Agent) Panel() *panel.Panel { return a.panel }
