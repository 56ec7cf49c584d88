// Package poller keeps the agent in step with the PauseTime backend.
package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nixie-Tech-LLC/pausetime/internal/logger"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
)

const (
	DefaultStateInterval    = 5 * time.Second
	DefaultPrayerInterval   = 60 * time.Second
	DefaultScheduleInterval = 10 * time.Second
)

const (
	kindState     = "state"
	kindPrayer    = "prayer_times"
	kindSchedules = "schedules"
)

// Backend is the read side of Client the poller needs.
type Backend interface {
	GetState(ctx context.Context) (model.StateReport, error)
	GetPrayerTimes(ctx context.Context) (model.PrayerTimeTable, error)
	ListSchedules(ctx context.Context) ([]model.Schedule, error)
}

// Playback receives backend state edges.
type Playback interface {
	OnExternalStateChange(ctx context.Context, state model.SystemState)
}

// PrayerTimes receives each freshly fetched prayer table.
type PrayerTimes interface {
	SetPrayerTimes(table model.PrayerTimeTable)
}

type Deps struct {
	Backend          Backend
	Playback         Playback
	Prayer           PrayerTimes
	Panel            *panel.Panel
	Scheduler        loop.Scheduler
	Poster           loop.Poster
	StateInterval    time.Duration
	PrayerInterval   time.Duration
	ScheduleInterval time.Duration
	Metrics          *metrics.Metrics
	// Go runs a fetch off the loop. Defaults to a new goroutine.
	Go func(func())
}

// Poller is not safe for concurrent use; call it from the event loop.
// Fetches run on their own goroutines and post their results back.
type Poller struct {
	backend  Backend
	playback Playback
	prayer   PrayerTimes
	panel    *panel.Panel
	sched    loop.Scheduler
	poster   loop.Poster
	metrics  *metrics.Metrics
	log      zerolog.Logger

	intervals map[string]time.Duration
	handles   []loop.Handle
	inflight  map[string]bool
	spawn     func(func())

	ctx    context.Context
	cancel context.CancelFunc

	connected      bool
	last           *model.StateReport
	prayerTimes    model.PrayerTimeTable
	schedules      []model.Schedule
	schedulesValid bool
}

func New(d Deps) *Poller {
	if d.StateInterval <= 0 {
		d.StateInterval = DefaultStateInterval
	}
	if d.PrayerInterval <= 0 {
		d.PrayerInterval = DefaultPrayerInterval
	}
	if d.ScheduleInterval <= 0 {
		d.ScheduleInterval = DefaultScheduleInterval
	}
	if d.Go == nil {
		d.Go = func(fn func()) { go fn() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		backend:  d.Backend,
		playback: d.Playback,
		prayer:   d.Prayer,
		panel:    d.Panel,
		sched:    d.Scheduler,
		poster:   d.Poster,
		metrics:  d.Metrics,
		log:      logger.Component("poller"),
		intervals: map[string]time.Duration{
			kindState:     d.StateInterval,
			kindPrayer:    d.PrayerInterval,
			kindSchedules: d.ScheduleInterval,
		},
		inflight: make(map[string]bool),
		spawn:    d.Go,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start polls every endpoint once and then on its interval.
func (p *Poller) Start() {
	if p.ctx.Err() != nil {
		p.ctx, p.cancel = context.WithCancel(context.Background())
	}
	p.RefreshState()
	p.RefreshPrayerTimes()
	p.RefreshSchedules()
	p.handles = append(p.handles,
		p.sched.Every(p.intervals[kindState], p.RefreshState),
		p.sched.Every(p.intervals[kindPrayer], p.RefreshPrayerTimes),
		p.sched.Every(p.intervals[kindSchedules], p.RefreshSchedules),
	)
}

// Stop cancels the tickers and any in-flight request. Results that still
// arrive afterwards are dropped.
func (p *Poller) Stop() {
	for _, h := range p.handles {
		p.sched.Cancel(h)
	}
	p.handles = nil
	p.cancel()
}

// fetch runs call off the loop and posts apply back onto it. A kind that is
// already in flight is skipped.
func fetch[T any](p *Poller, kind string, call func(context.Context) (T, error), apply func(T, error)) {
	if p.inflight[kind] {
		p.log.Debug().Str("kind", kind).Msg("poll still in flight, skipping")
		return
	}
	if p.ctx.Err() != nil {
		return
	}
	p.inflight[kind] = true
	ctx := p.ctx
	p.spawn(func() {
		v, err := call(ctx)
		p.poster.Post(func() {
			p.inflight[kind] = false
			if ctx.Err() != nil {
				return
			}
			p.metrics.ObservePoll(kind, err == nil)
			apply(v, err)
		})
	})
}

func (p *Poller) RefreshState() {
	fetch(p, kindState, p.backend.GetState, p.applyState)
}

func (p *Poller) RefreshPrayerTimes() {
	fetch(p, kindPrayer, p.backend.GetPrayerTimes, p.applyPrayerTimes)
}

func (p *Poller) RefreshSchedules() {
	fetch(p, kindSchedules, p.backend.ListSchedules, p.applySchedules)
}

func (p *Poller) setConnected(connected bool) {
	if p.connected == connected {
		return
	}
	p.connected = connected
	p.panel.SetConnected(connected)
	p.metrics.SetBackendConnected(connected)
}

func (p *Poller) applyState(report model.StateReport, err error) {
	if err != nil {
		if p.connected {
			p.log.Warn().Err(err).Msg("backend state poll failed")
		} else {
			p.log.Debug().Err(err).Msg("backend still unreachable")
		}
		p.setConnected(false)
		return
	}
	p.setConnected(true)
	p.panel.SetBackend(report)

	state := report.SystemState()
	changed := p.last != nil && p.last.SystemState() != state
	p.last = &report
	p.playback.OnExternalStateChange(p.ctx, state)

	if changed {
		p.log.Info().Str("state", string(state)).Msg("backend state changed")
		p.InvalidateSchedules()
		p.RefreshSchedules()
	}
}

func (p *Poller) applyPrayerTimes(table model.PrayerTimeTable, err error) {
	if err != nil {
		p.log.Warn().Err(err).Msg("prayer times poll failed")
		return
	}
	p.prayerTimes = table
	p.prayer.SetPrayerTimes(table)
	p.panel.SetPrayerTimes(table)
}

func (p *Poller) applySchedules(list []model.Schedule, err error) {
	if err != nil {
		p.log.Warn().Err(err).Msg("schedules poll failed")
		return
	}
	p.schedules = list
	p.schedulesValid = true
}

// InvalidateSchedules drops the cached list until the next successful poll.
func (p *Poller) InvalidateSchedules() {
	p.schedules = nil
	p.schedulesValid = false
}

// Schedules returns the cached list and whether it is current.
func (p *Poller) Schedules() ([]model.Schedule, bool) {
	out := make([]model.Schedule, len(p.schedules))
	copy(out, p.schedules)
	return out, p.schedulesValid
}

// State returns the last report the backend answered with, if any.
func (p *Poller) State() (model.StateReport, bool) {
	if p.last == nil {
		return model.StateReport{}, false
	}
	return *p.last, true
}

func (p *Poller) PrayerTimes() model.PrayerTimeTable { return p.prayerTimes }

func (p *Poller) Connected() bool { return p.connected }
