// Package ezan suspends playback while the ezan is recited.
//
// A once-per-second detector compares the current minute with the day's
// prayer times. On a match playback is snapshotted and paused, the panel is
// blocked and the suspension is persisted so it survives a restart. When the
// suspension ends, playback resumes from the snapshot if it was playing.
package ezan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/logger"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
)

const stateKey = "ezanInterrupt"

var ErrInterruptActive = errors.New("an ezan interrupt is already active")

// Playback is the part of the coordinator the controller needs.
type Playback interface {
	Snapshot() model.SavedPlaybackSnapshot
	Interrupt(ctx context.Context)
	ResumeFrom(ctx context.Context, snap *model.SavedPlaybackSnapshot)
}

type Deps struct {
	Playback  Playback
	Panel     *panel.Panel
	Store     db.Store
	Scheduler loop.Scheduler
	Clock     loop.Clock
	Location  *time.Location
	Duration  time.Duration
	Metrics   *metrics.Metrics
}

// Controller is not safe for concurrent use; call it from the event loop.
type Controller struct {
	playback Playback
	panel    *panel.Panel
	store    db.Store
	sched    loop.Scheduler
	clock    loop.Clock
	loc      *time.Location
	duration time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger

	table        model.PrayerTimeTable
	lastChecked  string
	current      *model.EzanInterruptState
	snapshot     *model.SavedPlaybackSnapshot
	timer        loop.Handle
	notification string
}

func New(d Deps) *Controller {
	if d.Duration <= 0 {
		d.Duration = model.EzanDuration
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	return &Controller{
		playback: d.Playback,
		panel:    d.Panel,
		store:    d.Store,
		sched:    d.Scheduler,
		clock:    d.Clock,
		loc:      d.Location,
		duration: d.Duration,
		metrics:  d.Metrics,
		log:      logger.Component("ezan"),
		table:    model.PrayerTimeTable{},
	}
}

// SetPrayerTimes replaces the table wholesale.
func (c *Controller) SetPrayerTimes(table model.PrayerTimeTable) {
	c.table = table
}

func (c *Controller) PrayerTimes() model.PrayerTimeTable { return c.table }

func (c *Controller) Suspended() bool { return c.current != nil }

// Tick runs the detector. Each minute is looked at once, and never while suspended.
func (c *Controller) Tick(ctx context.Context) {
	if c.current != nil {
		return
	}
	minute := model.ClockMinute(c.clock.Now(), c.loc)
	if minute == c.lastChecked {
		return
	}
	c.lastChecked = minute

	prayer, ok := c.table.Match(minute)
	if !ok {
		return
	}
	if err := c.Begin(ctx, prayer); err != nil {
		c.log.Error().Err(err).Str("prayer", string(prayer)).Msg("failed to start ezan interrupt")
	}
}

// Begin snapshots and pauses playback and blocks the panel for the ezan duration.
func (c *Controller) Begin(ctx context.Context, prayer model.PrayerKey) error {
	if c.current != nil {
		return ErrInterruptActive
	}
	now := c.clock.Now()
	snap := c.playback.Snapshot()
	c.playback.Interrupt(ctx)

	c.current = &model.EzanInterruptState{PrayerKey: prayer, StartTimestampMillis: now.UnixMilli()}
	c.snapshot = &snap
	if err := db.SaveJSON(ctx, c.store, stateKey, c.current); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist ezan state")
	}

	c.log.Info().Str("prayer", string(prayer)).Bool("was_playing", snap.WasPlaying).
		Str("source", string(snap.SourceKind)).Msg("ezan started, playback suspended")
	c.metrics.IncEzanInterrupts()

	c.block(prayer, c.duration)
	c.notification = c.panel.Notify(panel.LevelPrayer,
		fmt.Sprintf("%s vakti", prayer.DisplayName()),
		fmt.Sprintf("Ezan time for %s. Music paused.", prayer))
	c.timer = c.sched.After(c.duration, func() { c.End(context.Background()) })
	return nil
}

func (c *Controller) block(prayer model.PrayerKey, remaining time.Duration) {
	resumeAt := c.clock.Now().Add(remaining)
	c.panel.SetControlsEnabled(false)
	c.panel.ShowOverlay(panel.OwnerEzan,
		fmt.Sprintf("%s ezanı okunuyor", prayer.DisplayName()),
		fmt.Sprintf("Playback resumes at %s.", resumeAt.In(c.loc).Format("15:04:05")))
	c.panel.SetStatus(fmt.Sprintf("Paused for %s ezan", prayer))
}

// End lifts the suspension and resumes whatever was playing when it began.
func (c *Controller) End(ctx context.Context) {
	if c.current == nil {
		return
	}
	c.sched.Cancel(c.timer)
	prayer := c.current.PrayerKey
	snap := c.snapshot
	c.current = nil
	c.snapshot = nil

	if err := c.store.Delete(ctx, stateKey); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear ezan state")
	}

	c.panel.SetControlsEnabled(true)
	c.panel.HideOverlay(panel.OwnerEzan)
	c.panel.SetStatus("")
	if c.notification != "" {
		c.panel.Dismiss(c.notification)
		c.notification = ""
	}

	c.log.Info().Str("prayer", string(prayer)).Bool("resume", snap != nil && snap.WasPlaying).Msg("ezan finished")
	c.playback.ResumeFrom(ctx, snap)
}

// CancelResume keeps playback paused when the current suspension ends.
func (c *Controller) CancelResume() {
	if c.snapshot != nil && c.snapshot.WasPlaying {
		c.snapshot.WasPlaying = false
		c.log.Info().Msg("pending ezan resume cancelled")
	}
}

// Recover restores a suspension persisted before a restart. A finished or
// malformed record is removed. No snapshot survives a restart, so a recovered
// suspension never resumes playback on its own.
func (c *Controller) Recover(ctx context.Context) {
	var state model.EzanInterruptState
	found, err := db.LoadJSON(ctx, c.store, stateKey, &state)
	if err != nil && !errors.Is(err, db.ErrMalformed) {
		c.log.Error().Err(err).Msg("failed to read ezan state")
		return
	}
	if !found {
		return
	}
	if err != nil || state.StartTimestampMillis <= 0 || state.PrayerKey == "" {
		c.log.Warn().Err(err).Msg("discarding malformed ezan state")
		c.clear(ctx)
		return
	}

	elapsed := state.Elapsed(c.clock.Now())
	if elapsed >= c.duration {
		c.log.Info().Str("prayer", string(state.PrayerKey)).Dur("elapsed", elapsed).Msg("stale ezan state cleared")
		c.clear(ctx)
		return
	}

	remaining := c.duration - elapsed
	c.current = &state
	c.snapshot = nil
	c.playback.Interrupt(ctx)
	c.block(state.PrayerKey, remaining)
	c.timer = c.sched.After(remaining, func() { c.End(context.Background()) })
	c.log.Info().Str("prayer", string(state.PrayerKey)).Dur("remaining", remaining).Msg("ezan suspension recovered")
}

func (c *Controller) clear(ctx context.Context) {
	if err := c.store.Delete(ctx, stateKey); err != nil {
		c.log.Warn().Err(err).Msg("failed to clear ezan state")
	}
}

// Close cancels the pending end timer without ending the suspension, so the
// persisted state is picked up by the next Recover.
func (c *Controller) Close() {
	if c.current != nil {
		c.sched.Cancel(c.timer)
	}
}

type Status struct {
	Active     bool            `json:"active"`
	Prayer     model.PrayerKey `json:"prayer,omitempty"`
	PrayerName string          `json:"prayer_name,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	Remaining  float64         `json:"remaining_seconds"`
	WillResume bool            `json:"will_resume"`
}

func (c *Controller) Status() Status {
	if c.current == nil {
		return Status{}
	}
	started := c.current.StartedAt()
	remaining := c.duration - c.current.Elapsed(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Active:     true,
		Prayer:     c.current.PrayerKey,
		PrayerName: c.current.PrayerKey.DisplayName(),
		StartedAt:  &started,
		Remaining:  remaining.Seconds(),
		WillResume: c.snapshot != nil && c.snapshot.WasPlaying,
	}
}
