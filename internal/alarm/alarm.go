package alarm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/logger"
	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
	"github.com/Nixie-Tech-LLC/pausetime/internal/panel"
)

const (
	storageKey           = "musicAlarms"
	defaultDisplayWindow = 5 * time.Second
)

var (
	ErrInvalidTime   = errors.New("alarm time must be HH:MM in 24-hour format")
	ErrDuplicateTime = errors.New("an alarm already exists at this time")
	ErrInvalidAction = errors.New("alarm action must be start or stop")
	ErrAlarmNotFound = errors.New("alarm not found")
)

// Playback is the part of the coordinator alarms drive.
type Playback interface {
	Snapshot() model.SavedPlaybackSnapshot
	PlayActive(ctx context.Context)
	PauseActive(ctx context.Context)
	Restore(ctx context.Context, snap model.SavedPlaybackSnapshot)
}

// Interrupts reports an ezan suspension, which always takes precedence.
type Interrupts interface {
	Suspended() bool
	CancelResume()
}

type Deps struct {
	Playback      Playback
	Ezan          Interrupts
	Panel         *panel.Panel
	Store         db.Store
	Scheduler     loop.Scheduler
	Clock         loop.Clock
	Location      *time.Location
	DisplayWindow time.Duration
	Metrics       *metrics.Metrics
}

// Scheduler owns the user's one-shot music alarms. Call it from the event loop.
type Scheduler struct {
	playback Playback
	ezan     Interrupts
	panel    *panel.Panel
	store    db.Store
	sched    loop.Scheduler
	clock    loop.Clock
	loc      *time.Location
	window   time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger

	alarms       []model.Alarm
	active       *model.Alarm
	notification string
	clearTimer   loop.Handle

	// alarms already fired during firedMinute
	firedMinute string
	fired       map[int64]bool

	stopSnapshot *model.SavedPlaybackSnapshot
}

func New(d Deps) *Scheduler {
	if d.DisplayWindow <= 0 {
		d.DisplayWindow = defaultDisplayWindow
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	return &Scheduler{
		playback: d.Playback,
		ezan:     d.Ezan,
		panel:    d.Panel,
		store:    d.Store,
		sched:    d.Scheduler,
		clock:    d.Clock,
		loc:      d.Location,
		window:   d.DisplayWindow,
		metrics:  d.Metrics,
		log:      logger.Component("alarm"),
		alarms:   []model.Alarm{},
		fired:    make(map[int64]bool),
	}
}

// Load reads the persisted list. Unreadable data yields an empty list and
// invalid entries are dropped.
func (s *Scheduler) Load(ctx context.Context) error {
	var stored []model.Alarm
	found, err := db.LoadJSON(ctx, s.store, storageKey, &stored)
	switch {
	case errors.Is(err, db.ErrMalformed):
		s.log.Warn().Err(err).Msg("stored alarms unreadable, starting empty")
		s.alarms = []model.Alarm{}
		return nil
	case err != nil:
		return fmt.Errorf("load alarms: %w", err)
	case !found:
		s.alarms = []model.Alarm{}
		return nil
	}

	seen := make(map[string]bool, len(stored))
	s.alarms = make([]model.Alarm, 0, len(stored))
	for _, a := range stored {
		if !model.IsClockTime(a.Time) || seen[a.Time] {
			s.log.Warn().Int64("id", a.ID).Str("time", a.Time).Msg("dropping invalid stored alarm")
			continue
		}
		if _, err := model.ParseAlarmAction(string(a.Action)); err != nil {
			s.log.Warn().Int64("id", a.ID).Str("action", string(a.Action)).Msg("dropping invalid stored alarm")
			continue
		}
		seen[a.Time] = true
		s.alarms = append(s.alarms, a)
	}
	s.sortByTime()
	s.log.Info().Int("count", len(s.alarms)).Msg("alarms loaded")
	return nil
}

func (s *Scheduler) List() []model.Alarm {
	return append([]model.Alarm(nil), s.alarms...)
}

func (s *Scheduler) Active() *model.Alarm {
	if s.active == nil {
		return nil
	}
	a := *s.active
	return &a
}

func (s *Scheduler) sortByTime() {
	sort.SliceStable(s.alarms, func(i, j int) bool { return s.alarms[i].Time < s.alarms[j].Time })
}

func (s *Scheduler) validate(hhmm string, action model.AlarmAction, editing int64) error {
	if !model.IsClockTime(hhmm) {
		return ErrInvalidTime
	}
	if _, err := model.ParseAlarmAction(string(action)); err != nil {
		return ErrInvalidAction
	}
	for _, a := range s.alarms {
		if a.Time == hhmm && a.ID != editing {
			return ErrDuplicateTime
		}
	}
	return nil
}

func (s *Scheduler) reject(err error) error {
	s.panel.Notify(panel.LevelWarning, "Alarm not saved", err.Error())
	return err
}

// Add creates an alarm. Its id is the creation time in milliseconds, bumped if taken.
func (s *Scheduler) Add(ctx context.Context, hhmm string, action model.AlarmAction) (model.Alarm, error) {
	if err := s.validate(hhmm, action, 0); err != nil {
		return model.Alarm{}, s.reject(err)
	}
	id := s.clock.Now().UnixMilli()
	for _, a := range s.alarms {
		if a.ID >= id {
			id = a.ID + 1
		}
	}
	alarm := model.Alarm{ID: id, Time: hhmm, Action: action}
	s.alarms = append(s.alarms, alarm)
	s.sortByTime()
	s.save(ctx)
	s.log.Info().Int64("id", id).Str("time", hhmm).Str("action", string(action)).Msg("alarm added")
	return alarm, nil
}

func (s *Scheduler) Update(ctx context.Context, id int64, hhmm string, action model.AlarmAction) (model.Alarm, error) {
	i := s.indexOf(id)
	if i < 0 {
		return model.Alarm{}, ErrAlarmNotFound
	}
	if err := s.validate(hhmm, action, id); err != nil {
		return model.Alarm{}, s.reject(err)
	}
	s.alarms[i].Time = hhmm
	s.alarms[i].Action = action
	updated := s.alarms[i]
	s.sortByTime()
	s.save(ctx)
	return updated, nil
}

func (s *Scheduler) Delete(ctx context.Context, id int64) error {
	if !s.remove(id) {
		return ErrAlarmNotFound
	}
	s.save(ctx)
	return nil
}

func (s *Scheduler) indexOf(id int64) int {
	for i, a := range s.alarms {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Scheduler) remove(id int64) bool {
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.alarms = append(s.alarms[:i], s.alarms[i+1:]...)
	return true
}

func (s *Scheduler) save(ctx context.Context) {
	if err := db.SaveJSON(ctx, s.store, storageKey, s.alarms); err != nil {
		s.log.Error().Err(err).Msg("failed to persist alarms")
	}
}

// CheckTick fires the alarm set for the current minute, if any and none is active.
func (s *Scheduler) CheckTick(ctx context.Context) {
	minute := model.ClockMinute(s.clock.Now(), s.loc)
	if minute != s.firedMinute {
		s.firedMinute = minute
		s.fired = make(map[int64]bool)
	}
	if s.active != nil {
		return
	}
	for _, a := range s.alarms {
		if a.Time == minute && !s.fired[a.ID] {
			s.fired[a.ID] = true
			s.trigger(ctx, a)
			return
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, a model.Alarm) {
	s.active = &a
	s.metrics.IncAlarmsFired(string(a.Action))
	suspended := s.ezan != nil && s.ezan.Suspended()

	switch a.Action {
	case model.AlarmStop:
		s.notification = s.panel.Notify(panel.LevelAlarm, "Music alarm "+a.Time, "Stopping music.")
		if suspended {
			s.ezan.CancelResume()
			break
		}
		snap := s.playback.Snapshot()
		s.stopSnapshot = &snap
		s.playback.PauseActive(ctx)
		s.panel.ShowOverlay(panel.OwnerAlarm, "Music stopped", fmt.Sprintf("Stopped by the %s alarm.", a.Time))
	case model.AlarmStart:
		s.notification = s.panel.Notify(panel.LevelAlarm, "Music alarm "+a.Time, "Starting music.")
		if suspended {
			s.log.Info().Str("time", a.Time).Msg("ezan in progress, start alarm does not play")
			break
		}
		s.panel.HideOverlay(panel.OwnerAlarm)
		if s.stopSnapshot != nil {
			snap := *s.stopSnapshot
			s.stopSnapshot = nil
			snap.WasPlaying = true
			s.playback.Restore(ctx, snap)
		} else {
			s.playback.PlayActive(ctx)
		}
	}

	s.log.Info().Int64("id", a.ID).Str("time", a.Time).Str("action", string(a.Action)).
		Bool("ezan", suspended).Msg("alarm fired")
	id := a.ID
	s.clearTimer = s.sched.After(s.window, func() { s.finish(context.Background(), id) })
}

// finish ends the display window and removes the fired alarm.
func (s *Scheduler) finish(ctx context.Context, id int64) {
	if s.notification != "" {
		s.panel.Dismiss(s.notification)
		s.notification = ""
	}
	s.active = nil
	if s.remove(id) {
		s.save(ctx)
	}
}

// DismissOverlay hides an overlay put up by a stop alarm.
func (s *Scheduler) DismissOverlay() bool {
	return s.panel.HideOverlay(panel.OwnerAlarm)
}

// Close completes a pending display window right away so a fired alarm is
// never left in the persisted list.
func (s *Scheduler) Close(ctx context.Context) {
	if s.active == nil {
		return
	}
	s.sched.Cancel(s.clearTimer)
	s.finish(ctx, s.active.ID)
}
