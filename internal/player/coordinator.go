package player

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/Nixie-Tech-LLC/pausetime/internal/db"
	"github.com/Nixie-Tech-LLC/pausetime/internal/logger"
	"github.com/Nixie-Tech-LLC/pausetime/internal/metrics"
	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

const (
	volumeKey     = "playerVolume"
	mutedKey      = "playerMuted"
	defaultVolume = 80
)

// Coordinator decides which single source may make sound and routes transport
// commands to it. It is not safe for concurrent use; call it from the event loop.
type Coordinator struct {
	elements map[model.PlaybackSource]Element
	active   model.PlaybackSource
	playing  map[model.PlaybackSource]bool

	upstreamActive bool
	interrupted    bool
	looping        bool

	volume int
	muted  bool

	store   db.Store
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Coordinator)

// WithStore persists volume and mute between sessions.
func WithStore(s db.Store) Option { return func(c *Coordinator) { c.store = s } }

func WithLogger(l zerolog.Logger) Option { return func(c *Coordinator) { c.log = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Coordinator) { c.metrics = m } }

func NewCoordinator(local, remote Element, opts ...Option) *Coordinator {
	c := &Coordinator{
		elements: map[model.PlaybackSource]Element{
			model.SourceLocal:  local,
			model.SourceRemote: remote,
		},
		active:         model.SourceNone,
		playing:        make(map[model.PlaybackSource]bool),
		upstreamActive: true,
		volume:         defaultVolume,
		log:            logger.Component("player"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.SetPlaybackActive(c.effectiveActive())
	return c
}

func (c *Coordinator) effectiveActive() bool {
	return c.upstreamActive && !c.interrupted
}

func (c *Coordinator) Active() model.PlaybackSource { return c.active }

func (c *Coordinator) activeElement() Element {
	return c.elements[c.active]
}

// Loaded reports whether the active source has content to play.
func (c *Coordinator) Loaded() bool {
	el := c.activeElement()
	return el != nil && el.Loaded()
}

// SetLooping makes the active source restart from the beginning when it ends.
func (c *Coordinator) SetLooping(on bool) {
	c.looping = on
	c.log.Info().Bool("looping", on).Msg("loop mode changed")
}

func (c *Coordinator) Looping() bool { return c.looping }

// SwitchSource pauses the current source and makes target the active one.
// The new source starts right away when playback is allowed.
func (c *Coordinator) SwitchSource(ctx context.Context, target model.PlaybackSource) error {
	if target == c.active {
		return nil
	}
	if target != model.SourceNone && c.elements[target] == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSource, target)
	}

	if prev := c.activeElement(); prev != nil {
		if err := prev.Pause(ctx); err != nil {
			c.log.Warn().Err(err).Str("source", string(c.active)).Msg("pause on source switch failed")
		}
		c.playing[c.active] = false
	}

	c.log.Info().Str("from", string(c.active)).Str("to", string(target)).Msg("switching playback source")
	c.active = target
	c.metrics.IncSourceSwitches()

	el := c.activeElement()
	if el == nil {
		return nil
	}
	c.applyVolume(ctx, el)
	if c.effectiveActive() {
		c.PlayActive(ctx)
	}
	return nil
}

// Load puts new content into source and makes it active.
func (c *Coordinator) Load(ctx context.Context, source model.PlaybackSource, identifier string) error {
	el := c.elements[source]
	if el == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}
	if err := el.Load(ctx, identifier); err != nil {
		return fmt.Errorf("load %s: %w", source, err)
	}
	c.playing[source] = false

	if source != c.active {
		return c.SwitchSource(ctx, source)
	}
	c.applyVolume(ctx, el)
	if c.effectiveActive() {
		c.PlayActive(ctx)
	}
	return nil
}

// PlayActive starts the active source. A rejected play is logged and swallowed;
// the intent stays "playing" until the element reports otherwise.
func (c *Coordinator) PlayActive(ctx context.Context) {
	el := c.activeElement()
	if el == nil || !el.Loaded() {
		return
	}
	if err := el.Play(ctx); err != nil {
		c.log.Warn().Err(err).Str("source", string(c.active)).Msg("native play rejected")
		c.metrics.IncNativeRejections()
	}
	c.playing[c.active] = true
}

func (c *Coordinator) PauseActive(ctx context.Context) {
	el := c.activeElement()
	if el == nil || !el.Loaded() {
		return
	}
	if err := el.Pause(ctx); err != nil {
		c.log.Warn().Err(err).Str("source", string(c.active)).Msg("native pause failed")
	}
	c.playing[c.active] = false
}

// TogglePlay flips the active source between playing and paused.
func (c *Coordinator) TogglePlay(ctx context.Context) {
	if c.playing[c.active] {
		c.PauseActive(ctx)
		return
	}
	c.PlayActive(ctx)
}

func (c *Coordinator) Seek(ctx context.Context, seconds float64) error {
	el := c.activeElement()
	if el == nil || !el.Loaded() {
		return ErrNoContent
	}
	if seconds < 0 {
		seconds = 0
	}
	return el.Seek(ctx, seconds)
}

// OnExternalStateChange applies the backend state. Only an edge of the
// effective active flag issues a play or pause.
func (c *Coordinator) OnExternalStateChange(ctx context.Context, state model.SystemState) {
	before := c.effectiveActive()
	c.upstreamActive = state.Active()
	after := c.effectiveActive()
	if before == after {
		return
	}
	c.metrics.SetPlaybackActive(after)
	c.log.Info().Str("state", string(state)).Bool("active", after).Msg("upstream state changed")
	if after {
		c.PlayActive(ctx)
	} else {
		c.PauseActive(ctx)
	}
}

// Snapshot records what is playing now.
func (c *Coordinator) Snapshot() model.SavedPlaybackSnapshot {
	snap := model.SavedPlaybackSnapshot{
		WasPlaying: c.playing[c.active],
		SourceKind: c.active,
	}
	if el := c.activeElement(); el != nil && el.Loaded() {
		snap.PositionSeconds = el.Position()
		snap.Identifier = el.Identifier()
	}
	return snap
}

// Interrupt holds playback paused until ResumeFrom is called.
func (c *Coordinator) Interrupt(ctx context.Context) {
	if c.interrupted {
		return
	}
	c.interrupted = true
	c.metrics.SetPlaybackActive(false)
	c.PauseActive(ctx)
}

func (c *Coordinator) Interrupted() bool { return c.interrupted }

// ResumeFrom lifts an interrupt. A snapshot that was playing is restored, but
// only started if the backend currently allows playback.
func (c *Coordinator) ResumeFrom(ctx context.Context, snap *model.SavedPlaybackSnapshot) {
	c.interrupted = false
	c.metrics.SetPlaybackActive(c.effectiveActive())
	if snap == nil || !snap.WasPlaying {
		return
	}
	c.restorePosition(ctx, *snap)
	if c.upstreamActive {
		c.PlayActive(ctx)
	}
}

// Restore seeks back to a snapshot and plays it if it was playing.
func (c *Coordinator) Restore(ctx context.Context, snap model.SavedPlaybackSnapshot) {
	c.restorePosition(ctx, snap)
	if snap.WasPlaying {
		c.PlayActive(ctx)
	}
}

func (c *Coordinator) restorePosition(ctx context.Context, snap model.SavedPlaybackSnapshot) {
	if snap.SourceKind != c.active {
		c.log.Warn().Str("saved", string(snap.SourceKind)).Str("active", string(c.active)).
			Msg("source changed since snapshot, position not restored")
		return
	}
	el := c.activeElement()
	if el == nil || !el.Loaded() || el.Identifier() != snap.Identifier {
		return
	}
	if err := el.Seek(ctx, snap.PositionSeconds); err != nil {
		c.log.Warn().Err(err).Float64("position", snap.PositionSeconds).Msg("restore seek failed")
	}
}

// OnNativeStatus records what an element reported. A source that starts on its
// own while inactive or interrupted is paused again.
func (c *Coordinator) OnNativeStatus(ctx context.Context, source model.PlaybackSource, status model.NativeStatus) {
	playing := status == model.NativePlaying
	c.playing[source] = playing
	if status == model.NativeEnded {
		c.restartIfLooping(ctx, source)
		return
	}
	if !playing {
		return
	}
	if source != c.active || c.interrupted {
		c.log.Warn().Str("source", string(source)).Bool("interrupted", c.interrupted).
			Msg("unexpected native playback, pausing")
		if el := c.elements[source]; el != nil {
			if err := el.Pause(ctx); err != nil {
				c.log.Warn().Err(err).Msg("pause of stray source failed")
			}
		}
		c.playing[source] = false
	}
}

// restartIfLooping rewinds and replays the active source after it ends, unless
// playback is held by the backend or an interrupt.
func (c *Coordinator) restartIfLooping(ctx context.Context, source model.PlaybackSource) {
	if !c.looping || source != c.active || !c.effectiveActive() {
		return
	}
	el := c.activeElement()
	if el == nil || !el.Loaded() {
		return
	}
	if err := el.Seek(ctx, 0); err != nil {
		c.log.Warn().Err(err).Str("source", string(source)).Msg("rewind for loop failed")
		return
	}
	c.log.Debug().Str("source", string(source)).Msg("track ended, looping")
	c.PlayActive(ctx)
}

// SetVolume stores level (clamped to 0..100) and forwards it to the active source.
func (c *Coordinator) SetVolume(ctx context.Context, level int) {
	if level < 0 {
		level = 0
	} else if level > 100 {
		level = 100
	}
	c.volume = level
	if el := c.activeElement(); el != nil {
		if err := el.SetVolume(ctx, level); err != nil {
			c.log.Warn().Err(err).Msg("set volume failed")
		}
	}
	c.persist(ctx, volumeKey, strconv.Itoa(level))
}

func (c *Coordinator) SetMuted(ctx context.Context, muted bool) {
	c.muted = muted
	if el := c.activeElement(); el != nil {
		if err := el.SetMuted(ctx, muted); err != nil {
			c.log.Warn().Err(err).Msg("set mute failed")
		}
	}
	c.persist(ctx, mutedKey, strconv.FormatBool(muted))
}

func (c *Coordinator) applyVolume(ctx context.Context, el Element) {
	if err := el.SetVolume(ctx, c.volume); err != nil {
		c.log.Warn().Err(err).Msg("apply volume failed")
	}
	if err := el.SetMuted(ctx, c.muted); err != nil {
		c.log.Warn().Err(err).Msg("apply mute failed")
	}
}

func (c *Coordinator) persist(ctx context.Context, key, value string) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, value); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("failed to persist player setting")
	}
}

// LoadVolume restores the last session's volume and mute. Bad values keep the defaults.
func (c *Coordinator) LoadVolume(ctx context.Context) {
	if c.store == nil {
		return
	}
	if raw, ok, err := c.store.Get(ctx, volumeKey); err != nil {
		c.log.Warn().Err(err).Msg("failed to read stored volume")
	} else if ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 && v <= 100 {
			c.volume = v
		}
	}
	if raw, ok, err := c.store.Get(ctx, mutedKey); err == nil && ok {
		if m, err := strconv.ParseBool(raw); err == nil {
			c.muted = m
		}
	}
}

type Status struct {
	Active         model.PlaybackSource `json:"active"`
	Playing        bool                 `json:"playing"`
	Loaded         bool                 `json:"loaded"`
	Identifier     string               `json:"identifier,omitempty"`
	Position       float64              `json:"position"`
	UpstreamActive bool                 `json:"upstream_active"`
	Interrupted    bool                 `json:"interrupted"`
	Looping        bool                 `json:"looping"`
	Volume         int                  `json:"volume"`
	Muted          bool                 `json:"muted"`
}

func (c *Coordinator) Status() Status {
	s := Status{
		Active:         c.active,
		Playing:        c.playing[c.active],
		UpstreamActive: c.upstreamActive,
		Interrupted:    c.interrupted,
		Looping:        c.looping,
		Volume:         c.volume,
		Muted:          c.muted,
	}
	if el := c.activeElement(); el != nil && el.Loaded() {
		s.Loaded = true
		s.Identifier = el.Identifier()
		s.Position = el.Position()
	}
	return s
}
