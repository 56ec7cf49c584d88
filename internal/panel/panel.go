// Package panel holds what the admin panel shows: the blocking overlay, whether
// transport controls are usable, the status line, notifications and backend info.
// Every mutation is pushed to subscribers.
package panel

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

// Owner says which component put the overlay up. Ezan outranks alarms.
type Owner string

const (
	OwnerNone  Owner = ""
	OwnerEzan  Owner = "ezan"
	OwnerAlarm Owner = "alarm"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelPrayer  Level = "prayer"
	LevelAlarm   Level = "alarm"
)

const maxNotifications = 10

type Overlay struct {
	Visible bool   `json:"visible"`
	Owner   Owner  `json:"owner,omitempty"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message,omitempty"`
}

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Snapshot struct {
	Overlay         Overlay               `json:"overlay"`
	ControlsEnabled bool                  `json:"controls_enabled"`
	Status          string                `json:"status"`
	Notifications   []Notification        `json:"notifications"`
	Connected       bool                  `json:"connected"`
	Backend         *model.StateReport    `json:"backend,omitempty"`
	PrayerTimes     model.PrayerTimeTable `json:"prayer_times,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

type Panel struct {
	mu    sync.RWMutex
	state Snapshot
	now   func() time.Time

	nextSub int
	subs    map[int]chan Snapshot
}

func New(now func() time.Time) *Panel {
	if now == nil {
		now = time.Now
	}
	return &Panel{
		state: Snapshot{ControlsEnabled: true, Notifications: []Notification{}},
		now:   now,
		subs:  make(map[int]chan Snapshot),
	}
}

// Snapshot returns a copy safe to hand to other goroutines.
func (p *Panel) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.copyLocked()
}

func (p *Panel) copyLocked() Snapshot {
	s := p.state
	s.Notifications = append([]Notification(nil), p.state.Notifications...)
	if p.state.Backend != nil {
		b := *p.state.Backend
		s.Backend = &b
	}
	if p.state.PrayerTimes != nil {
		s.PrayerTimes = make(model.PrayerTimeTable, len(p.state.PrayerTimes))
		for k, v := range p.state.PrayerTimes {
			s.PrayerTimes[k] = v
		}
	}
	return s
}

// update applies fn under the lock and, if it reports a change, notifies subscribers.
func (p *Panel) update(fn func(s *Snapshot) bool) bool {
	p.mu.Lock()
	changed := fn(&p.state)
	if !changed {
		p.mu.Unlock()
		return false
	}
	p.state.UpdatedAt = p.now()
	snap := p.copyLocked()
	subs := make([]chan Snapshot, 0, len(p.subs))
	for _, ch := range p.subs {
		subs = append(subs, ch)
	}
	p.mu.Unlock()

	for _, ch := range subs {
		publish(ch, snap)
	}
	return true
}

// publish keeps only the latest snapshot for slow subscribers.
func publish(ch chan Snapshot, snap Snapshot) {
	for {
		select {
		case ch <- snap:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// ShowOverlay puts up the blocking overlay. An alarm cannot replace an ezan overlay.
func (p *Panel) ShowOverlay(owner Owner, title, message string) bool {
	return p.update(func(s *Snapshot) bool {
		if owner == OwnerAlarm && s.Overlay.Visible && s.Overlay.Owner == OwnerEzan {
			return false
		}
		s.Overlay = Overlay{Visible: true, Owner: owner, Title: title, Message: message}
		return true
	})
}

// HideOverlay hides the overlay only if owner put it up.
func (p *Panel) HideOverlay(owner Owner) bool {
	return p.update(func(s *Snapshot) bool {
		if !s.Overlay.Visible || s.Overlay.Owner != owner {
			return false
		}
		s.Overlay = Overlay{}
		return true
	})
}

func (p *Panel) SetControlsEnabled(enabled bool) {
	p.update(func(s *Snapshot) bool {
		if s.ControlsEnabled == enabled {
			return false
		}
		s.ControlsEnabled = enabled
		return true
	})
}

func (p *Panel) ControlsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.ControlsEnabled
}

func (p *Panel) SetStatus(status string) {
	p.update(func(s *Snapshot) bool {
		if s.Status == status {
			return false
		}
		s.Status = status
		return true
	})
}

// Notify adds a dismissible notification and returns its id.
func (p *Panel) Notify(level Level, title, message string) string {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Title:     title,
		Message:   message,
		CreatedAt: p.now(),
	}
	p.update(func(s *Snapshot) bool {
		s.Notifications = append(s.Notifications, n)
		if len(s.Notifications) > maxNotifications {
			s.Notifications = s.Notifications[len(s.Notifications)-maxNotifications:]
		}
		return true
	})
	return n.ID
}

func (p *Panel) Dismiss(id string) bool {
	return p.update(func(s *Snapshot) bool {
		for i, n := range s.Notifications {
			if n.ID == id {
				s.Notifications = append(s.Notifications[:i:i], s.Notifications[i+1:]...)
				return true
			}
		}
		return false
	})
}

func (p *Panel) SetConnected(connected bool) {
	p.update(func(s *Snapshot) bool {
		if s.Connected == connected {
			return false
		}
		s.Connected = connected
		return true
	})
}

func (p *Panel) SetBackend(report model.StateReport) {
	p.update(func(s *Snapshot) bool {
		if s.Backend != nil && *s.Backend == report {
			return false
		}
		s.Backend = &report
		return true
	})
}

func (p *Panel) SetPrayerTimes(table model.PrayerTimeTable) {
	cp := make(model.PrayerTimeTable, len(table))
	for k, v := range table {
		cp[k] = v
	}
	p.update(func(s *Snapshot) bool {
		s.PrayerTimes = cp
		return true
	})
}

// Subscribe returns a channel that always holds the most recent snapshot.
// Call the returned func to unsubscribe.
func (p *Panel) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	p.mu.Lock()
	p.nextSub++
	id := p.nextSub
	p.subs[id] = ch
	ch <- p.copyLocked()
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}
