// Package looptest provides a virtual-time scheduler for driving loop users in tests.
package looptest

import (
	"context"
	"sort"
	"time"

	"github.com/Nixie-Tech-LLC/pausetime/internal/loop"
)

type entry struct {
	handle loop.Handle
	due    time.Time
	period time.Duration
	fn     func()
}

// Manual fires callbacks synchronously as Advance moves its clock forward.
// It is not safe for concurrent use, like the loop it stands in for.
type Manual struct {
	now     time.Time
	next    loop.Handle
	entries map[loop.Handle]*entry
}

var (
	_ loop.Scheduler = (*Manual)(nil)
	_ loop.Clock     = (*Manual)(nil)
	_ loop.Poster    = (*Manual)(nil)
	_ loop.Executor  = (*Manual)(nil)
)

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, entries: make(map[loop.Handle]*entry)}
}

func (m *Manual) Now() time.Time { return m.now }

// Set moves the clock without firing anything.
func (m *Manual) Set(t time.Time) { m.now = t }

func (m *Manual) After(d time.Duration, fn func()) loop.Handle {
	m.next++
	m.entries[m.next] = &entry{handle: m.next, due: m.now.Add(d), fn: fn}
	return m.next
}

func (m *Manual) Every(d time.Duration, fn func()) loop.Handle {
	m.next++
	m.entries[m.next] = &entry{handle: m.next, due: m.now.Add(d), period: d, fn: fn}
	return m.next
}

func (m *Manual) Cancel(h loop.Handle) { delete(m.entries, h) }

func (m *Manual) Post(fn func()) bool {
	fn()
	return true
}

func (m *Manual) Call(_ context.Context, fn func()) error {
	fn()
	return nil
}

// Pending reports how many timers and tickers are armed.
func (m *Manual) Pending() int { return len(m.entries) }

// Advance moves the clock by d, firing due callbacks in deadline order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	for {
		e := m.earliest(target)
		if e == nil {
			break
		}
		m.now = e.due
		if e.period > 0 {
			e.due = e.due.Add(e.period)
		} else {
			delete(m.entries, e.handle)
		}
		e.fn()
	}
	m.now = target
}

func (m *Manual) earliest(limit time.Time) *entry {
	due := make([]*entry, 0, len(m.entries))
	for _, e := range m.entries {
		if !e.due.After(limit) {
			due = append(due, e)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].handle < due[j].handle
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}
