// Package loop runs every piece of agent state on a single goroutine.
// Timer and ticker callbacks, native player events and HTTP commands are all
// queued onto the same loop, so components never need their own locks.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Handle identifies a pending timer or ticker.
type Handle uint64

// Scheduler arms callbacks that later run on the loop.
type Scheduler interface {
	After(d time.Duration, fn func()) Handle
	Every(d time.Duration, fn func()) Handle
	Cancel(h Handle)
}

// Clock is the loop's view of wall time.
type Clock interface {
	Now() time.Time
}

// Poster queues work onto the loop without waiting for it.
type Poster interface {
	Post(fn func()) bool
}

// Executor runs fn on the loop and waits for it to finish.
type Executor interface {
	Call(ctx context.Context, fn func()) error
}

var ErrStopped = errors.New("event loop stopped")

type timer struct {
	t      *time.Timer
	ticker *time.Ticker
	done   chan struct{}
}

type Loop struct {
	tasks chan func()
	quit  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*timer
}

var _ Scheduler = (*Loop)(nil)

func New(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 256
	}
	return &Loop{
		tasks:  make(chan func(), buffer),
		quit:   make(chan struct{}),
		timers: make(map[Handle]*timer),
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

// Run processes queued work until ctx is cancelled, then cancels every timer.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.exec(fn)
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("event loop task panicked")
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.once.Do(func() {
		close(l.quit)
		l.CancelAll()
	})
}

// Post queues fn. It returns false once the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.quit:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.quit:
		return false
	}
}

func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.quit:
		return ErrStopped
	}
}

func (l *Loop) register(t *timer) Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	l.timers[l.next] = t
	return l.next
}

func (l *Loop) live(h Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.timers[h]
	return ok
}

// After runs fn once on the loop after d.
func (l *Loop) After(d time.Duration, fn func()) Handle {
	t := &timer{}
	h := l.register(t)
	l.mu.Lock()
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			// a cancelled timer may already be queued
			if !l.live(h) {
				return
			}
			l.forget(h)
			fn()
		})
	})
	l.mu.Unlock()
	return h
}

// Every runs fn on the loop every d until cancelled.
func (l *Loop) Every(d time.Duration, fn func()) Handle {
	t := &timer{ticker: time.NewTicker(d), done: make(chan struct{})}
	h := l.register(t)
	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-l.quit:
				return
			case <-t.ticker.C:
				l.Post(func() {
					if l.live(h) {
						fn()
					}
				})
			}
		}
	}()
	return h
}

func (l *Loop) forget(h Handle) *timer {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.timers[h]
	if !ok {
		return nil
	}
	delete(l.timers, h)
	return t
}

func (l *Loop) Cancel(h Handle) {
	t := l.forget(h)
	if t == nil {
		return
	}
	if t.t != nil {
		t.t.Stop()
	}
	if t.ticker != nil {
		t.ticker.Stop()
		close(t.done)
	}
}

func (l *Loop) CancelAll() {
	l.mu.Lock()
	handles := make([]Handle, 0, len(l.timers))
	for h := range l.timers {
		handles = append(handles, h)
	}
	l.mu.Unlock()
	for _, h := range handles {
		l.Cancel(h)
	}
}

// Pending reports how many timers and tickers are armed.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}
