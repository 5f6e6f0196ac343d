// File: fake/backend.go
// Package fake provides a deterministic in-memory api.Backend for
// tests: virtual clock, manual readiness injection, signal injection,
// and an operation journal for asserting handle lifecycle order.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/taskhub/api"
)

// Backend is a manual-dispatch event loop. Readiness is level
// triggered: SetReady marks a descriptor ready and every watch started
// on it is notified once per readiness state. Timers run against a
// virtual clock that fast-forwards to the next deadline whenever the
// loop would otherwise block.
type Backend struct {
	now time.Time
	seq uint64

	polls  []*Poll // started watches, in Start order
	timers []*Timer

	ready   map[int]api.IOEvent
	hangups map[int]error

	signals map[os.Signal][]*signalSub

	wakeMu sync.Mutex
	wakes  []func()

	refs    int
	running bool
	stopped atomic.Bool
	closed  bool

	ops []string
}

// NewBackend constructs a fake backend with the virtual clock at an
// arbitrary fixed origin.
func NewBackend() *Backend {
	return &Backend{
		now:     time.Unix(1700000000, 0),
		ready:   make(map[int]api.IOEvent),
		hangups: make(map[int]error),
		signals: make(map[os.Signal][]*signalSub),
	}
}

// Now returns the virtual clock reading.
func (b *Backend) Now() time.Time { return b.now }

// Advance moves the virtual clock forward.
func (b *Backend) Advance(d time.Duration) { b.now = b.now.Add(d) }

// SetReady marks fd ready for the given directions. Watches started on
// fd (now or later) are each notified once for this state.
func (b *Backend) SetReady(fd int, events api.IOEvent) {
	b.ready[fd] = events
	for _, p := range b.polls {
		if p.fd == fd {
			p.notified = false
		}
	}
}

// ClearReady removes fd's readiness state.
func (b *Backend) ClearReady(fd int) { delete(b.ready, fd) }

// Hangup marks fd closed; its watches take the close-callback path.
func (b *Backend) Hangup(fd int) {
	b.hangups[fd] = api.WrapError(api.ErrCodeClosed, api.ErrDescriptorClosed,
		"descriptor closed while watched").WithContext("fd", fd)
	for _, p := range b.polls {
		if p.fd == fd {
			p.notified = false
		}
	}
}

// RaiseSignal injects a process signal: every active subscription for
// sig runs on the next loop pass.
func (b *Backend) RaiseSignal(sig os.Signal) {
	for _, sub := range b.signals[sig] {
		if sub.active {
			fn := sub.fn
			b.Wake(fn)
		}
	}
}

// Ops returns the journal of handle lifecycle operations.
func (b *Backend) Ops() []string { return append([]string(nil), b.ops...) }

// ResetOps clears the journal.
func (b *Backend) ResetOps() { b.ops = nil }

func (b *Backend) record(format string, args ...any) {
	b.ops = append(b.ops, fmt.Sprintf(format, args...))
}

func (b *Backend) NewPoll(fd int) (api.PollHandle, error) {
	if b.closed {
		return nil, api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "backend is closed").
			WithContext("fd", fd)
	}
	return &Poll{b: b, fd: fd, refed: true}, nil
}

func (b *Backend) NewTimer() api.TimerHandle {
	return &Timer{b: b}
}

func (b *Backend) Run(mode api.RunMode) error {
	if b.closed {
		return api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "backend is closed")
	}
	if b.running {
		return api.WrapError(api.ErrCodeAlreadyRunning, api.ErrLoopAlreadyRunning,
			"backend loop is already running")
	}
	b.running = true
	b.stopped.Store(false)
	defer func() { b.running = false }()

	for {
		if b.stopped.Load() {
			return nil
		}
		if !b.step() {
			if next := b.nextDeadline(); next != nil {
				// Nothing runnable: fast-forward the clock.
				b.now = *next
				continue
			}
			if b.refs == 0 {
				return nil
			}
			return api.NewError(api.ErrCodeInternal,
				"fake backend: watches active but no pending events")
		}
		if mode != api.RunDefault {
			return nil
		}
	}
}

// step performs one unit of loop work. Order within a pass: queued
// wakes first, then descriptor notifications, then due timers.
func (b *Backend) step() bool {
	if fn := b.popWake(); fn != nil {
		fn()
		return true
	}
	for _, p := range b.polls {
		if !p.started || p.notified {
			continue
		}
		if err, ok := b.hangups[p.fd]; ok {
			p.notified = true
			p.cb(api.EventClosed, err)
			return true
		}
		if ev := b.ready[p.fd] & p.events; ev != 0 {
			p.notified = true
			p.cb(ev, nil)
			return true
		}
	}
	if len(b.timers) > 0 && !b.timers[0].deadline.After(b.now) {
		t := b.timers[0]
		b.timers = b.timers[1:]
		t.armed = false
		b.refs--
		if t.cb != nil {
			t.cb()
		}
		return true
	}
	return false
}

func (b *Backend) nextDeadline() *time.Time {
	if len(b.timers) == 0 {
		return nil
	}
	d := b.timers[0].deadline
	return &d
}

func (b *Backend) Stop() {
	b.stopped.Store(true)
}

func (b *Backend) Wake(fn func()) {
	b.wakeMu.Lock()
	b.wakes = append(b.wakes, fn)
	b.wakeMu.Unlock()
}

func (b *Backend) popWake() func() {
	b.wakeMu.Lock()
	defer b.wakeMu.Unlock()
	if len(b.wakes) == 0 {
		return nil
	}
	fn := b.wakes[0]
	b.wakes = b.wakes[1:]
	return fn
}

type signalSub struct {
	fn     func()
	active bool
}

func (b *Backend) Notify(sig os.Signal, fn func()) (func(), error) {
	sub := &signalSub{fn: fn, active: true}
	b.signals[sig] = append(b.signals[sig], sub)
	return func() { sub.active = false }, nil
}

func (b *Backend) Close() error {
	if b.closed {
		return api.WrapError(api.ErrCodeClosed, api.ErrBackendClosed, "backend closed twice")
	}
	if b.running {
		return api.WrapError(api.ErrCodeAlreadyRunning, api.ErrLoopAlreadyRunning,
			"cannot close a running backend")
	}
	b.closed = true
	return nil
}
