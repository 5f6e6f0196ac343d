// File: fake/handles.go
// Package fake - journaled poll and timer handles.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"sort"
	"time"

	"github.com/momentics/taskhub/api"
)

// Poll is a fake watch handle. Lifecycle misuse panics, mirroring the
// native backend.
type Poll struct {
	b        *Backend
	fd       int
	events   api.IOEvent
	cb       api.PollCallback
	started  bool
	refed    bool
	closed   bool
	notified bool
}

func (p *Poll) Start(events api.IOEvent, cb api.PollCallback) error {
	if p.closed {
		panic("taskhub/fake: poll handle used after Close")
	}
	if p.started {
		panic("taskhub/fake: poll handle started twice")
	}
	p.events = events
	p.cb = cb
	p.started = true
	p.notified = false
	p.b.polls = append(p.b.polls, p)
	if p.refed {
		p.b.refs++
	}
	p.b.record("poll[%d].start(%s)", p.fd, events)
	return nil
}

func (p *Poll) Stop() error {
	if !p.started {
		return nil
	}
	p.started = false
	if p.refed {
		p.b.refs--
	}
	for i, other := range p.b.polls {
		if other == p {
			p.b.polls = append(p.b.polls[:i], p.b.polls[i+1:]...)
			break
		}
	}
	p.b.record("poll[%d].stop", p.fd)
	return nil
}

func (p *Poll) Close() error {
	if p.closed {
		panic("taskhub/fake: poll handle closed twice")
	}
	err := p.Stop()
	p.closed = true
	p.cb = nil
	p.b.record("poll[%d].close", p.fd)
	return err
}

func (p *Poll) SetRef(keepalive bool) {
	if p.refed == keepalive {
		return
	}
	p.refed = keepalive
	if p.started {
		if keepalive {
			p.b.refs++
		} else {
			p.b.refs--
		}
	}
	p.b.record("poll[%d].ref=%v", p.fd, keepalive)
}

// Timer is a fake one-shot timer against the virtual clock.
type Timer struct {
	b        *Backend
	cb       func()
	deadline time.Time
	seq      uint64
	armed    bool
	closed   bool
}

func (t *Timer) Start(delay time.Duration, cb func()) error {
	if t.closed {
		panic("taskhub/fake: timer handle used after Close")
	}
	if t.armed {
		_ = t.Stop()
	}
	t.cb = cb
	t.deadline = t.b.now.Add(delay)
	t.b.seq++
	t.seq = t.b.seq
	t.armed = true
	t.b.refs++
	t.b.timers = append(t.b.timers, t)
	sort.SliceStable(t.b.timers, func(i, j int) bool {
		a, b := t.b.timers[i], t.b.timers[j]
		if a.deadline.Equal(b.deadline) {
			return a.seq < b.seq
		}
		return a.deadline.Before(b.deadline)
	})
	t.b.record("timer.start(%s)", delay)
	return nil
}

func (t *Timer) Stop() error {
	if !t.armed {
		return nil
	}
	t.armed = false
	t.b.refs--
	for i, other := range t.b.timers {
		if other == t {
			t.b.timers = append(t.b.timers[:i], t.b.timers[i+1:]...)
			break
		}
	}
	t.b.record("timer.stop")
	return nil
}

func (t *Timer) Close() error {
	if t.closed {
		panic("taskhub/fake: timer handle closed twice")
	}
	err := t.Stop()
	t.closed = true
	t.cb = nil
	t.b.record("timer.close")
	return err
}
