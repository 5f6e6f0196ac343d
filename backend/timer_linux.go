// File: backend/timer_linux.go
// Package backend - heap-backed one-shot timers driving the poll
// timeout.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package backend

import (
	"container/heap"
	"time"
)

// timerHandle is a one-shot timer entry in the backend heap.
type timerHandle struct {
	b        *epollBackend
	cb       func()
	deadline time.Time
	seq      uint64
	index    int // heap position, -1 when not queued
	armed    bool
	closed   bool
}

func (t *timerHandle) Start(delay time.Duration, cb func()) error {
	if t.closed {
		panic("taskhub/backend: timer handle used after Close")
	}
	if t.armed {
		_ = t.Stop()
	}
	t.cb = cb
	t.deadline = time.Now().Add(delay)
	t.b.seq++
	t.seq = t.b.seq
	t.armed = true
	heap.Push(&t.b.timers, t)
	t.b.refs++
	return nil
}

func (t *timerHandle) Stop() error {
	if !t.armed {
		return nil
	}
	heap.Remove(&t.b.timers, t.index)
	t.armed = false
	t.b.refs--
	return nil
}

func (t *timerHandle) Close() error {
	if t.closed {
		panic("taskhub/backend: timer handle closed twice")
	}
	err := t.Stop()
	t.closed = true
	t.cb = nil
	return err
}

// fireDueTimers pops and runs every timer whose deadline has passed.
// Entries are disarmed before their callback runs, so a callback that
// stops or closes other timers (or this one) observes consistent state.
func (b *epollBackend) fireDueTimers() {
	now := time.Now()
	for b.timers.Len() > 0 && !b.timers[0].deadline.After(now) {
		t := heap.Pop(&b.timers).(*timerHandle)
		t.armed = false
		b.refs--
		cb := t.cb
		if cb != nil {
			cb()
		}
	}
}

// timerHeap orders timers by deadline, then by arming sequence so
// same-deadline timers fire in submission order.
type timerHeap []*timerHandle

var _ heap.Interface = (*timerHeap)(nil)

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*timerHandle)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
