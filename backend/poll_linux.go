// File: backend/poll_linux.go
// Package backend - epoll poll handle lifecycle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

//go:build linux

package backend

import "github.com/momentics/taskhub/api"

// pollHandle is one watch on one descriptor. Lifecycle: Start,
// optionally Stop, Close exactly once. Misuse panics: a leaked or
// double-closed handle is a resource-tracking bug, not a recoverable
// condition.
type pollHandle struct {
	b       *epollBackend
	fd      int
	events  api.IOEvent
	cb      api.PollCallback
	started bool
	refed   bool
	closed  bool
}

func (h *pollHandle) Start(events api.IOEvent, cb api.PollCallback) error {
	if h.closed {
		panic("taskhub/backend: poll handle used after Close")
	}
	if h.started {
		panic("taskhub/backend: poll handle started twice")
	}
	h.events = events
	h.cb = cb
	h.started = true

	w := h.b.watches[h.fd]
	if w == nil {
		w = &fdWatch{fd: h.fd}
	}
	w.handles = append(w.handles, h)
	if err := h.b.updateWatch(w); err != nil {
		h.detach(w)
		h.started = false
		return err
	}
	if h.refed {
		h.b.refs++
	}
	return nil
}

func (h *pollHandle) Stop() error {
	if !h.started {
		return nil
	}
	h.started = false
	if h.refed {
		h.b.refs--
	}
	w := h.b.watches[h.fd]
	if w == nil {
		return nil
	}
	err := h.b.updateWatch(w)
	h.detach(w)
	return err
}

func (h *pollHandle) Close() error {
	if h.closed {
		panic("taskhub/backend: poll handle closed twice")
	}
	err := h.Stop()
	h.closed = true
	h.cb = nil
	return err
}

func (h *pollHandle) SetRef(keepalive bool) {
	if h.refed == keepalive {
		return
	}
	h.refed = keepalive
	if h.started {
		if keepalive {
			h.b.refs++
		} else {
			h.b.refs--
		}
	}
}

// detach removes h from the descriptor's handle list.
func (h *pollHandle) detach(w *fdWatch) {
	for i, other := range w.handles {
		if other == h {
			w.handles = append(w.handles[:i], w.handles[i+1:]...)
			break
		}
	}
}
