// File: hub/trampoline.go
// Package hub - the suspend/resume bridge between a waiting task and
// the reactor.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import (
	"time"

	"github.com/momentics/taskhub/api"
	"github.com/momentics/taskhub/task"
)

// waitConfig carries per-wait options.
type waitConfig struct {
	timeout    time.Duration
	hasTimeout bool
	timeoutErr error
}

// WaitOption customizes one Trampoline wait.
type WaitOption func(*waitConfig)

// WithTimeout bounds the wait; on expiry the wait fails with the
// timeout error (api.ErrTimeout unless overridden).
func WithTimeout(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// WithTimeoutError overrides the error delivered on timeout.
func WithTimeoutError(err error) WaitOption {
	return func(c *waitConfig) {
		c.timeoutErr = err
	}
}

// Trampoline suspends the calling task until fd becomes ready for the
// given direction, the optional timeout elapses, or an error is
// injected from outside. The listener and timer are torn down on every
// exit path, whichever way the resumption happened.
//
// Must be called from a task, never from the reactor context (the
// reactor cannot wait on itself), and with exactly one of EventRead or
// EventWrite. Violations are caller bugs and panic.
//
// When the timeout and the readiness event land in the same loop pass,
// whichever callback the backend dispatches first wins; the loser is a
// no-op and both cleanups still run. This nondeterminism is part of
// the contract.
func Trampoline(h *Hub, fd int, events api.IOEvent, opts ...WaitOption) (any, error) {
	cur := task.Current()
	if cur == nil {
		panic("taskhub: Trampoline called outside a task; do not block the reactor context")
	}
	if events != api.EventRead && events != api.EventWrite {
		panic("taskhub: Trampoline direction must be exactly one of read or write")
	}
	cfg := waitConfig{timeoutErr: api.ErrTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := &waiter{task: cur}

	if cfg.hasTimeout {
		timer := h.ScheduleTimer(cfg.timeout, func(args ...any) {
			w.throw(args[0].(error))
		}, cfg.timeoutErr)
		defer timer.Cancel()
	}

	l, err := h.AddListener(events, fd,
		func() { w.resume(nil) },
		func(err error) { w.throw(err) },
	)
	if err != nil {
		return nil, err
	}
	defer h.RemoveListener(l)

	return task.Suspend()
}

// waiter gates resumption of one suspended task: the first callback to
// fire wins, later ones are no-ops. This is what makes the
// timer-versus-readiness race safe.
type waiter struct {
	task api.Task
	done bool
}

func (w *waiter) resume(v any) {
	if w.done {
		return
	}
	w.done = true
	w.task.Resume(v)
}

func (w *waiter) throw(err error) {
	if w.done {
		return
	}
	w.done = true
	w.task.Throw(err)
}
