// File: api/backend.go
// Package api defines the pluggable event-loop backend contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"os"
	"time"
)

// RunMode selects how Backend.Run processes the loop.
type RunMode int

const (
	// RunDefault runs the loop until Stop is called or no referenced
	// handle remains alive.
	RunDefault RunMode = iota

	// RunOnce performs a single blocking poll pass and returns.
	RunOnce

	// RunNoWait performs a single non-blocking poll pass and returns.
	RunNoWait
)

// PollCallback is the fixed callback shape for descriptor readiness.
// err is non-nil when the descriptor was detected closed or invalid, in
// which case events carries EventClosed.
type PollCallback func(events IOEvent, err error)

// PollHandle is a backend watch on a single file descriptor. Handles
// follow a strict lifecycle: Start, optionally Stop, then Close exactly
// once. Closing a handle twice is a programming error and panics.
type PollHandle interface {
	// Start begins delivering readiness callbacks for the given mask.
	Start(events IOEvent, cb PollCallback) error

	// Stop ceases event delivery. Safe to call on a stopped handle.
	Stop() error

	// Close releases the backend resource. The handle must not be used
	// afterwards.
	Close() error

	// SetRef toggles whether this handle keeps the loop alive.
	SetRef(keepalive bool)
}

// TimerHandle is a backend one-shot timer resource.
type TimerHandle interface {
	// Start arms the timer to fire cb once after delay on the loop
	// context.
	Start(delay time.Duration, cb func()) error

	// Stop disarms the timer if it has not fired. Safe on a disarmed
	// or fired timer.
	Stop() error

	// Close releases the backend resource exactly once.
	Close() error
}

// Backend is the pluggable event-loop provider driving a Hub. All
// methods except Wake, Stop and the Notify cancel func must be called
// from the loop context (or before Run starts); Wake and Stop are safe
// from any goroutine.
type Backend interface {
	// NewPoll creates an inactive watch handle for fd.
	NewPoll(fd int) (PollHandle, error)

	// NewTimer creates an inactive one-shot timer handle.
	NewTimer() TimerHandle

	// Run drives the loop in the given mode, dispatching callbacks on
	// the calling goroutine. Blocks until Stop or, in RunDefault mode,
	// until no referenced handle remains.
	Run(mode RunMode) error

	// Stop requests loop termination. Idempotent; callable from a
	// dispatched callback or from another goroutine.
	Stop()

	// Wake schedules fn to run on the loop context as soon as
	// possible, waking the loop if it is blocked polling.
	Wake(fn func())

	// Notify arranges for fn to run on the loop context each time sig
	// is delivered to the process. The returned cancel func disables
	// further delivery.
	Notify(sig os.Signal, fn func()) (cancel func(), err error)

	// Close releases all loop resources. The backend must not be
	// running.
	Close() error
}
