// File: hub/listener.go
// Package hub - active readiness registrations.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import "github.com/momentics/taskhub/api"

// Listener records one active readiness-watch registration. It is
// owned exclusively by the hub's registry from AddListener until
// RemoveListener, after which it is dead and must not be used.
type Listener struct {
	// Events is the watched direction, EventRead or EventWrite.
	Events api.IOEvent

	// FD is the watched file descriptor.
	FD int

	handle api.PollHandle
}

// retire tears down the backend handle in the mandatory order: drop
// loop keepalive, stop the watch, close the handle, nil it out so a
// second retire is detectable. The ordering is load-bearing for the
// backend; do not reorder.
func (l *Listener) retire() {
	if l.handle == nil {
		panic("taskhub: listener retired twice")
	}
	ph := l.handle
	l.handle = nil
	ph.SetRef(false)
	_ = ph.Stop()
	_ = ph.Close()
}
