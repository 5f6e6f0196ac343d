// File: api/events.go
// Package api defines readiness direction masks.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// IOEvent is a bitmask of descriptor readiness conditions.
type IOEvent uint32

const (
	// EventRead indicates the descriptor is readable.
	EventRead IOEvent = 1 << iota

	// EventWrite indicates the descriptor is writable.
	EventWrite

	// EventClosed indicates the descriptor was closed or entered an
	// error state while being watched.
	EventClosed
)

// String returns a human-readable form of the mask.
func (ev IOEvent) String() string {
	switch ev {
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	case EventClosed:
		return "closed"
	}
	s := ""
	if ev&EventRead != 0 {
		s += "read|"
	}
	if ev&EventWrite != 0 {
		s += "write|"
	}
	if ev&EventClosed != 0 {
		s += "closed|"
	}
	if s == "" {
		return "none"
	}
	return s[:len(s)-1]
}
