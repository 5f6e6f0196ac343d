// File: hub/options.go
// Package hub defines functional options for hub construction.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import (
	"log"

	"github.com/momentics/taskhub/api"
)

// Option customizes hub initialization.
type Option func(*Hub)

// WithBackend supplies the event-loop backend instead of the platform
// default.
func WithBackend(b api.Backend) Option {
	return func(h *Hub) {
		h.backend = b
	}
}

// WithSignalHandling enables or disables interception of the process
// interrupt signal. Enabled by default.
func WithSignalHandling(enabled bool) Option {
	return func(h *Hub) {
		h.signalEnabled = enabled
	}
}

// WithLogger attaches a debug logger. No logging happens without one.
func WithLogger(l *log.Logger) Option {
	return func(h *Hub) {
		h.logger = l
	}
}
