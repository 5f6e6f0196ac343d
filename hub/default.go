// File: hub/default.go
// Package hub - process-wide default hub.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import "sync"

var (
	defaultOnce sync.Once
	defaultHub  *Hub
)

// Default returns the process-wide hub, lazily constructing it with the
// platform backend on first use. This accessor is the sole implicit
// construction path; the instance lives until process exit.
func Default() *Hub {
	defaultOnce.Do(func() {
		h, err := New()
		if err != nil {
			panic("taskhub: default hub initialization failed: " + err.Error())
		}
		defaultHub = h
	})
	return defaultHub
}
