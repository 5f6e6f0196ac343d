// File: hub/timer.go
// Package hub - cancellable one-shot timers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import "github.com/momentics/taskhub/api"

// Timer is a cancellable handle for a one-shot deferred callback. It
// fires at most once and self-invalidates after firing.
type Timer struct {
	handle api.TimerHandle
}

// Cancel stops the timer if it has not fired. Cancelling an
// already-cancelled or already-fired timer is a safe no-op.
func (t *Timer) Cancel() {
	t.close()
}

func (t *Timer) close() {
	if t.handle == nil {
		return
	}
	th := t.handle
	t.handle = nil
	_ = th.Stop()
	_ = th.Close()
}
