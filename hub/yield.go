// File: hub/yield.go
// Package hub - cooperative yield.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import "github.com/momentics/taskhub/task"

// Yield suspends the calling task and schedules it to resume at the
// start of a later loop pass, after previously scheduled immediates and
// after I/O callbacks already queued in the current pass. Tasks
// yielding concurrently resume in FIFO order. No value is exchanged.
func Yield(h *Hub) {
	cur := task.Current()
	if cur == nil {
		panic("taskhub: Yield called outside a task")
	}
	h.ScheduleImmediate(func() { cur.Resume(nil) })
	_, _ = task.Suspend()
}
