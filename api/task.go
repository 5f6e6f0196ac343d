// File: api/task.go
// Package api defines the cooperative task resumption contract.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Task is the resumption capability of a suspended cooperative task.
// The hub never owns tasks; it only holds these capabilities as
// callback targets. Resuming a task that is not currently suspended is
// a no-op: when a readiness event and a timer race in the same loop
// pass, only the first resumption reaches the task.
type Task interface {
	// Resume resumes the task with a normal value.
	Resume(v any)

	// Throw resumes the task by delivering err at its suspension
	// point.
	Throw(err error)
}
