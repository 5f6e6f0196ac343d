// File: task/task.go
// Package task implements the cooperative task substrate consumed by the
// hub: goroutine-backed tasks with strict handoff semantics.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A task is a goroutine that runs only while it holds the single
// logical thread of control. Control moves between a task and its
// resumer through unbuffered channels: Resume/Throw hand control to the
// task and block until it suspends again or finishes; Suspend hands
// control back. At most one context (one task, or the reactor) executes
// at any instant, so hub state needs no locking.

package task

type status int

const (
	statusCreated status = iota
	statusRunning
	statusSuspended
	statusDone
)

// outcome is what a resumption delivers to the suspension point.
type outcome struct {
	value any
	err   error
}

// T is a cooperative task. The zero value is not usable; create tasks
// with New.
type T struct {
	fn     func()
	in     chan outcome  // resumer -> task
	out    chan struct{} // task -> resumer, on suspend or finish
	status status
}

// current is the task holding control, nil when the reactor (or any
// plain goroutine) does. Only ever mutated across a channel handoff, so
// the single-runnable-context discipline makes it safe without locks.
var current *T

// Current returns the running task, or nil from reactor context.
func Current() *T {
	return current
}

// New creates a parked task that will execute fn once resumed for the
// first time.
func New(fn func()) *T {
	return &T{
		fn:  fn,
		in:  make(chan outcome),
		out: make(chan struct{}),
	}
}

// Resume hands control to the task, delivering v at its suspension
// point, and blocks until the task suspends again or finishes. Resuming
// a task that is not suspended is a no-op: of two resumptions racing in
// the same loop pass only the first reaches the task.
func (t *T) Resume(v any) {
	t.transfer(outcome{value: v})
}

// Throw hands control to the task, delivering err at its suspension
// point. Throwing into a task that was never started kills it without
// running its function.
func (t *T) Throw(err error) {
	t.transfer(outcome{err: err})
}

// IsCurrent reports whether t holds control right now.
func (t *T) IsCurrent() bool {
	return current == t
}

// Done reports whether the task has finished.
func (t *T) Done() bool {
	return t.status == statusDone
}

func (t *T) transfer(o outcome) {
	switch t.status {
	case statusDone, statusRunning:
		// Not suspended; nothing to deliver to.
		return
	case statusCreated:
		if o.err != nil {
			t.status = statusDone
			return
		}
		t.status = statusRunning
		prev := current
		current = t
		go t.main()
		<-t.out
		current = prev
	case statusSuspended:
		t.status = statusRunning
		prev := current
		current = t
		t.in <- o
		<-t.out
		current = prev
	}
}

// main runs the task body on its own goroutine. A panic in fn unwinds
// the task goroutine and crashes the process; control is handed back to
// the resumer first so the crash is never masked by a deadlock.
func (t *T) main() {
	defer func() {
		t.status = statusDone
		t.out <- struct{}{}
	}()
	t.fn()
}

// Suspend parks the calling task and hands control back to whichever
// context resumed it last. It returns the value or error delivered by
// the next Resume or Throw. Panics when called outside a task.
func Suspend() (any, error) {
	t := current
	if t == nil {
		panic("task: Suspend called outside a task")
	}
	t.status = statusSuspended
	t.out <- struct{}{}
	o := <-t.in
	return o.value, o.err
}
