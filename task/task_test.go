// File: task/task_test.go
// Package task - handoff semantics tests.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package task

import (
	"errors"
	"testing"
)

func TestResumeDeliversValue(t *testing.T) {
	var got any
	var gotErr error
	tt := New(func() {
		got, gotErr = Suspend()
	})

	tt.Resume(nil) // first resumption starts the body
	if tt.Done() {
		t.Fatal("task finished before being resumed at its suspension point")
	}
	tt.Resume("hello")
	if !tt.Done() {
		t.Fatal("task did not finish after final resumption")
	}
	if got != "hello" {
		t.Errorf("Suspend returned %v, want hello", got)
	}
	if gotErr != nil {
		t.Errorf("Suspend returned unexpected error: %v", gotErr)
	}
}

func TestThrowDeliversError(t *testing.T) {
	boom := errors.New("boom")
	var gotErr error
	tt := New(func() {
		_, gotErr = Suspend()
	})

	tt.Resume(nil)
	tt.Throw(boom)
	if !tt.Done() {
		t.Fatal("task did not finish after Throw")
	}
	if !errors.Is(gotErr, boom) {
		t.Errorf("Suspend returned %v, want %v", gotErr, boom)
	}
}

func TestResumeFinishedTaskIsNoop(t *testing.T) {
	tt := New(func() {})
	tt.Resume(nil)
	if !tt.Done() {
		t.Fatal("task did not finish")
	}
	// Must not block or panic.
	tt.Resume("late")
	tt.Throw(errors.New("late"))
}

func TestResumeRunningTaskIsNoop(t *testing.T) {
	ran := false
	var tt *T
	tt = New(func() {
		// Resuming the running task from inside itself must be a
		// no-op, not a deadlock.
		tt.Resume("self")
		ran = true
	})
	tt.Resume(nil)
	if !ran {
		t.Fatal("task body did not complete")
	}
}

func TestThrowBeforeStartKillsTask(t *testing.T) {
	ran := false
	tt := New(func() { ran = true })
	tt.Throw(errors.New("cancelled before start"))
	if !tt.Done() {
		t.Fatal("task not marked done after pre-start Throw")
	}
	if ran {
		t.Fatal("task body ran despite pre-start Throw")
	}
	tt.Resume(nil) // dead task, must be a no-op
	if ran {
		t.Fatal("task body ran after being killed")
	}
}

func TestCurrentTracking(t *testing.T) {
	if Current() != nil {
		t.Fatal("Current() non-nil outside any task")
	}
	var insideCurrent *T
	var insideIs bool
	var tt *T
	tt = New(func() {
		insideCurrent = Current()
		insideIs = tt.IsCurrent()
	})
	tt.Resume(nil)
	if insideCurrent != tt {
		t.Errorf("Current() inside task = %p, want %p", insideCurrent, tt)
	}
	if !insideIs {
		t.Error("IsCurrent() false inside the task")
	}
	if Current() != nil {
		t.Fatal("Current() not restored to nil after task finished")
	}
}

func TestNestedResumeRestoresCurrent(t *testing.T) {
	var innerSawSelf, outerRestored bool
	inner := New(func() {
		innerSawSelf = Current() != nil && Current().IsCurrent()
	})
	var outer *T
	outer = New(func() {
		inner.Resume(nil)
		outerRestored = Current() == outer
	})
	outer.Resume(nil)
	if !innerSawSelf {
		t.Error("inner task did not observe itself as current")
	}
	if !outerRestored {
		t.Error("current not restored to outer task after nested resume")
	}
}

func TestSuspendResumeRoundTrips(t *testing.T) {
	var values []any
	tt := New(func() {
		for i := 0; i < 3; i++ {
			v, err := Suspend()
			if err != nil {
				return
			}
			values = append(values, v)
		}
	})
	tt.Resume(nil)
	tt.Resume(1)
	tt.Resume(2)
	tt.Resume(3)
	if !tt.Done() {
		t.Fatal("task did not finish after three round trips")
	}
	if len(values) != 3 || values[0] != 1 || values[1] != 2 || values[2] != 3 {
		t.Errorf("unexpected values: %v", values)
	}
}

func TestSuspendOutsideTaskPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Suspend outside a task did not panic")
		}
	}()
	_, _ = Suspend()
}
