// File: api/errors_test.go
// Package api - error taxonomy tests.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"errors"
	"strings"
	"testing"
)

func TestWrapErrorPreservesSentinel(t *testing.T) {
	err := WrapError(ErrCodeTimeout, ErrTimeout, "wait timed out").
		WithContext("fd", 7)
	if !errors.Is(err, ErrTimeout) {
		t.Fatal("wrapped error lost its sentinel")
	}
	if err.Code != ErrCodeTimeout {
		t.Fatalf("code = %d, want %d", err.Code, ErrCodeTimeout)
	}
}

func TestErrorMessageIncludesContext(t *testing.T) {
	err := NewError(ErrCodeAlreadyExists, "listener already active").
		WithContext("fd", 5).
		WithContext("direction", "read")
	msg := err.Error()
	if !strings.Contains(msg, "listener already active") {
		t.Fatalf("message missing text: %q", msg)
	}
	if !strings.Contains(msg, "fd") {
		t.Fatalf("message missing context: %q", msg)
	}
}

func TestErrorWithoutContextIsPlain(t *testing.T) {
	err := NewError(ErrCodeInternal, "boom")
	err.Context = nil
	if err.Error() != "boom" {
		t.Fatalf("message = %q, want boom", err.Error())
	}
	err.WithContext("k", "v")
	if err.Context["k"] != "v" {
		t.Fatal("WithContext did not re-create the context map")
	}
}

func TestIOEventString(t *testing.T) {
	cases := map[IOEvent]string{
		EventRead:               "read",
		EventWrite:              "write",
		EventClosed:             "closed",
		EventRead | EventWrite:  "read|write",
		EventRead | EventClosed: "read|closed",
		0:                       "none",
	}
	for ev, want := range cases {
		if got := ev.String(); got != want {
			t.Errorf("IOEvent(%d).String() = %q, want %q", ev, got, want)
		}
	}
}
