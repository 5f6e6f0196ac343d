// File: hub/signal_test.go
// Package hub - interrupt funneling tests against the fake backend.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package hub

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/taskhub/api"
	"github.com/momentics/taskhub/fake"
)

func newSignalHub(t *testing.T) (*Hub, *fake.Backend) {
	t.Helper()
	b := fake.NewBackend()
	h, err := New(WithBackend(b)) // signal handling on by default
	require.NoError(t, err)
	return h, b
}

func TestInterruptFunnelsToRootContext(t *testing.T) {
	h, b := newSignalHub(t)

	var taskErr error
	tt := h.Spawn(func() {
		_, taskErr = Trampoline(h, 4, api.EventRead)
	})
	h.ScheduleTimer(5*time.Millisecond, func(...any) {
		b.RaiseSignal(os.Interrupt)
	})

	err := h.Run()
	require.ErrorIs(t, err, api.ErrInterrupted,
		"interrupt must surface at Run's caller, the root context")
	assert.False(t, h.running)
	assert.False(t, h.stopping)

	// The suspended task was not the delivery target: it is still
	// parked with its listener registered.
	require.False(t, tt.Done())
	require.Equal(t, 1, h.ListenerCount())
	require.NoError(t, taskErr)

	// Tear the task down explicitly; its cleanup still runs.
	tt.Throw(errors.New("shutting down"))
	require.True(t, tt.Done())
	assert.Equal(t, 0, h.ListenerCount())
}

func TestInterruptDeliveredExactlyOnce(t *testing.T) {
	h, b := newSignalHub(t)

	b.RaiseSignal(os.Interrupt)
	err := h.Run()
	require.ErrorIs(t, err, api.ErrInterrupted)

	// Delivery was disabled by the first interrupt: raising again is
	// inert and the loop runs out of work normally.
	b.RaiseSignal(os.Interrupt)
	require.NoError(t, h.Run())
}
