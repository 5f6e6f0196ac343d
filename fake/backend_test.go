// File: fake/backend_test.go
// Package fake - virtual clock and dispatch determinism tests.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/momentics/taskhub/api"
)

func TestVirtualClockFastForwardsToTimers(t *testing.T) {
	b := NewBackend()
	start := b.Now()
	var order []string
	t1 := b.NewTimer()
	t2 := b.NewTimer()
	_ = t1.Start(time.Hour, func() { order = append(order, "hour") })
	_ = t2.Start(time.Minute, func() { order = append(order, "minute") })

	if err := b.Run(api.RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(order) != 2 || order[0] != "minute" || order[1] != "hour" {
		t.Fatalf("timers fired out of order: %v", order)
	}
	if b.Now().Sub(start) != time.Hour {
		t.Fatalf("clock advanced by %s, want 1h", b.Now().Sub(start))
	}
}

func TestReadinessNotifiesOncePerState(t *testing.T) {
	b := NewBackend()
	fires := 0
	p, err := b.NewPoll(3)
	if err != nil {
		t.Fatal(err)
	}
	_ = p.Start(api.EventRead, func(api.IOEvent, error) {
		fires++
		if fires == 1 {
			// Re-marking readiness re-arms notification for the
			// still-started watch.
			b.SetReady(3, api.EventRead)
			return
		}
		_ = p.Stop()
		_ = p.Close()
	})
	b.SetReady(3, api.EventRead)

	if err := b.Run(api.RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fires != 2 {
		t.Fatalf("watch notified %d times, want 2", fires)
	}
}

func TestHangupTakesClosePath(t *testing.T) {
	b := NewBackend()
	var gotErr error
	p, _ := b.NewPoll(3)
	_ = p.Start(api.EventRead, func(_ api.IOEvent, err error) {
		gotErr = err
		_ = p.Stop()
		_ = p.Close()
	})
	b.Hangup(3)

	if err := b.Run(api.RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !errors.Is(gotErr, api.ErrDescriptorClosed) {
		t.Fatalf("expected descriptor-closed error, got %v", gotErr)
	}
}

func TestIdleWatchesReportDeadlock(t *testing.T) {
	b := NewBackend()
	p, _ := b.NewPoll(3)
	_ = p.Start(api.EventRead, func(api.IOEvent, error) {})

	err := b.Run(api.RunDefault)
	if err == nil {
		t.Fatal("expected deadlock error for idle watches with no events")
	}
}

func TestSignalSubscriptionCancel(t *testing.T) {
	b := NewBackend()
	fires := 0
	cancel, err := b.Notify(os.Interrupt, func() { fires++ })
	if err != nil {
		t.Fatal(err)
	}

	b.RaiseSignal(os.Interrupt)
	if err := b.Run(api.RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fires != 1 {
		t.Fatalf("signal fired %d times, want 1", fires)
	}

	cancel()
	b.RaiseSignal(os.Interrupt)
	if err := b.Run(api.RunDefault); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fires != 1 {
		t.Fatalf("cancelled subscription fired, count %d", fires)
	}
}

func TestJournalRecordsHandleLifecycle(t *testing.T) {
	b := NewBackend()
	p, _ := b.NewPoll(5)
	_ = p.Start(api.EventRead, func(api.IOEvent, error) {})
	p.SetRef(false)
	_ = p.Stop()
	_ = p.Close()

	ops := b.Ops()
	want := []string{"poll[5].start(read)", "poll[5].ref=false", "poll[5].stop", "poll[5].close"}
	if len(ops) != len(want) {
		t.Fatalf("journal %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("journal %v, want %v", ops, want)
		}
	}
}
