package client

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPollerTicksUntilStopped(t *testing.T) {
	var ticks atomic.Int64
	var p Poller
	p.Start(time.Millisecond, func(ctx context.Context) bool {
		ticks.Add(1)
		return true
	})

	waitFor(t, time.Second, func() bool { return ticks.Load() >= 3 })
	p.Stop()
	p.Wait()

	settled := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	if got := ticks.Load(); got != settled {
		t.Fatalf("loop kept ticking after stop: %d then %d", settled, got)
	}
}

func TestPollerTickReturningFalseStopsLoop(t *testing.T) {
	var ticks atomic.Int64
	var p Poller
	p.Start(time.Millisecond, func(ctx context.Context) bool {
		return ticks.Add(1) < 2
	})
	p.Wait()
	if got := ticks.Load(); got != 2 {
		t.Fatalf("expected exactly 2 ticks, got %d", got)
	}
}

func TestPollerStartReplacesPreviousLoop(t *testing.T) {
	var first, second atomic.Int64
	var p Poller

	p.Start(time.Millisecond, func(ctx context.Context) bool {
		first.Add(1)
		return true
	})
	waitFor(t, time.Second, func() bool { return first.Load() >= 1 })

	// Start waits for the old loop to fully exit before the new one runs.
	p.Start(time.Millisecond, func(ctx context.Context) bool {
		second.Add(1)
		return true
	})
	settled := first.Load()

	waitFor(t, time.Second, func() bool { return second.Load() >= 3 })
	if got := first.Load(); got != settled {
		t.Fatalf("replaced loop kept ticking: %d then %d", settled, got)
	}
	p.Stop()
	p.Wait()
}

func TestPollerStopIsIdempotent(t *testing.T) {
	var p Poller
	// Stopping a never-started poller is fine.
	p.Stop()
	p.Stop()
	p.Wait()

	p.Start(time.Millisecond, func(ctx context.Context) bool { return true })
	p.Stop()
	p.Stop()
	p.Wait()
}
