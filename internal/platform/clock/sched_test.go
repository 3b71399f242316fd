package clock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestScheduleFires(t *testing.T) {
	s := NewScheduler(System{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	var fired atomic.Int32
	s.After(10*time.Millisecond, func() { fired.Add(1) })

	waitFor(t, func() bool { return fired.Load() == 1 }, "action to fire")
}

func TestCancelPreventsFiring(t *testing.T) {
	s := NewScheduler(System{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	var fired atomic.Int32
	h := s.After(150*time.Millisecond, func() { fired.Add(1) })
	if !h.Cancel() {
		t.Fatalf("first Cancel should report true")
	}
	if h.Cancel() {
		t.Fatalf("second Cancel should report false")
	}

	time.Sleep(300 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("cancelled action must not fire")
	}
}

func TestOrderingByDeadline(t *testing.T) {
	s := NewScheduler(System{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	s.After(60*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		close(done)
	})
	s.After(10*time.Millisecond, func() {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})

	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected deadline order [1 2], got %v", order)
	}
}

func TestManualClockWithKick(t *testing.T) {
	clk := NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	s := NewScheduler(clk)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	var fired atomic.Int32
	s.Schedule(clk.Now().Add(45*time.Second), func() { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("must not fire before the deadline")
	}

	clk.Advance(46 * time.Second)
	s.Kick()
	waitFor(t, func() bool { return fired.Load() == 1 }, "action after manual advance")
}

func TestRunStopsOnContext(t *testing.T) {
	s := NewScheduler(System{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop on context cancellation")
	}
}
