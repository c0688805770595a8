package invalidation

import (
	"context"
	"testing"
	"time"
)

func TestScheduler_InvalidatesOnInterval(t *testing.T) {
	m := testManager()
	prime(m, "/dashboard/stats", "/deliveries", "/clients")

	s := NewScheduler(m)
	s.SetIntervals(10*time.Millisecond, 10*time.Millisecond)
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for present(m, "/dashboard/stats") || present(m, "/deliveries") {
		select {
		case <-deadline:
			t.Fatal("timers did not invalidate dashboard/deliveries entries in time")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if !present(m, "/clients") {
		t.Error("timers must only touch dashboard and delivery entries")
	}
}

func TestScheduler_StopHaltsTimers(t *testing.T) {
	m := testManager()

	s := NewScheduler(m)
	s.SetIntervals(5*time.Millisecond, 5*time.Millisecond)
	s.Start(context.Background())
	s.Stop()

	prime(m, "/dashboard/stats")
	time.Sleep(30 * time.Millisecond)

	if !present(m, "/dashboard/stats") {
		t.Error("a stopped scheduler must not keep invalidating")
	}

	// Stop is idempotent.
	s.Stop()
}

func TestScheduler_ContextCancellation(t *testing.T) {
	m := testManager()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(m)
	s.SetIntervals(5*time.Millisecond, 5*time.Millisecond)
	s.Start(ctx)
	cancel()

	// Stop after context cancellation must not hang.
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop hung after context cancellation")
	}
}

func TestScheduler_StartTwice(t *testing.T) {
	m := testManager()
	s := NewScheduler(m)
	s.SetIntervals(time.Hour, time.Hour)
	s.Start(context.Background())
	s.Start(context.Background()) // no-op
	s.Stop()
}
