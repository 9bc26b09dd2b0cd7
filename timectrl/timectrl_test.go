package timectrl

import (
	"context"
	"testing"
	"time"
)

func TestAcceleratedRunCoversDuration(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	ticks := 0
	tc.AddListener(func(now time.Time, elapsed time.Duration) { ticks++ })

	done := tc.Start(context.Background(), 50*time.Millisecond)
	<-done

	if ticks != 10 {
		t.Fatalf("ticks = %d, want 10", ticks)
	}
	if got, want := tc.Now(), start.Add(50*time.Millisecond); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
	if got := tc.Elapsed(); got != 50*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 50ms", got)
	}
}

func TestListenersSeeMonotonicElapsed(t *testing.T) {
	start := time.Now().UTC()
	tc := NewTimeController(start, time.Millisecond, Accelerated)

	var seen []time.Duration
	tc.AddListener(func(now time.Time, elapsed time.Duration) {
		seen = append(seen, elapsed)
	})

	<-tc.Start(context.Background(), 5*time.Millisecond)

	if len(seen) != 5 {
		t.Fatalf("listener called %d times, want 5", len(seen))
	}
	for i, e := range seen {
		if want := time.Duration(i+1) * time.Millisecond; e != want {
			t.Fatalf("tick %d elapsed = %v, want %v", i, e, want)
		}
	}
}

func TestContextCancellationStopsTicks(t *testing.T) {
	tc := NewTimeController(time.Now().UTC(), time.Millisecond, RealTime)

	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	tc.AddListener(func(time.Time, time.Duration) {
		ticks++
		if ticks == 3 {
			cancel()
		}
	})

	done := tc.Start(ctx, 0)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("controller did not stop after cancellation")
	}

	if ticks < 3 || ticks > 4 {
		t.Fatalf("ticks after cancellation = %d, want 3 (or 4 if one was in flight)", ticks)
	}
}

func TestRealTimeModePacesTicks(t *testing.T) {
	tc := NewTimeController(time.Now().UTC(), 10*time.Millisecond, RealTime)

	started := time.Now()
	<-tc.Start(context.Background(), 50*time.Millisecond)
	wall := time.Since(started)

	// Five real-time ticks of 10ms cannot complete instantly.
	if wall < 40*time.Millisecond {
		t.Fatalf("real-time run of 50ms sim finished in %v wall time", wall)
	}
}
