package timectrl

import (
	"context"
	"sync"
	"time"
)

// SimClock is an interface for reading simulation time, so components
// can depend on a clock abstraction rather than the concrete time
// controller.
type SimClock interface {
	// Now returns the current simulation time.
	Now() time.Time
	// Elapsed returns the simulation time advanced since the run began.
	Elapsed() time.Duration
}

// Mode describes how the TimeController advances simulation time.
type Mode int

const (
	// RealTime paces ticks against the wall clock.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still
	// stepping by Tick.
	Accelerated
)

// TimeController drives the fixed-tick simulation loop and notifies
// registered listeners once per tick. All listener work happens on the
// controller's goroutine: it is the single writer of simulation state.
type TimeController struct {
	mu    sync.RWMutex
	start time.Time
	tick  time.Duration
	mode  Mode

	current time.Time
	elapsed time.Duration

	listeners []func(now time.Time, elapsed time.Duration)
}

// NewTimeController constructs a controller.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		start:   start,
		tick:    tick,
		mode:    mode,
		current: start,
	}
}

// Now returns the current simulation time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// Elapsed returns the simulation time advanced so far. Implements SimClock.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.elapsed
}

// Tick returns the fixed step duration.
func (tc *TimeController) Tick() time.Duration { return tc.tick }

// AddListener registers a callback invoked on every tick with the new
// simulation time and total elapsed duration. Listeners must be added
// before Start.
func (tc *TimeController) AddListener(fn func(now time.Time, elapsed time.Duration)) {
	tc.listeners = append(tc.listeners, fn)
}

// Start runs the loop in a separate goroutine until the given sim-time
// duration elapses or ctx is cancelled, whichever comes first. A
// non-positive duration runs until cancellation. Cancellation stops
// scheduling further ticks; a tick in flight always completes, steps
// are atomic.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		var ticker *time.Ticker
		if tc.mode == RealTime {
			ticker = time.NewTicker(tc.tick)
			defer ticker.Stop()
		}

		elapsed := time.Duration(0)
		for {
			if duration > 0 && elapsed >= duration {
				return
			}

			if ticker != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			} else {
				select {
				case <-ctx.Done():
					return
				default:
				}
			}

			elapsed += tc.tick
			simTime := tc.start.Add(elapsed)

			tc.mu.Lock()
			tc.current = simTime
			tc.elapsed = elapsed
			tc.mu.Unlock()

			for _, fn := range tc.listeners {
				fn(simTime, elapsed)
			}
		}
	}()
	return done
}
