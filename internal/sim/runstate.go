package sim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/drivelinelabs/traction-simulator/core"
	"github.com/drivelinelabs/traction-simulator/internal/logging"
)

// DefaultWindow is how many snapshots the history ring retains: ten
// seconds of run at the default 10ms step, matching the plotting window
// consumers render.
const DefaultWindow = 1000

// MetricsRecorder receives every published snapshot. The run state hub
// drives it so the stepping loop stays free of observability concerns.
type MetricsRecorder interface {
	RecordSnapshot(core.Snapshot)
}

// Option configures a RunState.
type Option func(*RunState)

// WithMetricsRecorder attaches an optional metrics sink invoked on
// every Publish.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(rs *RunState) { rs.recorder = rec }
}

// WithWindow overrides the history ring capacity. Non-positive values
// keep the default.
func WithWindow(n int) Option {
	return func(rs *RunState) {
		if n > 0 {
			rs.window = n
		}
	}
}

// RunState is the single-writer/multi-reader handoff between the
// simulation loop and its consumers. The loop publishes one immutable
// snapshot per tick; readers grab the latest pointer without ever
// blocking the writer, and the bounded ring serves window queries.
type RunState struct {
	log logging.Logger

	latest atomic.Pointer[core.Snapshot]

	mu     sync.Mutex
	ring   []core.Snapshot
	head   int
	filled int
	window int

	recorder MetricsRecorder
}

// NewRunState builds a hub with the default ten-second window.
func NewRunState(log logging.Logger, opts ...Option) *RunState {
	if log == nil {
		log = logging.Noop()
	}
	rs := &RunState{
		log:    log,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(rs)
	}
	rs.ring = make([]core.Snapshot, rs.window)
	return rs
}

// Publish stores s as the latest snapshot and appends it to the history
// ring, evicting the oldest entry once the window is full. Called from
// the stepping goroutine only.
func (rs *RunState) Publish(s core.Snapshot) {
	copied := s
	rs.latest.Store(&copied)

	rs.mu.Lock()
	rs.ring[rs.head] = s
	rs.head = (rs.head + 1) % rs.window
	if rs.filled < rs.window {
		rs.filled++
	}
	rs.mu.Unlock()

	if rs.recorder != nil {
		rs.recorder.RecordSnapshot(s)
	}
	rs.log.Debug(context.Background(), "snapshot published",
		logging.Any("tick", s.Tick),
		logging.Float64("body_speed", s.BodySpeed),
	)
}

// Latest returns the most recently published snapshot, or false when
// nothing has been published yet.
func (rs *RunState) Latest() (core.Snapshot, bool) {
	if p := rs.latest.Load(); p != nil {
		return *p, true
	}
	return core.Snapshot{}, false
}

// Window returns a copy of the retained history, oldest first.
func (rs *RunState) Window() []core.Snapshot {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	out := make([]core.Snapshot, rs.filled)
	start := rs.head - rs.filled
	if start < 0 {
		start += rs.window
	}
	for i := 0; i < rs.filled; i++ {
		out[i] = rs.ring[(start+i)%rs.window]
	}
	return out
}

// Len reports how many snapshots the ring currently holds.
func (rs *RunState) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.filled
}
