package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/drivelinelabs/traction-simulator/core"
)

const tracerName = "github.com/drivelinelabs/traction-simulator"

// RunSpan wraps a run-level trace span and turns brake-command
// transitions into span events, so a trace of the run shows when the
// controller engaged and released each wheel.
type RunSpan struct {
	span    trace.Span
	engaged [core.NumWheels]bool
	ticks   uint64
}

// StartRunSpan opens the span covering one simulation run.
func StartRunSpan(ctx context.Context, runID string) (context.Context, *RunSpan) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "simulation.run",
		trace.WithAttributes(attribute.String("run_id", runID)),
	)
	return ctx, &RunSpan{span: span}
}

// OnSnapshot records engage/release transitions from one published
// snapshot. Called from the stepping goroutine only.
func (rs *RunSpan) OnSnapshot(s core.Snapshot) {
	if rs == nil || rs.span == nil {
		return
	}
	rs.ticks = s.Tick

	for i, w := range s.Wheels {
		engaged := w.BrakeForce > 0
		if engaged == rs.engaged[i] {
			continue
		}
		rs.engaged[i] = engaged

		name := "tc.release"
		if engaged {
			name = "tc.engage"
		}
		rs.span.AddEvent(name, trace.WithAttributes(
			attribute.String("wheel", strconv.Itoa(i)),
			attribute.Float64("brake_force", w.BrakeForce),
			attribute.Float64("wheel_speed", w.Speed),
			attribute.Float64("reference_speed", w.Reference),
			attribute.Int64("tick", int64(s.Tick)),
		))
	}
}

// End closes the run span with the final tick count and simulated time.
func (rs *RunSpan) End(simTime time.Duration) {
	if rs == nil || rs.span == nil {
		return
	}
	rs.span.SetAttributes(
		attribute.Int64("ticks", int64(rs.ticks)),
		attribute.String("sim_time", simTime.String()),
	)
	rs.span.End()
}
