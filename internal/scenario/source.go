package scenario

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drivelinelabs/traction-simulator/core"
)

// Source supplies the simulation's external inputs. Sample is called at
// the start of every tick with the elapsed simulation time and must be
// a plain in-memory read: it never blocks, the stepping loop depends on
// that.
type Source interface {
	Sample(elapsed time.Duration) core.Inputs
}

// Static is a Source with fixed inputs for the whole run.
type Static struct {
	In core.Inputs
}

// Sample returns the fixed inputs, clamped.
func (s Static) Sample(time.Duration) core.Inputs { return clampInputs(s.In) }

// DefaultInputs is the parked car on dry asphalt: no throttle, full
// grip everywhere, traction control armed.
func DefaultInputs() core.Inputs {
	return core.Inputs{
		Throttle:  0,
		Grips:     [core.NumWheels]float64{1, 1, 1, 1},
		TCEnabled: true,
	}
}

func clampInputs(in core.Inputs) core.Inputs {
	in.Throttle = clamp01(in.Throttle)
	for i := range in.Grips {
		in.Grips[i] = clamp01(in.Grips[i])
	}
	return in
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Duration unmarshals from YAML either as a Go duration string
// ("250ms") or as a bare number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err == nil {
		parsed, perr := time.ParseDuration(raw)
		if perr != nil {
			return fmt.Errorf("parse duration %q: %w", raw, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := node.Decode(&seconds); err != nil {
		return fmt.Errorf("duration must be a string like \"250ms\" or seconds, got %q", node.Value)
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// Std converts to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }
