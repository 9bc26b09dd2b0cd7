package core

import "time"

// Inputs is everything the outside world feeds the simulation on one
// tick: the throttle position, the road grip under each wheel, and the
// traction-control switch.
type Inputs struct {
	Throttle  float64
	Grips     [NumWheels]float64
	TCEnabled bool
}

// Snapshot is the immutable per-tick publication of the simulation
// state. The engine hands a fresh value to every listener; consumers
// never share mutable state with the stepping goroutine.
type Snapshot struct {
	// Tick is the 1-based index of the step that produced this snapshot.
	Tick uint64

	// SimTime is the simulation time elapsed since the run started.
	SimTime time.Duration

	Throttle  float64
	TCEnabled bool
	BodySpeed float64

	Wheels [NumWheels]WheelState
}

// Speeds extracts the wheel-speed vector, the shape the controller and
// the delay line work in.
func (s Snapshot) Speeds() [NumWheels]float64 {
	var out [NumWheels]float64
	for i, w := range s.Wheels {
		out[i] = w.Speed
	}
	return out
}
