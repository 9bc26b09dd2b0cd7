package core

import "time"

// SimulationEngine owns the vehicle model and the traction controller
// and runs the closed loop between them: each tick the controller sees
// the tachometer readings from before the current integration, so the
// loop carries the one-step control delay typical of a discretized
// feedback system. An optional measurement delay stretches that further
// to model tachometer propagation.
type SimulationEngine struct {
	cfg Config

	Vehicle    *VehicleModel
	Controller *TractionController

	// tach is a ring of past post-step speed vectors. Its oldest entry
	// is what the controller reads; its length is 1 + the configured
	// measurement delay in whole steps.
	tach    [][NumWheels]float64
	tachIdx int

	tick    uint64
	simTime time.Duration

	tickListeners []func(Snapshot)
}

// NewSimulationEngine validates the config and assembles the loop.
func NewSimulationEngine(cfg Config) (*SimulationEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	se := &SimulationEngine{
		cfg:        cfg,
		Vehicle:    NewVehicleModel(cfg),
		Controller: NewTractionController(cfg),
	}
	se.resetTach()
	return se, nil
}

// Config returns the constants this engine was built with.
func (se *SimulationEngine) Config() Config { return se.cfg }

// RegisterTickListener adds a callback invoked with every published
// snapshot, in registration order, on the stepping goroutine.
func (se *SimulationEngine) RegisterTickListener(fn func(Snapshot)) {
	se.tickListeners = append(se.tickListeners, fn)
}

// Reset restores the zero state: vehicle at rest, tachometer history
// cleared, tick counter back to the start. Listeners stay registered.
func (se *SimulationEngine) Reset() {
	se.Vehicle.Reset()
	se.resetTach()
	se.tick = 0
	se.simTime = 0
}

func (se *SimulationEngine) resetTach() {
	steps := int(se.cfg.MeasurementDelay / se.cfg.Step)
	se.tach = make([][NumWheels]float64, steps+1)
	se.tachIdx = 0
}

// Tick advances the simulation by one fixed step: measure, control,
// integrate, publish.
func (se *SimulationEngine) Tick(in Inputs) Snapshot {
	// The oldest ring entry is the tachometer reading for this tick.
	measured := se.tach[se.tachIdx]

	decision := se.Controller.ComputeBrakes(measured, in.TCEnabled)

	result := se.Vehicle.Step(StepInput{
		Throttle:    in.Throttle,
		Grips:       in.Grips,
		BrakeForces: decision.Forces,
	})

	// Overwrite the slot just consumed with the fresh speeds; after a
	// full revolution of the ring they become the measured values.
	var speeds [NumWheels]float64
	for i, w := range result.Wheels {
		speeds[i] = w.Speed
	}
	se.tach[se.tachIdx] = speeds
	se.tachIdx = (se.tachIdx + 1) % len(se.tach)

	se.tick++
	se.simTime += se.cfg.Step

	snap := Snapshot{
		Tick:      se.tick,
		SimTime:   se.simTime,
		Throttle:  clamp01(in.Throttle),
		TCEnabled: in.TCEnabled,
		BodySpeed: result.BodySpeed,
		Wheels:    result.Wheels,
	}
	for i := range snap.Wheels {
		snap.Wheels[i].Reference = decision.References[i]
		snap.Wheels[i].MeasuredSpeed = measured[i]
	}

	for _, fn := range se.tickListeners {
		fn(snap)
	}
	return snap
}
