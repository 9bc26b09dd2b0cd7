package core

import "math"

// WheelState is the per-wheel slice of the simulation state, indexed by
// wheel position 0-3.
type WheelState struct {
	// Speed is the wheel's surrogate angular velocity in rad/s. Never
	// negative; braking clamps at zero rather than reversing rotation.
	Speed float64

	// Acceleration is the net commanded rate of change this step, before
	// the speed clamp, in rad/s². When the regain-traction snap fires it
	// is the effective rate over the step instead, so it reflects the
	// jump in the speed series.
	Acceleration float64

	// Grip is the externally supplied road grip in [0,1], echoed so
	// consumers see exactly what the model used.
	Grip float64

	// BrakeForce is the controller's brake command in [0,1], a fraction
	// of the max brake torque.
	BrakeForce float64

	// Reference is the controller's target for this wheel: the mean of
	// the other wheels' measured speeds.
	Reference float64

	// MeasuredSpeed is the (possibly delayed) tachometer reading the
	// controller consumed this step.
	MeasuredSpeed float64
}

// StepInput carries one tick's worth of external input into the vehicle
// model. All values are clamped into their valid domains; out-of-band
// input from a misbehaving source degrades gracefully instead of
// destabilising the run.
type StepInput struct {
	Throttle    float64
	Grips       [NumWheels]float64
	BrakeForces [NumWheels]float64

	// DT is the step duration in seconds. Zero or negative falls back to
	// the configured step.
	DT float64
}

// StepResult is the state published after one integration step.
type StepResult struct {
	Wheels    [NumWheels]WheelState
	BodySpeed float64
}

// BodyLaw aggregates the post-step wheel states into a new chassis
// speed. Implementations must never return a negative speed.
type BodyLaw func(prev float64, grips, speeds [NumWheels]float64, dt float64) float64

// GripWeightedBodyLaw low-pass integrates body speed toward the average
// grip-weighted wheel speed: a wheel only pushes the chassis to the
// extent it grips the road.
func GripWeightedBodyLaw(response float64) BodyLaw {
	return func(prev float64, grips, speeds [NumWheels]float64, dt float64) float64 {
		var target float64
		for i := 0; i < NumWheels; i++ {
			target += grips[i] * speeds[i]
		}
		target /= NumWheels

		alpha := response * dt
		if alpha > 1 {
			alpha = 1
		}
		next := prev + (target-prev)*alpha
		if next < 0 {
			next = 0
		}
		return next
	}
}

// VehicleModel integrates throttle-driven torque and grip-limited
// traction into wheel speeds and body speed, one fixed step at a time.
// It owns the four WheelState records exclusively; there is exactly one
// writer per run.
type VehicleModel struct {
	cfg     Config
	bodyLaw BodyLaw

	wheels    [NumWheels]WheelState
	bodySpeed float64

	// prevGrips remembers last step's grip so the regain-traction rule
	// can detect the low-to-high crossing.
	prevGrips [NumWheels]float64
}

// NewVehicleModel builds a model at rest with the grip-weighted body
// law. The config is assumed validated.
func NewVehicleModel(cfg Config) *VehicleModel {
	vm := &VehicleModel{
		cfg:     cfg,
		bodyLaw: GripWeightedBodyLaw(cfg.BodyResponse),
	}
	vm.Reset()
	return vm
}

// SetBodyLaw replaces the chassis-speed aggregation. Passing nil
// restores the grip-weighted default.
func (vm *VehicleModel) SetBodyLaw(law BodyLaw) {
	if law == nil {
		law = GripWeightedBodyLaw(vm.cfg.BodyResponse)
	}
	vm.bodyLaw = law
}

// Reset returns the vehicle to a standstill with full grip remembered.
func (vm *VehicleModel) Reset() {
	vm.wheels = [NumWheels]WheelState{}
	vm.bodySpeed = 0
	for i := range vm.prevGrips {
		vm.prevGrips[i] = 1
	}
}

// Wheels returns a copy of the current wheel states.
func (vm *VehicleModel) Wheels() [NumWheels]WheelState { return vm.wheels }

// BodySpeed returns the current chassis speed surrogate.
func (vm *VehicleModel) BodySpeed() float64 { return vm.bodySpeed }

// topSpeed interpolates the wheel speed cap between the free-spinning
// and the traction-limited cap as grip rises.
func (vm *VehicleModel) topSpeed(grip float64) float64 {
	return vm.cfg.FreeTopSpeed - (vm.cfg.FreeTopSpeed-vm.cfg.TractionTopSpeed)*grip
}

// Step advances every wheel and the body by one tick. It is total over
// clamped inputs and never returns an error.
func (vm *VehicleModel) Step(in StepInput) StepResult {
	throttle := clamp01(in.Throttle)
	dt := in.DT
	if dt <= 0 || math.IsNaN(dt) {
		dt = vm.cfg.Step.Seconds()
	}

	var grips, speeds, prevSpeeds [NumWheels]float64
	for i := 0; i < NumWheels; i++ {
		grip := clamp01(in.Grips[i])
		brake := clamp01(in.BrakeForces[i])
		prevSpeeds[i] = vm.wheels[i].Speed

		// Low grip converts drive torque into spin instead of push: the
		// wheel accelerates faster even though usable traction shrinks.
		drive := throttle * (vm.cfg.MaxDriveTorque / vm.cfg.WheelInertia) * (1 + vm.cfg.FreeSpinGain*(1-grip))
		decel := brake * vm.cfg.MaxBrakeTorque / vm.cfg.WheelInertia

		accel := drive - decel
		if vm.cfg.RollingResistance > 0 && (vm.wheels[i].Speed > 0 || drive > 0) {
			accel -= vm.cfg.RollingResistance
		}

		speed := clamp(vm.wheels[i].Speed+accel*dt, 0, vm.topSpeed(grip))

		vm.wheels[i].Speed = speed
		vm.wheels[i].Acceleration = accel
		vm.wheels[i].Grip = grip
		vm.wheels[i].BrakeForce = brake
		grips[i] = grip
		speeds[i] = speed
	}

	// A wheel that regains traction snaps down to the pack: the asphalt
	// immediately drags a free-spinning wheel back to the speed the
	// other wheels are rolling at. The published acceleration becomes
	// the effective rate over the step, so it accounts for the
	// discontinuity visible in the speed series.
	for i := 0; i < NumWheels; i++ {
		if grips[i] >= vm.cfg.RegainThreshold && vm.prevGrips[i] < vm.cfg.RegainThreshold {
			mean := meanOfOthers(speeds, i)
			if speeds[i] > mean {
				speeds[i] = mean
				vm.wheels[i].Speed = mean
				vm.wheels[i].Acceleration = (mean - prevSpeeds[i]) / dt
			}
		}
		vm.prevGrips[i] = grips[i]
	}

	vm.bodySpeed = vm.bodyLaw(vm.bodySpeed, grips, speeds, dt)

	return StepResult{Wheels: vm.wheels, BodySpeed: vm.bodySpeed}
}
