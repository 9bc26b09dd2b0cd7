package core

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// NumWheels is the number of wheels on the simulated vehicle.
const NumWheels = 4

// ErrInvalidConfig indicates a configuration that would make the
// numeric simulation unstable or meaningless.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Config holds the vehicle and controller constants for one run. It is
// immutable after Validate(); every component takes a copy at
// construction, so there is no mutable global tuning state.
type Config struct {
	// Step is the fixed duration of one simulation tick.
	Step time.Duration

	// MaxDriveTorque is the torque (N·m) delivered at a wheel at full
	// throttle and full grip.
	MaxDriveTorque float64

	// WheelInertia is the mass-equivalent inertia (kg·m²) that drive and
	// brake torques act against.
	WheelInertia float64

	// MaxBrakeTorque is the torque (N·m) a fully-applied brake removes.
	MaxBrakeTorque float64

	// FreeSpinGain scales how much faster a wheel spins up as grip drops
	// toward zero. At grip g the drive acceleration is multiplied by
	// 1 + FreeSpinGain*(1-g): a slipping wheel converts drive torque into
	// rotation instead of forward push.
	FreeSpinGain float64

	// RollingResistance is a constant decelerating term (rad/s²) applied
	// while a wheel is rolling or driven. Zero disables it.
	RollingResistance float64

	// TractionTopSpeed is the wheel speed cap (rad/s) at full grip.
	TractionTopSpeed float64

	// FreeTopSpeed is the wheel speed cap (rad/s) with no grip at all.
	// A free-spinning wheel is not held back by the vehicle's mass.
	FreeTopSpeed float64

	// BodyResponse is the low-pass rate (1/s) at which body speed moves
	// toward the grip-weighted traction target.
	BodyResponse float64

	// RegainThreshold is the grip level at or above which a wheel counts
	// as having regained traction; crossing it snaps a free-spinning
	// wheel back to the pack mean.
	RegainThreshold float64

	// Sensitivity is the fractional excess over the reference speed a
	// wheel must reach before traction control intervenes.
	Sensitivity float64

	// BrakeGain converts excess beyond Sensitivity into brake command.
	BrakeGain float64

	// MeasurementDelay is the tachometer propagation delay. The
	// controller always sees at least one step of delay; this adds more.
	MeasurementDelay time.Duration
}

// DefaultConfig returns the reference tuning: a car that reaches its
// 180 rad/s wheel-speed cap in 20 s at full throttle and spins a
// gripless wheel up to five times that.
func DefaultConfig() Config {
	return Config{
		Step:              10 * time.Millisecond,
		MaxDriveTorque:    1260,
		WheelInertia:      140,
		MaxBrakeTorque:    14000,
		FreeSpinGain:      4.5,
		RollingResistance: 0,
		TractionTopSpeed:  180,
		FreeTopSpeed:      900,
		BodyResponse:      0.8,
		RegainThreshold:   0.999,
		Sensitivity:       0.5,
		BrakeGain:         2.0,
		MeasurementDelay:  0,
	}
}

// Validate rejects constants that would produce NaN, runaway, or
// degenerate behavior during stepping. It is meant to run once at
// startup; the step functions themselves never return errors.
func (c Config) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"max drive torque", c.MaxDriveTorque},
		{"wheel inertia", c.WheelInertia},
		{"max brake torque", c.MaxBrakeTorque},
		{"free spin gain", c.FreeSpinGain},
		{"rolling resistance", c.RollingResistance},
		{"traction top speed", c.TractionTopSpeed},
		{"free top speed", c.FreeTopSpeed},
		{"body response", c.BodyResponse},
		{"regain threshold", c.RegainThreshold},
		{"sensitivity", c.Sensitivity},
		{"brake gain", c.BrakeGain},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) {
			return fmt.Errorf("%w: %s is NaN", ErrInvalidConfig, f.name)
		}
	}

	switch {
	case c.Step <= 0:
		return fmt.Errorf("%w: step must be positive, got %v", ErrInvalidConfig, c.Step)
	case c.MaxDriveTorque <= 0:
		return fmt.Errorf("%w: max drive torque must be positive, got %v", ErrInvalidConfig, c.MaxDriveTorque)
	case c.WheelInertia <= 0:
		return fmt.Errorf("%w: wheel inertia must be positive, got %v", ErrInvalidConfig, c.WheelInertia)
	case c.MaxBrakeTorque <= 0:
		return fmt.Errorf("%w: max brake torque must be positive, got %v", ErrInvalidConfig, c.MaxBrakeTorque)
	case c.FreeSpinGain < 0:
		return fmt.Errorf("%w: free spin gain must not be negative, got %v", ErrInvalidConfig, c.FreeSpinGain)
	case c.RollingResistance < 0:
		return fmt.Errorf("%w: rolling resistance must not be negative, got %v", ErrInvalidConfig, c.RollingResistance)
	case c.TractionTopSpeed <= 0:
		return fmt.Errorf("%w: traction top speed must be positive, got %v", ErrInvalidConfig, c.TractionTopSpeed)
	case c.FreeTopSpeed < c.TractionTopSpeed:
		return fmt.Errorf("%w: free top speed %v below traction top speed %v", ErrInvalidConfig, c.FreeTopSpeed, c.TractionTopSpeed)
	case c.BodyResponse <= 0:
		return fmt.Errorf("%w: body response must be positive, got %v", ErrInvalidConfig, c.BodyResponse)
	case c.RegainThreshold <= 0 || c.RegainThreshold > 1:
		return fmt.Errorf("%w: regain threshold must be in (0,1], got %v", ErrInvalidConfig, c.RegainThreshold)
	case c.Sensitivity <= 0:
		return fmt.Errorf("%w: sensitivity must be positive, got %v", ErrInvalidConfig, c.Sensitivity)
	case c.BrakeGain <= 0:
		return fmt.Errorf("%w: brake gain must be positive, got %v", ErrInvalidConfig, c.BrakeGain)
	case c.MeasurementDelay < 0:
		return fmt.Errorf("%w: measurement delay must not be negative, got %v", ErrInvalidConfig, c.MeasurementDelay)
	}
	return nil
}

// clamp01 pins v into [0,1]. NaN pins to 0 so a poisoned input cannot
// propagate through the integration.
func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
