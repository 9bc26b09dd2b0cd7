package core

const (
	// refFloor protects the excess-ratio division when the other wheels
	// are essentially at rest.
	refFloor = 1e-6

	// maxExcessRatio is the sentinel excess for a moving wheel whose
	// peers are stopped: any rotation against a standing pack is treated
	// as maximal slip.
	maxExcessRatio = 1e3
)

// BrakeDecision is the controller's per-tick output: a brake command
// per wheel plus the reference speed each command was judged against.
// References are reported even when the controller is disabled so the
// telemetry surface always shows what the ECU would be comparing.
type BrakeDecision struct {
	Forces     [NumWheels]float64
	References [NumWheels]float64
}

// TractionController detects per-wheel over-speed relative to the other
// wheels and commands a proportional corrective brake. It is a pure
// function of the measured speed vector: no integral or derivative
// term, no state carried between ticks.
type TractionController struct {
	sensitivity float64
	brakeGain   float64
}

// NewTractionController builds a controller from validated config.
func NewTractionController(cfg Config) *TractionController {
	return &TractionController{
		sensitivity: cfg.Sensitivity,
		brakeGain:   cfg.BrakeGain,
	}
}

// ComputeBrakes evaluates the measured wheel speeds. A wheel is braked
// when its speed exceeds the mean of the other wheels by more than the
// sensitivity margin; the command grows proportionally with the excess
// and clamps to [0,1]. Disabled, the controller has no authority and
// returns all-zero forces.
func (tc *TractionController) ComputeBrakes(speeds [NumWheels]float64, enabled bool) BrakeDecision {
	var d BrakeDecision
	for i := 0; i < NumWheels; i++ {
		ref := meanOfOthers(speeds, i)
		d.References[i] = ref

		if !enabled {
			continue
		}

		var excess float64
		switch {
		case ref >= refFloor:
			excess = (speeds[i] - ref) / ref
		case speeds[i] > refFloor:
			excess = maxExcessRatio
		default:
			continue
		}

		if excess > tc.sensitivity {
			d.Forces[i] = clamp(tc.brakeGain*(excess-tc.sensitivity), 0, 1)
		}
	}
	return d
}

// meanOfOthers averages every wheel speed except wheel i's.
func meanOfOthers(speeds [NumWheels]float64, i int) float64 {
	var sum float64
	for j := 0; j < NumWheels; j++ {
		if j != i {
			sum += speeds[j]
		}
	}
	return sum / (NumWheels - 1)
}
