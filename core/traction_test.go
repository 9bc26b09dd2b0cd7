package core

import "testing"

func TestComputeBrakesDisabledHasNoAuthority(t *testing.T) {
	tc := NewTractionController(DefaultConfig())

	vectors := [][NumWheels]float64{
		{0, 0, 0, 0},
		{10, 10, 10, 10},
		{500, 1, 1, 1},
		{0, 0, 0, 900},
	}
	for _, speeds := range vectors {
		d := tc.ComputeBrakes(speeds, false)
		for i, f := range d.Forces {
			if f != 0 {
				t.Fatalf("speeds %v: disabled brake force[%d] = %v, want 0", speeds, i, f)
			}
		}
	}
}

func TestComputeBrakesUniformSpeedsNoFalsePositive(t *testing.T) {
	tc := NewTractionController(DefaultConfig())

	for _, s := range []float64{0, 0.5, 10, 180} {
		d := tc.ComputeBrakes([NumWheels]float64{s, s, s, s}, true)
		for i, f := range d.Forces {
			if f != 0 {
				t.Fatalf("uniform speed %v: brake force[%d] = %v, want 0", s, i, f)
			}
		}
		for i, ref := range d.References {
			if ref != s {
				t.Fatalf("uniform speed %v: reference[%d] = %v, want %v", s, i, ref, s)
			}
		}
	}
}

func TestComputeBrakesFlagsOnlyTheFastWheel(t *testing.T) {
	cfg := DefaultConfig()
	tc := NewTractionController(cfg)

	// One wheel just past the sensitivity margin over the others.
	fast := 10 * (1 + cfg.Sensitivity + 0.05)
	d := tc.ComputeBrakes([NumWheels]float64{fast, 10, 10, 10}, true)

	if d.Forces[0] <= 0 {
		t.Fatalf("over-speeding wheel brake force = %v, want > 0", d.Forces[0])
	}
	for i := 1; i < NumWheels; i++ {
		if d.Forces[i] != 0 {
			t.Fatalf("tracking wheel %d brake force = %v, want 0", i, d.Forces[i])
		}
	}
	if got, want := d.References[0], 10.0; got != want {
		t.Fatalf("reference[0] = %v, want %v", got, want)
	}
}

func TestComputeBrakesProportionalAndClamped(t *testing.T) {
	cfg := DefaultConfig()
	tc := NewTractionController(cfg)

	mild := tc.ComputeBrakes([NumWheels]float64{10 * (1 + cfg.Sensitivity + 0.1), 10, 10, 10}, true)
	severe := tc.ComputeBrakes([NumWheels]float64{10 * (1 + cfg.Sensitivity + 0.3), 10, 10, 10}, true)
	if severe.Forces[0] <= mild.Forces[0] {
		t.Fatalf("brake force not proportional: mild=%v severe=%v", mild.Forces[0], severe.Forces[0])
	}

	extreme := tc.ComputeBrakes([NumWheels]float64{900, 1, 1, 1}, true)
	if extreme.Forces[0] != 1 {
		t.Fatalf("extreme excess brake force = %v, want clamped to 1", extreme.Forces[0])
	}
}

func TestComputeBrakesStandingPack(t *testing.T) {
	tc := NewTractionController(DefaultConfig())

	// Other wheels at rest: any rotation is maximal slip, but a wheel
	// that is also at rest must not be flagged.
	d := tc.ComputeBrakes([NumWheels]float64{5, 0, 0, 0}, true)
	if d.Forces[0] != 1 {
		t.Fatalf("spinning wheel against standing pack: brake = %v, want 1", d.Forces[0])
	}

	rest := tc.ComputeBrakes([NumWheels]float64{0, 0, 0, 0}, true)
	for i, f := range rest.Forces {
		if f != 0 {
			t.Fatalf("all at rest: brake force[%d] = %v, want 0", i, f)
		}
	}
}

func TestComputeBrakesIsIdempotent(t *testing.T) {
	tc := NewTractionController(DefaultConfig())
	speeds := [NumWheels]float64{42, 10, 11, 9}

	first := tc.ComputeBrakes(speeds, true)
	second := tc.ComputeBrakes(speeds, true)
	if first != second {
		t.Fatalf("ComputeBrakes not idempotent: %+v then %+v", first, second)
	}
}
