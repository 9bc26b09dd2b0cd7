package scenario

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/drivelinelabs/traction-simulator/core"
)

// NoiseSpec configures grip jitter layered over another input source,
// mimicking the random road perturbations the original fed through its
// disturbance variables.
type NoiseSpec struct {
	// Kind is "uniform" (± Amplitude) or "normal" (std dev StdDev).
	Kind      string  `yaml:"kind"`
	Amplitude float64 `yaml:"amplitude"`
	StdDev    float64 `yaml:"stddev"`
	Seed      int64   `yaml:"seed"`
}

func (n NoiseSpec) validate() error {
	switch n.Kind {
	case "", "uniform":
		if n.Amplitude < 0 {
			return fmt.Errorf("uniform noise amplitude must not be negative, got %v", n.Amplitude)
		}
	case "normal":
		if n.StdDev < 0 {
			return fmt.Errorf("normal noise stddev must not be negative, got %v", n.StdDev)
		}
	default:
		return fmt.Errorf("unknown noise kind %q (want uniform or normal)", n.Kind)
	}
	return nil
}

// GripNoise perturbs the grips of a wrapped source. The generator is
// seeded, so a given scenario replays identically. Sampled only from
// the stepping goroutine.
type GripNoise struct {
	src  Source
	spec NoiseSpec
	rng  *rand.Rand
}

// NewGripNoise validates the spec and wraps src.
func NewGripNoise(src Source, spec NoiseSpec) (*GripNoise, error) {
	if src == nil {
		return nil, fmt.Errorf("grip noise needs a source to wrap")
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}
	return &GripNoise{
		src:  src,
		spec: spec,
		rng:  rand.New(rand.NewSource(spec.Seed)),
	}, nil
}

// Sample jitters the wrapped source's grips, clamped back into [0,1].
func (gn *GripNoise) Sample(elapsed time.Duration) core.Inputs {
	in := gn.src.Sample(elapsed)
	for i := range in.Grips {
		switch gn.spec.Kind {
		case "normal":
			in.Grips[i] += gn.rng.NormFloat64() * gn.spec.StdDev
		default:
			in.Grips[i] += (gn.rng.Float64()*2 - 1) * gn.spec.Amplitude
		}
	}
	return clampInputs(in)
}
