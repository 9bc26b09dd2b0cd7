package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drivelinelabs/traction-simulator/core"
	"github.com/drivelinelabs/traction-simulator/internal/logging"
)

// ErrScenarioInvalid indicates a scenario file that parsed but
// describes an unusable run.
var ErrScenarioInvalid = errors.New("invalid scenario")

// Scenario is a fully resolved run description: validated constants,
// the input source to sample each tick, and how long to run.
type Scenario struct {
	Duration time.Duration
	Config   core.Config
	Source   Source
}

// Close releases any resources the input source holds (file watchers).
func (s *Scenario) Close() error {
	if c, ok := s.Source.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// scenarioYAML is the on-disk shape. Config fields are pointers so a
// scenario only overrides what it names; everything else keeps the
// default tuning.
type scenarioYAML struct {
	Duration Duration            `yaml:"duration"`
	Config   configOverridesYAML `yaml:"config"`
	Input    inputSpecYAML       `yaml:"input"`
}

type configOverridesYAML struct {
	Step              *Duration `yaml:"step"`
	MaxDriveTorque    *float64  `yaml:"max_drive_torque"`
	WheelInertia      *float64  `yaml:"wheel_inertia"`
	MaxBrakeTorque    *float64  `yaml:"max_brake_torque"`
	FreeSpinGain      *float64  `yaml:"free_spin_gain"`
	RollingResistance *float64  `yaml:"rolling_resistance"`
	TractionTopSpeed  *float64  `yaml:"traction_top_speed"`
	FreeTopSpeed      *float64  `yaml:"free_top_speed"`
	BodyResponse      *float64  `yaml:"body_response"`
	RegainThreshold   *float64  `yaml:"regain_threshold"`
	Sensitivity       *float64  `yaml:"sensitivity"`
	BrakeGain         *float64  `yaml:"brake_gain"`
	MeasurementDelay  *Duration `yaml:"measurement_delay"`
}

func (o configOverridesYAML) apply(c core.Config) core.Config {
	if o.Step != nil {
		c.Step = o.Step.Std()
	}
	if o.MaxDriveTorque != nil {
		c.MaxDriveTorque = *o.MaxDriveTorque
	}
	if o.WheelInertia != nil {
		c.WheelInertia = *o.WheelInertia
	}
	if o.MaxBrakeTorque != nil {
		c.MaxBrakeTorque = *o.MaxBrakeTorque
	}
	if o.FreeSpinGain != nil {
		c.FreeSpinGain = *o.FreeSpinGain
	}
	if o.RollingResistance != nil {
		c.RollingResistance = *o.RollingResistance
	}
	if o.TractionTopSpeed != nil {
		c.TractionTopSpeed = *o.TractionTopSpeed
	}
	if o.FreeTopSpeed != nil {
		c.FreeTopSpeed = *o.FreeTopSpeed
	}
	if o.BodyResponse != nil {
		c.BodyResponse = *o.BodyResponse
	}
	if o.RegainThreshold != nil {
		c.RegainThreshold = *o.RegainThreshold
	}
	if o.Sensitivity != nil {
		c.Sensitivity = *o.Sensitivity
	}
	if o.BrakeGain != nil {
		c.BrakeGain = *o.BrakeGain
	}
	if o.MeasurementDelay != nil {
		c.MeasurementDelay = o.MeasurementDelay.Std()
	}
	return c
}

type inputSpecYAML struct {
	Static    *staticInputYAML `yaml:"static"`
	Timeline  []Keyframe       `yaml:"timeline"`
	Script    string           `yaml:"script"`
	LiveFile  string           `yaml:"live_file"`
	GripNoise *NoiseSpec       `yaml:"grip_noise"`
}

type staticInputYAML struct {
	Throttle  float64   `yaml:"throttle"`
	Grips     []float64 `yaml:"grips"`
	TCEnabled bool      `yaml:"tc_enabled"`
}

func (in staticInputYAML) inputs() (core.Inputs, error) {
	out := DefaultInputs()
	out.Throttle = in.Throttle
	out.TCEnabled = in.TCEnabled
	if in.Grips != nil {
		if len(in.Grips) != core.NumWheels {
			return core.Inputs{}, fmt.Errorf("got %d grips, want %d", len(in.Grips), core.NumWheels)
		}
		for i := range in.Grips {
			out.Grips[i] = in.Grips[i]
		}
	}
	return clampInputs(out), nil
}

// Load reads a scenario file, applies its config overrides to the
// defaults, validates the result, and builds the input source. Relative
// script and live-file paths resolve against the scenario's directory.
func Load(path string, log logging.Logger) (*Scenario, error) {
	if log == nil {
		log = logging.Noop()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %q: %w", path, err)
	}

	var raw scenarioYAML
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse scenario %q: %w", path, err)
	}

	cfg := raw.Config.apply(core.DefaultConfig())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}

	src, err := buildSource(raw.Input, filepath.Dir(path), log)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}

	return &Scenario{
		Duration: raw.Duration.Std(),
		Config:   cfg,
		Source:   src,
	}, nil
}

// Default returns the scenario used when no file is given: ten seconds
// of the default inputs under the default constants.
func Default() *Scenario {
	return &Scenario{
		Duration: 10 * time.Second,
		Config:   core.DefaultConfig(),
		Source:   Static{In: DefaultInputs()},
	}
}

func buildSource(spec inputSpecYAML, baseDir string, log logging.Logger) (Source, error) {
	kinds := 0
	if spec.Static != nil {
		kinds++
	}
	if spec.Timeline != nil {
		kinds++
	}
	if spec.Script != "" {
		kinds++
	}
	if spec.LiveFile != "" {
		kinds++
	}
	if kinds > 1 {
		return nil, fmt.Errorf("%w: exactly one input kind allowed, got %d", ErrScenarioInvalid, kinds)
	}

	var src Source
	switch {
	case spec.Static != nil:
		in, err := spec.Static.inputs()
		if err != nil {
			return nil, fmt.Errorf("%w: static input: %v", ErrScenarioInvalid, err)
		}
		src = Static{In: in}
	case spec.Timeline != nil:
		tl, err := NewTimeline(DefaultInputs(), spec.Timeline)
		if err != nil {
			return nil, fmt.Errorf("%w: timeline: %v", ErrScenarioInvalid, err)
		}
		src = tl
	case spec.Script != "":
		s, err := NewScriptFile(resolvePath(baseDir, spec.Script), log)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScenarioInvalid, err)
		}
		src = s
	case spec.LiveFile != "":
		lf, err := NewLiveFile(resolvePath(baseDir, spec.LiveFile), log)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScenarioInvalid, err)
		}
		src = lf
	default:
		src = Static{In: DefaultInputs()}
	}

	if spec.GripNoise != nil {
		noisy, err := NewGripNoise(src, *spec.GripNoise)
		if err != nil {
			return nil, fmt.Errorf("%w: grip noise: %v", ErrScenarioInvalid, err)
		}
		src = noisy
	}
	return src, nil
}

func resolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
