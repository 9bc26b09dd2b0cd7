package scenario

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/drivelinelabs/traction-simulator/core"
	"github.com/drivelinelabs/traction-simulator/internal/logging"
)

// Script evaluates a tengo program once per tick to produce inputs, for
// reproducible profiles like throttle ramps or a timed ice patch. The
// program receives the elapsed time in seconds as `t` and sets the
// globals `throttle`, `grips` (array of four), and `tc_enabled`; any
// global it leaves unset holds its previous value.
type Script struct {
	compiled *tengo.Compiled
	log      logging.Logger
	last     core.Inputs
}

// NewScript compiles the source once. Compile errors abort startup.
func NewScript(src []byte, log logging.Logger) (*Script, error) {
	if log == nil {
		log = logging.Noop()
	}

	script := tengo.NewScript(src)
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))
	if err := script.Add("t", 0.0); err != nil {
		return nil, fmt.Errorf("bind script variable t: %w", err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile input script: %w", err)
	}

	return &Script{
		compiled: compiled,
		log:      log,
		last:     DefaultInputs(),
	}, nil
}

// NewScriptFile reads and compiles a script from disk.
func NewScriptFile(path string, log logging.Logger) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input script %q: %w", path, err)
	}
	s, err := NewScript(src, log)
	if err != nil {
		return nil, fmt.Errorf("input script %q: %w", path, err)
	}
	return s, nil
}

// Sample runs the script for the given elapsed time. A runtime error
// keeps the previous inputs so one bad evaluation cannot destabilise
// the loop.
func (s *Script) Sample(elapsed time.Duration) core.Inputs {
	if err := s.compiled.Set("t", elapsed.Seconds()); err != nil {
		s.log.Warn(context.Background(), "input script: set t failed", logging.String("error", err.Error()))
		return s.last
	}
	if err := s.compiled.Run(); err != nil {
		s.log.Warn(context.Background(), "input script run failed; keeping previous inputs",
			logging.String("error", err.Error()))
		return s.last
	}

	in := s.last
	if s.compiled.IsDefined("throttle") {
		in.Throttle = s.compiled.Get("throttle").Float()
	}
	if s.compiled.IsDefined("tc_enabled") {
		in.TCEnabled = s.compiled.Get("tc_enabled").Bool()
	}
	if s.compiled.IsDefined("grips") {
		if grips, ok := gripsFromScript(s.compiled.Get("grips").Array()); ok {
			in.Grips = grips
		} else {
			s.log.Warn(context.Background(), "input script: grips must be an array of four numbers")
		}
	}

	s.last = clampInputs(in)
	return s.last
}

func gripsFromScript(values []interface{}) ([core.NumWheels]float64, bool) {
	var out [core.NumWheels]float64
	if len(values) != core.NumWheels {
		return out, false
	}
	for i, v := range values {
		switch n := v.(type) {
		case float64:
			out[i] = n
		case int64:
			out[i] = float64(n)
		case int:
			out[i] = float64(n)
		default:
			return out, false
		}
	}
	return out, true
}
