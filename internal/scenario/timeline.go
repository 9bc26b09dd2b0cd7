package scenario

import (
	"fmt"
	"sort"
	"time"

	"github.com/drivelinelabs/traction-simulator/core"
)

// Keyframe is one timeline entry: at offset At, every field that is
// present overrides the running inputs. Absent fields hold their last
// value, so a scenario only spells out what changes.
type Keyframe struct {
	At        Duration  `yaml:"at"`
	Throttle  *float64  `yaml:"throttle"`
	Grips     []float64 `yaml:"grips"`
	TCEnabled *bool     `yaml:"tc_enabled"`
}

// Timeline replays a keyframed input profile: the headless equivalent
// of someone moving the sliders at scripted moments. Sampling walks the
// frames whose offset has passed and applies them in order onto the
// base inputs, which makes Sample stateless and the timeline safe to
// share.
type Timeline struct {
	base   core.Inputs
	frames []Keyframe
}

// NewTimeline validates and sorts the keyframes over the given base
// inputs.
func NewTimeline(base core.Inputs, frames []Keyframe) (*Timeline, error) {
	sorted := make([]Keyframe, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	for i, f := range sorted {
		if f.At < 0 {
			return nil, fmt.Errorf("keyframe %d: negative offset %v", i, f.At.Std())
		}
		if f.Grips != nil && len(f.Grips) != core.NumWheels {
			return nil, fmt.Errorf("keyframe %d: got %d grips, want %d", i, len(f.Grips), core.NumWheels)
		}
	}

	return &Timeline{base: clampInputs(base), frames: sorted}, nil
}

// Sample applies every keyframe at or before elapsed, holding the last
// value of each field.
func (tl *Timeline) Sample(elapsed time.Duration) core.Inputs {
	in := tl.base
	for _, f := range tl.frames {
		if f.At.Std() > elapsed {
			break
		}
		if f.Throttle != nil {
			in.Throttle = *f.Throttle
		}
		if f.Grips != nil {
			for i := 0; i < core.NumWheels; i++ {
				in.Grips[i] = f.Grips[i]
			}
		}
		if f.TCEnabled != nil {
			in.TCEnabled = *f.TCEnabled
		}
	}
	return clampInputs(in)
}
