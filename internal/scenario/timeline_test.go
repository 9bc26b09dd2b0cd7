package scenario

import (
	"testing"
	"time"

	"github.com/drivelinelabs/traction-simulator/core"
)

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestTimelineHoldsLastValue(t *testing.T) {
	tl, err := NewTimeline(DefaultInputs(), []Keyframe{
		{At: Duration(0), Throttle: floatPtr(0.5)},
		{At: Duration(2 * time.Second), Grips: []float64{0.2, 1, 1, 1}},
		{At: Duration(4 * time.Second), Throttle: floatPtr(1), TCEnabled: boolPtr(false)},
	})
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}

	at1 := tl.Sample(1 * time.Second)
	if at1.Throttle != 0.5 {
		t.Fatalf("t=1s throttle = %v, want 0.5", at1.Throttle)
	}
	if at1.Grips != [core.NumWheels]float64{1, 1, 1, 1} {
		t.Fatalf("t=1s grips = %v, want full grip", at1.Grips)
	}
	if !at1.TCEnabled {
		t.Fatalf("t=1s TC disabled, want base value enabled")
	}

	at3 := tl.Sample(3 * time.Second)
	if at3.Throttle != 0.5 {
		t.Fatalf("t=3s throttle = %v, want held 0.5", at3.Throttle)
	}
	if at3.Grips != [core.NumWheels]float64{0.2, 1, 1, 1} {
		t.Fatalf("t=3s grips = %v, want slick wheel 0", at3.Grips)
	}

	at5 := tl.Sample(5 * time.Second)
	if at5.Throttle != 1 {
		t.Fatalf("t=5s throttle = %v, want 1", at5.Throttle)
	}
	if at5.TCEnabled {
		t.Fatalf("t=5s TC enabled, want toggled off")
	}
	if at5.Grips != [core.NumWheels]float64{0.2, 1, 1, 1} {
		t.Fatalf("t=5s grips = %v, want held from t=2s", at5.Grips)
	}
}

func TestTimelineSortsKeyframes(t *testing.T) {
	tl, err := NewTimeline(DefaultInputs(), []Keyframe{
		{At: Duration(2 * time.Second), Throttle: floatPtr(0.8)},
		{At: Duration(1 * time.Second), Throttle: floatPtr(0.3)},
	})
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}

	if got := tl.Sample(90 * time.Minute).Throttle; got != 0.8 {
		t.Fatalf("late sample throttle = %v, want last-sorted 0.8", got)
	}
	if got := tl.Sample(1500 * time.Millisecond).Throttle; got != 0.3 {
		t.Fatalf("t=1.5s throttle = %v, want 0.3", got)
	}
}

func TestTimelineSampleIsStateless(t *testing.T) {
	tl, err := NewTimeline(DefaultInputs(), []Keyframe{
		{At: Duration(1 * time.Second), Throttle: floatPtr(0.7)},
	})
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}

	// Sampling out of order must not corrupt earlier answers.
	tl.Sample(10 * time.Second)
	if got := tl.Sample(0).Throttle; got != 0 {
		t.Fatalf("t=0 throttle after late sample = %v, want base 0", got)
	}
}

func TestTimelineRejectsBadKeyframes(t *testing.T) {
	if _, err := NewTimeline(DefaultInputs(), []Keyframe{
		{At: Duration(-time.Second), Throttle: floatPtr(1)},
	}); err == nil {
		t.Fatalf("NewTimeline accepted a negative offset")
	}

	if _, err := NewTimeline(DefaultInputs(), []Keyframe{
		{At: Duration(0), Grips: []float64{1, 1}},
	}); err == nil {
		t.Fatalf("NewTimeline accepted a short grips vector")
	}
}

func TestTimelineClampsValues(t *testing.T) {
	tl, err := NewTimeline(DefaultInputs(), []Keyframe{
		{At: Duration(0), Throttle: floatPtr(3), Grips: []float64{-1, 2, 0.5, 1}},
	})
	if err != nil {
		t.Fatalf("NewTimeline: %v", err)
	}

	in := tl.Sample(0)
	if in.Throttle != 1 {
		t.Fatalf("throttle = %v, want clamped 1", in.Throttle)
	}
	if in.Grips != [core.NumWheels]float64{0, 1, 0.5, 1} {
		t.Fatalf("grips = %v, want clamped", in.Grips)
	}
}
