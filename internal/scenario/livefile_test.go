package scenario

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drivelinelabs/traction-simulator/core"
	"github.com/drivelinelabs/traction-simulator/internal/logging"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func waitForThrottle(t *testing.T, lf *LiveFile, want float64) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lf.Sample(0).Throttle == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("throttle never reached %v, last %v", want, lf.Sample(0).Throttle)
}

func TestLiveFileInitialParse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.yaml")
	writeFile(t, path, "throttle: 0.5\ngrips: [0.2, 1, 1, 1]\ntc_enabled: true\n")

	lf, err := NewLiveFile(path, logging.Noop())
	if err != nil {
		t.Fatalf("NewLiveFile: %v", err)
	}
	defer lf.Close()

	in := lf.Sample(0)
	if in.Throttle != 0.5 {
		t.Fatalf("throttle = %v, want 0.5", in.Throttle)
	}
	if in.Grips != [core.NumWheels]float64{0.2, 1, 1, 1} {
		t.Fatalf("grips = %v, want [0.2 1 1 1]", in.Grips)
	}
	if !in.TCEnabled {
		t.Fatalf("tc_enabled = false, want true")
	}
}

func TestLiveFileReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.yaml")
	writeFile(t, path, "throttle: 0.1\ntc_enabled: true\n")

	lf, err := NewLiveFile(path, logging.Noop())
	if err != nil {
		t.Fatalf("NewLiveFile: %v", err)
	}
	defer lf.Close()

	writeFile(t, path, "throttle: 0.9\ntc_enabled: true\n")
	waitForThrottle(t, lf, 0.9)
}

func TestLiveFileKeepsInputsOnBadWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.yaml")
	writeFile(t, path, "throttle: 0.3\ntc_enabled: true\n")

	lf, err := NewLiveFile(path, logging.Noop())
	if err != nil {
		t.Fatalf("NewLiveFile: %v", err)
	}
	defer lf.Close()

	writeFile(t, path, "throttle: [broken\n")

	// Give the watcher a moment; the previous inputs must survive.
	time.Sleep(300 * time.Millisecond)
	if got := lf.Sample(0).Throttle; got != 0.3 {
		t.Fatalf("throttle after bad write = %v, want preserved 0.3", got)
	}
}

func TestLiveFileRejectsMissingFile(t *testing.T) {
	if _, err := NewLiveFile(filepath.Join(t.TempDir(), "absent.yaml"), logging.Noop()); err == nil {
		t.Fatalf("NewLiveFile accepted a missing file")
	}
}

func TestLiveFileRejectsShortGrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inputs.yaml")
	writeFile(t, path, "grips: [1, 1]\n")

	if _, err := NewLiveFile(path, logging.Noop()); err == nil {
		t.Fatalf("NewLiveFile accepted a short grips vector")
	}
}
