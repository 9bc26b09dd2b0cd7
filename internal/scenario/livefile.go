package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/drivelinelabs/traction-simulator/core"
	"github.com/drivelinelabs/traction-simulator/internal/logging"
)

// liveInputsYAML is the on-disk shape of the live input file.
type liveInputsYAML struct {
	Throttle  float64   `yaml:"throttle"`
	Grips     []float64 `yaml:"grips"`
	TCEnabled bool      `yaml:"tc_enabled"`
}

// LiveFile watches a YAML file and serves its latest parsed contents as
// simulation inputs. Editing the file while the simulation runs is the
// headless replacement for the original slider panel: each write swaps
// the parsed value in atomically, and a parse failure keeps the
// previous good inputs instead of disturbing the run.
type LiveFile struct {
	path    string
	log     logging.Logger
	watcher *fsnotify.Watcher

	current atomic.Pointer[core.Inputs]

	closeCh chan struct{}
	once    sync.Once
}

// NewLiveFile parses the file once and starts watching its directory
// for writes. The initial parse must succeed; later failures only warn.
func NewLiveFile(path string, log logging.Logger) (*LiveFile, error) {
	if log == nil {
		log = logging.Noop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve live input path %q: %w", path, err)
	}

	initial, err := parseLiveInputs(abs)
	if err != nil {
		return nil, err
	}

	// Watch the directory rather than the file: editors that replace
	// the file on save would otherwise detach the watch.
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %q: %w", filepath.Dir(abs), err)
	}

	lf := &LiveFile{
		path:    abs,
		log:     log,
		watcher: w,
		closeCh: make(chan struct{}),
	}
	lf.current.Store(&initial)
	go lf.run()
	return lf, nil
}

// Sample returns the latest parsed inputs.
func (lf *LiveFile) Sample(time.Duration) core.Inputs {
	return *lf.current.Load()
}

// Close stops the watcher. Sample keeps returning the last inputs.
func (lf *LiveFile) Close() error {
	var err error
	lf.once.Do(func() {
		close(lf.closeCh)
		err = lf.watcher.Close()
	})
	return err
}

func (lf *LiveFile) run() {
	ctx := context.Background()
	var lastReload time.Time
	for {
		select {
		case event, ok := <-lf.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != lf.path {
				continue
			}
			// Editors fire bursts of events per save; 100ms debounce.
			now := time.Now()
			if now.Sub(lastReload) < 100*time.Millisecond {
				continue
			}
			lastReload = now

			in, err := parseLiveInputs(lf.path)
			if err != nil {
				lf.log.Warn(ctx, "live input reload failed; keeping previous inputs",
					logging.String("path", lf.path),
					logging.String("error", err.Error()),
				)
				continue
			}
			lf.current.Store(&in)
			lf.log.Info(ctx, "live inputs reloaded",
				logging.String("path", lf.path),
				logging.Float64("throttle", in.Throttle),
				logging.Any("tc_enabled", in.TCEnabled),
			)
		case err, ok := <-lf.watcher.Errors:
			if !ok {
				return
			}
			lf.log.Warn(ctx, "live input watcher error", logging.String("error", err.Error()))
		case <-lf.closeCh:
			return
		}
	}
}

func parseLiveInputs(path string) (core.Inputs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Inputs{}, fmt.Errorf("read live inputs %q: %w", path, err)
	}

	var raw liveInputsYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return core.Inputs{}, fmt.Errorf("parse live inputs %q: %w", path, err)
	}
	if raw.Grips != nil && len(raw.Grips) != core.NumWheels {
		return core.Inputs{}, fmt.Errorf("live inputs %q: got %d grips, want %d", path, len(raw.Grips), core.NumWheels)
	}

	in := DefaultInputs()
	in.Throttle = raw.Throttle
	in.TCEnabled = raw.TCEnabled
	for i := range raw.Grips {
		in.Grips[i] = raw.Grips[i]
	}
	return clampInputs(in), nil
}
