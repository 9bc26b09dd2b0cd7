package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/drivelinelabs/traction-simulator/core"
	"github.com/drivelinelabs/traction-simulator/internal/logging"
	"github.com/drivelinelabs/traction-simulator/internal/observability"
	"github.com/drivelinelabs/traction-simulator/internal/scenario"
	"github.com/drivelinelabs/traction-simulator/internal/sim"
	"github.com/drivelinelabs/traction-simulator/timectrl"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a YAML scenario file; empty runs the built-in default scenario")
	inputsPath := flag.String("inputs", "", "Path to a live-reload YAML input file (replaces the scenario's input profile)")
	scriptPath := flag.String("script", "", "Path to a tengo input script (replaces the scenario's input profile)")
	duration := flag.Duration("duration", 0, "Total simulation duration; overrides the scenario when set")
	tick := flag.Duration("tick", 0, "Fixed step duration; overrides the scenario when set")
	accelerated := flag.Bool("accelerated", false, "Run as fast as possible instead of real-time pacing")
	metricsAddr := flag.String("metrics-addr", ":9090", "HTTP address for Prometheus /metrics")
	statusEvery := flag.Duration("status-every", time.Second, "Sim-time interval between status log lines; 0 disables them")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, log := logging.WithRunLogger(context.Background(), log)

	sc, err := buildScenario(*scenarioPath, *inputsPath, *scriptPath, *duration, *tick, log)
	if err != nil {
		log.Error(ctx, "failed to build scenario", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer sc.Close()

	collector, err := observability.NewSimCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(*metricsAddr, collector, log)

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	engine, err := core.NewSimulationEngine(sc.Config)
	if err != nil {
		log.Error(ctx, "failed to build simulation engine", logging.String("error", err.Error()))
		os.Exit(1)
	}
	hub := sim.NewRunState(log, sim.WithMetricsRecorder(collector))

	ctx, runSpan := observability.StartRunSpan(ctx, logging.RunIDFromContext(ctx))

	mode := timectrl.RealTime
	if *accelerated {
		mode = timectrl.Accelerated
	}
	controller := timectrl.NewTimeController(time.Now().UTC(), sc.Config.Step, mode)

	statusTicks := uint64(0)
	if *statusEvery > 0 {
		statusTicks = uint64(*statusEvery / sc.Config.Step)
	}

	controller.AddListener(func(now time.Time, elapsed time.Duration) {
		in := sc.Source.Sample(elapsed)

		started := time.Now()
		snap := engine.Tick(in)
		collector.ObserveStepDuration(time.Since(started))

		hub.Publish(snap)
		runSpan.OnSnapshot(snap)

		if statusTicks > 0 && snap.Tick%statusTicks == 0 {
			logStatus(ctx, log, snap)
		}
	})

	log.Info(ctx, "starting simulation",
		logging.String("duration", sc.Duration.String()),
		logging.String("tick", sc.Config.Step.String()),
		logging.Any("accelerated", *accelerated),
	)

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	<-controller.Start(stopCtx, sc.Duration)

	if last, ok := hub.Latest(); ok {
		log.Info(ctx, "simulation finished",
			logging.Any("ticks", last.Tick),
			logging.String("sim_time", last.SimTime.String()),
			logging.Float64("body_speed", last.BodySpeed),
		)
		runSpan.End(last.SimTime)
	} else {
		runSpan.End(0)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

// buildScenario resolves the scenario file plus flag overrides into a
// runnable scenario. Flags win over the file; the live-input and script
// flags replace whatever input profile the scenario declared.
func buildScenario(scenarioPath, inputsPath, scriptPath string, duration, tick time.Duration, log logging.Logger) (*scenario.Scenario, error) {
	if inputsPath != "" && scriptPath != "" {
		return nil, fmt.Errorf("-inputs and -script are mutually exclusive")
	}

	sc := scenario.Default()
	if scenarioPath != "" {
		loaded, err := scenario.Load(scenarioPath, log)
		if err != nil {
			return nil, err
		}
		sc = loaded
	}

	if duration > 0 {
		sc.Duration = duration
	}
	if tick > 0 {
		sc.Config.Step = tick
		if err := sc.Config.Validate(); err != nil {
			return nil, err
		}
	}

	if inputsPath != "" {
		lf, err := scenario.NewLiveFile(inputsPath, log)
		if err != nil {
			return nil, err
		}
		sc.Source = lf
	}
	if scriptPath != "" {
		s, err := scenario.NewScriptFile(scriptPath, log)
		if err != nil {
			return nil, err
		}
		sc.Source = s
	}
	return sc, nil
}

func serveMetrics(addr string, collector *observability.SimCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

func logStatus(ctx context.Context, log logging.Logger, snap core.Snapshot) {
	fields := []logging.Field{
		logging.Any("tick", snap.Tick),
		logging.String("sim_time", snap.SimTime.String()),
		logging.Float64("throttle", snap.Throttle),
		logging.Any("tc_enabled", snap.TCEnabled),
		logging.Float64("body_speed", snap.BodySpeed),
	}
	for i, w := range snap.Wheels {
		fields = append(fields,
			logging.Float64(fmt.Sprintf("wheel%d_speed", i), w.Speed),
			logging.Float64(fmt.Sprintf("wheel%d_brake", i), w.BrakeForce),
		)
	}
	log.Info(ctx, "simulation status", fields...)
}
