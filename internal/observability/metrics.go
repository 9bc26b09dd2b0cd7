package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drivelinelabs/traction-simulator/core"
)

// SimCollector bundles the Prometheus metrics the simulation publishes
// each tick: the per-wheel time series the plotting window used to
// show, plus controller intervention counters and step latency.
type SimCollector struct {
	gatherer prometheus.Gatherer

	WheelSpeed        *prometheus.GaugeVec
	WheelAcceleration *prometheus.GaugeVec
	WheelBrakeForce   *prometheus.GaugeVec
	WheelGrip         *prometheus.GaugeVec
	WheelReference    *prometheus.GaugeVec

	BodySpeed prometheus.Gauge
	Throttle  prometheus.Gauge
	TCEnabled prometheus.Gauge

	Ticks           prometheus.Counter
	TCInterventions *prometheus.CounterVec
	StepDuration    prometheus.Histogram

	// lastBrake tracks the previous brake command per wheel so an
	// intervention is counted once per zero-to-nonzero transition, not
	// once per tick it stays engaged. Written only from the stepping
	// goroutine.
	lastBrake [core.NumWheels]float64
}

// NewSimCollector registers the simulation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
// Registration tolerates identical collectors already being present so
// repeated runs in one process reuse them.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	speed, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wheel_speed",
		Help: "Current wheel speed in rad/s, labeled by wheel position.",
	}, []string{"wheel"}), "wheel_speed")
	if err != nil {
		return nil, err
	}
	accel, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wheel_acceleration",
		Help: "Net commanded wheel acceleration in rad/s², labeled by wheel position.",
	}, []string{"wheel"}), "wheel_acceleration")
	if err != nil {
		return nil, err
	}
	brake, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wheel_brake_force",
		Help: "Traction-control brake command in [0,1], labeled by wheel position.",
	}, []string{"wheel"}), "wheel_brake_force")
	if err != nil {
		return nil, err
	}
	grip, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wheel_grip",
		Help: "Road grip coefficient in [0,1], labeled by wheel position.",
	}, []string{"wheel"}), "wheel_grip")
	if err != nil {
		return nil, err
	}
	reference, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wheel_reference_speed",
		Help: "Controller reference speed (mean of the other wheels) in rad/s.",
	}, []string{"wheel"}), "wheel_reference_speed")
	if err != nil {
		return nil, err
	}

	bodySpeed, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "body_speed",
		Help: "Chassis speed surrogate derived from grip-weighted traction.",
	}), "body_speed")
	if err != nil {
		return nil, err
	}
	throttle, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "throttle",
		Help: "Throttle input echo in [0,1].",
	}), "throttle")
	if err != nil {
		return nil, err
	}
	tcEnabled, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tc_enabled",
		Help: "Whether traction control currently has authority (1) or not (0).",
	}), "tc_enabled")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Total number of simulation steps computed.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}
	interventions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tc_interventions_total",
		Help: "Traction-control engagements (zero-to-nonzero brake transitions), labeled by wheel.",
	}, []string{"wheel"}), "tc_interventions_total")
	if err != nil {
		return nil, err
	}
	stepDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_step_duration_seconds",
		Help:    "Wall-clock time spent computing one simulation step.",
		Buckets: []float64{0.00001, 0.000025, 0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01},
	}), "sim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:          gatherer,
		WheelSpeed:        speed,
		WheelAcceleration: accel,
		WheelBrakeForce:   brake,
		WheelGrip:         grip,
		WheelReference:    reference,
		BodySpeed:         bodySpeed,
		Throttle:          throttle,
		TCEnabled:         tcEnabled,
		Ticks:             ticks,
		TCInterventions:   interventions,
		StepDuration:      stepDuration,
	}, nil
}

// RecordSnapshot pushes one published snapshot into the metric surface.
// It satisfies the sim.MetricsRecorder interface so the run state hub
// can drive gauges directly from Publish.
func (c *SimCollector) RecordSnapshot(s core.Snapshot) {
	if c == nil {
		return
	}

	for i, w := range s.Wheels {
		label := strconv.Itoa(i)
		c.WheelSpeed.WithLabelValues(label).Set(w.Speed)
		c.WheelAcceleration.WithLabelValues(label).Set(w.Acceleration)
		c.WheelBrakeForce.WithLabelValues(label).Set(w.BrakeForce)
		c.WheelGrip.WithLabelValues(label).Set(w.Grip)
		c.WheelReference.WithLabelValues(label).Set(w.Reference)

		if c.lastBrake[i] == 0 && w.BrakeForce > 0 {
			c.TCInterventions.WithLabelValues(label).Inc()
		}
		c.lastBrake[i] = w.BrakeForce
	}

	c.BodySpeed.Set(s.BodySpeed)
	c.Throttle.Set(s.Throttle)
	if s.TCEnabled {
		c.TCEnabled.Set(1)
	} else {
		c.TCEnabled.Set(0)
	}
	c.Ticks.Inc()
}

// ObserveStepDuration records how long one step took on the wall clock.
func (c *SimCollector) ObserveStepDuration(d time.Duration) {
	if c == nil {
		return
	}
	c.StepDuration.Observe(d.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
