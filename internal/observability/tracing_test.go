package observability

import (
	"context"
	"testing"

	"github.com/drivelinelabs/traction-simulator/internal/logging"
)

func TestTracingConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("TCSIM_TRACING_ENABLED", "")
	t.Setenv("TCSIM_TRACING_EXPORTER", "")
	t.Setenv("TCSIM_TRACING_SERVICE_NAME", "")
	t.Setenv("TCSIM_TRACING_SAMPLE_RATIO", "")

	cfg := TracingConfigFromEnv()
	if cfg.Enabled {
		t.Fatalf("Enabled = true, want false by default")
	}
	if cfg.Exporter != "stdout" {
		t.Fatalf("Exporter = %q, want stdout", cfg.Exporter)
	}
	if cfg.ServiceName != "traction-simulator" {
		t.Fatalf("ServiceName = %q, want traction-simulator", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1.0 {
		t.Fatalf("SampleRatio = %v, want 1.0", cfg.SampleRatio)
	}
}

func TestTracingConfigFromEnvParsesValues(t *testing.T) {
	t.Setenv("TCSIM_TRACING_ENABLED", "TRUE")
	t.Setenv("TCSIM_TRACING_EXPORTER", "OTLP")
	t.Setenv("TCSIM_TRACING_SERVICE_NAME", "tcsim-test")
	t.Setenv("TCSIM_TRACING_SAMPLE_RATIO", "0.25")
	t.Setenv("TCSIM_OTLP_ENDPOINT", "collector:4317")

	cfg := TracingConfigFromEnv()
	if !cfg.Enabled {
		t.Fatalf("Enabled = false, want true")
	}
	if cfg.Exporter != "otlp" {
		t.Fatalf("Exporter = %q, want otlp", cfg.Exporter)
	}
	if cfg.ServiceName != "tcsim-test" {
		t.Fatalf("ServiceName = %q, want tcsim-test", cfg.ServiceName)
	}
	if cfg.SampleRatio != 0.25 {
		t.Fatalf("SampleRatio = %v, want 0.25", cfg.SampleRatio)
	}
	if cfg.Endpoint != "collector:4317" {
		t.Fatalf("Endpoint = %q, want collector:4317", cfg.Endpoint)
	}
}

func TestTracingConfigFromEnvIgnoresBadRatio(t *testing.T) {
	t.Setenv("TCSIM_TRACING_SAMPLE_RATIO", "not-a-number")
	if cfg := TracingConfigFromEnv(); cfg.SampleRatio != 1.0 {
		t.Fatalf("SampleRatio = %v, want fallback 1.0", cfg.SampleRatio)
	}

	t.Setenv("TCSIM_TRACING_SAMPLE_RATIO", "1.5")
	if cfg := TracingConfigFromEnv(); cfg.SampleRatio != 1.0 {
		t.Fatalf("SampleRatio = %v, want fallback 1.0 for out-of-range", cfg.SampleRatio)
	}
}

func TestInitTracingDisabledIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing disabled: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("InitTracing returned nil shutdown")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "tcsim-test",
		Exporter:    "carrier-pigeon",
	}, logging.Noop())
	if err == nil {
		t.Fatalf("InitTracing accepted unknown exporter")
	}
}
