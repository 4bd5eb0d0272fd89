package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var envKeys = []string{
	"SIGCOMPILE_CONFIG_PATH", "LOG_MODE", "PORT", "SIGCOMPILE_HTTP_ADDR",
	"SIGCOMPILE_MAX_REQUEST_BYTES", "SIGCOMPILE_UNKNOWN_MODULE_STATUS",
	"SIGCOMPILE_CORS_ORIGINS", "DSPY_MODEL", "OPENAI_API_KEY", "OPENAI_BASE_URL",
	"ARTIFACT_STORE", "ARTIFACT_DSN", "REDIS_ADDR", "ARTIFACT_TTL",
	"METRICS_ENABLED", "METRICS_ADDR",
	"OTEL_ENABLED", "OTEL_TRACES_EXPORTER", "OTEL_SAMPLER_RATIO", "OTEL_EXPORTER_OTLP_ENDPOINT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != "0.0.0.0:8000" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.LM.Model != "gpt-4" || cfg.LM.Provider() != "openai/gpt-4" {
		t.Fatalf("lm=%+v", cfg.LM)
	}
	if cfg.LM.Configured() {
		t.Fatalf("lm should not be configured without a key")
	}
	if cfg.API.UnknownModuleStatus != 500 {
		t.Fatalf("unknown module status=%d", cfg.API.UnknownModuleStatus)
	}
	if cfg.Artifacts.Enabled() {
		t.Fatalf("artifacts should be disabled by default")
	}
	if diff := cmp.Diff(devCORSOrigins, cfg.API.CORSOrigins); diff != "" {
		t.Fatalf("cors origins (-want +got):\n%s", diff)
	}
	want := TracingConfig{Exporter: TraceExporterStdout, SampleRatio: 0.1}
	if diff := cmp.Diff(want, cfg.Tracing); diff != "" {
		t.Fatalf("tracing (-want +got):\n%s", diff)
	}
}

func TestLoadTracing(t *testing.T) {
	clearEnv(t)
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_SAMPLER_RATIO", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := TracingConfig{Enabled: true, Exporter: TraceExporterOTLP, SampleRatio: 1}
	if diff := cmp.Diff(want, cfg.Tracing); diff != "" {
		t.Fatalf("tracing (-want +got):\n%s", diff)
	}

	t.Setenv("OTEL_TRACES_EXPORTER", "console")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tracing.Exporter != TraceExporterStdout {
		t.Fatalf("explicit exporter should win over endpoint, got %q", cfg.Tracing.Exporter)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DSPY_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LOG_MODE", "production")
	t.Setenv("SIGCOMPILE_UNKNOWN_MODULE_STATUS", "400")
	t.Setenv("ARTIFACT_STORE", "Redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("ARTIFACT_TTL", "1h")
	t.Setenv("METRICS_ENABLED", "true")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != "0.0.0.0:9090" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
	if cfg.LM.Provider() != "openai/gpt-4o-mini" || !cfg.LM.Configured() {
		t.Fatalf("lm=%+v", cfg.LM)
	}
	if cfg.API.UnknownModuleStatus != 400 {
		t.Fatalf("status=%d", cfg.API.UnknownModuleStatus)
	}
	if len(cfg.API.CORSOrigins) != 0 {
		t.Fatalf("production should not default cors origins: %v", cfg.API.CORSOrigins)
	}
	if cfg.Artifacts.Store != ArtifactStoreRedis || cfg.Artifacts.TTL.Duration != time.Hour {
		t.Fatalf("artifacts=%+v", cfg.Artifacts)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9100" {
		t.Fatalf("metrics=%+v", cfg.Metrics)
	}
}

func TestLoadHTTPAddrWinsOverPort(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SIGCOMPILE_HTTP_ADDR", "127.0.0.1:7000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != "127.0.0.1:7000" {
		t.Fatalf("addr=%q", cfg.HTTP.Addr)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "sigcompile.yaml")
	body := strings.Join([]string{
		"env: production",
		"http:",
		"  addr: \":8100\"",
		"  shutdown_timeout: 3s",
		"api:",
		"  unknown_module_status: 422",
		"  cors_origins: [\"https://ui.example.com\"]",
		"artifacts:",
		"  store: sqlite",
		"  save_timeout: 500000000",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SIGCOMPILE_CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8100" || cfg.HTTP.ShutdownTimeout.Duration != 3*time.Second {
		t.Fatalf("http=%+v", cfg.HTTP)
	}
	if cfg.HTTP.IdleTimeout.Duration != 2*time.Minute {
		t.Fatalf("file should not wipe defaults, idle=%v", cfg.HTTP.IdleTimeout.Duration)
	}
	if cfg.API.UnknownModuleStatus != 422 {
		t.Fatalf("status=%d", cfg.API.UnknownModuleStatus)
	}
	if diff := cmp.Diff([]string{"https://ui.example.com"}, cfg.API.CORSOrigins); diff != "" {
		t.Fatalf("cors (-want +got):\n%s", diff)
	}
	if cfg.Artifacts.Store != ArtifactStoreSQLite || cfg.Artifacts.DSN == "" {
		t.Fatalf("artifacts=%+v", cfg.Artifacts)
	}
	if cfg.Artifacts.SaveTimeout.Duration != 500*time.Millisecond {
		t.Fatalf("save timeout=%v", cfg.Artifacts.SaveTimeout.Duration)
	}
}

func TestLoadJSONFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{"lm":{"model":"gpt-3.5-turbo","base_url":"https://api.example.com/"},"http":{"read_header_timeout":"2s"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SIGCOMPILE_CONFIG_PATH", path)
	t.Setenv("DSPY_MODEL", "gpt-4o")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LM.Model != "gpt-4o" {
		t.Fatalf("env should win over file, model=%q", cfg.LM.Model)
	}
	if cfg.LM.BaseURL != "https://api.example.com" {
		t.Fatalf("base url=%q", cfg.LM.BaseURL)
	}
	if cfg.HTTP.ReadHeaderTimeout.Duration != 2*time.Second {
		t.Fatalf("read header timeout=%v", cfg.HTTP.ReadHeaderTimeout.Duration)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad port":             {"PORT": "eighty"},
		"status out of range":  {"SIGCOMPILE_UNKNOWN_MODULE_STATUS": "302"},
		"unknown store":        {"ARTIFACT_STORE": "mongo"},
		"postgres without dsn": {"ARTIFACT_STORE": "postgres"},
		"redis without addr":   {"ARTIFACT_STORE": "redis"},
		"bad ttl":              {"ARTIFACT_TTL": "forever"},
		"bad cors origin":      {"SIGCOMPILE_CORS_ORIGINS": "localhost:3000"},
		"bad metrics flag":     {"METRICS_ENABLED": "sometimes"},
		"bad otel flag":        {"OTEL_ENABLED": "maybe"},
		"unknown exporter":     {"OTEL_TRACES_EXPORTER": "zipkin"},
		"ratio out of range":   {"OTEL_SAMPLER_RATIO": "3"},
		"ratio not a number":   {"OTEL_SAMPLER_RATIO": "half"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range vars {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDurationUnmarshalJSON(t *testing.T) {
	cases := map[string]time.Duration{
		`"5s"`:    5 * time.Second,
		`""`:      0,
		`null`:    0,
		`1000`:    1000,
		`"1m30s"`: 90 * time.Second,
	}
	for raw, want := range cases {
		var d Duration
		if err := d.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if d.Duration != want {
			t.Fatalf("%s: got=%v want=%v", raw, d.Duration, want)
		}
	}
	var d Duration
	if err := d.UnmarshalJSON([]byte(`true`)); err == nil {
		t.Fatalf("expected error for bool")
	}
}
