package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.TrimSpace(u) == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(strings.TrimSpace(u))
		if err != nil {
			return err
		}
		d.Duration = dd
		return nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

const (
	DefaultPort  = "8000"
	DefaultModel = "gpt-4"

	TraceExporterOTLP   = "otlp"
	TraceExporterStdout = "stdout"
)

var devCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8001",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:8001",
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              net.JoinHostPort("0.0.0.0", DefaultPort),
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
		},
		API: APIConfig{
			UnknownModuleStatus: 500,
		},
		LM: LMConfig{
			Model: DefaultModel,
		},
		Artifacts: ArtifactConfig{
			Store:       ArtifactStoreNone,
			SaveTimeout: Duration{Duration: 2 * time.Second},
		},
		Tracing: TracingConfig{
			SampleRatio: 0.1,
		},
	}
}

// Load resolves configuration from defaults, an optional JSON/YAML file and
// the environment, in that order of precedence (environment wins).
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := configPath(); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configPath() string {
	if p := strings.TrimSpace(os.Getenv("SIGCOMPILE_CONFIG_PATH")); p != "" {
		return p
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
		p := filepath.Join(wd, "config", name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, cfg)
	default:
		return json.Unmarshal(b, cfg)
	}
}

func applyEnv(cfg *Config) error {
	if v := env("LOG_MODE"); v != "" {
		cfg.Env = v
	}
	if v := env("PORT"); v != "" {
		if _, err := strconv.ParseUint(v, 10, 16); err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.HTTP.Addr = net.JoinHostPort("0.0.0.0", v)
	}
	if v := env("SIGCOMPILE_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := env("SIGCOMPILE_MAX_REQUEST_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SIGCOMPILE_MAX_REQUEST_BYTES %q: %w", v, err)
		}
		cfg.HTTP.MaxRequestBytes = n
	}
	if v := env("SIGCOMPILE_UNKNOWN_MODULE_STATUS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SIGCOMPILE_UNKNOWN_MODULE_STATUS %q: %w", v, err)
		}
		cfg.API.UnknownModuleStatus = n
	}
	if v, ok := os.LookupEnv("SIGCOMPILE_CORS_ORIGINS"); ok {
		cfg.API.CORSOrigins = splitList(v)
		if cfg.API.CORSOrigins == nil {
			cfg.API.CORSOrigins = []string{}
		}
	}
	if v := env("DSPY_MODEL"); v != "" {
		cfg.LM.Model = v
	}
	if v := env("OPENAI_API_KEY"); v != "" {
		cfg.LM.APIKey = v
	}
	if v := env("OPENAI_BASE_URL"); v != "" {
		cfg.LM.BaseURL = v
	}
	if v := env("ARTIFACT_STORE"); v != "" {
		cfg.Artifacts.Store = ArtifactStoreKind(v)
	}
	if v := env("ARTIFACT_DSN"); v != "" {
		cfg.Artifacts.DSN = v
	}
	if v := env("REDIS_ADDR"); v != "" {
		cfg.Artifacts.RedisAddr = v
	}
	if v := env("ARTIFACT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ARTIFACT_TTL %q: %w", v, err)
		}
		cfg.Artifacts.TTL = Duration{Duration: d}
	}
	if v := env("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = b
	}
	if v := env("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := env("OTEL_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid OTEL_ENABLED %q: %w", v, err)
		}
		cfg.Tracing.Enabled = b
	}
	if v := env("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Tracing.Exporter = v
	} else if cfg.Tracing.Exporter == "" && env("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		cfg.Tracing.Exporter = TraceExporterOTLP
	}
	if v := env("OTEL_SAMPLER_RATIO"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid OTEL_SAMPLER_RATIO %q: %w", v, err)
		}
		cfg.Tracing.SampleRatio = f
	}
	return nil
}

func normalize(cfg *Config) error {
	cfg.Env = strings.TrimSpace(cfg.Env)
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = net.JoinHostPort("0.0.0.0", DefaultPort)
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}
	if cfg.HTTP.ShutdownTimeout.Duration <= 0 {
		cfg.HTTP.ShutdownTimeout = Duration{Duration: 15 * time.Second}
	}

	if cfg.API.UnknownModuleStatus == 0 {
		cfg.API.UnknownModuleStatus = 500
	}
	if s := cfg.API.UnknownModuleStatus; s < 400 || s > 599 {
		return fmt.Errorf("api.unknown_module_status must be a 4xx or 5xx status, got %d", s)
	}
	if cfg.API.CORSOrigins == nil && isDevelopment(cfg.Env) {
		cfg.API.CORSOrigins = append([]string(nil), devCORSOrigins...)
	}
	for _, o := range cfg.API.CORSOrigins {
		if o != "*" && !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("api.cors_origins: %q must be \"*\" or an http(s) origin", o)
		}
	}

	cfg.LM.Model = strings.TrimSpace(cfg.LM.Model)
	if cfg.LM.Model == "" {
		cfg.LM.Model = DefaultModel
	}
	cfg.LM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LM.BaseURL), "/")

	tr := &cfg.Tracing
	switch strings.ToLower(strings.TrimSpace(tr.Exporter)) {
	case "", "stdout", "console":
		tr.Exporter = TraceExporterStdout
	case "otlp":
		tr.Exporter = TraceExporterOTLP
	default:
		return fmt.Errorf("unsupported tracing.exporter %q", tr.Exporter)
	}
	if tr.SampleRatio < 0 || tr.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", tr.SampleRatio)
	}

	a := &cfg.Artifacts
	a.Store = ArtifactStoreKind(strings.ToLower(strings.TrimSpace(string(a.Store))))
	a.DSN = strings.TrimSpace(a.DSN)
	a.RedisAddr = strings.TrimSpace(a.RedisAddr)
	if a.SaveTimeout.Duration <= 0 {
		a.SaveTimeout = Duration{Duration: 2 * time.Second}
	}
	if a.TTL.Duration < 0 {
		return errors.New("artifacts.ttl must not be negative")
	}
	switch a.Store {
	case "", ArtifactStoreNone:
		a.Store = ArtifactStoreNone
	case ArtifactStoreSQLite:
		if a.DSN == "" {
			a.DSN = "file:sigcompile.db?_busy_timeout=5000"
		}
	case ArtifactStorePostgres:
		if a.DSN == "" {
			return errors.New("artifacts.dsn (ARTIFACT_DSN) is required for the postgres store")
		}
	case ArtifactStoreRedis:
		if a.RedisAddr == "" {
			return errors.New("artifacts.redis_addr (REDIS_ADDR) is required for the redis store")
		}
	default:
		return fmt.Errorf("unsupported artifacts.store %q", a.Store)
	}
	return nil
}

func isDevelopment(mode string) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
