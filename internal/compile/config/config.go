package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr" yaml:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes" yaml:"max_request_bytes"`
}

type APIConfig struct {
	// UnknownModuleStatus is the HTTP status returned when /compile names a
	// module outside Predict/ChainOfThought/ReAct. 500 keeps the historical
	// contract; 400 treats it as the client error it is.
	UnknownModuleStatus int `json:"unknown_module_status" yaml:"unknown_module_status"`

	// CORSOrigins lists browser origins allowed to call the API. Empty disables CORS.
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// LMConfig describes the language model the prompts are compiled for. The
// compile path never calls it; it is recorded on artifacts and logged at startup.
type LMConfig struct {
	Model   string `json:"model" yaml:"model"`
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

func (c LMConfig) Provider() string {
	m := strings.TrimSpace(c.Model)
	if m == "" {
		return ""
	}
	return "openai/" + m
}

func (c LMConfig) Configured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

type ArtifactStoreKind string

const (
	ArtifactStoreNone     ArtifactStoreKind = "none"
	ArtifactStoreSQLite   ArtifactStoreKind = "sqlite"
	ArtifactStorePostgres ArtifactStoreKind = "postgres"
	ArtifactStoreRedis    ArtifactStoreKind = "redis"
)

type ArtifactConfig struct {
	Store ArtifactStoreKind `json:"store" yaml:"store"`

	// DSN is the gorm dialector DSN for sqlite/postgres stores.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty"`

	RedisAddr string   `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	TTL       Duration `json:"ttl,omitempty" yaml:"ttl,omitempty"`

	// SaveTimeout bounds the post-render write so a slow store cannot stall /compile.
	SaveTimeout Duration `json:"save_timeout,omitempty" yaml:"save_timeout,omitempty"`
}

func (c ArtifactConfig) Enabled() bool {
	return c.Store != "" && c.Store != ArtifactStoreNone
}

type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Addr serves /metrics on a separate listener. Empty mounts it on the API server.
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// TracingConfig drives the OpenTelemetry tracer provider. The OTLP exporter
// reads its endpoint, headers and TLS settings from the standard
// OTEL_EXPORTER_OTLP_* variables.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Exporter    string  `json:"exporter,omitempty" yaml:"exporter,omitempty"`
	SampleRatio float64 `json:"sample_ratio" yaml:"sample_ratio"`
}

type Config struct {
	Env       string         `json:"env" yaml:"env"`
	HTTP      HTTPConfig     `json:"http" yaml:"http"`
	API       APIConfig      `json:"api" yaml:"api"`
	LM        LMConfig       `json:"lm" yaml:"lm"`
	Artifacts ArtifactConfig `json:"artifacts" yaml:"artifacts"`
	Metrics   MetricsConfig  `json:"metrics" yaml:"metrics"`
	Tracing   TracingConfig  `json:"tracing" yaml:"tracing"`
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got yaml kind %d", node.Kind)
	}
	if node.Tag == "!!int" {
		return d.UnmarshalJSON([]byte(node.Value))
	}
	return d.UnmarshalJSON([]byte(fmt.Sprintf("%q", node.Value)))
}
