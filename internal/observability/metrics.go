package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/sigcompile/internal/platform/logger"
)

// Metrics is the service's Prometheus-style registry. A nil *Metrics is
// valid and records nothing, so callers never branch on whether it is on.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge

	compiles      *CounterVec
	compileTime   *HistogramVec
	promptBytes   *HistogramVec
	artifactSaves *CounterVec

	storeUp   *Gauge
	storePing *Gauge
	sqlStats  *GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("sigcompile_api_requests_total", "API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"sigcompile_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		),
		apiInflight: NewGauge("sigcompile_api_inflight_requests", "In-flight API requests."),
		compiles:    NewCounterVec("sigcompile_compiles_total", "Compile attempts by module/status.", []string{"module", "status"}),
		compileTime: NewHistogramVec(
			"sigcompile_compile_duration_seconds",
			"Build, resolve and render time in seconds by module.",
			[]string{"module"},
			[]float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.005, 0.01},
		),
		promptBytes: NewHistogramVec(
			"sigcompile_prompt_bytes",
			"Rendered prompt size in bytes by module.",
			[]string{"module"},
			[]float64{64, 128, 256, 512, 1024, 4096, 16384, 65536},
		),
		artifactSaves: NewCounterVec("sigcompile_artifact_saves_total", "Artifact writes by status.", []string{"status"}),
		storeUp:       NewGauge("sigcompile_artifact_store_up", "Artifact store connectivity (1=up, 0=down)."),
		storePing:     NewGauge("sigcompile_artifact_store_ping_seconds", "Artifact store ping latency in seconds."),
		sqlStats:      NewGaugeVec("sigcompile_sql_pool", "SQL connection pool stats for the artifact store.", []string{"metric"}),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveCompile records one compile. Module names are caller supplied, so
// anything that failed to resolve is bucketed as "invalid" to bound cardinality.
func (m *Metrics) ObserveCompile(module string, ok bool, promptLen int, dur time.Duration) {
	if m == nil {
		return
	}
	if !ok {
		m.compiles.Inc("invalid", "error")
		return
	}
	m.compiles.Inc(module, "ok")
	m.compileTime.Observe(dur.Seconds(), module)
	m.promptBytes.Observe(float64(promptLen), module)
}

func (m *Metrics) ObserveArtifactSave(status string) {
	if m == nil {
		return
	}
	m.artifactSaves.Inc(status)
}

// CompileCount returns the number of successful compiles recorded for module.
func (m *Metrics) CompileCount(module string) float64 {
	if m == nil {
		return 0
	}
	return m.compiles.Value(module, "ok")
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.writeAll(w)
}

func (m *Metrics) writeAll(w io.Writer) error {
	families := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.compiles, m.compileTime, m.promptBytes, m.artifactSaves,
		m.storeUp, m.storePing, m.sqlStats,
	}
	for _, f := range families {
		if err := f.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// NewServer returns a standalone listener for /metrics; Run it with ListenAndServe.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", m.WriteHTTP)
	return &http.Server{
		Addr:              strings.TrimSpace(addr),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// RunStoreCollector pings the artifact store every scrape interval until ctx
// is done. db may be nil; when set its pool stats are exported too.
func (m *Metrics) RunStoreCollector(ctx context.Context, log *logger.Logger, store pinger, db *gorm.DB) error {
	if m == nil || store == nil {
		return nil
	}
	ticker := time.NewTicker(scrapeInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.collectStore(ctx, log, store)
			if db != nil {
				m.collectSQL(log, db)
			}
		}
	}
}

func (m *Metrics) collectStore(ctx context.Context, log *logger.Logger, store pinger) {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	start := time.Now()
	if err := store.Ping(pingCtx); err != nil {
		m.storeUp.Set(0)
		if log != nil && !errors.Is(err, context.Canceled) {
			log.Warn("metrics: artifact store ping failed", "error", err)
		}
		return
	}
	m.storeUp.Set(1)
	m.storePing.Set(time.Since(start).Seconds())
}

func (m *Metrics) collectSQL(log *logger.Logger, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		if log != nil {
			log.Warn("metrics: sql stats unavailable", "error", err)
		}
		return
	}
	stats := sqlDB.Stats()
	m.sqlStats.Set(float64(stats.OpenConnections), "open_connections")
	m.sqlStats.Set(float64(stats.InUse), "in_use")
	m.sqlStats.Set(float64(stats.Idle), "idle")
	m.sqlStats.Set(float64(stats.WaitCount), "wait_count")
	m.sqlStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
	m.sqlStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}
