// Package app wires configuration, logging, tracing, the artifact store and
// the HTTP server into one runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/sigcompile/internal/compile/artifact"
	"github.com/yungbote/sigcompile/internal/compile/config"
	"github.com/yungbote/sigcompile/internal/compile/httpapi"
	"github.com/yungbote/sigcompile/internal/compile/service"
	"github.com/yungbote/sigcompile/internal/observability"
	"github.com/yungbote/sigcompile/internal/platform/logger"
)

type App struct {
	Log    *logger.Logger
	Config *config.Config

	store         artifact.Store
	metrics       *observability.Metrics
	server        *http.Server
	metricsServer *http.Server
	otelShutdown  func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if !isDev(cfg.Env) {
		gin.SetMode(gin.ReleaseMode)
	}

	var otelShutdown func(context.Context) error
	if cfg.Tracing.Enabled {
		otelShutdown, err = observability.InitTracing(ctx, log, observability.TraceConfig{
			ServiceName: observability.DefaultServiceName,
			Environment: cfg.Env,
			Exporter:    cfg.Tracing.Exporter,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
	}

	if cfg.LM.Configured() {
		log.Info("language model configured",
			"provider", cfg.LM.Provider(),
			"base_url", cfg.LM.BaseURL,
			"api_key", cfg.LM.APIKey,
		)
	} else {
		log.Warn("language model not configured; set OPENAI_API_KEY", "provider", cfg.LM.Provider())
	}

	store, err := artifact.Open(ctx, cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	log.Info("artifact store ready", "store", string(cfg.Artifacts.Store))

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics()
		log.Info("metrics enabled", "addr", cfg.Metrics.Addr)
	}

	compiler := service.NewCompiler(log, store, service.Options{
		Model:       cfg.LM.Provider(),
		SaveTimeout: cfg.Artifacts.SaveTimeout.Duration,
		Metrics:     metrics,
	})

	a := &App{
		Log:          log,
		Config:       cfg,
		store:        store,
		metrics:      metrics,
		server:       httpapi.NewServer(cfg, log, compiler, store, metrics),
		otelShutdown: otelShutdown,
	}
	if metrics != nil && cfg.Metrics.Addr != "" {
		a.metricsServer = metrics.NewServer(cfg.Metrics.Addr)
	}
	return a, nil
}

// Run serves until ctx is cancelled or a listener fails, then drains
// in-flight requests within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	servers := []*http.Server{a.server}
	if a.metricsServer != nil {
		servers = append(servers, a.metricsServer)
	}
	for _, srv := range servers {
		g.Go(func() error {
			a.Log.Info("http server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	if a.metrics != nil && a.Config.Artifacts.Enabled() {
		var db *gorm.DB
		if gs, ok := a.store.(*artifact.GormStore); ok {
			db = gs.DB()
		}
		g.Go(func() error {
			return a.metrics.RunStoreCollector(gctx, a.Log, a.store, db)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		a.Log.Info("shutting down")
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if err := a.store.Close(); err != nil {
		a.Log.Warn("artifact store close failed", "error", err)
	}
	a.Log.Sync()
}

func isDev(env string) bool {
	switch env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
