package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/sigcompile/internal/compile/artifact"
	"github.com/yungbote/sigcompile/internal/compile/config"
	"github.com/yungbote/sigcompile/internal/compile/service"
	"github.com/yungbote/sigcompile/internal/observability"
	"github.com/yungbote/sigcompile/internal/platform/logger"
)

type Handler struct {
	log                 *logger.Logger
	metrics             *observability.Metrics
	compiler            *service.Compiler
	store               artifact.Store
	unknownModuleStatus int
}

func NewServer(cfg *config.Config, log *logger.Logger, compiler *service.Compiler, store artifact.Store, metrics *observability.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           NewHandler(cfg, log, compiler, store, metrics),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}
}

// NewHandler builds the API engine. store and metrics may be nil.
func NewHandler(cfg *config.Config, log *logger.Logger, compiler *service.Compiler, store artifact.Store, metrics *observability.Metrics) *gin.Engine {
	useJSONFieldNames()
	if store == nil {
		store = artifact.Nop()
	}
	h := &Handler{
		log:                 log.With("component", "httpapi"),
		metrics:             metrics,
		compiler:            compiler,
		store:               store,
		unknownModuleStatus: cfg.API.UnknownModuleStatus,
	}

	r := gin.New()
	r.Use(otelgin.Middleware(observability.DefaultServiceName))
	r.Use(traceContextMiddleware())
	r.Use(accessLogMiddleware(h.log))
	r.Use(metricsMiddleware(metrics))
	r.Use(recoverMiddleware(h.log))
	if len(cfg.API.CORSOrigins) > 0 {
		r.Use(corsMiddleware(cfg.API.CORSOrigins))
	}
	r.Use(maxBytesMiddleware(cfg.HTTP.MaxRequestBytes))

	r.GET("/health", h.Health)
	r.GET("/readyz", h.Ready)
	r.POST("/compile", h.Compile)
	if metrics != nil && cfg.Metrics.Addr == "" {
		r.GET("/metrics", gin.WrapF(metrics.WriteHTTP))
	}

	if cfg.Artifacts.Enabled() {
		r.GET("/artifacts", h.ListArtifacts)
		r.GET("/artifacts/:id", h.GetArtifact)
	}

	return r
}
