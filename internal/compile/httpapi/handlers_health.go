package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/sigcompile/internal/platform/ctxutil"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "healthy"})
}

// Ready reports whether dependencies answer. Only the artifact store can be
// unavailable; /health stays green regardless.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("readiness check failed", "error", err, "request_id", ctxutil.RequestID(ctx))
		respondDetail(c, http.StatusServiceUnavailable, "artifact store unavailable")
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ready"})
}
