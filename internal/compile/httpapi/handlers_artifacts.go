package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/sigcompile/internal/compile/artifact"
	"github.com/yungbote/sigcompile/internal/platform/apierr"
)

func (h *Handler) GetArtifact(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.log, apierr.New(http.StatusBadRequest, "invalid_artifact_id", errors.New("invalid artifact id")))
		return
	}
	a, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, artifactError(err))
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) ListArtifacts(c *gin.Context) {
	limit := artifact.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, h.log, apierr.New(http.StatusBadRequest, "invalid_limit",
				fmt.Errorf("limit must be a positive integer, got %q", raw)))
			return
		}
		limit = n
	}
	list, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.log, artifactError(err))
		return
	}
	if list == nil {
		list = []*artifact.Artifact{}
	}
	c.JSON(http.StatusOK, ArtifactsResponse{Artifacts: list})
}

func artifactError(err error) error {
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		return apierr.New(http.StatusNotFound, "artifact_not_found", artifact.ErrNotFound)
	case errors.Is(err, artifact.ErrDisabled):
		return apierr.New(http.StatusNotFound, "artifact_store_disabled", artifact.ErrDisabled)
	default:
		return err
	}
}
