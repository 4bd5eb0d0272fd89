package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/sigcompile/internal/compile/module"
	"github.com/yungbote/sigcompile/internal/platform/apierr"
)

func (h *Handler) Compile(c *gin.Context) {
	var in CompileRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, h.log, bindError(err))
		return
	}

	res, err := h.compiler.Compile(c.Request.Context(), in.toService())
	if err != nil {
		var invalid *module.InvalidModuleTypeError
		if errors.As(err, &invalid) {
			err = apierr.New(h.unknownModuleStatus, "invalid_module_type", invalid)
		}
		respondError(c, h.log, err)
		return
	}

	if res.ArtifactID != "" {
		c.Header(headerArtifactID, res.ArtifactID)
	}
	c.JSON(http.StatusOK, CompileResponse{
		CompiledPrompt: res.Prompt,
		SignatureDict:  res.SignatureDict,
		ModuleType:     res.ModuleType,
	})
}
