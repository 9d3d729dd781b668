package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/churnwatch/churnwatch/internal/registry"
)

type ModelHandler struct {
	registry *registry.Registry
}

func NewModelHandler(reg *registry.Registry) *ModelHandler {
	return &ModelHandler{registry: reg}
}

// Get returns the currently served model. The reference distribution is
// summarized rather than dumped in full.
func (h *ModelHandler) Get(c *gin.Context) {
	handle := h.registry.Active()
	if handle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active model"})
		return
	}

	resp := gin.H{
		"version":       handle.Version,
		"metrics":       handle.Metrics,
		"base_rate":     handle.BaseRate,
		"artifact_path": handle.ArtifactPath,
		"promoted_at":   handle.PromotedAt,
	}
	if handle.Reference != nil {
		resp["reference"] = gin.H{
			"captured_at":   handle.Reference.CapturedAt,
			"feature_count": handle.Reference.FeatureCount(),
		}
	}

	c.JSON(http.StatusOK, resp)
}
