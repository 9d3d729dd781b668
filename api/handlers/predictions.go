package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/churnwatch/churnwatch/internal/registry"
	"github.com/churnwatch/churnwatch/internal/store"
	"github.com/churnwatch/churnwatch/pkg/models"
)

type PredictionHandler struct {
	store    store.Store
	registry *registry.Registry
}

func NewPredictionHandler(predStore store.Store, reg *registry.Registry) *PredictionHandler {
	return &PredictionHandler{store: predStore, registry: reg}
}

type IngestPredictionRequest struct {
	Features       models.FeatureVector `json:"features" binding:"required"`
	PredictedClass *int                 `json:"predicted_class" binding:"required"`
	Probability    *float64             `json:"probability" binding:"required"`
	ModelVersion   string               `json:"model_version"`
	Timestamp      *time.Time           `json:"timestamp"`
	LatencyMS      *float64             `json:"latency_ms"`
}

// Ingest appends one served prediction to the log.
func (h *PredictionHandler) Ingest(c *gin.Context) {
	var req IngestPredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	modelVersion := req.ModelVersion
	if modelVersion == "" {
		if active := h.registry.Active(); active != nil {
			modelVersion = active.Version
		}
	}
	if modelVersion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model_version required when no model is active"})
		return
	}

	record := models.NewPredictionRecord(req.Features, *req.PredictedClass, *req.Probability, modelVersion)
	if req.Timestamp != nil {
		record.Timestamp = req.Timestamp.UTC()
	}
	record.LatencyMS = req.LatencyMS

	if err := h.store.Append(c.Request.Context(), record); err != nil {
		if errors.Is(err, store.ErrInvalidRecord) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prediction record"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store prediction"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":         record.ID,
		"risk_level": record.RiskLevel,
	})
}

// Stats summarizes the prediction log over a window.
func (h *PredictionHandler) Stats(c *gin.Context) {
	from, to, err := parseWindow(c, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.store.Stats(c.Request.Context(), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
