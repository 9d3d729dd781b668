package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/churnwatch/churnwatch/internal/retrain"
	"github.com/churnwatch/churnwatch/pkg/models"
)

type RetrainHandler struct {
	pipeline     *retrain.Pipeline
	defaultLimit int
	maxLimit     int
}

func NewRetrainHandler(pipeline *retrain.Pipeline, defaultLimit, maxLimit int) *RetrainHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &RetrainHandler{pipeline: pipeline, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

type TriggerRequest struct {
	Reason string `json:"reason"`
	Force  bool   `json:"force"`
}

// Trigger starts a retrain run and returns it immediately in PENDING state.
func (h *RetrainHandler) Trigger(c *gin.Context) {
	var req TriggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	reason := models.TriggerManual
	switch models.TriggerReason(req.Reason) {
	case "", models.TriggerManual:
	case models.TriggerDriftAlert, models.TriggerScheduled:
		reason = models.TriggerReason(req.Reason)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trigger reason"})
		return
	}

	run, err := h.pipeline.Trigger(c.Request.Context(), reason, req.Force)
	if err != nil {
		if errors.Is(err, retrain.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "a retrain run is already in progress"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger retrain"})
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// History lists past runs, newest first.
func (h *RetrainHandler) History(c *gin.Context) {
	limit := parseLimit(c, h.defaultLimit, h.maxLimit)

	runs, err := h.pipeline.History(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}

// Get returns a single run by ID.
func (h *RetrainHandler) Get(c *gin.Context) {
	run, err := h.pipeline.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, retrain.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// Cancel aborts the live run.
func (h *RetrainHandler) Cancel(c *gin.Context) {
	err := h.pipeline.Cancel(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, retrain.ErrRunNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		case errors.Is(err, retrain.ErrRunNotRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "run is not running"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel run"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "cancellation requested"})
}
