package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/churnwatch/churnwatch/internal/monitor"
	"github.com/churnwatch/churnwatch/internal/registry"
)

type MonitorHandler struct {
	monitor      *monitor.Monitor
	defaultLimit int
	maxLimit     int
}

func NewMonitorHandler(mon *monitor.Monitor, defaultLimit, maxLimit int) *MonitorHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &MonitorHandler{monitor: mon, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// Evaluate runs one on-demand evaluation over the requested window.
func (h *MonitorHandler) Evaluate(c *gin.Context) {
	from, to, err := parseWindow(c, 24*time.Hour)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.monitor.Evaluate(c.Request.Context(), from, to)
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrInsufficientData):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		case errors.Is(err, registry.ErrNoActiveModel):
			c.JSON(http.StatusConflict, gin.H{"error": "no active model to evaluate against"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "evaluation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// Status returns the consolidated state from the most recent evaluation.
func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.monitor.Status())
}

// Reports lists recent drift reports, newest first.
func (h *MonitorHandler) Reports(c *gin.Context) {
	limit := parseLimit(c, h.defaultLimit, h.maxLimit)

	reports, err := h.monitor.Reports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}
