package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/churnwatch/churnwatch/pkg/database/queries"
	"github.com/churnwatch/churnwatch/pkg/models"
)

type AlertHandler struct {
	alerts       *queries.AlertRepository
	defaultLimit int
	maxLimit     int
}

func NewAlertHandler(alerts *queries.AlertRepository, defaultLimit, maxLimit int) *AlertHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &AlertHandler{alerts: alerts, defaultLimit: defaultLimit, maxLimit: maxLimit}
}

// List returns persisted alerts, newest first, optionally filtered by
// severity. Alert history lives in Postgres only.
func (h *AlertHandler) List(c *gin.Context) {
	if h.alerts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "alert history requires the postgres store"})
		return
	}

	severity := models.EventSeverity(c.Query("severity"))
	switch severity {
	case "", models.SeverityInfo, models.SeverityWarning, models.SeverityCritical:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity"})
		return
	}

	limit := parseLimit(c, h.defaultLimit, h.maxLimit)

	alerts, err := h.alerts.List(c.Request.Context(), severity, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}
