package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// parseWindow reads optional from/to RFC3339 query parameters, defaulting to
// the trailing defaultSpan ending now.
func parseWindow(c *gin.Context, defaultSpan time.Duration) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-defaultSpan)
	to := now

	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %v", err)
		}
		from = parsed.UTC()
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %v", err)
		}
		to = parsed.UTC()
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from must precede to")
	}
	return from, to, nil
}

func parseLimit(c *gin.Context, def, max int) int {
	v := c.Query("limit")
	if v == "" {
		return def
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
