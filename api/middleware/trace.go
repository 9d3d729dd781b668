package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/churnwatch/churnwatch/internal/logger"
)

const (
	TraceIDHeader = "X-Trace-ID"
	traceIDKey    = "trace_id"
)

// TraceID tags each request with an ID, minting one when the caller did not
// supply an X-Trace-ID header, and threads it through the request context so
// downstream log entries can pick it up.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(traceIDKey, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))
		c.Header(TraceIDHeader, traceID)

		c.Next()
	}
}

func GetTraceID(c *gin.Context) string {
	id, _ := c.Get(traceIDKey)
	s, _ := id.(string)
	return s
}
