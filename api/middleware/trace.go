package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OldStager01/finy-forecast/internal/logger"
	"github.com/OldStager01/finy-forecast/pkg/validation"
)

const TraceIDHeader = "X-Trace-ID"

// TraceID accepts a caller supplied trace id or mints one, and stores it on
// both the gin context and the request context so engine logs and events
// carry it.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := validation.SanitizeString(c.GetHeader(TraceIDHeader))
		if traceID == "" || len(traceID) > 64 {
			traceID = uuid.New().String()
		}

		c.Set("trace_id", traceID)
		c.Header(TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))

		c.Next()
	}
}

func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get("trace_id"); exists {
		if s, ok := traceID.(string); ok {
			return s
		}
	}
	return ""
}
