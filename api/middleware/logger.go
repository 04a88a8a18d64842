package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/OldStager01/finy-forecast/internal/logger"
)

// RequestLogger logs one line per request. Health probes and metric scrapes
// are logged at debug so they do not drown out forecast traffic.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		entry := logger.WithContext(c.Request.Context()).WithFields(logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"route":      route,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"bytes_in":   c.Request.ContentLength,
			"bytes_out":  c.Writer.Size(),
		})
		if metricID := c.Param("metric_id"); metricID != "" {
			entry = entry.WithField("metric_id", metricID)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		case isProbe(route):
			entry.Debug("Probe served")
		default:
			entry.Info("Request completed")
		}
	}
}

func isProbe(route string) bool {
	return strings.HasPrefix(route, "/health") || route == "/metrics"
}
