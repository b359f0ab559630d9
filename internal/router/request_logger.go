package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"proctrace/internal/telemetry"
)

// RequestLogger creates a gin middleware for logging requests using zap and
// recording the HTTP metric families.
func RequestLogger(log *zap.Logger, tel *telemetry.Telemetry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// Process request
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
			zap.String("client_ip", c.ClientIP()),
		}

		// The route template keeps metric label cardinality bounded; raw
		// paths with ids go to the logs only.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		tel.RecordHTTPRequest(route, c.Request.Method, strconv.Itoa(status), float64(elapsed.Milliseconds()))

		switch {
		case status >= 500:
			log.Error("Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			// Log successful requests at the Debug level to reduce noise
			log.Debug("Request processed", fields...)
		}
	}
}
