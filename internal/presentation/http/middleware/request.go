// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/security"
)

const requestIDKey = "requestId"

// RequestLogger tags every request with an id and logs its outcome on the
// http channel. Server errors log at ERROR, client errors at WARN.
func RequestLogger(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = security.GenerateULID()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"requestId", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.HTTP().Error("Request failed", attrs...)
		case status >= http.StatusBadRequest:
			logger.HTTP().Warn("Request rejected", attrs...)
		default:
			logger.HTTP().Debug("Request completed", attrs...)
		}
	}
}

// GetRequestID retrieves the request id set by RequestLogger.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// BodyLimit caps request bodies at maxBytes.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip OPTIONS requests (CORS preflight)
		if c.Request.Method == http.MethodOptions || maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large", "limit": maxBytes})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// PerformanceMiddleware records a marker per request, keyed by method and
// route pattern. Unmatched routes are not recorded.
func PerformanceMiddleware(tracker *performance.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		marker := tracker.StartOperation(c.Request.Method + " " + route)
		defer tracker.CompleteOperation(marker)

		c.Next()

		marker.AddMetadata("status", c.Writer.Status())
		if c.Writer.Status() >= http.StatusInternalServerError {
			marker.SetSuccess(false)
		}
		if err := c.Errors.Last(); err != nil && !marker.Success {
			marker.SetError(err.Err)
		}
	}
}
