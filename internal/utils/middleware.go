package utils

import (
	"time"

	"github.com/gin-gonic/gin"
)

const loggerContextKey = "logger"

// ContextLogger stores a request-scoped logger (tagged with the request id) on the gin context.
func ContextLogger(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestLogger := logger
		if requestID := c.GetString("request_id"); requestID != "" {
			requestLogger = logger.With("request_id", requestID)
		}
		c.Set(loggerContextKey, requestLogger)
		c.Next()
	}
}

// GetLogger returns the request-scoped logger, or fallback when none was stored.
func GetLogger(c *gin.Context, fallback Logger) Logger {
	if value, ok := c.Get(loggerContextKey); ok {
		if l, ok := value.(Logger); ok {
			return l
		}
	}
	return fallback
}

// LoggerMiddleware writes one access log line per request. Level follows the status code.
func LoggerMiddleware(logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			return
		}

		fields := []interface{}{
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", path,
			"route", c.GetString("route_pattern"),
			"ip", c.ClientIP(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"response_size", c.Writer.Size(),
		}
		if c.Request.URL.RawQuery != "" {
			fields = append(fields, "query", c.Request.URL.RawQuery)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			logger.Error("Internal server error", fields...)
		case status >= 400:
			logger.Warn("Client request error", fields...)
		default:
			logger.Debug("HTTP request completed", fields...)
		}
	}
}
