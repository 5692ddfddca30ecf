package middleware

import (
	"log/slog"
	"time"

	"hookrelay/internal/common"

	"github.com/gin-gonic/gin"
)

// Logger logs one structured line per request through slog.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"client_ip", c.ClientIP(),
			"duration", time.Since(start),
			"request_id", c.GetString(common.RequestIDKey),
		}

		switch {
		case status >= 500:
			slog.Error("http request", attrs...)
		case status >= 400:
			slog.Warn("http request", attrs...)
		default:
			slog.Info("http request", attrs...)
		}
	}
}
