package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/frontdesk-api/internal/model"
	"github.com/jwalitptl/frontdesk-api/pkg/logger"
)

// Logger returns a middleware that logs HTTP requests
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		log := RequestLogger(c, log)
		status := c.Writer.Status()
		fields := []interface{}{
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start).String(),
		}
		if caller, ok := model.CallerFrom(c.Request.Context()); ok {
			fields = append(fields, "user_id", caller.UserID, "role", caller.Role)
		}

		switch {
		case len(c.Errors) > 0:
			log.Error(c.Errors.Last().Err, "Request failed", fields...)
		case status >= 500:
			log.Error(nil, "Server error", fields...)
		case status >= 400:
			log.Warn("Client error", fields...)
		default:
			log.Info("Request processed", fields...)
		}
	}
}
