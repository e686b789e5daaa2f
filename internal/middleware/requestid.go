package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/frontdesk-api/pkg/logger"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID tags every request with an ID, echoed in X-Request-ID. A caller
// supplied ID is reused only if it is a UUID, so log lines cannot be forged
// through the header. The request context gets a logger carrying the ID.
func RequestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if _, err := uuid.Parse(rid); err != nil {
			rid = uuid.NewString()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)
		c.Request = c.Request.WithContext(log.With(ContextRequestID, rid).WithContext(c.Request.Context()))
		c.Next()
	}
}

// RequestLogger is the request scoped logger, or log outside RequestID.
func RequestLogger(c *gin.Context, log *logger.Logger) *logger.Logger {
	return logger.FromContext(c.Request.Context(), log)
}
