package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/compozy/catalog/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// LoggerMiddleware attaches a request-scoped logger to the request context
// and logs every completed request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.Request.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, requestID)
		}
		c.Header(requestIDHeader, requestID)
		reqLog := log.With("request_id", requestID)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), reqLog))
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		reqLog.Info("Request completed",
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"method", c.Request.Method,
			"status_code", c.Writer.Status(),
			"body_size", c.Writer.Size(),
			"path", path,
			"error", c.Errors.ByType(gin.ErrorTypePrivate).String(),
		)
	}
}
