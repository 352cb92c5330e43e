package middleware

import (
	"strings"
	"time"

	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TraceID takes the inbound X-Trace-Id or mints one, echoes it on the
// response and attaches it to the request context for logging.
func TraceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(consts.TraceIDHeader))
		if traceID == "" {
			traceID = uuid.New().String()
		}
		c.Header(consts.TraceIDHeader, traceID)
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}

// RequestLogger logs one line per request once the handler has finished.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			logger.CtxWarn(c.Request.Context(), "Request completed with server error", fields...)
			return
		}
		logger.CtxInfo(c.Request.Context(), "Request completed", fields...)
	}
}
