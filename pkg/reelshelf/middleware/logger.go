package middleware

import (
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog logs every request with its request ID and, once auth has run,
// the caller's user ID.
func AccessLog(log *zap.Logger) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Skipper: func(c *gin.Context) bool {
			return c.Request.Method == "HEAD" || c.Request.URL.Path == "/health"
		},
		Context: func(c *gin.Context) []zapcore.Field {
			fields := []zapcore.Field{}

			if v := c.GetString(ContextKeyRequestID); v != "" {
				fields = append(fields, zap.String("request_id", v))
			}

			if v, ok := c.Get("user_id"); ok {
				if id, ok := v.(uint); ok {
					fields = append(fields, zap.Uint("user_id", id))
				}
			}

			return fields
		},
	})
}

// Recovery turns panics into 500s and logs them
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return ginzap.RecoveryWithZap(log, false)
}
