package middleware

import (
	"time"

	"kindergarten_billing/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LoggerMiddleware 访问日志，复用 TraceMiddleware 分配的追踪 ID
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		cost := time.Since(start)
		status := c.Writer.Status()

		if logger.Log != nil {
			fields := []zap.Field{
				zap.Int("status", status),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.String("query", query),
				zap.String("ip", c.ClientIP()),
				zap.String("trace_id", TraceID(c)),
				zap.Duration("cost", cost),
			}
			// 鉴权后的请求带上操作人，便于费用变更追溯
			if userID := c.GetString("userID"); userID != "" {
				fields = append(fields, zap.String("user_id", userID))
			}
			logger.Log.Info(path, fields...)
		}
	}
}
