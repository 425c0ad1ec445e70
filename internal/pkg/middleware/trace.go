package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const traceIDKey = "traceID"

// TraceMiddleware 为每个请求分配追踪 ID
// 调用方（如支付网关回调的重放排查）可通过 X-Trace-ID 透传
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.Set(traceIDKey, traceID)
		c.Header("X-Trace-ID", traceID)

		c.Next()
	}
}

// TraceID 读取当前请求的追踪 ID
func TraceID(c *gin.Context) string {
	return c.GetString(traceIDKey)
}
