package middleware

import (
	"net/http"
	"strings"

	"kindergarten_billing/pkg/response"
	"kindergarten_billing/pkg/utils"

	"github.com/gin-gonic/gin"
)

// 角色常量，与 JWT claims 中的 role 字段对应
const (
	RoleParent = 0
	RoleStaff  = 1
	RoleAdmin  = 2
)

// AuthMiddleware JWT认证中间件
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		// 检查格式 "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.ErrTokenInvalid, "Invalid or expired token")
			c.Abort()
			return
		}

		// 将 userID 和 role 存入上下文
		c.Set("userID", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// StaffMiddleware 园务人员权限中间件，人工结清/取消/退费等资金操作专用
func StaffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusUnauthorized, response.ErrNoPermission, "Unauthorized")
			c.Abort()
			return
		}

		roleInt, ok := role.(int)
		if !ok {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Invalid role format")
			c.Abort()
			return
		}

		if roleInt != RoleStaff && roleInt != RoleAdmin {
			response.Error(c, http.StatusForbidden, response.ErrNoPermission, "Staff permission required")
			c.Abort()
			return
		}

		c.Next()
	}
}
