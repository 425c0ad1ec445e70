package common

import (
	commonHandler "kindergarten_billing/internal/pkg/common"
	"kindergarten_billing/internal/pkg/middleware"
	"kindergarten_billing/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CommonModule 通用功能模块
type CommonModule struct{}

func init() {
	registry.Register(&CommonModule{})
}

func (m *CommonModule) Name() string {
	return "common"
}

func (m *CommonModule) Priority() int {
	return 100 // 最后初始化
}

func (m *CommonModule) Init(ctx *registry.ModuleContext) error {
	// 注册通用路由
	setupRoutes(ctx.Router)
	return nil
}

func setupRoutes(r *gin.Engine) {
	// 缴费凭证上传接口
	r.POST("/receipts/upload", middleware.AuthMiddleware(), commonHandler.UploadReceipts)
}
