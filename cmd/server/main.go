package main

import (
	"log"

	_ "kindergarten_billing/internal/domain/common"
	_ "kindergarten_billing/internal/domain/payment"
	"kindergarten_billing/internal/pkg/config"
	"kindergarten_billing/internal/pkg/middleware"
	"kindergarten_billing/internal/pkg/push"
	"kindergarten_billing/internal/pkg/registry"
	"kindergarten_billing/internal/pkg/uploader"
	"kindergarten_billing/pkg/database"
	"kindergarten_billing/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func main() {
	// 1. 配置与日志
	config.LoadConfig()
	logger.InitLogger(config.GlobalConfig.App.Debug)
	defer logger.Sync()

	// 2. 基础设施
	db := database.InitDatabase()
	rdb := database.InitRedis()

	// OSS 上传 (缴费凭证)，配置缺失不阻塞启动
	if err := uploader.InitUploader(); err != nil {
		log.Printf("Warning: uploader not initialized: %v", err)
	}
	// 推送服务 (缴费/退费通知)，配置缺失不阻塞启动
	if err := push.InitPushService(); err != nil {
		log.Printf("Warning: push service not initialized: %v", err)
	}

	// 3. HTTP 引擎与中间件
	gin.SetMode(config.GlobalConfig.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.RateLimitMiddleware())
	r.Use(middleware.MetricsMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 按优先级初始化各业务模块
	ctx := &registry.ModuleContext{
		DB:     db,
		Redis:  rdb,
		Router: r,
	}
	if err := registry.InitModules(ctx); err != nil {
		log.Fatalf("Failed to init modules: %v", err)
	}

	// 5. 启动
	addr := ":" + config.GlobalConfig.Server.Port
	log.Printf("Billing server listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Server exited: %v", err)
	}
}
