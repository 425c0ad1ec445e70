package payment

import (
	auditRepo "kindergarten_billing/internal/domain/audit/repository"
	billingRepo "kindergarten_billing/internal/domain/billing/repository"
	billingService "kindergarten_billing/internal/domain/billing/service"
	enrollmentRepo "kindergarten_billing/internal/domain/enrollment/repository"
	"kindergarten_billing/internal/domain/payment/handler"
	"kindergarten_billing/internal/domain/payment/repository"
	"kindergarten_billing/internal/domain/payment/service"
	"kindergarten_billing/internal/domain/payment/strategy"
	"kindergarten_billing/internal/pkg/config"
	"kindergarten_billing/internal/pkg/middleware"
	"kindergarten_billing/internal/pkg/registry"
	"kindergarten_billing/internal/pkg/worker"
	"kindergarten_billing/pkg/logger"

	"github.com/gin-gonic/gin"
)

// PaymentModule 收费模块
type PaymentModule struct{}

func init() {
	registry.Register(&PaymentModule{})
}

func (m *PaymentModule) Name() string {
	return "payment"
}

func (m *PaymentModule) Priority() int {
	// 收费模块依赖报名/收费标准等基础数据，优先级较低
	return 20
}

func (m *PaymentModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	pRepo := repository.NewPaymentRepository(ctx.DB)
	eRepo := enrollmentRepo.NewEnrollmentRepository(ctx.DB)
	bService := billingService.NewBillingRuleService(billingRepo.NewBillingRuleRepository(ctx.DB), ctx.Redis)

	// 审计日志异步写入池 (5个 Worker，缓冲队列 1000)
	auditPool := worker.NewAuditWorkerPool(auditRepo.NewAuditRepository(ctx.DB), 5, 1000)
	auditPool.Start()

	pService := service.NewPaymentService(pRepo, eRepo, bService, auditPool)

	// 2. 注册支付策略
	// 支付宝
	if config.GlobalConfig.Alipay.AppID != "" {
		alipayStrategy, err := strategy.NewAlipayStrategy()
		if err != nil {
			logger.Log.Error("Failed to init Alipay strategy: " + err.Error())
		} else {
			pService.RegisterStrategy("alipay", alipayStrategy)
		}
	}

	// 微信支付
	if config.GlobalConfig.Wechat.MchID != "" {
		wechatStrategy, err := strategy.NewWechatStrategy()
		if err != nil {
			logger.Log.Error("Failed to init Wechat strategy: " + err.Error())
		} else {
			pService.RegisterStrategy("wechat", wechatStrategy)
		}
	}

	pHandler := handler.NewPaymentHandler(pService)

	// 3. 路由注册
	setupRoutes(ctx.Router, pHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.PaymentHandler) {
	g := r.Group("/payments")

	// 支付回调 (无需鉴权，但需验签)
	g.POST("/notify/alipay", h.AlipayNotify)
	g.POST("/notify/wechat", h.WechatNotify)

	// 需要鉴权的接口
	auth := g.Group("")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("", h.CreatePayment)
		auth.GET("", h.ListPayments)
		auth.GET("/overdue", h.ListOverdue)
		auth.GET("/stats/revenue", h.GetRevenueStats)
		auth.GET("/:id", h.GetPayment)
		auth.GET("/:id/late-fee", h.GetLateFee)
		auth.POST("/:id/pay", h.InitiatePayment)
		auth.GET("/:id/refunds", h.ListRefunds)
		auth.POST("/:id/invoice", h.GenerateInvoice)

		// 人工结清、取消、退费仅限园务人员
		staff := auth.Group("")
		staff.Use(middleware.StaffMiddleware())
		{
			staff.POST("/:id/mark-paid", h.MarkAsPaid)
			staff.POST("/:id/cancel", h.CancelPayment)
			staff.POST("/:id/refunds", h.ProcessRefund)
		}
	}
}
