package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"kindergarten_billing/internal/domain/payment/model"
	"kindergarten_billing/internal/domain/payment/service"
	"kindergarten_billing/pkg/response"
	"kindergarten_billing/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentHandler struct {
	service service.PaymentService
}

func NewPaymentHandler(s service.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: s}
}

type CreatePaymentInput struct {
	EnrollmentID   string          `json:"enrollmentId" binding:"required,uuid"`
	StudentID      string          `json:"studentId" binding:"required,uuid"`
	KindergartenID string          `json:"kindergartenId" binding:"required,uuid"`
	Amount         string          `json:"amount"`
	Currency       string          `json:"currency" binding:"omitempty,oneof=CNY USD EUR"`
	Type           string          `json:"type" binding:"required,oneof=tuition meal activity material transport other"`
	Description    string          `json:"description"`
	DueDate        time.Time       `json:"dueDate" binding:"required"`
	Metadata       json.RawMessage `json:"metadata"`
}

// CreatePayment 创建缴费单
// @Summary 创建缴费单
// @Tags Payment
// @Accept json
// @Produce json
// @Param input body CreatePaymentInput true "Payment Info"
// @Success 200 {object} response.Response{data=model.Payment}
// @Router /payments [post]
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var input CreatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	amount := decimal.Zero
	if input.Amount != "" {
		var err error
		amount, err = decimal.NewFromString(input.Amount)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "amount must be a decimal string")
			return
		}
	}

	payment, err := h.service.CreatePayment(service.CreatePaymentInput{
		EnrollmentID:   input.EnrollmentID,
		StudentID:      input.StudentID,
		KindergartenID: input.KindergartenID,
		Amount:         amount,
		Currency:       model.Currency(input.Currency),
		Type:           model.PaymentType(input.Type),
		Description:    input.Description,
		DueDate:        input.DueDate,
		Metadata:       input.Metadata,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, payment)
}

// GetPayment 查询缴费单
// @Summary 查询缴费单
// @Tags Payment
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Response{data=model.Payment}
// @Router /payments/{id} [get]
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, payment)
}

type ListPaymentsInput struct {
	utils.Pagination
	Status    string `form:"status"`
	Method    string `form:"method"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// ListPayments 缴费单列表，支持状态/渠道/结清日期范围筛选
// @Summary 缴费单列表
// @Tags Payment
// @Produce json
// @Param status query string false "Status filter"
// @Param method query string false "Method filter"
// @Param startDate query string false "PaidAt range start (RFC3339)"
// @Param endDate query string false "PaidAt range end (RFC3339)"
// @Success 200 {object} response.Response{data=utils.PageResult}
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var input ListPaymentsInput
	if err := c.ShouldBindQuery(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}
	offset, limit := input.GetPageOffset()

	var (
		payments []model.Payment
		total    int64
		err      error
	)
	switch {
	case input.Status != "":
		payments, total, err = h.service.ListByStatus(model.PaymentStatus(input.Status), offset, limit)
	case input.Method != "":
		payments, total, err = h.service.ListByMethod(model.PaymentMethod(input.Method), offset, limit)
	case input.StartDate != "" && input.EndDate != "":
		var start, end time.Time
		if start, err = time.Parse(time.RFC3339, input.StartDate); err == nil {
			end, err = time.Parse(time.RFC3339, input.EndDate)
		}
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "dates must be RFC3339")
			return
		}
		payments, total, err = h.service.ListByDateRange(start, end, offset, limit)
	default:
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "one of status, method or date range is required")
		return
	}
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, utils.PageResult{
		List:  payments,
		Total: total,
		Page:  input.Page,
		Limit: input.Limit,
	})
}

// ListOverdue 逾期缴费单
// @Summary 逾期缴费单列表
// @Tags Payment
// @Produce json
// @Success 200 {object} response.Response{data=[]model.Payment}
// @Router /payments/overdue [get]
func (h *PaymentHandler) ListOverdue(c *gin.Context) {
	payments, err := h.service.ListOverdue(time.Now())
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, payments)
}

// GetLateFee 逾期与滞纳金
// @Summary 查询逾期状态与滞纳金
// @Tags Payment
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Response
// @Router /payments/{id}/late-fee [get]
func (h *PaymentHandler) GetLateFee(c *gin.Context) {
	id := c.Param("id")
	now := time.Now()

	overdue, err := h.service.IsOverdue(id, now)
	if err != nil {
		h.renderError(c, err)
		return
	}
	fee, err := h.service.CalculateLateFee(id, now)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, gin.H{
		"overdue": overdue,
		"lateFee": fee,
	})
}

type InitiatePaymentInput struct {
	Channel string `json:"channel" binding:"required,oneof=alipay wechat"`
	Subject string `json:"subject" binding:"required"`
}

// InitiatePayment 发起渠道支付
// @Summary 发起渠道支付
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body InitiatePaymentInput true "Channel Info"
// @Success 200 {object} response.Response
// @Router /payments/{id}/pay [post]
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var input InitiatePaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	payment, payParam, err := h.service.InitiatePayment(c.Param("id"), input.Channel, input.Subject)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, gin.H{
		"payment":   payment,
		"pay_param": payParam,
	})
}

type MarkAsPaidInput struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Method        string `json:"method" binding:"required,oneof=cash bank_transfer wechat_pay alipay credit_card other"`
}

// MarkAsPaid 人工结清（现金/银行转账）
// @Summary 人工结清缴费单
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body MarkAsPaidInput true "Settlement Info"
// @Success 200 {object} response.Response{data=model.Payment}
// @Router /payments/{id}/mark-paid [post]
func (h *PaymentHandler) MarkAsPaid(c *gin.Context) {
	var input MarkAsPaidInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	payment, err := h.service.MarkAsPaid(c.Param("id"), input.TransactionID, model.PaymentMethod(input.Method), time.Now())
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, payment)
}

// CancelPayment 取消缴费单
// @Summary 取消缴费单
// @Tags Payment
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Response{data=model.Payment}
// @Router /payments/{id}/cancel [post]
func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	payment, err := h.service.CancelPayment(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, payment)
}

type RefundInput struct {
	Amount string `json:"amount" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// ProcessRefund 退费
// @Summary 退费
// @Tags Payment
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param input body RefundInput true "Refund Info"
// @Success 200 {object} response.Response{data=model.Payment}
// @Router /payments/{id}/refunds [post]
func (h *PaymentHandler) ProcessRefund(c *gin.Context) {
	var input RefundInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "amount must be a decimal string")
		return
	}

	payment, err := h.service.ProcessRefund(c.Param("id"), amount, input.Reason)
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, payment)
}

// ListRefunds 退款流水
// @Summary 查询退款流水
// @Tags Payment
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Response{data=[]model.Refund}
// @Router /payments/{id}/refunds [get]
func (h *PaymentHandler) ListRefunds(c *gin.Context) {
	refunds, err := h.service.ListRefunds(c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, refunds)
}

// GenerateInvoice 开票
// @Summary 生成发票
// @Tags Payment
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Response{data=model.Invoice}
// @Router /payments/{id}/invoice [post]
func (h *PaymentHandler) GenerateInvoice(c *gin.Context) {
	invoice, err := h.service.GenerateInvoice(c.Param("id"), time.Now())
	if err != nil {
		h.renderError(c, err)
		return
	}
	response.Success(c, invoice)
}

// GetRevenueStats 收入统计
// @Summary 园所收入统计
// @Tags Payment
// @Produce json
// @Param kindergartenId query string false "Kindergarten ID"
// @Success 200 {object} response.Response
// @Router /payments/stats/revenue [get]
func (h *PaymentHandler) GetRevenueStats(c *gin.Context) {
	kindergartenID := c.Query("kindergartenId")

	total, err := h.service.SumRevenue(kindergartenID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	avg, err := h.service.AveragePayment(kindergartenID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	response.Success(c, gin.H{
		"totalRevenue":   total,
		"averagePayment": avg,
	})
}

// AlipayNotify 支付宝回调
// @Summary 支付宝回调
// @Tags Payment
// @Router /payments/notify/alipay [post]
func (h *PaymentHandler) AlipayNotify(c *gin.Context) {
	// 支付宝回调是 POST Form 格式
	c.Request.ParseForm()
	err := h.service.HandleNotify("alipay", c.Request.Form)
	if err != nil {
		c.String(http.StatusOK, "fail") // 告诉支付宝处理失败，它会重试
		return
	}
	c.String(http.StatusOK, "success")
}

// WechatNotify 微信支付回调
// @Summary 微信支付回调
// @Tags Payment
// @Router /payments/notify/wechat [post]
func (h *PaymentHandler) WechatNotify(c *gin.Context) {
	// 微信支付回调是 JSON 格式，且需要从 Header 获取签名信息
	// 传递 *http.Request 给 Strategy 处理
	err := h.service.HandleNotify("wechat", c.Request)
	if err != nil {
		// 返回 4xx/5xx 表示失败
		c.JSON(http.StatusInternalServerError, gin.H{"code": "FAIL", "message": err.Error()})
		return
	}
	// 返回 2xx 表示成功
	c.Status(http.StatusOK)
}

// renderError 将服务层错误分类映射为业务码
func (h *PaymentHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound) || errors.Is(err, gorm.ErrRecordNotFound):
		response.Error(c, http.StatusNotFound, response.ErrPaymentNotFound, err.Error())
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.Error(c, http.StatusNotFound, response.ErrEnrollmentNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidStateTransition):
		response.Fail(c, response.ErrInvalidTransition, err.Error())
	case errors.Is(err, service.ErrDuplicateTransaction):
		response.Fail(c, response.ErrDuplicateTransaction, err.Error())
	case errors.Is(err, service.ErrRefundNotAllowed):
		response.Fail(c, response.ErrRefundNotAllowed, err.Error())
	case errors.Is(err, service.ErrInvalidRefundAmount):
		response.Fail(c, response.ErrInvalidRefundAmount, err.Error())
	case errors.Is(err, service.ErrRefundExceedsAmount):
		response.Fail(c, response.ErrRefundExceedsAmount, err.Error())
	case errors.Is(err, service.ErrInvoiceNotAvailable):
		response.Fail(c, response.ErrInvoiceNotAvailable, err.Error())
	case errors.Is(err, service.ErrValidation):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
