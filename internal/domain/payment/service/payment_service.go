package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	billingService "kindergarten_billing/internal/domain/billing/service"
	enrollmentRepo "kindergarten_billing/internal/domain/enrollment/repository"
	"kindergarten_billing/internal/domain/payment/model"
	"kindergarten_billing/internal/domain/payment/repository"
	"kindergarten_billing/internal/domain/payment/strategy"
	auditModel "kindergarten_billing/internal/domain/audit/model"
	"kindergarten_billing/internal/pkg/push"
	"kindergarten_billing/internal/pkg/worker"
	"kindergarten_billing/pkg/metrics"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreatePaymentInput 创建缴费单参数
// Amount 为零时按园所收费标准补全
type CreatePaymentInput struct {
	EnrollmentID   string
	StudentID      string
	KindergartenID string
	Amount         decimal.Decimal
	Currency       model.Currency
	Type           model.PaymentType
	Description    string
	DueDate        time.Time
	Metadata       json.RawMessage
}

// PaymentService 缴费台账服务，唯一允许变更缴费单状态的组件
type PaymentService interface {
	CreatePayment(input CreatePaymentInput) (*model.Payment, error)
	InitiatePayment(id, channel, subject string) (*model.Payment, string, error)
	MarkAsPaid(id, transactionID string, method model.PaymentMethod, now time.Time) (*model.Payment, error)
	FailPayment(id string) (*model.Payment, error)
	CancelPayment(id string) (*model.Payment, error)
	ProcessRefund(id string, amount decimal.Decimal, reason string) (*model.Payment, error)

	IsOverdue(id string, now time.Time) (bool, error)
	CalculateLateFee(id string, now time.Time) (decimal.Decimal, error)
	GenerateInvoice(id string, now time.Time) (*model.Invoice, error)

	GetPayment(id string) (*model.Payment, error)
	ListByStatus(status model.PaymentStatus, offset, limit int) ([]model.Payment, int64, error)
	ListByMethod(method model.PaymentMethod, offset, limit int) ([]model.Payment, int64, error)
	ListByDateRange(start, end time.Time, offset, limit int) ([]model.Payment, int64, error)
	ListOverdue(now time.Time) ([]model.Payment, error)
	ListRefunds(paymentID string) ([]model.Refund, error)
	SumRevenue(kindergartenID string) (decimal.Decimal, error)
	AveragePayment(kindergartenID string) (decimal.Decimal, error)

	RegisterStrategy(channel string, strategy strategy.PaymentStrategy)
	HandleNotify(channel string, params interface{}) error
}

type paymentService struct {
	repo        repository.PaymentRepository
	enrollments enrollmentRepo.EnrollmentRepository
	billing     billingService.BillingRuleService
	auditPool   *worker.AuditWorkerPool
	strategies  map[string]strategy.PaymentStrategy
	lateFee     LateFeeRule
}

func NewPaymentService(
	repo repository.PaymentRepository,
	enrollments enrollmentRepo.EnrollmentRepository,
	billing billingService.BillingRuleService,
	auditPool *worker.AuditWorkerPool,
) PaymentService {
	return &paymentService{
		repo:        repo,
		enrollments: enrollments,
		billing:     billing,
		auditPool:   auditPool,
		strategies:  make(map[string]strategy.PaymentStrategy),
		lateFee:     DefaultLateFeeRule(),
	}
}

// RegisterStrategy 注册支付渠道策略
func (s *paymentService) RegisterStrategy(channel string, strategy strategy.PaymentStrategy) {
	s.strategies[channel] = strategy
}

func (s *paymentService) CreatePayment(input CreatePaymentInput) (*model.Payment, error) {
	if input.EnrollmentID == "" {
		return nil, newValidationError("enrollmentId", "is required")
	}
	if input.StudentID == "" {
		return nil, newValidationError("studentId", "is required")
	}
	if input.KindergartenID == "" {
		return nil, newValidationError("kindergartenId", "is required")
	}
	if !input.Type.Valid() {
		return nil, newValidationError("type", "is not a known payment type")
	}
	if input.Currency == "" {
		input.Currency = model.CurrencyCNY
	}
	if !input.Currency.Valid() {
		return nil, newValidationError("currency", "is not a supported currency")
	}
	if input.DueDate.IsZero() {
		return nil, newValidationError("dueDate", "is required")
	}
	if input.Amount.IsNegative() {
		return nil, newValidationError("amount", "must be positive")
	}

	// 外键校验：报名记录、幼儿、园所必须存在
	if _, err := s.enrollments.GetByID(input.EnrollmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, err
	}
	if ok, err := s.enrollments.StudentExists(input.StudentID); err != nil {
		return nil, err
	} else if !ok {
		return nil, newValidationError("studentId", "does not exist")
	}
	if ok, err := s.enrollments.KindergartenExists(input.KindergartenID); err != nil {
		return nil, err
	} else if !ok {
		return nil, newValidationError("kindergartenId", "does not exist")
	}

	// 金额缺省时按园所收费标准补全
	if input.Amount.IsZero() {
		rule, err := s.billing.GetRule(context.Background(), input.KindergartenID, string(input.Type))
		if err != nil {
			if errors.Is(err, billingService.ErrRuleNotFound) {
				return nil, newValidationError("amount", "is required when no billing rule exists")
			}
			return nil, err
		}
		input.Amount = rule.UnitPrice
	}
	if !input.Amount.IsPositive() {
		return nil, newValidationError("amount", "must be positive")
	}

	payment := &model.Payment{
		EnrollmentID:   input.EnrollmentID,
		StudentID:      input.StudentID,
		KindergartenID: input.KindergartenID,
		Amount:         input.Amount,
		Currency:       input.Currency,
		Type:           input.Type,
		Status:         model.StatusPending,
		Description:    input.Description,
		DueDate:        input.DueDate,
		RefundAmount:   decimal.Zero,
		Metadata:       input.Metadata,
	}

	if err := s.repo.Create(payment); err != nil {
		return nil, err
	}

	s.audit(payment, "create", "", string(model.StatusPending), nil)
	return payment, nil
}

// InitiatePayment 发起渠道支付：pending → processing，返回渠道支付参数
func (s *paymentService) InitiatePayment(id, channel, subject string) (*model.Payment, string, error) {
	strat, ok := s.strategies[channel]
	if !ok {
		return nil, "", newValidationError("channel", "is not a supported payment channel")
	}

	var payParam string
	payment, err := s.transition(id, "initiate", func(p *model.Payment) error {
		if !p.Status.CanTransitionTo(model.StatusProcessing) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.Status, model.StatusProcessing)
		}
		p.Status = model.StatusProcessing
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	payParam, err = strat.Pay(payment.ID, payment.Amount, subject)
	if err != nil {
		// 渠道下单失败，回退到 pending 等待重试
		if _, rbErr := s.transition(id, "initiate_rollback", func(p *model.Payment) error {
			if p.Status == model.StatusProcessing {
				p.Status = model.StatusPending
			}
			return nil
		}); rbErr != nil {
			return nil, "", rbErr
		}
		return nil, "", err
	}

	return payment, payParam, nil
}

// MarkAsPaid 结清：pending|processing → completed
func (s *paymentService) MarkAsPaid(id, transactionID string, method model.PaymentMethod, now time.Time) (*model.Payment, error) {
	if transactionID == "" {
		return nil, newValidationError("transactionId", "is required")
	}
	if !method.Valid() {
		return nil, newValidationError("method", "is not a known payment method")
	}

	return s.transition(id, "mark_as_paid", func(p *model.Payment) error {
		if !p.Status.CanTransitionTo(model.StatusCompleted) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.Status, model.StatusCompleted)
		}

		// 网关流水号全局唯一；唯一索引兜底并发竞争
		if existing, err := s.repo.GetByTransactionID(transactionID); err == nil && existing.ID != p.ID {
			return ErrDuplicateTransaction
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		p.Status = model.StatusCompleted
		p.PaidAt = &now
		p.TransactionID = &transactionID
		p.Method = &method
		return nil
	})
}

// FailPayment 支付失败：pending|processing → failed，无资金影响
func (s *paymentService) FailPayment(id string) (*model.Payment, error) {
	return s.transition(id, "fail", func(p *model.Payment) error {
		if !p.Status.CanTransitionTo(model.StatusFailed) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.Status, model.StatusFailed)
		}
		p.Status = model.StatusFailed
		return nil
	})
}

// CancelPayment 取消：仅 pending → cancelled，资金一旦流动不允许取消
func (s *paymentService) CancelPayment(id string) (*model.Payment, error) {
	return s.transition(id, "cancel", func(p *model.Payment) error {
		if p.Status != model.StatusPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, p.Status, model.StatusCancelled)
		}
		p.Status = model.StatusCancelled
		return nil
	})
}

// ProcessRefund 退费，行锁内复验前置条件，并发超退的一方必然失败
func (s *paymentService) ProcessRefund(id string, amount decimal.Decimal, reason string) (*model.Payment, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidRefundAmount
	}

	collector := metrics.GetGlobalCollector()
	var fromStatus model.PaymentStatus

	payment, err := s.update(id, func(p *model.Payment) (*model.Refund, error) {
		fromStatus = p.Status

		if !p.CanRefund() {
			return nil, ErrRefundNotAllowed
		}
		if p.RefundAmount.Add(amount).GreaterThan(p.Amount) {
			return nil, ErrRefundExceedsAmount
		}

		p.RefundAmount = p.RefundAmount.Add(amount)
		p.RefundReason = &reason
		if p.RefundAmount.Equal(p.Amount) {
			p.Status = model.StatusRefunded
		} else {
			p.Status = model.StatusPartiallyRefunded
		}

		// 退款流水与缴费单同事务落库，保证流水合计与 refund_amount 一致
		return &model.Refund{
			PaymentID: p.ID,
			Amount:    amount,
			Reason:    reason,
		}, nil
	})
	if err != nil {
		collector.RecordRefund("failed", "", 0)
		return nil, err
	}

	amountFloat, _ := amount.Float64()
	collector.RecordRefund("success", string(payment.Currency), amountFloat)
	collector.RecordTransition(string(fromStatus), string(payment.Status))
	s.audit(payment, "process_refund", string(fromStatus), string(payment.Status),
		json.RawMessage(fmt.Sprintf(`{"amount":%q,"reason":%q}`, amount.String(), reason)))
	s.notifyPayer(payment, "退费成功", fmt.Sprintf("缴费单 %s 已退费 %s %s", payment.ID, amount.String(), payment.Currency))

	return payment, nil
}

// IsOverdue 是否逾期，实时计算
func (s *paymentService) IsOverdue(id string, now time.Time) (bool, error) {
	payment, err := s.GetPayment(id)
	if err != nil {
		return false, err
	}
	return payment.IsOverdue(now), nil
}

// CalculateLateFee 滞纳金计算，仅供催缴参考
func (s *paymentService) CalculateLateFee(id string, now time.Time) (decimal.Decimal, error) {
	payment, err := s.GetPayment(id)
	if err != nil {
		return decimal.Zero, err
	}
	return payment.CalculateLateFee(now, s.lateFee.DailyRate, s.lateFee.CapFraction), nil
}

// GenerateInvoice 开票，仅对已结清（含退费中/退费完成）的缴费单开放
// 重复开票返回新票号
func (s *paymentService) GenerateInvoice(id string, now time.Time) (*model.Invoice, error) {
	payment, err := s.GetPayment(id)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case model.StatusCompleted, model.StatusPartiallyRefunded, model.StatusRefunded:
	default:
		return nil, ErrInvoiceNotAvailable
	}

	metrics.GetGlobalCollector().RecordInvoiceIssued()
	return &model.Invoice{
		InvoiceNumber: invoiceNumber(payment.ID, now),
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		IssueDate:     now,
		DueDate:       payment.DueDate,
	}, nil
}

func (s *paymentService) GetPayment(id string) (*model.Payment, error) {
	payment, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

func (s *paymentService) ListByStatus(status model.PaymentStatus, offset, limit int) ([]model.Payment, int64, error) {
	if !status.Valid() {
		return nil, 0, newValidationError("status", "is not a known payment status")
	}
	return s.repo.ListByStatus(status, offset, limit)
}

func (s *paymentService) ListByMethod(method model.PaymentMethod, offset, limit int) ([]model.Payment, int64, error) {
	if !method.Valid() {
		return nil, 0, newValidationError("method", "is not a known payment method")
	}
	return s.repo.ListByMethod(method, offset, limit)
}

func (s *paymentService) ListByDateRange(start, end time.Time, offset, limit int) ([]model.Payment, int64, error) {
	if end.Before(start) {
		return nil, 0, newValidationError("endDate", "must not be before startDate")
	}
	return s.repo.ListByDateRange(start, end, offset, limit)
}

func (s *paymentService) ListOverdue(now time.Time) ([]model.Payment, error) {
	return s.repo.ListOverdue(now)
}

func (s *paymentService) ListRefunds(paymentID string) ([]model.Refund, error) {
	if _, err := s.GetPayment(paymentID); err != nil {
		return nil, err
	}
	return s.repo.ListRefunds(paymentID)
}

func (s *paymentService) SumRevenue(kindergartenID string) (decimal.Decimal, error) {
	return s.repo.SumRevenue(kindergartenID)
}

func (s *paymentService) AveragePayment(kindergartenID string) (decimal.Decimal, error) {
	return s.repo.AverageAmount(kindergartenID)
}

// HandleNotify 支付渠道回调：验签、定位缴费单、驱动状态机
// 重复回调会被状态机以 InvalidStateTransition 拒绝，渠道侧按成功处理即可
func (s *paymentService) HandleNotify(channel string, params interface{}) error {
	strat, ok := s.strategies[channel]
	if !ok {
		return newValidationError("channel", "is not a supported payment channel")
	}

	paymentID, transactionID, success, err := strat.Notify(params)
	if err != nil {
		return err
	}

	if !success {
		_, err := s.FailPayment(paymentID)
		return err
	}

	payment, err := s.MarkAsPaid(paymentID, transactionID, methodForChannel(channel), time.Now())
	if err != nil {
		// 重复回调：已结清且流水号一致时幂等返回成功
		if errors.Is(err, ErrInvalidStateTransition) {
			if existing, getErr := s.GetPayment(paymentID); getErr == nil &&
				existing.Status == model.StatusCompleted &&
				existing.TransactionID != nil && *existing.TransactionID == transactionID {
				return nil
			}
		}
		return err
	}

	s.notifyPayer(payment, "缴费成功", fmt.Sprintf("缴费单 %s 已缴清，金额 %s %s", payment.ID, payment.Amount.String(), payment.Currency))
	return nil
}

func methodForChannel(channel string) model.PaymentMethod {
	switch channel {
	case "alipay":
		return model.MethodAlipay
	case "wechat":
		return model.MethodWechatPay
	default:
		return model.MethodOther
	}
}

// transition 行锁内执行状态变更并记录审计与指标
func (s *paymentService) transition(id, action string, fn func(p *model.Payment) error) (*model.Payment, error) {
	var fromStatus model.PaymentStatus
	payment, err := s.update(id, func(p *model.Payment) (*model.Refund, error) {
		fromStatus = p.Status
		return nil, fn(p)
	})
	if err != nil {
		return nil, err
	}

	if fromStatus != payment.Status {
		metrics.GetGlobalCollector().RecordTransition(string(fromStatus), string(payment.Status))
		s.audit(payment, action, string(fromStatus), string(payment.Status), nil)
	}
	return payment, nil
}

func (s *paymentService) update(id string, fn func(p *model.Payment) (*model.Refund, error)) (*model.Payment, error) {
	var updated *model.Payment
	err := s.repo.UpdateWithLock(id, func(p *model.Payment) (*model.Refund, error) {
		refund, err := fn(p)
		if err != nil {
			return nil, err
		}
		updated = p
		return refund, nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return updated, nil
}

// audit 投递审计日志，fire-and-forget
func (s *paymentService) audit(p *model.Payment, action, from, to string, detail json.RawMessage) {
	if s.auditPool == nil {
		return
	}
	s.auditPool.AddTask(worker.AuditTask{
		Entry: auditModel.AuditLog{
			KindergartenID: p.KindergartenID,
			PaymentID:      p.ID,
			Action:         action,
			FromStatus:     from,
			ToStatus:       to,
			Actor:          "ledger",
			Detail:         detail,
		},
	})
}

// notifyPayer 结算/退费后的家长推送，失败不影响业务
func (s *paymentService) notifyPayer(p *model.Payment, title, body string) {
	if push.GlobalPushService == nil {
		return
	}
	go func() {
		if err := push.GlobalPushService.PushToAccount(p.StudentID, title, body, nil); err != nil {
			fmt.Printf("Failed to push payment notification for student %s: %v\n", p.StudentID, err)
		}
	}()
}
