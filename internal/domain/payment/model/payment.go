package model

import (
	"encoding/json"
	"time"

	baseModel "kindergarten_billing/pkg/model"

	"github.com/shopspring/decimal"
)

// PaymentStatus 缴费单状态
type PaymentStatus string

// PaymentType 费用类别
type PaymentType string

// PaymentMethod 支付渠道
type PaymentMethod string

// Currency 币种
type Currency string

const (
	StatusPending           PaymentStatus = "pending"
	StatusProcessing        PaymentStatus = "processing"
	StatusCompleted         PaymentStatus = "completed"
	StatusFailed            PaymentStatus = "failed"
	StatusCancelled         PaymentStatus = "cancelled"
	StatusRefunded          PaymentStatus = "refunded"
	StatusPartiallyRefunded PaymentStatus = "partially_refunded"

	TypeTuition   PaymentType = "tuition"
	TypeMeal      PaymentType = "meal"
	TypeActivity  PaymentType = "activity"
	TypeMaterial  PaymentType = "material"
	TypeTransport PaymentType = "transport"
	TypeOther     PaymentType = "other"

	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodWechatPay    PaymentMethod = "wechat_pay"
	MethodAlipay       PaymentMethod = "alipay"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodOther        PaymentMethod = "other"

	CurrencyCNY Currency = "CNY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// transitions 状态机转移表，不在表内的转移一律拒绝
var transitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:           {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing:        {StatusCompleted, StatusFailed},
	StatusCompleted:         {StatusRefunded, StatusPartiallyRefunded},
	StatusPartiallyRefunded: {StatusRefunded, StatusPartiallyRefunded},
}

// CanTransitionTo 判断状态转移是否合法
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	for _, t := range transitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal 终态不再接受任何转移
func (s PaymentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Valid 状态值合法性（反序列化边界校验）
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed,
		StatusCancelled, StatusRefunded, StatusPartiallyRefunded:
		return true
	}
	return false
}

// Valid 费用类别合法性
func (t PaymentType) Valid() bool {
	switch t {
	case TypeTuition, TypeMeal, TypeActivity, TypeMaterial, TypeTransport, TypeOther:
		return true
	}
	return false
}

// Valid 支付渠道合法性
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodWechatPay, MethodAlipay, MethodCreditCard, MethodOther:
		return true
	}
	return false
}

// Valid 币种合法性
func (c Currency) Valid() bool {
	switch c {
	case CurrencyCNY, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// MinorUnits 币种最小单位小数位数
func (c Currency) MinorUnits() int32 {
	// CNY/USD/EUR 均为 2 位
	return 2
}

// Payment 缴费单，收费模块的聚合根
// amount 创建后不可变，冲正通过新建缴费单完成；refund_amount 单调递增
type Payment struct {
	baseModel.BaseModel
	EnrollmentID   string          `gorm:"type:uuid;not null;index" json:"enrollmentId"`
	StudentID      string          `gorm:"type:uuid;not null;index" json:"studentId"`
	KindergartenID string          `gorm:"type:uuid;not null;index" json:"kindergartenId"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency       Currency        `gorm:"type:varchar(3);not null;default:'CNY'" json:"currency"`
	Type           PaymentType     `gorm:"type:varchar(20);not null;index" json:"type"`
	Method         *PaymentMethod  `gorm:"type:varchar(20)" json:"method,omitempty"`
	Status         PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	TransactionID  *string         `gorm:"uniqueIndex" json:"transactionId,omitempty"`
	Description    string          `gorm:"type:text" json:"description"`
	DueDate        time.Time       `gorm:"not null;index" json:"dueDate"`
	PaidAt         *time.Time      `gorm:"index" json:"paidAt,omitempty"`
	RefundAmount   decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"refundAmount"`
	RefundReason   *string         `gorm:"type:text" json:"refundReason,omitempty"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}

// IsOverdue 是否逾期：仅 pending 且已过缴费期限
// 实时计算，不落库，避免状态过期
func (p *Payment) IsOverdue(now time.Time) bool {
	return p.Status == StatusPending && now.After(p.DueDate)
}

// CanRefund 是否可退费：已完成或部分退费，且未退满
func (p *Payment) CanRefund() bool {
	return (p.Status == StatusCompleted || p.Status == StatusPartiallyRefunded) &&
		p.RefundAmount.LessThan(p.Amount)
}

// RemainingRefundable 剩余可退金额
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundAmount)
}

// CalculateLateFee 滞纳金计算，纯函数
// fee = min(逾期天数 × dailyRate, amount × capFraction)，按币种最小单位截断
// 计算结果仅供催缴参考，不修改 amount；实际收取需另建 other 类型缴费单
func (p *Payment) CalculateLateFee(now time.Time, dailyRate, capFraction decimal.Decimal) decimal.Decimal {
	if !p.IsOverdue(now) {
		return decimal.Zero
	}

	daysLate := int64(now.Sub(p.DueDate) / (24 * time.Hour))
	fee := dailyRate.Mul(decimal.NewFromInt(daysLate))
	cap := p.Amount.Mul(capFraction)
	if fee.GreaterThan(cap) {
		fee = cap
	}
	return fee.Truncate(p.Currency.MinorUnits())
}

// Refund 退款流水，缴费单的子账目
// 同一缴费单的退款金额之和恒等于 payment.refund_amount
type Refund struct {
	baseModel.BaseModel
	PaymentID string          `gorm:"type:uuid;not null;index" json:"paymentId"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Reason    string          `gorm:"type:text" json:"reason"`
}

func (Refund) TableName() string {
	return "refunds"
}

// Invoice 发票视图，由已结清的缴费单派生，不落库
type Invoice struct {
	InvoiceNumber string          `json:"invoiceNumber"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      Currency        `json:"currency"`
	IssueDate     time.Time       `json:"issueDate"`
	DueDate       time.Time       `json:"dueDate"`
}
