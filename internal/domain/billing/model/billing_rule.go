package model

import (
	baseModel "kindergarten_billing/pkg/model"

	"github.com/shopspring/decimal"
)

// BillingRule 收费标准，由园务后台维护，收费模块只读消费
// 同一园所同一费用类别生效一条规则
type BillingRule struct {
	baseModel.BaseModel
	KindergartenID string          `gorm:"type:uuid;not null;index:idx_billing_rules_kid_type,unique" json:"kindergartenId"`
	FeeType        string          `gorm:"type:varchar(20);not null;index:idx_billing_rules_kid_type,unique" json:"feeType"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unitPrice"`
	DiscountTier   string          `gorm:"type:varchar(20)" json:"discountTier"`
}

func (BillingRule) TableName() string {
	return "billing_rules"
}
