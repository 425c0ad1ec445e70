package repository

import (
	"kindergarten_billing/internal/domain/billing/model"

	"gorm.io/gorm"
)

type BillingRuleRepository interface {
	GetRule(kindergartenID, feeType string) (*model.BillingRule, error)
}

type billingRuleRepository struct {
	db *gorm.DB
}

func NewBillingRuleRepository(db *gorm.DB) BillingRuleRepository {
	return &billingRuleRepository{db: db}
}

func (r *billingRuleRepository) GetRule(kindergartenID, feeType string) (*model.BillingRule, error) {
	var rule model.BillingRule
	err := r.db.Where("kindergarten_id = ? AND fee_type = ?", kindergartenID, feeType).First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
