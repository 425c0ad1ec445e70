package repository

import (
	"time"

	"kindergarten_billing/internal/domain/payment/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	Create(payment *model.Payment) error
	GetByID(id string) (*model.Payment, error)
	GetByTransactionID(transactionID string) (*model.Payment, error)
	ListByStatus(status model.PaymentStatus, offset, limit int) ([]model.Payment, int64, error)
	ListByMethod(method model.PaymentMethod, offset, limit int) ([]model.Payment, int64, error)
	ListByDateRange(start, end time.Time, offset, limit int) ([]model.Payment, int64, error)
	ListOverdue(now time.Time) ([]model.Payment, error)
	SumRevenue(kindergartenID string) (decimal.Decimal, error)
	AverageAmount(kindergartenID string) (decimal.Decimal, error)
	ListRefunds(paymentID string) ([]model.Refund, error)

	// UpdateWithLock 在事务内用行锁加载缴费单并执行 fn，串行化退款/状态变更
	// fn 返回非 nil 的退款流水时与缴费单在同一事务内落库；返回错误时整个事务回滚
	UpdateWithLock(id string, fn func(payment *model.Payment) (*model.Refund, error)) error
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(payment *model.Payment) error {
	return r.db.Create(payment).Error
}

func (r *paymentRepository) GetByID(id string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.First(&payment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) GetByTransactionID(transactionID string) (*model.Payment, error) {
	var payment model.Payment
	if err := r.db.First(&payment, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) ListByStatus(status model.PaymentStatus, offset, limit int) ([]model.Payment, int64, error) {
	return r.list(r.db.Model(&model.Payment{}).Where("status = ?", status), offset, limit)
}

func (r *paymentRepository) ListByMethod(method model.PaymentMethod, offset, limit int) ([]model.Payment, int64, error) {
	return r.list(r.db.Model(&model.Payment{}).Where("method = ?", method), offset, limit)
}

func (r *paymentRepository) ListByDateRange(start, end time.Time, offset, limit int) ([]model.Payment, int64, error) {
	return r.list(r.db.Model(&model.Payment{}).Where("paid_at BETWEEN ? AND ?", start, end), offset, limit)
}

func (r *paymentRepository) list(query *gorm.DB, offset, limit int) ([]model.Payment, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payments []model.Payment
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&payments).Error
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *paymentRepository) ListOverdue(now time.Time) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.
		Where("status = ? AND due_date < ?", model.StatusPending, now).
		Order("due_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) SumRevenue(kindergartenID string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := r.db.Model(&model.Payment{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("status = ?", model.StatusCompleted)
	if kindergartenID != "" {
		query = query.Where("kindergarten_id = ?", kindergartenID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

func (r *paymentRepository) AverageAmount(kindergartenID string) (decimal.Decimal, error) {
	var result struct {
		Avg decimal.Decimal
	}
	query := r.db.Model(&model.Payment{}).
		Select("COALESCE(AVG(amount), 0) AS avg").
		Where("status = ?", model.StatusCompleted)
	if kindergartenID != "" {
		query = query.Where("kindergarten_id = ?", kindergartenID)
	}
	if err := query.Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Avg, nil
}

func (r *paymentRepository) ListRefunds(paymentID string) ([]model.Refund, error) {
	var refunds []model.Refund
	err := r.db.Where("payment_id = ?", paymentID).Order("created_at ASC").Find(&refunds).Error
	if err != nil {
		return nil, err
	}
	return refunds, nil
}

func (r *paymentRepository) UpdateWithLock(id string, fn func(payment *model.Payment) (*model.Refund, error)) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var payment model.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&payment, "id = ?", id).Error; err != nil {
			return err
		}

		refund, err := fn(&payment)
		if err != nil {
			return err
		}
		if refund != nil {
			if err := tx.Create(refund).Error; err != nil {
				return err
			}
		}

		return tx.Save(&payment).Error
	})
}
