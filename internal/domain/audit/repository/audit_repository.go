package repository

import (
	"kindergarten_billing/internal/domain/audit/model"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Create(entry *model.AuditLog) error
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(entry *model.AuditLog) error {
	return r.db.Create(entry).Error
}
