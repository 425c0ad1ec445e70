package model

import (
	"encoding/json"

	baseModel "kindergarten_billing/pkg/model"
)

// AuditLog 系统审计日志，每次缴费单状态变更写入一条
// 异步落库，写入失败不回滚业务
type AuditLog struct {
	baseModel.BaseModel
	KindergartenID string          `gorm:"type:uuid;index" json:"kindergartenId"`
	PaymentID      string          `gorm:"type:uuid;not null;index" json:"paymentId"`
	Action         string          `gorm:"type:varchar(50);not null" json:"action"`
	FromStatus     string          `gorm:"type:varchar(20)" json:"fromStatus"`
	ToStatus       string          `gorm:"type:varchar(20)" json:"toStatus"`
	Actor          string          `gorm:"type:varchar(100)" json:"actor"`
	Detail         json.RawMessage `gorm:"type:jsonb" json:"detail,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
