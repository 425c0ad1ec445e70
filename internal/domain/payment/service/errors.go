package service

import (
	"errors"
	"fmt"
)

// 收费模块的错误分类，调用方通过 errors.Is 分支处理
var (
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrDuplicateTransaction   = errors.New("transaction id already in use")
	ErrRefundNotAllowed       = errors.New("payment cannot be refunded")
	ErrInvalidRefundAmount    = errors.New("refund amount must be positive")
	ErrRefundExceedsAmount    = errors.New("refund exceeds payment amount")
	ErrInvoiceNotAvailable    = errors.New("invoice only available for settled payments")
	ErrEnrollmentNotFound     = errors.New("enrollment not found")
	ErrValidation             = errors.New("validation failed")
)

// ValidationError 字段级校验错误，在任何状态变更之前拒绝
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is 支持 errors.Is(err, ErrValidation)
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
