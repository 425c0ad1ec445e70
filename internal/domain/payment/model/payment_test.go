package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func newTestPayment(status PaymentStatus, amount string, dueDate time.Time) *Payment {
	return &Payment{
		Amount:       decimal.RequireFromString(amount),
		Currency:     CurrencyCNY,
		Type:         TypeTuition,
		Status:       status,
		DueDate:      dueDate,
		RefundAmount: decimal.Zero,
	}
}

func TestStateMachine(t *testing.T) {
	t.Run("Allowed transitions", func(t *testing.T) {
		allowed := []struct {
			from, to PaymentStatus
		}{
			{StatusPending, StatusProcessing},
			{StatusPending, StatusCompleted},
			{StatusPending, StatusFailed},
			{StatusPending, StatusCancelled},
			{StatusProcessing, StatusCompleted},
			{StatusProcessing, StatusFailed},
			{StatusCompleted, StatusRefunded},
			{StatusCompleted, StatusPartiallyRefunded},
			{StatusPartiallyRefunded, StatusRefunded},
			{StatusPartiallyRefunded, StatusPartiallyRefunded},
		}
		for _, tc := range allowed {
			assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
		}
	})

	t.Run("Rejected transitions", func(t *testing.T) {
		rejected := []struct {
			from, to PaymentStatus
		}{
			{StatusProcessing, StatusCancelled},
			{StatusCompleted, StatusPending},
			{StatusCompleted, StatusCancelled},
			{StatusFailed, StatusCompleted},
			{StatusCancelled, StatusPending},
			{StatusRefunded, StatusCompleted},
			{StatusRefunded, StatusPartiallyRefunded},
			{StatusPending, StatusRefunded},
		}
		for _, tc := range rejected {
			assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be rejected", tc.from, tc.to)
		}
	})

	t.Run("Terminal states accept nothing", func(t *testing.T) {
		for _, s := range []PaymentStatus{StatusFailed, StatusCancelled, StatusRefunded} {
			assert.True(t, s.IsTerminal(), "%s should be terminal", s)
		}
		for _, s := range []PaymentStatus{StatusPending, StatusProcessing, StatusCompleted, StatusPartiallyRefunded} {
			assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
		}
	})

	t.Run("Unknown status is invalid", func(t *testing.T) {
		assert.False(t, PaymentStatus("paid").Valid())
		assert.True(t, StatusPartiallyRefunded.Valid())
	})
}

func TestIsOverdue(t *testing.T) {
	dueDate := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Pending past due date is overdue", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		assert.True(t, p.IsOverdue(dueDate.AddDate(0, 0, 10)))
	})

	t.Run("Pending before due date is not overdue", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		assert.False(t, p.IsOverdue(dueDate.AddDate(0, 0, -1)))
	})

	t.Run("Due date itself is not overdue", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		assert.False(t, p.IsOverdue(dueDate))
	})

	t.Run("Completed payment is never overdue", func(t *testing.T) {
		p := newTestPayment(StatusCompleted, "3000", dueDate)
		assert.False(t, p.IsOverdue(dueDate.AddDate(0, 1, 0)))
	})

	t.Run("Cancelled payment is never overdue", func(t *testing.T) {
		p := newTestPayment(StatusCancelled, "3000", dueDate)
		assert.False(t, p.IsOverdue(dueDate.AddDate(0, 1, 0)))
	})
}

func TestCalculateLateFee(t *testing.T) {
	dueDate := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)
	dailyRate := decimal.NewFromInt(10)
	capFraction := decimal.NewFromFloat(0.10)

	t.Run("Ten days late below cap", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		fee := p.CalculateLateFee(dueDate.AddDate(0, 0, 10), dailyRate, capFraction)
		assert.True(t, fee.Equal(decimal.NewFromInt(100)), "expected 100, got %s", fee)
	})

	t.Run("Long overdue hits the cap", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		fee := p.CalculateLateFee(dueDate.AddDate(0, 0, 61), dailyRate, capFraction)
		assert.True(t, fee.Equal(decimal.NewFromInt(300)), "expected 300, got %s", fee)
	})

	t.Run("Partial day does not count", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		fee := p.CalculateLateFee(dueDate.Add(36*time.Hour), dailyRate, capFraction)
		assert.True(t, fee.Equal(decimal.NewFromInt(10)), "expected 10, got %s", fee)
	})

	t.Run("Not overdue yields zero", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		fee := p.CalculateLateFee(dueDate.AddDate(0, 0, -5), dailyRate, capFraction)
		assert.True(t, fee.IsZero())
	})

	t.Run("Completed payment yields zero", func(t *testing.T) {
		p := newTestPayment(StatusCompleted, "3000", dueDate)
		fee := p.CalculateLateFee(dueDate.AddDate(0, 0, 10), dailyRate, capFraction)
		assert.True(t, fee.IsZero())
	})

	t.Run("Fee truncated to currency minor units", func(t *testing.T) {
		p := newTestPayment(StatusPending, "99.99", dueDate)
		// cap = 99.99 × 0.10 = 9.999，截断到分
		fee := p.CalculateLateFee(dueDate.AddDate(0, 0, 30), dailyRate, capFraction)
		assert.True(t, fee.Equal(decimal.RequireFromString("9.99")), "expected 9.99, got %s", fee)
	})

	t.Run("Amount unchanged by late fee", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		_ = p.CalculateLateFee(dueDate.AddDate(0, 0, 10), dailyRate, capFraction)
		assert.True(t, p.Amount.Equal(decimal.NewFromInt(3000)))
	})
}

func TestCanRefund(t *testing.T) {
	dueDate := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Completed payment is refundable", func(t *testing.T) {
		p := newTestPayment(StatusCompleted, "3000", dueDate)
		assert.True(t, p.CanRefund())
		assert.True(t, p.RemainingRefundable().Equal(decimal.NewFromInt(3000)))
	})

	t.Run("Partially refunded payment is still refundable", func(t *testing.T) {
		p := newTestPayment(StatusPartiallyRefunded, "3000", dueDate)
		p.RefundAmount = decimal.NewFromInt(1000)
		assert.True(t, p.CanRefund())
		assert.True(t, p.RemainingRefundable().Equal(decimal.NewFromInt(2000)))
	})

	t.Run("Fully refunded payment is not refundable", func(t *testing.T) {
		p := newTestPayment(StatusRefunded, "3000", dueDate)
		p.RefundAmount = decimal.NewFromInt(3000)
		assert.False(t, p.CanRefund())
		assert.True(t, p.RemainingRefundable().IsZero())
	})

	t.Run("Pending payment is not refundable", func(t *testing.T) {
		p := newTestPayment(StatusPending, "3000", dueDate)
		assert.False(t, p.CanRefund())
	})
}
