package service

import (
	"errors"
	"testing"
	"time"

	"kindergarten_billing/internal/domain/payment/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockPaymentStrategy is a mock of PaymentStrategy
type MockPaymentStrategy struct {
	mock.Mock
}

func (m *MockPaymentStrategy) Pay(paymentID string, amount decimal.Decimal, subject string) (string, error) {
	args := m.Called(paymentID, amount, subject)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentStrategy) Notify(params interface{}) (string, string, bool, error) {
	args := m.Called(params)
	return args.String(0), args.String(1), args.Bool(2), args.Error(3)
}

func TestInitiatePayment(t *testing.T) {
	t.Run("Pending payment moves to processing", func(t *testing.T) {
		svc, mockRepo, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("alipay", mockStrategy)
		mockRepo.lockTarget = createTestPayment(model.StatusPending, "3000")
		mockRepo.On("UpdateWithLock", testPaymentID).Return(nil)
		mockStrategy.On("Pay", testPaymentID, mock.Anything, "2024秋季学费").
			Return("https://openapi.alipay.com/gateway.do?...", nil)

		payment, payParam, err := svc.InitiatePayment(testPaymentID, "alipay", "2024秋季学费")

		assert.NoError(t, err)
		assert.Equal(t, model.StatusProcessing, payment.Status)
		assert.NotEmpty(t, payParam)
		mockStrategy.AssertExpectations(t)
	})

	t.Run("Channel failure rolls back to pending", func(t *testing.T) {
		svc, mockRepo, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("alipay", mockStrategy)
		mockRepo.lockTarget = createTestPayment(model.StatusPending, "3000")
		mockRepo.On("UpdateWithLock", testPaymentID).Return(nil)
		mockStrategy.On("Pay", testPaymentID, mock.Anything, mock.Anything).
			Return("", errors.New("gateway unreachable"))

		_, _, err := svc.InitiatePayment(testPaymentID, "alipay", "2024秋季学费")

		assert.Error(t, err)
		assert.Equal(t, model.StatusPending, mockRepo.lockTarget.Status)
	})

	t.Run("Unknown channel rejected", func(t *testing.T) {
		svc, _, _, _ := newTestService()

		_, _, err := svc.InitiatePayment(testPaymentID, "paypal", "subject")

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Completed payment cannot be initiated", func(t *testing.T) {
		svc, mockRepo, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("alipay", mockStrategy)
		mockRepo.lockTarget = createTestPayment(model.StatusCompleted, "3000")
		mockRepo.On("UpdateWithLock", testPaymentID).Return(nil)

		_, _, err := svc.InitiatePayment(testPaymentID, "alipay", "subject")

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestHandleNotify(t *testing.T) {
	t.Run("Successful callback settles payment", func(t *testing.T) {
		svc, mockRepo, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("alipay", mockStrategy)
		mockRepo.lockTarget = createTestPayment(model.StatusProcessing, "3000")
		mockStrategy.On("Notify", mock.Anything).Return(testPaymentID, "ali-tx-001", true, nil)
		mockRepo.On("UpdateWithLock", testPaymentID).Return(nil)
		mockRepo.On("GetByTransactionID", "ali-tx-001").Return(nil, gorm.ErrRecordNotFound)

		err := svc.HandleNotify("alipay", nil)

		assert.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, mockRepo.lockTarget.Status)
		assert.Equal(t, model.MethodAlipay, *mockRepo.lockTarget.Method)
		assert.Equal(t, "ali-tx-001", *mockRepo.lockTarget.TransactionID)
	})

	t.Run("Failed callback fails payment", func(t *testing.T) {
		svc, mockRepo, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("wechat", mockStrategy)
		mockRepo.lockTarget = createTestPayment(model.StatusProcessing, "3000")
		mockStrategy.On("Notify", mock.Anything).Return(testPaymentID, "", false, nil)
		mockRepo.On("UpdateWithLock", testPaymentID).Return(nil)

		err := svc.HandleNotify("wechat", nil)

		assert.NoError(t, err)
		assert.Equal(t, model.StatusFailed, mockRepo.lockTarget.Status)
	})

	t.Run("Duplicate callback is idempotent", func(t *testing.T) {
		svc, mockRepo, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("alipay", mockStrategy)
		settled := createTestPayment(model.StatusCompleted, "3000")
		txID := "ali-tx-002"
		settled.TransactionID = &txID
		paidAt := time.Date(2024, 8, 30, 10, 0, 0, 0, time.UTC)
		settled.PaidAt = &paidAt
		mockRepo.lockTarget = settled
		mockStrategy.On("Notify", mock.Anything).Return(testPaymentID, txID, true, nil)
		mockRepo.On("UpdateWithLock", testPaymentID).Return(nil)
		mockRepo.On("GetByID", testPaymentID).Return(settled, nil)

		err := svc.HandleNotify("alipay", nil)

		assert.NoError(t, err)
		assert.Equal(t, paidAt, *settled.PaidAt)
	})

	t.Run("Invalid signature propagates error", func(t *testing.T) {
		svc, _, _, _ := newTestService()
		mockStrategy := new(MockPaymentStrategy)
		svc.RegisterStrategy("alipay", mockStrategy)
		mockStrategy.On("Notify", mock.Anything).Return("", "", false, errors.New("invalid signature"))

		err := svc.HandleNotify("alipay", nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid signature")
	})
}
