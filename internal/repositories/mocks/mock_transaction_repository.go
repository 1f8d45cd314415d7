package mocks

import (
	"context"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockTransactionRepository struct {
	mock.Mock
}

func NewMockTransactionRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, transactionID)

	var txn *models.PaymentTransaction
	if args.Get(0) != nil {
		txn = args.Get(0).(*models.PaymentTransaction)
	}

	return txn, args.Error(1)
}

func (m *MockTransactionRepository) GetByOrderRef(ctx context.Context, orderRef string) ([]*models.PaymentTransaction, error) {
	args := m.Called(ctx, orderRef)

	var txns []*models.PaymentTransaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]*models.PaymentTransaction)
	}

	return txns, args.Error(1)
}

func (m *MockTransactionRepository) ClaimTransaction(ctx context.Context, transactionID string, to models.PaymentStatus, note string) (bool, error) {
	args := m.Called(ctx, transactionID, to, note)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) MarkRefunded(ctx context.Context, transactionID string, note string) (bool, error) {
	args := m.Called(ctx, transactionID, note)
	return args.Bool(0), args.Error(1)
}
