package mocks

import (
	"context"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
	"github.com/stretchr/testify/mock"
)

type MockClient struct {
	mock.Mock
}

func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockClient) Kind() models.PaymentMethod {
	args := m.Called()
	return args.Get(0).(models.PaymentMethod)
}

func (m *MockClient) InitiateCheckout(ctx context.Context, req gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)

	var session *gateway.CheckoutSession
	if args.Get(0) != nil {
		session = args.Get(0).(*gateway.CheckoutSession)
	}

	return session, args.Error(1)
}

func (m *MockClient) QueryStatus(ctx context.Context, txn *models.PaymentTransaction) (*models.GatewayEvent, error) {
	args := m.Called(ctx, txn)

	var event *models.GatewayEvent
	if args.Get(0) != nil {
		event = args.Get(0).(*models.GatewayEvent)
	}

	return event, args.Error(1)
}

func (m *MockClient) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	args := m.Called(ctx, req)

	var result *gateway.RefundResult
	if args.Get(0) != nil {
		result = args.Get(0).(*gateway.RefundResult)
	}

	return result, args.Error(1)
}

func (m *MockClient) VerifyWebhook(payload []byte, signature string) bool {
	args := m.Called(payload, signature)
	return args.Bool(0)
}

func (m *MockClient) ParseWebhook(payload []byte) (*models.GatewayEvent, error) {
	args := m.Called(payload)

	var event *models.GatewayEvent
	if args.Get(0) != nil {
		event = args.Get(0).(*models.GatewayEvent)
	}

	return event, args.Error(1)
}

func (m *MockClient) VerifyCallback(params map[string]string) gateway.CallbackResult {
	args := m.Called(params)
	return args.Get(0).(gateway.CallbackResult)
}
