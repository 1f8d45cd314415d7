package mocks

import (
	"context"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	service "github.com/maian3333/ridehub-ms-booking/internal/services"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
	"github.com/stretchr/testify/mock"
)

type mockConstructorTestingT interface {
	mock.TestingT
	Cleanup(func())
}

type MockNotificationService struct {
	mock.Mock
}

func NewMockNotificationService(t mockConstructorTestingT) *MockNotificationService {
	m := &MockNotificationService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockNotificationService) SendPaymentConfirmation(ctx context.Context, txn *models.PaymentTransaction, recipient string) {
	m.Called(ctx, txn, recipient)
}

type MockPaymentService struct {
	mock.Mock
}

func NewMockPaymentService(t mockConstructorTestingT) *MockPaymentService {
	m := &MockPaymentService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockPaymentService) InitiateCheckout(ctx context.Context, req *models.InitiateCheckoutRequest, clientIP string) (*models.InitiateCheckoutResponse, error) {
	args := m.Called(ctx, req, clientIP)

	var resp *models.InitiateCheckoutResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*models.InitiateCheckoutResponse)
	}

	return resp, args.Error(1)
}

func (m *MockPaymentService) ProcessWebhook(ctx context.Context, method models.PaymentMethod, payload []byte, signature string) (*service.WebhookResult, error) {
	args := m.Called(ctx, method, payload, signature)

	var result *service.WebhookResult
	if args.Get(0) != nil {
		result = args.Get(0).(*service.WebhookResult)
	}

	return result, args.Error(1)
}

func (m *MockPaymentService) VerifyCallback(ctx context.Context, method models.PaymentMethod, params map[string]string) (*gateway.CallbackResult, error) {
	args := m.Called(ctx, method, params)

	var result *gateway.CallbackResult
	if args.Get(0) != nil {
		result = args.Get(0).(*gateway.CallbackResult)
	}

	return result, args.Error(1)
}

func (m *MockPaymentService) QueryStatus(ctx context.Context, method models.PaymentMethod, transactionID string) (*models.QueryStatusResponse, error) {
	args := m.Called(ctx, method, transactionID)

	var resp *models.QueryStatusResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*models.QueryStatusResponse)
	}

	return resp, args.Error(1)
}

func (m *MockPaymentService) Refund(ctx context.Context, method models.PaymentMethod, transactionID string, req *models.RefundRequest, clientIP string) (*models.PaymentTransaction, error) {
	args := m.Called(ctx, method, transactionID, req, clientIP)

	var txn *models.PaymentTransaction
	if args.Get(0) != nil {
		txn = args.Get(0).(*models.PaymentTransaction)
	}

	return txn, args.Error(1)
}

func (m *MockPaymentService) PollTransaction(ctx context.Context, method models.PaymentMethod, transactionID string) (*service.WebhookResult, error) {
	args := m.Called(ctx, method, transactionID)

	var result *service.WebhookResult
	if args.Get(0) != nil {
		result = args.Get(0).(*service.WebhookResult)
	}

	return result, args.Error(1)
}

type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService(t mockConstructorTestingT) *MockTicketService {
	m := &MockTicketService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	args := m.Called(ctx, ticketCode)

	var ticket *models.Ticket
	if args.Get(0) != nil {
		ticket = args.Get(0).(*models.Ticket)
	}

	return ticket, args.Error(1)
}

func (m *MockTicketService) ListBookingTickets(ctx context.Context, bookingRef string) ([]*models.Ticket, error) {
	args := m.Called(ctx, bookingRef)

	var tickets []*models.Ticket
	if args.Get(0) != nil {
		tickets = args.Get(0).([]*models.Ticket)
	}

	return tickets, args.Error(1)
}

func (m *MockTicketService) Cancel(ctx context.Context, ticketCode string, req *models.TicketCancelRequest) (*models.TicketOperationResponse, error) {
	args := m.Called(ctx, ticketCode, req)

	var resp *models.TicketOperationResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*models.TicketOperationResponse)
	}

	return resp, args.Error(1)
}

func (m *MockTicketService) Refund(ctx context.Context, ticketCode string, req *models.TicketRefundRequest) (*models.TicketOperationResponse, error) {
	args := m.Called(ctx, ticketCode, req)

	var resp *models.TicketOperationResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*models.TicketOperationResponse)
	}

	return resp, args.Error(1)
}

func (m *MockTicketService) Exchange(ctx context.Context, ticketCode string, req *models.TicketExchangeRequest) (*models.TicketOperationResponse, error) {
	args := m.Called(ctx, ticketCode, req)

	var resp *models.TicketOperationResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*models.TicketOperationResponse)
	}

	return resp, args.Error(1)
}

func (m *MockTicketService) CheckIn(ctx context.Context, ticketCode string) (*models.TicketOperationResponse, error) {
	args := m.Called(ctx, ticketCode)

	var resp *models.TicketOperationResponse
	if args.Get(0) != nil {
		resp = args.Get(0).(*models.TicketOperationResponse)
	}

	return resp, args.Error(1)
}
