package mocks

import (
	"context"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTicketRepository {
	m := &MockTicketRepository{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) GetByTicketCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	args := m.Called(ctx, ticketCode)

	var ticket *models.Ticket
	if args.Get(0) != nil {
		ticket = args.Get(0).(*models.Ticket)
	}

	return ticket, args.Error(1)
}

func (m *MockTicketRepository) ListByBookingRef(ctx context.Context, bookingRef string) ([]*models.Ticket, error) {
	args := m.Called(ctx, bookingRef)

	var tickets []*models.Ticket
	if args.Get(0) != nil {
		tickets = args.Get(0).([]*models.Ticket)
	}

	return tickets, args.Error(1)
}

func (m *MockTicketRepository) GetByOriginalTicketID(ctx context.Context, originalTicketID int64) (*models.Ticket, error) {
	args := m.Called(ctx, originalTicketID)

	var ticket *models.Ticket
	if args.Get(0) != nil {
		ticket = args.Get(0).(*models.Ticket)
	}

	return ticket, args.Error(1)
}

func (m *MockTicketRepository) Update(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockTicketRepository) ConfirmByBookingRef(ctx context.Context, bookingRef string) (int64, error) {
	args := m.Called(ctx, bookingRef)
	return args.Get(0).(int64), args.Error(1)
}
