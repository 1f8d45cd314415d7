package service_test

import (
	"database/sql"
	"testing"

	appErrors "github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	repoMocks "github.com/maian3333/ridehub-ms-booking/internal/repositories/mocks"
	service "github.com/maian3333/ridehub-ms-booking/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTicketFixture(t *testing.T) (service.TicketService, *repoMocks.MockTicketRepository) {
	t.Helper()

	repo := repoMocks.NewMockTicketRepository(t)
	svc := service.NewTicketService(repo)

	return svc, repo
}

func bookedTicket() *models.Ticket {
	return &models.Ticket{
		ID:         11,
		TicketCode: "TCK-0011",
		Price:      decimal.NewFromInt(150000),
		Status:     models.TicketStatusBooked,
		TripID:     7,
		RouteID:    3,
		SeatID:     21,
		BookingRef: "BOOK-2025-0042",
	}
}

func TestGetTicket(t *testing.T) {
	ctx := t.Context()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)
		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(bookedTicket(), nil).Once()

		// Act
		ticket, err := svc.GetTicket(ctx, "TCK-0011")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "TCK-0011", ticket.TicketCode)
	})

	t.Run("Success - Replacement Resolved By Reverse Lookup", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		exchangeStatus := models.ExchangeStatusRequested
		original := bookedTicket()
		original.Status = models.TicketStatusExchangeRequested
		original.ExchangeStatus = &exchangeStatus

		replacement := bookedTicket()
		replacement.ID = 31
		replacement.TicketCode = "TCK-0031"
		replacement.OriginalTicketID = &original.ID

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(original, nil).Once()
		repo.On("GetByOriginalTicketID", ctx, int64(11)).Return(replacement, nil).Once()

		// Act
		ticket, err := svc.GetTicket(ctx, "TCK-0011")

		// Assert
		require.NoError(t, err)
		require.NotNil(t, ticket.ExchangedTicketID)
		assert.Equal(t, int64(31), *ticket.ExchangedTicketID)
	})

	t.Run("Success - No Replacement Yet", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		exchangeStatus := models.ExchangeStatusRequested
		original := bookedTicket()
		original.Status = models.TicketStatusExchangeRequested
		original.ExchangeStatus = &exchangeStatus

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(original, nil).Once()
		repo.On("GetByOriginalTicketID", ctx, int64(11)).Return(nil, sql.ErrNoRows).Once()

		// Act
		ticket, err := svc.GetTicket(ctx, "TCK-0011")

		// Assert
		require.NoError(t, err)
		assert.Nil(t, ticket.ExchangedTicketID)
	})

	t.Run("Failure - Not Found", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)
		repo.On("GetByTicketCode", ctx, "TCK-none").Return(nil, sql.ErrNoRows).Once()

		// Act
		ticket, err := svc.GetTicket(ctx, "TCK-none")

		// Assert
		require.Error(t, err)
		assert.Nil(t, ticket)
		appErr, ok := appErrors.IsAppError(err)
		require.True(t, ok)
		assert.Equal(t, appErrors.ErrCodeNotFound, appErr.Code)
	})
}

func TestCancel(t *testing.T) {
	ctx := t.Context()
	req := &models.TicketCancelRequest{Reason: "Change of plans"}

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(bookedTicket(), nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(ticket *models.Ticket) bool {
			return ticket.Status == models.TicketStatusCancelled
		})).Return(nil).Once()

		// Act
		resp, err := svc.Cancel(ctx, "TCK-0011", req)

		// Assert
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, models.TicketStatusCancelled, resp.Ticket.Status)
	})

	t.Run("Rejected - Already Cancelled, No Write", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		ticket := bookedTicket()
		ticket.Status = models.TicketStatusCancelled

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Once()

		// Act
		resp, err := svc.Cancel(ctx, "TCK-0011", req)

		// Assert
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "Ticket cannot be cancelled", resp.Message)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Rejected - Terminal Statuses", func(t *testing.T) {
		for _, status := range []models.TicketStatus{
			models.TicketStatusRefundCompleted,
			models.TicketStatusExchangeCompleted,
		} {
			// Arrange
			svc, repo := newTicketFixture(t)

			ticket := bookedTicket()
			ticket.Status = status

			repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Once()

			// Act
			resp, err := svc.Cancel(ctx, "TCK-0011", req)

			// Assert
			require.NoError(t, err)
			assert.False(t, resp.Success, "status %s must reject cancel", status)
		}
	})
}

func TestCheckedInGuard(t *testing.T) {
	ctx := t.Context()

	// A checked-in ticket rejects every post-purchase operation regardless of
	// its current status.
	for _, status := range []models.TicketStatus{
		models.TicketStatusBooked,
		models.TicketStatusRefundRequested,
		models.TicketStatusExchangeApproved,
	} {
		t.Run(string(status), func(t *testing.T) {
			// Arrange
			svc, repo := newTicketFixture(t)

			ticket := bookedTicket()
			ticket.Status = status
			ticket.CheckedIn = true

			repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Times(3)

			// Act
			cancelResp, cancelErr := svc.Cancel(ctx, "TCK-0011", &models.TicketCancelRequest{Reason: "r"})
			refundResp, refundErr := svc.Refund(ctx, "TCK-0011", &models.TicketRefundRequest{Reason: "r", RefundAmount: decimal.NewFromInt(1)})
			exchangeResp, exchangeErr := svc.Exchange(ctx, "TCK-0011", &models.TicketExchangeRequest{Reason: "r", NewTripID: 1, NewRouteID: 1, NewSeatID: 1})

			// Assert
			require.NoError(t, cancelErr)
			require.NoError(t, refundErr)
			require.NoError(t, exchangeErr)
			assert.False(t, cancelResp.Success)
			assert.False(t, refundResp.Success)
			assert.False(t, exchangeResp.Success)
			repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRefundTicket(t *testing.T) {
	ctx := t.Context()
	req := &models.TicketRefundRequest{Reason: "Trip moved", RefundAmount: decimal.NewFromInt(120000)}

	t.Run("Success - Sub-Status Fields Move Together", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(bookedTicket(), nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(ticket *models.Ticket) bool {
			return ticket.Status == models.TicketStatusRefundRequested &&
				ticket.RefundStatus != nil && *ticket.RefundStatus == models.RefundStatusRequested &&
				ticket.RefundRequestedAt != nil &&
				ticket.RefundReason == "Trip moved" &&
				ticket.RefundAmount != nil && ticket.RefundAmount.Equal(req.RefundAmount)
		})).Return(nil).Once()

		// Act
		resp, err := svc.Refund(ctx, "TCK-0011", req)

		// Assert
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("Rejected - Amount Exceeds Price", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		bigReq := &models.TicketRefundRequest{Reason: "Trip moved", RefundAmount: decimal.NewFromInt(500000)}

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(bookedTicket(), nil).Once()

		// Act
		resp, err := svc.Refund(ctx, "TCK-0011", bigReq)

		// Assert
		require.NoError(t, err)
		assert.False(t, resp.Success)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Rejected - Refund Completed Never Returns To BOOKED", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		refundStatus := models.RefundStatusCompleted
		ticket := bookedTicket()
		ticket.Status = models.TicketStatusRefundCompleted
		ticket.RefundStatus = &refundStatus

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Once()

		// Act
		resp, err := svc.Refund(ctx, "TCK-0011", req)

		// Assert
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, models.TicketStatusRefundCompleted, resp.Ticket.Status, "Terminal refund state is final")
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestExchangeTicket(t *testing.T) {
	ctx := t.Context()
	req := &models.TicketExchangeRequest{Reason: "Earlier departure", NewTripID: 9, NewRouteID: 3, NewSeatID: 40}

	t.Run("Success - Reserves Replacement Pointing Back", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(bookedTicket(), nil).Once()
		repo.On("Create", ctx, mock.MatchedBy(func(replacement *models.Ticket) bool {
			return replacement.Status == models.TicketStatusAvailable &&
				replacement.OriginalTicketID != nil && *replacement.OriginalTicketID == 11 &&
				replacement.TripID == 9 && replacement.SeatID == 40 &&
				replacement.BookingRef == "BOOK-2025-0042"
		})).Return(nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(ticket *models.Ticket) bool {
			return ticket.Status == models.TicketStatusExchangeRequested &&
				ticket.ExchangeStatus != nil && *ticket.ExchangeStatus == models.ExchangeStatusRequested &&
				ticket.ExchangeRequestedAt != nil &&
				ticket.ExchangeReason == "Earlier departure"
		})).Return(nil).Once()

		// Act
		resp, err := svc.Exchange(ctx, "TCK-0011", req)

		// Assert
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("Rejected - Cancelled Ticket", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		ticket := bookedTicket()
		ticket.Status = models.TicketStatusCancelled

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Once()

		// Act
		resp, err := svc.Exchange(ctx, "TCK-0011", req)

		// Assert
		require.NoError(t, err)
		assert.False(t, resp.Success)
		assert.Equal(t, "Ticket cannot be exchanged", resp.Message)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestCheckIn(t *testing.T) {
	ctx := t.Context()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(bookedTicket(), nil).Once()
		repo.On("Update", ctx, mock.MatchedBy(func(ticket *models.Ticket) bool {
			return ticket.CheckedIn && ticket.Status == models.TicketStatusBooked
		})).Return(nil).Once()

		// Act
		resp, err := svc.CheckIn(ctx, "TCK-0011")

		// Assert
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.True(t, resp.Ticket.CheckedIn)
	})

	t.Run("Rejected - Already Checked In", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		ticket := bookedTicket()
		ticket.CheckedIn = true

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Once()

		// Act
		resp, err := svc.CheckIn(ctx, "TCK-0011")

		// Assert
		require.NoError(t, err)
		assert.False(t, resp.Success)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Rejected - Not Booked", func(t *testing.T) {
		// Arrange
		svc, repo := newTicketFixture(t)

		ticket := bookedTicket()
		ticket.Status = models.TicketStatusAvailable

		repo.On("GetByTicketCode", ctx, "TCK-0011").Return(ticket, nil).Once()

		// Act
		resp, err := svc.CheckIn(ctx, "TCK-0011")

		// Assert
		require.NoError(t, err)
		assert.False(t, resp.Success)
	})
}
