package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maian3333/ridehub-ms-booking/internal/api/middleware"
	apperrors "github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	repository "github.com/maian3333/ridehub-ms-booking/internal/repositories"
)

type TicketService interface {
	GetTicket(ctx context.Context, ticketCode string) (*models.Ticket, error)
	ListBookingTickets(ctx context.Context, bookingRef string) ([]*models.Ticket, error)
	Cancel(ctx context.Context, ticketCode string, req *models.TicketCancelRequest) (*models.TicketOperationResponse, error)
	Refund(ctx context.Context, ticketCode string, req *models.TicketRefundRequest) (*models.TicketOperationResponse, error)
	Exchange(ctx context.Context, ticketCode string, req *models.TicketExchangeRequest) (*models.TicketOperationResponse, error)
	CheckIn(ctx context.Context, ticketCode string) (*models.TicketOperationResponse, error)
}

type ticketService struct {
	repo repository.TicketRepository
}

func NewTicketService(repo repository.TicketRepository) TicketService {
	return &ticketService{repo: repo}
}

func (s *ticketService) load(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	ticket, err := s.repo.GetByTicketCode(ctx, ticketCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundError(fmt.Sprintf("No ticket %s", ticketCode))
		}

		return nil, apperrors.DatabaseError("Failed to load ticket").WithError(err)
	}

	return ticket, nil
}

// GetTicket implements TicketService. For a ticket caught up in an exchange,
// the replacement is resolved by reverse lookup on original_ticket_id; the
// exchanged ticket never stores a forward reference of its own.
func (s *ticketService) GetTicket(ctx context.Context, ticketCode string) (*models.Ticket, error) {

	ticket, err := s.load(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	if ticket.ExchangeStatus != nil && ticket.ExchangedTicketID == nil {
		replacement, err := s.repo.GetByOriginalTicketID(ctx, ticket.ID)
		if err == nil {
			ticket.ExchangedTicketID = &replacement.ID
		} else if !errors.Is(err, sql.ErrNoRows) {
			middleware.LoggerFromContext(ctx).Warn("Replacement ticket lookup failed",
				slog.String("ticket_code", ticketCode), slog.Any("error", err))
		}
	}

	return ticket, nil
}

// ListBookingTickets implements TicketService.
func (s *ticketService) ListBookingTickets(ctx context.Context, bookingRef string) ([]*models.Ticket, error) {

	tickets, err := s.repo.ListByBookingRef(ctx, bookingRef)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to list booking tickets").WithError(err)
	}

	return tickets, nil
}

func rejection(ticket *models.Ticket, message string) *models.TicketOperationResponse {
	return &models.TicketOperationResponse{
		Ticket:  ticket,
		Message: message,
		Success: false,
	}
}

// Cancel implements TicketService. Guard violations are ordinary business
// answers, not errors: the caller gets success=false with the current ticket
// and no write happens.
func (s *ticketService) Cancel(ctx context.Context, ticketCode string, req *models.TicketCancelRequest) (*models.TicketOperationResponse, error) {

	logger := middleware.LoggerFromContext(ctx)

	ticket, err := s.load(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	if !ticket.CanCancel() {
		return rejection(ticket, "Ticket cannot be cancelled"), nil
	}

	ticket.Status = models.TicketStatusCancelled

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, apperrors.DatabaseError("Failed to cancel ticket").WithError(err)
	}

	logger.Info("Ticket cancelled",
		slog.String("ticket_code", ticketCode),
		slog.String("reason", req.Reason))

	return &models.TicketOperationResponse{
		Ticket:  ticket,
		Message: "Ticket cancelled",
		Success: true,
	}, nil
}

// Refund implements TicketService. Acceptance only records the request:
// coarse status, refund sub-status, requested-at and reason move together.
// No money moves until gateway refund confirmation comes back through the
// payment reconciler.
func (s *ticketService) Refund(ctx context.Context, ticketCode string, req *models.TicketRefundRequest) (*models.TicketOperationResponse, error) {

	logger := middleware.LoggerFromContext(ctx)

	ticket, err := s.load(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	if !ticket.CanRefund() {
		return rejection(ticket, "Ticket cannot be refunded"), nil
	}

	if req.RefundAmount.GreaterThan(ticket.Price) {
		return rejection(ticket, "Refund amount exceeds ticket price"), nil
	}

	now := time.Now()
	refundStatus := models.RefundStatusRequested

	ticket.Status = models.TicketStatusRefundRequested
	ticket.RefundStatus = &refundStatus
	ticket.RefundReason = req.Reason
	ticket.RefundRequestedAt = &now
	ticket.RefundAmount = &req.RefundAmount

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, apperrors.DatabaseError("Failed to record refund request").WithError(err)
	}

	logger.Info("Ticket refund requested",
		slog.String("ticket_code", ticketCode),
		slog.String("amount", req.RefundAmount.String()))

	return &models.TicketOperationResponse{
		Ticket:  ticket,
		Message: "Refund requested",
		Success: true,
	}, nil
}

// Exchange implements TicketService. Acceptance records the request on the
// original ticket and reserves a replacement seat on the requested trip. The
// replacement points back via original_ticket_id; approval later promotes
// both sides.
func (s *ticketService) Exchange(ctx context.Context, ticketCode string, req *models.TicketExchangeRequest) (*models.TicketOperationResponse, error) {

	logger := middleware.LoggerFromContext(ctx)

	ticket, err := s.load(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	if !ticket.CanExchange() {
		return rejection(ticket, "Ticket cannot be exchanged"), nil
	}

	now := time.Now()
	exchangeStatus := models.ExchangeStatusRequested

	ticket.Status = models.TicketStatusExchangeRequested
	ticket.ExchangeStatus = &exchangeStatus
	ticket.ExchangeReason = req.Reason
	ticket.ExchangeRequestedAt = &now

	replacement := &models.Ticket{
		TicketCode:       "TCK-" + uuid.NewString(),
		Price:            ticket.Price,
		Status:           models.TicketStatusAvailable,
		OriginalTicketID: &ticket.ID,
		TripID:           req.NewTripID,
		RouteID:          req.NewRouteID,
		SeatID:           req.NewSeatID,
		BookingRef:       ticket.BookingRef,
	}

	if err := s.repo.Create(ctx, replacement); err != nil {
		return nil, apperrors.DatabaseError("Failed to reserve replacement ticket").WithError(err)
	}

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, apperrors.DatabaseError("Failed to record exchange request").WithError(err)
	}

	logger.Info("Ticket exchange requested",
		slog.String("ticket_code", ticketCode),
		slog.String("replacement_code", replacement.TicketCode),
		slog.Int64("new_trip_id", req.NewTripID))

	return &models.TicketOperationResponse{
		Ticket:  ticket,
		Message: fmt.Sprintf("Exchange requested, replacement %s reserved", replacement.TicketCode),
		Success: true,
	}, nil
}

// CheckIn implements TicketService.
func (s *ticketService) CheckIn(ctx context.Context, ticketCode string) (*models.TicketOperationResponse, error) {

	logger := middleware.LoggerFromContext(ctx)

	ticket, err := s.load(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	if ticket.CheckedIn {
		return rejection(ticket, "Ticket is already checked in"), nil
	}

	if ticket.Status != models.TicketStatusBooked {
		return rejection(ticket, "Only a booked ticket can be checked in"), nil
	}

	ticket.CheckedIn = true

	if err := s.repo.Update(ctx, ticket); err != nil {
		return nil, apperrors.DatabaseError("Failed to check in ticket").WithError(err)
	}

	logger.Info("Ticket checked in", slog.String("ticket_code", ticketCode))

	return &models.TicketOperationResponse{
		Ticket:  ticket,
		Message: "Ticket checked in",
		Success: true,
	}, nil
}
