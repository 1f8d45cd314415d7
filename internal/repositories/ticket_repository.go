package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/internal/utils"
	"github.com/shopspring/decimal"
)

type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByTicketCode(ctx context.Context, ticketCode string) (*models.Ticket, error)
	ListByBookingRef(ctx context.Context, bookingRef string) ([]*models.Ticket, error)
	GetByOriginalTicketID(ctx context.Context, originalTicketID int64) (*models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	ConfirmByBookingRef(ctx context.Context, bookingRef string) (int64, error)
}

type ticketRepository struct {
	DB *sql.DB
}

func NewTicketRepository(db *sql.DB) TicketRepository {
	return &ticketRepository{DB: db}
}

const ticketColumns = `id, ticket_code, price, checked_in, status, exchange_status, refund_status,
		exchange_reason, refund_reason, exchange_requested_at, exchange_completed_at,
		refund_requested_at, refund_completed_at, refund_amount, refund_transaction_id,
		original_ticket_id, exchanged_ticket_id, trip_id, route_id, seat_id, booking_ref,
		created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*models.Ticket, error) {

	ticket := &models.Ticket{}

	var (
		exchangeStatus      sql.NullString
		refundStatus        sql.NullString
		exchangeReason      sql.NullString
		refundReason        sql.NullString
		exchangeRequestedAt sql.NullTime
		exchangeCompletedAt sql.NullTime
		refundRequestedAt   sql.NullTime
		refundCompletedAt   sql.NullTime
		refundAmount        decimal.NullDecimal
		refundTransactionID sql.NullString
		originalTicketID    sql.NullInt64
		exchangedTicketID   sql.NullInt64
	)

	err := row.Scan(&ticket.ID, &ticket.TicketCode, &ticket.Price, &ticket.CheckedIn, &ticket.Status,
		&exchangeStatus, &refundStatus, &exchangeReason, &refundReason,
		&exchangeRequestedAt, &exchangeCompletedAt, &refundRequestedAt, &refundCompletedAt,
		&refundAmount, &refundTransactionID, &originalTicketID, &exchangedTicketID,
		&ticket.TripID, &ticket.RouteID, &ticket.SeatID, &ticket.BookingRef,
		&ticket.CreatedAt, &ticket.UpdatedAt)

	if err != nil {
		return nil, err
	}

	if exchangeStatus.Valid {
		status := models.ExchangeStatus(exchangeStatus.String)
		ticket.ExchangeStatus = &status
	}

	if refundStatus.Valid {
		status := models.RefundStatus(refundStatus.String)
		ticket.RefundStatus = &status
	}

	ticket.ExchangeReason = exchangeReason.String
	ticket.RefundReason = refundReason.String
	ticket.RefundTransactionID = refundTransactionID.String
	ticket.ExchangeRequestedAt = nullTimePtr(exchangeRequestedAt)
	ticket.ExchangeCompletedAt = nullTimePtr(exchangeCompletedAt)
	ticket.RefundRequestedAt = nullTimePtr(refundRequestedAt)
	ticket.RefundCompletedAt = nullTimePtr(refundCompletedAt)

	if refundAmount.Valid {
		ticket.RefundAmount = &refundAmount.Decimal
	}

	if originalTicketID.Valid {
		ticket.OriginalTicketID = &originalTicketID.Int64
	}

	if exchangedTicketID.Valid {
		ticket.ExchangedTicketID = &exchangedTicketID.Int64
	}

	return ticket, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	return &t.Time
}

func (r *ticketRepository) Create(ctx context.Context, ticket *models.Ticket) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO tickets (ticket_code, price, checked_in, status, exchange_status, refund_status,
			exchange_reason, refund_reason, original_ticket_id, exchanged_ticket_id,
			trip_id, route_id, seat_id, booking_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id
	`

	err := r.DB.QueryRowContext(dbCtx, query, ticket.TicketCode, ticket.Price, ticket.CheckedIn,
		ticket.Status, ticket.ExchangeStatus, ticket.RefundStatus,
		ticket.ExchangeReason, ticket.RefundReason, ticket.OriginalTicketID, ticket.ExchangedTicketID,
		ticket.TripID, ticket.RouteID, ticket.SeatID, ticket.BookingRef).Scan(&ticket.ID)

	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	return nil
}

func (r *ticketRepository) GetByTicketCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE ticket_code = $1
	`

	ticket, err := scanTicket(r.DB.QueryRowContext(dbCtx, query, ticketCode))
	if err != nil {
		return nil, fmt.Errorf("failed to get the ticket: %w", err)
	}

	return ticket, nil
}

func (r *ticketRepository) ListByBookingRef(ctx context.Context, bookingRef string) ([]*models.Ticket, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE booking_ref = $1
		ORDER BY id
	`

	rows, err := r.DB.QueryContext(dbCtx, query, bookingRef)

	if err != nil {
		return nil, fmt.Errorf("failed to list the tickets: %w", err)
	}

	defer rows.Close()

	var tickets []*models.Ticket

	for rows.Next() {

		ticket, err := scanTicket(rows)

		if err != nil {
			return nil, fmt.Errorf("failed to scan the ticket: %w", err)
		}

		tickets = append(tickets, ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

// GetByOriginalTicketID finds the replacement ticket that points back at the
// given ticket. The exchanged ticket does not own a back-reference, the
// reverse direction is always a query.
func (r *ticketRepository) GetByOriginalTicketID(ctx context.Context, originalTicketID int64) (*models.Ticket, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE original_ticket_id = $1
	`

	ticket, err := scanTicket(r.DB.QueryRowContext(dbCtx, query, originalTicketID))
	if err != nil {
		return nil, fmt.Errorf("failed to get the replacement ticket: %w", err)
	}

	return ticket, nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *models.Ticket) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tickets
		SET checked_in = $1, status = $2, exchange_status = $3, refund_status = $4,
		    exchange_reason = $5, refund_reason = $6,
		    exchange_requested_at = $7, exchange_completed_at = $8,
		    refund_requested_at = $9, refund_completed_at = $10,
		    refund_amount = $11, refund_transaction_id = $12,
		    original_ticket_id = $13, exchanged_ticket_id = $14,
		    trip_id = $15, route_id = $16, seat_id = $17,
		    updated_at = NOW()
		WHERE id = $18
	`

	result, err := r.DB.ExecContext(dbCtx, query, ticket.CheckedIn, ticket.Status,
		ticket.ExchangeStatus, ticket.RefundStatus, ticket.ExchangeReason, ticket.RefundReason,
		ticket.ExchangeRequestedAt, ticket.ExchangeCompletedAt,
		ticket.RefundRequestedAt, ticket.RefundCompletedAt,
		ticket.RefundAmount, ticket.RefundTransactionID,
		ticket.OriginalTicketID, ticket.ExchangedTicketID,
		ticket.TripID, ticket.RouteID, ticket.SeatID, ticket.ID)
	if err != nil {
		return fmt.Errorf("failed to update the ticket: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get updated rows: %w", err)
	}

	if updatedRows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// ConfirmByBookingRef moves a booking's pending tickets to BOOKED after the
// payment webhook confirms the transaction. Only AVAILABLE tickets move; a
// ticket already cancelled or refunded stays where it is.
func (r *ticketRepository) ConfirmByBookingRef(ctx context.Context, bookingRef string) (int64, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE tickets
		SET status = $1, updated_at = NOW()
		WHERE booking_ref = $2 AND status = $3
	`

	result, err := r.DB.ExecContext(dbCtx, query, models.TicketStatusBooked, bookingRef, models.TicketStatusAvailable)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm the booking tickets: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get updated rows: %w", err)
	}

	return updatedRows, nil
}
