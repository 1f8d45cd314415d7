package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticket is one seat on one trip, owned by a booking. OriginalTicketID and
// ExchangedTicketID are one-directional pointers: the ticket this one replaced
// and the ticket that replaced this one. Reverse lookups go through the
// repository, never through an owned back-reference.
type Ticket struct {
	ID                  int64            `json:"id"`
	TicketCode          string           `json:"ticketCode"`
	Price               decimal.Decimal  `json:"price"`
	CheckedIn           bool             `json:"checkedIn"`
	Status              TicketStatus     `json:"status"`
	ExchangeStatus      *ExchangeStatus  `json:"exchangeStatus,omitempty"`
	RefundStatus        *RefundStatus    `json:"refundStatus,omitempty"`
	ExchangeReason      string           `json:"exchangeReason,omitempty"`
	RefundReason        string           `json:"refundReason,omitempty"`
	ExchangeRequestedAt *time.Time       `json:"exchangeRequestedAt,omitempty"`
	ExchangeCompletedAt *time.Time       `json:"exchangeCompletedAt,omitempty"`
	RefundRequestedAt   *time.Time       `json:"refundRequestedAt,omitempty"`
	RefundCompletedAt   *time.Time       `json:"refundCompletedAt,omitempty"`
	RefundAmount        *decimal.Decimal `json:"refundAmount,omitempty"`
	RefundTransactionID string           `json:"refundTransactionId,omitempty"`
	OriginalTicketID    *int64           `json:"originalTicketId,omitempty"`
	ExchangedTicketID   *int64           `json:"exchangedTicketId,omitempty"`
	TripID              int64            `json:"tripId"`
	RouteID             int64            `json:"routeId"`
	SeatID              int64            `json:"seatId"`
	BookingRef          string           `json:"bookingRef"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// CanCancel reports whether a cancel request is allowed for the ticket's
// current state. A checked-in ticket is immutable for all post-purchase
// operations.
func (t *Ticket) CanCancel() bool {
	if t.CheckedIn {
		return false
	}

	switch t.Status {
	case TicketStatusCancelled, TicketStatusRefundCompleted, TicketStatusExchangeCompleted:
		return false
	}

	return true
}

// CanRefund reports whether a refund request is allowed.
func (t *Ticket) CanRefund() bool {
	if t.CheckedIn {
		return false
	}

	switch t.Status {
	case TicketStatusRefundCompleted, TicketStatusRefundFailed, TicketStatusExchangeCompleted:
		return false
	}

	return true
}

// CanExchange reports whether an exchange request is allowed.
func (t *Ticket) CanExchange() bool {
	if t.CheckedIn {
		return false
	}

	switch t.Status {
	case TicketStatusExchangeCompleted, TicketStatusExchangeRejected,
		TicketStatusRefundCompleted, TicketStatusCancelled:
		return false
	}

	return true
}
