package models

import "github.com/shopspring/decimal"

type InitiateCheckoutRequest struct {
	OrderRef string          `json:"orderRef" validate:"required,max=80"`
	Method   PaymentMethod   `json:"method" validate:"required,oneof=VNPAY SEPAY"`
	Amount   decimal.Decimal `json:"amount" validate:"required"`
}

type InitiateCheckoutResponse struct {
	TransactionID string `json:"transactionId"`
	CheckoutURL   string `json:"checkoutUrl"`
}

type EmailNotificationRequest struct {
	To          string   `json:"to" validate:"required,email"`
	CC          []string `json:"cc,omitempty" validate:"omitempty,dive,email"`
	BCC         []string `json:"bcc,omitempty" validate:"omitempty,dive,email"`
	Subject     string   `json:"subject" validate:"required,max=255"`
	Content     string   `json:"content" validate:"required"`
	HTMLContent string   `json:"htmlContent,omitempty"`
}

// QueryStatusResponse is the manual-reconciliation view of one transaction:
// the local record next to the gateway's snapshot. CanSynthesizeWebhook is
// true when the local record is still INITIATED but the gateway already
// reports a terminal outcome, meaning the poll endpoint can settle it.
type QueryStatusResponse struct {
	Transaction          *PaymentTransaction `json:"transaction"`
	Snapshot             *GatewayEvent       `json:"snapshot"`
	CanSynthesizeWebhook bool                `json:"canSynthesizeWebhook"`
	Cached               bool                `json:"cached"`
}

type RefundRequest struct {
	Amount          decimal.Decimal `json:"amount" validate:"required"`
	OrderInfo       string          `json:"orderInfo" validate:"required,max=255"`
	TransactionType string          `json:"transactionType" validate:"required,oneof=02 03"`
}

type TicketCancelRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type TicketRefundRequest struct {
	Reason       string          `json:"reason" validate:"required,max=255"`
	RefundAmount decimal.Decimal `json:"refundAmount" validate:"required"`
}

type TicketExchangeRequest struct {
	Reason     string `json:"reason" validate:"required,max=255"`
	NewTripID  int64  `json:"newTripId" validate:"required,gt=0"`
	NewRouteID int64  `json:"newRouteId" validate:"required,gt=0"`
	NewSeatID  int64  `json:"newSeatId" validate:"required,gt=0"`
}

// TicketOperationResponse is the uniform reply for cancel/refund/exchange.
// Business-rule rejections come back as success=false with a message, not as
// transport-level failures.
type TicketOperationResponse struct {
	Ticket  *Ticket `json:"ticket,omitempty"`
	Message string  `json:"message"`
	Success bool    `json:"success"`
}
