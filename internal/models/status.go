package models

type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "INITIATED"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// IsTerminal reports whether a transaction in this status has already had its
// business effect applied. A webhook for a terminal transaction is a duplicate.
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}

	return false
}

type PaymentMethod string

const (
	PaymentMethodVNPay        PaymentMethod = "VNPAY"
	PaymentMethodSePay        PaymentMethod = "SEPAY"
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

type TicketStatus string

const (
	TicketStatusAvailable         TicketStatus = "AVAILABLE"
	TicketStatusBooked            TicketStatus = "BOOKED"
	TicketStatusCancelled         TicketStatus = "CANCELLED"
	TicketStatusExpired           TicketStatus = "EXPIRED"
	TicketStatusExchangeRequested TicketStatus = "EXCHANGE_REQUESTED"
	TicketStatusExchangeApproved  TicketStatus = "EXCHANGE_APPROVED"
	TicketStatusExchangeRejected  TicketStatus = "EXCHANGE_REJECTED"
	TicketStatusExchangeCompleted TicketStatus = "EXCHANGE_COMPLETED"
	TicketStatusRefundRequested   TicketStatus = "REFUND_REQUESTED"
	TicketStatusRefundApproved    TicketStatus = "REFUND_APPROVED"
	TicketStatusRefundRejected    TicketStatus = "REFUND_REJECTED"
	TicketStatusRefundCompleted   TicketStatus = "REFUND_COMPLETED"
	TicketStatusRefundFailed      TicketStatus = "REFUND_FAILED"
)

type ExchangeStatus string

const (
	ExchangeStatusRequested ExchangeStatus = "EXCHANGE_REQUESTED"
	ExchangeStatusApproved  ExchangeStatus = "EXCHANGE_APPROVED"
	ExchangeStatusRejected  ExchangeStatus = "EXCHANGE_REJECTED"
	ExchangeStatusCompleted ExchangeStatus = "EXCHANGE_COMPLETED"
)

type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "REFUND_REQUESTED"
	RefundStatusApproved  RefundStatus = "REFUND_APPROVED"
	RefundStatusRejected  RefundStatus = "REFUND_REJECTED"
	RefundStatusCompleted RefundStatus = "REFUND_COMPLETED"
	RefundStatusFailed    RefundStatus = "REFUND_FAILED"
)
