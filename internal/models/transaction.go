package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentTransaction is the local record of a single gateway payment attempt.
// It doubles as the idempotency ledger: once Status is terminal, later webhook
// deliveries for the same TransactionID are duplicates. Records are never
// deleted; refunds append to GatewayNote and spawn a new refund transaction.
type PaymentTransaction struct {
	TransactionID     string          `json:"transactionId"`
	OrderRef          string          `json:"orderRef"`
	Method            PaymentMethod   `json:"method"`
	Status            PaymentStatus   `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	GatewayCreateDate string          `json:"gatewayCreateDate,omitempty"`
	GatewayNote       string          `json:"gatewayNote,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// AppendGatewayNote adds an audit line to the free-text gateway note.
func (t *PaymentTransaction) AppendGatewayNote(note string) {
	if t.GatewayNote == "" {
		t.GatewayNote = note
		return
	}

	t.GatewayNote = t.GatewayNote + " | " + note
}

type EventOutcome string

const (
	EventOutcomeSuccess EventOutcome = "SUCCESS"
	EventOutcomeFailed  EventOutcome = "FAILED"
)

// GatewayEvent is the normalized content of one webhook delivery or one query
// snapshot. It is constructed per call and discarded after reconciliation.
type GatewayEvent struct {
	TransactionID string       `json:"transactionId"`
	OrderRef      string       `json:"orderRef,omitempty"`
	Outcome       EventOutcome `json:"outcome"`
	// Amount is nil when the delivery did not declare one (the legacy flat
	// encoding omits it). A declared amount of zero is still a declaration.
	Amount *decimal.Decimal  `json:"amount,omitempty"`
	Raw    map[string]string `json:"raw,omitempty"`
}
