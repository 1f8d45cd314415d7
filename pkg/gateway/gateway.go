// Package gateway defines the outbound payment-gateway contract shared by the
// bank-transfer style (SePay) and card style (VNPay) clients.
package gateway

import (
	"context"
	"errors"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable marks a transport-level failure (timeout, connection
// refused) surfaced after the retry budget is exhausted. Safe to retry later.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

// ErrGatewayRejected marks an application-level denial from the gateway.
// Never retried: repeating a rejected request can duplicate side effects.
var ErrGatewayRejected = errors.New("gateway rejected request")

// ErrMalformedPayload is returned when neither supported webhook encoding can
// be recognized.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// ErrInvalidRefundDate is returned before any network call when the original
// transaction's gateway creation timestamp is missing or not in the gateway's
// fixed-length native format.
var ErrInvalidRefundDate = errors.New("original transaction date is missing or invalid")

type CheckoutRequest struct {
	TransactionID string
	OrderRef      string
	Amount        decimal.Decimal
	ReturnURL     string
	IPAddress     string
}

type CheckoutSession struct {
	TransactionID string
	CheckoutURL   string
	// GatewayCreateDate is the gateway-assigned creation timestamp in the
	// gateway's native string format, kept verbatim for later refund/query calls.
	GatewayCreateDate string
}

type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	OrderInfo     string
	// TransactionType is the gateway refund kind ("02" full, "03" partial).
	TransactionType string
	// OriginalCreateDate is the original transaction's gateway-assigned
	// creation timestamp in native format. Validated locally before any call.
	OriginalCreateDate string
	IPAddress          string
}

type RefundResult struct {
	Success           bool
	ResponseCode      string
	Message           string
	TransactionNo     string
	TransactionType   string
	TransactionStatus string
}

// CallbackResult is the outcome of verifying a user redirect. Redirect
// verification is read-only: it never applies a state transition.
type CallbackResult struct {
	Valid         bool
	TransactionID string
	Status        string
	Message       string
}

// Client is one gateway integration. Outbound calls apply connect and request
// timeouts and a bounded retry loop, retrying only transport failures.
type Client interface {
	// Kind is the gateway identifier used in routes and transaction records.
	Kind() models.PaymentMethod

	// InitiateCheckout produces a hosted payment page URL for the end user.
	InitiateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// QueryStatus fetches the gateway's authoritative view of a transaction,
	// normalized so it can be fed through the reconciler as a synthesized webhook.
	QueryStatus(ctx context.Context, txn *models.PaymentTransaction) (*models.GatewayEvent, error)

	// Refund reverses a captured payment. Fails fast with ErrInvalidRefundDate
	// before any network I/O when OriginalCreateDate is absent or malformed.
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)

	// VerifyWebhook checks the authenticity of an inbound webhook delivery.
	VerifyWebhook(payload []byte, signature string) bool

	// ParseWebhook normalizes a raw webhook payload into a GatewayEvent.
	ParseWebhook(payload []byte) (*models.GatewayEvent, error)

	// VerifyCallback validates a user-redirect query without mutating anything.
	VerifyCallback(params map[string]string) CallbackResult
}
