package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/maian3333/ridehub-ms-booking/internal/api/middleware"
	"github.com/maian3333/ridehub-ms-booking/internal/cache"
	apperrors "github.com/maian3333/ridehub-ms-booking/internal/errors"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	repository "github.com/maian3333/ridehub-ms-booking/internal/repositories"
	"github.com/maian3333/ridehub-ms-booking/pkg/gateway"
)

// WebhookAck is the reconciler verdict for one webhook delivery. Rejections
// travel as errors; both ack values are success paths so the gateway stops
// retrying.
type WebhookAck string

const (
	WebhookAckConfirmed        WebhookAck = "CONFIRMED"
	WebhookAckAlreadyProcessed WebhookAck = "ALREADY_PROCESSED"
)

type WebhookResult struct {
	Ack           WebhookAck `json:"ack"`
	TransactionID string     `json:"transactionId"`
}

type PaymentService interface {
	InitiateCheckout(ctx context.Context, req *models.InitiateCheckoutRequest, clientIP string) (*models.InitiateCheckoutResponse, error)
	ProcessWebhook(ctx context.Context, method models.PaymentMethod, payload []byte, signature string) (*WebhookResult, error)
	VerifyCallback(ctx context.Context, method models.PaymentMethod, params map[string]string) (*gateway.CallbackResult, error)
	QueryStatus(ctx context.Context, method models.PaymentMethod, transactionID string) (*models.QueryStatusResponse, error)
	Refund(ctx context.Context, method models.PaymentMethod, transactionID string, req *models.RefundRequest, clientIP string) (*models.PaymentTransaction, error)
	PollTransaction(ctx context.Context, method models.PaymentMethod, transactionID string) (*WebhookResult, error)
}

type paymentService struct {
	transactionRepo repository.TransactionRepository
	ticketRepo      repository.TicketRepository
	cache           cache.Cache
	notifier        NotificationService
	clients         map[models.PaymentMethod]gateway.Client
}

func NewPaymentService(transactionRepo repository.TransactionRepository, ticketRepo repository.TicketRepository, snapshotCache cache.Cache, notifier NotificationService, clients ...gateway.Client) PaymentService {

	byMethod := make(map[models.PaymentMethod]gateway.Client, len(clients))
	for _, client := range clients {
		byMethod[client.Kind()] = client
	}

	return &paymentService{
		transactionRepo: transactionRepo,
		ticketRepo:      ticketRepo,
		cache:           snapshotCache,
		notifier:        notifier,
		clients:         byMethod,
	}
}

func (s *paymentService) clientFor(method models.PaymentMethod) (gateway.Client, error) {
	client, ok := s.clients[method]
	if !ok {
		return nil, apperrors.BadRequestError(fmt.Sprintf("Unsupported payment gateway %q", method))
	}

	return client, nil
}

// InitiateCheckout implements PaymentService.
func (s *paymentService) InitiateCheckout(ctx context.Context, req *models.InitiateCheckoutRequest, clientIP string) (*models.InitiateCheckoutResponse, error) {

	client, err := s.clientFor(req.Method)
	if err != nil {
		return nil, err
	}

	transactionID := "TXN-" + uuid.NewString()

	session, err := client.InitiateCheckout(ctx, gateway.CheckoutRequest{
		TransactionID: transactionID,
		OrderRef:      req.OrderRef,
		Amount:        req.Amount,
		IPAddress:     clientIP,
	})
	if err != nil {
		return nil, mapGatewayError(err, "Checkout initiation failed")
	}

	txn := &models.PaymentTransaction{
		TransactionID:     transactionID,
		OrderRef:          req.OrderRef,
		Method:            req.Method,
		Status:            models.PaymentStatusInitiated,
		Amount:            req.Amount,
		GatewayCreateDate: session.GatewayCreateDate,
	}

	if err := s.transactionRepo.Create(ctx, txn); err != nil {
		return nil, apperrors.DatabaseError("Failed to record payment transaction").WithError(err)
	}

	return &models.InitiateCheckoutResponse{
		TransactionID: transactionID,
		CheckoutURL:   session.CheckoutURL,
	}, nil
}

// ProcessWebhook implements PaymentService. The pipeline is verify → parse →
// lookup → amount check → atomic claim → apply. Every rejection happens
// before the claim, so a rejected delivery leaves the transaction untouched
// and the gateway may redeliver a corrected payload later.
func (s *paymentService) ProcessWebhook(ctx context.Context, method models.PaymentMethod, payload []byte, signature string) (*WebhookResult, error) {

	logger := middleware.LoggerFromContext(ctx)

	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	if !client.VerifyWebhook(payload, signature) {
		return nil, apperrors.InvalidSignatureError("Webhook signature verification failed")
	}

	event, err := client.ParseWebhook(payload)
	if err != nil {
		return nil, apperrors.MalformedPayloadError("Webhook payload not recognized").WithError(err)
	}

	txn, err := s.transactionRepo.GetByTransactionID(ctx, event.TransactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.TransactionNotFoundError(fmt.Sprintf("No transaction %s", event.TransactionID))
		}

		return nil, apperrors.DatabaseError("Failed to load payment transaction").WithError(err)
	}

	result, err := s.applyEvent(ctx, txn, event)
	if err != nil {
		return nil, err
	}

	logger.Info("Webhook reconciled",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("outcome", string(event.Outcome)),
		slog.String("ack", string(result.Ack)))

	return result, nil
}

// applyEvent is the shared reconciliation core for real webhooks and
// synthesized ones from the polling endpoint.
func (s *paymentService) applyEvent(ctx context.Context, txn *models.PaymentTransaction, event *models.GatewayEvent) (*WebhookResult, error) {

	logger := middleware.LoggerFromContext(ctx)

	// A declared amount must match exactly, zero included. Only a delivery
	// that never declared one (legacy flat encoding) skips the check.
	if event.Amount != nil && !event.Amount.Equal(txn.Amount) {
		return nil, apperrors.AmountMismatchError(
			fmt.Sprintf("Webhook declares amount %s but transaction %s records %s",
				event.Amount.String(), txn.TransactionID, txn.Amount.String()))
	}

	target := models.PaymentStatusFailed
	note := "Gateway reported failure"

	if event.Outcome == models.EventOutcomeSuccess {
		target = models.PaymentStatusSuccess
		note = "Gateway confirmed payment"
	}

	claimed, err := s.transactionRepo.ClaimTransaction(ctx, txn.TransactionID, target, note)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to claim payment transaction").WithError(err)
	}

	if !claimed {
		return &WebhookResult{Ack: WebhookAckAlreadyProcessed, TransactionID: txn.TransactionID}, nil
	}

	if target == models.PaymentStatusSuccess {

		confirmed, err := s.ticketRepo.ConfirmByBookingRef(ctx, txn.OrderRef)
		if err != nil {
			// The claim is already durable. Confirmation is retried via the
			// query/poll reconciliation path, not by failing the ack.
			logger.Error("Failed to confirm booking tickets after payment",
				slog.String("order_ref", txn.OrderRef),
				slog.Any("error", err))
		} else {
			logger.Info("Booking tickets confirmed",
				slog.String("order_ref", txn.OrderRef),
				slog.Int64("tickets", confirmed))
		}

		if s.notifier != nil {
			s.notifier.SendPaymentConfirmation(ctx, txn, customerEmail(event))
		}
	}

	return &WebhookResult{Ack: WebhookAckConfirmed, TransactionID: txn.TransactionID}, nil
}

func customerEmail(event *models.GatewayEvent) string {
	if event.Raw == nil {
		return ""
	}

	return event.Raw["customer_email"]
}

// VerifyCallback implements PaymentService. Read-only: the redirect query is
// checked for authenticity and summarized, never applied to any record.
func (s *paymentService) VerifyCallback(ctx context.Context, method models.PaymentMethod, params map[string]string) (*gateway.CallbackResult, error) {

	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	result := client.VerifyCallback(params)

	return &result, nil
}

// QueryStatus implements PaymentService.
func (s *paymentService) QueryStatus(ctx context.Context, method models.PaymentMethod, transactionID string) (*models.QueryStatusResponse, error) {

	logger := middleware.LoggerFromContext(ctx)

	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.TransactionNotFoundError(fmt.Sprintf("No transaction %s", transactionID))
		}

		return nil, apperrors.DatabaseError("Failed to load payment transaction").WithError(err)
	}

	snapshotKey := cache.Key(cache.QuerySnapshotKeyPrefix, transactionID)

	var snapshot models.GatewayEvent

	found, err := s.cache.Get(ctx, snapshotKey, &snapshot)
	if err != nil {
		logger.Warn("Snapshot cache read failed", slog.Any("error", err))
	}

	if found {
		return &models.QueryStatusResponse{
			Transaction:          txn,
			Snapshot:             &snapshot,
			CanSynthesizeWebhook: !txn.Status.IsTerminal(),
			Cached:               true,
		}, nil
	}

	fresh, err := client.QueryStatus(ctx, txn)
	if err != nil {
		return nil, mapGatewayError(err, "Gateway status query failed")
	}

	if err := s.cache.Set(ctx, snapshotKey, fresh, 0); err != nil {
		logger.Warn("Snapshot cache write failed", slog.Any("error", err))
	}

	return &models.QueryStatusResponse{
		Transaction:          txn,
		Snapshot:             fresh,
		CanSynthesizeWebhook: !txn.Status.IsTerminal(),
		Cached:               false,
	}, nil
}

// Refund implements PaymentService. The original transaction keeps its
// record: its status flips SUCCESS→REFUNDED with an audit note, and a new
// REFUND-<uuid> transaction is written for the refunded amount.
func (s *paymentService) Refund(ctx context.Context, method models.PaymentMethod, transactionID string, req *models.RefundRequest, clientIP string) (*models.PaymentTransaction, error) {

	logger := middleware.LoggerFromContext(ctx)

	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.TransactionNotFoundError(fmt.Sprintf("No transaction %s", transactionID))
		}

		return nil, apperrors.DatabaseError("Failed to load payment transaction").WithError(err)
	}

	if txn.Status != models.PaymentStatusSuccess {
		return nil, apperrors.IllegalTransitionError(
			fmt.Sprintf("Transaction %s is %s, only a SUCCESS transaction can be refunded", transactionID, txn.Status))
	}

	if req.Amount.GreaterThan(txn.Amount) {
		return nil, apperrors.BadRequestError(
			fmt.Sprintf("Refund amount %s exceeds transaction amount %s", req.Amount.String(), txn.Amount.String()))
	}

	refundID := "REFUND-" + uuid.NewString()

	result, err := client.Refund(ctx, gateway.RefundRequest{
		TransactionID:      transactionID,
		Amount:             req.Amount,
		OrderInfo:          req.OrderInfo,
		TransactionType:    req.TransactionType,
		OriginalCreateDate: txn.GatewayCreateDate,
		IPAddress:          clientIP,
	})
	if err != nil {
		return nil, mapGatewayError(err, "Gateway refund failed")
	}

	note := fmt.Sprintf("Refunded by %s: %s", refundID, req.OrderInfo)

	refunded, err := s.transactionRepo.MarkRefunded(ctx, transactionID, note)
	if err != nil {
		return nil, apperrors.DatabaseError("Failed to mark transaction refunded").WithError(err)
	}

	if !refunded {
		return nil, apperrors.IllegalTransitionError(
			fmt.Sprintf("Transaction %s was refunded concurrently", transactionID))
	}

	refundTxn := &models.PaymentTransaction{
		TransactionID:     refundID,
		OrderRef:          txn.OrderRef,
		Method:            txn.Method,
		Status:            models.PaymentStatusRefunded,
		Amount:            req.Amount,
		GatewayCreateDate: txn.GatewayCreateDate,
		GatewayNote:       fmt.Sprintf("Refund of %s (gateway ref %s)", transactionID, result.TransactionNo),
	}

	if err := s.transactionRepo.Create(ctx, refundTxn); err != nil {
		return nil, apperrors.DatabaseError("Refund applied but failed to record refund transaction").WithError(err)
	}

	if err := s.cache.Delete(ctx, cache.Key(cache.QuerySnapshotKeyPrefix, transactionID)); err != nil {
		logger.Warn("Failed to invalidate snapshot cache after refund", slog.Any("error", err))
	}

	logger.Info("Refund completed",
		slog.String("transaction_id", transactionID),
		slog.String("refund_transaction_id", refundID),
		slog.String("gateway_ref", result.TransactionNo))

	return refundTxn, nil
}

// PollTransaction implements PaymentService: manual reconciliation for a
// transaction whose webhook never arrived. The gateway snapshot is fed
// through the same claim pipeline as a real delivery.
func (s *paymentService) PollTransaction(ctx context.Context, method models.PaymentMethod, transactionID string) (*WebhookResult, error) {

	client, err := s.clientFor(method)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactionRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.TransactionNotFoundError(fmt.Sprintf("No transaction %s", transactionID))
		}

		return nil, apperrors.DatabaseError("Failed to load payment transaction").WithError(err)
	}

	if txn.Status.IsTerminal() {
		return &WebhookResult{Ack: WebhookAckAlreadyProcessed, TransactionID: transactionID}, nil
	}

	event, err := client.QueryStatus(ctx, txn)
	if err != nil {
		return nil, mapGatewayError(err, "Gateway status query failed")
	}

	return s.applyEvent(ctx, txn, event)
}

func mapGatewayError(err error, message string) *apperrors.AppError {
	switch {
	case errors.Is(err, gateway.ErrInvalidRefundDate):
		return apperrors.BadRequestError("Original transaction date is missing or invalid").WithError(err)
	case errors.Is(err, gateway.ErrGatewayRejected):
		return apperrors.GatewayRejectedError(message).WithError(err)
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		return apperrors.TransportFailureError(message).WithError(err)
	default:
		return apperrors.InternalError(message).WithError(err)
	}
}
