package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maian3333/ridehub-ms-booking/internal/api/middleware"
	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/pkg/email"
)

type NotificationService interface {
	// SendPaymentConfirmation emails the customer after a webhook confirms
	// their payment. Best effort: a delivery failure is logged and swallowed,
	// it must never turn a confirmed webhook into an error ack.
	SendPaymentConfirmation(ctx context.Context, txn *models.PaymentTransaction, recipient string)
}

type notificationService struct {
	emailService email.Service
}

func NewNotificationService(emailService email.Service) NotificationService {
	return &notificationService{emailService: emailService}
}

// SendPaymentConfirmation implements NotificationService.
func (n *notificationService) SendPaymentConfirmation(ctx context.Context, txn *models.PaymentTransaction, recipient string) {

	logger := middleware.LoggerFromContext(ctx)

	if recipient == "" {
		logger.Debug("No recipient for payment confirmation, skipping",
			slog.String("transaction_id", txn.TransactionID))
		return
	}

	req := &models.EmailNotificationRequest{
		To:      recipient,
		Subject: fmt.Sprintf("Payment confirmed for booking %s", txn.OrderRef),
		Content: fmt.Sprintf("Your payment of %s for booking %s has been confirmed. Transaction reference: %s.",
			txn.Amount.String(), txn.OrderRef, txn.TransactionID),
	}

	if err := n.emailService.Send(ctx, req); err != nil {
		logger.Warn("Failed to send payment confirmation email",
			slog.String("transaction_id", txn.TransactionID),
			slog.Any("error", err))
		return
	}

	logger.Info("Payment confirmation email sent",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("order_ref", txn.OrderRef))
}
