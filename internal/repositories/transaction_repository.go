package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/maian3333/ridehub-ms-booking/internal/models"
	"github.com/maian3333/ridehub-ms-booking/internal/utils"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error)
	GetByOrderRef(ctx context.Context, orderRef string) ([]*models.PaymentTransaction, error)
	ClaimTransaction(ctx context.Context, transactionID string, to models.PaymentStatus, note string) (bool, error)
	MarkRefunded(ctx context.Context, transactionID string, note string) (bool, error)
}

type transactionRepository struct {
	DB *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{DB: db}
}

func (r *transactionRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO payment_transactions (transaction_id, order_ref, method, status, amount, gateway_create_date, gateway_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`

	_, err := r.DB.ExecContext(dbCtx, query, txn.TransactionID, txn.OrderRef, txn.Method, txn.Status, txn.Amount, txn.GatewayCreateDate, txn.GatewayNote)

	if err != nil {
		return fmt.Errorf("failed to insert payment transaction: %w", err)
	}

	return nil
}

func (r *transactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.PaymentTransaction, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	txn := &models.PaymentTransaction{}

	query := `
		SELECT transaction_id, order_ref, method, status, amount, gateway_create_date, gateway_note, created_at, updated_at
		FROM payment_transactions
		WHERE transaction_id = $1
	`

	err := r.DB.QueryRowContext(dbCtx, query, transactionID).Scan(&txn.TransactionID, &txn.OrderRef, &txn.Method, &txn.Status, &txn.Amount, &txn.GatewayCreateDate, &txn.GatewayNote, &txn.CreatedAt, &txn.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to get the payment transaction: %w", err)
	}

	return txn, nil
}

func (r *transactionRepository) GetByOrderRef(ctx context.Context, orderRef string) ([]*models.PaymentTransaction, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		SELECT transaction_id, order_ref, method, status, amount, gateway_create_date, gateway_note, created_at, updated_at
		FROM payment_transactions
		WHERE order_ref = $1
		ORDER BY created_at DESC
	`

	rows, err := r.DB.QueryContext(dbCtx, query, orderRef)

	if err != nil {
		return nil, fmt.Errorf("failed to list payment transactions: %w", err)
	}

	defer rows.Close()

	var txns []*models.PaymentTransaction

	for rows.Next() {

		txn := &models.PaymentTransaction{}

		if err := rows.Scan(&txn.TransactionID, &txn.OrderRef, &txn.Method, &txn.Status, &txn.Amount, &txn.GatewayCreateDate, &txn.GatewayNote, &txn.CreatedAt, &txn.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan the payment transaction: %w", err)
		}

		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

// ClaimTransaction atomically moves an INITIATED transaction to a terminal
// status. The WHERE clause is the idempotency gate: of any number of
// concurrent webhook deliveries for the same transaction, exactly one update
// matches a row. A false return with no error means another delivery already
// claimed it.
func (r *transactionRepository) ClaimTransaction(ctx context.Context, transactionID string, to models.PaymentStatus, note string) (bool, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE payment_transactions
		SET status = $1,
		    gateway_note = CASE WHEN gateway_note = '' THEN $2 ELSE gateway_note || ' | ' || $2 END,
		    updated_at = NOW()
		WHERE transaction_id = $3 AND status = 'INITIATED'
	`

	result, err := r.DB.ExecContext(dbCtx, query, to, note, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to claim the payment transaction: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get updated rows: %w", err)
	}

	return updatedRows == 1, nil
}

// MarkRefunded is the refund-side compare-and-swap: only a SUCCESS
// transaction can move to REFUNDED.
func (r *transactionRepository) MarkRefunded(ctx context.Context, transactionID string, note string) (bool, error) {

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	query := `
		UPDATE payment_transactions
		SET status = 'REFUNDED',
		    gateway_note = CASE WHEN gateway_note = '' THEN $1 ELSE gateway_note || ' | ' || $1 END,
		    updated_at = NOW()
		WHERE transaction_id = $2 AND status = 'SUCCESS'
	`

	result, err := r.DB.ExecContext(dbCtx, query, note, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to mark the payment transaction refunded: %w", err)
	}

	updatedRows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get updated rows: %w", err)
	}

	return updatedRows == 1, nil
}
