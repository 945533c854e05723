package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wallet-gateway/internal/models"

	"github.com/jmoiron/sqlx"
)

type TxLedgerRepo struct {
	tx *sqlx.Tx
}

func NewTxLedgerRepo(tx *sqlx.Tx) *TxLedgerRepo {
	return &TxLedgerRepo{tx: tx}
}

func (r *TxLedgerRepo) Commit() error {
	return r.tx.Commit()
}

func (r *TxLedgerRepo) Rollback() error {
	return r.tx.Rollback()
}

// DebitBalance decrements the balance only while it covers amount and the
// account is active. Zero matched rows is reported as ErrDeductionFailed.
func (r *TxLedgerRepo) DebitBalance(ctx context.Context, userID string, amount int64, at time.Time) (int64, error) {
	query := r.tx.Rebind(`
		UPDATE users SET balance = balance - ?, updated_at = ?
		WHERE id = ? AND balance >= ? AND is_active = ?
		RETURNING balance
	`)

	var newBalance int64
	err := r.tx.QueryRowxContext(ctx, query, amount, at, userID, amount, true).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrDeductionFailed
		}
		return 0, fmt.Errorf("failed to debit balance: %w", err)
	}
	return newBalance, nil
}

func (r *TxLedgerRepo) CreditBalance(ctx context.Context, userID string, amount int64, at time.Time) (int64, error) {
	query := r.tx.Rebind(`
		UPDATE users SET balance = balance + ?, updated_at = ?
		WHERE id = ?
		RETURNING balance
	`)

	var newBalance int64
	err := r.tx.QueryRowxContext(ctx, query, amount, at, userID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to credit balance: %w", err)
	}
	return newBalance, nil
}

// InsertTransaction appends a ledger entry. References are unique.
func (r *TxLedgerRepo) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	query := r.tx.Rebind(`
		INSERT INTO transactions
		(reference, type, amount, status, user_id, previous_balance, new_balance, failure_reason, completed_at, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.tx.ExecContext(ctx, query,
		t.Reference, string(t.Type), t.Amount, t.Status, t.UserID, t.PreviousBalance, t.NewBalance,
		t.FailureReason, t.CompletedAt, t.Metadata, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

type SessionCompletion struct {
	TransactionID string
	UserID        string
	UserPhone     string
	WalletTxRef   string
	CompletedAt   time.Time
}

// CompleteSession moves a PENDING, unexpired session to SUCCESS. A session
// that is already terminal or past expires_at yields ErrSessionNotPending,
// which makes the surrounding transaction roll back the debit.
func (r *TxLedgerRepo) CompleteSession(ctx context.Context, c SessionCompletion) error {
	query := r.tx.Rebind(`
		UPDATE paysessions
		SET status = ?, user_id = ?, user_phone = ?, wallet_tx_ref = ?, completed_at = ?, updated_at = ?
		WHERE transaction_id = ? AND status = ? AND expires_at >= ?
	`)

	result, err := r.tx.ExecContext(ctx, query,
		models.SessionStatusSuccess, c.UserID, c.UserPhone, c.WalletTxRef, c.CompletedAt, c.CompletedAt,
		c.TransactionID, models.SessionStatusPending, c.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to complete pay session: %w", err)
	}

	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotPending
	}
	return nil
}
