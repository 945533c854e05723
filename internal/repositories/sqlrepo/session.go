package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"wallet-gateway/internal/models"

	"github.com/jmoiron/sqlx"
)

const sessionColumns = `
	transaction_id, amount, status, callback_url, failure_callback_url,
	user_id, user_phone, wallet_tx_ref, expires_at, completed_at, failure_reason,
	callback_attempts, callback_delivered, callback_last_attempt_at, metadata,
	created_at, updated_at`

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts a PENDING pay session.
func (r *SessionRepository) CreateSession(ctx context.Context, s *models.PaySession) error {
	query := r.db.Rebind(`
		INSERT INTO paysessions
		(transaction_id, amount, status, callback_url, failure_callback_url, expires_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		s.TransactionID, s.Amount, s.Status, s.CallbackURL, s.FailureCallbackURL,
		s.ExpiresAt, s.Metadata, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create pay session: %w", err)
	}
	return nil
}

// GetSession get a pay session by transaction ID
func (r *SessionRepository) GetSession(ctx context.Context, transactionID string) (*models.PaySession, error) {
	var s models.PaySession
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM paysessions WHERE transaction_id = ?`)

	if err := r.db.GetContext(ctx, &s, query, transactionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get pay session: %w", err)
	}
	return &s, nil
}

// GetSessionByWalletTxRef finds the session settled by a ledger reference.
func (r *SessionRepository) GetSessionByWalletTxRef(ctx context.Context, ref string) (*models.PaySession, error) {
	var s models.PaySession
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM paysessions WHERE wallet_tx_ref = ?`)

	if err := r.db.GetContext(ctx, &s, query, ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get pay session by ref: %w", err)
	}
	return &s, nil
}

// MarkExpired moves one PENDING session past its expiry to EXPIRED.
// It reports false when the session was not PENDING or not yet expired.
func (r *SessionRepository) MarkExpired(ctx context.Context, transactionID string, now time.Time) (bool, error) {
	query := r.db.Rebind(`
		UPDATE paysessions SET status = ?, updated_at = ?
		WHERE transaction_id = ? AND status = ? AND expires_at < ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		models.SessionStatusExpired, now, transactionID, models.SessionStatusPending, now)
	if err != nil {
		return false, fmt.Errorf("failed to expire pay session: %w", err)
	}
	return affected(result)
}

// ExpireStale expires up to limit stale PENDING sessions and returns how many changed.
func (r *SessionRepository) ExpireStale(ctx context.Context, now time.Time, limit int) (int64, error) {
	query := r.db.Rebind(`
		UPDATE paysessions SET status = ?, updated_at = ?
		WHERE transaction_id IN (
			SELECT transaction_id FROM paysessions
			WHERE status = ? AND expires_at < ?
			ORDER BY expires_at
			LIMIT ?
		) AND status = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		models.SessionStatusExpired, now, models.SessionStatusPending, now, limit, models.SessionStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to expire stale pay sessions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// MarkFailed moves a PENDING session to FAILED without touching balances.
// It reports false when the session had already left PENDING.
func (r *SessionRepository) MarkFailed(ctx context.Context, transactionID string, reason models.FailureReason, now time.Time) (bool, error) {
	query := r.db.Rebind(`
		UPDATE paysessions
		SET status = ?, failure_reason = ?, completed_at = ?, updated_at = ?
		WHERE transaction_id = ? AND status = ?
	`)

	result, err := r.db.ExecContext(ctx, query,
		models.SessionStatusFailed, string(reason), now, now, transactionID, models.SessionStatusPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark pay session failed: %w", err)
	}
	return affected(result)
}

// ReserveCallbackAttempt counts one more callback attempt before it is sent
// and returns the new total. It returns ErrCallbackNotOwed when the callback
// was already delivered or maxTotal attempts were used; maxTotal <= 0 means
// no ceiling.
func (r *SessionRepository) ReserveCallbackAttempt(ctx context.Context, transactionID string, maxTotal int, at time.Time) (int, error) {
	if maxTotal <= 0 {
		maxTotal = math.MaxInt32
	}
	query := r.db.Rebind(`
		UPDATE paysessions
		SET callback_attempts = callback_attempts + 1, callback_last_attempt_at = ?, updated_at = ?
		WHERE transaction_id = ? AND callback_delivered = ? AND callback_attempts < ?
		RETURNING callback_attempts
	`)

	var attempts int
	err := r.db.GetContext(ctx, &attempts, query, at, at, transactionID, false, maxTotal)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrCallbackNotOwed
		}
		return 0, fmt.Errorf("failed to reserve callback attempt: %w", err)
	}
	return attempts, nil
}

// MarkCallbackDelivered sets the delivered flag. It is never reset.
func (r *SessionRepository) MarkCallbackDelivered(ctx context.Context, transactionID string, at time.Time) error {
	query := r.db.Rebind(`
		UPDATE paysessions SET callback_delivered = ?, updated_at = ?
		WHERE transaction_id = ?
	`)

	result, err := r.db.ExecContext(ctx, query, true, at, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark callback delivered: %w", err)
	}
	ok, err := affected(result)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// ListUndelivered returns SUCCESS sessions whose callback is still owed and
// that saw no attempt (or completion) after idleSince, so deliveries still
// in flight are left alone.
func (r *SessionRepository) ListUndelivered(ctx context.Context, maxAttempts int, idleSince time.Time, limit int) ([]models.PaySession, error) {
	query := r.db.Rebind(`
		SELECT ` + sessionColumns + `
		FROM paysessions
		WHERE status = ? AND callback_delivered = ? AND callback_attempts < ?
			AND COALESCE(callback_last_attempt_at, completed_at) < ?
		ORDER BY completed_at
		LIMIT ?
	`)

	var sessions []models.PaySession
	err := r.db.SelectContext(ctx, &sessions, query,
		models.SessionStatusSuccess, false, maxAttempts, idleSince, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list undelivered callbacks: %w", err)
	}
	return sessions, nil
}

func affected(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}
