package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"wallet-gateway/internal/models"

	"github.com/jmoiron/sqlx"
)

const transactionColumns = `
	reference, type, amount, status, user_id, previous_balance, new_balance,
	failure_reason, completed_at, metadata, created_at`

// LedgerTx is the set of writes that commit or roll back together.
type LedgerTx interface {
	DebitBalance(ctx context.Context, userID string, amount int64, at time.Time) (int64, error)
	CreditBalance(ctx context.Context, userID string, amount int64, at time.Time) (int64, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	CompleteSession(ctx context.Context, c SessionCompletion) error
}

type LedgerRepository struct {
	db *sqlx.DB
}

func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// BeginTx starts a transaction and returns a transactional repository
func (r *LedgerRepository) BeginTx(ctx context.Context) (*TxLedgerRepo, error) {
	// default isolation: read committed on postgres, serializable on sqlite
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return NewTxLedgerRepo(tx), nil
}

// RunInTx runs fn inside one database transaction. Any error from fn rolls
// every write back; the error is returned unchanged so callers can match it.
func (r *LedgerRepository) RunInTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	txRepo, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := fn(txRepo); err != nil {
		if rollbackErr := txRepo.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback error: %v)", err, rollbackErr)
		}
		return err
	}

	if err := txRepo.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTransaction get a ledger entry by reference
func (r *LedgerRepository) GetTransaction(ctx context.Context, reference string) (*models.Transaction, error) {
	var t models.Transaction
	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE reference = ?`)

	if err := r.db.GetContext(ctx, &t, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// ListUserTransactions returns one page of a user's history, newest first, and the total count.
func (r *LedgerRepository) ListUserTransactions(ctx context.Context, userID string, f models.TransactionFilter, limit, offset int) ([]models.Transaction, int, error) {
	where, args := userFilter(userID, f)

	var total int
	countQuery := r.db.Rebind(`SELECT COUNT(*) FROM transactions WHERE ` + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	query := r.db.Rebind(`SELECT ` + transactionColumns + ` FROM transactions WHERE ` + where +
		` ORDER BY created_at DESC, reference DESC LIMIT ? OFFSET ?`)
	args = append(args, limit, offset)

	transactions := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &transactions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, total, nil
}

type TypeTotal struct {
	Type        models.TransactionType `db:"type"`
	Status      string                 `db:"status"`
	Count       int                    `db:"count"`
	TotalAmount int64                  `db:"total_amount"`
}

// UserTotals aggregates a user's ledger by type and status.
func (r *LedgerRepository) UserTotals(ctx context.Context, userID string) ([]TypeTotal, error) {
	query := r.db.Rebind(`
		SELECT type, status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total_amount
		FROM transactions
		WHERE user_id = ?
		GROUP BY type, status
	`)

	var totals []TypeTotal
	if err := r.db.SelectContext(ctx, &totals, query, userID); err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	return totals, nil
}

func userFilter(userID string, f models.TransactionFilter) (string, []any) {
	clauses := []string{"user_id = ?"}
	args := []any{userID}

	if f.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	return strings.Join(clauses, " AND "), args
}
