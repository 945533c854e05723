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
	"github.com/lib/pq"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrSessionNotFound     = errors.New("pay session not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrDuplicate           = errors.New("duplicate key")
	// ErrDeductionFailed means the conditional debit matched no row.
	ErrDeductionFailed = errors.New("balance deduction failed")
	// ErrSessionNotPending means a conditional session update found the
	// session already terminal or past its expiry.
	ErrSessionNotPending = errors.New("pay session is not pending")
	// ErrCallbackNotOwed means the callback was delivered or has no attempts left.
	ErrCallbackNotOwed = errors.New("callback not owed")
)

const userColumns = `id, phone, pin_hash, name, balance, is_active, created_at, updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByID get a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)

	if err := r.db.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetUserByPhone get a user by phone number
func (r *UserRepository) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE phone = ?`)

	if err := r.db.GetContext(ctx, &user, query, phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by phone: %w", err)
	}
	return &user, nil
}

// CreateUser inserts a user; balance always starts at zero.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := r.db.Rebind(`
		INSERT INTO users (id, phone, pin_hash, name, balance, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Phone, user.PinHash, user.Name, user.IsActive, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Balance = 0
	return nil
}

// SetActive enables or disables an account.
func (r *UserRepository) SetActive(ctx context.Context, userID string, active bool, now time.Time) error {
	query := r.db.Rebind(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`)

	result, err := r.db.ExecContext(ctx, query, active, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	// modernc sqlite reports constraint errors as text
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
