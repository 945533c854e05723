package services

import (
	"context"
	"time"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"
)

type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s *models.PaySession) error
	GetSession(ctx context.Context, transactionID string) (*models.PaySession, error)
	GetSessionByWalletTxRef(ctx context.Context, ref string) (*models.PaySession, error)
	MarkExpired(ctx context.Context, transactionID string, now time.Time) (bool, error)
	ExpireStale(ctx context.Context, now time.Time, limit int) (int64, error)
	MarkFailed(ctx context.Context, transactionID string, reason models.FailureReason, now time.Time) (bool, error)
	ReserveCallbackAttempt(ctx context.Context, transactionID string, maxTotal int, at time.Time) (int, error)
	MarkCallbackDelivered(ctx context.Context, transactionID string, at time.Time) error
	ListUndelivered(ctx context.Context, maxAttempts int, idleSince time.Time, limit int) ([]models.PaySession, error)
}

type LedgerStore interface {
	RunInTx(ctx context.Context, fn func(tx sqlrepo.LedgerTx) error) error
	GetTransaction(ctx context.Context, reference string) (*models.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string, f models.TransactionFilter, limit, offset int) ([]models.Transaction, int, error)
	UserTotals(ctx context.Context, userID string) ([]sqlrepo.TypeTotal, error)
}

// BalanceCache is a read-through cache in front of the users table.
type BalanceCache interface {
	SetBalance(ctx context.Context, userID string, balance int64) error
	GetBalance(ctx context.Context, userID string) (int64, error)
	DeleteBalance(ctx context.Context, userID string) error
}

type TokenStore interface {
	SaveToken(ctx context.Context, token, userID string, ttl time.Duration) error
	GetUserID(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) (bool, error)
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.WalletEvent) error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishEvent(context.Context, models.WalletEvent) error { return nil }
