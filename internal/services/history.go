package services

import (
	"context"
	"errors"
	"math"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// HistoryService answers ledger queries.
type HistoryService struct {
	users    UserStore
	sessions SessionStore
	ledger   LedgerStore
}

func NewHistoryService(users UserStore, sessions SessionStore, ledger LedgerStore) *HistoryService {
	return &HistoryService{
		users:    users,
		sessions: sessions,
		ledger:   ledger,
	}
}

// GetTransaction returns a ledger entry and the pay session it settled, if any.
func (s *HistoryService) GetTransaction(ctx context.Context, reference string) (*models.TransactionDetailResponse, error) {
	t, err := s.ledger.GetTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetSessionByWalletTxRef(ctx, reference)
	if err != nil && !errors.Is(err, sqlrepo.ErrSessionNotFound) {
		return nil, err
	}

	return &models.TransactionDetailResponse{
		Transaction: models.NewTransactionView(t),
		PaySession:  models.NewPaySessionView(session),
	}, nil
}

// ListUserTransactions pages through a user's history, newest first.
func (s *HistoryService) ListUserTransactions(ctx context.Context, userID string, page, limit int, f models.TransactionFilter) (*models.TransactionListResponse, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	entries, total, err := s.ledger.ListUserTransactions(ctx, userID, f, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	views := make([]models.TransactionView, 0, len(entries))
	for i := range entries {
		views = append(views, models.NewTransactionView(&entries[i]))
	}

	return &models.TransactionListResponse{
		Transactions: views,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: int(math.Ceil(float64(total) / float64(limit))),
		},
	}, nil
}

// Stats returns per-type counts and totals plus the payment success rate in percent.
func (s *HistoryService) Stats(ctx context.Context, userID string) (*models.TransactionStatsResponse, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}

	totals, err := s.ledger.UserTotals(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := map[models.TransactionType]models.TypeStats{
		models.TransactionTypePayment: {},
		models.TransactionTypeTopup:   {},
	}
	var payments, successfulPayments, all int
	for _, t := range totals {
		st := stats[t.Type]
		st.Count += t.Count
		st.TotalAmount += t.TotalAmount
		stats[t.Type] = st
		all += t.Count

		if t.Type == models.TransactionTypePayment {
			payments += t.Count
			if t.Status == models.TransactionStatusSuccess {
				successfulPayments += t.Count
			}
		}
	}

	var rate float64
	if payments > 0 {
		rate = math.Round(float64(successfulPayments)/float64(payments)*10000) / 100
	}

	return &models.TransactionStatsResponse{
		Stats:             stats,
		SuccessRate:       rate,
		TotalTransactions: all,
	}, nil
}
