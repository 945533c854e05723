package services

import (
	"context"
	"errors"
	"testing"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/repositories/sqlrepo"
	"wallet-gateway/internal/testutil"
)

func TestHistoryService_GetTransaction(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	user := testutil.SeedUser(t, h.db, "01012345678", "1234", 1000, true)
	s := h.createSession(t, 250, "http://shop.local/cb")

	res, err := h.payments.Process(ctx, s, user)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	detail, err := h.history.GetTransaction(ctx, res.WalletTxRef)
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if detail.Transaction.Type != models.TransactionTypePayment || detail.Transaction.NewBalance != 750 {
		t.Fatalf("transaction = %+v", detail.Transaction)
	}
	if detail.PaySession == nil || detail.PaySession.TransactionID != s.TransactionID {
		t.Fatalf("pay session = %+v", detail.PaySession)
	}

	topup, err := h.payments.Topup(ctx, user.Phone, 100)
	if err != nil {
		t.Fatalf("Topup() error = %v", err)
	}
	detail, err = h.history.GetTransaction(ctx, topup.TransactionID)
	if err != nil {
		t.Fatalf("GetTransaction(topup) error = %v", err)
	}
	if detail.PaySession != nil {
		t.Fatalf("topup carries pay session %+v", detail.PaySession)
	}

	if _, err := h.history.GetTransaction(ctx, "wallet_tx_missing"); !errors.Is(err, sqlrepo.ErrTransactionNotFound) {
		t.Fatalf("GetTransaction(missing) error = %v, want ErrTransactionNotFound", err)
	}
}

func TestHistoryService_ListAndStats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	user := testutil.SeedUser(t, h.db, "01012345678", "1234", 0, true)

	for i := 0; i < 3; i++ {
		if _, err := h.payments.Topup(ctx, user.Phone, 1000); err != nil {
			t.Fatalf("Topup() error = %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		u, err := h.users.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID() error = %v", err)
		}
		if _, err := h.payments.Process(ctx, h.createSession(t, 500, "http://shop.local/cb"), u); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		page      int
		limit     int
		filter    models.TransactionFilter
		wantCount int
		wantTotal int
		wantPages int
		wantLimit int
	}{
		{name: "default limit", page: 0, limit: 0, wantCount: 5, wantTotal: 5, wantPages: 1, wantLimit: 20},
		{name: "first page", page: 1, limit: 2, wantCount: 2, wantTotal: 5, wantPages: 3, wantLimit: 2},
		{name: "last page", page: 3, limit: 2, wantCount: 1, wantTotal: 5, wantPages: 3, wantLimit: 2},
		{name: "capped limit", page: 1, limit: 500, wantCount: 5, wantTotal: 5, wantPages: 1, wantLimit: 100},
		{name: "payments only", page: 1, limit: 10, filter: models.TransactionFilter{Type: models.TransactionTypePayment}, wantCount: 2, wantTotal: 2, wantPages: 1, wantLimit: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.history.ListUserTransactions(ctx, user.ID, tt.page, tt.limit, tt.filter)
			if err != nil {
				t.Fatalf("ListUserTransactions() error = %v", err)
			}
			if len(got.Transactions) != tt.wantCount {
				t.Fatalf("transactions = %d, want %d", len(got.Transactions), tt.wantCount)
			}
			p := got.Pagination
			if p.Total != tt.wantTotal || p.Pages != tt.wantPages || p.Limit != tt.wantLimit {
				t.Fatalf("pagination = %+v", p)
			}
		})
	}

	stats, err := h.history.Stats(ctx, user.ID)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalTransactions != 5 || stats.SuccessRate != 100 {
		t.Fatalf("stats = %+v", stats)
	}
	if p := stats.Stats[models.TransactionTypePayment]; p.Count != 2 || p.TotalAmount != 1000 {
		t.Fatalf("payment stats = %+v", p)
	}
	if tp := stats.Stats[models.TransactionTypeTopup]; tp.Count != 3 || tp.TotalAmount != 3000 {
		t.Fatalf("topup stats = %+v", tp)
	}

	if _, err := h.history.Stats(ctx, "no-such-user"); !errors.Is(err, sqlrepo.ErrUserNotFound) {
		t.Fatalf("Stats(unknown) error = %v, want ErrUserNotFound", err)
	}
}
