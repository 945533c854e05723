package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"wallet-gateway/internal/models"
)

func TestSessionManager_Create(t *testing.T) {
	tests := []struct {
		name       string
		serviceURL string
		req        models.CreateSessionRequest
		wantErr    error
		wantURL    func(id string) string
	}{
		{
			name:    "zero amount",
			req:     models.CreateSessionRequest{Amount: 0, CallbackURL: "http://shop.local/cb"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			req:     models.CreateSessionRequest{Amount: -5, CallbackURL: "http://shop.local/cb"},
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "no callback and no default",
			req:     models.CreateSessionRequest{Amount: 100},
			wantErr: ErrInvalidCallbackURL,
		},
		{
			name:    "non http callback",
			req:     models.CreateSessionRequest{Amount: 100, CallbackURL: "ftp://shop.local/cb"},
			wantErr: ErrInvalidCallbackURL,
		},
		{
			name:    "bad failure callback",
			req:     models.CreateSessionRequest{Amount: 100, CallbackURL: "http://shop.local/cb", FailureCallbackURL: "/relative"},
			wantErr: ErrInvalidCallbackURL,
		},
		{
			name:       "default callback from payment service",
			serviceURL: "http://payments.local/",
			req:        models.CreateSessionRequest{Amount: 100},
			wantURL:    func(id string) string { return "http://payments.local/payment/success/" + id },
		},
		{
			name:    "explicit callback wins",
			req:     models.CreateSessionRequest{Amount: 100, CallbackURL: "https://shop.local/cb"},
			wantURL: func(string) string { return "https://shop.local/cb" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.serviceURL)
			fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			h.manager.now = func() time.Time { return fixed }

			s, err := h.manager.Create(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			if !strings.HasPrefix(s.TransactionID, "tx_") {
				t.Fatalf("transaction id = %q, want tx_ prefix", s.TransactionID)
			}
			if s.Status != models.SessionStatusPending {
				t.Fatalf("status = %s, want PENDING", s.Status)
			}
			if !s.ExpiresAt.Equal(fixed.Add(time.Hour)) {
				t.Fatalf("expiresAt = %v, want %v", s.ExpiresAt, fixed.Add(time.Hour))
			}
			if want := tt.wantURL(s.TransactionID); s.CallbackURL != want {
				t.Fatalf("callbackUrl = %q, want %q", s.CallbackURL, want)
			}

			stored := h.reload(t, s.TransactionID)
			if stored.Amount != tt.req.Amount || stored.CallbackURL != s.CallbackURL {
				t.Fatalf("stored session = %+v", stored)
			}
		})
	}
}

func TestSessionManager_Evaluate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")

	fresh := h.createSession(t, 100, "http://shop.local/cb")
	d, err := h.manager.Evaluate(ctx, fresh)
	if err != nil || !d.Processable {
		t.Fatalf("Evaluate(fresh) = %+v, %v; want processable", d, err)
	}

	h.manager.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	d, err = h.manager.Evaluate(ctx, fresh)
	if err != nil {
		t.Fatalf("Evaluate(expired) error = %v", err)
	}
	if d.Processable || d.Reason != ReasonExpired {
		t.Fatalf("Evaluate(expired) = %+v, want reason expired", d)
	}
	if got := h.reload(t, fresh.TransactionID).Status; got != models.SessionStatusExpired {
		t.Fatalf("stored status = %s, want EXPIRED", got)
	}
	h.manager.now = time.Now

	failed := h.createSession(t, 100, "http://shop.local/cb")
	if _, err := h.payments.MarkFailed(ctx, failed, models.ReasonInvalidPIN); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	d, _ = h.manager.Evaluate(ctx, failed)
	if d.Processable || d.Reason != "already failed" {
		t.Fatalf("Evaluate(failed) = %+v, want reason \"already failed\"", d)
	}
}

func TestSessionManager_ExpireStale(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")

	for i := 0; i < 3; i++ {
		h.createSession(t, 100, "http://shop.local/cb")
	}
	h.manager.now = func() time.Time { return time.Now().Add(90 * time.Minute) }

	n, err := h.manager.ExpireStale(ctx, 100)
	if err != nil || n != 3 {
		t.Fatalf("ExpireStale() = %d, %v; want 3, nil", n, err)
	}
	n, _ = h.manager.ExpireStale(ctx, 100)
	if n != 0 {
		t.Fatalf("second ExpireStale() = %d, want 0", n)
	}
}
