package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"wallet-gateway/internal/models"
	"wallet-gateway/internal/testutil"
)

func TestAccountService_CreateUser(t *testing.T) {
	tests := []struct {
		name    string
		req     models.CreateUserRequest
		wantErr error
	}{
		{name: "valid", req: models.CreateUserRequest{Phone: "01012345678", Pin: "1234", Name: "Mina"}},
		{name: "six digit pin", req: models.CreateUserRequest{Phone: "01012345678", Pin: "123456"}},
		{name: "short phone", req: models.CreateUserRequest{Phone: "0101234567", Pin: "1234"}, wantErr: ErrInvalidPhone},
		{name: "wrong prefix", req: models.CreateUserRequest{Phone: "02012345678", Pin: "1234"}, wantErr: ErrInvalidPhone},
		{name: "short pin", req: models.CreateUserRequest{Phone: "01012345678", Pin: "123"}, wantErr: ErrInvalidPIN},
		{name: "letters in pin", req: models.CreateUserRequest{Phone: "01012345678", Pin: "12a4"}, wantErr: ErrInvalidPIN},
		{name: "negative balance", req: models.CreateUserRequest{Phone: "01012345678", Pin: "1234", InitialBalance: -1}, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "")
			user, err := h.accounts.CreateUser(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateUser() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateUser() error = %v", err)
			}
			if !user.IsActive || user.Balance != 0 || user.PinHash == tt.req.Pin {
				t.Fatalf("CreateUser() = %+v", user)
			}
		})
	}
}

func TestAccountService_CreateUserInitialBalance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")

	user, err := h.accounts.CreateUser(ctx, models.CreateUserRequest{Phone: "01012345678", Pin: "1234", InitialBalance: 5000})
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.Balance != 5000 {
		t.Fatalf("balance = %d, want 5000", user.Balance)
	}
	if got := testutil.CountTransactions(t, h.db, user.ID, models.TransactionTypeTopup); got != 1 {
		t.Fatalf("topup entries = %d, want 1", got)
	}

	if _, err := h.accounts.CreateUser(ctx, models.CreateUserRequest{Phone: "01012345678", Pin: "9999"}); !errors.Is(err, ErrPhoneTaken) {
		t.Fatalf("duplicate CreateUser() error = %v, want ErrPhoneTaken", err)
	}

	// the new account can pay straight away
	if _, err := h.gate.Authenticate(ctx, "01012345678", "1234"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
}

func TestAccountService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	user := testutil.SeedUser(t, h.db, "01012345678", "1234", 100, true)

	if _, err := h.accounts.Login(ctx, user.Phone, "0000"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login(wrong pin) error = %v, want ErrInvalidCredentials", err)
	}

	resp, err := h.accounts.Login(ctx, user.Phone, "1234")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if len(resp.SessionToken) != 64 || resp.UserID != user.ID {
		t.Fatalf("Login() = %+v", resp)
	}
	if !resp.ExpiresAt.After(time.Now()) {
		t.Fatalf("expiresAt = %v, want in the future", resp.ExpiresAt)
	}

	got, err := h.accounts.ValidateToken(ctx, resp.SessionToken)
	if err != nil || got.ID != user.ID {
		t.Fatalf("ValidateToken() = %v, %v", got, err)
	}

	if err := h.accounts.Logout(ctx, resp.SessionToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if err := h.accounts.Logout(ctx, resp.SessionToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("second Logout() error = %v, want ErrInvalidToken", err)
	}
	if _, err := h.accounts.ValidateToken(ctx, resp.SessionToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ValidateToken(after logout) error = %v, want ErrInvalidToken", err)
	}
	if _, err := h.accounts.ValidateToken(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ValidateToken(empty) error = %v, want ErrInvalidToken", err)
	}
}

func TestAccountService_ValidateTokenInactiveUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	user := testutil.SeedUser(t, h.db, "01012345678", "1234", 100, true)

	resp, err := h.accounts.Login(ctx, user.Phone, "1234")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := h.users.SetActive(ctx, user.ID, false, time.Now()); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if _, err := h.accounts.ValidateToken(ctx, resp.SessionToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestAccountService_Balance(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, "")
	user := testutil.SeedUser(t, h.db, "01012345678", "1234", 700, true)

	got, err := h.accounts.Balance(ctx, user.ID)
	if err != nil || got.Balance != 700 {
		t.Fatalf("Balance(miss) = %+v, %v; want 700", got, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if b, ok := h.cache.get(user.ID); ok {
			if b != 700 {
				t.Fatalf("cached balance = %d, want 700", b)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("balance was never cached")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// a cached value is served without reading the store
	_ = h.cache.SetBalance(ctx, user.ID, 42)
	got, err = h.accounts.Balance(ctx, user.ID)
	if err != nil || got.Balance != 42 {
		t.Fatalf("Balance(hit) = %+v, %v; want 42", got, err)
	}
}
