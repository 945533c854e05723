// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"wallet-gateway/internal/database"
	"wallet-gateway/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewSQLiteDB opens a private in-memory sqlite database with the schema applied.
func NewSQLiteDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.Open(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// SeedUser inserts a user with the given PIN and balance directly, bypassing the ledger.
func SeedUser(t *testing.T, db *sqlx.DB, phone, pin string, balance int64, active bool) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash pin: %v", err)
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.NewString(),
		Phone:     phone,
		PinHash:   string(hash),
		Balance:   balance,
		IsActive:  active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = db.Exec(db.Rebind(`
		INSERT INTO users (id, phone, pin_hash, name, balance, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		u.ID, u.Phone, u.PinHash, u.Name, u.Balance, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", phone, err)
	}
	return u
}

// Balance reads a user's stored balance.
func Balance(t *testing.T, db *sqlx.DB, userID string) int64 {
	t.Helper()

	var balance int64
	if err := db.Get(&balance, db.Rebind(`SELECT balance FROM users WHERE id = ?`), userID); err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	return balance
}

// CountTransactions counts ledger entries of a type for a user.
func CountTransactions(t *testing.T, db *sqlx.DB, userID string, typ models.TransactionType) int {
	t.Helper()

	var n int
	err := db.Get(&n, db.Rebind(`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND type = ?`), userID, string(typ))
	if err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
