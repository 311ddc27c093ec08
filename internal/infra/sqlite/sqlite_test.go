package sqlite

import (
	"context"
	"testing"

	"github.com/loguvo/loguvo/internal/domain"
)

// Compile-time check that *DB satisfies the store boundary.
var _ domain.LedgerStore = (*DB)(nil)

// newTestDB opens a fresh in-memory database for one test.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newTestAccount creates an account and returns it.
func newTestAccount(t *testing.T, db *DB, id string) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		ID:           id,
		Email:        id + "@example.com",
		ReferralCode: domain.NewReferralCode(),
	}
	if err := db.CreateAccount(context.Background(), acc); err != nil {
		t.Fatalf("CreateAccount(%s) error: %v", id, err)
	}
	return acc
}
