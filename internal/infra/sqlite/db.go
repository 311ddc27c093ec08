// Package sqlite is the durable ledger store: accounts, the append-only
// transaction log, referrals, generation records and webhook-event claims.
// Every cross-row invariant (non-negative balances, at-most-once referral
// flips, webhook idempotency) is enforced here with atomic SQL, never in
// callers.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // database/sql driver
)

// timeLayout is the TEXT timestamp format used by every table.
const timeLayout = "2006-01-02 15:04:05"

// DB wraps the sqlite handle and owns all SQL in the repository.
type DB struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" for tests.
// A single connection serializes writers, which sqlite wants anyway; the
// conditional updates in this package keep the invariants even if that
// changes.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := sqlDB.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{db: sqlDB}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying handle.
func (db *DB) Close() error { return db.db.Close() }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL DEFAULT '',
			balance       INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			referral_code TEXT NOT NULL UNIQUE,
			referred_by   TEXT REFERENCES accounts(id),
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		// Append-only: rows are inserted by ApplyDelta and never touched again.
		`CREATE TABLE IF NOT EXISTS transactions (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			amount     INTEGER NOT NULL,
			kind       TEXT NOT NULL,
			reason     TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions(account_id)`,

		// One referral per referred account, enforced by the unique column.
		`CREATE TABLE IF NOT EXISTS referrals (
			id                 TEXT PRIMARY KEY,
			referrer_id        TEXT NOT NULL REFERENCES accounts(id),
			referred_id        TEXT NOT NULL UNIQUE REFERENCES accounts(id),
			valid              INTEGER NOT NULL DEFAULT 0,
			activity_confirmed INTEGER NOT NULL DEFAULT 0,
			created_at         TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_id)`,

		`CREATE TABLE IF NOT EXISTS generations (
			id         TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			prompt     TEXT NOT NULL,
			image_ref  TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_generations_account ON generations(account_id)`,

		// (provider, external_id) is the idempotency key for top-ups.
		`CREATE TABLE IF NOT EXISTS webhook_events (
			provider    TEXT NOT NULL,
			external_id TEXT NOT NULL,
			amount      INTEGER NOT NULL DEFAULT 0,
			processed   INTEGER NOT NULL DEFAULT 1,
			error       TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (provider, external_id)
		)`,
	}
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. The modernc driver exposes this only through the message text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
