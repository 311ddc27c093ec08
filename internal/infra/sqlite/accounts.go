package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loguvo/loguvo/internal/domain"
)

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account with a zero balance. Starting credits
// are granted through ApplyDelta afterwards so the transaction log explains
// the balance from the first moment of the account's life.
func (db *DB) CreateAccount(ctx context.Context, acc *domain.Account) error {
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, balance, referral_code, referred_by, created_at)
		VALUES (?, ?, 0, ?, ?, ?)
	`, acc.ID, acc.Email, acc.ReferralCode, acc.ReferredBy, formatTime(acc.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAccountExists
		}
		return fmt.Errorf("create account %s: %w", acc.ID, err)
	}
	acc.Balance = 0
	return nil
}

// GetAccount retrieves an account by id.
func (db *DB) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return db.getAccount(ctx, `WHERE id = ?`, id)
}

// GetAccountByReferralCode retrieves the account owning a referral code.
// Used at signup time to resolve referral links.
func (db *DB) GetAccountByReferralCode(ctx context.Context, code string) (*domain.Account, error) {
	return db.getAccount(ctx, `WHERE referral_code = ?`, code)
}

func (db *DB) getAccount(ctx context.Context, where string, arg any) (*domain.Account, error) {
	var (
		acc       domain.Account
		refBy     sql.NullString
		createdAt string
	)
	err := db.db.QueryRowContext(ctx, `
		SELECT id, email, balance, referral_code, referred_by, created_at
		FROM accounts `+where,
		arg,
	).Scan(&acc.ID, &acc.Email, &acc.Balance, &acc.ReferralCode, &refBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if refBy.Valid {
		acc.ReferredBy = &refBy.String
	}
	acc.CreatedAt = parseTime(createdAt)
	return &acc, nil
}

// SetReferredBy records the referring account. Set once at signup; a second
// referrer for the same account is rejected.
func (db *DB) SetReferredBy(ctx context.Context, accountID, referrerID string) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE accounts SET referred_by = ? WHERE id = ? AND referred_by IS NULL
	`, referrerID, accountID)
	if err != nil {
		return fmt.Errorf("set referred_by for %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the account is missing or it already has a referrer.
		if _, err := db.GetAccount(ctx, accountID); err != nil {
			return err
		}
		return domain.ErrReferralExists
	}
	return nil
}

// ─── Atomic Balance Apply ───────────────────────────────────────────────────

// ApplyDelta is the single sanctioned path to balance mutation. In one
// database transaction it conditionally adjusts the balance (rejecting any
// result below zero) and appends the matching ledger row. Concurrent callers
// against the same account serialize here: two debits racing over the last
// credit can never both pass the conditional update.
func (db *DB) ApplyDelta(ctx context.Context, accountID string, amount int64, kind domain.TxKind, reason string) (int64, *domain.Transaction, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("begin apply delta: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE accounts SET balance = balance + ?
		WHERE id = ? AND balance + ? >= 0
	`, amount, accountID, amount)
	if err != nil {
		return 0, nil, fmt.Errorf("apply delta to %s: %w", accountID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil, err
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)`, accountID,
		).Scan(&exists); err != nil {
			return 0, nil, err
		}
		if !exists {
			return 0, nil, domain.ErrAccountNotFound
		}
		return 0, nil, domain.ErrInsufficientFunds
	}

	var newBalance int64
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = ?`, accountID,
	).Scan(&newBalance); err != nil {
		return 0, nil, err
	}

	now := time.Now().UTC()
	ins, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (account_id, amount, kind, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, accountID, amount, string(kind), reason, formatTime(now))
	if err != nil {
		return 0, nil, fmt.Errorf("append transaction for %s: %w", accountID, err)
	}
	txID, err := ins.LastInsertId()
	if err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("commit apply delta: %w", err)
	}
	return newBalance, &domain.Transaction{
		ID:        txID,
		AccountID: accountID,
		Amount:    amount,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: now,
	}, nil
}

// ─── Transaction Log Reads ──────────────────────────────────────────────────

// ListTransactions returns an account's most recent ledger rows.
func (db *DB) ListTransactions(ctx context.Context, accountID string, limit int) ([]domain.Transaction, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, amount, kind, reason, created_at
		FROM transactions
		WHERE account_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", accountID, err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			t         domain.Transaction
			kind      string
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &kind, &t.Reason, &createdAt); err != nil {
			return nil, err
		}
		t.Kind = domain.TxKind(kind)
		t.CreatedAt = parseTime(createdAt)
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// SumTransactions returns the sum of all ledger rows for an account.
// For every account this must equal the current balance at all times; the
// invariant tests lean on it.
func (db *DB) SumTransactions(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	err := db.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE account_id = ?
	`, accountID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions for %s: %w", accountID, err)
	}
	return sum, nil
}

// ─── Read-Only Projections ──────────────────────────────────────────────────

// Leaderboard returns the top accounts ordered by balance.
func (db *DB) Leaderboard(ctx context.Context, limit int) ([]domain.Account, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, email, balance, referral_code, referred_by, created_at
		FROM accounts
		ORDER BY balance DESC, created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var (
			acc       domain.Account
			refBy     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&acc.ID, &acc.Email, &acc.Balance, &acc.ReferralCode, &refBy, &createdAt); err != nil {
			return nil, err
		}
		if refBy.Valid {
			acc.ReferredBy = &refBy.String
		}
		acc.CreatedAt = parseTime(createdAt)
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}
