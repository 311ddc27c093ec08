package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loguvo/loguvo/internal/domain"
)

// ─── Referral Operations ────────────────────────────────────────────────────

// CreateReferral inserts a pending referral. The referred account's unique
// column rejects a second referral for the same signup.
func (db *DB) CreateReferral(ctx context.Context, ref *domain.Referral) error {
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO referrals (id, referrer_id, referred_id, valid, activity_confirmed, created_at)
		VALUES (?, ?, ?, 0, 0, ?)
	`, ref.ID, ref.ReferrerID, ref.ReferredID, formatTime(ref.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReferralExists
		}
		return fmt.Errorf("create referral for %s: %w", ref.ReferredID, err)
	}
	ref.Valid = false
	ref.ActivityConfirmed = false
	return nil
}

// PendingReferralFor returns the pending (valid=false) referral where the
// given account is the referred party, or nil when there is none — either
// the signup carried no referral code or the referral was already validated.
func (db *DB) PendingReferralFor(ctx context.Context, referredID string) (*domain.Referral, error) {
	var (
		ref       domain.Referral
		valid     int
		confirmed int
		createdAt string
	)
	err := db.db.QueryRowContext(ctx, `
		SELECT id, referrer_id, referred_id, valid, activity_confirmed, created_at
		FROM referrals
		WHERE referred_id = ? AND valid = 0
	`, referredID).Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &valid, &confirmed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pending referral for %s: %w", referredID, err)
	}
	ref.Valid = valid == 1
	ref.ActivityConfirmed = confirmed == 1
	ref.CreatedAt = parseTime(createdAt)
	return &ref, nil
}

// MarkReferralValid performs the one-way pending → validated transition as a
// single conditional update. Exactly one of any number of concurrent callers
// observes won=true; the rest find valid already set and are no-ops.
func (db *DB) MarkReferralValid(ctx context.Context, referralID string) (bool, error) {
	res, err := db.db.ExecContext(ctx, `
		UPDATE referrals SET valid = 1, activity_confirmed = 1
		WHERE id = ? AND valid = 0
	`, referralID)
	if err != nil {
		return false, fmt.Errorf("mark referral %s valid: %w", referralID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CountValidReferrals returns how many of an account's referrals have been
// validated. Dashboard stat; no write path.
func (db *DB) CountValidReferrals(ctx context.Context, referrerID string) (int64, error) {
	var n int64
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM referrals WHERE referrer_id = ? AND valid = 1
	`, referrerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count valid referrals for %s: %w", referrerID, err)
	}
	return n, nil
}
