package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/loguvo/loguvo/internal/domain"
)

// ─── Generation Record Operations ───────────────────────────────────────────

// InsertGeneration persists a produced logo. Called only after the paying
// debit has committed.
func (db *DB) InsertGeneration(ctx context.Context, rec *domain.GenerationRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO generations (id, account_id, prompt, image_ref, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.AccountID, rec.Prompt, rec.ImageRef, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert generation %s: %w", rec.ID, err)
	}
	return nil
}

// CountGenerations returns how many logos an account has produced. The
// referral engine uses this as the qualifying-activity check.
func (db *DB) CountGenerations(ctx context.Context, accountID string) (int64, error) {
	var n int64
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM generations WHERE account_id = ?
	`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count generations for %s: %w", accountID, err)
	}
	return n, nil
}

// ListGenerations returns an account's most recent logos.
func (db *DB) ListGenerations(ctx context.Context, accountID string, limit int) ([]domain.GenerationRecord, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, account_id, prompt, image_ref, created_at
		FROM generations
		WHERE account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations for %s: %w", accountID, err)
	}
	defer rows.Close()

	var recs []domain.GenerationRecord
	for rows.Next() {
		var (
			rec       domain.GenerationRecord
			createdAt string
		)
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Prompt, &rec.ImageRef, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = parseTime(createdAt)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
