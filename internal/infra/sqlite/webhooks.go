package sqlite

import (
	"context"
	"fmt"
	"time"
)

// ─── Webhook Idempotency Operations ─────────────────────────────────────────

// RecordWebhookEvent atomically claims (provider, externalID). The insert and
// the duplicate check are one statement, so there is no window in which two
// deliveries of the same event can both claim it. accepted=false means a
// replay: the caller responds success and performs no further action.
func (db *DB) RecordWebhookEvent(ctx context.Context, provider, externalID string, amount int64) (accepted bool, err error) {
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO webhook_events (provider, external_id, amount, processed, created_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (provider, external_id) DO NOTHING
	`, provider, externalID, amount, formatTime(time.Now().UTC()))
	if err != nil {
		return false, fmt.Errorf("record webhook %s/%s: %w", provider, externalID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkWebhookError attaches an operator-facing note to a claimed event, e.g.
// an unresolvable account reference. The claim itself stays in place so the
// provider is not re-triggered; reconciliation is manual.
func (db *DB) MarkWebhookError(ctx context.Context, provider, externalID, msg string) error {
	_, err := db.db.ExecContext(ctx, `
		UPDATE webhook_events SET error = ? WHERE provider = ? AND external_id = ?
	`, msg, provider, externalID)
	if err != nil {
		return fmt.Errorf("mark webhook error %s/%s: %w", provider, externalID, err)
	}
	return nil
}

// GetWebhookEvent returns the error note recorded for an event, if any.
// Used by reconciliation tooling and tests.
func (db *DB) GetWebhookEvent(ctx context.Context, provider, externalID string) (amount int64, errMsg string, err error) {
	err = db.db.QueryRowContext(ctx, `
		SELECT amount, error FROM webhook_events WHERE provider = ? AND external_id = ?
	`, provider, externalID).Scan(&amount, &errMsg)
	if err != nil {
		return 0, "", fmt.Errorf("get webhook %s/%s: %w", provider, externalID, err)
	}
	return amount, errMsg, nil
}
