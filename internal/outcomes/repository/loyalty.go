package repository

import (
	"context"

	"github.com/google/uuid"
)

// IncrementLoyaltyIfUnmarked bumps the organization's conversion counter and
// stamps the run's loyalty marker in one transaction. The marker is the
// idempotency guard: a run that already carries it is skipped, so replays and
// result corrections cannot double-count the same sale. Returns whether the
// counter was actually incremented.
func (r *Repository) IncrementLoyaltyIfUnmarked(ctx context.Context, runID uuid.UUID, organizationID uuid.UUID, editor string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE runs SET
			loyalty_counted_at = now(),
			loyalty_counted_by = $3,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND loyalty_counted_at IS NULL
	`, runID, organizationID, editor)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// Already counted.
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO loyalty_counters (organization_id, total_conversions)
		VALUES ($1, 1)
		ON CONFLICT (organization_id) DO UPDATE SET
			total_conversions = loyalty_counters.total_conversions + 1,
			updated_at = now()
	`, organizationID)
	if err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) GetLoyaltyCount(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(
			(SELECT total_conversions FROM loyalty_counters WHERE organization_id = $1), 0)
	`, organizationID).Scan(&total)
	return total, err
}
