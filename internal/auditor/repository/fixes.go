package repository

import (
	"context"

	"github.com/google/uuid"
)

// SyncAppointmentStatus sets one appointment to the status its latest run
// implies. Called per mismatched pair by the outcome_status_sync fix.
func (r *Repository) SyncAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID, status string, editor string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET
			status = $3,
			updated_by = $4,
			update_reason = 'auditor: outcome_status_sync',
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL AND status <> $3
	`, appointmentID, organizationID, status, editor)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// RepairCommission writes the policy commission onto zero-commission sale
// runs of the given tier.
func (r *Repository) RepairCommission(ctx context.Context, organizationID uuid.UUID, result string, commissionCents int64, editor string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE runs SET
			commission_cents = $3,
			updated_by = $4,
			update_reason = 'auditor: zero_commission_sales',
			updated_at = now()
		FROM appointments a
		WHERE runs.appointment_id = a.id
		  AND runs.organization_id = $1
		  AND runs.result = $2
		  AND runs.commission_cents = 0
		  AND a.is_comp = false AND a.ignore_metrics = false
	`, organizationID, result, commissionCents, editor)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// RetireStaleFollowUps soft-retires open entries on terminally-settled
// appointments to Dormant. The entries stay as history; they just stop
// surfacing in the queue.
func (r *Repository) RetireStaleFollowUps(ctx context.Context, organizationID uuid.UUID, terminalStatuses []string, editor string) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE follow_up_entries SET
			status = 'Dormant',
			updated_by = $3,
			updated_at = now()
		FROM appointments a
		WHERE follow_up_entries.appointment_id = a.id
		  AND follow_up_entries.organization_id = $1
		  AND follow_up_entries.status IN ('Pending', 'Snoozed')
		  AND (a.status = ANY($2) OR a.deleted_at IS NOT NULL)
	`, organizationID, terminalStatuses, editor)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// MarkLeadsBooked moves stale new leads with booked appointments to the
// booked intake status. Used by both intake_status_stale and
// stale_new_leads fixes; the lead sets differ by query.
func (r *Repository) MarkLeadsBooked(ctx context.Context, organizationID uuid.UUID, leadIDs []uuid.UUID, editor string) (int, error) {
	if len(leadIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET
			intake_status = 'booked',
			updated_by = $3,
			updated_at = now()
		WHERE organization_id = $1 AND id = ANY($2) AND intake_status = 'new'
	`, organizationID, leadIDs, editor)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
