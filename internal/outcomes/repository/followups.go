package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studio_pipeline_backend/internal/outcomes/domain"
)

type FollowUpEntry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	AppointmentID  uuid.UUID
	LeadID         *uuid.UUID
	SubjectName    string
	TouchNumber    int
	TriggerType    string
	TriggerDate    time.Time
	ScheduledDate  time.Time
	Status         string
	SnoozedUntil   *time.Time
	Note           *string
	UpdatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const followUpSelectCols = `
	id, organization_id, appointment_id, lead_id, subject_name, touch_number,
	trigger_type, trigger_date, scheduled_date, status, snoozed_until, note,
	updated_by, created_at, updated_at`

func scanFollowUp(row pgx.Row) (FollowUpEntry, error) {
	var f FollowUpEntry
	err := row.Scan(
		&f.ID, &f.OrganizationID, &f.AppointmentID, &f.LeadID, &f.SubjectName, &f.TouchNumber,
		&f.TriggerType, &f.TriggerDate, &f.ScheduledDate, &f.Status, &f.SnoozedUntil, &f.Note,
		&f.UpdatedBy, &f.CreatedAt, &f.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return FollowUpEntry{}, ErrNotFound
	}
	return f, err
}

type ReplaceFollowUpBatchParams struct {
	OrganizationID uuid.UUID
	AppointmentID  uuid.UUID
	LeadID         *uuid.UUID
	SubjectName    string
	Editor         string
	Drafts         []domain.FollowUpDraft
}

// ReplaceFollowUpBatch deletes any open (Pending or Snoozed) entries for the
// appointment and inserts the new cadence in one transaction. Sent and
// Converted entries are history and are never touched. Returns the number of
// entries inserted.
func (r *Repository) ReplaceFollowUpBatch(ctx context.Context, params ReplaceFollowUpBatchParams) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		DELETE FROM follow_up_entries
		WHERE appointment_id = $1 AND organization_id = $2 AND status IN ('Pending', 'Snoozed')
	`, params.AppointmentID, params.OrganizationID)
	if err != nil {
		return 0, err
	}

	for _, d := range params.Drafts {
		_, err = tx.Exec(ctx, `
			INSERT INTO follow_up_entries (
				organization_id, appointment_id, lead_id, subject_name, touch_number,
				trigger_type, trigger_date, scheduled_date, status, updated_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, params.OrganizationID, params.AppointmentID, params.LeadID, params.SubjectName, d.TouchNumber,
			string(d.TriggerType), d.TriggerDate, d.ScheduledDate, string(d.Status), params.Editor)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(params.Drafts), nil
}

// DeletePendingFollowUps removes open entries for the appointment without
// inserting replacements. Used when an outcome lands on a result that ends
// the cadence (a sale, or not interested).
func (r *Repository) DeletePendingFollowUps(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM follow_up_entries
		WHERE appointment_id = $1 AND organization_id = $2 AND status IN ('Pending', 'Snoozed')
	`, appointmentID, organizationID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) ListFollowUpsByAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) ([]FollowUpEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+followUpSelectCols+`
		FROM follow_up_entries
		WHERE appointment_id = $1 AND organization_id = $2
		ORDER BY touch_number ASC, created_at ASC
	`, appointmentID, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFollowUps(rows)
}

// ListDueFollowUps returns open entries whose scheduled date has arrived,
// skipping snoozed entries whose snooze window is still running.
func (r *Repository) ListDueFollowUps(ctx context.Context, organizationID uuid.UUID, asOf time.Time, limit int) ([]FollowUpEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+followUpSelectCols+`
		FROM follow_up_entries
		WHERE organization_id = $1
		  AND scheduled_date <= $2
		  AND (status = 'Pending' OR (status = 'Snoozed' AND snoozed_until <= $2))
		ORDER BY scheduled_date ASC, touch_number ASC
		LIMIT $3
	`, organizationID, asOf, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFollowUps(rows)
}

// UpdateFollowUpStatus moves a single entry to a new status. SnoozedUntil is
// only meaningful together with the Snoozed status.
func (r *Repository) UpdateFollowUpStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, snoozedUntil *time.Time, editor string) (FollowUpEntry, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE follow_up_entries SET
			status = $3,
			snoozed_until = $4,
			updated_by = $5,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING`+followUpSelectCols+`
	`, id, organizationID, status, snoozedUntil, editor)
	return scanFollowUp(row)
}

func collectFollowUps(rows pgx.Rows) ([]FollowUpEntry, error) {
	var out []FollowUpEntry
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
