package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutcomeAuditEvent is one append-only row in the outcome trail. Events are
// never updated or deleted; corrections show up as additional events.
type OutcomeAuditEvent struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	AppointmentID  uuid.UUID
	RunID          *uuid.UUID
	OldResult      *string
	NewResult      string
	OldStatus      *string
	NewStatus      string
	Editor         string
	Source         string
	Reason         *string
	Metadata       map[string]any
	CreatedAt      time.Time
}

type CreateAuditEventParams struct {
	OrganizationID uuid.UUID
	AppointmentID  uuid.UUID
	RunID          *uuid.UUID
	OldResult      *string
	NewResult      string
	OldStatus      *string
	NewStatus      string
	Editor         string
	Source         string
	Reason         *string
	Metadata       map[string]any
}

func (r *Repository) CreateAuditEvent(ctx context.Context, params CreateAuditEventParams) error {
	var metadata []byte
	if params.Metadata != nil {
		var err error
		metadata, err = json.Marshal(params.Metadata)
		if err != nil {
			return err
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO outcome_audit_events (
			organization_id, appointment_id, run_id, old_result, new_result,
			old_status, new_status, editor, source, reason, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, params.OrganizationID, params.AppointmentID, params.RunID, params.OldResult, params.NewResult,
		params.OldStatus, params.NewStatus, params.Editor, params.Source, params.Reason, metadata)
	return err
}

func (r *Repository) ListAuditEventsByAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) ([]OutcomeAuditEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, appointment_id, run_id, old_result, new_result,
		       old_status, new_status, editor, source, reason, metadata, created_at
		FROM outcome_audit_events
		WHERE appointment_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
	`, appointmentID, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutcomeAuditEvent
	for rows.Next() {
		var e OutcomeAuditEvent
		var metadata []byte
		err := rows.Scan(
			&e.ID, &e.OrganizationID, &e.AppointmentID, &e.RunID, &e.OldResult, &e.NewResult,
			&e.OldStatus, &e.NewStatus, &e.Editor, &e.Source, &e.Reason, &metadata, &e.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
