// Package repository persists intro-visit appointments. The outcomes
// context has its own narrower view of this table; booking CRUD and flag
// management live here.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("appointment not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Appointment struct {
	ID                       uuid.UUID
	OrganizationID           uuid.UUID
	LeadID                   *uuid.UUID
	SubjectName              string
	SubjectPhone             *string
	SubjectEmail             *string
	StartAt                  time.Time
	Status                   string
	LeadSource               *string
	BookedBy                 *string
	Owner                    *string
	IsVIP                    bool
	IsComp                   bool
	IgnoreMetrics            bool
	OriginatingAppointmentID *uuid.UUID
	ClosedAt                 *time.Time
	ClosedBy                 *string
	UpdatedBy                *string
	UpdateReason             *string
	CreatedAt                time.Time
	UpdatedAt                time.Time
	DeletedAt                *time.Time
}

const selectCols = `
	id, organization_id, lead_id, subject_name, subject_phone, subject_email,
	start_at, status, lead_source, booked_by, owner, is_vip, is_comp,
	ignore_metrics, originating_appointment_id, closed_at, closed_by,
	updated_by, update_reason, created_at, updated_at, deleted_at`

func scan(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.LeadID, &a.SubjectName, &a.SubjectPhone, &a.SubjectEmail,
		&a.StartAt, &a.Status, &a.LeadSource, &a.BookedBy, &a.Owner, &a.IsVIP, &a.IsComp,
		&a.IgnoreMetrics, &a.OriginatingAppointmentID, &a.ClosedAt, &a.ClosedBy,
		&a.UpdatedBy, &a.UpdateReason, &a.CreatedAt, &a.UpdatedAt, &a.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	return a, err
}

type CreateParams struct {
	OrganizationID uuid.UUID
	LeadID         *uuid.UUID
	SubjectName    string
	SubjectPhone   *string
	SubjectEmail   *string
	StartAt        time.Time
	Status         string
	LeadSource     *string
	BookedBy       *string
	Owner          *string
	IsVIP          bool
	Editor         string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			organization_id, lead_id, subject_name, subject_phone, subject_email,
			start_at, status, lead_source, booked_by, owner, is_vip, updated_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING`+selectCols+`
	`, params.OrganizationID, params.LeadID, params.SubjectName, params.SubjectPhone, params.SubjectEmail,
		params.StartAt, params.Status, params.LeadSource, params.BookedBy, params.Owner, params.IsVIP, params.Editor)
	return scan(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+selectCols+`
		FROM appointments
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`, id, organizationID)
	return scan(row)
}

type ListFilter struct {
	Status    *string
	Owner     *string
	StartFrom *time.Time
	StartTo   *time.Time
	Limit     int
	Offset    int
}

func (r *Repository) List(ctx context.Context, organizationID uuid.UUID, filter ListFilter) ([]Appointment, int, error) {
	where := []string{"organization_id = $1", "deleted_at IS NULL"}
	args := []any{organizationID}

	addArg := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Status != nil {
		addArg("status = $%d", *filter.Status)
	}
	if filter.Owner != nil {
		addArg("owner = $%d", *filter.Owner)
	}
	if filter.StartFrom != nil {
		addArg("start_at >= $%d", *filter.StartFrom)
	}
	if filter.StartTo != nil {
		addArg("start_at < $%d", *filter.StartTo)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM appointments WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(
		"SELECT%s FROM appointments WHERE %s ORDER BY start_at DESC LIMIT $%d OFFSET $%d",
		selectCols, whereClause, len(args)-1, len(args),
	)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

type UpdateParams struct {
	SubjectName  *string
	SubjectPhone *string
	SubjectEmail *string
	StartAt      *time.Time
	LeadSource   *string
	Owner        *string
	Editor       string
	Reason       *string
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params UpdateParams) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments SET
			subject_name = COALESCE($3, subject_name),
			subject_phone = COALESCE($4, subject_phone),
			subject_email = COALESCE($5, subject_email),
			start_at = COALESCE($6, start_at),
			lead_source = COALESCE($7, lead_source),
			owner = COALESCE($8, owner),
			updated_by = $9,
			update_reason = $10,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		RETURNING`+selectCols+`
	`, id, organizationID, params.SubjectName, params.SubjectPhone, params.SubjectEmail,
		params.StartAt, params.LeadSource, params.Owner, params.Editor, params.Reason)
	return scan(row)
}

type FlagParams struct {
	IsVIP         *bool
	IsComp        *bool
	IgnoreMetrics *bool
	Editor        string
}

// SetFlags updates the metric-affecting flags. Comp and ignore-metrics
// change how the orchestrator treats future outcomes; they never rewrite
// history.
func (r *Repository) SetFlags(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params FlagParams) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments SET
			is_vip = COALESCE($3, is_vip),
			is_comp = COALESCE($4, is_comp),
			ignore_metrics = COALESCE($5, ignore_metrics),
			updated_by = $6,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		RETURNING`+selectCols+`
	`, id, organizationID, params.IsVIP, params.IsComp, params.IgnoreMetrics, params.Editor)
	return scan(row)
}

// SetStatus writes a manual status change (booking cancellation and
// reactivation). Outcome-driven transitions go through the orchestrator.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string, reason *string) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments SET
			status = $3,
			updated_by = $4,
			update_reason = $5,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
		RETURNING`+selectCols+`
	`, id, organizationID, status, editor, reason)
	return scan(row)
}

// SoftDelete marks the appointment deleted and moves it to the soft-deleted
// status. The row survives for the audit trail and the auditor's queries.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments SET
			deleted_at = now(),
			status = $3,
			updated_by = $4,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`, id, organizationID, status, editor)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
