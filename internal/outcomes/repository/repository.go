package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Appointment is the outcomes-side view of a booked trial visit. The
// appointments module owns booking CRUD; this context reads and mutates only
// the columns the outcome engine is responsible for.
type Appointment struct {
	ID                       uuid.UUID
	OrganizationID           uuid.UUID
	LeadID                   *uuid.UUID
	SubjectName              string
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
}

const appointmentSelectCols = `
	id, organization_id, lead_id, subject_name, start_at, status, lead_source,
	booked_by, owner, is_vip, is_comp, ignore_metrics, originating_appointment_id,
	closed_at, closed_by, updated_by, update_reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.LeadID, &a.SubjectName, &a.StartAt, &a.Status, &a.LeadSource,
		&a.BookedBy, &a.Owner, &a.IsVIP, &a.IsComp, &a.IgnoreMetrics, &a.OriginatingAppointmentID,
		&a.ClosedAt, &a.ClosedBy, &a.UpdatedBy, &a.UpdateReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	return a, err
}

func (r *Repository) GetAppointment(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+appointmentSelectCols+`
		FROM appointments
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`, id, organizationID)
	return scanAppointment(row)
}

// Run is one recorded attempt/outcome for an appointment.
type Run struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	AppointmentID    *uuid.UUID
	SubjectName      string
	RawResult        string
	Result           string
	CommissionCents  int64
	Objection        *string
	AttemptDate      time.Time
	SaleDate         *time.Time
	CoachName        *string
	CreditedTo       *string
	LoyaltyCountedAt *time.Time
	LoyaltyCountedBy *string
	UpdatedBy        *string
	UpdateReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

const runSelectCols = `
	id, organization_id, appointment_id, subject_name, raw_result, result,
	commission_cents, objection, attempt_date, sale_date, coach_name, credited_to,
	loyalty_counted_at, loyalty_counted_by, updated_by, update_reason, created_at, updated_at`

func scanRun(row pgx.Row) (Run, error) {
	var run Run
	err := row.Scan(
		&run.ID, &run.OrganizationID, &run.AppointmentID, &run.SubjectName, &run.RawResult, &run.Result,
		&run.CommissionCents, &run.Objection, &run.AttemptDate, &run.SaleDate, &run.CoachName, &run.CreditedTo,
		&run.LoyaltyCountedAt, &run.LoyaltyCountedBy, &run.UpdatedBy, &run.UpdateReason, &run.CreatedAt, &run.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return run, err
}

func (r *Repository) GetRunByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Run, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+runSelectCols+`
		FROM runs
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scanRun(row)
}

// GetLatestRunForAppointment returns the most recent run linked to the
// appointment, or found=false when the appointment has no run yet.
func (r *Repository) GetLatestRunForAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) (Run, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+runSelectCols+`
		FROM runs
		WHERE appointment_id = $1 AND organization_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, appointmentID, organizationID)
	run, err := scanRun(row)
	if errors.Is(err, ErrNotFound) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, err
	}
	return run, true, nil
}

// SaveAuthoritativeParams carries the run and appointment writes the
// orchestrator treats as a single authoritative unit.
type SaveAuthoritativeParams struct {
	OrganizationID   uuid.UUID
	AppointmentID    uuid.UUID
	RunID            *uuid.UUID // nil creates the run
	SubjectName      string
	RawResult        string
	Result           string
	CommissionCents  int64
	Objection        *string
	AttemptDate      time.Time
	SaleDate         *time.Time // set once on first sale transition; COALESCEd with any existing value
	CoachName        *string
	CreditedTo       *string
	NewStatus        string
	CloseAppointment bool
	Editor           string
	Reason           *string
}

// SaveAuthoritative upserts the run and updates the appointment status in one
// transaction. These two records are the authoritative pair: a failure here
// aborts the whole outcome call, whereas every later side effect is allowed
// to lag and be repaired by the auditor.
func (r *Repository) SaveAuthoritative(ctx context.Context, params SaveAuthoritativeParams) (Run, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Run{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var run Run
	if params.RunID == nil {
		row := tx.QueryRow(ctx, `
			INSERT INTO runs (
				organization_id, appointment_id, subject_name, raw_result, result,
				commission_cents, objection, attempt_date, sale_date, coach_name,
				credited_to, updated_by, update_reason
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING`+runSelectCols+`
		`, params.OrganizationID, params.AppointmentID, params.SubjectName, params.RawResult, params.Result,
			params.CommissionCents, params.Objection, params.AttemptDate, params.SaleDate, params.CoachName,
			params.CreditedTo, params.Editor, params.Reason)
		run, err = scanRun(row)
	} else {
		row := tx.QueryRow(ctx, `
			UPDATE runs SET
				raw_result = $3,
				result = $4,
				commission_cents = $5,
				objection = $6,
				attempt_date = $7,
				sale_date = COALESCE(sale_date, $8),
				coach_name = COALESCE($9, coach_name),
				credited_to = COALESCE($10, credited_to),
				updated_by = $11,
				update_reason = $12,
				updated_at = now()
			WHERE id = $1 AND organization_id = $2
			RETURNING`+runSelectCols+`
		`, *params.RunID, params.OrganizationID, params.RawResult, params.Result,
			params.CommissionCents, params.Objection, params.AttemptDate, params.SaleDate,
			params.CoachName, params.CreditedTo, params.Editor, params.Reason)
		run, err = scanRun(row)
	}
	if err != nil {
		return Run{}, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE appointments SET
			status = $3,
			closed_at = CASE WHEN $4 THEN now() ELSE closed_at END,
			closed_by = CASE WHEN $4 THEN $5 ELSE closed_by END,
			updated_by = $5,
			update_reason = $6,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND deleted_at IS NULL
	`, params.AppointmentID, params.OrganizationID, params.NewStatus, params.CloseAppointment, params.Editor, params.Reason)
	if err != nil {
		return Run{}, err
	}
	if tag.RowsAffected() == 0 {
		return Run{}, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return Run{}, err
	}
	return run, nil
}

// CreateSecondVisitParams describes the optional follow-on appointment a
// caller can attach to an outcome.
type CreateSecondVisitParams struct {
	OrganizationID           uuid.UUID
	OriginatingAppointmentID uuid.UUID
	LeadID                   *uuid.UUID
	SubjectName              string
	StartAt                  time.Time
	CoachName                string
	LeadSource               *string
	Editor                   string
}

// CreateSecondVisit inserts a fresh Active appointment linked back to the
// original via originating_appointment_id.
func (r *Repository) CreateSecondVisit(ctx context.Context, params CreateSecondVisitParams) (Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			organization_id, lead_id, subject_name, start_at, status, lead_source,
			booked_by, owner, originating_appointment_id, updated_by
		) VALUES ($1, $2, $3, $4, 'Active', $5, $6, $7, $8, $6)
		RETURNING`+appointmentSelectCols+`
	`, params.OrganizationID, params.LeadID, params.SubjectName, params.StartAt, params.LeadSource,
		params.Editor, params.CoachName, params.OriginatingAppointmentID)
	return scanAppointment(row)
}
