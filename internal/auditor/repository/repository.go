// Package repository holds the read queries and whitelisted repair writes
// for the consistency auditor. Check queries are side-effect free; every
// mutation lives in fixes.go and is reachable only through an explicit fix
// action.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) collectIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MissingLeadSource finds open appointments with no lead source recorded.
func (r *Repository) MissingLeadSource(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT id FROM appointments
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND (lead_source IS NULL OR lead_source = '')
	`, organizationID)
}

// MissingBookingCredit finds appointments from booker-credited sources with
// no booker recorded, so referral credit cannot be attributed.
func (r *Repository) MissingBookingCredit(ctx context.Context, organizationID uuid.UUID, creditedSources []string) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT id FROM appointments
		WHERE organization_id = $1 AND deleted_at IS NULL
		  AND lead_source = ANY($2)
		  AND (booked_by IS NULL OR booked_by = '')
	`, organizationID, creditedSources)
}

// VIPFlagMismatch finds appointments whose VIP flag disagrees with the lead
// record they are linked to.
func (r *Repository) VIPFlagMismatch(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT a.id FROM appointments a
		JOIN leads l ON l.id = a.lead_id
		WHERE a.organization_id = $1 AND a.deleted_at IS NULL
		  AND a.is_vip <> l.is_vip
	`, organizationID)
}

// IntakeStatusStale finds leads still marked new even though they have a
// booked appointment.
func (r *Repository) IntakeStatusStale(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT l.id FROM leads l
		WHERE l.organization_id = $1 AND l.intake_status = 'new'
		  AND EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.lead_id = l.id AND a.deleted_at IS NULL
		  )
	`, organizationID)
}

// OrphanedRuns finds runs whose appointment link is broken: either never set
// or pointing at a soft-deleted appointment.
func (r *Repository) OrphanedRuns(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT run.id FROM runs run
		LEFT JOIN appointments a ON a.id = run.appointment_id
		WHERE run.organization_id = $1
		  AND (run.appointment_id IS NULL OR a.id IS NULL OR a.deleted_at IS NOT NULL)
	`, organizationID)
}

// StaleFollowUps finds open follow-up entries whose appointment has already
// reached a terminal status, so the cadence should no longer run.
func (r *Repository) StaleFollowUps(ctx context.Context, organizationID uuid.UUID, terminalStatuses []string) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT f.id FROM follow_up_entries f
		JOIN appointments a ON a.id = f.appointment_id
		WHERE f.organization_id = $1
		  AND f.status IN ('Pending', 'Snoozed')
		  AND (a.status = ANY($2) OR a.deleted_at IS NOT NULL)
	`, organizationID, terminalStatuses)
}

// StaleNewLeads finds leads still marked new whose normalized phone or email
// matches a booked appointment. Phones are normalized to E.164 at intake, so
// equality here is a real identity match.
func (r *Repository) StaleNewLeads(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT l.id FROM leads l
		WHERE l.organization_id = $1 AND l.intake_status = 'new'
		  AND EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.organization_id = l.organization_id AND a.deleted_at IS NULL
			  AND a.lead_id IS DISTINCT FROM l.id
			  AND (
				(l.phone IS NOT NULL AND l.phone <> '' AND a.subject_phone = l.phone)
				OR (l.email IS NOT NULL AND l.email <> '' AND lower(a.subject_email) = lower(l.email))
			  )
		  )
	`, organizationID)
}

// ZeroCommissionSales finds sale runs that recorded no commission even
// though the visit counts toward metrics.
func (r *Repository) ZeroCommissionSales(ctx context.Context, organizationID uuid.UUID, saleResults []string) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT run.id FROM runs run
		JOIN appointments a ON a.id = run.appointment_id
		WHERE run.organization_id = $1
		  AND run.result = ANY($2)
		  AND run.commission_cents = 0
		  AND a.is_comp = false AND a.ignore_metrics = false
	`, organizationID, saleResults)
}

// RunStatusPair is one run/appointment pair for the status sync check. The
// mismatch decision happens in Go against the canonical mapping, never in
// SQL.
type RunStatusPair struct {
	RunID             uuid.UUID
	AppointmentID     uuid.UUID
	Result            string
	AppointmentStatus string
}

// OutcomeStatusPairs returns the latest run per appointment with the
// appointment's current status.
func (r *Repository) OutcomeStatusPairs(ctx context.Context, organizationID uuid.UUID) ([]RunStatusPair, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT ON (run.appointment_id)
		       run.id, run.appointment_id, run.result, a.status
		FROM runs run
		JOIN appointments a ON a.id = run.appointment_id
		WHERE run.organization_id = $1 AND a.deleted_at IS NULL
		ORDER BY run.appointment_id, run.created_at DESC
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []RunStatusPair
	for rows.Next() {
		var p RunStatusPair
		if err := rows.Scan(&p.RunID, &p.AppointmentID, &p.Result, &p.AppointmentStatus); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

// UncountedLoyaltySales finds eligible sale runs that never reached the
// loyalty counter.
func (r *Repository) UncountedLoyaltySales(ctx context.Context, organizationID uuid.UUID, saleResults, excludedSources []string) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT run.id FROM runs run
		JOIN appointments a ON a.id = run.appointment_id
		WHERE run.organization_id = $1
		  AND run.result = ANY($2)
		  AND run.loyalty_counted_at IS NULL
		  AND a.is_comp = false AND a.ignore_metrics = false
		  AND (a.lead_source IS NULL OR NOT (a.lead_source = ANY($3)))
	`, organizationID, saleResults, excludedSources)
}

// DuplicateFollowUpBatches finds appointments carrying more than one open
// entry for the same touch number, which the delete-before-insert batch
// write should make impossible.
func (r *Repository) DuplicateFollowUpBatches(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT DISTINCT appointment_id FROM (
			SELECT appointment_id
			FROM follow_up_entries
			WHERE organization_id = $1 AND status IN ('Pending', 'Snoozed')
			GROUP BY appointment_id, touch_number
			HAVING COUNT(*) > 1
		) dup
	`, organizationID)
}

// MissingSaleDate finds sale runs with no sale date stamped.
func (r *Repository) MissingSaleDate(ctx context.Context, organizationID uuid.UUID, saleResults []string) ([]uuid.UUID, error) {
	return r.collectIDs(ctx, `
		SELECT id FROM runs
		WHERE organization_id = $1
		  AND result = ANY($2)
		  AND sale_date IS NULL
	`, organizationID, saleResults)
}

// AuditRunRecord is one persisted auditor sweep.
type AuditRunRecord struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Trigger        string
	StartedAt      time.Time
	FinishedAt     time.Time
	ChecksRun      int
	ChecksWarned   int
	ChecksFailed   int
	FindingCount   int
	Checks         []byte // JSON check results
	CreatedAt      time.Time
}

type InsertAuditRunParams struct {
	OrganizationID uuid.UUID
	Trigger        string
	StartedAt      time.Time
	FinishedAt     time.Time
	ChecksRun      int
	ChecksWarned   int
	ChecksFailed   int
	FindingCount   int
	Checks         []byte
}

func (r *Repository) InsertAuditRun(ctx context.Context, params InsertAuditRunParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO audit_runs (
			organization_id, trigger, started_at, finished_at,
			checks_run, checks_warned, checks_failed, finding_count, checks
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, params.OrganizationID, params.Trigger, params.StartedAt, params.FinishedAt,
		params.ChecksRun, params.ChecksWarned, params.ChecksFailed, params.FindingCount, params.Checks).Scan(&id)
	return id, err
}

// PruneAuditRuns drops everything beyond the newest keep runs. History is
// append-only; pruning is the single sanctioned deletion.
func (r *Repository) PruneAuditRuns(ctx context.Context, organizationID uuid.UUID, keep int) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM audit_runs
		WHERE organization_id = $1 AND id NOT IN (
			SELECT id FROM audit_runs
			WHERE organization_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		)
	`, organizationID, keep)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) ListAuditRuns(ctx context.Context, organizationID uuid.UUID, limit int) ([]AuditRunRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, organization_id, trigger, started_at, finished_at,
		       checks_run, checks_warned, checks_failed, finding_count, checks, created_at
		FROM audit_runs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRunRecord
	for rows.Next() {
		var rec AuditRunRecord
		err := rows.Scan(
			&rec.ID, &rec.OrganizationID, &rec.Trigger, &rec.StartedAt, &rec.FinishedAt,
			&rec.ChecksRun, &rec.ChecksWarned, &rec.ChecksFailed, &rec.FindingCount, &rec.Checks, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
