// Package repository persists intake leads.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	Name           string
	Phone          *string
	Email          *string
	Source         *string
	IntakeStatus   string
	IsVIP          bool
	UpdatedBy      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const selectCols = `
	id, organization_id, name, phone, email, source, intake_status, is_vip,
	updated_by, created_at, updated_at`

func scan(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.Name, &l.Phone, &l.Email, &l.Source,
		&l.IntakeStatus, &l.IsVIP, &l.UpdatedBy, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

type CreateParams struct {
	OrganizationID uuid.UUID
	Name           string
	Phone          *string
	Email          *string
	Source         *string
	IsVIP          bool
	Editor         string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (organization_id, name, phone, email, source, intake_status, is_vip, updated_by)
		VALUES ($1, $2, $3, $4, $5, 'new', $6, $7)
		RETURNING`+selectCols+`
	`, params.OrganizationID, params.Name, params.Phone, params.Email, params.Source, params.IsVIP, params.Editor)
	return scan(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+selectCols+`
		FROM leads
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)
	return scan(row)
}

// FindByContact locates an existing lead by normalized phone or
// case-insensitive email. Used for intake dedupe and booking linkage.
func (r *Repository) FindByContact(ctx context.Context, organizationID uuid.UUID, phone *string, email *string) (Lead, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+selectCols+`
		FROM leads
		WHERE organization_id = $1
		  AND (
			($2::text IS NOT NULL AND phone = $2)
			OR ($3::text IS NOT NULL AND lower(email) = lower($3))
		  )
		ORDER BY created_at DESC
		LIMIT 1
	`, organizationID, phone, email)
	lead, err := scan(row)
	if errors.Is(err, ErrNotFound) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return lead, true, nil
}

func (r *Repository) List(ctx context.Context, organizationID uuid.UUID, intakeStatus *string, limit int, offset int) ([]Lead, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM leads WHERE organization_id = $1 AND ($2::text IS NULL OR intake_status = $2)`
	if err := r.pool.QueryRow(ctx, countQuery, organizationID, intakeStatus).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT`+selectCols+`
		FROM leads
		WHERE organization_id = $1 AND ($2::text IS NULL OR intake_status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, organizationID, intakeStatus, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Lead
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// SetIntakeStatus moves a lead through the intake pipeline. Booked and
// closed are terminal for queue purposes; the row itself is never deleted.
func (r *Repository) SetIntakeStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads SET
			intake_status = $3,
			updated_by = $4,
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING`+selectCols+`
	`, id, organizationID, status, editor)
	return scan(row)
}
