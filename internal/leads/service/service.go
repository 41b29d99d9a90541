package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/events"
	"studio_pipeline_backend/internal/leads/repository"
	"studio_pipeline_backend/platform/apperr"
	"studio_pipeline_backend/platform/logger"
	"studio_pipeline_backend/platform/phone"
)

// Intake pipeline statuses.
const (
	IntakeNew    = "new"
	IntakeBooked = "booked"
	IntakeClosed = "closed"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Lead, error)
	FindByContact(ctx context.Context, organizationID uuid.UUID, phone *string, email *string) (repository.Lead, bool, error)
	List(ctx context.Context, organizationID uuid.UUID, intakeStatus *string, limit int, offset int) ([]repository.Lead, int, error)
	SetIntakeStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string) (repository.Lead, error)
}

type Service struct {
	store Store
	bus   events.Bus
	log   *logger.Logger
}

func NewService(store Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
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

// Create registers an intake lead. Phone numbers are normalized to E.164 so
// later booking matches compare against a stable key. When a lead with the
// same contact already exists, the existing row is returned instead of a
// duplicate being created.
func (s *Service) Create(ctx context.Context, params CreateParams) (repository.Lead, bool, error) {
	if params.Phone != nil {
		normalized := phone.NormalizeE164(*params.Phone)
		params.Phone = &normalized
	}

	if params.Phone != nil || params.Email != nil {
		existing, found, err := s.store.FindByContact(ctx, params.OrganizationID, params.Phone, params.Email)
		if err != nil {
			return repository.Lead{}, false, apperr.Wrap(apperr.KindInternal, "failed to check for existing lead", err).WithOp("leads.Create")
		}
		if found {
			return existing, false, nil
		}
	}

	lead, err := s.store.Create(ctx, repository.CreateParams{
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		Phone:          params.Phone,
		Email:          params.Email,
		Source:         params.Source,
		IsVIP:          params.IsVIP,
		Editor:         params.Editor,
	})
	if err != nil {
		return repository.Lead{}, false, apperr.Wrap(apperr.KindInternal, "failed to create lead", err).WithOp("leads.Create")
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		Name:           lead.Name,
		Phone:          derefOr(lead.Phone),
		Email:          derefOr(lead.Email),
		Source:         derefOr(lead.Source),
	})
	return lead, true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err).WithOp("leads.Get")
	}
	return lead, nil
}

func (s *Service) List(ctx context.Context, organizationID uuid.UUID, intakeStatus *string, limit int, offset int) ([]repository.Lead, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	leads, total, err := s.store.List(ctx, organizationID, intakeStatus, limit, offset)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list leads", err).WithOp("leads.List")
	}
	return leads, total, nil
}

// MarkBooked retires a lead from the intake queue once a booking exists for
// it. Called by the appointments context on creation and by the auditor's
// intake repair.
func (s *Service) MarkBooked(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, editor string) error {
	return s.setIntakeStatus(ctx, id, organizationID, IntakeBooked, editor)
}

// Close retires a lead that will never book.
func (s *Service) Close(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, editor string) error {
	return s.setIntakeStatus(ctx, id, organizationID, IntakeClosed, editor)
}

func (s *Service) setIntakeStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string) error {
	prev, err := s.Get(ctx, id, organizationID)
	if err != nil {
		return err
	}
	if prev.IntakeStatus == status {
		return nil
	}
	lead, err := s.store.SetIntakeStatus(ctx, id, organizationID, status, editor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to update lead intake status", err).WithOp("leads.setIntakeStatus")
	}
	s.bus.Publish(ctx, events.LeadIntakeStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		OldStatus:      prev.IntakeStatus,
		NewStatus:      lead.IntakeStatus,
	})
	return nil
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
