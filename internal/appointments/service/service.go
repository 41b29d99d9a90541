package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/appointments/repository"
	"studio_pipeline_backend/internal/events"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/platform/apperr"
	"studio_pipeline_backend/platform/logger"
	"studio_pipeline_backend/platform/phone"
)

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateParams) (repository.Appointment, error)
	GetByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Appointment, error)
	List(ctx context.Context, organizationID uuid.UUID, filter repository.ListFilter) ([]repository.Appointment, int, error)
	Update(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params repository.UpdateParams) (repository.Appointment, error)
	SetFlags(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params repository.FlagParams) (repository.Appointment, error)
	SetStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string, reason *string) (repository.Appointment, error)
	SoftDelete(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, editor string) error
}

// LeadMarker moves a matched lead out of the intake queue when a booking is
// created for it. Satisfied by the leads service through an adapter.
type LeadMarker interface {
	MarkBooked(ctx context.Context, leadID uuid.UUID, organizationID uuid.UUID, editor string) error
}

type Service struct {
	store Store
	leads LeadMarker
	bus   events.Bus
	log   *logger.Logger
}

func NewService(store Store, leads LeadMarker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, leads: leads, bus: bus, log: log}
}

func strOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type CreateParams struct {
	OrganizationID uuid.UUID
	LeadID         *uuid.UUID
	SubjectName    string
	SubjectPhone   *string
	SubjectEmail   *string
	StartAt        time.Time
	LeadSource     *string
	BookedBy       *string
	Owner          *string
	IsVIP          bool
	Editor         string
}

func (s *Service) Create(ctx context.Context, params CreateParams) (repository.Appointment, error) {
	if params.SubjectPhone != nil {
		normalized := phone.NormalizeE164(*params.SubjectPhone)
		params.SubjectPhone = &normalized
	}

	appt, err := s.store.Create(ctx, repository.CreateParams{
		OrganizationID: params.OrganizationID,
		LeadID:         params.LeadID,
		SubjectName:    params.SubjectName,
		SubjectPhone:   params.SubjectPhone,
		SubjectEmail:   params.SubjectEmail,
		StartAt:        params.StartAt,
		Status:         string(domain.StatusActive),
		LeadSource:     params.LeadSource,
		BookedBy:       params.BookedBy,
		Owner:          params.Owner,
		IsVIP:          params.IsVIP,
		Editor:         params.Editor,
	})
	if err != nil {
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to create appointment", err).WithOp("appointments.Create")
	}

	// Booking a matched lead retires it from the intake queue. A failure
	// here leaves the lead 'new'; the auditor's intake check catches it.
	if params.LeadID != nil && s.leads != nil {
		if err := s.leads.MarkBooked(ctx, *params.LeadID, params.OrganizationID, params.Editor); err != nil {
			s.log.SecondaryEffectFailed("lead_intake", appt.ID.String(), err)
		}
	}

	s.bus.Publish(ctx, events.AppointmentCreated{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  appt.ID,
		OrganizationID: appt.OrganizationID,
		LeadID:         appt.LeadID,
		SubjectName:    appt.SubjectName,
		StartAt:        appt.StartAt,
		LeadSource:     strOrEmpty(appt.LeadSource),
		BookedBy:       strOrEmpty(appt.BookedBy),
	})
	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Appointment, error) {
	appt, err := s.store.GetByID(ctx, id, organizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Appointment{}, apperr.NotFound("appointment not found")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to load appointment", err).WithOp("appointments.Get")
	}
	return appt, nil
}

func (s *Service) List(ctx context.Context, organizationID uuid.UUID, filter repository.ListFilter) ([]repository.Appointment, int, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	appts, total, err := s.store.List(ctx, organizationID, filter)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "failed to list appointments", err).WithOp("appointments.List")
	}
	return appts, total, nil
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

func (s *Service) Update(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params UpdateParams) (repository.Appointment, error) {
	if params.SubjectPhone != nil {
		normalized := phone.NormalizeE164(*params.SubjectPhone)
		params.SubjectPhone = &normalized
	}
	appt, err := s.store.Update(ctx, id, organizationID, repository.UpdateParams{
		SubjectName:  params.SubjectName,
		SubjectPhone: params.SubjectPhone,
		SubjectEmail: params.SubjectEmail,
		StartAt:      params.StartAt,
		LeadSource:   params.LeadSource,
		Owner:        params.Owner,
		Editor:       params.Editor,
		Reason:       params.Reason,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Appointment{}, apperr.NotFound("appointment not found")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to update appointment", err).WithOp("appointments.Update")
	}
	return appt, nil
}

func (s *Service) SetFlags(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, params repository.FlagParams) (repository.Appointment, error) {
	appt, err := s.store.SetFlags(ctx, id, organizationID, params)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Appointment{}, apperr.NotFound("appointment not found")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to update appointment flags", err).WithOp("appointments.SetFlags")
	}
	return appt, nil
}

// Cancel and Reactivate are the only manual status transitions. Everything
// outcome-driven (purchases, no-shows, declines) goes through the outcome
// orchestrator so commission and follow-up effects stay consistent.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, editor string, reason *string) (repository.Appointment, error) {
	return s.setStatusChecked(ctx, id, organizationID, domain.StatusCancelled, editor, reason)
}

func (s *Service) Reactivate(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, editor string, reason *string) (repository.Appointment, error) {
	return s.setStatusChecked(ctx, id, organizationID, domain.StatusActive, editor, reason)
}

func (s *Service) setStatusChecked(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status domain.Status, editor string, reason *string) (repository.Appointment, error) {
	prev, err := s.Get(ctx, id, organizationID)
	if err != nil {
		return repository.Appointment{}, err
	}
	if prev.Status == string(domain.StatusPurchased) {
		return repository.Appointment{}, apperr.BadRequest("purchased appointments can only change through outcome corrections")
	}
	appt, err := s.store.SetStatus(ctx, id, organizationID, string(status), editor, reason)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Appointment{}, apperr.NotFound("appointment not found")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to change appointment status", err).WithOp("appointments.setStatusChecked")
	}
	s.bus.Publish(ctx, events.AppointmentStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  appt.ID,
		OrganizationID: appt.OrganizationID,
		OldStatus:      prev.Status,
		NewStatus:      appt.Status,
		Editor:         editor,
	})
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, editor string) error {
	err := s.store.SoftDelete(ctx, id, organizationID, string(domain.StatusSoftDeleted), editor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("appointment not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete appointment", err).WithOp("appointments.Delete")
	}
	s.bus.Publish(ctx, events.AppointmentDeleted{
		BaseEvent:      events.NewBaseEvent(),
		AppointmentID:  id,
		OrganizationID: organizationID,
		Editor:         editor,
	})
	return nil
}
