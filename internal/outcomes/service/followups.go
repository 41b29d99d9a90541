package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/outcomes/repository"
	"studio_pipeline_backend/platform/apperr"
)

const defaultQueueLimit = 200

// FollowUpQueue returns the open entries that are due as of now, oldest
// first. Snoozed entries surface once their snooze window passes.
func (s *Service) FollowUpQueue(ctx context.Context, organizationID uuid.UUID, limit int) ([]repository.FollowUpEntry, error) {
	if limit <= 0 || limit > defaultQueueLimit {
		limit = defaultQueueLimit
	}
	entries, err := s.store.ListDueFollowUps(ctx, organizationID, s.now(), limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list follow-up queue", err).WithOp("outcomes.FollowUpQueue")
	}
	return entries, nil
}

func (s *Service) FollowUpsForAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) ([]repository.FollowUpEntry, error) {
	entries, err := s.store.ListFollowUpsByAppointment(ctx, appointmentID, organizationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list follow-ups", err).WithOp("outcomes.FollowUpsForAppointment")
	}
	return entries, nil
}

// SnoozeFollowUp pushes a single entry out to a later date without touching
// the rest of the batch.
func (s *Service) SnoozeFollowUp(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, until time.Time, editor string) (repository.FollowUpEntry, error) {
	const op = "outcomes.SnoozeFollowUp"
	if !until.After(s.now()) {
		return repository.FollowUpEntry{}, apperr.Validation("snooze date must be in the future").WithOp(op)
	}
	entry, err := s.store.UpdateFollowUpStatus(ctx, id, organizationID, string(domain.FollowUpSnoozed), &until, editor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.FollowUpEntry{}, apperr.NotFound("follow-up entry not found").WithOp(op)
		}
		return repository.FollowUpEntry{}, apperr.Wrap(apperr.KindInternal, "failed to snooze follow-up", err).WithOp(op)
	}
	return entry, nil
}

// CompleteFollowUp marks an entry Sent or Converted. Converted entries feed
// the conversion reporting; both are terminal for the entry.
func (s *Service) CompleteFollowUp(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, converted bool, editor string) (repository.FollowUpEntry, error) {
	const op = "outcomes.CompleteFollowUp"
	status := domain.FollowUpSent
	if converted {
		status = domain.FollowUpConverted
	}
	entry, err := s.store.UpdateFollowUpStatus(ctx, id, organizationID, string(status), nil, editor)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.FollowUpEntry{}, apperr.NotFound("follow-up entry not found").WithOp(op)
		}
		return repository.FollowUpEntry{}, apperr.Wrap(apperr.KindInternal, "failed to complete follow-up", err).WithOp(op)
	}
	return entry, nil
}

func (s *Service) AuditTrail(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) ([]repository.OutcomeAuditEvent, error) {
	trail, err := s.store.ListAuditEventsByAppointment(ctx, appointmentID, organizationID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list audit trail", err).WithOp("outcomes.AuditTrail")
	}
	return trail, nil
}

func (s *Service) LoyaltyCount(ctx context.Context, organizationID uuid.UUID) (int64, error) {
	total, err := s.store.GetLoyaltyCount(ctx, organizationID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to read loyalty counter", err).WithOp("outcomes.LoyaltyCount")
	}
	return total, nil
}
