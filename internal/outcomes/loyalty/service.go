// Package loyalty owns the studio conversion counter. The counter only ever
// goes up; eligibility rules and the run-level idempotency marker live here
// so no other code path can bump it.
package loyalty

import (
	"context"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/outcomes/repository"
)

// Store is the slice of persistence the counter needs.
type Store interface {
	IncrementLoyaltyIfUnmarked(ctx context.Context, runID uuid.UUID, organizationID uuid.UUID, editor string) (bool, error)
}

type Service struct {
	store  Store
	policy domain.Policy
}

func NewService(store Store, policy domain.Policy) *Service {
	return &Service{store: store, policy: policy}
}

// IncrementIfEligible bumps the counter for a sale run, once. Returns false
// without error when the run is not eligible: not a sale, already counted,
// a comp or metrics-excluded visit, or an excluded lead source.
func (s *Service) IncrementIfEligible(ctx context.Context, run repository.Run, appt repository.Appointment, editor string) (bool, error) {
	if !domain.IsSale(domain.Result(run.Result)) {
		return false, nil
	}
	if run.LoyaltyCountedAt != nil {
		return false, nil
	}
	if appt.IsComp || appt.IgnoreMetrics {
		return false, nil
	}
	if appt.LeadSource != nil && s.policy.SourceExcludedFromLoyalty(*appt.LeadSource) {
		return false, nil
	}
	return s.store.IncrementLoyaltyIfUnmarked(ctx, run.ID, run.OrganizationID, editor)
}
