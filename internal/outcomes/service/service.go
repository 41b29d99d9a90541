// Package service implements the outcome orchestrator, the state machine
// that turns a raw coach-entered result into the full set of pipeline
// writes: run, appointment status, loyalty counter, follow-up cadence and
// the append-only audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/events"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/outcomes/loyalty"
	"studio_pipeline_backend/internal/outcomes/repository"
	"studio_pipeline_backend/platform/apperr"
	"studio_pipeline_backend/platform/logger"
)

// Store is the persistence surface the orchestrator needs. Implemented by
// *repository.Repository; tests substitute a fake.
type Store interface {
	GetAppointment(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Appointment, error)
	GetRunByID(ctx context.Context, id uuid.UUID, organizationID uuid.UUID) (repository.Run, error)
	GetLatestRunForAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) (repository.Run, bool, error)
	SaveAuthoritative(ctx context.Context, params repository.SaveAuthoritativeParams) (repository.Run, error)
	ReplaceFollowUpBatch(ctx context.Context, params repository.ReplaceFollowUpBatchParams) (int, error)
	DeletePendingFollowUps(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) (int, error)
	IncrementLoyaltyIfUnmarked(ctx context.Context, runID uuid.UUID, organizationID uuid.UUID, editor string) (bool, error)
	CreateAuditEvent(ctx context.Context, params repository.CreateAuditEventParams) error
	CreateSecondVisit(ctx context.Context, params repository.CreateSecondVisitParams) (repository.Appointment, error)
	ListFollowUpsByAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) ([]repository.FollowUpEntry, error)
	ListDueFollowUps(ctx context.Context, organizationID uuid.UUID, asOf time.Time, limit int) ([]repository.FollowUpEntry, error)
	UpdateFollowUpStatus(ctx context.Context, id uuid.UUID, organizationID uuid.UUID, status string, snoozedUntil *time.Time, editor string) (repository.FollowUpEntry, error)
	ListAuditEventsByAppointment(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID) ([]repository.OutcomeAuditEvent, error)
	GetLoyaltyCount(ctx context.Context, organizationID uuid.UUID) (int64, error)
}

type Service struct {
	store   Store
	policy  domain.Policy
	loyalty *loyalty.Service
	bus     events.Bus
	log     *logger.Logger
	now     func() time.Time
}

func NewService(store Store, policy domain.Policy, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:   store,
		policy:  policy,
		loyalty: loyalty.NewService(store, policy),
		bus:     bus,
		log:     log,
		now:     time.Now,
	}
}

// Source labels recorded on the audit trail, one per sanctioned caller of
// the orchestrator.
const (
	SourceForm            = "form"
	SourceBulkImport      = "bulk_import"
	SourceAdminCorrection = "admin_correction"
)

// SecondVisitDraft is the optional follow-on booking a caller can attach to
// an outcome call.
type SecondVisitDraft struct {
	StartAt   time.Time
	CoachName string
}

// ApplyOutcomeParams is one outcome submission for an appointment.
type ApplyOutcomeParams struct {
	OrganizationID uuid.UUID
	AppointmentID  uuid.UUID
	RunID          *uuid.UUID // pin a specific run instead of the latest
	RawResult      string
	Objection      *string
	AttemptDate    *time.Time // defaults to the appointment's start time
	CoachName      *string    // defaults to the appointment owner
	Editor         string
	SourceLabel    string // Source* constant; empty means SourceForm
	Reason         *string
	SecondVisit    *SecondVisitDraft
}

// SecondaryFailure records a side effect that failed after the authoritative
// writes committed. The call still succeeds; the auditor repairs the drift.
type SecondaryFailure struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// ApplyOutcomeResult reports exactly what one orchestration call did.
type ApplyOutcomeResult struct {
	Success             bool               `json:"success"`
	NoOp                bool               `json:"noOp"`
	RunID               *uuid.UUID         `json:"runId,omitempty"`
	AppointmentID       uuid.UUID          `json:"appointmentId"`
	Result              domain.Result      `json:"result"`
	Status              domain.Status      `json:"status"`
	CommissionCents     int64              `json:"commissionCents"`
	DidIncrementLoyalty bool               `json:"didIncrementLoyalty"`
	FollowUpsGenerated  int                `json:"followUpsGenerated"`
	FollowUpsDeleted    int                `json:"followUpsDeleted"`
	SecondVisitID       *uuid.UUID         `json:"secondVisitId,omitempty"`
	SecondaryFailures   []SecondaryFailure `json:"secondaryFailures,omitempty"`
}

// ApplyOutcome runs the full orchestration for one outcome submission.
//
// The run upsert and appointment status update are one transaction; if that
// fails the whole call fails and nothing is recorded. Everything after the
// commit (loyalty, follow-ups, audit trail, second visit) is a secondary
// effect: failures there are logged, reported in the result, and left for
// the consistency auditor to repair. Side effects fire on result
// transitions only, so resubmitting the same result is safe.
func (s *Service) ApplyOutcome(ctx context.Context, params ApplyOutcomeParams) (ApplyOutcomeResult, error) {
	const op = "outcomes.ApplyOutcome"

	appt, err := s.store.GetAppointment(ctx, params.AppointmentID, params.OrganizationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ApplyOutcomeResult{}, apperr.NotFound("appointment not found").WithOp(op)
		}
		return ApplyOutcomeResult{}, apperr.Wrap(apperr.KindInternal, "failed to load appointment", err).WithOp(op)
	}

	newResult := domain.NormalizeResult(params.RawResult)
	if newResult == domain.ResultUnresolved {
		// Unrecognized labels are accepted but change nothing; the raw text
		// is not worth an authoritative write.
		return ApplyOutcomeResult{
			Success:       true,
			NoOp:          true,
			AppointmentID: appt.ID,
			Result:        newResult,
			Status:        domain.Status(appt.Status),
		}, nil
	}

	// Locate the run this submission corrects, if any.
	var prevRun *repository.Run
	if params.RunID != nil {
		run, err := s.store.GetRunByID(ctx, *params.RunID, params.OrganizationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ApplyOutcomeResult{}, apperr.NotFound("run not found").WithOp(op)
			}
			return ApplyOutcomeResult{}, apperr.Wrap(apperr.KindInternal, "failed to load run", err).WithOp(op)
		}
		prevRun = &run
	} else {
		run, found, err := s.store.GetLatestRunForAppointment(ctx, appt.ID, params.OrganizationID)
		if err != nil {
			return ApplyOutcomeResult{}, apperr.Wrap(apperr.KindInternal, "failed to locate run", err).WithOp(op)
		}
		if found {
			prevRun = &run
		}
	}

	prevResult := domain.ResultUnresolved
	if prevRun != nil {
		prevResult = domain.Result(prevRun.Result)
	}

	// The run auto-populates from the appointment: the attempt defaults to
	// the visit time (which also anchors any follow-up cadence) and the
	// coach to the appointment owner.
	attemptDate := appt.StartAt
	if params.AttemptDate != nil {
		attemptDate = *params.AttemptDate
	}
	coachName := params.CoachName
	if coachName == nil {
		coachName = appt.Owner
	}

	newStatus := domain.ResultStatus(newResult)
	commission := domain.CommissionFor(s.policy, newResult)

	var saleDate *time.Time
	if domain.IsSale(newResult) {
		d := attemptDate
		saleDate = &d
	}

	creditedTo := s.resolveCredit(appt, coachName)

	save := repository.SaveAuthoritativeParams{
		OrganizationID:   params.OrganizationID,
		AppointmentID:    appt.ID,
		SubjectName:      appt.SubjectName,
		RawResult:        params.RawResult,
		Result:           string(newResult),
		CommissionCents:  commission,
		Objection:        params.Objection,
		AttemptDate:      attemptDate,
		SaleDate:         saleDate,
		CoachName:        coachName,
		CreditedTo:       creditedTo,
		NewStatus:        string(newStatus),
		CloseAppointment: newStatus == domain.StatusPurchased,
		Editor:           params.Editor,
		Reason:           params.Reason,
	}
	if prevRun != nil {
		id := prevRun.ID
		save.RunID = &id
	}

	run, err := s.store.SaveAuthoritative(ctx, save)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ApplyOutcomeResult{}, apperr.NotFound("appointment not found").WithOp(op)
		}
		return ApplyOutcomeResult{}, apperr.Wrap(apperr.KindInternal, "failed to save outcome", err).WithOp(op)
	}

	result := ApplyOutcomeResult{
		Success:         true,
		RunID:           &run.ID,
		AppointmentID:   appt.ID,
		Result:          newResult,
		Status:          newStatus,
		CommissionCents: commission,
	}

	skipMetrics := appt.IsComp || appt.IgnoreMetrics
	transitioned := newResult != prevResult

	// Loyalty counter. Edge-triggered on entry into a sale tier; the run
	// marker makes replays idempotent even across corrections. Eligibility
	// beyond the edge (comp visits, excluded sources) lives in the loyalty
	// service.
	if domain.IsSale(newResult) && !domain.IsSale(prevResult) {
		counted, err := s.loyalty.IncrementIfEligible(ctx, run, appt, params.Editor)
		if err != nil {
			s.secondaryFailed(&result, "loyalty_counter", appt.ID, err)
		} else {
			result.DidIncrementLoyalty = counted
		}
	}

	if !skipMetrics && transitioned {
		s.reconcileFollowUps(ctx, &result, appt, run, newResult, prevResult, attemptDate, params.Editor)
	}

	// Audit trail. Append-only, one event per orchestration call.
	if err := s.writeAuditEvent(ctx, appt, prevRun, run, newResult, newStatus, params, result); err != nil {
		s.secondaryFailed(&result, "audit_event", appt.ID, err)
	}

	if params.SecondVisit != nil {
		visit, err := s.store.CreateSecondVisit(ctx, repository.CreateSecondVisitParams{
			OrganizationID:           params.OrganizationID,
			OriginatingAppointmentID: appt.ID,
			LeadID:                   appt.LeadID,
			SubjectName:              appt.SubjectName,
			StartAt:                  params.SecondVisit.StartAt,
			CoachName:                params.SecondVisit.CoachName,
			LeadSource:               appt.LeadSource,
			Editor:                   params.Editor,
		})
		if err != nil {
			s.secondaryFailed(&result, "second_visit", appt.ID, err)
		} else {
			id := visit.ID
			result.SecondVisitID = &id
		}
	}

	s.bus.Publish(ctx, events.OutcomeRecorded{
		BaseEvent:      events.NewBaseEvent(),
		RunID:          run.ID,
		AppointmentID:  appt.ID,
		OrganizationID: params.OrganizationID,
		OldResult:      string(prevResult),
		NewResult:      string(newResult),
		NewStatus:      string(newStatus),
		Editor:         params.Editor,
	})

	return result, nil
}

// reconcileFollowUps applies the cadence rules for a result transition.
// Entering a sale or Not Interested clears the open batch; entering a
// trigger result (no-show, declined, reschedule) replaces it with a fresh
// cadence. Sent entries are history and survive in every case.
func (s *Service) reconcileFollowUps(ctx context.Context, result *ApplyOutcomeResult, appt repository.Appointment, run repository.Run, newResult, prevResult domain.Result, attemptDate time.Time, editor string) {
	if trigger, ok := domain.FollowUpTrigger(newResult); ok {
		drafts := domain.GenerateFollowUps(s.policy, trigger, attemptDate)
		n, err := s.store.ReplaceFollowUpBatch(ctx, repository.ReplaceFollowUpBatchParams{
			OrganizationID: appt.OrganizationID,
			AppointmentID:  appt.ID,
			LeadID:         appt.LeadID,
			SubjectName:    appt.SubjectName,
			Editor:         editor,
			Drafts:         drafts,
		})
		if err != nil {
			s.secondaryFailed(result, "follow_up_batch", appt.ID, err)
			return
		}
		result.FollowUpsGenerated = n
		s.bus.Publish(ctx, events.FollowUpBatchReplaced{
			BaseEvent:      events.NewBaseEvent(),
			AppointmentID:  appt.ID,
			OrganizationID: appt.OrganizationID,
			TriggerType:    string(trigger),
			EntryCount:     n,
		})
		return
	}

	clears := domain.IsSale(newResult) || newResult == domain.ResultNotInterested
	if clears {
		n, err := s.store.DeletePendingFollowUps(ctx, appt.ID, appt.OrganizationID)
		if err != nil {
			s.secondaryFailed(result, "follow_up_clear", appt.ID, err)
			return
		}
		result.FollowUpsDeleted = n
	}
}

func (s *Service) writeAuditEvent(ctx context.Context, appt repository.Appointment, prevRun *repository.Run, run repository.Run, newResult domain.Result, newStatus domain.Status, params ApplyOutcomeParams, result ApplyOutcomeResult) error {
	var oldResult, oldStatus *string
	if prevRun != nil {
		r := prevRun.Result
		oldResult = &r
	}
	st := appt.Status
	oldStatus = &st

	metadata := map[string]any{
		"commission_cents":     result.CommissionCents,
		"loyalty_incremented":  result.DidIncrementLoyalty,
		"follow_ups_generated": result.FollowUpsGenerated,
		"follow_ups_deleted":   result.FollowUpsDeleted,
		"raw_result":           params.RawResult,
	}
	if run.SaleDate != nil {
		metadata["sale_date"] = run.SaleDate.Format(time.RFC3339)
	}

	source := params.SourceLabel
	if source == "" {
		source = SourceForm
	}

	return s.store.CreateAuditEvent(ctx, repository.CreateAuditEventParams{
		OrganizationID: params.OrganizationID,
		AppointmentID:  appt.ID,
		RunID:          &run.ID,
		OldResult:      oldResult,
		NewResult:      string(newResult),
		OldStatus:      oldStatus,
		NewStatus:      string(newStatus),
		Editor:         params.Editor,
		Source:         source,
		Reason:         params.Reason,
		Metadata:       metadata,
	})
}

// resolveCredit decides who the run is attributed to. Personal referrals
// credit the original booker, everything else the coach who ran the visit
// (falling back to the appointment owner).
func (s *Service) resolveCredit(appt repository.Appointment, coachName *string) *string {
	if appt.LeadSource != nil && s.policy.SourceCreditsBooker(*appt.LeadSource) && appt.BookedBy != nil {
		return appt.BookedBy
	}
	if coachName != nil {
		return coachName
	}
	return appt.Owner
}

func (s *Service) secondaryFailed(result *ApplyOutcomeResult, step string, appointmentID uuid.UUID, err error) {
	s.log.SecondaryEffectFailed(step, appointmentID.String(), err)
	result.SecondaryFailures = append(result.SecondaryFailures, SecondaryFailure{
		Step:    step,
		Message: fmt.Sprintf("%s failed: %v", step, err),
	})
}
