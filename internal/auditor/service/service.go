// Package service implements the consistency auditor: a batch sweep of
// independent read-only checks over the pipeline data, plus a small set of
// whitelisted repair actions. The auditor never mutates anything during a
// sweep; fixes run only when an operator asks for one by name.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	auditrepo "studio_pipeline_backend/internal/auditor/repository"
	"studio_pipeline_backend/internal/events"
	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/platform/apperr"
	"studio_pipeline_backend/platform/logger"
)

// CheckStatus is the outcome of one check.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

// CheckResult is the finding of a single consistency check.
type CheckResult struct {
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	Status       CheckStatus `json:"status"`
	Count        int         `json:"count"`
	AffectedIDs  []uuid.UUID `json:"affectedIds,omitempty"`
	SuggestedFix string      `json:"suggestedFix,omitempty"`
	FixAction    string      `json:"fixAction,omitempty"`
}

// AuditRunResult summarizes one full sweep.
type AuditRunResult struct {
	ID             uuid.UUID     `json:"id"`
	OrganizationID uuid.UUID     `json:"organizationId"`
	Trigger        string        `json:"trigger"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	ChecksRun      int           `json:"checksRun"`
	ChecksWarned   int           `json:"checksWarned"`
	ChecksFailed   int           `json:"checksFailed"`
	FindingCount   int           `json:"findingCount"`
	Checks         []CheckResult `json:"checks"`
}

// FixResult reports one applied repair action.
type FixResult struct {
	Action       string `json:"action"`
	RowsAffected int    `json:"rowsAffected"`
}

// Store is the persistence surface the auditor needs. Implemented by
// *repository.Repository; tests substitute a fake.
type Store interface {
	MissingLeadSource(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
	MissingBookingCredit(ctx context.Context, organizationID uuid.UUID, creditedSources []string) ([]uuid.UUID, error)
	VIPFlagMismatch(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
	IntakeStatusStale(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
	OrphanedRuns(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
	StaleFollowUps(ctx context.Context, organizationID uuid.UUID, terminalStatuses []string) ([]uuid.UUID, error)
	StaleNewLeads(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
	ZeroCommissionSales(ctx context.Context, organizationID uuid.UUID, saleResults []string) ([]uuid.UUID, error)
	OutcomeStatusPairs(ctx context.Context, organizationID uuid.UUID) ([]auditrepo.RunStatusPair, error)
	UncountedLoyaltySales(ctx context.Context, organizationID uuid.UUID, saleResults, excludedSources []string) ([]uuid.UUID, error)
	DuplicateFollowUpBatches(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
	MissingSaleDate(ctx context.Context, organizationID uuid.UUID, saleResults []string) ([]uuid.UUID, error)

	InsertAuditRun(ctx context.Context, params auditrepo.InsertAuditRunParams) (uuid.UUID, error)
	PruneAuditRuns(ctx context.Context, organizationID uuid.UUID, keep int) (int, error)
	ListAuditRuns(ctx context.Context, organizationID uuid.UUID, limit int) ([]auditrepo.AuditRunRecord, error)

	SyncAppointmentStatus(ctx context.Context, appointmentID uuid.UUID, organizationID uuid.UUID, status string, editor string) (int, error)
	RepairCommission(ctx context.Context, organizationID uuid.UUID, result string, commissionCents int64, editor string) (int, error)
	RetireStaleFollowUps(ctx context.Context, organizationID uuid.UUID, terminalStatuses []string, editor string) (int, error)
	MarkLeadsBooked(ctx context.Context, organizationID uuid.UUID, leadIDs []uuid.UUID, editor string) (int, error)
}

// DigestSender delivers an audit summary to operators after scheduled runs
// that found failures.
type DigestSender interface {
	SendAuditDigest(ctx context.Context, run AuditRunResult) error
}

type Service struct {
	store     Store
	policy    domain.Policy
	bus       events.Bus
	log       *logger.Logger
	digest    DigestSender // nil when email is disabled
	retention int
	now       func() time.Time
}

func NewService(store Store, policy domain.Policy, bus events.Bus, log *logger.Logger, digest DigestSender, retention int) *Service {
	return &Service{
		store:     store,
		policy:    policy,
		bus:       bus,
		log:       log,
		digest:    digest,
		retention: retention,
		now:       time.Now,
	}
}

func saleResults() []string {
	return []string{
		string(domain.ResultTierASale),
		string(domain.ResultTierBSale),
		string(domain.ResultTierCSale),
	}
}

// terminalStatuses are appointment states under which an open follow-up
// cadence is stale. Declined is included: Not_Interested clears the batch,
// so any survivor is drift.
func terminalStatuses() []string {
	return []string{
		string(domain.StatusPurchased),
		string(domain.StatusCancelled),
		string(domain.StatusSoftDeleted),
		string(domain.StatusDeclined),
	}
}

type checkSpec struct {
	name         string
	category     string
	failing      bool // fail instead of warn when findings exist
	suggestedFix string
	fixAction    string
	run          func(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error)
}

func (s *Service) checkSpecs() []checkSpec {
	return []checkSpec{
		{
			name:         "missing_lead_source",
			category:     "data_quality",
			suggestedFix: "backfill lead_source from the booking record",
			run:          s.store.MissingLeadSource,
		},
		{
			name:         "missing_booking_credit",
			category:     "data_quality",
			suggestedFix: "record booked_by so referral credit can be attributed",
			run: func(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
				return s.store.MissingBookingCredit(ctx, orgID, s.policy.BookerCreditedSources)
			},
		},
		{
			name:         "vip_flag_mismatch",
			category:     "data_quality",
			suggestedFix: "reconcile the appointment VIP flag with the lead record",
			run:          s.store.VIPFlagMismatch,
		},
		{
			name:         "intake_status_stale",
			category:     "drift",
			failing:      true,
			suggestedFix: "mark leads with booked appointments as booked",
			fixAction:    "intake_status_stale",
			run:          s.store.IntakeStatusStale,
		},
		{
			name:         "orphaned_runs",
			category:     "integrity",
			failing:      true,
			suggestedFix: "relink or archive runs whose appointment is gone",
			run:          s.store.OrphanedRuns,
		},
		{
			name:         "stale_followups",
			category:     "drift",
			failing:      true,
			suggestedFix: "retire open follow-ups on settled appointments",
			fixAction:    "stale_followups",
			run: func(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
				return s.store.StaleFollowUps(ctx, orgID, terminalStatuses())
			},
		},
		{
			name:         "stale_new_leads",
			category:     "drift",
			failing:      true,
			suggestedFix: "match leads to appointments by phone/email and mark them booked",
			fixAction:    "stale_new_leads",
			run:          s.store.StaleNewLeads,
		},
		{
			name:         "zero_commission_sales",
			category:     "integrity",
			failing:      true,
			suggestedFix: "write the policy commission onto zero-commission sale runs",
			fixAction:    "zero_commission_sales",
			run: func(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
				return s.store.ZeroCommissionSales(ctx, orgID, saleResults())
			},
		},
		{
			name:         "outcome_status_sync",
			category:     "integrity",
			failing:      true,
			suggestedFix: "set each appointment to the status its latest result implies",
			fixAction:    "outcome_status_sync",
			run:          s.statusSyncCheck,
		},
		{
			name:         "uncounted_loyalty_sales",
			category:     "integrity",
			failing:      true,
			suggestedFix: "route the run back through the orchestrator to count loyalty",
			run: func(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
				return s.store.UncountedLoyaltySales(ctx, orgID, saleResults(), s.policy.LoyaltyExcludedSources)
			},
		},
		{
			name:         "duplicate_followup_batches",
			category:     "integrity",
			failing:      true,
			suggestedFix: "re-apply the latest outcome to rebuild a single batch",
			run:          s.store.DuplicateFollowUpBatches,
		},
		{
			name:         "missing_sale_date",
			category:     "integrity",
			failing:      true,
			suggestedFix: "backfill sale_date from the run attempt date",
			run: func(ctx context.Context, orgID uuid.UUID) ([]uuid.UUID, error) {
				return s.store.MissingSaleDate(ctx, orgID, saleResults())
			},
		},
	}
}

// statusSyncCheck compares each appointment's status with the status its
// latest run implies, using the one canonical mapping in the domain package.
func (s *Service) statusSyncCheck(ctx context.Context, organizationID uuid.UUID) ([]uuid.UUID, error) {
	pairs, err := s.store.OutcomeStatusPairs(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	var mismatched []uuid.UUID
	for _, p := range pairs {
		expected := domain.ResultStatus(domain.Result(p.Result))
		if string(expected) != p.AppointmentStatus {
			mismatched = append(mismatched, p.AppointmentID)
		}
	}
	return mismatched, nil
}

// RunFullAudit executes every check concurrently, persists the summary and
// prunes run history down to the configured retention. A check query error
// fails the whole sweep; partial audits are worse than none.
func (s *Service) RunFullAudit(ctx context.Context, organizationID uuid.UUID, trigger string) (AuditRunResult, error) {
	const op = "auditor.RunFullAudit"
	startedAt := s.now()

	specs := s.checkSpecs()
	results := make([]CheckResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		g.Go(func() error {
			ids, err := spec.run(gctx, organizationID)
			if err != nil {
				return err
			}
			status := CheckPass
			if len(ids) > 0 {
				status = CheckWarn
				if spec.failing {
					status = CheckFail
				}
			}
			results[i] = CheckResult{
				Name:         spec.name,
				Category:     spec.category,
				Status:       status,
				Count:        len(ids),
				AffectedIDs:  ids,
				SuggestedFix: spec.suggestedFix,
				FixAction:    spec.fixAction,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AuditRunResult{}, apperr.Wrap(apperr.KindInternal, "audit sweep failed", err).WithOp(op)
	}

	run := AuditRunResult{
		OrganizationID: organizationID,
		Trigger:        trigger,
		StartedAt:      startedAt,
		FinishedAt:     s.now(),
		ChecksRun:      len(results),
		Checks:         results,
	}
	for _, c := range results {
		run.FindingCount += c.Count
		switch c.Status {
		case CheckWarn:
			run.ChecksWarned++
		case CheckFail:
			run.ChecksFailed++
		}
	}

	checksJSON, err := json.Marshal(results)
	if err != nil {
		return AuditRunResult{}, apperr.Wrap(apperr.KindInternal, "failed to encode audit results", err).WithOp(op)
	}
	id, err := s.store.InsertAuditRun(ctx, auditrepo.InsertAuditRunParams{
		OrganizationID: organizationID,
		Trigger:        trigger,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
		ChecksRun:      run.ChecksRun,
		ChecksWarned:   run.ChecksWarned,
		ChecksFailed:   run.ChecksFailed,
		FindingCount:   run.FindingCount,
		Checks:         checksJSON,
	})
	if err != nil {
		return AuditRunResult{}, apperr.Wrap(apperr.KindInternal, "failed to persist audit run", err).WithOp(op)
	}
	run.ID = id

	if s.retention > 0 {
		if _, err := s.store.PruneAuditRuns(ctx, organizationID, s.retention); err != nil {
			// Retention failure is not worth failing the sweep over.
			s.log.Warn("audit run pruning failed", "error", err)
		}
	}

	s.bus.Publish(ctx, events.AuditRunCompleted{
		BaseEvent:      events.NewBaseEvent(),
		AuditRunID:     run.ID,
		OrganizationID: organizationID,
		ChecksRun:      run.ChecksRun,
		ChecksFailed:   run.ChecksFailed,
		FindingCount:   run.FindingCount,
		Trigger:        trigger,
	})

	if s.digest != nil && trigger == "scheduled" && run.ChecksFailed > 0 {
		if err := s.digest.SendAuditDigest(ctx, run); err != nil {
			s.log.Warn("audit digest delivery failed", "error", err)
		}
	}

	return run, nil
}

// RunFix applies one whitelisted repair action. Unknown actions are
// rejected; the sweep never calls this on its own.
func (s *Service) RunFix(ctx context.Context, organizationID uuid.UUID, action string, editor string) (FixResult, error) {
	const op = "auditor.RunFix"

	var affected int
	var err error
	switch action {
	case "outcome_status_sync":
		affected, err = s.fixStatusSync(ctx, organizationID, editor)
	case "zero_commission_sales":
		affected, err = s.fixZeroCommissions(ctx, organizationID, editor)
	case "stale_followups":
		affected, err = s.store.RetireStaleFollowUps(ctx, organizationID, terminalStatuses(), editor)
	case "intake_status_stale":
		affected, err = s.fixLeadIntake(ctx, organizationID, editor, s.store.IntakeStatusStale)
	case "stale_new_leads":
		affected, err = s.fixLeadIntake(ctx, organizationID, editor, s.store.StaleNewLeads)
	default:
		return FixResult{}, apperr.BadRequest("unknown fix action").WithOp(op).WithDetails(action)
	}
	if err != nil {
		return FixResult{}, apperr.Wrap(apperr.KindInternal, "fix failed", err).WithOp(op).WithDetails(action)
	}

	s.bus.Publish(ctx, events.AuditFixApplied{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: organizationID,
		Action:         action,
		RowsAffected:   affected,
		Editor:         editor,
	})

	return FixResult{Action: action, RowsAffected: affected}, nil
}

func (s *Service) fixStatusSync(ctx context.Context, organizationID uuid.UUID, editor string) (int, error) {
	pairs, err := s.store.OutcomeStatusPairs(ctx, organizationID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, p := range pairs {
		expected := domain.ResultStatus(domain.Result(p.Result))
		if string(expected) == p.AppointmentStatus {
			continue
		}
		n, err := s.store.SyncAppointmentStatus(ctx, p.AppointmentID, organizationID, string(expected), editor)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Service) fixZeroCommissions(ctx context.Context, organizationID uuid.UUID, editor string) (int, error) {
	total := 0
	for _, tier := range []domain.Result{domain.ResultTierASale, domain.ResultTierBSale, domain.ResultTierCSale} {
		n, err := s.store.RepairCommission(ctx, organizationID, string(tier), s.policy.CommissionCents[tier], editor)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Service) fixLeadIntake(ctx context.Context, organizationID uuid.UUID, editor string, query func(context.Context, uuid.UUID) ([]uuid.UUID, error)) (int, error) {
	ids, err := query(ctx, organizationID)
	if err != nil {
		return 0, err
	}
	return s.store.MarkLeadsBooked(ctx, organizationID, ids, editor)
}

// History returns recent persisted sweeps, newest first.
func (s *Service) History(ctx context.Context, organizationID uuid.UUID, limit int) ([]AuditRunResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	records, err := s.store.ListAuditRuns(ctx, organizationID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list audit runs", err).WithOp("auditor.History")
	}

	out := make([]AuditRunResult, 0, len(records))
	for _, rec := range records {
		run := AuditRunResult{
			ID:             rec.ID,
			OrganizationID: rec.OrganizationID,
			Trigger:        rec.Trigger,
			StartedAt:      rec.StartedAt,
			FinishedAt:     rec.FinishedAt,
			ChecksRun:      rec.ChecksRun,
			ChecksWarned:   rec.ChecksWarned,
			ChecksFailed:   rec.ChecksFailed,
			FindingCount:   rec.FindingCount,
		}
		if len(rec.Checks) > 0 {
			if err := json.Unmarshal(rec.Checks, &run.Checks); err != nil {
				return nil, apperr.Wrap(apperr.KindInternal, "failed to decode audit run", err).WithOp("auditor.History")
			}
		}
		out = append(out, run)
	}
	return out, nil
}
