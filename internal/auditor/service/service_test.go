package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	auditrepo "studio_pipeline_backend/internal/auditor/repository"
	"studio_pipeline_backend/internal/outcomes/domain"
	platformevents "studio_pipeline_backend/platform/events"
	"studio_pipeline_backend/platform/logger"
)

// fakeStore backs the auditor with in-memory findings. Check methods return
// whatever the test seeded; fix methods mutate that state so a re-audit
// observes the repair.
type fakeStore struct {
	missingLeadSource  []uuid.UUID
	missingCredit      []uuid.UUID
	vipMismatch        []uuid.UUID
	intakeStale        []uuid.UUID
	orphanedRuns       []uuid.UUID
	staleFollowUps     []uuid.UUID
	staleNewLeads      []uuid.UUID
	zeroCommission     []uuid.UUID
	statusPairs        []auditrepo.RunStatusPair
	uncountedLoyalty   []uuid.UUID
	duplicateBatches   []uuid.UUID
	missingSaleDate    []uuid.UUID

	inserted      []auditrepo.InsertAuditRunParams
	pruneKeep     int
	commissionFix map[string]int64
	bookedLeads   []uuid.UUID
	retiredStale  bool
}

func newCleanStore() *fakeStore {
	return &fakeStore{commissionFix: make(map[string]int64)}
}

func (f *fakeStore) MissingLeadSource(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.missingLeadSource, nil
}

func (f *fakeStore) MissingBookingCredit(context.Context, uuid.UUID, []string) ([]uuid.UUID, error) {
	return f.missingCredit, nil
}

func (f *fakeStore) VIPFlagMismatch(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.vipMismatch, nil
}

func (f *fakeStore) IntakeStatusStale(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.intakeStale, nil
}

func (f *fakeStore) OrphanedRuns(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.orphanedRuns, nil
}

func (f *fakeStore) StaleFollowUps(context.Context, uuid.UUID, []string) ([]uuid.UUID, error) {
	if f.retiredStale {
		return nil, nil
	}
	return f.staleFollowUps, nil
}

func (f *fakeStore) StaleNewLeads(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.staleNewLeads, nil
}

func (f *fakeStore) ZeroCommissionSales(context.Context, uuid.UUID, []string) ([]uuid.UUID, error) {
	return f.zeroCommission, nil
}

func (f *fakeStore) OutcomeStatusPairs(context.Context, uuid.UUID) ([]auditrepo.RunStatusPair, error) {
	return f.statusPairs, nil
}

func (f *fakeStore) UncountedLoyaltySales(context.Context, uuid.UUID, []string, []string) ([]uuid.UUID, error) {
	return f.uncountedLoyalty, nil
}

func (f *fakeStore) DuplicateFollowUpBatches(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.duplicateBatches, nil
}

func (f *fakeStore) MissingSaleDate(context.Context, uuid.UUID, []string) ([]uuid.UUID, error) {
	return f.missingSaleDate, nil
}

func (f *fakeStore) InsertAuditRun(_ context.Context, params auditrepo.InsertAuditRunParams) (uuid.UUID, error) {
	f.inserted = append(f.inserted, params)
	return uuid.New(), nil
}

func (f *fakeStore) PruneAuditRuns(_ context.Context, _ uuid.UUID, keep int) (int, error) {
	f.pruneKeep = keep
	return 0, nil
}

func (f *fakeStore) ListAuditRuns(context.Context, uuid.UUID, int) ([]auditrepo.AuditRunRecord, error) {
	return nil, nil
}

func (f *fakeStore) SyncAppointmentStatus(_ context.Context, appointmentID uuid.UUID, _ uuid.UUID, status string, _ string) (int, error) {
	for i, p := range f.statusPairs {
		if p.AppointmentID == appointmentID && p.AppointmentStatus != status {
			f.statusPairs[i].AppointmentStatus = status
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeStore) RepairCommission(_ context.Context, _ uuid.UUID, result string, cents int64, _ string) (int, error) {
	f.commissionFix[result] = cents
	if len(f.zeroCommission) > 0 {
		n := len(f.zeroCommission)
		f.zeroCommission = nil
		return n, nil
	}
	return 0, nil
}

func (f *fakeStore) RetireStaleFollowUps(context.Context, uuid.UUID, []string, string) (int, error) {
	n := len(f.staleFollowUps)
	f.retiredStale = true
	return n, nil
}

func (f *fakeStore) MarkLeadsBooked(_ context.Context, _ uuid.UUID, leadIDs []uuid.UUID, _ string) (int, error) {
	f.bookedLeads = append(f.bookedLeads, leadIDs...)
	f.intakeStale = nil
	f.staleNewLeads = nil
	return len(leadIDs), nil
}

func newTestService(store Store) *Service {
	log := logger.New("development")
	return NewService(store, domain.DefaultPolicy(), platformevents.NewInMemoryBus(log), log, nil, 30)
}

func checkByName(t *testing.T, run AuditRunResult, name string) CheckResult {
	t.Helper()
	for _, c := range run.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %s not found in run", name)
	return CheckResult{}
}

func TestRunFullAuditCleanData(t *testing.T) {
	store := newCleanStore()
	svc := newTestService(store)

	run, err := svc.RunFullAudit(context.Background(), uuid.New(), "manual")
	if err != nil {
		t.Fatalf("RunFullAudit failed: %v", err)
	}

	if run.ChecksRun != 12 {
		t.Fatalf("expected 12 checks, got %d", run.ChecksRun)
	}
	if run.ChecksFailed != 0 || run.ChecksWarned != 0 || run.FindingCount != 0 {
		t.Fatalf("clean data should pass everything, got %+v", run)
	}
	for _, c := range run.Checks {
		if c.Status != CheckPass {
			t.Fatalf("check %s should pass, got %s", c.Name, c.Status)
		}
	}
	if len(store.inserted) != 1 {
		t.Fatalf("sweep should persist exactly one summary, got %d", len(store.inserted))
	}
	if store.pruneKeep != 30 {
		t.Fatalf("retention pruning should keep 30, got %d", store.pruneKeep)
	}
}

func TestRunFullAuditSeveritySplit(t *testing.T) {
	store := newCleanStore()
	store.missingLeadSource = []uuid.UUID{uuid.New(), uuid.New()}
	store.orphanedRuns = []uuid.UUID{uuid.New()}
	svc := newTestService(store)

	run, err := svc.RunFullAudit(context.Background(), uuid.New(), "manual")
	if err != nil {
		t.Fatalf("RunFullAudit failed: %v", err)
	}

	if c := checkByName(t, run, "missing_lead_source"); c.Status != CheckWarn || c.Count != 2 {
		t.Fatalf("missing_lead_source should warn with 2 findings, got %+v", c)
	}
	if c := checkByName(t, run, "orphaned_runs"); c.Status != CheckFail || c.Count != 1 {
		t.Fatalf("orphaned_runs should fail with 1 finding, got %+v", c)
	}
	if run.ChecksWarned != 1 || run.ChecksFailed != 1 || run.FindingCount != 3 {
		t.Fatalf("summary counters wrong: %+v", run)
	}
}

func TestStatusDriftDetectFixReaudit(t *testing.T) {
	store := newCleanStore()
	apptID := uuid.New()
	store.statusPairs = []auditrepo.RunStatusPair{
		{
			RunID:             uuid.New(),
			AppointmentID:     apptID,
			Result:            string(domain.ResultTierASale),
			AppointmentStatus: string(domain.StatusActive),
		},
		{
			RunID:             uuid.New(),
			AppointmentID:     uuid.New(),
			Result:            string(domain.ResultNoShow),
			AppointmentStatus: string(domain.StatusActive),
		},
	}
	svc := newTestService(store)
	orgID := uuid.New()

	run, err := svc.RunFullAudit(context.Background(), orgID, "manual")
	if err != nil {
		t.Fatalf("RunFullAudit failed: %v", err)
	}
	c := checkByName(t, run, "outcome_status_sync")
	if c.Status != CheckFail || c.Count != 1 {
		t.Fatalf("expected 1 drifted appointment, got %+v", c)
	}
	if c.AffectedIDs[0] != apptID {
		t.Fatal("wrong appointment flagged")
	}

	fix, err := svc.RunFix(context.Background(), orgID, "outcome_status_sync", "ops")
	if err != nil {
		t.Fatalf("RunFix failed: %v", err)
	}
	if fix.RowsAffected != 1 {
		t.Fatalf("expected 1 repaired row, got %d", fix.RowsAffected)
	}

	run, err = svc.RunFullAudit(context.Background(), orgID, "manual")
	if err != nil {
		t.Fatalf("re-audit failed: %v", err)
	}
	if c := checkByName(t, run, "outcome_status_sync"); c.Status != CheckPass {
		t.Fatalf("drift should be gone after fix, got %+v", c)
	}
}

func TestFixZeroCommissionsUsesPolicy(t *testing.T) {
	store := newCleanStore()
	store.zeroCommission = []uuid.UUID{uuid.New()}
	svc := newTestService(store)

	fix, err := svc.RunFix(context.Background(), uuid.New(), "zero_commission_sales", "ops")
	if err != nil {
		t.Fatalf("RunFix failed: %v", err)
	}
	if fix.RowsAffected != 1 {
		t.Fatalf("expected 1 repaired run, got %d", fix.RowsAffected)
	}
	if store.commissionFix[string(domain.ResultTierASale)] != 3000 ||
		store.commissionFix[string(domain.ResultTierBSale)] != 2000 ||
		store.commissionFix[string(domain.ResultTierCSale)] != 1000 {
		t.Fatalf("commissions must come from policy, got %v", store.commissionFix)
	}
}

func TestFixStaleFollowUpsRetires(t *testing.T) {
	store := newCleanStore()
	store.staleFollowUps = []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	svc := newTestService(store)
	orgID := uuid.New()

	fix, err := svc.RunFix(context.Background(), orgID, "stale_followups", "ops")
	if err != nil {
		t.Fatalf("RunFix failed: %v", err)
	}
	if fix.RowsAffected != 3 {
		t.Fatalf("expected 3 retired entries, got %d", fix.RowsAffected)
	}

	run, err := svc.RunFullAudit(context.Background(), orgID, "manual")
	if err != nil {
		t.Fatalf("re-audit failed: %v", err)
	}
	if c := checkByName(t, run, "stale_followups"); c.Status != CheckPass {
		t.Fatalf("stale follow-ups should be gone after retire, got %+v", c)
	}
}

func TestFixLeadIntakeMarksBooked(t *testing.T) {
	store := newCleanStore()
	leadID := uuid.New()
	store.intakeStale = []uuid.UUID{leadID}
	svc := newTestService(store)

	fix, err := svc.RunFix(context.Background(), uuid.New(), "intake_status_stale", "ops")
	if err != nil {
		t.Fatalf("RunFix failed: %v", err)
	}
	if fix.RowsAffected != 1 || len(store.bookedLeads) != 1 || store.bookedLeads[0] != leadID {
		t.Fatalf("lead should be marked booked, got %+v", store.bookedLeads)
	}
}

func TestRunFixRejectsUnknownAction(t *testing.T) {
	svc := newTestService(newCleanStore())

	if _, err := svc.RunFix(context.Background(), uuid.New(), "drop_all_tables", "ops"); err == nil {
		t.Fatal("unknown action must be rejected")
	}
}
