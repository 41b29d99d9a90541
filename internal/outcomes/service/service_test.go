package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/outcomes/repository"
	platformevents "studio_pipeline_backend/platform/events"
	"studio_pipeline_backend/platform/logger"
)

// fakeStore implements Store in memory and records every mutation so tests
// can assert on exactly what the orchestrator did.
type fakeStore struct {
	appt   repository.Appointment
	runs   map[uuid.UUID]repository.Run
	latest *repository.Run

	saved         []repository.SaveAuthoritativeParams
	batches       []repository.ReplaceFollowUpBatchParams
	pendingClears int
	loyaltyCalls  int
	auditEvents   []repository.CreateAuditEventParams
	secondVisits  []repository.CreateSecondVisitParams

	errSave    error
	errLoyalty error
	errBatch   error
	errAudit   error
}

func newFakeStore(appt repository.Appointment) *fakeStore {
	return &fakeStore{appt: appt, runs: make(map[uuid.UUID]repository.Run)}
}

func (f *fakeStore) GetAppointment(_ context.Context, id uuid.UUID, _ uuid.UUID) (repository.Appointment, error) {
	if id != f.appt.ID {
		return repository.Appointment{}, repository.ErrNotFound
	}
	return f.appt, nil
}

func (f *fakeStore) GetRunByID(_ context.Context, id uuid.UUID, _ uuid.UUID) (repository.Run, error) {
	run, ok := f.runs[id]
	if !ok {
		return repository.Run{}, repository.ErrNotFound
	}
	return run, nil
}

func (f *fakeStore) GetLatestRunForAppointment(_ context.Context, _ uuid.UUID, _ uuid.UUID) (repository.Run, bool, error) {
	if f.latest == nil {
		return repository.Run{}, false, nil
	}
	return *f.latest, true, nil
}

func (f *fakeStore) SaveAuthoritative(_ context.Context, params repository.SaveAuthoritativeParams) (repository.Run, error) {
	if f.errSave != nil {
		return repository.Run{}, f.errSave
	}
	f.saved = append(f.saved, params)

	run := repository.Run{
		OrganizationID:  params.OrganizationID,
		SubjectName:     params.SubjectName,
		RawResult:       params.RawResult,
		Result:          params.Result,
		CommissionCents: params.CommissionCents,
		AttemptDate:     params.AttemptDate,
		SaleDate:        params.SaleDate,
	}
	if params.RunID != nil {
		run.ID = *params.RunID
		if prev, ok := f.runs[run.ID]; ok {
			run.LoyaltyCountedAt = prev.LoyaltyCountedAt
		}
	} else {
		run.ID = uuid.New()
	}
	apptID := params.AppointmentID
	run.AppointmentID = &apptID
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeStore) ReplaceFollowUpBatch(_ context.Context, params repository.ReplaceFollowUpBatchParams) (int, error) {
	if f.errBatch != nil {
		return 0, f.errBatch
	}
	f.batches = append(f.batches, params)
	return len(params.Drafts), nil
}

func (f *fakeStore) DeletePendingFollowUps(_ context.Context, _ uuid.UUID, _ uuid.UUID) (int, error) {
	f.pendingClears++
	return 2, nil
}

func (f *fakeStore) IncrementLoyaltyIfUnmarked(_ context.Context, runID uuid.UUID, _ uuid.UUID, editor string) (bool, error) {
	if f.errLoyalty != nil {
		return false, f.errLoyalty
	}
	f.loyaltyCalls++
	run := f.runs[runID]
	if run.LoyaltyCountedAt != nil {
		return false, nil
	}
	now := time.Now()
	run.LoyaltyCountedAt = &now
	run.LoyaltyCountedBy = &editor
	f.runs[runID] = run
	return true, nil
}

func (f *fakeStore) CreateAuditEvent(_ context.Context, params repository.CreateAuditEventParams) error {
	if f.errAudit != nil {
		return f.errAudit
	}
	f.auditEvents = append(f.auditEvents, params)
	return nil
}

func (f *fakeStore) CreateSecondVisit(_ context.Context, params repository.CreateSecondVisitParams) (repository.Appointment, error) {
	f.secondVisits = append(f.secondVisits, params)
	return repository.Appointment{
		ID:                       uuid.New(),
		OrganizationID:           params.OrganizationID,
		SubjectName:              params.SubjectName,
		StartAt:                  params.StartAt,
		Status:                   string(domain.StatusActive),
		OriginatingAppointmentID: &params.OriginatingAppointmentID,
	}, nil
}

func (f *fakeStore) ListFollowUpsByAppointment(_ context.Context, _ uuid.UUID, _ uuid.UUID) ([]repository.FollowUpEntry, error) {
	return nil, nil
}

func (f *fakeStore) ListDueFollowUps(_ context.Context, _ uuid.UUID, _ time.Time, _ int) ([]repository.FollowUpEntry, error) {
	return nil, nil
}

func (f *fakeStore) UpdateFollowUpStatus(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ string, _ *time.Time, _ string) (repository.FollowUpEntry, error) {
	return repository.FollowUpEntry{}, repository.ErrNotFound
}

func (f *fakeStore) ListAuditEventsByAppointment(_ context.Context, _ uuid.UUID, _ uuid.UUID) ([]repository.OutcomeAuditEvent, error) {
	return nil, nil
}

func (f *fakeStore) GetLoyaltyCount(_ context.Context, _ uuid.UUID) (int64, error) {
	return 0, nil
}

func strPtr(s string) *string { return &s }

func testAppointment() repository.Appointment {
	return repository.Appointment{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		SubjectName:    "Jordan Reyes",
		StartAt:        time.Now().Add(-2 * time.Hour),
		Status:         string(domain.StatusActive),
		LeadSource:     strPtr("web"),
		BookedBy:       strPtr("front-desk"),
		Owner:          strPtr("casey"),
	}
}

func newTestService(store Store) *Service {
	log := logger.New("development")
	return NewService(store, domain.DefaultPolicy(), platformevents.NewInMemoryBus(log), log)
}

func TestApplyOutcomeFirstSale(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "premier sale",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if !res.Success || res.NoOp {
		t.Fatalf("expected committed result, got %+v", res)
	}
	if res.Result != domain.ResultTierASale {
		t.Fatalf("expected Tier A sale, got %s", res.Result)
	}
	if res.Status != domain.StatusPurchased {
		t.Fatalf("expected Purchased, got %s", res.Status)
	}
	if res.CommissionCents != 3000 {
		t.Fatalf("expected 3000 cents commission, got %d", res.CommissionCents)
	}
	if !res.DidIncrementLoyalty {
		t.Fatal("first sale should increment loyalty")
	}

	if len(store.saved) != 1 {
		t.Fatalf("expected 1 authoritative save, got %d", len(store.saved))
	}
	save := store.saved[0]
	if !save.CloseAppointment {
		t.Fatal("purchased outcome should close the appointment")
	}
	if save.SaleDate == nil {
		t.Fatal("sale should set sale date")
	}
	if len(store.auditEvents) != 1 {
		t.Fatalf("expected 1 audit event, got %d", len(store.auditEvents))
	}
	if store.auditEvents[0].OldResult != nil {
		t.Fatalf("first outcome has no old result, got %v", *store.auditEvents[0].OldResult)
	}
}

func TestApplyOutcomeNoShowGeneratesCadence(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "no show",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if res.Status != domain.StatusActive {
		t.Fatalf("no-show keeps appointment Active, got %s", res.Status)
	}
	if res.FollowUpsGenerated != 3 {
		t.Fatalf("expected 3 follow-ups, got %d", res.FollowUpsGenerated)
	}
	if len(store.batches) != 1 {
		t.Fatalf("expected 1 batch replace, got %d", len(store.batches))
	}
	drafts := store.batches[0].Drafts
	wantOffsets := []int{0, 5, 12}
	for i, d := range drafts {
		want := drafts[0].TriggerDate.AddDate(0, 0, wantOffsets[i])
		if !d.ScheduledDate.Equal(want) {
			t.Fatalf("touch %d scheduled %v, want %v", d.TouchNumber, d.ScheduledDate, want)
		}
	}
	if res.DidIncrementLoyalty {
		t.Fatal("no-show must not touch loyalty")
	}
}

func TestApplyOutcomeCorrectionNoShowToSale(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)

	prior := repository.Run{
		ID:             uuid.New(),
		OrganizationID: appt.OrganizationID,
		Result:         string(domain.ResultNoShow),
	}
	store.runs[prior.ID] = prior
	store.latest = &prior

	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "elite sale",
		Editor:         "manager-kim",
		Reason:         strPtr("data entry correction"),
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	save := store.saved[0]
	if save.RunID == nil || *save.RunID != prior.ID {
		t.Fatal("correction should update the existing run, not create a new one")
	}
	if !res.DidIncrementLoyalty {
		t.Fatal("no-show to sale transition should count loyalty")
	}
	if store.pendingClears != 1 {
		t.Fatalf("sale should clear pending follow-ups, got %d clears", store.pendingClears)
	}
	if res.FollowUpsDeleted != 2 {
		t.Fatalf("expected 2 deleted follow-ups reported, got %d", res.FollowUpsDeleted)
	}
}

func TestApplyOutcomeRepeatedSaleDoesNotDoubleCount(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)

	now := time.Now()
	prior := repository.Run{
		ID:               uuid.New(),
		OrganizationID:   appt.OrganizationID,
		Result:           string(domain.ResultTierASale),
		LoyaltyCountedAt: &now,
	}
	store.runs[prior.ID] = prior
	store.latest = &prior

	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "tier a",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if res.DidIncrementLoyalty {
		t.Fatal("re-submitting a sale must not double count")
	}
	if store.loyaltyCalls != 0 {
		t.Fatalf("sale-to-same-sale is not a transition, got %d loyalty calls", store.loyaltyCalls)
	}
	if len(store.batches) != 0 || store.pendingClears != 0 {
		t.Fatal("identical result must not touch follow-ups")
	}
	if len(store.saved) != 1 {
		t.Fatal("run should still be rewritten for the new attempt")
	}
}

func TestApplyOutcomeNoShowToDeclinedRegeneratesBatch(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)

	prior := repository.Run{
		ID:             uuid.New(),
		OrganizationID: appt.OrganizationID,
		Result:         string(domain.ResultNoShow),
	}
	store.runs[prior.ID] = prior
	store.latest = &prior

	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "declined",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if len(store.batches) != 1 {
		t.Fatalf("expected batch regeneration, got %d batches", len(store.batches))
	}
	drafts := store.batches[0].Drafts
	if len(drafts) != 3 {
		t.Fatalf("expected 3 declined touches, got %d", len(drafts))
	}
	if drafts[1].TriggerType != domain.TriggerDeclined {
		t.Fatalf("expected declined trigger, got %s", drafts[1].TriggerType)
	}
	want := drafts[0].TriggerDate.AddDate(0, 0, 6)
	if !drafts[1].ScheduledDate.Equal(want) {
		t.Fatalf("declined touch 2 at %v, want %v", drafts[1].ScheduledDate, want)
	}
	if res.FollowUpsGenerated != 3 {
		t.Fatalf("result should report 3 generated, got %d", res.FollowUpsGenerated)
	}
}

func TestApplyOutcomeNotInterestedClearsPendingOnly(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)

	prior := repository.Run{
		ID:             uuid.New(),
		OrganizationID: appt.OrganizationID,
		Result:         string(domain.ResultDeclined),
	}
	store.runs[prior.ID] = prior
	store.latest = &prior

	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "not interested",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if res.Status != domain.StatusDeclined {
		t.Fatalf("not interested maps to Declined status, got %s", res.Status)
	}
	if store.pendingClears != 1 {
		t.Fatalf("expected pending follow-ups cleared once, got %d", store.pendingClears)
	}
	if len(store.batches) != 0 {
		t.Fatal("not interested must not generate a new cadence")
	}
}

func TestApplyOutcomeCompSkipsMetrics(t *testing.T) {
	appt := testAppointment()
	appt.IsComp = true
	store := newFakeStore(appt)
	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "basic sale",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if len(store.saved) != 1 {
		t.Fatal("comp visits still record the run")
	}
	if res.DidIncrementLoyalty || store.loyaltyCalls != 0 {
		t.Fatal("comp visit must not count loyalty")
	}
	if len(store.batches) != 0 || store.pendingClears != 0 {
		t.Fatal("comp visit must not touch follow-ups")
	}
	if len(store.auditEvents) != 1 {
		t.Fatal("audit trail is written even for comp visits")
	}
}

func TestApplyOutcomeExcludedSourceSkipsLoyalty(t *testing.T) {
	appt := testAppointment()
	appt.LeadSource = strPtr("staff_family")
	store := newFakeStore(appt)
	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "elite",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if res.DidIncrementLoyalty {
		t.Fatal("excluded source must not count loyalty")
	}
	if store.loyaltyCalls != 0 {
		t.Fatalf("loyalty must not be consulted for excluded sources, got %d calls", store.loyaltyCalls)
	}
	if len(store.saved) != 1 {
		t.Fatal("the run and commission are still recorded")
	}
}

func TestApplyOutcomeReferralCreditsBooker(t *testing.T) {
	appt := testAppointment()
	appt.LeadSource = strPtr("personal_referral")
	appt.BookedBy = strPtr("alex-frontdesk")
	store := newFakeStore(appt)
	svc := newTestService(store)

	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "premier",
		CoachName:      strPtr("coach-taylor"),
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	save := store.saved[0]
	if save.CreditedTo == nil || *save.CreditedTo != "alex-frontdesk" {
		t.Fatalf("personal referral should credit the booker, got %v", save.CreditedTo)
	}
}

func TestApplyOutcomeUnresolvedIsNoOp(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "asked about parking",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if !res.NoOp {
		t.Fatal("unrecognized label should be a no-op")
	}
	if len(store.saved) != 0 || len(store.auditEvents) != 0 {
		t.Fatal("no-op must not write anything")
	}
}

func TestApplyOutcomeAuthoritativeFailureAborts(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	store.errSave = errors.New("connection reset")
	svc := newTestService(store)

	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "premier",
		Editor:         "coach-taylor",
	})
	if err == nil {
		t.Fatal("authoritative write failure must fail the call")
	}
	if store.loyaltyCalls != 0 || len(store.auditEvents) != 0 || len(store.batches) != 0 {
		t.Fatal("no side effects may run after an authoritative failure")
	}
}

func TestApplyOutcomeSecondaryFailureStillSucceeds(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	store.errLoyalty = errors.New("deadlock detected")
	svc := newTestService(store)

	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "premier",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("secondary failure must not fail the call: %v", err)
	}

	if !res.Success {
		t.Fatal("call should report success")
	}
	if res.DidIncrementLoyalty {
		t.Fatal("failed increment must not be reported as counted")
	}
	if len(res.SecondaryFailures) != 1 || res.SecondaryFailures[0].Step != "loyalty_counter" {
		t.Fatalf("expected loyalty_counter failure, got %+v", res.SecondaryFailures)
	}
	if len(store.auditEvents) != 1 {
		t.Fatal("audit event still gets written after a loyalty failure")
	}
}

func TestApplyOutcomeSecondVisit(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	visitStart := time.Now().AddDate(0, 0, 3)
	res, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "second visit",
		Editor:         "coach-taylor",
		SecondVisit: &SecondVisitDraft{
			StartAt:   visitStart,
			CoachName: "coach-morgan",
		},
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	if res.Status != domain.StatusSecondVisitScheduled {
		t.Fatalf("expected Second_Visit_Scheduled, got %s", res.Status)
	}
	if res.SecondVisitID == nil {
		t.Fatal("result should carry the new appointment id")
	}
	if len(store.secondVisits) != 1 {
		t.Fatalf("expected 1 second visit, got %d", len(store.secondVisits))
	}
	sv := store.secondVisits[0]
	if sv.OriginatingAppointmentID != appt.ID {
		t.Fatal("second visit must link back to the original appointment")
	}
	if sv.SubjectName != appt.SubjectName {
		t.Fatal("second visit keeps the same subject")
	}
}

func TestApplyOutcomeDefaultsFromAppointment(t *testing.T) {
	appt := testAppointment()
	appt.StartAt = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	store := newFakeStore(appt)
	svc := newTestService(store)

	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "no show",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	save := store.saved[0]
	if !save.AttemptDate.Equal(appt.StartAt) {
		t.Fatalf("attempt date should default to the visit time, got %v want %v", save.AttemptDate, appt.StartAt)
	}
	if save.CoachName == nil || *save.CoachName != *appt.Owner {
		t.Fatalf("coach should default to the appointment owner, got %v", save.CoachName)
	}
	drafts := store.batches[0].Drafts
	if !drafts[0].TriggerDate.Equal(appt.StartAt) {
		t.Fatalf("cadence should anchor at the visit time, got %v", drafts[0].TriggerDate)
	}
}

func TestApplyOutcomeCallerOverridesDefaults(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)

	prior := repository.Run{
		ID:             uuid.New(),
		OrganizationID: appt.OrganizationID,
		Result:         string(domain.ResultNoShow),
	}
	store.runs[prior.ID] = prior
	store.latest = &prior

	svc := newTestService(store)

	corrected := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "declined",
		AttemptDate:    &corrected,
		CoachName:      strPtr("coach-morgan"),
		Editor:         "manager-kim",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	save := store.saved[0]
	if !save.AttemptDate.Equal(corrected) {
		t.Fatalf("corrected attempt date dropped, got %v want %v", save.AttemptDate, corrected)
	}
	if save.CoachName == nil || *save.CoachName != "coach-morgan" {
		t.Fatalf("caller-supplied coach dropped, got %v", save.CoachName)
	}
}

func TestApplyOutcomeAuditSourceLabel(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "premier",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if got := store.auditEvents[0].Source; got != SourceForm {
		t.Fatalf("omitted source should default to form, got %q", got)
	}

	_, err = svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "premier",
		Editor:         "import-job",
		SourceLabel:    SourceBulkImport,
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if got := store.auditEvents[1].Source; got != SourceBulkImport {
		t.Fatalf("source label not recorded, got %q", got)
	}
}

func TestApplyOutcomeAuditMetadataSaleDate(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  appt.ID,
		RawResult:      "elite sale",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}

	meta := store.auditEvents[0].Metadata
	if _, ok := meta["sale_date"]; !ok {
		t.Fatal("sale outcome should record sale_date in the audit metadata")
	}

	appt2 := testAppointment()
	store2 := newFakeStore(appt2)
	svc2 := newTestService(store2)
	_, err = svc2.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt2.OrganizationID,
		AppointmentID:  appt2.ID,
		RawResult:      "no show",
		Editor:         "coach-taylor",
	})
	if err != nil {
		t.Fatalf("ApplyOutcome failed: %v", err)
	}
	if _, ok := store2.auditEvents[0].Metadata["sale_date"]; ok {
		t.Fatal("non-sale outcome must not record sale_date")
	}
}

func TestApplyOutcomeUnknownAppointment(t *testing.T) {
	appt := testAppointment()
	store := newFakeStore(appt)
	svc := newTestService(store)

	_, err := svc.ApplyOutcome(context.Background(), ApplyOutcomeParams{
		OrganizationID: appt.OrganizationID,
		AppointmentID:  uuid.New(),
		RawResult:      "premier",
		Editor:         "coach-taylor",
	})
	if err == nil {
		t.Fatal("expected not found error")
	}
}
