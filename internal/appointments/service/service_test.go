package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/appointments/repository"
	platformevents "studio_pipeline_backend/platform/events"
	"studio_pipeline_backend/platform/logger"
)

type fakeStore struct {
	created []repository.CreateParams
	appts   map[uuid.UUID]repository.Appointment
	deleted []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{appts: make(map[uuid.UUID]repository.Appointment)}
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateParams) (repository.Appointment, error) {
	f.created = append(f.created, params)
	appt := repository.Appointment{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		LeadID:         params.LeadID,
		SubjectName:    params.SubjectName,
		SubjectPhone:   params.SubjectPhone,
		SubjectEmail:   params.SubjectEmail,
		StartAt:        params.StartAt,
		Status:         params.Status,
		LeadSource:     params.LeadSource,
		BookedBy:       params.BookedBy,
		Owner:          params.Owner,
		IsVIP:          params.IsVIP,
	}
	f.appts[appt.ID] = appt
	return appt, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID, _ uuid.UUID) (repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return repository.Appointment{}, repository.ErrNotFound
	}
	return appt, nil
}

func (f *fakeStore) List(_ context.Context, _ uuid.UUID, _ repository.ListFilter) ([]repository.Appointment, int, error) {
	var out []repository.Appointment
	for _, a := range f.appts {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, _ uuid.UUID, params repository.UpdateParams) (repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return repository.Appointment{}, repository.ErrNotFound
	}
	if params.SubjectName != nil {
		appt.SubjectName = *params.SubjectName
	}
	if params.SubjectPhone != nil {
		appt.SubjectPhone = params.SubjectPhone
	}
	f.appts[id] = appt
	return appt, nil
}

func (f *fakeStore) SetFlags(_ context.Context, id uuid.UUID, _ uuid.UUID, params repository.FlagParams) (repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return repository.Appointment{}, repository.ErrNotFound
	}
	if params.IsVIP != nil {
		appt.IsVIP = *params.IsVIP
	}
	if params.IsComp != nil {
		appt.IsComp = *params.IsComp
	}
	if params.IgnoreMetrics != nil {
		appt.IgnoreMetrics = *params.IgnoreMetrics
	}
	f.appts[id] = appt
	return appt, nil
}

func (f *fakeStore) SetStatus(_ context.Context, id uuid.UUID, _ uuid.UUID, status string, editor string, _ *string) (repository.Appointment, error) {
	appt, ok := f.appts[id]
	if !ok {
		return repository.Appointment{}, repository.ErrNotFound
	}
	appt.Status = status
	appt.UpdatedBy = &editor
	f.appts[id] = appt
	return appt, nil
}

func (f *fakeStore) SoftDelete(_ context.Context, id uuid.UUID, _ uuid.UUID, status string, _ string) error {
	appt, ok := f.appts[id]
	if !ok {
		return repository.ErrNotFound
	}
	appt.Status = status
	now := time.Now()
	appt.DeletedAt = &now
	f.appts[id] = appt
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLeadMarker struct {
	marked []uuid.UUID
}

func (f *fakeLeadMarker) MarkBooked(_ context.Context, leadID uuid.UUID, _ uuid.UUID, _ string) error {
	f.marked = append(f.marked, leadID)
	return nil
}

func newTestService(store *fakeStore, marker *fakeLeadMarker) *Service {
	log := logger.New("development")
	bus := platformevents.NewInMemoryBus(log)
	return NewService(store, marker, bus, log)
}

func strPtr(s string) *string { return &s }

func TestCreateNormalizesPhoneAndMarksLead(t *testing.T) {
	store := newFakeStore()
	marker := &fakeLeadMarker{}
	svc := newTestService(store, marker)

	leadID := uuid.New()
	appt, err := svc.Create(context.Background(), CreateParams{
		OrganizationID: uuid.New(),
		LeadID:         &leadID,
		SubjectName:    "Dana Whitfield",
		SubjectPhone:   strPtr("(205) 555-0134"),
		StartAt:        time.Now().Add(48 * time.Hour),
		Editor:         "front-desk",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if appt.Status != "Active" {
		t.Fatalf("expected new appointment to be Active, got %q", appt.Status)
	}
	if appt.SubjectPhone == nil || *appt.SubjectPhone != "+12055550134" {
		t.Fatalf("expected phone normalized to E.164, got %v", appt.SubjectPhone)
	}
	if len(marker.marked) != 1 || marker.marked[0] != leadID {
		t.Fatalf("expected lead %s marked booked, got %v", leadID, marker.marked)
	}
}

func TestCreateWithoutLeadSkipsMarker(t *testing.T) {
	store := newFakeStore()
	marker := &fakeLeadMarker{}
	svc := newTestService(store, marker)

	_, err := svc.Create(context.Background(), CreateParams{
		OrganizationID: uuid.New(),
		SubjectName:    "Walk-in",
		StartAt:        time.Now().Add(time.Hour),
		Editor:         "front-desk",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(marker.marked) != 0 {
		t.Fatalf("expected no lead marked, got %v", marker.marked)
	}
}

func TestCancelBlockedOnPurchased(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLeadMarker{})
	orgID := uuid.New()

	appt, err := svc.Create(context.Background(), CreateParams{
		OrganizationID: orgID,
		SubjectName:    "Buyer",
		StartAt:        time.Now(),
		Editor:         "front-desk",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored := store.appts[appt.ID]
	stored.Status = "Purchased"
	store.appts[appt.ID] = stored

	if _, err := svc.Cancel(context.Background(), appt.ID, orgID, "manager", nil); err == nil {
		t.Fatal("expected cancel of purchased appointment to fail")
	}
}

func TestCancelAndReactivate(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLeadMarker{})
	orgID := uuid.New()

	appt, err := svc.Create(context.Background(), CreateParams{
		OrganizationID: orgID,
		SubjectName:    "Maybe",
		StartAt:        time.Now(),
		Editor:         "front-desk",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), appt.ID, orgID, "manager", strPtr("client request"))
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != "Cancelled" {
		t.Fatalf("expected Cancelled, got %q", cancelled.Status)
	}

	back, err := svc.Reactivate(context.Background(), appt.ID, orgID, "manager", nil)
	if err != nil {
		t.Fatalf("Reactivate: %v", err)
	}
	if back.Status != "Active" {
		t.Fatalf("expected Active, got %q", back.Status)
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &fakeLeadMarker{})
	orgID := uuid.New()

	appt, err := svc.Create(context.Background(), CreateParams{
		OrganizationID: orgID,
		SubjectName:    "Gone",
		StartAt:        time.Now(),
		Editor:         "front-desk",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), appt.ID, orgID, "manager"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	stored := store.appts[appt.ID]
	if stored.DeletedAt == nil || stored.Status != "Soft_Deleted" {
		t.Fatalf("expected soft delete, got status %q deletedAt %v", stored.Status, stored.DeletedAt)
	}
}
