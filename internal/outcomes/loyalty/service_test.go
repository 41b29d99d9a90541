package loyalty

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"studio_pipeline_backend/internal/outcomes/domain"
	"studio_pipeline_backend/internal/outcomes/repository"
)

type fakeStore struct {
	calls int
}

func (f *fakeStore) IncrementLoyaltyIfUnmarked(_ context.Context, _ uuid.UUID, _ uuid.UUID, _ string) (bool, error) {
	f.calls++
	return true, nil
}

func saleRun() repository.Run {
	return repository.Run{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		Result:         string(domain.ResultTierBSale),
	}
}

func strPtr(s string) *string { return &s }

func TestIncrementIfEligibleCountsSale(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, domain.DefaultPolicy())

	counted, err := svc.IncrementIfEligible(context.Background(), saleRun(), repository.Appointment{}, "coach")
	if err != nil {
		t.Fatalf("IncrementIfEligible failed: %v", err)
	}
	if !counted || store.calls != 1 {
		t.Fatalf("eligible sale should count, counted=%v calls=%d", counted, store.calls)
	}
}

func TestIncrementIfEligibleSkipsNonSale(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, domain.DefaultPolicy())

	run := saleRun()
	run.Result = string(domain.ResultDeclined)

	counted, err := svc.IncrementIfEligible(context.Background(), run, repository.Appointment{}, "coach")
	if err != nil {
		t.Fatalf("IncrementIfEligible failed: %v", err)
	}
	if counted || store.calls != 0 {
		t.Fatal("non-sale must not count")
	}
}

func TestIncrementIfEligibleSkipsMarkedRun(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, domain.DefaultPolicy())

	run := saleRun()
	now := time.Now()
	run.LoyaltyCountedAt = &now

	counted, err := svc.IncrementIfEligible(context.Background(), run, repository.Appointment{}, "coach")
	if err != nil {
		t.Fatalf("IncrementIfEligible failed: %v", err)
	}
	if counted || store.calls != 0 {
		t.Fatal("already-counted run must not count again")
	}
}

func TestIncrementIfEligibleSkipsCompAndExcludedSource(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, domain.DefaultPolicy())

	counted, _ := svc.IncrementIfEligible(context.Background(), saleRun(), repository.Appointment{IsComp: true}, "coach")
	if counted {
		t.Fatal("comp visit must not count")
	}

	counted, _ = svc.IncrementIfEligible(context.Background(), saleRun(), repository.Appointment{LeadSource: strPtr("corporate_trial")}, "coach")
	if counted {
		t.Fatal("excluded source must not count")
	}

	if store.calls != 0 {
		t.Fatalf("store must not be reached, got %d calls", store.calls)
	}
}
