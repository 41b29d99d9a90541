package domain

import "testing"

func TestCommissionForSaleTiersIsDeterministic(t *testing.T) {
	p := DefaultPolicy()

	cases := map[Result]int64{
		ResultTierASale: 3000,
		ResultTierBSale: 2000,
		ResultTierCSale: 1000,
	}

	for result, want := range cases {
		for i := 0; i < 3; i++ {
			if got := CommissionFor(p, result); got != want {
				t.Fatalf("CommissionFor(%q) = %d, want %d", result, got, want)
			}
		}
	}
}

func TestCommissionForNonSaleResultsIsZero(t *testing.T) {
	p := DefaultPolicy()

	for _, result := range KnownResults() {
		if IsSale(result) {
			continue
		}
		if got := CommissionFor(p, result); got != 0 {
			t.Errorf("CommissionFor(%q) = %d, want 0", result, got)
		}
	}
}

func TestPolicyValidateRejectsMissingCommission(t *testing.T) {
	p := DefaultPolicy()
	delete(p.CommissionCents, ResultTierBSale)

	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for missing Tier B commission")
	}
}

func TestPolicyValidateRejectsIdenticalCadences(t *testing.T) {
	p := DefaultPolicy()
	p.CadenceOffsetsDays[TriggerDeclined] = []int{0, 5, 12}

	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error when no_show and declined cadences match")
	}
}
