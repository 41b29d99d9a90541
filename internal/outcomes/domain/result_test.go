package domain

import "testing"

func TestNormalizeResultLegacyLabels(t *testing.T) {
	cases := []struct {
		raw  string
		want Result
	}{
		{"No-show", ResultNoShow},
		{"  no show  ", ResultNoShow},
		{"NOSHOW", ResultNoShow},
		{"missed", ResultNoShow},
		{"Declined", ResultDeclined},
		{"no sale", ResultDeclined},
		{"Not Interested", ResultNotInterested},
		{"thinking about it", ResultFollowUpNeeded},
		{"follow-up", ResultFollowUpNeeded},
		{"2nd visit", ResultSecondVisitScheduled},
		{"rebooked", ResultSecondVisitScheduled},
		{"Premier", ResultTierASale},
		{"elite sale", ResultTierBSale},
		{"Basic", ResultTierCSale},
	}

	for _, tc := range cases {
		if got := NormalizeResult(tc.raw); got != tc.want {
			t.Errorf("NormalizeResult(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeResultTierSubstringFallback(t *testing.T) {
	cases := []struct {
		raw  string
		want Result
	}{
		{"sold tier-a today", ResultTierASale},
		{"upgraded to TIER B plan", ResultTierBSale},
		{"closed, tier_c, paid in full", ResultTierCSale},
		{"went premier after trial", ResultTierASale},
	}

	for _, tc := range cases {
		if got := NormalizeResult(tc.raw); got != tc.want {
			t.Errorf("NormalizeResult(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestNormalizeResultUnknownFallsBackToUnresolved(t *testing.T) {
	for _, raw := range []string{"", "   ", "zzzz", "call back maybe??"} {
		if got := NormalizeResult(raw); got != ResultUnresolved {
			t.Errorf("NormalizeResult(%q) = %q, want Unresolved", raw, got)
		}
	}
}

func TestResultStatusDocumentedMapping(t *testing.T) {
	cases := map[Result]Status{
		ResultTierASale:            StatusPurchased,
		ResultTierBSale:            StatusPurchased,
		ResultTierCSale:            StatusPurchased,
		ResultNoShow:               StatusActive,
		ResultDeclined:             StatusActive,
		ResultFollowUpNeeded:       StatusActive,
		ResultNotInterested:        StatusDeclined,
		ResultSecondVisitScheduled: StatusSecondVisitScheduled,
		ResultUnresolved:           StatusActive,
	}

	for result, want := range cases {
		if got := ResultStatus(result); got != want {
			t.Errorf("ResultStatus(%q) = %q, want %q", result, got, want)
		}
	}
}

func TestResultStatusTotalOverKnownResults(t *testing.T) {
	for _, result := range KnownResults() {
		status := ResultStatus(result)
		if status == "" {
			t.Fatalf("ResultStatus(%q) returned empty status", result)
		}
	}

	// Unknown values must still map somewhere safe rather than panic.
	if got := ResultStatus(Result("garbage")); got != StatusActive {
		t.Fatalf("ResultStatus(garbage) = %q, want Active", got)
	}
}

func TestIsSaleCoversExactlyTheThreeTiers(t *testing.T) {
	sales := 0
	for _, result := range KnownResults() {
		if IsSale(result) {
			sales++
		}
	}
	if sales != 3 {
		t.Fatalf("expected exactly 3 sale tiers, got %d", sales)
	}
}
