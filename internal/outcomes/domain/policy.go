package domain

import (
	"fmt"
	"os"
	"reflect"

	"gopkg.in/yaml.v3"
)

// TriggerType selects which follow-up cadence applies to a person.
type TriggerType string

const (
	TriggerNoShow     TriggerType = "no_show"
	TriggerDeclined   TriggerType = "declined"
	TriggerReschedule TriggerType = "reschedule"
)

// Policy is the single named source of truth for every business constant the
// orchestrator and auditor consult: commission amounts, cadence day offsets
// and loyalty eligibility. It is loaded from a versioned YAML file so policy
// changes ship as data, not scattered literals.
type Policy struct {
	Version string `yaml:"version"`

	// CommissionCents maps a sale tier to the fixed commission, in cents.
	// Non-sale results always pay zero.
	CommissionCents map[Result]int64 `yaml:"commission_cents"`

	// CadenceOffsetsDays maps a trigger type to ordered day offsets from the
	// trigger date. Touch numbers are 1-indexed over this slice.
	CadenceOffsetsDays map[TriggerType][]int `yaml:"cadence_offsets_days"`

	// LoyaltyExcludedSources lists lead sources whose sales never count
	// toward the studio loyalty counter (complimentary visits and the like).
	LoyaltyExcludedSources []string `yaml:"loyalty_excluded_sources"`

	// BookerCreditedSources lists lead sources where conversion credit goes
	// to the original booker instead of whoever ran the attempt.
	BookerCreditedSources []string `yaml:"booker_credited_sources"`
}

// DefaultPolicy returns the built-in policy used when no policy file is
// configured.
func DefaultPolicy() Policy {
	return Policy{
		Version: "2024-09",
		CommissionCents: map[Result]int64{
			ResultTierASale: 3000,
			ResultTierBSale: 2000,
			ResultTierCSale: 1000,
		},
		CadenceOffsetsDays: map[TriggerType][]int{
			TriggerNoShow:     {0, 5, 12},
			TriggerDeclined:   {0, 6, 13},
			TriggerReschedule: {0, 6, 13},
		},
		LoyaltyExcludedSources: []string{"comp", "staff_family", "corporate_trial"},
		BookerCreditedSources:  []string{"personal_referral"},
	}
}

// LoadPolicy reads a policy YAML file, falling back to DefaultPolicy when the
// path is empty. The file replaces the defaults wholesale; partial files are
// a validation error rather than a silent merge.
func LoadPolicy(path string) (Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read outcome policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse outcome policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}

	return p, nil
}

// Validate enforces the structural rules the rest of the system assumes.
func (p Policy) Validate() error {
	for _, tier := range []Result{ResultTierASale, ResultTierBSale, ResultTierCSale} {
		if _, ok := p.CommissionCents[tier]; !ok {
			return fmt.Errorf("outcome policy: missing commission for %s", tier)
		}
	}

	for _, trigger := range []TriggerType{TriggerNoShow, TriggerDeclined, TriggerReschedule} {
		offsets := p.CadenceOffsetsDays[trigger]
		if len(offsets) == 0 {
			return fmt.Errorf("outcome policy: missing cadence for %s", trigger)
		}
		for i := 1; i < len(offsets); i++ {
			if offsets[i] <= offsets[i-1] {
				return fmt.Errorf("outcome policy: cadence for %s must be strictly increasing", trigger)
			}
		}
	}

	// No-show and declined follow-up windows are deliberately different;
	// collapsing them is a policy-entry mistake, not a choice.
	if reflect.DeepEqual(p.CadenceOffsetsDays[TriggerNoShow], p.CadenceOffsetsDays[TriggerDeclined]) {
		return fmt.Errorf("outcome policy: no_show and declined cadences must differ")
	}

	return nil
}

// SourceExcludedFromLoyalty reports whether sales from the given lead source
// are excluded from the loyalty counter.
func (p Policy) SourceExcludedFromLoyalty(leadSource string) bool {
	for _, excluded := range p.LoyaltyExcludedSources {
		if excluded == leadSource {
			return true
		}
	}
	return false
}

// SourceCreditsBooker reports whether attribution for the given lead source
// goes to the original booker rather than the attempt runner.
func (p Policy) SourceCreditsBooker(leadSource string) bool {
	for _, source := range p.BookerCreditedSources {
		if source == leadSource {
			return true
		}
	}
	return false
}
