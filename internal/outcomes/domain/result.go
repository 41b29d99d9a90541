// Package domain provides core business rules for the outcomes bounded context.
//
// All status-from-result logic lives here. No other package may re-derive an
// appointment status from a result label; drift between the two is exactly the
// failure class the consistency auditor exists to catch.
package domain

import "strings"

// Result is the canonical outcome code recorded on a run.
type Result string

const (
	ResultTierASale            Result = "Tier_A_Sale"
	ResultTierBSale            Result = "Tier_B_Sale"
	ResultTierCSale            Result = "Tier_C_Sale"
	ResultNoShow               Result = "No_Show"
	ResultDeclined             Result = "Declined"
	ResultNotInterested        Result = "Not_Interested"
	ResultFollowUpNeeded       Result = "Follow_Up_Needed"
	ResultSecondVisitScheduled Result = "Second_Visit_Scheduled"
	ResultUnresolved           Result = "Unresolved"
)

// Status is the canonical appointment status.
type Status string

const (
	StatusActive               Status = "Active"
	StatusSecondVisitScheduled Status = "Second_Visit_Scheduled"
	StatusNoShow               Status = "No_Show"
	StatusDeclined             Status = "Declined"
	StatusPurchased            Status = "Purchased"
	StatusCancelled            Status = "Cancelled"
	StatusSoftDeleted          Status = "Soft_Deleted"
)

// exactLabels maps trimmed, lowercased legacy labels to canonical results.
// Free-text entry accumulated years of spelling variants; new synonyms belong
// here, never in callers.
var exactLabels = map[string]Result{
	"tier a":            ResultTierASale,
	"tier-a-sale":       ResultTierASale,
	"tier_a_sale":       ResultTierASale,
	"premier":           ResultTierASale,
	"premier sale":      ResultTierASale,
	"tier b":            ResultTierBSale,
	"tier-b-sale":       ResultTierBSale,
	"tier_b_sale":       ResultTierBSale,
	"elite":             ResultTierBSale,
	"elite sale":        ResultTierBSale,
	"tier c":            ResultTierCSale,
	"tier-c-sale":       ResultTierCSale,
	"tier_c_sale":       ResultTierCSale,
	"basic":             ResultTierCSale,
	"basic sale":        ResultTierCSale,
	"no show":           ResultNoShow,
	"no-show":           ResultNoShow,
	"noshow":            ResultNoShow,
	"missed":            ResultNoShow,
	"no_show":           ResultNoShow,
	"declined":          ResultDeclined,
	"no sale":           ResultDeclined,
	"did not buy":       ResultDeclined,
	"not interested":    ResultNotInterested,
	"not_interested":    ResultNotInterested,
	"uninterested":      ResultNotInterested,
	"follow up":         ResultFollowUpNeeded,
	"follow-up":         ResultFollowUpNeeded,
	"follow up needed":  ResultFollowUpNeeded,
	"follow_up_needed":  ResultFollowUpNeeded,
	"thinking about it": ResultFollowUpNeeded,
	"second visit":      ResultSecondVisitScheduled,
	"2nd visit":         ResultSecondVisitScheduled,
	"second_visit_scheduled": ResultSecondVisitScheduled,
	"rebooked":               ResultSecondVisitScheduled,
}

// tierKeywords are substring fallbacks applied after exact matching. Any label
// containing "tier-a" (in any spelling variant below) normalizes to the
// Tier A sale, and so on.
var tierKeywords = []struct {
	keyword string
	result  Result
}{
	{"tier-a", ResultTierASale},
	{"tier a", ResultTierASale},
	{"tier_a", ResultTierASale},
	{"premier", ResultTierASale},
	{"tier-b", ResultTierBSale},
	{"tier b", ResultTierBSale},
	{"tier_b", ResultTierBSale},
	{"elite", ResultTierBSale},
	{"tier-c", ResultTierCSale},
	{"tier c", ResultTierCSale},
	{"tier_c", ResultTierCSale},
	{"basic", ResultTierCSale},
}

// NormalizeResult maps a free-text outcome label to its canonical result.
// Matching is case-insensitive and whitespace-trimmed; unknown labels
// normalize to Unresolved rather than erroring, because upstream data entry
// is free-text.
func NormalizeResult(raw string) Result {
	label := strings.ToLower(strings.TrimSpace(raw))
	if label == "" {
		return ResultUnresolved
	}

	if result, ok := exactLabels[label]; ok {
		return result
	}

	for _, tk := range tierKeywords {
		if strings.Contains(label, tk.keyword) {
			return tk.result
		}
	}

	return ResultUnresolved
}

// ResultStatus maps a canonical result to the appointment status it implies.
// Total over Result: every canonical result maps to exactly one status.
// No-shows, declines and follow-ups keep the appointment Active so the person
// stays available for re-engagement; only Not_Interested closes it out.
func ResultStatus(result Result) Status {
	switch result {
	case ResultTierASale, ResultTierBSale, ResultTierCSale:
		return StatusPurchased
	case ResultNoShow, ResultDeclined, ResultFollowUpNeeded:
		return StatusActive
	case ResultNotInterested:
		return StatusDeclined
	case ResultSecondVisitScheduled:
		return StatusSecondVisitScheduled
	case ResultUnresolved:
		return StatusActive
	default:
		return StatusActive
	}
}

// IsSale reports whether the result is one of the three paid conversion tiers.
func IsSale(result Result) bool {
	switch result {
	case ResultTierASale, ResultTierBSale, ResultTierCSale:
		return true
	}
	return false
}

// IsTerminalStatus reports whether an appointment status ends automatic
// side-effect processing. Manual correction can still re-open it by routing a
// new result through the orchestrator.
func IsTerminalStatus(status Status) bool {
	switch status {
	case StatusPurchased, StatusCancelled, StatusSoftDeleted:
		return true
	}
	return false
}

// KnownResults lists every canonical result. Used by exhaustiveness tests and
// the auditor's drift queries.
func KnownResults() []Result {
	return []Result{
		ResultTierASale,
		ResultTierBSale,
		ResultTierCSale,
		ResultNoShow,
		ResultDeclined,
		ResultNotInterested,
		ResultFollowUpNeeded,
		ResultSecondVisitScheduled,
		ResultUnresolved,
	}
}
