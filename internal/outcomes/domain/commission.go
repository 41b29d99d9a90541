package domain

// CommissionFor returns the fixed commission, in cents, owed for the given
// canonical result under the policy. Non-sale results always yield zero.
//
// Commission is never caller-supplied: every run stores exactly this output
// for its stored result. The auditor's zero-commission check assumes the same
// table, which is why both go through Policy.
func CommissionFor(p Policy, result Result) int64 {
	if !IsSale(result) {
		return 0
	}
	return p.CommissionCents[result]
}
