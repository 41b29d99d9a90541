package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderAuditDigest(t *testing.T) {
	html, err := renderEmailTemplate("audit_digest.html", auditDigestEmailData{
		baseEmailData: baseEmailData{Title: "Digest", Heading: "Digest"},
		AuditDigestData: AuditDigestData{
			RunAt:        time.Date(2026, 3, 14, 2, 0, 0, 0, time.UTC),
			Trigger:      "scheduled",
			ChecksRun:    12,
			ChecksFailed: 2,
			FindingCount: 7,
			Checks: []AuditDigestCheck{
				{Name: "outcome_status_sync", Category: "drift", Status: "fail", Count: 5, SuggestedFix: "Re-derive appointment status from the latest outcome."},
				{Name: "missing_lead_source", Category: "data_quality", Status: "warn", Count: 2},
			},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{"outcome_status_sync", "Mar 14, 2026", "12 checks", "Re-derive appointment status"} {
		if !strings.Contains(html, want) {
			t.Fatalf("digest missing %q", want)
		}
	}
}

func TestRenderFollowUpDigest(t *testing.T) {
	html, err := renderEmailTemplate("followup_digest.html", followUpDigestEmailData{
		baseEmailData: baseEmailData{Title: "Due", Heading: "Due"},
		FollowUpDigestData: FollowUpDigestData{
			AsOf: time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC),
			Entries: []FollowUpDigestEntry{
				{SubjectName: "Dana Whitfield", TouchNumber: 2, TriggerType: "no_show", ScheduledDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
			},
		},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{"Dana Whitfield", "#2", "no_show"} {
		if !strings.Contains(html, want) {
			t.Fatalf("digest missing %q", want)
		}
	}
}
