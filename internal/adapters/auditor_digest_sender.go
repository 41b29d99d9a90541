package adapters

import (
	"context"

	auditorservice "studio_pipeline_backend/internal/auditor/service"
	"studio_pipeline_backend/internal/email"
)

// AuditorDigestSender adapts the email sender for the auditor's digest hook.
// It implements the auditor service.DigestSender interface.
type AuditorDigestSender struct {
	sender    email.Sender
	recipient string
}

func NewAuditorDigestSender(sender email.Sender, recipient string) *AuditorDigestSender {
	return &AuditorDigestSender{sender: sender, recipient: recipient}
}

func (a *AuditorDigestSender) SendAuditDigest(ctx context.Context, run auditorservice.AuditRunResult) error {
	data := email.AuditDigestData{
		RunAt:        run.FinishedAt,
		Trigger:      run.Trigger,
		ChecksRun:    run.ChecksRun,
		ChecksWarned: run.ChecksWarned,
		ChecksFailed: run.ChecksFailed,
		FindingCount: run.FindingCount,
	}
	for _, check := range run.Checks {
		if check.Status == auditorservice.CheckPass {
			continue
		}
		data.Checks = append(data.Checks, email.AuditDigestCheck{
			Name:         check.Name,
			Category:     check.Category,
			Status:       string(check.Status),
			Count:        check.Count,
			SuggestedFix: check.SuggestedFix,
		})
	}
	return a.sender.SendAuditDigestEmail(ctx, a.recipient, data)
}
