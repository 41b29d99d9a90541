package email

import (
	"context"

	"studio_pipeline_backend/platform/config"
	"studio_pipeline_backend/platform/logger"
)

// NewSender builds the configured email sender. When email is disabled the
// returned sender logs the digests instead of delivering them, so the caller
// never has to branch.
func NewSender(cfg config.EmailConfig, log *logger.Logger) Sender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email disabled; digests will be logged instead of sent")
		return &NoopSender{log: log}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}

// NoopSender is the sender used when SMTP is not configured.
type NoopSender struct {
	log *logger.Logger
}

func (n *NoopSender) SendAuditDigestEmail(_ context.Context, toEmail string, data AuditDigestData) error {
	n.log.Info("audit digest suppressed",
		"to", toEmail,
		"checks_failed", data.ChecksFailed,
		"finding_count", data.FindingCount,
	)
	return nil
}

func (n *NoopSender) SendFollowUpDigestEmail(_ context.Context, toEmail string, data FollowUpDigestData) error {
	n.log.Info("follow-up digest suppressed", "to", toEmail, "entries", len(data.Entries))
	return nil
}
