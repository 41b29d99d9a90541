package email

const (
	subjectAuditDigestFmt    = "Pipeline consistency digest: %d failing check(s)"
	subjectFollowUpDigestFmt = "Follow-up queue: %d touch(es) due"
)
