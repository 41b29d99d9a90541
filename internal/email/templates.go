package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

// AuditDigestData summarizes a finished consistency sweep for the nightly
// digest.
type AuditDigestData struct {
	RunAt        time.Time
	Trigger      string
	ChecksRun    int
	ChecksWarned int
	ChecksFailed int
	FindingCount int
	Checks       []AuditDigestCheck
}

// AuditDigestCheck is one non-passing check line in the digest.
type AuditDigestCheck struct {
	Name         string
	Category     string
	Status       string
	Count        int
	SuggestedFix string
}

type auditDigestEmailData struct {
	baseEmailData
	AuditDigestData
}

// FollowUpDigestData lists contact touches that came due.
type FollowUpDigestData struct {
	AsOf    time.Time
	Entries []FollowUpDigestEntry
}

// FollowUpDigestEntry is one due touch in the digest.
type FollowUpDigestEntry struct {
	SubjectName   string
	TouchNumber   int
	TriggerType   string
	ScheduledDate time.Time
}

type followUpDigestEmailData struct {
	baseEmailData
	FollowUpDigestData
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").Funcs(template.FuncMap{
		"date": func(t time.Time) string { return t.Format("Jan 2, 2006") },
	}).ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
