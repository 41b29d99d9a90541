// Package email delivers operational notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	FileName string
	Content  []byte
}

// Sender delivers the notification emails the pipeline produces.
type Sender interface {
	SendAuditDigestEmail(ctx context.Context, toEmail string, data AuditDigestData) error
	SendFollowUpDigestEmail(ctx context.Context, toEmail string, data FollowUpDigestData) error
}

// SMTPSender implements Sender using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendAuditDigestEmail(ctx context.Context, toEmail string, data AuditDigestData) error {
	subject := fmt.Sprintf(subjectAuditDigestFmt, data.ChecksFailed)
	content, err := renderEmailTemplate("audit_digest.html", auditDigestEmailData{
		baseEmailData: baseEmailData{
			Title:   "Pipeline consistency digest",
			Heading: "Pipeline consistency digest",
		},
		AuditDigestData: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendFollowUpDigestEmail(ctx context.Context, toEmail string, data FollowUpDigestData) error {
	subject := fmt.Sprintf(subjectFollowUpDigestFmt, len(data.Entries))
	content, err := renderEmailTemplate("followup_digest.html", followUpDigestEmailData{
		baseEmailData: baseEmailData{
			Title:   "Follow-ups due today",
			Heading: "Follow-ups due today",
		},
		FollowUpDigestData: data,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
