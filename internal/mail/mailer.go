// Package mail sends plain-text notification emails for contact-form
// submissions over SMTP.
package mail

import (
	"bytes"
	"fmt"
	"net/smtp"
	"text/template"

	"github.com/sirupsen/logrus"

	"github.com/buildleft/site-backend/internal/domain"
)

var contactTemplate = template.Must(template.New("contact").Parse(`New contact form submission

Name:     {{.FirstName}} {{.LastName}}
Email:    {{.Email}}
Phone:    {{.Phone}}
Company:  {{.Company}}
Service:  {{.Service}}
Timeline: {{.Timeline}}
Newsletter opt-in: {{.Newsletter}}

Message:
{{.Message}}
`))

var quickContactTemplate = template.Must(template.New("qcontact").Parse(`New quick contact request

Name:    {{.Name}}
Email:   {{.Email}}
Phone:   {{.Phone}}
Service: {{.Service}}

Message:
{{.Message}}
`))

// Config holds SMTP delivery settings. An empty Host disables sending.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

type Sender struct {
	cfg    Config
	logger logrus.FieldLogger
}

func NewSender(cfg Config, logger logrus.FieldLogger) *Sender {
	return &Sender{cfg: cfg, logger: logger}
}

// Enabled reports whether an SMTP host is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.Host != ""
}

func (s *Sender) NotifyContact(contact *domain.Contact) error {
	var body bytes.Buffer
	if err := contactTemplate.Execute(&body, contact); err != nil {
		return fmt.Errorf("render contact mail: %w", err)
	}
	return s.send(fmt.Sprintf("Contact form: %s %s", contact.FirstName, contact.LastName), body.String())
}

func (s *Sender) NotifyQuickContact(contact *domain.QuickContact) error {
	var body bytes.Buffer
	if err := quickContactTemplate.Execute(&body, contact); err != nil {
		return fmt.Errorf("render quick contact mail: %w", err)
	}
	return s.send(fmt.Sprintf("Quick contact: %s", contact.Name), body.String())
}

func (s *Sender) send(subject, body string) error {
	if !s.Enabled() {
		s.logger.Debugf("smtp disabled, skipping notification %q", subject)
		return nil
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		s.cfg.From, s.cfg.To, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{s.cfg.To}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
