// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"
)

// DefaultSubject is the subject line of reset code emails.
const DefaultSubject = "Confirmation code"

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
	// InsecureSkipVerify disables certificate checks. Development only.
	InsecureSkipVerify bool
}

// mailDialer is the part of *gomail.Dialer the sender needs.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender mails reset codes. Port 465 uses implicit TLS, any other port
// upgrades with STARTTLS when the server offers it.
type SMTPSender struct {
	from    string
	subject string
	dialer  mailDialer
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, oops.Code("SMTP_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, oops.Code("SMTP_CONFIG_INVALID").With("port", cfg.Port).Errorf("smtp port must be positive")
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.Port == 465
	if cfg.InsecureSkipVerify {
		dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: true} //nolint:gosec // opt-in for local mail catchers
	}

	return newSMTPSender(cfg, dialer), nil
}

func newSMTPSender(cfg SMTPConfig, dialer mailDialer) *SMTPSender {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	return &SMTPSender{from: from, subject: subject, dialer: dialer}
}

// SendCode mails the code to the recipient. gomail has no context support,
// so a cancelled context is only honoured before dialing.
func (s *SMTPSender) SendCode(ctx context.Context, to, code string) error {
	if err := ctx.Err(); err != nil {
		return oops.Code("SMTP_SEND_FAILED").With("to", to).Wrap(err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", s.subject)
	msg.SetBody("text/html", CodeEmailBody(code))

	if err := s.dialer.DialAndSend(msg); err != nil {
		return oops.Code("SMTP_SEND_FAILED").
			With("operation", "send email").
			With("to", to).
			Wrap(err)
	}
	return nil
}

// CodeEmailBody renders the HTML body of a reset code email.
func CodeEmailBody(code string) string {
	return fmt.Sprintf("<p>Your confirmation code: <b>%s</b></p>", html.EscapeString(code))
}
