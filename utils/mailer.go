package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"echonotes/config"
)

// Mailer sends one formatted email through an external provider.
type Mailer interface {
	Send(from, to, subject, html string) error
}

// SMTPMailer delivers through the configured SMTP server.
type SMTPMailer struct {
	dialer   *gomail.Dialer
	fromName string
}

func NewSMTPMailer(cfg config.SMTPConfig, fromName string) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromName: fromName,
	}
}

func (m *SMTPMailer) Send(from, to, subject, html string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%s <%s>", m.fromName, from))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}
