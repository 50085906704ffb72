// Package email provides an SMTP-backed implementation of the notifier port.
package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rentwise/rentd/internal/config"
	"github.com/rentwise/rentd/internal/port/notifier"
)

// Notifier sends notifications via SMTP.
type Notifier struct {
	cfg config.SMTP
}

// New creates an email notifier from SMTP configuration.
func New(cfg config.SMTP) *Notifier {
	return &Notifier{cfg: cfg}
}

// Name returns the notifier identifier.
func (n *Notifier) Name() string {
	return "email"
}

// Send delivers the notification as a plain-text email. Returns
// notifier.ErrNotConfigured when no SMTP host is set, which callers treat
// as "skip", not as a failure.
func (n *Notifier) Send(_ context.Context, msg notifier.Notification) error {
	if n.cfg.Host == "" || n.cfg.From == "" {
		return notifier.ErrNotConfigured
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		n.cfg.From, msg.Recipient, msg.Subject, msg.Body)

	var auth smtp.Auth
	if n.cfg.Password != "" {
		auth = smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{msg.Recipient}, []byte(body)); err != nil {
		return fmt.Errorf("send email to %s: %w", msg.Recipient, err)
	}
	return nil
}
