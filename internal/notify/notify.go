// Package notify delivers transactional mail for the identity provider.
package notify

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// SMTP sends mail through a plain SMTP relay.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTP configures delivery through host:port with the given credentials.
// Pass empty user and password for an unauthenticated relay.
func NewSMTP(host string, port int, user, password, from string) (*SMTP, error) {
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if from == "" {
		return nil, fmt.Errorf("smtp sender address is required")
	}
	return &SMTP{dialer: gomail.NewDialer(host, port, user, password), from: from}, nil
}

// SendVerificationEmail mails the verification link. The dial blocks, so
// callers run it off the request path.
func (s *SMTP) SendVerificationEmail(ctx context.Context, email, callbackURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Verify your Taskhive account")
	m.SetBody("text/plain", fmt.Sprintf(
		"Welcome to Taskhive.\n\nConfirm your email address by opening this link:\n\n%s\n\nIf you did not create an account, ignore this message.\n", callbackURL))
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// Noop discards all mail. Used when no SMTP relay is configured.
type Noop struct{}

func (Noop) SendVerificationEmail(ctx context.Context, email, callbackURL string) error {
	return nil
}
