// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package mailer sends verification emails. Failures are reported per
// recipient and are never fatal to the operation that triggered them.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"codeberg.org/oliverandrich/verify-portal/internal/config"
	"codeberg.org/oliverandrich/verify-portal/internal/i18n"
	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/token"
)

// DispatchError wraps a mail transport failure for one recipient.
type DispatchError struct {
	Email string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch to %s: %v", e.Email, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Dispatcher composes and sends verification emails via SMTP.
type Dispatcher struct {
	cfg     *config.SMTPConfig
	baseURL string
	issuer  *token.Issuer
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg *config.SMTPConfig, baseURL string, issuer *token.Issuer) (*Dispatcher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Dispatcher{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		issuer:  issuer,
	}, nil
}

// VerifyURL returns the verification link embedding the plaintext token.
func (d *Dispatcher) VerifyURL(plaintext string) string {
	return fmt.Sprintf("%s/verify/%s", d.baseURL, plaintext)
}

// Send emails the contact their verification link.
func (d *Dispatcher) Send(ctx context.Context, contact *models.Contact, plaintext string) error {
	subject := i18n.T(ctx, "verification_email_subject")
	return d.sendVerification(ctx, contact, plaintext, subject)
}

// Resend reissues the contact's token and sends a reminder email. The
// previous token is superseded by the reissue.
func (d *Dispatcher) Resend(ctx context.Context, contact *models.Contact) error {
	plaintext, _, err := d.issuer.Issue(ctx, contact.ID)
	if err != nil {
		return fmt.Errorf("reissuing token: %w", err)
	}

	subject := i18n.T(ctx, "verification_email_resend_subject")
	return d.sendVerification(ctx, contact, plaintext, subject)
}

func (d *Dispatcher) sendVerification(ctx context.Context, contact *models.Contact, plaintext, subject string) error {
	body := i18n.TData(ctx, "verification_email_body", map[string]any{
		"FirstName":  contact.FirstName,
		"LastName":   contact.LastName,
		"VerifyURL":  d.VerifyURL(plaintext),
		"ValidHours": int(token.Validity.Hours()),
	})

	if err := d.send(contact.Email, subject, body); err != nil {
		return &DispatchError{Email: contact.Email, Err: err}
	}
	return nil
}

// send sends an email via SMTP using go-mail.
func (d *Dispatcher) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if d.cfg.FromName != "" {
		if err := msg.FromFormat(d.cfg.FromName, d.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(d.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	// Build client options
	opts := []mail.Option{
		mail.WithPort(d.cfg.Port),
	}

	// Configure TLS based on config and port
	if d.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if d.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if d.cfg.Username != "" && d.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(d.cfg.Username),
			mail.WithPassword(d.cfg.Password),
		)
	}

	client, err := mail.NewClient(d.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
