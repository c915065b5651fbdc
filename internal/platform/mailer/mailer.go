// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers the transactional emails of the auth core.

Messages are composed with gomail and rendered from embedded html/template
bodies. Delivery goes through a [Sender]: an SMTP dialer in production, or a
log-only sender when no relay is configured.
*/
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/taibuivan/alphasource/internal/platform/config"
)

// # Subjects

const (
	SubjectVerifyEmail      = "Verify your Alpha Source email"
	SubjectTwoFactorEnabled = "Two-Factor Authentication Enabled - Alpha Source"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(messages ...*gomail.Message) error
}

// Mailer renders and sends the verification and 2FA notification emails.
type Mailer struct {
	sender  Sender
	from    string
	baseURL string
}

// New constructs a [Mailer] over an arbitrary [Sender].
func New(sender Sender, from, baseURL string) *Mailer {
	return &Mailer{
		sender:  sender,
		from:    from,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NewFromConfig picks the SMTP dialer when a relay is configured and the
// log-only sender otherwise.
func NewFromConfig(smtp config.SMTPConfig, baseURL string, logger *slog.Logger) *Mailer {
	if !smtp.Enabled() {
		logger.Warn("smtp_not_configured_emails_will_be_logged")
		return New(&LogSender{logger: logger}, smtp.From, baseURL)
	}

	dialer := gomail.NewDialer(smtp.Host, smtp.Port, smtp.Username, smtp.Password)
	return New(dialer, smtp.From, baseURL)
}

// # Messages

/*
SendVerificationEmail sends the 24-hour email verification link.

Parameters:
  - ctx: context.Context
  - to: string (Recipient address)
  - firstName: string
  - token: string (Raw verification token)

Returns:
  - error: Rendering or delivery failures
*/
func (mailer *Mailer) SendVerificationEmail(ctx context.Context, to, firstName, token string) error {
	link := mailer.baseURL + "/verify-email?token=" + url.QueryEscape(token)

	return mailer.send(ctx, to, SubjectVerifyEmail, "verify_email.html", map[string]any{
		"Name": displayName(firstName),
		"Link": link,
	})
}

/*
SendTwoFactorEnabledEmail notifies the account owner that 2FA was turned on.

Parameters:
  - ctx: context.Context
  - to: string
  - firstName: string

Returns:
  - error: Rendering or delivery failures
*/
func (mailer *Mailer) SendTwoFactorEnabledEmail(ctx context.Context, to, firstName string) error {
	return mailer.send(ctx, to, SubjectTwoFactorEnabled, "twofactor_enabled.html", map[string]any{
		"Name": displayName(firstName),
	})
}

func (mailer *Mailer) send(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("mailer: failed to render %s: %w", templateName, err)
	}

	message := gomail.NewMessage()
	message.SetHeader("From", mailer.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body.String())

	if err := mailer.sender.DialAndSend(message); err != nil {
		return fmt.Errorf("mailer: failed to send %q: %w", subject, err)
	}

	return nil
}

func displayName(firstName string) string {
	if strings.TrimSpace(firstName) == "" {
		return "there"
	}
	return firstName
}

// # Development Sender

// LogSender writes message headers to the logger instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// DialAndSend implements [Sender].
func (sender *LogSender) DialAndSend(messages ...*gomail.Message) error {
	for _, message := range messages {
		sender.logger.Info("email_logged",
			slog.Any("to", message.GetHeader("To")),
			slog.Any("subject", message.GetHeader("Subject")),
		)
	}
	return nil
}
