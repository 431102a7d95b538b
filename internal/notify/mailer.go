// Package notify delivers reset links and confirmations to user mailboxes.
package notify

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/dtroode/authkeeper/internal/logger"
	"github.com/dtroode/authkeeper/internal/model"
)

// mailSender is the part of mail.Client the mailer depends on.
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPConfig holds outbound transport settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var _ model.Notifier = (*SMTPMailer)(nil)

// SMTPMailer sends notifications through an SMTP relay.
type SMTPMailer struct {
	sender mailSender
	from   string
}

// NewSMTPMailer creates a mailer authenticating with PLAIN auth when credentials are set.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return NewSMTPMailerWithSender(client, cfg.From), nil
}

// NewSMTPMailerWithSender wraps an existing sender.
func NewSMTPMailerWithSender(sender mailSender, from string) *SMTPMailer {
	return &SMTPMailer{sender: sender, from: from}
}

// Send delivers msg as a plain-text email.
func (m *SMTPMailer) Send(ctx context.Context, msg model.Message) error {
	email := mail.NewMsg()
	if err := email.From(m.from); err != nil {
		return fmt.Errorf("failed to set sender address: %w", err)
	}
	if err := email.To(msg.To); err != nil {
		return fmt.Errorf("failed to set recipient address: %w", err)
	}
	email.Subject(msg.Subject)
	email.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := m.sender.DialAndSendWithContext(ctx, email); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

var _ model.Notifier = (*LogMailer)(nil)

// LogMailer writes notifications to the log instead of delivering them.
type LogMailer struct {
	logger *logger.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *logger.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the recipient and subject of msg, never the body.
// It fails only when ctx is already done.
func (m *LogMailer) Send(ctx context.Context, msg model.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	m.logger.Info("Notifier: mail not delivered, SMTP disabled",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}
