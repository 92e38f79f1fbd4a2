package mail

import (
	"context"
	"fmt"

	"barbeapp/internal/config"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers a single e-mail.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Message struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *zerolog.Logger
}

func NewSendGridSender(cfg config.MailConfig, logger *zerolog.Logger) *SendGridSender {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.SendGrid.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return fmt.Errorf("mail: recipient is empty")
	}

	from := sgmail.NewEmail(s.fromName, s.fromEmail)
	to := sgmail.NewEmail(msg.ToName, msg.To)
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("mail: sendgrid send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error().Int("status", response.StatusCode).Str("body", response.Body).Str("to", msg.To).Msg("sendgrid returned error status")
		return fmt.Errorf("mail: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Int("status", response.StatusCode).Msg("email sent via sendgrid")
	return nil
}

// StubSender only logs. Used when no mail provider is configured.
type StubSender struct {
	logger *zerolog.Logger
}

func NewStubSender(logger *zerolog.Logger) *StubSender {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &StubSender{logger: logger}
}

func (s *StubSender) Send(_ context.Context, msg Message) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("stub sender: would send email")
	return nil
}

// NewSender picks the sender for the configured provider.
func NewSender(cfg config.MailConfig, logger *zerolog.Logger) Sender {
	if cfg.Provider == config.MailProviderSendGrid {
		return NewSendGridSender(cfg, logger)
	}
	return NewStubSender(logger)
}
