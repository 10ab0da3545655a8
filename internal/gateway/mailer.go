package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/naka-gawa/trending-digest/internal/domain"
	"github.com/resend/resend-go/v2"
)

// Email is one outgoing HTML message.
type Email struct {
	From    string
	To      string
	Subject string
	HTML    string
	Headers map[string]string
}

// Mailer delivers a single email.
type Mailer interface {
	Send(ctx context.Context, email *Email) error
}

// ResendMailer delivers email through the Resend API.
type ResendMailer struct {
	client *resend.Client
	logger *slog.Logger
}

// NewResendMailer creates a mailer. Pass an httpClient built with RetryMax 0 so a
// recipient is never mailed twice.
func NewResendMailer(apiKey string, httpClient *http.Client, logger *slog.Logger) *ResendMailer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &ResendMailer{
		client: resend.NewCustomClient(httpClient, apiKey),
		logger: logger,
	}
}

func (m *ResendMailer) Send(ctx context.Context, email *Email) error {
	resp, err := m.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Headers: email.Headers,
	})
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w: %w", domain.ErrUpstream, err)
	}
	m.logger.Debug("email accepted by provider", "id", resp.Id)
	return nil
}
