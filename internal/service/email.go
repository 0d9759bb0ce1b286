package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/velozfibra/portal/internal/model"
)

var ErrEmailNotConfigured = errors.New("email service not configured (missing RESEND_API_KEY)")

type EmailService struct {
	client    *resend.Client
	fromEmail string
	appName   string
	isDev     bool
}

func NewEmailService(apiKey, fromEmail, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		appName:   appName,
		isDev:     isDev,
	}
}

// SendOverdueDigest mails the list of overdue goals to every recipient in one
// message. In development the message is logged instead of sent.
func (s *EmailService) SendOverdueDigest(ctx context.Context, recipients []string, goals []*model.Goal, today model.Date) error {
	subject, body := overdueDigestTemplate(goals, today, s.appName)

	if s.isDev {
		slog.Info("email sent (dev mode)", "type", "overdue_digest", "to", recipients, "subject", subject, "goals", len(goals))
		return nil
	}

	if s.client == nil {
		return ErrEmailNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      recipients,
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err == nil {
		slog.Info("email sent", "type", "overdue_digest", "to", recipients, "goals", len(goals))
	}
	return err
}
