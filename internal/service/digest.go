package service

import (
	"context"
	"fmt"
	"log/slog"
)

type DigestService struct {
	goals      *GoalService
	email      *EmailService
	recipients []string
}

func NewDigestService(goals *GoalService, email *EmailService, recipients []string) *DigestService {
	return &DigestService{
		goals:      goals,
		email:      email,
		recipients: recipients,
	}
}

// SendOverdue emails the current overdue goals to the configured recipients
// and returns how many goals were reported. Nothing is sent when there are
// no recipients or no overdue goals.
func (s *DigestService) SendOverdue(ctx context.Context) (int, error) {
	if len(s.recipients) == 0 {
		slog.Warn("overdue digest skipped, no recipients configured")
		return 0, nil
	}

	overdue, err := s.goals.OverdueGoals(ctx)
	if err != nil {
		return 0, err
	}
	if len(overdue) == 0 {
		slog.Info("overdue digest skipped, no overdue goals")
		return 0, nil
	}

	err = s.email.SendOverdueDigest(ctx, s.recipients, overdue, s.goals.Today())
	if err != nil {
		return 0, fmt.Errorf("failed to send overdue digest: %w", err)
	}

	return len(overdue), nil
}
