package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/velozfibra/portal/internal/model"
	"github.com/velozfibra/portal/internal/repository"
)

type GoalService struct {
	repo repository.GoalRepository
	now  func() time.Time
}

func NewGoalService(repo repository.GoalRepository, now func() time.Time) *GoalService {
	if now == nil {
		now = time.Now
	}
	return &GoalService{
		repo: repo,
		now:  now,
	}
}

// Today is the date derived properties are computed against.
func (s *GoalService) Today() model.Date {
	return model.DateOf(s.now())
}

// CreateGoal builds a goal from loosely typed fields. title, target_value,
// goal_type, assigned_to and created_by are required; status defaults to
// pending and current_value to 0.
func (s *GoalService) CreateGoal(ctx context.Context, fields Fields) (*model.Goal, error) {
	for _, key := range []string{FieldTitle, FieldTargetValue, FieldGoalType, FieldAssignedTo, FieldCreatedBy} {
		if !fields.has(key) {
			return nil, &FieldError{Field: key, Err: ErrMissingField}
		}
	}

	goal := &model.Goal{
		Status: model.GoalStatusPending,
	}

	err := applyFields(goal, fields, createFields)
	if err != nil {
		return nil, err
	}

	err = s.repo.Create(ctx, goal)
	if err != nil {
		return nil, fmt.Errorf("failed to create goal: %w", err)
	}

	slog.Info("goal created", "goal_id", goal.ID, "goal_type", goal.Type, "assigned_to", goal.AssignedTo)
	return goal, nil
}

// UpdateGoal applies only the keys present in fields. Empty dates leave the
// stored dates untouched and created_by cannot be changed.
func (s *GoalService) UpdateGoal(ctx context.Context, id int, fields Fields) (*model.Goal, error) {
	goal, err := s.repo.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("%w: id %d", repository.ErrGoalNotFound, id)
	}

	err = applyFields(goal, fields, updateFields)
	if err != nil {
		return nil, err
	}

	err = s.repo.Update(ctx, goal)
	if err != nil {
		return nil, err
	}

	slog.Info("goal updated", "goal_id", goal.ID)
	return goal, nil
}

func (s *GoalService) UpdateGoalProgress(ctx context.Context, id int, value float64) (*model.Goal, error) {
	err := checkAmount(FieldCurrentValue, value)
	if err != nil {
		return nil, err
	}

	goal, err := s.repo.UpdateProgress(ctx, id, value)
	if err != nil {
		return nil, err
	}

	slog.Info("goal progress updated", "goal_id", goal.ID, "current_value", goal.CurrentValue, "status", goal.Status)
	return goal, nil
}

// DeleteGoal reports false when no goal has the id.
func (s *GoalService) DeleteGoal(ctx context.Context, id int) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		slog.Info("goal deleted", "goal_id", id)
	}
	return deleted, nil
}

func (s *GoalService) Goals(ctx context.Context) ([]*model.Goal, error) {
	return s.repo.Goals(ctx)
}

// GoalByID returns nil when no goal has the id.
func (s *GoalService) GoalByID(ctx context.Context, id int) (*model.Goal, error) {
	return s.repo.ByID(ctx, id)
}

func (s *GoalService) GoalsByUser(ctx context.Context, userID string) ([]*model.Goal, error) {
	return s.repo.ByAssignee(ctx, userID)
}

func (s *GoalService) GoalsByStatus(ctx context.Context, status string) ([]*model.Goal, error) {
	st, err := model.ParseGoalStatus(status)
	if err != nil {
		return nil, &FieldError{Field: FieldStatus, Value: status, Err: ErrInvalidField, Cause: err}
	}
	return s.repo.ByStatus(ctx, st)
}

func (s *GoalService) OverdueGoals(ctx context.Context) ([]*model.Goal, error) {
	return s.repo.Overdue(ctx)
}

func (s *GoalService) Summary(ctx context.Context) (*model.GoalsSummary, error) {
	goals, err := s.repo.Goals(ctx)
	if err != nil {
		return nil, err
	}
	return summarize(goals, s.Today()), nil
}

func summarize(goals []*model.Goal, today model.Date) *model.GoalsSummary {
	summary := &model.GoalsSummary{
		TotalGoals:      len(goals),
		CompletedGoals:  lo.CountBy(goals, func(g *model.Goal) bool { return g.Status == model.GoalStatusCompleted }),
		InProgressGoals: lo.CountBy(goals, func(g *model.Goal) bool { return g.Status == model.GoalStatusInProgress }),
		OverdueGoals:    lo.CountBy(goals, func(g *model.Goal) bool { return g.IsOverdue(today) }),
		TotalRevenue:    lo.SumBy(goals, func(g *model.Goal) float64 { return g.CommissionValue() }),
	}

	if summary.TotalGoals > 0 {
		total := float64(summary.TotalGoals)
		progress := lo.SumBy(goals, func(g *model.Goal) float64 { return g.ProgressPercentage() })
		summary.AvgProgress = model.Round2(progress / total)
		summary.CompletionRate = model.Round2(float64(summary.CompletedGoals) / total * 100)
	}

	return summary
}

// GoalsByPeriod returns goals with both dates set whose period overlaps
// [start, end], bounds inclusive.
func (s *GoalService) GoalsByPeriod(ctx context.Context, start, end model.Date) ([]*model.Goal, error) {
	goals, err := s.repo.Goals(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(goals, func(g *model.Goal, _ int) bool { return g.Overlaps(start, end) }), nil
}
