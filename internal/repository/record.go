package repository

import (
	"fmt"
	"time"

	"github.com/velozfibra/portal/internal/model"
)

// goalRecord is the on-disk shape of a goal. Field names and enum strings
// are part of the document format and must not change.
type goalRecord struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	GoalType     string  `json:"goal_type"`
	Status       string  `json:"status"`
	AssignedTo   string  `json:"assigned_to"`
	CreatedBy    string  `json:"created_by"`
	StartDate    *string `json:"start_date"`
	EndDate      *string `json:"end_date"`
	CreatedAt    *string `json:"created_at"`
	UpdatedAt    *string `json:"updated_at"`
}

// Timestamps are written as RFC 3339. Older documents carry naive ISO
// timestamps which are read in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func toGoal(rec goalRecord) (*model.Goal, error) {
	goalType, err := model.ParseGoalType(rec.GoalType)
	if err != nil {
		return nil, fmt.Errorf("goal %d: %w", rec.ID, err)
	}

	status, err := model.ParseGoalStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("goal %d: %w", rec.ID, err)
	}

	goal := &model.Goal{
		ID:           rec.ID,
		Title:        rec.Title,
		Description:  rec.Description,
		TargetValue:  rec.TargetValue,
		CurrentValue: rec.CurrentValue,
		Type:         goalType,
		Status:       status,
		AssignedTo:   rec.AssignedTo,
		CreatedBy:    rec.CreatedBy,
	}

	goal.StartDate, err = parseOptionalDate(rec.StartDate)
	if err != nil {
		return nil, fmt.Errorf("goal %d start_date: %w", rec.ID, err)
	}
	goal.EndDate, err = parseOptionalDate(rec.EndDate)
	if err != nil {
		return nil, fmt.Errorf("goal %d end_date: %w", rec.ID, err)
	}
	goal.CreatedAt, err = parseOptionalTimestamp(rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("goal %d created_at: %w", rec.ID, err)
	}
	goal.UpdatedAt, err = parseOptionalTimestamp(rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("goal %d updated_at: %w", rec.ID, err)
	}

	return goal, nil
}

func toRecord(goal *model.Goal) goalRecord {
	return goalRecord{
		ID:           goal.ID,
		Title:        goal.Title,
		Description:  goal.Description,
		TargetValue:  goal.TargetValue,
		CurrentValue: goal.CurrentValue,
		GoalType:     string(goal.Type),
		Status:       string(goal.Status),
		AssignedTo:   goal.AssignedTo,
		CreatedBy:    goal.CreatedBy,
		StartDate:    formatOptionalDate(goal.StartDate),
		EndDate:      formatOptionalDate(goal.EndDate),
		CreatedAt:    formatOptionalTimestamp(goal.CreatedAt),
		UpdatedAt:    formatOptionalTimestamp(goal.UpdatedAt),
	}
}

func parseOptionalDate(s *string) (*model.Date, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := model.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func formatOptionalDate(d *model.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseOptionalTimestamp(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		var t time.Time
		var err error
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, *s)
		} else {
			t, err = time.ParseInLocation(layout, *s, time.Local)
		}
		if err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", *s)
}

func formatOptionalTimestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339Nano)
	return &s
}
