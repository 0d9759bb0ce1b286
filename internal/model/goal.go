package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

type GoalType string

const (
	GoalTypeRenewals             GoalType = "renewals"
	GoalTypeUpgrades             GoalType = "upgrades"
	GoalTypeNewCustomers         GoalType = "new_customers"
	GoalTypeRevenue              GoalType = "revenue"
	GoalTypeCustomerSatisfaction GoalType = "customer_satisfaction"
)

type GoalStatus string

const (
	GoalStatusPending    GoalStatus = "pending"
	GoalStatusInProgress GoalStatus = "in_progress"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusCancelled  GoalStatus = "cancelled"
)

var (
	ErrInvalidGoalType   = errors.New("invalid goal type")
	ErrInvalidGoalStatus = errors.New("invalid goal status")
)

var goalTypes = []GoalType{
	GoalTypeRenewals,
	GoalTypeUpgrades,
	GoalTypeNewCustomers,
	GoalTypeRevenue,
	GoalTypeCustomerSatisfaction,
}

var goalStatuses = []GoalStatus{
	GoalStatusPending,
	GoalStatusInProgress,
	GoalStatusCompleted,
	GoalStatusCancelled,
}

// Commission rule parameters
const (
	RenewalCommissionPerUnit = 3.0
	RenewalMinimumUnits      = 100
	RevenueCommissionRate    = 0.05
)

func GoalTypes() []GoalType {
	return append([]GoalType(nil), goalTypes...)
}

func GoalStatuses() []GoalStatus {
	return append([]GoalStatus(nil), goalStatuses...)
}

// ParseGoalType accepts only the exact stored values ("renewals", "new_customers", ...).
func ParseGoalType(s string) (GoalType, error) {
	for _, t := range goalTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGoalType, s)
}

func ParseGoalStatus(s string) (GoalStatus, error) {
	for _, st := range goalStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGoalStatus, s)
}

type Goal struct {
	ID           int
	Title        string
	Description  string
	TargetValue  float64
	CurrentValue float64
	Type         GoalType
	Status       GoalStatus
	AssignedTo   string
	CreatedBy    string
	StartDate    *Date
	EndDate      *Date
	CreatedAt    *time.Time
	UpdatedAt    *time.Time
}

// ProgressPercentage is capped at 100 and is 0 for a zero target.
func (g *Goal) ProgressPercentage() float64 {
	if g.TargetValue == 0 {
		return 0
	}
	return math.Min(100, g.CurrentValue/g.TargetValue*100)
}

// CommissionValue derives the payout from the goal type and current value.
// It is recomputed on every read and never stored.
func (g *Goal) CommissionValue() float64 {
	switch g.Type {
	case GoalTypeRenewals:
		if g.CurrentValue >= RenewalMinimumUnits {
			return g.CurrentValue * RenewalCommissionPerUnit
		}
		return 0
	case GoalTypeUpgrades:
		// current value already holds the upgrade delta
		return g.CurrentValue
	case GoalTypeRevenue:
		return g.CurrentValue * RevenueCommissionRate
	default:
		return 0
	}
}

// IsOverdue reports whether today is past the end date of a goal that is not
// completed. Goals without an end date are never overdue.
func (g *Goal) IsOverdue(today Date) bool {
	if g.Status == GoalStatusCompleted || g.EndDate == nil {
		return false
	}
	return today.After(*g.EndDate)
}

func (g *Goal) DaysRemaining(today Date) int {
	if g.EndDate == nil {
		return 0
	}
	return max(0, today.DaysUntil(*g.EndDate))
}

// HasPeriod reports whether both start and end dates are set.
func (g *Goal) HasPeriod() bool {
	return g.StartDate != nil && g.EndDate != nil
}

// Overlaps reports whether the goal period intersects [start, end], bounds inclusive.
func (g *Goal) Overlaps(start, end Date) bool {
	if !g.HasPeriod() {
		return false
	}
	return !g.StartDate.After(end) && !g.EndDate.Before(start)
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (g *Goal) Clone() *Goal {
	c := *g
	if g.StartDate != nil {
		d := *g.StartDate
		c.StartDate = &d
	}
	if g.EndDate != nil {
		d := *g.EndDate
		c.EndDate = &d
	}
	if g.CreatedAt != nil {
		t := *g.CreatedAt
		c.CreatedAt = &t
	}
	if g.UpdatedAt != nil {
		t := *g.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// GoalView is the flat representation handed to callers, with every derived
// property computed at serialization time.
type GoalView struct {
	ID                 int        `json:"id" yaml:"id"`
	Title              string     `json:"title" yaml:"title"`
	Description        string     `json:"description" yaml:"description"`
	TargetValue        float64    `json:"target_value" yaml:"target_value"`
	CurrentValue       float64    `json:"current_value" yaml:"current_value"`
	GoalType           GoalType   `json:"goal_type" yaml:"goal_type"`
	Status             GoalStatus `json:"status" yaml:"status"`
	AssignedTo         string     `json:"assigned_to" yaml:"assigned_to"`
	CreatedBy          string     `json:"created_by" yaml:"created_by"`
	StartDate          *Date      `json:"start_date" yaml:"start_date"`
	EndDate            *Date      `json:"end_date" yaml:"end_date"`
	CreatedAt          *time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt          *time.Time `json:"updated_at" yaml:"updated_at"`
	ProgressPercentage float64    `json:"progress_percentage" yaml:"progress_percentage"`
	IsOverdue          bool       `json:"is_overdue" yaml:"is_overdue"`
	DaysRemaining      int        `json:"days_remaining" yaml:"days_remaining"`
	CommissionValue    float64    `json:"commission_value" yaml:"commission_value"`
}

func (g *Goal) View(today Date) GoalView {
	return GoalView{
		ID:                 g.ID,
		Title:              g.Title,
		Description:        g.Description,
		TargetValue:        g.TargetValue,
		CurrentValue:       g.CurrentValue,
		GoalType:           g.Type,
		Status:             g.Status,
		AssignedTo:         g.AssignedTo,
		CreatedBy:          g.CreatedBy,
		StartDate:          g.StartDate,
		EndDate:            g.EndDate,
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
		ProgressPercentage: g.ProgressPercentage(),
		IsOverdue:          g.IsOverdue(today),
		DaysRemaining:      g.DaysRemaining(today),
		CommissionValue:    g.CommissionValue(),
	}
}

func Views(goals []*Goal, today Date) []GoalView {
	views := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, g.View(today))
	}
	return views
}

type GoalsSummary struct {
	TotalGoals      int     `json:"total_goals" yaml:"total_goals"`
	CompletedGoals  int     `json:"completed_goals" yaml:"completed_goals"`
	InProgressGoals int     `json:"in_progress_goals" yaml:"in_progress_goals"`
	OverdueGoals    int     `json:"overdue_goals" yaml:"overdue_goals"`
	AvgProgress     float64 `json:"avg_progress" yaml:"avg_progress"`
	CompletionRate  float64 `json:"completion_rate" yaml:"completion_rate"`
	TotalRevenue    float64 `json:"total_revenue" yaml:"total_revenue"`
}

// Round2 rounds the exact binary value to two decimals, ties to even, so
// 0.125 becomes 0.12 and 2.675 (stored just below) becomes 2.67.
func Round2(v float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return rounded
}
