package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/velozfibra/portal/internal/model"
	"github.com/velozfibra/portal/internal/validation"
)

// Field names accepted by CreateGoal and UpdateGoal. They match the stored
// document keys.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldTargetValue  = "target_value"
	FieldCurrentValue = "current_value"
	FieldGoalType     = "goal_type"
	FieldStatus       = "status"
	FieldAssignedTo   = "assigned_to"
	FieldCreatedBy    = "created_by"
	FieldStartDate    = "start_date"
	FieldEndDate      = "end_date"
)

var (
	ErrInvalidField = errors.New("invalid field value")
	ErrMissingField = errors.New("missing required field")

	errNotAmount = errors.New("must be a non-negative finite number")
)

// Length limits for required text fields.
const (
	maxTitleLength = 200
	maxUserLength  = 100
)

var updateFields = []string{
	FieldTitle,
	FieldDescription,
	FieldTargetValue,
	FieldCurrentValue,
	FieldGoalType,
	FieldStatus,
	FieldAssignedTo,
	FieldStartDate,
	FieldEndDate,
}

var createFields = append([]string{FieldCreatedBy}, updateFields...)

// Fields carries loosely typed goal attributes, as they arrive from forms,
// flags or decoded JSON. Numbers may be strings, enums are their stored
// string values and dates are YYYY-MM-DD strings.
type Fields map[string]any

func (f Fields) has(key string) bool {
	_, ok := f[key]
	return ok
}

// FieldError reports a field that could not be coerced. It matches
// ErrInvalidField or ErrMissingField with errors.Is.
type FieldError struct {
	Field string
	Value any
	Err   error
	Cause error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Err, e.Field, e.Cause)
	}
	if e.Value != nil {
		return fmt.Sprintf("%s %s: %v", e.Err, e.Field, e.Value)
	}
	return fmt.Sprintf("%s %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func invalidField(key string, value any, cause error) *FieldError {
	return &FieldError{Field: key, Value: value, Err: ErrInvalidField, Cause: cause}
}

// applyFields coerces every allowed key present in fields onto goal. Nothing
// is written to goal unless all present fields coerce.
func applyFields(goal *model.Goal, fields Fields, allowed []string) error {
	next := *goal

	for _, key := range allowed {
		raw, ok := fields[key]
		if !ok {
			continue
		}

		var err error
		switch key {
		case FieldTitle:
			next.Title, err = toRequiredText(key, raw, maxTitleLength)
		case FieldDescription:
			next.Description, err = toText(key, raw)
		case FieldAssignedTo:
			next.AssignedTo, err = toRequiredText(key, raw, maxUserLength)
		case FieldCreatedBy:
			next.CreatedBy, err = toRequiredText(key, raw, maxUserLength)
		case FieldTargetValue:
			next.TargetValue, err = toAmount(key, raw)
		case FieldCurrentValue:
			next.CurrentValue, err = toAmount(key, raw)
		case FieldGoalType:
			next.Type, err = toGoalType(key, raw)
		case FieldStatus:
			next.Status, err = toGoalStatus(key, raw)
		case FieldStartDate:
			err = setDate(&next.StartDate, key, raw)
		case FieldEndDate:
			err = setDate(&next.EndDate, key, raw)
		}
		if err != nil {
			return err
		}
	}

	*goal = next
	return nil
}

func toText(key string, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case nil:
		return "", nil
	}
	return "", invalidField(key, raw, fmt.Errorf("expected text, got %T", raw))
}

func toRequiredText(key string, raw any, limit int) (string, error) {
	s, err := toText(key, raw)
	if err != nil {
		return "", err
	}
	err = validation.ValidateText(s, limit)
	if err != nil {
		return "", invalidField(key, raw, err)
	}
	return strings.TrimSpace(s), nil
}

func toAmount(key string, raw any) (float64, error) {
	var value float64
	switch v := raw.(type) {
	case float64:
		value = v
	case float32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalidField(key, raw, err)
		}
		value = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, invalidField(key, raw, fmt.Errorf("not a number"))
		}
		value = f
	default:
		return 0, invalidField(key, raw, fmt.Errorf("expected a number, got %T", raw))
	}

	return value, checkAmount(key, value)
}

func checkAmount(key string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return invalidField(key, value, errNotAmount)
	}
	return nil
}

func toGoalType(key string, raw any) (model.GoalType, error) {
	switch v := raw.(type) {
	case model.GoalType:
		raw = string(v)
	case string:
	default:
		return "", invalidField(key, raw, fmt.Errorf("expected a goal type, got %T", raw))
	}

	t, err := model.ParseGoalType(raw.(string))
	if err != nil {
		return "", invalidField(key, raw, err)
	}
	return t, nil
}

func toGoalStatus(key string, raw any) (model.GoalStatus, error) {
	switch v := raw.(type) {
	case model.GoalStatus:
		raw = string(v)
	case string:
	default:
		return "", invalidField(key, raw, fmt.Errorf("expected a goal status, got %T", raw))
	}

	st, err := model.ParseGoalStatus(raw.(string))
	if err != nil {
		return "", invalidField(key, raw, err)
	}
	return st, nil
}

// setDate leaves dst untouched for nil or empty values.
func setDate(dst **model.Date, key string, raw any) error {
	var d model.Date
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parsed, err := model.ParseDate(strings.TrimSpace(v))
		if err != nil {
			return invalidField(key, raw, err)
		}
		d = parsed
	case model.Date:
		if v.IsZero() {
			return nil
		}
		d = v
	case *model.Date:
		if v == nil {
			return nil
		}
		d = *v
	case time.Time:
		if v.IsZero() {
			return nil
		}
		d = model.DateOf(v)
	default:
		return invalidField(key, raw, fmt.Errorf("expected a YYYY-MM-DD date, got %T", raw))
	}

	*dst = &d
	return nil
}
