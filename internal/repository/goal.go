package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/velozfibra/portal/internal/model"
	"github.com/velozfibra/portal/internal/storage"
)

// GoalsDocument is the document holding the goal collection
const GoalsDocument = "goals.json"

var (
	ErrGoalNotFound = errors.New("goal not found")
)

type GoalRepository interface {
	Goals(ctx context.Context) ([]*model.Goal, error)
	// ByID returns nil when no goal has the id
	ByID(ctx context.Context, id int) (*model.Goal, error)
	ByAssignee(ctx context.Context, userID string) ([]*model.Goal, error)
	ByStatus(ctx context.Context, status model.GoalStatus) ([]*model.Goal, error)
	Overdue(ctx context.Context) ([]*model.Goal, error)
	Create(ctx context.Context, goal *model.Goal) error
	Update(ctx context.Context, goal *model.Goal) error
	// Delete reports false when no goal has the id
	Delete(ctx context.Context, id int) (bool, error)
	UpdateProgress(ctx context.Context, id int, value float64) (*model.Goal, error)
}

// goalRepository keeps the whole collection in one JSON array document.
// Every call loads the full document; mutations rewrite it in one write.
// mu serializes load-modify-write cycles so ids are never handed out twice
// and concurrent updates are not lost.
type goalRepository struct {
	store storage.DocumentStore
	name  string
	now   func() time.Time
	mu    sync.Mutex
}

func NewGoalRepository(ctx context.Context, store storage.DocumentStore, now func() time.Time) (GoalRepository, error) {
	if now == nil {
		now = time.Now
	}

	r := &goalRepository{
		store: store,
		name:  GoalsDocument,
		now:   now,
	}

	err := r.ensureStore(ctx)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// ensureStore writes an empty collection if the document does not exist yet
func (r *goalRepository) ensureStore(ctx context.Context) error {
	_, err := r.store.Read(ctx, r.name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrDocumentNotFound) {
		return fmt.Errorf("failed to open %s: %w", r.name, err)
	}

	err = r.saveAll(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize %s: %w", r.name, err)
	}

	slog.Info("created goal document", "name", r.name)
	return nil
}

// loadAll treats a missing or malformed document as an empty collection.
// Storage failures are returned so a later write cannot clobber data that
// was never read.
func (r *goalRepository) loadAll(ctx context.Context) ([]goalRecord, error) {
	data, err := r.store.Read(ctx, r.name)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		return []goalRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []goalRecord
	err = json.Unmarshal(data, &records)
	if err != nil {
		slog.Warn("goal document is malformed, treating as empty", "name", r.name, "error", err)
		return []goalRecord{}, nil
	}
	if records == nil {
		records = []goalRecord{}
	}

	return records, nil
}

func (r *goalRepository) saveAll(ctx context.Context, records []goalRecord) error {
	if records == nil {
		records = []goalRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	err := enc.Encode(records)
	if err != nil {
		return fmt.Errorf("failed to encode goals: %w", err)
	}

	return r.store.Write(ctx, r.name, buf.Bytes())
}

func (r *goalRepository) goals(ctx context.Context) ([]*model.Goal, error) {
	records, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	goals := make([]*model.Goal, 0, len(records))
	for _, rec := range records {
		goal, err := toGoal(rec)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}

	return goals, nil
}

func (r *goalRepository) Goals(ctx context.Context) ([]*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.goals(ctx)
}

func (r *goalRepository) ByID(ctx context.Context, id int) (*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.byID(ctx, id)
}

func (r *goalRepository) byID(ctx context.Context, id int) (*model.Goal, error) {
	records, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := lo.Find(records, func(rec goalRecord) bool { return rec.ID == id })
	if !ok {
		return nil, nil
	}

	return toGoal(rec)
}

func (r *goalRepository) ByAssignee(ctx context.Context, userID string) ([]*model.Goal, error) {
	return r.filter(ctx, func(g *model.Goal) bool { return g.AssignedTo == userID })
}

func (r *goalRepository) ByStatus(ctx context.Context, status model.GoalStatus) ([]*model.Goal, error) {
	return r.filter(ctx, func(g *model.Goal) bool { return g.Status == status })
}

func (r *goalRepository) Overdue(ctx context.Context) ([]*model.Goal, error) {
	today := model.DateOf(r.now())
	return r.filter(ctx, func(g *model.Goal) bool { return g.IsOverdue(today) })
}

func (r *goalRepository) filter(ctx context.Context, keep func(*model.Goal) bool) ([]*model.Goal, error) {
	goals, err := r.Goals(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Filter(goals, func(g *model.Goal, _ int) bool { return keep(g) }), nil
}

// Create assigns the next id (highest existing id plus one) and both
// timestamps, then appends the goal to the document.
func (r *goalRepository) Create(ctx context.Context, goal *model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll(ctx)
	if err != nil {
		return err
	}

	ids := lo.Map(records, func(rec goalRecord, _ int) int { return rec.ID })
	now := r.now()

	created := goal.Clone()
	created.ID = lo.Max(ids) + 1
	created.CreatedAt = &now
	updatedAt := now
	created.UpdatedAt = &updatedAt

	records = append(records, toRecord(created))
	err = r.saveAll(ctx, records)
	if err != nil {
		return err
	}

	*goal = *created
	slog.Debug("goal created", "goal_id", goal.ID)
	return nil
}

func (r *goalRepository) Update(ctx context.Context, goal *model.Goal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.update(ctx, goal)
}

// update replaces the stored record with the same id. created_at always
// keeps the stored value.
func (r *goalRepository) update(ctx context.Context, goal *model.Goal) error {
	records, err := r.loadAll(ctx)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(records, func(rec goalRecord) bool { return rec.ID == goal.ID })
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrGoalNotFound, goal.ID)
	}

	now := r.now()
	updated := goal.Clone()
	updated.UpdatedAt = &now

	rec := toRecord(updated)
	rec.CreatedAt = records[i].CreatedAt
	records[i] = rec

	err = r.saveAll(ctx, records)
	if err != nil {
		return err
	}

	goal.UpdatedAt = updated.UpdatedAt
	goal.CreatedAt, err = parseOptionalTimestamp(rec.CreatedAt)
	return err
}

func (r *goalRepository) Delete(ctx context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.loadAll(ctx)
	if err != nil {
		return false, err
	}

	i := slices.IndexFunc(records, func(rec goalRecord) bool { return rec.ID == id })
	if i < 0 {
		return false, nil
	}

	records = slices.Delete(records, i, i+1)
	err = r.saveAll(ctx, records)
	if err != nil {
		return false, err
	}

	slog.Debug("goal deleted", "goal_id", id)
	return true, nil
}

// UpdateProgress sets the current value and moves the status along:
// reaching the target completes the goal, any positive value below it marks
// it in progress, and zero leaves the status alone.
func (r *goalRepository) UpdateProgress(ctx context.Context, id int, value float64) (*model.Goal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	goal, err := r.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, fmt.Errorf("%w: id %d", ErrGoalNotFound, id)
	}

	goal.CurrentValue = value
	goal.Status = progressStatus(goal.Status, value, goal.TargetValue)

	err = r.update(ctx, goal)
	if err != nil {
		return nil, err
	}

	return goal, nil
}

func progressStatus(current model.GoalStatus, value, target float64) model.GoalStatus {
	switch {
	case value >= target:
		return model.GoalStatusCompleted
	case value > 0:
		return model.GoalStatusInProgress
	default:
		return current
	}
}
