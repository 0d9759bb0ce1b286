package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velozfibra/portal/internal/model"
	"github.com/velozfibra/portal/internal/storage"
)

var fixedNow = time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	dir   string
	store *storage.FileStore
	clock *testClock
	repo  *goalRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)

	clock := &testClock{now: fixedNow}
	repo, err := NewGoalRepository(context.Background(), store, clock.Now)
	require.NoError(t, err)

	return &fixture{dir: dir, store: store, clock: clock, repo: repo.(*goalRepository)}
}

func (f *fixture) writeDocument(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, GoalsDocument), []byte(content), 0644))
}

func (f *fixture) readDocument(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, GoalsDocument))
	require.NoError(t, err)
	return string(data)
}

func newGoal(title string) *model.Goal {
	start := model.NewDate(2024, time.January, 1)
	end := model.NewDate(2024, time.January, 31)
	return &model.Goal{
		Title:        title,
		Description:  "Test Description",
		TargetValue:  100,
		CurrentValue: 50,
		Type:         model.GoalTypeRenewals,
		Status:       model.GoalStatusInProgress,
		AssignedTo:   "Test User",
		CreatedBy:    "admin",
		StartDate:    &start,
		EndDate:      &end,
	}
}

const legacyDocument = `[
  {
    "id": 1,
    "title": "Goal 1",
    "description": "Description 1",
    "target_value": 100,
    "current_value": 50,
    "goal_type": "renewals",
    "status": "in_progress",
    "assigned_to": "User 1",
    "created_by": "admin",
    "start_date": "2024-01-01",
    "end_date": "2024-01-31",
    "created_at": "2024-01-01T08:00:00",
    "updated_at": "2024-01-15T14:30:00"
  },
  {
    "id": 2,
    "title": "Goal 2",
    "description": "Description 2",
    "target_value": 200,
    "current_value": 100,
    "goal_type": "upgrades",
    "status": "completed",
    "assigned_to": "User 2",
    "created_by": "admin",
    "start_date": "2024-01-01",
    "end_date": "2024-03-31",
    "created_at": "2024-01-01T09:00:00",
    "updated_at": "2024-01-20T16:45:00.123456"
  }
]`

func TestNewGoalRepository_CreatesEmptyDocument(t *testing.T) {
	f := newFixture(t)

	var records []any
	require.NoError(t, json.Unmarshal([]byte(f.readDocument(t)), &records))
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestNewGoalRepository_KeepsExistingDocument(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, GoalsDocument), []byte(legacyDocument), 0644))

	store, err := storage.NewFileStore(dir)
	require.NoError(t, err)
	repo, err := NewGoalRepository(context.Background(), store, nil)
	require.NoError(t, err)

	goals, err := repo.Goals(context.Background())
	require.NoError(t, err)
	assert.Len(t, goals, 2)
}

func TestGoals_LegacyDocument(t *testing.T) {
	f := newFixture(t)
	f.writeDocument(t, legacyDocument)

	goals, err := f.repo.Goals(context.Background())
	require.NoError(t, err)
	require.Len(t, goals, 2)

	assert.Equal(t, "Goal 1", goals[0].Title)
	assert.Equal(t, "Goal 2", goals[1].Title)
	assert.Equal(t, model.GoalTypeUpgrades, goals[1].Type)
	assert.Equal(t, model.GoalStatusCompleted, goals[1].Status)
	assert.Equal(t, "2024-03-31", goals[1].EndDate.String())
	require.NotNil(t, goals[0].CreatedAt)
	assert.Equal(t, 8, goals[0].CreatedAt.Hour())
	assert.Equal(t, 123456000, goals[1].UpdatedAt.Nanosecond())
}

func TestLoadAll_MissingOrMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{"missing", nil},
		{"malformed", ptr(`[{"id": 1,`)},
		{"not an array", ptr(`{"id": 1}`)},
		{"null", ptr(`null`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.content == nil {
				require.NoError(t, os.Remove(filepath.Join(f.dir, GoalsDocument)))
			} else {
				f.writeDocument(t, *tt.content)
			}

			goals, err := f.repo.Goals(context.Background())
			require.NoError(t, err)
			assert.Empty(t, goals)
		})
	}
}

func TestGoals_UnknownEnumFailsLoudly(t *testing.T) {
	f := newFixture(t)
	f.writeDocument(t, `[{"id": 4, "title": "x", "goal_type": "sales_amount", "status": "pending"}]`)

	_, err := f.repo.Goals(context.Background())
	assert.ErrorIs(t, err, model.ErrInvalidGoalType)
	assert.Contains(t, err.Error(), "goal 4")

	f.writeDocument(t, `[{"id": 5, "title": "x", "goal_type": "revenue", "status": "archived"}]`)
	_, err = f.repo.Goals(context.Background())
	assert.ErrorIs(t, err, model.ErrInvalidGoalStatus)
}

func TestCreate_AssignsSequentialIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		g := newGoal("goal")
		require.NoError(t, f.repo.Create(ctx, g))
		assert.Equal(t, want, g.ID)
	}

	deleted, err := f.repo.Delete(ctx, 2)
	require.NoError(t, err)
	assert.True(t, deleted)

	g := newGoal("after delete")
	require.NoError(t, f.repo.Create(ctx, g))
	assert.Equal(t, 4, g.ID, "ids are max+1, never reused")

	deleted, err = f.repo.Delete(ctx, 4)
	require.NoError(t, err)
	assert.True(t, deleted)

	g = newGoal("after deleting the max")
	require.NoError(t, f.repo.Create(ctx, g))
	assert.Equal(t, 4, g.ID, "max of remaining ids plus one")
}

func TestCreate_StampsTimestamps(t *testing.T) {
	f := newFixture(t)
	g := newGoal("Test Goal")
	g.CreatedAt = nil
	g.UpdatedAt = nil

	require.NoError(t, f.repo.Create(context.Background(), g))

	require.NotNil(t, g.CreatedAt)
	require.NotNil(t, g.UpdatedAt)
	assert.True(t, g.CreatedAt.Equal(fixedNow))
	assert.True(t, g.UpdatedAt.Equal(fixedNow))

	stored, err := f.repo.ByID(context.Background(), g.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.CreatedAt.Equal(fixedNow))
	assert.Equal(t, "Test Goal", stored.Title)
}

func TestCreate_ConcurrentCallsGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const n = 20
	ids := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := newGoal("concurrent")
			if err := f.repo.Create(ctx, g); err != nil {
				t.Error(err)
				return
			}
			ids[i] = g.ID
		}(i)
	}
	wg.Wait()

	sort.Ints(ids)
	for i, id := range ids {
		assert.Equal(t, i+1, id)
	}

	goals, err := f.repo.Goals(ctx)
	require.NoError(t, err)
	assert.Len(t, goals, n)
}

func TestByID_Missing(t *testing.T) {
	f := newFixture(t)

	goal, err := f.repo.ByID(context.Background(), 999)
	assert.NoError(t, err)
	assert.Nil(t, goal)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := newGoal("original")
	require.NoError(t, f.repo.Create(ctx, g))

	f.clock.Advance(time.Hour)
	g.Title = "renamed"
	g.CreatedAt = nil // callers cannot change created_at
	require.NoError(t, f.repo.Update(ctx, g))

	assert.True(t, g.UpdatedAt.Equal(fixedNow.Add(time.Hour)))
	require.NotNil(t, g.CreatedAt)
	assert.True(t, g.CreatedAt.Equal(fixedNow))

	stored, err := f.repo.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Title)
	assert.True(t, stored.CreatedAt.Equal(fixedNow))
	assert.True(t, stored.UpdatedAt.Equal(fixedNow.Add(time.Hour)))
}

func TestUpdate_NotFound(t *testing.T) {
	f := newFixture(t)

	g := newGoal("ghost")
	g.ID = 42
	err := f.repo.Update(context.Background(), g)
	assert.ErrorIs(t, err, ErrGoalNotFound)
}

func TestDelete_Missing(t *testing.T) {
	f := newFixture(t)

	deleted, err := f.repo.Delete(context.Background(), 1)
	assert.NoError(t, err)
	assert.False(t, deleted)
}

func TestUpdateProgress(t *testing.T) {
	tests := []struct {
		name       string
		target     float64
		status     model.GoalStatus
		value      float64
		wantStatus model.GoalStatus
	}{
		{"reaches target", 100, model.GoalStatusInProgress, 100, model.GoalStatusCompleted},
		{"exceeds target", 100, model.GoalStatusPending, 150, model.GoalStatusCompleted},
		{"partial", 100, model.GoalStatusPending, 40, model.GoalStatusInProgress},
		{"zero keeps status", 100, model.GoalStatusCancelled, 0, model.GoalStatusCancelled},
		{"completed goal dropping below target", 100, model.GoalStatusCompleted, 10, model.GoalStatusInProgress},
		{"zero target completes", 0, model.GoalStatusPending, 0, model.GoalStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			g := newGoal("progress")
			g.TargetValue = tt.target
			g.Status = tt.status
			require.NoError(t, f.repo.Create(ctx, g))

			updated, err := f.repo.UpdateProgress(ctx, g.ID, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.value, updated.CurrentValue)
			assert.Equal(t, tt.wantStatus, updated.Status)

			stored, err := f.repo.ByID(ctx, g.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, stored.Status)
			assert.Equal(t, tt.value, stored.CurrentValue)
		})
	}
}

func TestUpdateProgress_NotFound(t *testing.T) {
	f := newFixture(t)

	goal, err := f.repo.UpdateProgress(context.Background(), 7, 10)
	assert.ErrorIs(t, err, ErrGoalNotFound)
	assert.Nil(t, goal)
}

func TestProjections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	future := model.NewDate(2026, time.December, 31)
	past := model.NewDate(2025, time.June, 30)

	a := newGoal("ana overdue")
	a.AssignedTo = "ana"
	a.EndDate = &past
	b := newGoal("ana done")
	b.AssignedTo = "ana"
	b.Status = model.GoalStatusCompleted
	b.EndDate = &past
	c := newGoal("bruno future")
	c.AssignedTo = "bruno"
	c.Status = model.GoalStatusPending
	c.EndDate = &future

	for _, g := range []*model.Goal{a, b, c} {
		require.NoError(t, f.repo.Create(ctx, g))
	}

	byUser, err := f.repo.ByAssignee(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, goalIDs(byUser))

	completed, err := f.repo.ByStatus(ctx, model.GoalStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, goalIDs(completed))

	overdue, err := f.repo.Overdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, goalIDs(overdue))

	f.clock.Advance(90 * 24 * time.Hour) // mid January 2027
	overdue, err = f.repo.Overdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, goalIDs(overdue))
}

func TestRoundTrip_SaveLoadPreservesDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	g := newGoal("round <trip> & co")
	require.NoError(t, f.repo.Create(ctx, g))
	noDates := newGoal("no dates")
	noDates.StartDate = nil
	noDates.EndDate = nil
	noDates.Type = model.GoalTypeCustomerSatisfaction
	require.NoError(t, f.repo.Create(ctx, noDates))
	_, err := f.repo.UpdateProgress(ctx, g.ID, 120)
	require.NoError(t, err)
	_, err = f.repo.Delete(ctx, noDates.ID)
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(ctx, noDates))

	before := f.readDocument(t)

	records, err := f.repo.loadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.repo.saveAll(ctx, records))

	after := f.readDocument(t)
	assert.Equal(t, before, after)
	assert.Contains(t, after, `"goal_type": "customer_satisfaction"`)
	assert.Contains(t, after, `"status": "completed"`)
	assert.Contains(t, after, `"start_date": null`)
	assert.Contains(t, after, `round <trip> & co`)
}

func TestRoundTrip_LegacyDocumentUnchanged(t *testing.T) {
	f := newFixture(t)
	f.writeDocument(t, legacyDocument)
	ctx := context.Background()

	records, err := f.repo.loadAll(ctx)
	require.NoError(t, err)
	require.NoError(t, f.repo.saveAll(ctx, records))

	assert.JSONEq(t, legacyDocument, f.readDocument(t))
}

type failingStore struct{}

func (failingStore) Read(ctx context.Context, name string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Write(ctx context.Context, name string, data []byte) error {
	return errors.New("disk on fire")
}

func TestStorageErrorsPropagate(t *testing.T) {
	_, err := NewGoalRepository(context.Background(), failingStore{}, nil)
	assert.ErrorContains(t, err, "disk on fire")

	repo := &goalRepository{store: failingStore{}, name: GoalsDocument, now: time.Now}
	err = repo.Create(context.Background(), newGoal("x"))
	assert.ErrorContains(t, err, "disk on fire")
}

func goalIDs(goals []*model.Goal) []int {
	ids := make([]int, 0, len(goals))
	for _, g := range goals {
		ids = append(ids, g.ID)
	}
	return ids
}

func ptr[T any](v T) *T {
	return &v
}
