package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"action-items/internal/model"
)

func newTestRepo(t *testing.T) *TaskRepository {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "nested", "tasks.db"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return NewTaskRepository(db)
}

func strPtr(s string) *string { return &s }

func TestTaskRepository_CreateAppliesDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &model.Task{Title: "send the report"}
	require.NoError(t, repo.Create(ctx, task))

	assert.NotEmpty(t, task.ID)
	assert.False(t, task.CreatedAt.IsZero())

	got, err := repo.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOther, got.Category)
	assert.Equal(t, model.PriorityMedium, got.Priority)
	assert.Nil(t, got.Description)
	assert.Nil(t, got.DueDate)
}

func TestTaskRepository_EnsureSchemaIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Task{Title: "keep me"}))
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	tasks, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestTaskRepository_RejectsUnknownPriority(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.Create(context.Background(), &model.Task{Title: "x", Priority: "urgent"})
	assert.Error(t, err)
}

func TestTaskRepository_ListOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	insert := func(title string, p model.Priority, due *string, age int) {
		t.Helper()
		require.NoError(t, repo.Create(ctx, &model.Task{
			Title:     title,
			Priority:  p,
			DueDate:   due,
			CreatedAt: base.Add(time.Duration(age) * time.Minute),
		}))
	}

	insert("low-undated", model.PriorityLow, nil, 1)
	insert("medium-late", model.PriorityMedium, strPtr("2026-11-20"), 2)
	insert("high-undated-old", model.PriorityHigh, nil, 3)
	insert("medium-undated", model.PriorityMedium, nil, 4)
	insert("high-early", model.PriorityHigh, strPtr("2026-10-20"), 5)
	insert("high-undated-new", model.PriorityHigh, nil, 6)
	insert("medium-early", model.PriorityMedium, strPtr("2026-10-21"), 7)
	insert("low-dated", model.PriorityLow, strPtr("2026-12-01"), 8)
	insert("high-late", model.PriorityHigh, strPtr("2026-10-25"), 9)

	tasks, err := repo.List(ctx)
	require.NoError(t, err)

	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{
		"high-early",
		"high-late",
		"high-undated-new",
		"high-undated-old",
		"medium-early",
		"medium-late",
		"medium-undated",
		"low-dated",
		"low-undated",
	}, titles)
}

func TestTaskRepository_ListEmptyIsNotNil(t *testing.T) {
	repo := newTestRepo(t)
	tasks, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskRepository_UpdateOnlyTouchesGivenFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &model.Task{
		Title:         "review PR",
		Description:   strPtr("the auth one"),
		Category:      model.CategoryReview,
		Priority:      model.PriorityLow,
		DueDate:       strPtr("2026-10-23"),
		SourceAuthor:  strPtr("Sam"),
		SourceContext: strPtr("#eng"),
	}
	require.NoError(t, repo.Create(ctx, task))

	got, err := repo.Update(ctx, task.ID, map[string]any{
		"priority": model.PriorityHigh,
		"due_date": nil,
	})
	require.NoError(t, err)

	assert.Equal(t, model.PriorityHigh, got.Priority)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "review PR", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, "the auth one", *got.Description)
	assert.Equal(t, model.CategoryReview, got.Category)
	require.NotNil(t, got.SourceContext)
	assert.Equal(t, "#eng", *got.SourceContext)
	assert.Equal(t, task.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestTaskRepository_UpdateEmptyReturnsCurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &model.Task{Title: "unchanged"}
	require.NoError(t, repo.Create(ctx, task))

	got, err := repo.Update(ctx, task.ID, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got.Title)
}

func TestTaskRepository_UpdateMissing(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.Update(context.Background(), "nope", map[string]any{"title": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_DeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	task := &model.Task{Title: "gone soon"}
	require.NoError(t, repo.Create(ctx, task))

	require.NoError(t, repo.Delete(ctx, task.ID))
	require.NoError(t, repo.Delete(ctx, task.ID))
	require.NoError(t, repo.Delete(ctx, "never-existed"))

	_, err := repo.FindByID(ctx, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
