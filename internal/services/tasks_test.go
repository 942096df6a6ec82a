package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:tasks_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Task{}))

	return db
}

func newTestUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()

	user := models.User{
		ID:       uuid.Must(uuid.NewV4()),
		Name:     "Test User",
		Email:    fmt.Sprintf("user-%s@example.com", uuid.Must(uuid.NewV4())),
		Password: "hashed",
	}
	require.NoError(t, db.Create(&user).Error)
	return user.ID
}

func mustCreateTask(t *testing.T, svc TaskService, db *gorm.DB, userID uuid.UUID, req CreateTaskRequest) *models.Task {
	t.Helper()

	task, err := svc.CreateTask(db, userID, req)
	require.NoError(t, err)
	return task
}

func strPtr(s string) *string { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "  Write spec  "})

	assert.Equal(t, userID, task.UserID)
	assert.Equal(t, "Write spec", task.Title, "title should be trimmed")
	assert.Equal(t, models.StatusTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.False(t, task.IsDeleted)
	assert.Nil(t, task.DeletedAt)
	assert.NotEqual(t, uuid.Nil, task.ID)
}

func TestCreateTaskValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	cases := []struct {
		name string
		req  CreateTaskRequest
	}{
		{"empty title", CreateTaskRequest{Title: "   "}},
		{"title too long", CreateTaskRequest{Title: string(make([]byte, 201))}},
		{"bad status", CreateTaskRequest{Title: "ok", Status: "pending"}},
		{"bad priority", CreateTaskRequest{Title: "ok", Priority: "urgent"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateTask(db, userID, tc.req)
			assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestListTasksPagination(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	for i := 0; i < 25; i++ {
		mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: fmt.Sprintf("task %d", i)})
	}

	page, err := svc.ListTasks(db, userID, ListTasksOptions{Page: 2, Limit: 10})
	require.NoError(t, err)

	assert.Len(t, page.Tasks, 10)
	assert.Equal(t, 2, page.Pagination.CurrentPage)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.Equal(t, int64(25), page.Pagination.TotalTasks)
	assert.True(t, page.Pagination.HasNextPage)
	assert.True(t, page.Pagination.HasPrevPage)

	last, err := svc.ListTasks(db, userID, ListTasksOptions{Page: 3, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, last.Tasks, 5)
	assert.False(t, last.Pagination.HasNextPage)
}

func TestListTasksEmptyResult(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	page, err := svc.ListTasks(db, userID, ListTasksOptions{})
	require.NoError(t, err)

	assert.Empty(t, page.Tasks)
	assert.Equal(t, 0, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNextPage)
	assert.False(t, page.Pagination.HasPrevPage)
}

func TestListTasksLimitCapped(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	page, err := svc.ListTasks(db, userID, ListTasksOptions{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Pagination.Limit)
}

func TestListTasksFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "a", Status: models.StatusTodo, Priority: models.PriorityHigh})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "b", Status: models.StatusDone, Priority: models.PriorityHigh})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "c", Status: models.StatusDone, Priority: models.PriorityLow})

	page, err := svc.ListTasks(db, userID, ListTasksOptions{Status: models.StatusDone})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Pagination.TotalTasks)

	// Filters apply conjunctively.
	page, err = svc.ListTasks(db, userID, ListTasksOptions{Status: models.StatusDone, Priority: models.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "b", page.Tasks[0].Title)

	_, err = svc.ListTasks(db, userID, ListTasksOptions{Status: "bogus"})
	assert.True(t, IsValidationError(err))
}

func TestListTasksSorting(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "banana"})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "apple"})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "cherry"})

	page, err := svc.ListTasks(db, userID, ListTasksOptions{SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 3)
	assert.Equal(t, "apple", page.Tasks[0].Title)
	assert.Equal(t, "cherry", page.Tasks[2].Title)

	_, err = svc.ListTasks(db, userID, ListTasksOptions{SortBy: "password"})
	assert.True(t, IsValidationError(err), "unknown sort keys must be rejected")
}

func TestListTasksDateRange(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	old := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "old"})
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", old.ID).
		Update("created_at", time.Now().AddDate(0, -2, 0)).Error)
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "recent"})

	start := time.Now().AddDate(0, -1, 0)
	page, err := svc.ListTasks(db, userID, ListTasksOptions{StartDate: &start})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "recent", page.Tasks[0].Title)

	end := time.Now().AddDate(0, -1, 0)
	page, err = svc.ListTasks(db, userID, ListTasksOptions{EndDate: &end})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "old", page.Tasks[0].Title)
}

func TestTasksScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	owner := newTestUser(t, db)
	other := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, owner, CreateTaskRequest{Title: "private"})

	_, err := svc.GetTaskByID(db, other, task.ID)
	assert.ErrorIs(t, err, ErrNotFound, "foreign task must look nonexistent")

	_, err = svc.UpdateTask(db, other, task.ID, UpdateTaskRequest{Title: strPtr("stolen")})
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.DeleteTask(db, other, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	page, err := svc.ListTasks(db, other, ListTasksOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Tasks)
}

func TestUpdateTaskPartial(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "original", Description: "desc"})

	updated, err := svc.UpdateTask(db, userID, task.ID, UpdateTaskRequest{Status: strPtr(models.StatusDone)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, updated.Status)
	assert.Equal(t, "original", updated.Title, "untouched fields must survive")
	assert.Equal(t, "desc", updated.Description)

	_, err = svc.UpdateTask(db, userID, task.ID, UpdateTaskRequest{})
	assert.True(t, IsValidationError(err), "empty update must be rejected")

	_, err = svc.UpdateTask(db, userID, task.ID, UpdateTaskRequest{Status: strPtr("bogus")})
	assert.True(t, IsValidationError(err))
}

func TestSoftDeleteLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "doomed"})

	require.NoError(t, svc.DeleteTask(db, userID, task.ID))

	// Deleted tasks leave the active scope entirely.
	page, err := svc.ListTasks(db, userID, ListTasksOptions{})
	require.NoError(t, err)
	assert.Empty(t, page.Tasks)

	_, err = svc.GetTaskByID(db, userID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateTask(db, userID, task.ID, UpdateTaskRequest{Title: strPtr("zombie")})
	assert.ErrorIs(t, err, ErrNotFound)

	// Re-deleting is a miss, not a no-op.
	assert.ErrorIs(t, svc.DeleteTask(db, userID, task.ID), ErrNotFound)

	deleted, err := svc.ListDeletedTasks(db, userID, 1, 10)
	require.NoError(t, err)
	require.Len(t, deleted.Tasks, 1)
	assert.True(t, deleted.Tasks[0].IsDeleted)
	assert.NotNil(t, deleted.Tasks[0].DeletedAt)

	restored, err := svc.RestoreTask(db, userID, task.ID)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
	assert.Nil(t, restored.DeletedAt)

	page, err = svc.ListTasks(db, userID, ListTasksOptions{})
	require.NoError(t, err)
	assert.Len(t, page.Tasks, 1)
}

func TestRestoreRequiresDeletedState(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "active"})

	_, err := svc.RestoreTask(db, userID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound, "restoring an active task must miss")
}

func TestDuplicateTask(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	original := mustCreateTask(t, svc, db, userID, CreateTaskRequest{
		Title:       "Write spec",
		Description: "the long version",
		Status:      models.StatusDone,
		Priority:    models.PriorityHigh,
	})

	duplicate, err := svc.DuplicateTask(db, userID, original.ID)
	require.NoError(t, err)

	assert.Equal(t, "Write spec (Copy)", duplicate.Title)
	assert.Equal(t, original.Description, duplicate.Description)
	assert.Equal(t, models.StatusTodo, duplicate.Status, "status resets to the default")
	assert.Equal(t, models.PriorityHigh, duplicate.Priority)
	assert.NotEqual(t, original.ID, duplicate.ID)

	// Source untouched.
	source, err := svc.GetTaskByID(db, userID, original.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDone, source.Status)
	assert.Equal(t, "Write spec", source.Title)

	_, err = svc.DuplicateTask(db, userID, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBulkUpdateScoping(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	owner := newTestUser(t, db)
	other := newTestUser(t, db)

	a := mustCreateTask(t, svc, db, owner, CreateTaskRequest{Title: "A"})
	b := mustCreateTask(t, svc, db, other, CreateTaskRequest{Title: "B"})
	c := mustCreateTask(t, svc, db, owner, CreateTaskRequest{Title: "C"})

	result, err := svc.BulkUpdateTasks(db, owner, []uuid.UUID{a.ID, b.ID, c.ID},
		UpdateTaskRequest{Status: strPtr(models.StatusDone)})
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.MatchedCount)
	assert.Equal(t, int64(2), result.ModifiedCount, "foreign ids are silently excluded")

	foreign, err := svc.GetTaskByID(db, other, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTodo, foreign.Status, "foreign task must be untouched")

	_, err = svc.BulkUpdateTasks(db, owner, nil, UpdateTaskRequest{Status: strPtr(models.StatusDone)})
	assert.True(t, IsValidationError(err))

	_, err = svc.BulkUpdateTasks(db, owner, []uuid.UUID{a.ID}, UpdateTaskRequest{})
	assert.True(t, IsValidationError(err))
}

func TestBulkDeleteExcludesAlreadyDeleted(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	a := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "A"})
	b := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "B"})
	require.NoError(t, svc.DeleteTask(db, userID, b.ID))

	result, err := svc.BulkDeleteTasks(db, userID, []uuid.UUID{a.ID, b.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.MatchedCount)
	assert.Equal(t, int64(1), result.ModifiedCount)

	deleted, err := svc.ListDeletedTasks(db, userID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, deleted.Tasks, 2)
}

func TestSearchTasks(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "Buy groceries", Description: "milk and eggs"})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "Write report", Description: "quarterly numbers"})
	deleted := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "Buy a car"})
	require.NoError(t, svc.DeleteTask(db, userID, deleted.ID))

	page, err := svc.SearchTasks(db, userID, "buy", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1, "soft-deleted tasks stay out of search results")
	assert.Equal(t, "Buy groceries", page.Tasks[0].Title)

	// Description matches too.
	page, err = svc.SearchTasks(db, userID, "quarterly", 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Write report", page.Tasks[0].Title)

	_, err = svc.SearchTasks(db, userID, "   ", 1, 10)
	assert.True(t, IsValidationError(err))
}

func TestGetTaskStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	for i := 0; i < 3; i++ {
		mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: fmt.Sprintf("todo %d", i)})
	}
	for i := 0; i < 2; i++ {
		mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: fmt.Sprintf("wip %d", i), Status: models.StatusInProgress})
	}
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "finished", Status: models.StatusDone})

	ghost := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "gone", Status: models.StatusDone})
	require.NoError(t, svc.DeleteTask(db, userID, ghost.ID))

	stats, err := svc.GetTaskStats(db, userID)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Todo)
	assert.Equal(t, int64(2), stats.InProgress)
	assert.Equal(t, int64(1), stats.Done)
	assert.Equal(t, int64(6), stats.Total, "soft-deleted tasks are excluded")
}

func TestGetTaskStatsOverdue(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "late", DueDate: &past})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "late but done", Status: models.StatusDone, DueDate: &past})
	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "on track", DueDate: &future})

	stats, err := svc.GetTaskStats(db, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Overdue, "done tasks are never overdue")
}

func TestGetAdvancedTaskStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewTaskService(nil)
	userID := newTestUser(t, db)

	for i := 0; i < 7; i++ {
		mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: fmt.Sprintf("task %d", i)})
	}

	stats, err := svc.GetAdvancedTaskStats(db, userID)
	require.NoError(t, err)

	assert.Equal(t, int64(7), stats.StatusStats.Total)
	require.NotEmpty(t, stats.MonthlyStats)
	assert.Equal(t, int64(7), stats.MonthlyStats[0].Count)
	assert.Len(t, stats.RecentActivity, 5, "recent activity is capped")
}
