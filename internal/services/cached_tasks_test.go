package services

import (
	"testing"

	"taskify/backend/internal/cache"
	"taskify/backend/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *cache.RedisCache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return cache.NewRedisCacheFromClient(client)
}

func TestCachedGetTaskByID(t *testing.T) {
	db := newTestDB(t)
	svc := NewCachedTaskService(NewTaskService(nil), newTestCache(t))
	userID := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "cache me"})

	// First read populates the cache, second read is served from it.
	first, err := svc.GetTaskByID(db, userID, task.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("title", "changed behind the cache").Error)

	second, err := svc.GetTaskByID(db, userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Title, second.Title, "second read should hit the cache")
}

func TestCachedGetTaskByIDOwnership(t *testing.T) {
	db := newTestDB(t)
	svc := NewCachedTaskService(NewTaskService(nil), newTestCache(t))
	owner := newTestUser(t, db)
	other := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, owner, CreateTaskRequest{Title: "private"})

	// Warm the cache as the owner, then probe as someone else.
	_, err := svc.GetTaskByID(db, owner, task.ID)
	require.NoError(t, err)

	_, err = svc.GetTaskByID(db, other, task.ID)
	assert.ErrorIs(t, err, ErrNotFound, "cached entries still enforce ownership")
}

func TestCachedStatsInvalidatedOnMutation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCachedTaskService(NewTaskService(nil), newTestCache(t))
	userID := newTestUser(t, db)

	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "one"})

	stats, err := svc.GetTaskStats(db, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)

	mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "two"})

	stats, err = svc.GetTaskStats(db, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total, "creation must invalidate cached stats")
}

func TestCachedDeleteInvalidatesTask(t *testing.T) {
	db := newTestDB(t)
	svc := NewCachedTaskService(NewTaskService(nil), newTestCache(t))
	userID := newTestUser(t, db)

	task := mustCreateTask(t, svc, db, userID, CreateTaskRequest{Title: "short-lived"})

	_, err := svc.GetTaskByID(db, userID, task.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(db, userID, task.ID))

	_, err = svc.GetTaskByID(db, userID, task.ID)
	assert.ErrorIs(t, err, ErrNotFound, "deletion must not leave a cached copy behind")
}
