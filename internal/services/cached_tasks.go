package services

import (
	"fmt"
	"time"

	"taskify/backend/internal/cache"
	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

const (
	taskCacheTTL  = 30 * time.Minute
	statsCacheTTL = 5 * time.Minute
)

// CachedTaskService is a cache-aside layer over a TaskService. Single-task
// reads and stats are cached per user; every mutation drops the owner's keys.
// Cache errors always fall through to the store.
type CachedTaskService struct {
	inner TaskService
	cache *cache.RedisCache
}

func NewCachedTaskService(inner TaskService, cacheInstance *cache.RedisCache) *CachedTaskService {
	return &CachedTaskService{inner: inner, cache: cacheInstance}
}

func taskKey(taskID uuid.UUID) string {
	return fmt.Sprintf("task:%s", taskID)
}

func statsKey(userID uuid.UUID) string {
	return fmt.Sprintf("stats:%s", userID)
}

func (s *CachedTaskService) invalidate(userID uuid.UUID, taskIDs ...uuid.UUID) {
	keys := []string{statsKey(userID)}
	for _, id := range taskIDs {
		keys = append(keys, taskKey(id))
	}
	_ = s.cache.Delete(keys...)
}

func (s *CachedTaskService) ListTasks(db *gorm.DB, userID uuid.UUID, opts ListTasksOptions) (*TaskPage, error) {
	return s.inner.ListTasks(db, userID, opts)
}

func (s *CachedTaskService) SearchTasks(db *gorm.DB, userID uuid.UUID, query string, page, limit int) (*TaskPage, error) {
	return s.inner.SearchTasks(db, userID, query, page, limit)
}

func (s *CachedTaskService) GetTaskByID(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	var cached models.Task
	if err := s.cache.Get(taskKey(taskID), &cached); err == nil {
		// Ownership still applies to cached entries.
		if cached.UserID == userID && !cached.IsDeleted {
			return &cached, nil
		}
		return nil, ErrNotFound
	}

	task, err := s.inner.GetTaskByID(db, userID, taskID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(taskKey(taskID), task, taskCacheTTL)
	return task, nil
}

func (s *CachedTaskService) CreateTask(db *gorm.DB, userID uuid.UUID, req CreateTaskRequest) (*models.Task, error) {
	task, err := s.inner.CreateTask(db, userID, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID)
	return task, nil
}

func (s *CachedTaskService) UpdateTask(db *gorm.DB, userID, taskID uuid.UUID, req UpdateTaskRequest) (*models.Task, error) {
	task, err := s.inner.UpdateTask(db, userID, taskID, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID, taskID)
	return task, nil
}

func (s *CachedTaskService) DeleteTask(db *gorm.DB, userID, taskID uuid.UUID) error {
	if err := s.inner.DeleteTask(db, userID, taskID); err != nil {
		return err
	}
	s.invalidate(userID, taskID)
	return nil
}

func (s *CachedTaskService) RestoreTask(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.inner.RestoreTask(db, userID, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID, taskID)
	return task, nil
}

func (s *CachedTaskService) DuplicateTask(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.inner.DuplicateTask(db, userID, taskID)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID)
	return task, nil
}

func (s *CachedTaskService) ListDeletedTasks(db *gorm.DB, userID uuid.UUID, page, limit int) (*TaskPage, error) {
	return s.inner.ListDeletedTasks(db, userID, page, limit)
}

func (s *CachedTaskService) BulkUpdateTasks(db *gorm.DB, userID uuid.UUID, taskIDs []uuid.UUID, req UpdateTaskRequest) (*BulkResult, error) {
	result, err := s.inner.BulkUpdateTasks(db, userID, taskIDs, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID, taskIDs...)
	return result, nil
}

func (s *CachedTaskService) BulkDeleteTasks(db *gorm.DB, userID uuid.UUID, taskIDs []uuid.UUID) (*BulkResult, error) {
	result, err := s.inner.BulkDeleteTasks(db, userID, taskIDs)
	if err != nil {
		return nil, err
	}
	s.invalidate(userID, taskIDs...)
	return result, nil
}

func (s *CachedTaskService) GetTaskStats(db *gorm.DB, userID uuid.UUID) (*TaskStats, error) {
	var cached TaskStats
	if err := s.cache.Get(statsKey(userID), &cached); err == nil {
		return &cached, nil
	}

	stats, err := s.inner.GetTaskStats(db, userID)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(statsKey(userID), stats, statsCacheTTL)
	return stats, nil
}

func (s *CachedTaskService) GetAdvancedTaskStats(db *gorm.DB, userID uuid.UUID) (*AdvancedTaskStats, error) {
	return s.inner.GetAdvancedTaskStats(db, userID)
}
