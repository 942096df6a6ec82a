package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"taskify/backend/internal/models"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	monthlyBuckets  = 12
	recentLimit     = 5
)

type ListTasksOptions struct {
	Page      int
	Limit     int
	Status    string
	Priority  string
	Search    string
	SortBy    string
	SortOrder string
	StartDate *time.Time
	EndDate   *time.Time
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalTasks  int64 `json:"totalTasks"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
	Limit       int   `json:"limit"`
}

type TaskPage struct {
	Tasks      []models.Task `json:"tasks"`
	Pagination Pagination    `json:"pagination"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// UpdateTaskRequest carries a partial update; nil fields are untouched.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (r *UpdateTaskRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Status == nil &&
		r.Priority == nil && r.DueDate == nil
}

type BulkResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type TaskStats struct {
	Todo       int64 `json:"todo"`
	InProgress int64 `json:"in-progress"`
	Done       int64 `json:"done"`
	Total      int64 `json:"total"`
	Overdue    int64 `json:"overdue"`
}

type MonthlyCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

type RecentTask struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AdvancedTaskStats struct {
	StatusStats    TaskStats      `json:"statusStats"`
	MonthlyStats   []MonthlyCount `json:"monthlyStats"`
	RecentActivity []RecentTask   `json:"recentActivity"`
}

// ReminderScheduler is notified when a task gains a due date so a reminder
// can be queued ahead of it. A nil scheduler disables reminders.
type ReminderScheduler interface {
	ScheduleDueReminder(task *models.Task) error
}

type TaskService interface {
	ListTasks(db *gorm.DB, userID uuid.UUID, opts ListTasksOptions) (*TaskPage, error)
	SearchTasks(db *gorm.DB, userID uuid.UUID, query string, page, limit int) (*TaskPage, error)
	GetTaskByID(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error)
	CreateTask(db *gorm.DB, userID uuid.UUID, req CreateTaskRequest) (*models.Task, error)
	UpdateTask(db *gorm.DB, userID, taskID uuid.UUID, req UpdateTaskRequest) (*models.Task, error)
	DeleteTask(db *gorm.DB, userID, taskID uuid.UUID) error
	RestoreTask(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error)
	DuplicateTask(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error)
	ListDeletedTasks(db *gorm.DB, userID uuid.UUID, page, limit int) (*TaskPage, error)
	BulkUpdateTasks(db *gorm.DB, userID uuid.UUID, taskIDs []uuid.UUID, req UpdateTaskRequest) (*BulkResult, error)
	BulkDeleteTasks(db *gorm.DB, userID uuid.UUID, taskIDs []uuid.UUID) (*BulkResult, error)
	GetTaskStats(db *gorm.DB, userID uuid.UUID) (*TaskStats, error)
	GetAdvancedTaskStats(db *gorm.DB, userID uuid.UUID) (*AdvancedTaskStats, error)
}

type TaskServiceImpl struct {
	reminders ReminderScheduler
}

func NewTaskService(reminders ReminderScheduler) *TaskServiceImpl {
	return &TaskServiceImpl{reminders: reminders}
}

// sortColumns whitelists the API-level sort keys against real columns.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"dueDate":   "due_date",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func buildPagination(page, limit int, total int64) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalTasks:  total,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
		Limit:       limit,
	}
}

// activeScope narrows a query to the caller's non-deleted tasks. Every read
// and mutation in this service goes through it or its deleted-scope twin.
func activeScope(db *gorm.DB, userID uuid.UUID) *gorm.DB {
	return db.Model(&models.Task{}).Where("user_id = ? AND is_deleted = ?", userID, false)
}

func deletedScope(db *gorm.DB, userID uuid.UUID) *gorm.DB {
	return db.Model(&models.Task{}).Where("user_id = ? AND is_deleted = ?", userID, true)
}

// applySearch delegates ranking to the store: websearch full-text matching on
// postgres, case-insensitive substring matching elsewhere (test dialects).
func applySearch(query *gorm.DB, search string) *gorm.DB {
	if query.Dialector.Name() == "postgres" {
		return query.Where(
			"to_tsvector('english', title || ' ' || coalesce(description, '')) @@ websearch_to_tsquery('english', ?)",
			search,
		)
	}
	like := "%" + strings.ToLower(search) + "%"
	return query.Where("lower(title) LIKE ? OR lower(description) LIKE ?", like, like)
}

func (s *TaskServiceImpl) ListTasks(db *gorm.DB, userID uuid.UUID, opts ListTasksOptions) (*TaskPage, error) {
	page, limit := normalizePage(opts.Page, opts.Limit)

	if opts.Status != "" && !models.IsValidStatus(opts.Status) {
		return nil, NewValidationError("invalid status filter")
	}
	if opts.Priority != "" && !models.IsValidPriority(opts.Priority) {
		return nil, NewValidationError("invalid priority filter")
	}

	column, ok := sortColumns[opts.SortBy]
	if opts.SortBy == "" {
		column = "created_at"
	} else if !ok {
		return nil, NewValidationError("invalid sortBy field")
	}

	direction := "DESC"
	switch opts.SortOrder {
	case "", "desc":
	case "asc":
		direction = "ASC"
	default:
		return nil, NewValidationError("sortOrder must be asc or desc")
	}

	query := activeScope(db, userID)
	if opts.Status != "" {
		query = query.Where("status = ?", opts.Status)
	}
	if opts.Priority != "" {
		query = query.Where("priority = ?", opts.Priority)
	}
	if opts.Search != "" {
		query = applySearch(query, opts.Search)
	}
	if opts.StartDate != nil {
		query = query.Where("created_at >= ?", *opts.StartDate)
	}
	if opts.EndDate != nil {
		query = query.Where("created_at <= ?", *opts.EndDate)
	}

	// Count and page fetch share the one filter.
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	err := query.
		Order(fmt.Sprintf("%s %s", column, direction)).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return &TaskPage{Tasks: tasks, Pagination: buildPagination(page, limit, total)}, nil
}

func (s *TaskServiceImpl) SearchTasks(db *gorm.DB, userID uuid.UUID, search string, page, limit int) (*TaskPage, error) {
	if strings.TrimSpace(search) == "" {
		return nil, NewValidationError("search query is required")
	}
	page, limit = normalizePage(page, limit)

	query := applySearch(activeScope(db, userID), search)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	ordered := query.Session(&gorm.Session{})
	if db.Dialector.Name() == "postgres" {
		ordered = ordered.Clauses(clause.OrderBy{Expression: clause.Expr{
			SQL:  "ts_rank(to_tsvector('english', title || ' ' || coalesce(description, '')), websearch_to_tsquery('english', ?)) DESC, created_at DESC",
			Vars: []interface{}{search},
		}})
	} else {
		ordered = ordered.Order("created_at DESC")
	}

	tasks := []models.Task{}
	err := ordered.
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return &TaskPage{Tasks: tasks, Pagination: buildPagination(page, limit, total)}, nil
}

func (s *TaskServiceImpl) GetTaskByID(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := activeScope(db, userID).Where("id = ?", taskID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", NewValidationError("title is required")
	}
	if len(trimmed) > models.MaxTitleLength {
		return "", NewValidationError(fmt.Sprintf("title must be at most %d characters", models.MaxTitleLength))
	}
	return trimmed, nil
}

func validateDescription(description string) (string, error) {
	trimmed := strings.TrimSpace(description)
	if len(trimmed) > models.MaxDescriptionLength {
		return "", NewValidationError(fmt.Sprintf("description must be at most %d characters", models.MaxDescriptionLength))
	}
	return trimmed, nil
}

func (s *TaskServiceImpl) CreateTask(db *gorm.DB, userID uuid.UUID, req CreateTaskRequest) (*models.Task, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return nil, err
	}
	description, err := validateDescription(req.Description)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.StatusTodo
	} else if !models.IsValidStatus(status) {
		return nil, NewValidationError("status must be one of: todo, in-progress, done")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	} else if !models.IsValidPriority(priority) {
		return nil, NewValidationError("priority must be one of: low, medium, high")
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
	}

	if err := db.Create(&task).Error; err != nil {
		return nil, err
	}

	s.scheduleReminder(&task)

	return &task, nil
}

// buildUpdates validates a partial update and turns it into a column map.
func buildUpdates(req UpdateTaskRequest) (map[string]interface{}, error) {
	if req.IsEmpty() {
		return nil, NewValidationError("at least one field is required")
	}

	updates := map[string]interface{}{}

	if req.Title != nil {
		title, err := validateTitle(*req.Title)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if req.Description != nil {
		description, err := validateDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if req.Status != nil {
		if !models.IsValidStatus(*req.Status) {
			return nil, NewValidationError("status must be one of: todo, in-progress, done")
		}
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		if !models.IsValidPriority(*req.Priority) {
			return nil, NewValidationError("priority must be one of: low, medium, high")
		}
		updates["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	return updates, nil
}

func (s *TaskServiceImpl) UpdateTask(db *gorm.DB, userID, taskID uuid.UUID, req UpdateTaskRequest) (*models.Task, error) {
	updates, err := buildUpdates(req)
	if err != nil {
		return nil, err
	}

	result := activeScope(db, userID).Where("id = ?", taskID).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	task, err := s.GetTaskByID(db, userID, taskID)
	if err != nil {
		return nil, err
	}

	if req.DueDate != nil {
		s.scheduleReminder(task)
	}

	return task, nil
}

func (s *TaskServiceImpl) DeleteTask(db *gorm.DB, userID, taskID uuid.UUID) error {
	result := activeScope(db, userID).Where("id = ?", taskID).Updates(map[string]interface{}{
		"is_deleted": true,
		"deleted_at": time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TaskServiceImpl) RestoreTask(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	result := deletedScope(db, userID).Where("id = ?", taskID).Updates(map[string]interface{}{
		"is_deleted": false,
		"deleted_at": nil,
	})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.GetTaskByID(db, userID, taskID)
}

func (s *TaskServiceImpl) DuplicateTask(db *gorm.DB, userID, taskID uuid.UUID) (*models.Task, error) {
	original, err := s.GetTaskByID(db, userID, taskID)
	if err != nil {
		return nil, err
	}

	title := original.Title + " (Copy)"
	if len(title) > models.MaxTitleLength {
		title = title[:models.MaxTitleLength]
	}

	duplicate := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      userID,
		Title:       title,
		Description: original.Description,
		Status:      models.StatusTodo,
		Priority:    original.Priority,
		DueDate:     original.DueDate,
	}

	if err := db.Create(&duplicate).Error; err != nil {
		return nil, err
	}

	return &duplicate, nil
}

func (s *TaskServiceImpl) ListDeletedTasks(db *gorm.DB, userID uuid.UUID, page, limit int) (*TaskPage, error) {
	page, limit = normalizePage(page, limit)

	query := deletedScope(db, userID)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, err
	}

	tasks := []models.Task{}
	err := query.
		Order("deleted_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}

	return &TaskPage{Tasks: tasks, Pagination: buildPagination(page, limit, total)}, nil
}

func (s *TaskServiceImpl) BulkUpdateTasks(db *gorm.DB, userID uuid.UUID, taskIDs []uuid.UUID, req UpdateTaskRequest) (*BulkResult, error) {
	if len(taskIDs) == 0 {
		return nil, NewValidationError("taskIds array is required")
	}

	updates, err := buildUpdates(req)
	if err != nil {
		return nil, err
	}

	// Ids outside the caller's active scope are silently excluded; the counts
	// below are the only signal of the narrowing.
	scope := activeScope(db, userID).Where("id IN ?", taskIDs)

	var matched int64
	if err := scope.Session(&gorm.Session{}).Count(&matched).Error; err != nil {
		return nil, err
	}

	result := scope.Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	return &BulkResult{MatchedCount: matched, ModifiedCount: result.RowsAffected}, nil
}

func (s *TaskServiceImpl) BulkDeleteTasks(db *gorm.DB, userID uuid.UUID, taskIDs []uuid.UUID) (*BulkResult, error) {
	if len(taskIDs) == 0 {
		return nil, NewValidationError("taskIds array is required")
	}

	scope := activeScope(db, userID).Where("id IN ?", taskIDs)

	var matched int64
	if err := scope.Session(&gorm.Session{}).Count(&matched).Error; err != nil {
		return nil, err
	}

	result := scope.Updates(map[string]interface{}{
		"is_deleted": true,
		"deleted_at": time.Now(),
	})
	if result.Error != nil {
		return nil, result.Error
	}

	return &BulkResult{MatchedCount: matched, ModifiedCount: result.RowsAffected}, nil
}

func (s *TaskServiceImpl) GetTaskStats(db *gorm.DB, userID uuid.UUID) (*TaskStats, error) {
	type statusCount struct {
		Status string
		Count  int64
	}

	var counts []statusCount
	err := activeScope(db, userID).
		Select("status, count(*) as count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	stats := &TaskStats{}
	for _, c := range counts {
		switch c.Status {
		case models.StatusTodo:
			stats.Todo = c.Count
		case models.StatusInProgress:
			stats.InProgress = c.Count
		case models.StatusDone:
			stats.Done = c.Count
		}
		stats.Total += c.Count
	}

	err = activeScope(db, userID).
		Where("due_date IS NOT NULL AND due_date < ? AND status != ?", time.Now(), models.StatusDone).
		Count(&stats.Overdue).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func (s *TaskServiceImpl) GetAdvancedTaskStats(db *gorm.DB, userID uuid.UUID) (*AdvancedTaskStats, error) {
	statusStats, err := s.GetTaskStats(db, userID)
	if err != nil {
		return nil, err
	}

	yearExpr := "CAST(strftime('%Y', created_at) AS INTEGER)"
	monthExpr := "CAST(strftime('%m', created_at) AS INTEGER)"
	if db.Dialector.Name() == "postgres" {
		yearExpr = "EXTRACT(YEAR FROM created_at)::int"
		monthExpr = "EXTRACT(MONTH FROM created_at)::int"
	}

	monthly := []MonthlyCount{}
	err = activeScope(db, userID).
		Select(fmt.Sprintf("%s as year, %s as month, count(*) as count", yearExpr, monthExpr)).
		Group("year, month").
		Order("year DESC, month DESC").
		Limit(monthlyBuckets).
		Scan(&monthly).Error
	if err != nil {
		return nil, err
	}

	recent := []RecentTask{}
	err = activeScope(db, userID).
		Select("id, title, status, updated_at").
		Order("updated_at DESC").
		Limit(recentLimit).
		Scan(&recent).Error
	if err != nil {
		return nil, err
	}

	return &AdvancedTaskStats{
		StatusStats:    *statusStats,
		MonthlyStats:   monthly,
		RecentActivity: recent,
	}, nil
}

func (s *TaskServiceImpl) scheduleReminder(task *models.Task) {
	if s.reminders == nil || task.DueDate == nil {
		return
	}
	// Reminder delivery is best-effort; a queue failure never fails the request.
	_ = s.reminders.ScheduleDueReminder(task)
}
