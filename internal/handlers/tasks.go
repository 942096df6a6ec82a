package handlers

import (
	"net/http"
	"strconv"
	"time"

	"taskify/backend/internal/middleware"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return uuid.Nil, false
	}
	return userID, true
}

func taskIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if value, err := strconv.Atoi(c.DefaultQuery(key, "")); err == nil {
		return value
	}
	return fallback
}

// parseDate accepts RFC3339 timestamps and plain dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func (h *TaskHandler) GetTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	opts := services.ListTasksOptions{
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", services.DefaultPageSize),
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	if raw := c.Query("startDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid startDate")
			return
		}
		opts.StartDate = &t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "Invalid endDate")
			return
		}
		opts.EndDate = &t
	}

	page, err := h.taskService.ListTasks(h.db, userID, opts)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{
		"tasks":      page.Tasks,
		"pagination": page.Pagination,
	})
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.GetTaskByID(h.db, userID, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{"task": task})
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	task, err := h.taskService.CreateTask(h.db, userID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Task created successfully", gin.H{"task": task})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req services.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	task, err := h.taskService.UpdateTask(h.db, userID, taskID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Task updated successfully", gin.H{"task": task})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(h.db, userID, taskID); err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Task deleted successfully", nil)
}

func (h *TaskHandler) SearchTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	query := c.Query("q")
	if query == "" {
		respondError(c, http.StatusBadRequest, "Search query is required")
		return
	}

	page, err := h.taskService.SearchTasks(h.db, userID, query,
		queryInt(c, "page", 1), queryInt(c, "limit", services.DefaultPageSize))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{
		"tasks":      page.Tasks,
		"query":      query,
		"pagination": page.Pagination,
	})
}

func (h *TaskHandler) GetTaskStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.taskService.GetTaskStats(h.db, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{"stats": stats})
}

func (h *TaskHandler) GetAdvancedTaskStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := h.taskService.GetAdvancedTaskStats(h.db, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{"stats": stats})
}

func (h *TaskHandler) GetTasksByDateRange(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	startRaw, endRaw := c.Query("startDate"), c.Query("endDate")
	if startRaw == "" || endRaw == "" {
		respondError(c, http.StatusBadRequest, "Start date and end date are required")
		return
	}

	start, err := parseDate(startRaw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid startDate")
		return
	}
	end, err := parseDate(endRaw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Invalid endDate")
		return
	}
	if end.Before(start) {
		respondError(c, http.StatusBadRequest, "endDate must not be before startDate")
		return
	}

	page, err := h.taskService.ListTasks(h.db, userID, services.ListTasksOptions{
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", services.DefaultPageSize),
		StartDate: &start,
		EndDate:   &end,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{
		"tasks":      page.Tasks,
		"dateRange":  gin.H{"startDate": start, "endDate": end},
		"pagination": page.Pagination,
	})
}

type bulkUpdateRequest struct {
	TaskIDs    []string                   `json:"taskIds" binding:"required,min=1"`
	UpdateData services.UpdateTaskRequest `json:"updateData"`
}

type bulkDeleteRequest struct {
	TaskIDs []string `json:"taskIds" binding:"required,min=1"`
}

// parseTaskIDs drops malformed ids; they can never match a scoped row, which
// keeps them indistinguishable from ids the caller does not own.
func parseTaskIDs(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		if id, err := uuid.FromString(value); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *TaskHandler) BulkUpdateTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Task IDs array is required")
		return
	}
	if req.UpdateData.IsEmpty() {
		respondError(c, http.StatusBadRequest, "Update data is required")
		return
	}

	result, err := h.taskService.BulkUpdateTasks(h.db, userID, parseTaskIDs(req.TaskIDs), req.UpdateData)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK,
		strconv.FormatInt(result.ModifiedCount, 10)+" tasks updated successfully",
		gin.H{
			"matchedCount":  result.MatchedCount,
			"modifiedCount": result.ModifiedCount,
		})
}

func (h *TaskHandler) BulkDeleteTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Task IDs array is required")
		return
	}

	result, err := h.taskService.BulkDeleteTasks(h.db, userID, parseTaskIDs(req.TaskIDs))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK,
		strconv.FormatInt(result.ModifiedCount, 10)+" tasks deleted successfully",
		gin.H{"deletedCount": result.ModifiedCount})
}

func (h *TaskHandler) DuplicateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.DuplicateTask(h.db, userID, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "Task duplicated successfully", gin.H{"task": task})
}

func (h *TaskHandler) RestoreTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.taskService.RestoreTask(h.db, userID, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Task restored successfully", gin.H{"task": task})
}

func (h *TaskHandler) GetDeletedTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, err := h.taskService.ListDeletedTasks(h.db, userID,
		queryInt(c, "page", 1), queryInt(c, "limit", services.DefaultPageSize))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{
		"tasks":      page.Tasks,
		"pagination": page.Pagination,
	})
}
