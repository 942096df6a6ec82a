package models

import (
	"time"

	"github.com/gofrs/uuid"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
)

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_tasks_user_status;index:idx_tasks_user_deleted;index:idx_tasks_user_created"`
	Title       string     `json:"title" gorm:"size:200;not null"`
	Description string     `json:"description" gorm:"size:1000"`
	Status      string     `json:"status" gorm:"size:20;not null;default:'todo';index:idx_tasks_user_status"`
	Priority    string     `json:"priority" gorm:"size:20;not null;default:'medium'"`
	DueDate     *time.Time `json:"due_date"`
	IsDeleted   bool       `json:"is_deleted" gorm:"not null;default:false;index:idx_tasks_user_deleted"`
	DeletedAt   *time.Time `json:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" gorm:"index:idx_tasks_user_created"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func IsValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
