package handlers

import (
	"taskify/backend/internal/middleware"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterRoutes wires the API under /api. Literal task routes are registered
// before the :id routes so gin never captures "stats" or "bulk" as an id.
func RegisterRoutes(router *gin.Engine, db *gorm.DB, authService services.AuthService, taskService services.TaskService) {
	authHandler := NewAuthHandler(db, authService)
	taskHandler := NewTaskHandler(db, taskService)

	requireAuth := middleware.Auth(db, authService)

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.GET("/profile", requireAuth, authHandler.GetProfile)

	tasks := api.Group("/tasks", requireAuth)
	tasks.GET("/stats", taskHandler.GetTaskStats)
	tasks.GET("/stats/advanced", taskHandler.GetAdvancedTaskStats)
	tasks.GET("/search", taskHandler.SearchTasks)
	tasks.GET("/date-range", taskHandler.GetTasksByDateRange)
	tasks.GET("/deleted", taskHandler.GetDeletedTasks)
	tasks.PATCH("/bulk", taskHandler.BulkUpdateTasks)
	tasks.DELETE("/bulk", taskHandler.BulkDeleteTasks)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("", taskHandler.GetTasks)
	tasks.GET("/:id", taskHandler.GetTaskByID)
	tasks.PUT("/:id", taskHandler.UpdateTask)
	tasks.DELETE("/:id", taskHandler.DeleteTask)
	tasks.POST("/:id/duplicate", taskHandler.DuplicateTask)
	tasks.PATCH("/:id/restore", taskHandler.RestoreTask)
}
