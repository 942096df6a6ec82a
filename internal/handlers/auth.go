package handlers

import (
	"net/http"

	"taskify/backend/internal/middleware"
	"taskify/backend/internal/models"
	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	db          *gorm.DB
	authService services.AuthService
}

func NewAuthHandler(db *gorm.DB, authService services.AuthService) *AuthHandler {
	return &AuthHandler{db: db, authService: authService}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.authService.Register(h.db, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := h.authService.IssueToken(user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusCreated, "User registered successfully", gin.H{
		"user":  user.Profile(),
		"token": token,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request data: "+err.Error())
		return
	}

	user, err := h.authService.Login(h.db, req.Email, req.Password)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	token, err := h.authService.IssueToken(user.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondSuccess(c, http.StatusOK, "Login successful", gin.H{
		"user":  user.Profile(),
		"token": token,
	})
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	profile, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		respondError(c, http.StatusUnauthorized, "User not authenticated")
		return
	}

	user, ok := profile.(models.PublicProfile)
	if !ok {
		respondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondSuccess(c, http.StatusOK, "", gin.H{"user": user})
}
