package handlers

import (
	"errors"

	"taskify/backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// All responses share the `{status, message?, data?}` envelope.

func respondSuccess(c *gin.Context, code int, message string, data gin.H) {
	body := gin.H{"status": "success"}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(code, body)
}

func respondError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"status":  "error",
		"message": message,
	})
}

// respondServiceError maps service errors onto the HTTP taxonomy. Anything
// unrecognized is a 500 with a generic message; detail stays in the log.
func respondServiceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		respondError(c, 400, ve.Message)
	case errors.Is(err, services.ErrNotFound):
		respondError(c, 404, "Task not found")
	case errors.Is(err, services.ErrEmailTaken):
		respondError(c, 409, "User with this email already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, 401, "Invalid email or password")
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		respondError(c, 500, "Internal server error")
	}
}
