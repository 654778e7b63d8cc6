package handler

import (
	"errors"
	"net/http"

	"taskprogress/internal/permission"
	"taskprogress/internal/repository"
	"taskprogress/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps a service error onto its HTTP status.
func StatusFor(err error) int {
	var denied *permission.DeniedError
	switch {
	case service.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &denied), errors.Is(err, service.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError writes err as JSON. Unexpected errors are logged and
// replaced by a generic message.
func respondError(c *gin.Context, log *zap.SugaredLogger, err error) {
	status := StatusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusNotFound:
		msg = notFoundMessage(err)
	case http.StatusInternalServerError:
		log.Errorw("request failed", "path", c.FullPath(), "error", err)
		msg = "An unexpected error occurred"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg})
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, repository.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, repository.ErrCategoryNotFound):
		return "Category not found"
	}
	return "Resource not found"
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}
