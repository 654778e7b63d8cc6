package handler

import (
	"context"
	"net/http"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*model.User, string, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	TokenTTL() time.Duration
}

type AuthHandler struct {
	auth         AuthService
	cookieSecure bool
	log          *zap.SugaredLogger
}

func NewAuthHandler(auth AuthService, cookieSecure bool, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{auth: auth, cookieSecure: cookieSecure, log: log}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// Login godoc
// @Summary      Log in
// @Description  Returns a bearer token and also sets the session cookie.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  AuthResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	middleware.SetSessionCookie(c, token, int(h.auth.TokenTTL().Seconds()), h.cookieSecure)
	c.JSON(http.StatusOK, AuthResponse{Token: token, User: NewUserResponse(user)})
}

// Logout godoc
// @Summary      Log out
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  MessageResponse
// @Security     BearerAuth
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), middleware.Claims(c)); err != nil {
		respondError(c, h.log, err)
		return
	}
	middleware.ClearSessionCookie(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}
