package handler

import (
	"context"
	"net/http"

	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/service"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserService interface {
	List(ctx context.Context, actor *model.User) ([]model.User, error)
	Get(ctx context.Context, actor *model.User, id uint) (*model.User, error)
	Create(ctx context.Context, actor *model.User, in service.UserInput) (*model.User, error)
	Update(ctx context.Context, actor *model.User, id uint, in service.UserInput) (*model.User, error)
	ResetPassword(ctx context.Context, actor *model.User, id uint, password string) (*model.User, error)
	Delete(ctx context.Context, actor *model.User, id uint) (*model.User, error)
}

type UserHandler struct {
	users UserService
	log   *zap.SugaredLogger
}

func NewUserHandler(users UserService, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

type UserRequest struct {
	Username *string `json:"username"`
	FullName *string `json:"full_name"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func (r UserRequest) input() service.UserInput {
	return service.UserInput{
		Username: r.Username,
		FullName: r.FullName,
		Password: r.Password,
		Role:     r.Role,
		Active:   r.IsActive,
	}
}

type PasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

type UserEnvelope struct {
	User UserResponse `json:"user"`
}

type UserListResponse struct {
	Users []UserResponse `json:"users"`
}

// List godoc
// @Summary      List users
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  UserListResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]UserResponse, len(users))
	for i := range users {
		out[i] = NewUserResponse(&users[i])
	}
	c.JSON(http.StatusOK, UserListResponse{Users: out})
}

// GetByID godoc
// @Summary      Get a user
// @Tags         Admin
// @Produce      json
// @Param        id   path  int  true  "User ID"
// @Success      200  {object}  UserEnvelope
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users/{id} [get]
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, UserEnvelope{User: NewUserResponse(user)})
}

// Create godoc
// @Summary      Create a user
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        user  body  UserRequest  true  "User"
// @Success      201  {object}  UserEnvelope
// @Failure      400  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	user, err := h.users.Create(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, UserEnvelope{User: NewUserResponse(user)})
}

// Update godoc
// @Summary      Update a user
// @Description  Passwords are changed through the password endpoint.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path  int          true  "User ID"
// @Param        user  body  UserRequest  true  "Fields to change"
// @Success      200  {object}  UserEnvelope
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	user, err := h.users.Update(c.Request.Context(), middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, UserEnvelope{User: NewUserResponse(user)})
}

// ResetPassword godoc
// @Summary      Reset a user's password
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id    path  int              true  "User ID"
// @Param        body  body  PasswordRequest  true  "New password"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users/{id}/password [put]
func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req PasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	if _, err := h.users.ResetPassword(c.Request.Context(), middleware.Actor(c), id, req.Password); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password updated"})
}

// Delete godoc
// @Summary      Delete a user
// @Description  Tasks created by the user are kept and lose their creator.
// @Tags         Admin
// @Produce      json
// @Param        id   path  int  true  "User ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.users.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted"})
}
