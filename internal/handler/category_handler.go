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

type CategoryService interface {
	List(ctx context.Context, actor *model.User) ([]service.CategoryWithCount, error)
	ListActive(ctx context.Context, actor *model.User) ([]service.CategoryWithCount, error)
	Get(ctx context.Context, actor *model.User, id uint) (*service.CategoryWithCount, error)
	Create(ctx context.Context, actor *model.User, in service.CategoryInput) (*service.CategoryWithCount, error)
	Update(ctx context.Context, actor *model.User, id uint, in service.CategoryInput) (*service.CategoryWithCount, error)
	Delete(ctx context.Context, actor *model.User, id uint) (*model.TaskCategory, error)
}

type CategoryHandler struct {
	categories CategoryService
	log        *zap.SugaredLogger
}

func NewCategoryHandler(categories CategoryService, log *zap.SugaredLogger) *CategoryHandler {
	return &CategoryHandler{categories: categories, log: log}
}

type CategoryRequest struct {
	Name        *string `json:"name"`
	DisplayName *string `json:"display_name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	IsActive    *bool   `json:"is_active"`
	SortOrder   *int    `json:"sort_order"`
}

func (r CategoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Description: r.Description,
		Color:       r.Color,
		Active:      r.IsActive,
		SortOrder:   r.SortOrder,
	}
}

type CategoryEnvelope struct {
	Category CategoryResponse `json:"category"`
}

type CategoryListResponse struct {
	Categories []CategoryResponse `json:"categories"`
}

// ListActive godoc
// @Summary      Active categories
// @Tags         Categories
// @Produce      json
// @Success      200  {object}  CategoryListResponse
// @Security     BearerAuth
// @Router       /api/categories [get]
func (h *CategoryHandler) ListActive(c *gin.Context) {
	categories, err := h.categories.ListActive(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, CategoryListResponse{Categories: NewCategoryResponses(categories)})
}

// List godoc
// @Summary      All categories
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  CategoryListResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, CategoryListResponse{Categories: NewCategoryResponses(categories)})
}

// GetByID godoc
// @Summary      Get a category
// @Tags         Admin
// @Produce      json
// @Param        id   path  int  true  "Category ID"
// @Success      200  {object}  CategoryEnvelope
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/categories/{id} [get]
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	category, err := h.categories.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, CategoryEnvelope{Category: NewCategoryResponse(category)})
}

// Create godoc
// @Summary      Create a category
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        category  body  CategoryRequest  true  "Category"
// @Success      201  {object}  CategoryEnvelope
// @Failure      400  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	category, err := h.categories.Create(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, CategoryEnvelope{Category: NewCategoryResponse(category)})
}

// Update godoc
// @Summary      Update a category
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id        path  int              true  "Category ID"
// @Param        category  body  CategoryRequest  true  "Fields to change"
// @Success      200  {object}  CategoryEnvelope
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	category, err := h.categories.Update(c.Request.Context(), middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, CategoryEnvelope{Category: NewCategoryResponse(category)})
}

// Delete godoc
// @Summary      Delete a category
// @Description  Refused while tasks still use the category.
// @Tags         Admin
// @Produce      json
// @Param        id   path  int  true  "Category ID"
// @Success      200  {object}  MessageResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/admin/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if _, err := h.categories.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted"})
}
