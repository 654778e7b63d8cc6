package handler

import (
	"context"
	"net/http"
	"strconv"

	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/service"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaskService is the task use-case surface the handlers need.
type TaskService interface {
	List(ctx context.Context, actor *model.User, status string) ([]model.Task, error)
	Get(ctx context.Context, actor *model.User, id uint) (*model.Task, error)
	Create(ctx context.Context, actor *model.User, in service.TaskInput) (*model.Task, error)
	Update(ctx context.Context, actor *model.User, id uint, in service.TaskInput) (*model.Task, error)
	Delete(ctx context.Context, actor *model.User, id uint) error
	UpdateProgress(ctx context.Context, actor *model.User, id uint, progress int) (*model.Task, error)
	Stats(ctx context.Context, actor *model.User) (*service.Stats, error)
}

type TaskHandler struct {
	tasks TaskService
	log   *zap.SugaredLogger
}

func NewTaskHandler(tasks TaskService, log *zap.SugaredLogger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

// TaskRequest is the body of create and update. Omitted fields are left
// unchanged on update; field rules are enforced by the task service so
// every invalid field is reported at once.
type TaskRequest struct {
	Title            *string `json:"title"`
	Description      *string `json:"description"`
	Status           *string `json:"status"`
	Progress         *int    `json:"progress"`
	PlannedStartDate *string `json:"planned_start_date"`
	PlannedEndDate   *string `json:"planned_end_date"`
	Assignee         *string `json:"assignee"`
	CategoryID       *uint   `json:"category_id"`
	Category         *string `json:"category"`
}

func (r TaskRequest) input() service.TaskInput {
	return service.TaskInput{
		Title:            r.Title,
		Description:      r.Description,
		Status:           r.Status,
		Progress:         r.Progress,
		PlannedStartDate: r.PlannedStartDate,
		PlannedEndDate:   r.PlannedEndDate,
		Assignee:         r.Assignee,
		CategoryID:       r.CategoryID,
		Category:         r.Category,
	}
}

type ProgressRequest struct {
	Progress *int `json:"progress" binding:"required"`
}

type TaskEnvelope struct {
	Task TaskResponse `json:"task"`
}

type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// List godoc
// @Summary      List tasks
// @Tags         Tasks
// @Produce      json
// @Param        status  query  string  false  "pending, in-progress, completed or all"
// @Success      200  {object}  TaskListResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context(), middleware.Actor(c), c.Query("status"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TaskListResponse{Tasks: NewTaskResponses(tasks), Count: len(tasks)})
}

// GetByID godoc
// @Summary      Get a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path  int  true  "Task ID"
// @Success      200  {object}  TaskEnvelope
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks/{id} [get]
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	task, err := h.tasks.Get(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TaskEnvelope{Task: NewTaskResponse(task)})
}

// Create godoc
// @Summary      Create a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        task  body  TaskRequest  true  "Task"
// @Success      201  {object}  TaskEnvelope
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	task, err := h.tasks.Create(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, TaskEnvelope{Task: NewTaskResponse(task)})
}

// Update godoc
// @Summary      Update a task
// @Description  Only the fields present in the body change.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path  int          true  "Task ID"
// @Param        task  body  TaskRequest  true  "Fields to change"
// @Success      200  {object}  TaskEnvelope
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	task, err := h.tasks.Update(c.Request.Context(), middleware.Actor(c), id, req.input())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TaskEnvelope{Task: NewTaskResponse(task)})
}

// Delete godoc
// @Summary      Delete a task
// @Tags         Tasks
// @Produce      json
// @Param        id   path  int  true  "Task ID"
// @Success      200  {object}  MessageResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.tasks.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Task deleted"})
}

// UpdateProgress godoc
// @Summary      Set task progress
// @Description  100 completes the task, 1 to 99 marks it in progress.
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Param        id    path  int              true  "Task ID"
// @Param        body  body  ProgressRequest  true  "Progress"
// @Success      200  {object}  TaskEnvelope
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/tasks/{id}/progress [put]
func (h *TaskHandler) UpdateProgress(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, validation.Describe(err))
		return
	}
	task, err := h.tasks.UpdateProgress(c.Request.Context(), middleware.Actor(c), id, *req.Progress)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, TaskEnvelope{Task: NewTaskResponse(task)})
}

// Stats godoc
// @Summary      Task statistics
// @Tags         Tasks
// @Produce      json
// @Success      200  {object}  service.Stats
// @Failure      403  {object}  ErrorResponse
// @Security     BearerAuth
// @Router       /api/stats [get]
func (h *TaskHandler) Stats(c *gin.Context) {
	stats, err := h.tasks.Stats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, "Invalid ID")
		return 0, false
	}
	return uint(id), true
}
