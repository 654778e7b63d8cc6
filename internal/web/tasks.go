package web

import (
	"errors"
	"net/http"
	"strconv"

	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/permission"
	"taskprogress/internal/service"
	"taskprogress/internal/session"
	"taskprogress/internal/validation"

	"github.com/gin-gonic/gin"
)

const (
	tasksPath   = "/tasks"
	recentTasks = 10
)

type taskForm struct {
	Title            string `form:"title" binding:"required,max=200"`
	Description      string `form:"description" binding:"max=1000"`
	CategoryID       uint   `form:"category_id"`
	Assignee         string `form:"assignee" binding:"max=100"`
	PlannedStartDate string `form:"planned_start_date" binding:"omitempty,date_ymd"`
	PlannedEndDate   string `form:"planned_end_date" binding:"omitempty,date_ymd"`
	Status           string `form:"status" binding:"required,task_status"`
	Progress         int    `form:"progress" binding:"min=0,max=100"`
}

func taskFormFrom(t *model.Task) taskForm {
	f := taskForm{
		Title:       t.Title,
		Description: t.Description,
		Assignee:    t.Assignee,
		Status:      string(t.Status),
		Progress:    t.Progress,
	}
	if t.CategoryID != nil {
		f.CategoryID = *t.CategoryID
	}
	if t.PlannedStartDate != nil {
		f.PlannedStartDate = t.PlannedStartDate.Format(validation.DateLayout)
	}
	if t.PlannedEndDate != nil {
		f.PlannedEndDate = t.PlannedEndDate.Format(validation.DateLayout)
	}
	return f
}

// input sends every field, so blank dates clear the stored ones.
func (f *taskForm) input() service.TaskInput {
	in := service.TaskInput{
		Title:            &f.Title,
		Description:      &f.Description,
		Status:           &f.Status,
		Progress:         &f.Progress,
		PlannedStartDate: &f.PlannedStartDate,
		PlannedEndDate:   &f.PlannedEndDate,
		Assignee:         &f.Assignee,
	}
	if f.CategoryID != 0 {
		in.CategoryID = &f.CategoryID
	}
	return in
}

// Dashboard shows the statistics and the most recent tasks. Administrators
// have no task view and land on user management instead.
func (h *Handler) Dashboard(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor.Role == model.RoleAdmin {
		h.redirect(c, middleware.HomeFor(actor))
		return
	}

	ctx := c.Request.Context()
	stats, err := h.svc.Tasks.Stats(ctx, actor)
	if err != nil {
		h.internal(c, err)
		return
	}
	tasks, err := h.svc.Tasks.List(ctx, actor, "")
	if err != nil {
		h.internal(c, err)
		return
	}
	if len(tasks) > recentTasks {
		tasks = tasks[:recentTasks]
	}
	h.render(c, http.StatusOK, "index.html", gin.H{"Title": "Dashboard", "Stats": stats, "Tasks": tasks})
}

func (h *Handler) Tasks(c *gin.Context) {
	filter := c.DefaultQuery("status", "all")
	tasks, err := h.svc.Tasks.List(c.Request.Context(), middleware.Actor(c), filter)
	if service.IsValidation(err) {
		session.SetFlash(c, "warning", err.Error())
		h.redirect(c, tasksPath)
		return
	}
	if err != nil {
		h.fail(c, err, "/")
		return
	}
	h.render(c, http.StatusOK, "tasks.html", gin.H{"Title": "Tasks", "Tasks": tasks, "Filter": filter})
}

func (h *Handler) AddTaskPage(c *gin.Context) {
	actor := middleware.Actor(c)
	if err := permission.Evaluate(actor, permission.CreateTask, nil).Err(); err != nil {
		h.deny(c, err)
		return
	}
	h.renderTaskForm(c, http.StatusOK, nil, taskForm{Status: string(model.StatusPending)}, "")
}

func (h *Handler) AddTask(c *gin.Context) {
	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderTaskForm(c, http.StatusBadRequest, nil, form, validation.Describe(err))
		return
	}
	_, err := h.svc.Tasks.Create(c.Request.Context(), middleware.Actor(c), form.input())
	switch {
	case err == nil:
		session.SetFlash(c, "success", "Task created")
		h.redirect(c, tasksPath)
	case service.IsValidation(err):
		h.renderTaskForm(c, http.StatusBadRequest, nil, form, err.Error())
	case isDenied(err):
		h.deny(c, err)
	default:
		h.fail(c, err, tasksPath)
	}
}

func (h *Handler) EditTaskPage(c *gin.Context) {
	task, ok := h.editableTask(c)
	if !ok {
		return
	}
	h.renderTaskForm(c, http.StatusOK, task, taskFormFrom(task), "")
}

func (h *Handler) EditTask(c *gin.Context) {
	task, ok := h.editableTask(c)
	if !ok {
		return
	}

	var form taskForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderTaskForm(c, http.StatusBadRequest, task, form, validation.Describe(err))
		return
	}

	_, err := h.svc.Tasks.Update(c.Request.Context(), middleware.Actor(c), task.ID, form.input())
	switch {
	case err == nil:
		session.SetFlash(c, "success", "Task updated")
		h.redirect(c, tasksPath)
	case service.IsValidation(err):
		h.renderTaskForm(c, http.StatusBadRequest, task, form, err.Error())
	case isDenied(err):
		h.deny(c, err)
	default:
		h.fail(c, err, tasksPath)
	}
}

// editableTask loads the task named in the path and checks that the actor
// may edit it. It writes the response itself when ok is false.
func (h *Handler) editableTask(c *gin.Context) (*model.Task, bool) {
	id, ok := parseID(c)
	if !ok {
		h.NotFound(c)
		return nil, false
	}
	actor := middleware.Actor(c)
	task, err := h.svc.Tasks.Get(c.Request.Context(), actor, id)
	if err != nil {
		if isDenied(err) {
			h.deny(c, err)
		} else {
			h.fail(c, err, tasksPath)
		}
		return nil, false
	}
	if err := permission.Evaluate(actor, permission.EditTask, task).Err(); err != nil {
		h.deny(c, err)
		return nil, false
	}
	return task, true
}

func (h *Handler) renderTaskForm(c *gin.Context, status int, task *model.Task, form taskForm, formErr string) {
	categories, err := h.svc.Categories.ListActive(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.internal(c, err)
		return
	}
	title, action := "New task", "/add_task"
	if task != nil {
		title, action = "Edit task", "/edit_task/"+strconv.FormatUint(uint64(task.ID), 10)
	}
	h.render(c, status, "task_form.html", gin.H{
		"Title":      title,
		"Action":     action,
		"Task":       task,
		"Form":       form,
		"Categories": categories,
		"Error":      formErr,
	})
}

// deny flashes a refusal and returns to the task list. Refusals over
// someone else's task are a warning, role refusals are an error.
func (h *Handler) deny(c *gin.Context, err error) {
	kind := "danger"
	var denied *permission.DeniedError
	if errors.As(err, &denied) && denied.NotOwner {
		kind = "warning"
	}
	session.SetFlash(c, kind, err.Error())
	h.redirect(c, tasksPath)
}

func isDenied(err error) bool {
	var denied *permission.DeniedError
	return errors.As(err, &denied)
}
