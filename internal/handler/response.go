package handler

import (
	"time"

	"taskprogress/internal/model"
	"taskprogress/internal/service"
)

const dateLayout = "2006-01-02"

type TaskResponse struct {
	ID               uint    `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Status           string  `json:"status"`
	StatusDisplay    string  `json:"status_display"`
	StatusColor      string  `json:"status_color"`
	Progress         int     `json:"progress"`
	ProgressColor    string  `json:"progress_color"`
	PlannedStartDate *string `json:"planned_start_date"`
	PlannedEndDate   *string `json:"planned_end_date"`
	Assignee         string  `json:"assignee"`
	AssigneeDisplay  string  `json:"assignee_display"`
	CategoryID       *uint   `json:"category_id"`
	Category         string  `json:"category"`
	CategoryDisplay  string  `json:"category_display"`
	CategoryColor    string  `json:"category_color"`
	CreatorID        *uint   `json:"creator_id"`
	CreatorName      string  `json:"creator_name"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func NewTaskResponse(t *model.Task) TaskResponse {
	return TaskResponse{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Status:           string(t.Status),
		StatusDisplay:    t.Status.Display(),
		StatusColor:      t.Status.Color(),
		Progress:         t.Progress,
		ProgressColor:    t.ProgressColor(),
		PlannedStartDate: formatDate(t.PlannedStartDate),
		PlannedEndDate:   formatDate(t.PlannedEndDate),
		Assignee:         t.Assignee,
		AssigneeDisplay:  t.AssigneeDisplay(),
		CategoryID:       t.CategoryID,
		Category:         t.CategoryName(),
		CategoryDisplay:  t.CategoryDisplay(),
		CategoryColor:    t.CategoryColor(),
		CreatorID:        t.CreatorID,
		CreatorName:      t.CreatorName(),
		CreatedAt:        formatTime(t.CreatedAt),
		UpdatedAt:        formatTime(t.UpdatedAt),
	}
}

func NewTaskResponses(tasks []model.Task) []TaskResponse {
	out := make([]TaskResponse, len(tasks))
	for i := range tasks {
		out[i] = NewTaskResponse(&tasks[i])
	}
	return out
}

type CategoryResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	IsActive    bool   `json:"is_active"`
	SortOrder   int    `json:"sort_order"`
	TaskCount   int64  `json:"task_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func NewCategoryResponse(c *service.CategoryWithCount) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,
		Color:       string(c.Color),
		IsActive:    c.Active,
		SortOrder:   c.SortOrder,
		TaskCount:   c.TaskCount,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func NewCategoryResponses(categories []service.CategoryWithCount) []CategoryResponse {
	out := make([]CategoryResponse, len(categories))
	for i := range categories {
		out[i] = NewCategoryResponse(&categories[i])
	}
	return out
}

type UserResponse struct {
	ID          uint   `json:"id"`
	Username    string `json:"username"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	RoleDisplay string `json:"role_display"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func NewUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Role:        string(u.Role),
		RoleDisplay: u.Role.Display(),
		IsActive:    u.Active,
		CreatedAt:   formatTime(u.CreatedAt),
		UpdatedAt:   formatTime(u.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}
