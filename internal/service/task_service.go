package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"taskprogress/internal/model"
	"taskprogress/internal/permission"
	"taskprogress/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
	maxAssigneeLen    = 100

	dateLayout = "2006-01-02"
)

// TaskInput carries the fields of a create or update. Nil fields are left
// untouched on update. An empty date string clears the date.
type TaskInput struct {
	Title            *string
	Description      *string
	Status           *string
	Progress         *int
	PlannedStartDate *string
	PlannedEndDate   *string
	Assignee         *string
	CategoryID       *uint
	// Category is the legacy category name. CategoryID wins when both are set.
	Category *string
}

type Stats struct {
	Total          int64   `json:"total_tasks"`
	Completed      int64   `json:"completed_tasks"`
	InProgress     int64   `json:"in_progress_tasks"`
	Pending        int64   `json:"pending_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

type TaskService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewTaskService(db *gorm.DB, log *zap.SugaredLogger) *TaskService {
	return &TaskService{db: db, log: log}
}

// List returns every task, newest first. status may be empty or "all".
func (s *TaskService) List(ctx context.Context, actor *model.User, status string) ([]model.Task, error) {
	if err := permission.Evaluate(actor, permission.ViewTask, nil).Err(); err != nil {
		return nil, err
	}

	var filter *model.Status
	if status != "" && status != "all" {
		st, err := model.ParseStatus(status)
		if err != nil {
			return nil, invalid("status", fmt.Sprintf("status filter %q is not one of pending, in-progress, completed", status))
		}
		filter = &st
	}
	return repository.NewTaskRepository(s.db).List(ctx, filter)
}

func (s *TaskService) Get(ctx context.Context, actor *model.User, id uint) (*model.Task, error) {
	if err := permission.Evaluate(actor, permission.ViewTask, nil).Err(); err != nil {
		return nil, err
	}
	task, err := repository.NewTaskRepository(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permission.Evaluate(actor, permission.ViewTask, task).Err(); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, actor *model.User, in TaskInput) (*model.Task, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := reloadActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		if err := permission.Evaluate(current, permission.CreateTask, nil).Err(); err != nil {
			return err
		}

		task := &model.Task{
			Status:    model.StatusPending,
			CreatorID: &current.ID,
		}
		if in.Title == nil {
			empty := ""
			in.Title = &empty
		}
		if err := s.apply(ctx, tx, task, in, true); err != nil {
			return err
		}
		if err := repository.NewTaskRepository(tx).Create(ctx, task); err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		id = task.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("task created", "task_id", id, "user_id", actor.ID)
	return repository.NewTaskRepository(s.db).GetByID(ctx, id)
}

// Update changes only the fields set in in. The date order is checked on
// the merged result.
func (s *TaskService) Update(ctx context.Context, actor *model.User, id uint, in TaskInput) (*model.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := repository.NewTaskRepository(tx)
		task, err := s.loadForWrite(ctx, tx, actor, id, permission.EditTask)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, tx, task, in, false); err != nil {
			return err
		}
		if err := tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("task updated", "task_id", id, "user_id", actor.ID)
	return repository.NewTaskRepository(s.db).GetByID(ctx, id)
}

// UpdateProgress sets progress and promotes the status: 100 completes the
// task, anything from 1 to 99 marks it in progress, 0 keeps the status.
func (s *TaskService) UpdateProgress(ctx context.Context, actor *model.User, id uint, progress int) (*model.Task, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := s.loadForWrite(ctx, tx, actor, id, permission.EditTask)
		if err != nil {
			return err
		}
		if progress < 0 || progress > 100 {
			return invalid("progress", "progress must be between 0 and 100")
		}

		task.Progress = progress
		switch {
		case progress == 100:
			task.Status = model.StatusCompleted
		case progress > 0:
			task.Status = model.StatusInProgress
		}
		if err := repository.NewTaskRepository(tx).Update(ctx, task); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("task progress updated", "task_id", id, "progress", progress, "user_id", actor.ID)
	return repository.NewTaskRepository(s.db).GetByID(ctx, id)
}

func (s *TaskService) Delete(ctx context.Context, actor *model.User, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadForWrite(ctx, tx, actor, id, permission.DeleteTask); err != nil {
			return err
		}
		return repository.NewTaskRepository(tx).Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Infow("task deleted", "task_id", id, "user_id", actor.ID)
	return nil
}

func (s *TaskService) Stats(ctx context.Context, actor *model.User) (*Stats, error) {
	if err := permission.Evaluate(actor, permission.ViewTask, nil).Err(); err != nil {
		return nil, err
	}
	counts, err := repository.NewTaskRepository(s.db).CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Completed:  counts[model.StatusCompleted],
		InProgress: counts[model.StatusInProgress],
		Pending:    counts[model.StatusPending],
	}
	for _, n := range counts {
		stats.Total += n
	}
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*10) / 10
	}
	return stats, nil
}

// loadForWrite refuses by role before looking the task up, so an admin
// gets a 403 rather than learning whether the id exists.
func (s *TaskService) loadForWrite(ctx context.Context, tx *gorm.DB, actor *model.User, id uint, op permission.Operation) (*model.Task, error) {
	current, err := reloadActor(ctx, tx, actor)
	if err != nil {
		return nil, err
	}
	if err := permission.Evaluate(current, permission.ViewTask, nil).Err(); err != nil {
		return nil, err
	}
	task, err := repository.NewTaskRepository(tx).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := permission.Evaluate(current, op, task).Err(); err != nil {
		s.log.Infow("task access denied", "task_id", id, "user_id", current.ID, "operation", op)
		return nil, err
	}
	return task, nil
}

// apply validates every provided field and writes them onto task. Nothing
// is written unless all fields pass.
func (s *TaskService) apply(ctx context.Context, tx *gorm.DB, task *model.Task, in TaskInput, creating bool) error {
	var errs fieldErrors
	next := *task

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		switch {
		case title == "":
			errs.add("title", "title is required")
		case utf8.RuneCountInString(title) > maxTitleLen:
			errs.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLen))
		default:
			next.Title = title
		}
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(desc) > maxDescriptionLen {
			errs.add("description", fmt.Sprintf("description must be at most %d characters", maxDescriptionLen))
		} else {
			next.Description = desc
		}
	}
	if in.Status != nil {
		st, err := model.ParseStatus(strings.TrimSpace(*in.Status))
		if err != nil {
			errs.add("status", "status must be one of pending, in-progress, completed")
		} else {
			next.Status = st
		}
	}
	if in.Progress != nil {
		if *in.Progress < 0 || *in.Progress > 100 {
			errs.add("progress", "progress must be between 0 and 100")
		} else {
			next.Progress = *in.Progress
		}
	}
	if in.PlannedStartDate != nil {
		d, err := parseDate(*in.PlannedStartDate)
		if err != nil {
			errs.add("planned_start_date", "planned_start_date must be a date in YYYY-MM-DD format")
		} else {
			next.PlannedStartDate = d
		}
	}
	if in.PlannedEndDate != nil {
		d, err := parseDate(*in.PlannedEndDate)
		if err != nil {
			errs.add("planned_end_date", "planned_end_date must be a date in YYYY-MM-DD format")
		} else {
			next.PlannedEndDate = d
		}
	}
	if next.PlannedStartDate != nil && next.PlannedEndDate != nil && next.PlannedStartDate.After(*next.PlannedEndDate) {
		errs.add("planned_end_date", "planned start date must not be after planned end date")
	}
	if in.Assignee != nil {
		assignee := strings.TrimSpace(*in.Assignee)
		if utf8.RuneCountInString(assignee) > maxAssigneeLen {
			errs.add("assignee", fmt.Sprintf("assignee must be at most %d characters", maxAssigneeLen))
		} else {
			next.Assignee = assignee
		}
	}

	switch {
	case !creating && in.CategoryID != nil && task.CategoryID != nil && *in.CategoryID == *task.CategoryID:
		// an unchanged category is kept even if it was disabled since
	case creating || in.CategoryID != nil || in.Category != nil:
		categoryID, err := resolveCategory(ctx, repository.NewCategoryRepository(tx), in.CategoryID, in.Category, s.log)
		switch {
		case IsValidation(err):
			errs.addErr(err)
		case err != nil:
			return err
		default:
			next.CategoryID = categoryID
			next.Category = nil
		}
	}

	if err := errs.err(); err != nil {
		return err
	}
	*task = next
	return nil
}

// resolveCategory picks the category for a task: explicit id, then an
// active category with the legacy name, then the active default. A nil
// result means uncategorised.
func resolveCategory(ctx context.Context, categories *repository.CategoryRepository, id *uint, name *string, log *zap.SugaredLogger) (*uint, error) {
	legacy := ""
	if name != nil {
		legacy = strings.ToLower(strings.TrimSpace(*name))
	}

	if id != nil && *id != 0 {
		category, err := categories.GetByID(ctx, *id)
		if err != nil {
			if isNotFound(err) {
				return nil, invalid("category_id", fmt.Sprintf("category %d does not exist", *id))
			}
			return nil, err
		}
		if !category.Active {
			return nil, invalid("category_id", fmt.Sprintf("category %q is disabled", category.DisplayName))
		}
		if legacy != "" && legacy != category.Name {
			log.Warnw("category id and name disagree, using id",
				"category_id", category.ID, "category_name", category.Name, "requested_name", legacy)
		}
		return &category.ID, nil
	}

	if legacy != "" {
		category, err := categories.FindActiveByName(ctx, legacy)
		if err != nil {
			return nil, err
		}
		if category != nil {
			return &category.ID, nil
		}
		log.Warnw("unknown category name, using default", "requested_name", legacy)
	}

	category, err := categories.FindActiveByName(ctx, model.DefaultCategoryName)
	if err != nil || category == nil {
		return nil, err
	}
	return &category.ID, nil
}

func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
