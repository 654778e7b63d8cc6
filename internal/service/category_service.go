package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"taskprogress/internal/model"
	"taskprogress/internal/permission"
	"taskprogress/internal/repository"
	"taskprogress/internal/validation"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCategoryNameLen        = 50
	maxCategoryDisplayLen     = 100
	maxCategoryDescriptionLen = 500
	maxSortOrder              = 9999
)

type CategoryInput struct {
	Name        *string
	DisplayName *string
	Description *string
	Color       *string
	Active      *bool
	SortOrder   *int
}

// CategoryWithCount is a category together with the number of tasks
// referencing it.
type CategoryWithCount struct {
	model.TaskCategory
	TaskCount int64
}

type CategoryService struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewCategoryService(db *gorm.DB, log *zap.SugaredLogger) *CategoryService {
	return &CategoryService{db: db, log: log}
}

// List returns all categories, including disabled ones, for administration.
func (s *CategoryService) List(ctx context.Context, actor *model.User) ([]CategoryWithCount, error) {
	if err := permission.Evaluate(actor, permission.ManageCategories, nil).Err(); err != nil {
		return nil, err
	}
	return s.list(ctx, false)
}

// ListActive returns the categories a task can be filed under. Any user
// allowed to work with tasks or categories may read it.
func (s *CategoryService) ListActive(ctx context.Context, actor *model.User) ([]CategoryWithCount, error) {
	if !permission.CanViewTask(actor, nil) && !permission.CanManageCategories(actor) {
		return nil, permission.Evaluate(actor, permission.ViewTask, nil).Err()
	}
	return s.list(ctx, true)
}

func (s *CategoryService) list(ctx context.Context, activeOnly bool) ([]CategoryWithCount, error) {
	repo := repository.NewCategoryRepository(s.db)
	categories, err := repo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	counts, err := repo.TaskCounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryWithCount, len(categories))
	for i, c := range categories {
		out[i] = CategoryWithCount{TaskCategory: c, TaskCount: counts[c.ID]}
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, actor *model.User, id uint) (*CategoryWithCount, error) {
	if err := permission.Evaluate(actor, permission.ManageCategories, nil).Err(); err != nil {
		return nil, err
	}
	return s.get(ctx, s.db, id)
}

func (s *CategoryService) get(ctx context.Context, db *gorm.DB, id uint) (*CategoryWithCount, error) {
	repo := repository.NewCategoryRepository(db)
	category, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	n, err := repo.CountTasks(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CategoryWithCount{TaskCategory: *category, TaskCount: n}, nil
}

func (s *CategoryService) Create(ctx context.Context, actor *model.User, in CategoryInput) (*CategoryWithCount, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.authorize(ctx, tx, actor); err != nil {
			return err
		}

		category := &model.TaskCategory{
			Color:  model.ColorSecondary,
			Active: true,
		}
		if in.Name == nil {
			in.Name = new(string)
		}
		if in.DisplayName == nil {
			in.DisplayName = new(string)
		}
		repo := repository.NewCategoryRepository(tx)
		if err := s.apply(ctx, repo, category, in); err != nil {
			return err
		}
		if err := repo.Create(ctx, category); err != nil {
			return fmt.Errorf("create category: %w", err)
		}
		id = category.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("category created", "category_id", id, "user_id", actor.ID)
	return s.get(ctx, s.db, id)
}

func (s *CategoryService) Update(ctx context.Context, actor *model.User, id uint, in CategoryInput) (*CategoryWithCount, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.authorize(ctx, tx, actor); err != nil {
			return err
		}
		repo := repository.NewCategoryRepository(tx)
		category, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, repo, category, in); err != nil {
			return err
		}
		if err := repo.Update(ctx, category); err != nil {
			return fmt.Errorf("update category: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("category updated", "category_id", id, "user_id", actor.ID)
	return s.get(ctx, s.db, id)
}

// Delete refuses while any task still references the category.
func (s *CategoryService) Delete(ctx context.Context, actor *model.User, id uint) (*model.TaskCategory, error) {
	var deleted *model.TaskCategory
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.authorize(ctx, tx, actor); err != nil {
			return err
		}
		repo := repository.NewCategoryRepository(tx)
		category, err := repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := repo.CountTasks(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("category", fmt.Sprintf("category %q is still used by %d task(s)", category.DisplayName, n))
		}
		if err := repo.Delete(ctx, id); err != nil {
			return err
		}
		deleted = category
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infow("category deleted", "category_id", id, "user_id", actor.ID)
	return deleted, nil
}

func (s *CategoryService) authorize(ctx context.Context, tx *gorm.DB, actor *model.User) error {
	current, err := reloadActor(ctx, tx, actor)
	if err != nil {
		return err
	}
	return permission.Evaluate(current, permission.ManageCategories, nil).Err()
}

func (s *CategoryService) apply(ctx context.Context, repo *repository.CategoryRepository, category *model.TaskCategory, in CategoryInput) error {
	var errs fieldErrors
	next := *category

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			errs.add("name", "name is required")
		case utf8.RuneCountInString(name) > maxCategoryNameLen:
			errs.add("name", fmt.Sprintf("name must be at most %d characters", maxCategoryNameLen))
		case !validation.CategoryKey(name):
			errs.add("name", "name may only contain letters, digits and underscores")
		default:
			taken, err := repo.NameTaken(ctx, name, category.ID)
			if err != nil {
				return err
			}
			if taken {
				errs.add("name", fmt.Sprintf("category name %q already exists", strings.ToLower(name)))
			} else {
				next.Name = strings.ToLower(name)
			}
		}
	}
	if in.DisplayName != nil {
		display := strings.TrimSpace(*in.DisplayName)
		switch {
		case display == "":
			errs.add("display_name", "display_name is required")
		case utf8.RuneCountInString(display) > maxCategoryDisplayLen:
			errs.add("display_name", fmt.Sprintf("display_name must be at most %d characters", maxCategoryDisplayLen))
		default:
			next.DisplayName = display
		}
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(desc) > maxCategoryDescriptionLen {
			errs.add("description", fmt.Sprintf("description must be at most %d characters", maxCategoryDescriptionLen))
		} else {
			next.Description = desc
		}
	}
	if in.Color != nil {
		color, err := model.ParseColor(strings.TrimSpace(*in.Color))
		if err != nil {
			errs.add("color", fmt.Sprintf("color %q is not supported", *in.Color))
		} else {
			next.Color = color
		}
	}
	if in.Active != nil {
		next.Active = *in.Active
	}
	if in.SortOrder != nil {
		if *in.SortOrder < 0 || *in.SortOrder > maxSortOrder {
			errs.add("sort_order", fmt.Sprintf("sort_order must be between 0 and %d", maxSortOrder))
		} else {
			next.SortOrder = *in.SortOrder
		}
	}

	if err := errs.err(); err != nil {
		return err
	}
	*category = next
	return nil
}
