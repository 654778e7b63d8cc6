package repository

import (
	"context"
	"errors"
	"strings"

	"taskprogress/internal/model"

	"gorm.io/gorm"
)

// CategoryRepository manages task categories.
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(ctx context.Context, category *model.TaskCategory) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *CategoryRepository) GetByID(ctx context.Context, id uint) (*model.TaskCategory, error) {
	var category model.TaskCategory
	err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindActiveByName matches the lowercase key; nil, nil when absent or disabled.
func (r *CategoryRepository) FindActiveByName(ctx context.Context, name string) (*model.TaskCategory, error) {
	var category model.TaskCategory
	err := r.db.WithContext(ctx).
		Where("name = ? AND active = ?", strings.ToLower(strings.TrimSpace(name)), true).
		First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// List returns categories in display order.
func (r *CategoryRepository) List(ctx context.Context, activeOnly bool) ([]model.TaskCategory, error) {
	var categories []model.TaskCategory
	q := r.db.WithContext(ctx)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	err := q.Order("sort_order ASC, display_name ASC").Find(&categories).Error
	return categories, err
}

// NameTaken compares case-insensitively and skips excludeID.
func (r *CategoryRepository) NameTaken(ctx context.Context, name string, excludeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TaskCategory{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), excludeID).
		Count(&count).Error
	return count > 0, err
}

func (r *CategoryRepository) Update(ctx context.Context, category *model.TaskCategory) error {
	return r.db.WithContext(ctx).Save(category).Error
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&model.TaskCategory{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// CountTasks counts the tasks referencing a category.
func (r *CategoryRepository) CountTasks(ctx context.Context, id uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Task{}).Where("category_id = ?", id).Count(&count).Error
	return count, err
}

// TaskCounts returns the number of tasks per category id.
func (r *CategoryRepository) TaskCounts(ctx context.Context) (map[uint]int64, error) {
	var rows []struct {
		CategoryID uint
		Count      int64
	}
	err := r.db.WithContext(ctx).Model(&model.Task{}).
		Select("category_id, COUNT(*) AS count").
		Where("category_id IS NOT NULL").
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.Count
	}
	return counts, nil
}

func (r *CategoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.TaskCategory{}).Count(&count).Error
	return count, err
}
