// Package seed bootstraps a fresh database: the administrator account,
// the default task categories and, optionally, sample users and tasks
// read from a YAML file.
//
// Every step is idempotent. Existing rows are never modified.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/config"
	"taskprogress/internal/model"
	"taskprogress/internal/repository"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed default.yaml
var defaultFile []byte

// File is the seed document layout.
type File struct {
	Categories []Category `yaml:"categories"`
	Users      []User     `yaml:"users"`
	Tasks      []Task     `yaml:"tasks"`
}

type Category struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
	SortOrder   int    `yaml:"sort_order"`
}

type User struct {
	Username string `yaml:"username"`
	FullName string `yaml:"full_name"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type Task struct {
	Title            string `yaml:"title"`
	Description      string `yaml:"description"`
	Status           string `yaml:"status"`
	Progress         int    `yaml:"progress"`
	PlannedStartDate string `yaml:"planned_start_date"`
	PlannedEndDate   string `yaml:"planned_end_date"`
	Assignee         string `yaml:"assignee"`
	Category         string `yaml:"category"`
	// Creator is a username from this file or the database.
	Creator string `yaml:"creator"`
}

type Options struct {
	AdminUsername string
	AdminPassword string
	AdminFullName string
	// File is an optional extra seed file.
	File string
}

// OptionsFromConfig maps the bootstrap settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		AdminFullName: cfg.AdminFullName,
		File:          cfg.SeedFile,
	}
}

// Parse decodes a seed document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

func Default() (*File, error) {
	return Parse(defaultFile)
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Run seeds db. It must run after migrations and before the legacy
// category backfill, which matches names against the seeded categories.
func Run(ctx context.Context, db *gorm.DB, opts Options, log *zap.SugaredLogger) error {
	defaults, err := Default()
	if err != nil {
		return err
	}
	var extra *File
	if opts.File != "" {
		if extra, err = Load(opts.File); err != nil {
			return err
		}
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureAdmin(ctx, tx, opts, log); err != nil {
			return err
		}
		if err := seedDefaultCategories(ctx, tx, defaults.Categories, log); err != nil {
			return err
		}
		if extra != nil {
			if err := seedExtra(ctx, tx, extra, log); err != nil {
				return fmt.Errorf("seed %s: %w", opts.File, err)
			}
		}
		return nil
	})
}

func ensureAdmin(ctx context.Context, tx *gorm.DB, opts Options, log *zap.SugaredLogger) error {
	users := repository.NewUserRepository(tx)
	existing, err := users.FindByUsername(ctx, opts.AdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	if opts.AdminPassword == config.DefaultAdminPassword {
		log.Warnw("creating administrator with the default password, change it after first login",
			"username", opts.AdminUsername)
	}
	hash, err := auth.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := &model.User{
		Username:     opts.AdminUsername,
		FullName:     opts.AdminFullName,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		Active:       true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	log.Infow("👤 administrator account created", "username", admin.Username)
	return nil
}

// seedDefaultCategories only fills an empty table, so categories an
// administrator deleted stay deleted.
func seedDefaultCategories(ctx context.Context, tx *gorm.DB, categories []Category, log *zap.SugaredLogger) error {
	repo := repository.NewCategoryRepository(tx)
	n, err := repo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, c := range categories {
		if err := createCategory(ctx, repo, c); err != nil {
			return err
		}
	}
	log.Infow("default categories created", "count", len(categories))
	return nil
}

func createCategory(ctx context.Context, repo *repository.CategoryRepository, c Category) error {
	color := model.ColorSecondary
	if c.Color != "" {
		parsed, err := model.ParseColor(c.Color)
		if err != nil {
			return fmt.Errorf("category %s: %w", c.Name, err)
		}
		color = parsed
	}
	category := &model.TaskCategory{
		Name:        c.Name,
		DisplayName: c.DisplayName,
		Description: c.Description,
		Color:       color,
		Active:      true,
		SortOrder:   c.SortOrder,
	}
	if err := repo.Create(ctx, category); err != nil {
		return fmt.Errorf("create category %s: %w", c.Name, err)
	}
	return nil
}

func seedExtra(ctx context.Context, tx *gorm.DB, f *File, log *zap.SugaredLogger) error {
	categories := repository.NewCategoryRepository(tx)
	for _, c := range f.Categories {
		taken, err := categories.NameTaken(ctx, c.Name, 0)
		if err != nil {
			return err
		}
		if taken {
			continue
		}
		if err := createCategory(ctx, categories, c); err != nil {
			return err
		}
	}

	tasks := repository.NewTaskRepository(tx)
	n, err := tasks.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Infow("tasks already present, skipping sample users and tasks")
		return nil
	}

	users := repository.NewUserRepository(tx)
	for _, u := range f.Users {
		existing, err := users.FindByUsername(ctx, u.Username)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		role, err := model.ParseRole(u.Role)
		if err != nil {
			return fmt.Errorf("user %s: %w", u.Username, err)
		}
		hash, err := auth.HashPassword(u.Password)
		if err != nil {
			return err
		}
		if err := users.Create(ctx, &model.User{
			Username:     u.Username,
			FullName:     u.FullName,
			PasswordHash: hash,
			Role:         role,
			Active:       true,
		}); err != nil {
			return fmt.Errorf("create user %s: %w", u.Username, err)
		}
	}

	for _, t := range f.Tasks {
		task, err := buildTask(ctx, users, categories, t)
		if err != nil {
			return fmt.Errorf("task %q: %w", t.Title, err)
		}
		if err := tasks.Create(ctx, task); err != nil {
			return fmt.Errorf("create task %q: %w", t.Title, err)
		}
	}
	log.Infow("sample data created", "users", len(f.Users), "tasks", len(f.Tasks))
	return nil
}

func buildTask(ctx context.Context, users *repository.UserRepository, categories *repository.CategoryRepository, t Task) (*model.Task, error) {
	status := model.StatusPending
	if t.Status != "" {
		parsed, err := model.ParseStatus(t.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	if t.Progress < 0 || t.Progress > 100 {
		return nil, fmt.Errorf("progress %d out of range", t.Progress)
	}

	task := &model.Task{
		Title:       t.Title,
		Description: t.Description,
		Status:      status,
		Progress:    t.Progress,
		Assignee:    t.Assignee,
	}

	var err error
	if task.PlannedStartDate, err = parseDate(t.PlannedStartDate); err != nil {
		return nil, err
	}
	if task.PlannedEndDate, err = parseDate(t.PlannedEndDate); err != nil {
		return nil, err
	}

	categoryName := t.Category
	if categoryName == "" {
		categoryName = model.DefaultCategoryName
	}
	category, err := categories.FindActiveByName(ctx, categoryName)
	if err != nil {
		return nil, err
	}
	if category != nil {
		task.CategoryID = &category.ID
	}

	if t.Creator != "" {
		creator, err := users.FindByUsername(ctx, t.Creator)
		if err != nil {
			return nil, err
		}
		if creator == nil {
			return nil, fmt.Errorf("unknown creator %q", t.Creator)
		}
		task.CreatorID = &creator.ID
	}
	return task, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
