// Package testutil provides shared fixtures for package tests: a migrated
// in-memory SQLite database per test and helpers to insert users,
// categories and tasks directly, bypassing the services under test.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/repository"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Password is the plain-text password of every user created by CreateUser.
const Password = "secret123"

// OpenDB returns a private, migrated in-memory database that lives for
// the duration of the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

var passwordHash string

// CreateUser inserts an active user with Password as password.
func CreateUser(t testing.TB, db *gorm.DB, username string, role model.Role) *model.User {
	t.Helper()

	if passwordHash == "" {
		h, err := auth.HashPassword(Password)
		if err != nil {
			t.Fatalf("hash password: %v", err)
		}
		passwordHash = h
	}

	u := &model.User{
		Username:     username,
		FullName:     "User " + username,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

// Deactivate flips a user's active flag off.
func Deactivate(t testing.TB, db *gorm.DB, u *model.User) {
	t.Helper()

	if err := db.Model(u).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate %s: %v", u.Username, err)
	}
	u.Active = false
}

// CreateCategory inserts an active category.
func CreateCategory(t testing.TB, db *gorm.DB, name string, sortOrder int) *model.TaskCategory {
	t.Helper()

	c := &model.TaskCategory{
		Name:        name,
		DisplayName: "Category " + name,
		Color:       model.ColorSecondary,
		Active:      true,
		SortOrder:   sortOrder,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed category %s: %v", name, err)
	}
	return c
}

// CreateTask inserts a pending task owned by creator (nil for none).
func CreateTask(t testing.TB, db *gorm.DB, title string, creator *model.User, category *model.TaskCategory) *model.Task {
	t.Helper()

	task := &model.Task{
		Title:    title,
		Status:   model.StatusPending,
		Progress: 0,
	}
	if creator != nil {
		task.CreatorID = &creator.ID
	}
	if category != nil {
		task.CategoryID = &category.ID
	}
	if err := db.Omit("Creator", "Category").Create(task).Error; err != nil {
		t.Fatalf("seed task %s: %v", title, err)
	}
	return task
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
