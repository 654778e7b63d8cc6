package repository

import "errors"

// ErrNotFound matches every entity-specific not-found error below.
var ErrNotFound = errors.New("not found")

type notFoundError string

func (e notFoundError) Error() string { return string(e) + " not found" }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }

// Common repository errors
var (
	// ErrTaskNotFound is returned when a task is not found
	ErrTaskNotFound error = notFoundError("task")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound error = notFoundError("user")

	// ErrCategoryNotFound is returned when a category is not found
	ErrCategoryNotFound error = notFoundError("category")
)
