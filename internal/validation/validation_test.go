package validation

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Status    string `validate:"omitempty,task_status"`
	Role      string `validate:"omitempty,user_role"`
	Color     string `validate:"omitempty,category_color"`
	Name      string `validate:"omitempty,category_key"`
	StartDate string `validate:"omitempty,date_ymd"`
	Title     string `validate:"required,max=5"`
}

func newValidator(t *testing.T) *validator.Validate {
	v := validator.New()
	require.NoError(t, RegisterOn(v))
	return v
}

func TestCustomTags_Valid(t *testing.T) {
	v := newValidator(t)
	err := v.Struct(sample{
		Status:    "in-progress",
		Role:      "data_entry",
		Color:     "warning",
		Name:      "dev_ops2",
		StartDate: "2024-02-29",
		Title:     "ok",
	})
	assert.NoError(t, err)
}

func TestCustomTags_Invalid(t *testing.T) {
	v := newValidator(t)
	err := v.Struct(sample{
		Status:    "done",
		Role:      "root",
		Color:     "purple",
		Name:      "dev ops",
		StartDate: "2024-02-30",
	})
	require.Error(t, err)

	msg := Describe(err)
	assert.Contains(t, msg, "status must be one of pending, in-progress, completed")
	assert.Contains(t, msg, "role must be one of admin, data_entry, supervisor")
	assert.Contains(t, msg, "color must be a supported color")
	assert.Contains(t, msg, "name may only contain letters, digits and underscores")
	assert.Contains(t, msg, "start_date must be a date in YYYY-MM-DD format")
	assert.Contains(t, msg, "title is required")
}

func TestDescribe_NonValidatorError(t *testing.T) {
	assert.Equal(t, "Invalid request body", Describe(errors.New("unexpected EOF")))
}

func TestCategoryKey(t *testing.T) {
	assert.True(t, CategoryKey("general"))
	assert.True(t, CategoryKey("Team_2"))
	assert.False(t, CategoryKey(""))
	assert.False(t, CategoryKey("a-b"))
	assert.False(t, CategoryKey("中文"))
}
