package model

import (
	"time"
)

type Task struct {
	ID               uint       `gorm:"primaryKey"`
	Title            string     `gorm:"size:200;not null"`
	Description      string     `gorm:"type:text"`
	Status           Status     `gorm:"size:20;not null;index;check:status IN ('pending', 'in-progress', 'completed')"`
	Progress         int        `gorm:"not null;check:progress >= 0 AND progress <= 100"`
	PlannedStartDate *time.Time `gorm:"type:date"`
	PlannedEndDate   *time.Time `gorm:"type:date"`
	Assignee         string     `gorm:"size:100"`
	CategoryID       *uint      `gorm:"index"`
	CreatorID        *uint      `gorm:"index"`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`

	Category *TaskCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
	Creator  *User         `gorm:"foreignKey:CreatorID;constraint:OnDelete:SET NULL"`
}

// IsCreatedBy reports whether the given user owns the task.
func (t *Task) IsCreatedBy(userID uint) bool {
	return t.CreatorID != nil && *t.CreatorID == userID
}

// ProgressColor maps progress onto a progress-bar class.
func (t *Task) ProgressColor() string {
	switch {
	case t.Progress == 0:
		return "bg-secondary"
	case t.Progress < 30:
		return "bg-danger"
	case t.Progress < 70:
		return "bg-warning"
	default:
		return "bg-success"
	}
}

func (t *Task) CategoryName() string {
	if t.Category != nil {
		return t.Category.Name
	}
	return DefaultCategoryName
}

func (t *Task) CategoryDisplay() string {
	if t.Category != nil {
		return t.Category.DisplayName
	}
	return "General"
}

func (t *Task) CategoryColor() string {
	if t.Category != nil {
		return string(t.Category.Color)
	}
	return string(ColorSecondary)
}

func (t *Task) AssigneeDisplay() string {
	if t.Assignee == "" {
		return "Unassigned"
	}
	return t.Assignee
}

// CreatorName is "System" for tasks whose creator was deleted or never set.
func (t *Task) CreatorName() string {
	if t.Creator != nil {
		return t.Creator.FullName
	}
	return "System"
}
