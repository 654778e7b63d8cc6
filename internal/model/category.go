package model

import (
	"time"
)

// DefaultCategoryName is the key tasks fall back to when no category is given.
const DefaultCategoryName = "general"

type TaskCategory struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"size:50;uniqueIndex;not null"`
	DisplayName string    `gorm:"size:100;not null"`
	Description string    `gorm:"size:500"`
	Color       Color     `gorm:"size:20;not null;check:color IN ('primary', 'secondary', 'success', 'danger', 'warning', 'info', 'light', 'dark')"`
	Active      bool      `gorm:"not null"`
	SortOrder   int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
