package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskprogress/internal/config"
	"taskprogress/internal/model"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured store. It does not migrate.
func Open(cfg *config.Config, log logger.Interface) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.DBDriver == "sqlite" {
		// SQLite serialises writers anyway; one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return db, nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
				cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
			)
		}
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
				cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
			)
		}
		return mysql.Open(dsn), nil
	case "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "task_progress.db"
		}
		if err := ensureDirForSQLite(dsn); err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported DB driver %q", cfg.DBDriver)
}

// ensureDirForSQLite creates the parent dir of a file-backed SQLite DSN.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// Migrate creates or updates the schema, including check constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.TaskCategory{}, &model.Task{}); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

const legacyCategoryColumn = "category"

// BackfillLegacyCategories moves the old free-text tasks.category column
// onto category_id and drops it. It runs once: after the column is gone
// the function is a no-op. Categories must be seeded first so legacy
// names can be matched.
func BackfillLegacyCategories(db *gorm.DB) (int64, error) {
	legacy, err := hasLegacyCategoryColumn(db)
	if err != nil || !legacy {
		return 0, err
	}

	var updated int64
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`UPDATE tasks SET category_id = (
				SELECT task_categories.id FROM task_categories
				WHERE task_categories.name = LOWER(tasks.category)
			)
			WHERE category_id IS NULL AND category IS NOT NULL AND category <> ''`)
		if res.Error != nil {
			return fmt.Errorf("backfill category_id: %w", res.Error)
		}
		updated = res.RowsAffected

		if err := tx.Exec("ALTER TABLE tasks DROP COLUMN " + legacyCategoryColumn).Error; err != nil {
			return fmt.Errorf("drop legacy category column: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// hasLegacyCategoryColumn compares exact column names. The sqlite
// migrator's HasColumn matches on the table DDL text, where the
// fk_tasks_category constraint name gives a false positive.
func hasLegacyCategoryColumn(db *gorm.DB) (bool, error) {
	columns, err := db.Migrator().ColumnTypes(&model.Task{})
	if err != nil {
		return false, fmt.Errorf("inspect tasks columns: %w", err)
	}
	for _, col := range columns {
		if strings.EqualFold(col.Name(), legacyCategoryColumn) {
			return true, nil
		}
	}
	return false, nil
}
