package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Wikid82/geogate/internal/models"
)

// Open bootstraps a SQLite database using the provided filesystem path or DSN.
// SQLite has a single writer, so the pool is limited to one connection and
// writers queue instead of failing with "database is locked".
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// Migrate creates or updates every table the gate persists and seeds the
// singleton stats row.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Setting{},
		&models.AllowlistEntry{},
		&models.BlockedAttempt{},
		&models.AccessStats{},
		&models.BypassToken{},
		&models.BypassUsage{},
		&models.SpamCounter{},
		&models.SpamRecord{},
		&models.SecurityAudit{},
		&models.NotificationProvider{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.FirstOrCreate(&models.AccessStats{ID: 1}, models.AccessStats{ID: 1}).Error; err != nil {
		return fmt.Errorf("seed access stats: %w", err)
	}
	return nil
}
