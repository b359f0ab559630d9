package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"proctrace/internal/config"
	logging "proctrace/internal/logging"
	"proctrace/internal/models"
)

// Connect opens the postgres connection and runs migrations. The handle is
// returned to the caller; nothing here is global.
func Connect(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	// Create our custom GORM logger
	gormLogger := logging.NewGormZapLogger(log)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connection established successfully.")
	if err := runMigrations(db, log); err != nil {
		return nil, err
	}
	return db, nil
}

func runMigrations(db *gorm.DB, log *zap.Logger) error {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create composite indexes, so we handle those separately.
	err := db.AutoMigrate(
		&models.SessionResult{},
		&models.ProctoringEvent{},
		&models.Certificate{},
		&models.DocumentCounter{},
		&models.AdminUser{},
		&models.APIKey{},
	)
	if err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	log.Info("Database migrations completed successfully.")

	// Composite indexes behind the hot queries: fingerprint clustering and
	// the per-session event rollup.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_results_fingerprint_query ON session_results (fingerprint_hash, test_type, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_events_session_query ON proctoring_events (session_id, event_type, created_at);`,
	}
	for _, stmt := range indexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create custom index: %w", err)
		}
	}
	log.Info("Custom indexes ensured successfully.")
	return nil
}
