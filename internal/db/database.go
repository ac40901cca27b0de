package db

import (
	"fmt"

	"github.com/ikkim/storefront-backend/config"
	appLogger "github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize opens the configured database (postgres or a sqlite file)
func Initialize(cfg *config.DatabaseConfig) error {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		appLogger.Info("Opening sqlite database", map[string]interface{}{
			"path": cfg.SQLitePath,
		})
		dialector = sqlite.Open(cfg.DSN())
	default:
		appLogger.Info("Connecting to database", map[string]interface{}{
			"host":     cfg.Host,
			"port":     cfg.Port,
			"database": cfg.DBName,
			"user":     cfg.User,
		})
		dialector = postgres.Open(cfg.DSN())
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Use silent mode, we'll use our own logger
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	maxIdle, maxOpen := 10, 100
	if cfg.Driver == "sqlite" {
		// sqlite allows a single writer
		maxIdle, maxOpen = 1, 1
	}
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)

	appLogger.Info("Database connection established successfully", map[string]interface{}{
		"driver":         cfg.Driver,
		"max_idle_conns": maxIdle,
		"max_open_conns": maxOpen,
	})
	return nil
}

// Close closes the database connection
func Close() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
