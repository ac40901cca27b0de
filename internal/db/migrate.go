package db

import (
	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

// Models lists every table owned by the service
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Address{},
		&model.Product{},
		&model.Cart{},
		&model.Order{},
	}
}

// Migrate runs database migrations on the global connection
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB runs database migrations on the given connection
func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}
