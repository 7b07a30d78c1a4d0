// internal/database/connection.go
package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	}

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig.Logger = logger.Default.LogMode(logger.Silent)
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	// gen_random_uuid() lives in pgcrypto on postgres < 13
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.Category{},
		&models.Image{},
		&models.Product{},
		&models.Order{},
		&models.ImportJob{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_active_featured ON products(active, is_featured)",
		"CREATE INDEX IF NOT EXISTS idx_products_department ON products(department, sub_department)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_search ON products USING GIN(to_tsvector('spanish', product_name || ' ' || description))",

		// Image lookups by fuzzy token
		"CREATE INDEX IF NOT EXISTS idx_images_name_lower ON images(LOWER(name))",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(order_status, created_at DESC)",

		// Import job indexes
		"CREATE INDEX IF NOT EXISTS idx_import_jobs_status_created ON import_jobs(status, created_at)",

		// Stock can never go negative, whatever path writes it
		"DO $$ BEGIN ALTER TABLE products ADD CONSTRAINT chk_products_stock_non_negative CHECK (stock >= 0); EXCEPTION WHEN duplicate_object THEN NULL; END $$",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("statement", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// SeedInitialData creates the sentinel category used by the catalog importer.
func SeedInitialData(db *gorm.DB, sentinelCategory string) error {
	logrus.Info("Seeding initial data...")

	var category models.Category
	err := db.Where("name = ?", sentinelCategory).First(&category).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up sentinel category: %w", err)
	}

	category = models.Category{
		Name:        sentinelCategory,
		Description: "Productos importados sin categoría reconocida",
	}
	if err := db.Create(&category).Error; err != nil {
		return fmt.Errorf("failed to create sentinel category: %w", err)
	}

	logrus.WithField("category", sentinelCategory).Info("Sentinel category created")
	return nil
}
