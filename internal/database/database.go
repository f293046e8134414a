package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the database connection
var DB *gorm.DB

// Initialize creates and configures the database connection
func Initialize(databaseURL string) error {
	gormLogger := logger.Default
	if os.Getenv("ENVIRONMENT") == "development" {
		gormLogger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	DB = db
	log.Println("Database connected")

	return nil
}

// Migrate runs auto-migration for all models
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.CommentLike{},
		&models.SavedPost{},
		&models.Interaction{},
		&models.Notification{},
		&models.AnalyticsSession{},
		&models.AnalyticsEvent{},
		&models.RequestMetric{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed")
	return nil
}

// createIndexes creates performance indexes
func createIndexes() error {
	// Feed candidate-window query walks posts newest-first
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_feed ON posts (created_at DESC) WHERE deleted_at IS NULL AND flagged = false AND lounge_id IS NULL")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_posts_author_created ON posts (author_id, created_at DESC)")

	// Comment counts per post
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_comments_post_not_deleted ON comments (post_id) WHERE deleted_at IS NULL")

	// Time-bounded aggregation scans
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_analytics_events_created ON analytics_events (created_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_analytics_events_type_created ON analytics_events (type, created_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_analytics_sessions_started ON analytics_sessions (started_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_interactions_created ON interactions (created_at)")
	DB.Exec("CREATE INDEX IF NOT EXISTS idx_request_metrics_created ON request_metrics (created_at)")

	return nil
}

// Close closes the database connection
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// Health checks database connectivity
func Health() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}
