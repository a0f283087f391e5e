// Package repositories provides the persistence surface of the pickup
// server: key-value blobs, check-in stores, users and the notification log.
package repositories

import (
	"fmt"
	"log"
	"os"
	"time"

	"geopickup/internal/config"
	"geopickup/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBConfig holds database connection pool configuration
type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

var defaultDBConfig = DBConfig{
	MaxIdleConns:    10,
	MaxOpenConns:    100,
	ConnMaxLifetime: time.Hour,
	ConnMaxIdleTime: time.Minute * 30,
}

// migrated lists every table owned by the server.
var migrated = []interface{}{
	&models.User{},
	&models.Student{},
	&models.Vehicle{},
	&models.CheckIn{},
	&models.NotificationLog{},
	&KVBlob{},
}

// OpenPostgres connects to the configured database, applies the pool
// settings and runs migrations.
func OpenPostgres(cfg config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	// Ignore "record not found", lookups treat it as a normal miss
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  !cfg.IsProduction(),
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(defaultDBConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(defaultDBConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(defaultDBConfig.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(defaultDBConfig.ConnMaxIdleTime)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("✅ PostgreSQL connected & migrations applied successfully!")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(migrated...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// ResetDatabase drops and recreates every table.
func ResetDatabase(db *gorm.DB) error {
	if err := db.Migrator().DropTable(migrated...); err != nil {
		return err
	}
	return Migrate(db)
}
