package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/exambank/exambank/internal/entities"
)

// Driver names accepted by NewDatabase.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the configured datastore and migrates the schema.
// DSN is a file path for sqlite and a connection string for postgres.
func NewDatabase(driver, dsn string) (*Database, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.Source{},
		&entities.SourceSegment{},
		&entities.Tag{},
		&entities.Exercise{},
		&entities.ExerciseTag{},
		&entities.ExerciseSourceSegment{},
		&entities.Variant{},
		&entities.VariantExercise{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Printf("Database initialized (%s)", driverLabel(driver))

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func driverLabel(driver string) string {
	if driver == "" {
		return DriverSQLite
	}
	return driver
}
