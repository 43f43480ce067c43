package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pageza/fridgechef/backend/config"
)

// New opens the configured database and sets up the connection pool
func New(cfg *config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		log.WithFields(logrus.Fields{"host": cfg.DBHost, "port": cfg.DBPort, "user": cfg.DBUser}).Info("connecting to postgres")
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		path := cfg.DatabaseURL
		if path == "" {
			path = "fridgechef.db"
		}
		log.WithField("path", path).Info("opening sqlite database")
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	return Open(dialector, log)
}

// gormWriter sends gorm's warnings, errors and slow queries to logrus
type gormWriter struct {
	log logrus.FieldLogger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warnf(format, args...)
}

func newGormLogger(log logrus.FieldLogger) logger.Interface {
	return logger.New(gormWriter{log: log.WithField("component", "gorm")}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Open connects through dialector and verifies the connection
func Open(dialector gorm.Dialector, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("error getting database handle: %w", err)
	}

	if db.Dialector.Name() == "sqlite" {
		// sqlite allows a single writer; :memory: databases are per connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(25)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	return db, nil
}

// HealthCheck checks if the database is accessible
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
