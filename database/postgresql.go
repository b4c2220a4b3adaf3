package database

import (
	"context"
	"time"

	"PathLab/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB opens the database connection and configures the pool. It does not
// migrate; see Migrate.
func InitDB(ctx context.Context, dsn string, development bool, log *zap.Logger) (*gorm.DB, error) {
	logMode := logger.Silent
	if development {
		logMode = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: false,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}

	if err := configureConnectionPool(db); err != nil {
		return nil, err
	}

	if err := testDatabaseConnection(ctx, db); err != nil {
		return nil, err
	}

	log.Info("database connection established")
	return db, nil
}

// configureConnectionPool sets up the connection pool settings for the database.
func configureConnectionPool(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB from GORM")
	}
	sqlDB.SetMaxOpenConns(40)
	sqlDB.SetMaxIdleConns(20)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
	return nil
}

func testDatabaseConnection(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB from GORM")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}
	return nil
}

// Migrate runs schema migrations and seeds the system roles.
func Migrate(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	db = db.WithContext(ctx)
	if err := runMigrations(db); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	if err := seedInitialData(db); err != nil {
		return err
	}
	log.Info("database migrated")
	return nil
}

func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Counter{},
		&models.Lab{},
		&models.Role{},
		&models.Permission{},
		&models.RolePermission{},
		&models.CustomRole{},
		&models.User{},
		&models.Patient{},
		&models.TestDefinition{},
		&models.PathologyBooking{},
		&models.PathologyRegistration{},
		&models.PathologyReport{},
		&models.Appointment{},
	)
}

// seedInitialData populates the database with initial data.
func seedInitialData(db *gorm.DB) error {
	if err := models.SeedRoles(db); err != nil {
		return errors.Wrap(err, "failed to seed roles")
	}
	if err := models.SeedPermissions(db); err != nil {
		return errors.Wrap(err, "failed to seed permissions")
	}
	if err := models.SeedRolePermissions(db); err != nil {
		return errors.Wrap(err, "failed to seed role permissions")
	}
	return nil
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// failure (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState() == "23505"
	}
	return false
}
