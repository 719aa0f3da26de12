// Package db opens the configured database and migrates the security schema.
package db

import (
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/db/dsn"
	"github.com/lobkit/identity/internal/db/models"
	gormadapter "github.com/lobkit/identity/internal/logger/adapter/gorm"
)

// Open connects to the database of the configured gorm engine.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var (
		dialector gorm.Dialector
		source    = dsn.Create(cfg)
	)

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		dialector = gormmysql.Open(source)
	case config.EnginePostgres:
		dialector = gormpostgres.Open(source)
	case config.EngineSQLite:
		dialector = sqlite.Open(source)
	default:
		return nil, config.ErrUnsupportedGormEngine
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormadapter.New(cfg.Log.SQL)})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to access database pool")
	}

	if cfg.DB.GormEngine == config.EngineSQLite {
		// sqlite serialises writers; a single connection also keeps ":memory:" databases alive
		sqlDB.SetMaxOpenConns(1)
	} else {
		if cfg.DB.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		}

		if cfg.DB.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		}
	}

	if cfg.DB.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	return db, nil
}

// Migrate creates or updates the security schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return errors.Wrap(err, "failed to migrate database")
	}

	return nil
}

// OpenMemory opens a migrated in-memory sqlite database.
func OpenMemory() (*gorm.DB, error) {
	db, err := Open(&config.Config{DB: config.DB{GormEngine: config.EngineSQLite}})
	if err != nil {
		return nil, err
	}

	return db, Migrate(db)
}
