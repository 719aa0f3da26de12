// Package dsn provides Data Source Name construction utilities for database connections.
package dsn

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/lobkit/identity/internal/config"
)

// Create builds the gorm Data Source Name of the configured engine.
func Create(cfg *config.Config) string {
	switch cfg.DB.GormEngine {
	case config.EnginePostgres:
		return PostgresURI(cfg)
	case config.EngineSQLite:
		return SQLite(cfg)
	default:
		return MySQL(cfg)
	}
}

// MySQL builds a go-sql-driver/mysql DSN.
func MySQL(cfg *config.Config) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.Name,
	)

	if cfg.DB.Extras != "" {
		out += "?" + cfg.DB.Extras
	}

	return out
}

// PostgresURI builds a postgres connection URI, usable by gorm and by the postgres session storage.
func PostgresURI(cfg *config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.DB.User, cfg.DB.Password),
		Host:     cfg.DB.Host + ":" + strconv.Itoa(cfg.DB.Port),
		Path:     "/" + cfg.DB.Name,
		RawQuery: cfg.DB.Extras,
	}

	return u.String()
}

// SQLite returns the sqlite database file, ":memory:" when no name is configured.
func SQLite(cfg *config.Config) string {
	if cfg.DB.Name == "" {
		return ":memory:"
	}

	return cfg.DB.Name
}
