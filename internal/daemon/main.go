// Package daemon wires the database, the security service, the maintenance jobs and the web
// service of the identity service.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/db"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/maintenance"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/session"
)

// ErrConfigNil is returned by New without a configuration.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	sessions   *session.Store
	scheduler  *maintenance.Scheduler
	webService *web.Service
}

// Start runs the maintenance jobs and the web service until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	if d.scheduler != nil {
		d.scheduler.Start()
		defer d.scheduler.Stop()
	}

	defer d.close()

	go d.webService.WaitShutdown()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

func (d *Daemon) close() {
	if err := d.sessions.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close session storage")
	}

	if sqlDB, err := d.db.DB(); err == nil {
		if err = sqlDB.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}
}

// New creates a new Daemon: it migrates the database, seeds the default records and builds the
// services from cfg.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(gdb); err != nil {
		return nil, err
	}

	repos, err := repository.New(gdb)
	if err != nil {
		return nil, err
	}

	svc, err := security.New(repos,
		security.WithTokenSigning(cfg.Security.TokenIssuer, []byte(cfg.Security.TokenSigningKey)),
		security.WithPasswordReset(cfg.Security.PasswordResetExpiry, cfg.Security.PasswordResetURL),
	)
	if err != nil {
		return nil, err
	}

	if err = seed(context.Background(), cfg, svc); err != nil {
		return nil, err
	}

	sessions, err := session.New(session.NewStorage(cfg), cfg.Webserver.Session)
	if err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg, db: gdb, sessions: sessions}

	if cfg.Maintenance.Enabled {
		if d.scheduler, err = maintenance.New(cfg.Maintenance, svc, svc.PasswordResetExpiry()); err != nil {
			return nil, err
		}
	}

	d.webService, err = web.New(&handler.Dependencies{
		Config:         cfg,
		Security:       svc,
		Authentication: security.NewAuthenticationManager(svc, svc.UserDetailsService()),
		Sessions:       sessions,
	})
	if err != nil {
		return nil, err
	}

	return d, nil
}
