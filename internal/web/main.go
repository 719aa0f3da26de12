// Package web serves the REST API of the identity service.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	accesslog "github.com/lobkit/identity/internal/logger/adapter/fiber"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/handler/admin/function"
	"github.com/lobkit/identity/internal/web/handler/admin/group"
	"github.com/lobkit/identity/internal/web/handler/admin/policy"
	"github.com/lobkit/identity/internal/web/handler/admin/tenant"
	"github.com/lobkit/identity/internal/web/handler/admin/token"
	"github.com/lobkit/identity/internal/web/handler/admin/user"
	"github.com/lobkit/identity/internal/web/handler/admin/userdirectory"
	"github.com/lobkit/identity/internal/web/handler/login"
	"github.com/lobkit/identity/internal/web/handler/logout"
	"github.com/lobkit/identity/internal/web/handler/passwordreset"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"
	// MetricsPath exposes the prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	deps         *handler.Dependencies
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it stops.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	s.alive.Store(true)

	go func() {
		err := s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneFiber <- fmt.Errorf("fiber listen: %w", err)
			return
		}

		doneFiber <- nil
	}()

	log.Info().Str("addr", addr).Msg("http server started")

	return <-doneFiber // wait for fiber to stop
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the http server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown stops the http server. Unless fast shutdown is set, checkalive fails for the configured
// shutdown time first so load balancers can remove this instance.
func (s *Service) Shutdown() {
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.deps.Config.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.deps.Config.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// SetFastShutdown skips the graceful shutdown delay.
func (s *Service) SetFastShutdown(fast bool) {
	s.fastShutDown = fast
}

// CheckAlive answers 200 while the service accepts traffic and 503 during shutdown.
func (s *Service) CheckAlive(c fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// New creates the web service and registers every handler.
func New(deps *handler.Dependencies) (*Service, error) {
	if !deps.Valid() {
		return nil, handler.ErrNilDependencies
	}

	cfg := deps.Config

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
			ErrorHandler:   ErrorHandler,
		},
	)

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		ErrorHandler:  ErrorHandler,
		CheckAliveURI: CheckAlivePath,
	}))

	if !cfg.Webserver.DisableRecover {
		app.Use(recoverer.New(recoverer.Config{EnableStackTrace: cfg.DevMode}))
	}

	service := &Service{
		App:  app,
		deps: deps,
	}

	// alive until shutdown, also when the app is driven through App.Test
	service.alive.Store(true)

	app.Get(CheckAlivePath, service.CheckAlive)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	handlers := []handler.Service{
		&login.Handler,
		&logout.Handler,
		&passwordreset.Handler,
		&tenant.Handler,
		&userdirectory.Handler,
		&user.Handler,
		&group.Handler,
		&function.Handler,
		&token.Handler,
		&policy.Handler,
	}

	for _, h := range handlers {
		if err := h.Init(app, deps); err != nil {
			return nil, fmt.Errorf("init handler %T: %w", h, err)
		}
	}

	return service, nil
}
