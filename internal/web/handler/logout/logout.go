// Package logout ends sessions.
package logout

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

// Path is the logout route.
const Path = handler.APIPath + "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the logout handler.
var Handler = Service{}

// Init registers the logout route. It needs no valid session.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	router.Post(Path, s.Logout)

	return nil
}

// Logout deletes the session and clears the session cookie.
func (s *Service) Logout(c fiber.Ctx) error {
	if sessionID := auth.SessionIDFromRequest(c, s.deps.Sessions.CookieName()); sessionID != "" {
		if err := s.deps.Sessions.Delete(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to delete session")
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.deps.Sessions.CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   s.deps.Sessions.CookieSecure(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return handler.NoContent(c)
}
