// Package login authenticates users, opens their session and lets them change their password.
package login

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// Path is the login route.
	Path = handler.APIPath + "/login"
	// MePath returns the principal of the session.
	MePath = handler.APIPath + "/me"
	// ChangePasswordPath changes the password of a user who knows the current one.
	ChangePasswordPath = handler.APIPath + "/change-password"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the login handler.
var Handler = Service{}

// Request is the login request body.
type Request struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Response is the body of a successful login.
type Response struct {
	SessionID string                `json:"sessionId"`
	ExpiresIn int64                 `json:"expiresIn"`
	Principal *security.UserDetails `json:"principal"`
}

// ChangePasswordRequest is the change password request body.
type ChangePasswordRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

// Init registers the login routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	router.Post(Path, s.Login)
	router.Post(ChangePasswordPath, s.ChangePassword)
	router.Get(MePath, auth.Authenticated(deps.Sessions), s.Me)

	return nil
}

// Login verifies the credentials and opens a session. The session id is set as cookie and
// returned for clients sending it as bearer token.
func (s *Service) Login(c fiber.Ctx) error {
	req := new(Request)
	if err := handler.Bind(c, req); err != nil {
		return err
	}

	if req.Username == "" || req.Password == "" {
		return fmt.Errorf("%w: username and password are required", problem.ErrInvalidArgument)
	}

	authentication, err := s.deps.Authentication.Authenticate(c.Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	principal := authentication.Principal

	if !principal.IsEnabled() {
		return fmt.Errorf("%w: %s is inactive", problem.ErrAuthenticationFailed, principal.Username)
	}

	sessionID, err := s.deps.Sessions.Create(principal)
	if err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.deps.Sessions.CookieName(),
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(s.deps.Sessions.Expiry().Seconds()),
		Secure:   s.deps.Sessions.CookieSecure(),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	c.Locals(auth.LocalsUsername, principal.Username)
	log.Info().Str("username", principal.Username).Msg("user logged in")

	return c.JSON(&Response{
		SessionID: sessionID,
		ExpiresIn: int64(s.deps.Sessions.Expiry().Seconds()),
		Principal: principal,
	})
}

// Me returns the principal of the session.
func (s *Service) Me(c fiber.Ctx) error {
	principal, ok := auth.Principal(c)
	if !ok {
		return problem.ErrAuthenticationFailed
	}

	return c.JSON(principal)
}

// ChangePassword changes the password of a user who knows the current one. It does not need a
// session so users with expired passwords can use it.
func (s *Service) ChangePassword(c fiber.Ctx) error {
	req := new(ChangePasswordRequest)
	if err := handler.Bind(c, req); err != nil {
		return err
	}

	if req.Username == "" || req.Password == "" || req.NewPassword == "" {
		return fmt.Errorf("%w: username, password and newPassword are required", problem.ErrInvalidArgument)
	}

	if err := s.deps.Security.ChangePassword(c.Context(), req.Username, req.Password, req.NewPassword); err != nil {
		return err
	}

	return handler.NoContent(c)
}
