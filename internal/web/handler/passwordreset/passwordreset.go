// Package passwordreset exposes the self service password reset flow.
package passwordreset

import (
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/web/handler"
)

// Path is the password reset route.
const Path = handler.APIPath + "/password-resets"

// Service is the password reset handler service.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the password reset handler.
var Handler = Service{}

// InitiateRequest starts a password reset.
type InitiateRequest struct {
	Username         string `json:"username"`
	ResetPasswordURL string `json:"resetPasswordUrl"`
}

// ResetRequest completes a password reset.
type ResetRequest struct {
	Username     string `json:"username"`
	NewPassword  string `json:"newPassword"`
	SecurityCode string `json:"securityCode"`
}

// Init registers the password reset routes. They need no session.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	router.Post(Path, s.Initiate)
	router.Put(Path, s.Reset)

	return nil
}

// Initiate sends a security code to the user. It answers 202 for unknown users too.
func (s *Service) Initiate(c fiber.Ctx) error {
	req := new(InitiateRequest)
	if err := handler.Bind(c, req); err != nil {
		return err
	}

	if req.Username == "" {
		return fmt.Errorf("%w: username is required", problem.ErrInvalidArgument)
	}

	if err := s.deps.Security.InitiatePasswordReset(c.Context(), req.Username, req.ResetPasswordURL, true); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusAccepted)
}

// Reset sets a new password using a security code.
func (s *Service) Reset(c fiber.Ctx) error {
	req := new(ResetRequest)
	if err := handler.Bind(c, req); err != nil {
		return err
	}

	if req.Username == "" || req.NewPassword == "" || req.SecurityCode == "" {
		return fmt.Errorf("%w: username, newPassword and securityCode are required", problem.ErrInvalidArgument)
	}

	err := s.deps.Security.ResetPassword(c.Context(), req.Username, req.NewPassword, req.SecurityCode)
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}
