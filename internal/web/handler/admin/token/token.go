// Package token provides the token administration endpoints.
package token

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// ParamTokenID names the token id route parameter.
	ParamTokenID = "tokenId"

	// Path is the base path for tokens.
	Path = handler.SecurityPath + "/tokens"

	// RouteToken addresses a single token.
	RouteToken = "/:" + ParamTokenID
	// RouteRevoke revokes a token.
	RouteRevoke = RouteToken + "/revoke"
	// RouteReinstate reinstates a revoked token.
	RouteReinstate = RouteToken + "/reinstate"
	// RouteValidate validates token data.
	RouteValidate = "/validate"
	// RouteSummaries lists token summaries.
	RouteSummaries = "/summaries"
)

// Service provides the token endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// ValidateInput is the body of a validation request.
type ValidateInput struct {
	Data string `json:"data"`
}

// Init registers routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	group := router.Group(Path,
		auth.Authenticated(deps.Sessions),
		auth.RequireFunction(security.FunctionTokenAdministration),
	)

	group.Get(handler.RouterRootPath, s.List)
	group.Get(RouteSummaries, s.Summaries)
	group.Post(handler.RouterRootPath, s.Generate)
	group.Post(RouteValidate, s.Validate)
	group.Get(RouteToken, s.Get)
	group.Delete(RouteToken, s.Delete)
	group.Post(RouteRevoke, s.Revoke)
	group.Post(RouteReinstate, s.Reinstate)

	return nil
}

// List lists the tokens matching the status and filter query parameters.
func (s *Service) List(c fiber.Ctx) error {
	tokens, err := s.deps.Security.GetTokens(c.Context(), models.TokenStatus(c.Query("status")), c.Query("filter"))
	if err != nil {
		return err
	}

	return c.JSON(tokens)
}

// Summaries lists token summaries matching the status and filter query parameters.
func (s *Service) Summaries(c fiber.Ctx) error {
	summaries, err := s.deps.Security.GetTokenSummaries(c.Context(),
		models.TokenStatus(c.Query("status")), c.Query("filter"))
	if err != nil {
		return err
	}

	return c.JSON(summaries)
}

// Generate issues a token.
func (s *Service) Generate(c fiber.Ctx) error {
	req := security.GenerateTokenRequest{}
	if err := handler.Bind(c, &req); err != nil {
		return err
	}

	token, err := s.deps.Security.GenerateToken(c.Context(), req)
	if err != nil {
		return err
	}

	return handler.Created(c, token)
}

// Validate checks token data and returns the matching token.
func (s *Service) Validate(c fiber.Ctx) error {
	in := new(ValidateInput)
	if err := handler.Bind(c, in); err != nil {
		return err
	}

	token, err := s.deps.Security.ValidateToken(c.Context(), in.Data)
	if err != nil {
		return err
	}

	return c.JSON(token)
}

// Get returns a token.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTokenID)
	if err != nil {
		return err
	}

	token, err := s.deps.Security.GetToken(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(token)
}

// Delete deletes a token.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTokenID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.DeleteToken(c.Context(), id); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Revoke revokes a token.
func (s *Service) Revoke(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTokenID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.RevokeToken(c.Context(), id); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Reinstate reinstates a revoked token.
func (s *Service) Reinstate(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTokenID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.ReinstateToken(c.Context(), id); err != nil {
		return err
	}

	return handler.NoContent(c)
}
