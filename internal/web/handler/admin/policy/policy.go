// Package policy provides the XACML policy administration endpoints.
package policy

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// ParamPolicyID names the policy id route parameter.
	ParamPolicyID = "policyId"

	// Path is the base path for policies.
	Path = handler.SecurityPath + "/policies"

	// RoutePolicy addresses a single policy.
	RoutePolicy = "/:" + ParamPolicyID
)

// Service provides the policy endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	group := router.Group(Path,
		auth.Authenticated(deps.Sessions),
		auth.RequireFunction(security.FunctionPolicyAdministration),
	)

	group.Get(handler.RouterRootPath, s.List)
	group.Post(handler.RouterRootPath, s.Create)
	group.Get(RoutePolicy, s.Get)
	group.Put(RoutePolicy, s.Update)
	group.Delete(RoutePolicy, s.Delete)

	return nil
}

// List returns a page of policy summaries.
func (s *Service) List(c fiber.Ctx) error {
	page, err := s.deps.Security.GetPolicySummaries(c.Context(), handler.ListOptions(c))
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// Create stores a policy. Its id, version and type are read from the XACML data.
func (s *Service) Create(c fiber.Ctx) error {
	policy := new(models.Policy)
	if err := handler.Bind(c, policy); err != nil {
		return err
	}

	if err := s.deps.Security.CreatePolicy(c.Context(), policy); err != nil {
		return err
	}

	return handler.Created(c, policy)
}

// Get returns a policy.
func (s *Service) Get(c fiber.Ctx) error {
	policy, err := s.deps.Security.GetPolicy(c.Context(), handler.Param(c, ParamPolicyID))
	if err != nil {
		return err
	}

	return c.JSON(policy)
}

// Update replaces a policy.
func (s *Service) Update(c fiber.Ctx) error {
	policy := new(models.Policy)
	if err := handler.Bind(c, policy); err != nil {
		return err
	}

	policy.ID = handler.Param(c, ParamPolicyID)

	if err := s.deps.Security.UpdatePolicy(c.Context(), policy); err != nil {
		return err
	}

	return c.JSON(policy)
}

// Delete deletes a policy.
func (s *Service) Delete(c fiber.Ctx) error {
	if err := s.deps.Security.DeletePolicy(c.Context(), handler.Param(c, ParamPolicyID)); err != nil {
		return err
	}

	return handler.NoContent(c)
}
