// Package function provides the role and function administration endpoints.
package function

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// ParamRoleCode names the role code route parameter.
	ParamRoleCode = "roleCode"
	// ParamFunctionCode names the function code route parameter.
	ParamFunctionCode = "functionCode"

	// RolesPath is the base path for roles.
	RolesPath = handler.SecurityPath + "/roles"
	// FunctionsPath is the base path for functions.
	FunctionsPath = handler.SecurityPath + "/functions"

	// RouteRoleFunctions lists and grants the functions of a role.
	RouteRoleFunctions = "/:" + ParamRoleCode + "/function-codes"
	// RouteRoleFunction revokes a function from a role.
	RouteRoleFunction = RouteRoleFunctions + "/:" + ParamFunctionCode
	// RouteFunction addresses a single function.
	RouteFunction = "/:" + ParamFunctionCode
)

// Service provides the role and function endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// FunctionCode is the body granting a function to a role.
type FunctionCode struct {
	FunctionCode string `json:"functionCode"`
}

// Init registers routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	authenticated := auth.Authenticated(deps.Sessions)
	administration := auth.RequireFunction(security.FunctionFunctionAdministration)

	roles := router.Group(RolesPath, authenticated, administration)
	roles.Get(handler.RouterRootPath, s.Roles)
	roles.Get(RouteRoleFunctions, s.RoleFunctionCodes)
	roles.Post(RouteRoleFunctions, s.AddFunctionToRole)
	roles.Delete(RouteRoleFunction, s.RemoveFunctionFromRole)

	functions := router.Group(FunctionsPath, authenticated, administration)
	functions.Get(handler.RouterRootPath, s.List)
	functions.Post(handler.RouterRootPath, s.Create)
	functions.Get(RouteFunction, s.Get)
	functions.Put(RouteFunction, s.Update)
	functions.Delete(RouteFunction, s.Delete)

	return nil
}

// Roles lists every role.
func (s *Service) Roles(c fiber.Ctx) error {
	roles, err := s.deps.Security.GetRoles(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(roles)
}

// RoleFunctionCodes lists the function codes granted to a role.
func (s *Service) RoleFunctionCodes(c fiber.Ctx) error {
	codes, err := s.deps.Security.GetFunctionCodesForRole(c.Context(), handler.Param(c, ParamRoleCode))
	if err != nil {
		return err
	}

	return c.JSON(codes)
}

// AddFunctionToRole grants a function to a role.
func (s *Service) AddFunctionToRole(c fiber.Ctx) error {
	in := new(FunctionCode)
	if err := handler.Bind(c, in); err != nil {
		return err
	}

	if err := s.deps.Security.AddFunctionToRole(c.Context(), handler.Param(c, ParamRoleCode), in.FunctionCode); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// RemoveFunctionFromRole revokes a function from a role.
func (s *Service) RemoveFunctionFromRole(c fiber.Ctx) error {
	err := s.deps.Security.RemoveFunctionFromRole(c.Context(),
		handler.Param(c, ParamRoleCode), handler.Param(c, ParamFunctionCode))
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}

// List lists every function.
func (s *Service) List(c fiber.Ctx) error {
	functions, err := s.deps.Security.GetFunctions(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(functions)
}

// Create creates a function.
func (s *Service) Create(c fiber.Ctx) error {
	function := new(models.Function)
	if err := handler.Bind(c, function); err != nil {
		return err
	}

	if err := s.deps.Security.CreateFunction(c.Context(), function); err != nil {
		return err
	}

	return handler.Created(c, function)
}

// Get returns a function.
func (s *Service) Get(c fiber.Ctx) error {
	function, err := s.deps.Security.GetFunction(c.Context(), handler.Param(c, ParamFunctionCode))
	if err != nil {
		return err
	}

	return c.JSON(function)
}

// Update updates a function.
func (s *Service) Update(c fiber.Ctx) error {
	function := new(models.Function)
	if err := handler.Bind(c, function); err != nil {
		return err
	}

	function.Code = handler.Param(c, ParamFunctionCode)

	if err := s.deps.Security.UpdateFunction(c.Context(), function); err != nil {
		return err
	}

	return c.JSON(function)
}

// Delete deletes a function.
func (s *Service) Delete(c fiber.Ctx) error {
	if err := s.deps.Security.DeleteFunction(c.Context(), handler.Param(c, ParamFunctionCode)); err != nil {
		return err
	}

	return handler.NoContent(c)
}
