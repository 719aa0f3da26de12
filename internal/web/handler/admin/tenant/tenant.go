// Package tenant provides the tenant administration endpoints.
package tenant

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// Path is the base path for tenant administration.
	Path = handler.SecurityPath + "/tenants"

	// ParamTenantID names the tenant id route parameter.
	ParamTenantID = "tenantId"
	// ParamUserDirectoryID names the user directory id route parameter.
	ParamUserDirectoryID = "userDirectoryId"

	// RouteTenant addresses a single tenant.
	RouteTenant = "/:" + ParamTenantID
	// RouteName returns the name of a tenant.
	RouteName = RouteTenant + "/name"
	// RouteUserDirectories lists and links the user directories of a tenant.
	RouteUserDirectories = RouteTenant + "/user-directories"
	// RouteUserDirectory unlinks a user directory from a tenant.
	RouteUserDirectory = RouteUserDirectories + "/:" + ParamUserDirectoryID
)

// Service provides the tenant endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// UserDirectoryLink is the body linking a user directory to a tenant.
type UserDirectoryLink struct {
	UserDirectoryID uuid.UUID `json:"userDirectoryId"`
}

// CreateResponse is the body answering a tenant creation.
type CreateResponse struct {
	Tenant        *models.Tenant        `json:"tenant"`
	UserDirectory *models.UserDirectory `json:"userDirectory,omitempty"`
}

// Init registers routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	group := router.Group(Path,
		auth.Authenticated(deps.Sessions),
		auth.RequireFunction(security.FunctionTenantAdministration),
	)

	group.Get(handler.RouterRootPath, s.List)
	group.Post(handler.RouterRootPath, s.Create)
	group.Get(RouteTenant, s.Get)
	group.Put(RouteTenant, s.Update)
	group.Delete(RouteTenant, s.Delete)
	group.Get(RouteName, s.Name)
	group.Get(RouteUserDirectories, s.UserDirectories)
	group.Post(RouteUserDirectories, s.AddUserDirectory)
	group.Delete(RouteUserDirectory, s.RemoveUserDirectory)

	return nil
}

// List returns a page of tenants.
func (s *Service) List(c fiber.Ctx) error {
	page, err := s.deps.Security.GetTenants(c.Context(), handler.ListOptions(c))
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// Create creates a tenant, with its own internal user directory when createUserDirectory=true.
func (s *Service) Create(c fiber.Ctx) error {
	tenant := new(models.Tenant)
	if err := handler.Bind(c, tenant); err != nil {
		return err
	}

	ud, err := s.deps.Security.CreateTenant(c.Context(), tenant, handler.BoolQuery(c, "createUserDirectory"))
	if err != nil {
		return err
	}

	return handler.Created(c, &CreateResponse{Tenant: tenant, UserDirectory: ud})
}

// Get returns a tenant.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	tenant, err := s.deps.Security.GetTenant(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(tenant)
}

// Update updates a tenant.
func (s *Service) Update(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	tenant := new(models.Tenant)
	if err = handler.Bind(c, tenant); err != nil {
		return err
	}

	tenant.ID = id

	if err = s.deps.Security.UpdateTenant(c.Context(), tenant); err != nil {
		return err
	}

	return c.JSON(tenant)
}

// Delete deletes a tenant.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.DeleteTenant(c.Context(), id); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Name returns the name of a tenant.
func (s *Service) Name(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	name, err := s.deps.Security.GetTenantName(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(&handler.Name{Name: name})
}

// UserDirectories returns the summaries of the user directories of a tenant.
func (s *Service) UserDirectories(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	summaries, err := s.deps.Security.GetUserDirectorySummariesForTenant(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(summaries)
}

// AddUserDirectory links a user directory to a tenant.
func (s *Service) AddUserDirectory(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	link := new(UserDirectoryLink)
	if err = handler.Bind(c, link); err != nil {
		return err
	}

	if err = s.deps.Security.AddUserDirectoryToTenant(c.Context(), id, link.UserDirectoryID); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// RemoveUserDirectory unlinks a user directory from a tenant.
func (s *Service) RemoveUserDirectory(c fiber.Ctx) error {
	tenantID, err := handler.UUIDParam(c, ParamTenantID)
	if err != nil {
		return err
	}

	userDirectoryID, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.RemoveUserDirectoryFromTenant(c.Context(), tenantID, userDirectoryID); err != nil {
		return err
	}

	return handler.NoContent(c)
}
