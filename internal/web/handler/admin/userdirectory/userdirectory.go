// Package userdirectory provides the user directory administration endpoints.
package userdirectory

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/security/directory"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// Path is the base path for user directory administration.
	Path = handler.SecurityPath + "/user-directories"
	// TypesPath lists the user directory types.
	TypesPath = handler.SecurityPath + "/user-directory-types"

	// ParamUserDirectoryID names the user directory id route parameter.
	ParamUserDirectoryID = "userDirectoryId"

	// RouteUserDirectory addresses a single user directory.
	RouteUserDirectory = "/:" + ParamUserDirectoryID
	// RouteName returns the name of a user directory.
	RouteName = RouteUserDirectory + "/name"
	// RouteType returns the type of a user directory.
	RouteType = RouteUserDirectory + "/type"
	// RouteCapabilities returns the capabilities of a user directory.
	RouteCapabilities = RouteUserDirectory + "/capabilities"
	// RouteTenants lists the tenants a user directory is linked to.
	RouteTenants = RouteUserDirectory + "/tenants"

	maskedValue = "********"
)

// Service provides the user directory endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes. Reading a single user directory is open to principals with access to it;
// everything else needs the user directory administration function.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	authenticated := auth.Authenticated(deps.Sessions)
	administration := auth.RequireFunction(security.FunctionUserDirectoryAdministration)
	access := auth.RequireUserDirectoryAccess(ParamUserDirectoryID)

	router.Get(TypesPath, authenticated, s.Types)

	group := router.Group(Path, authenticated)

	group.Get(handler.RouterRootPath, administration, s.List)
	group.Post(handler.RouterRootPath, administration, s.Create)
	group.Get(RouteUserDirectory, access, s.Get)
	group.Put(RouteUserDirectory, administration, s.Update)
	group.Delete(RouteUserDirectory, administration, s.Delete)
	group.Get(RouteName, access, s.Name)
	group.Get(RouteType, access, s.Type)
	group.Get(RouteCapabilities, access, s.Capabilities)
	group.Get(RouteTenants, administration, s.Tenants)

	return nil
}

// Types lists the user directory types.
func (s *Service) Types(c fiber.Ctx) error {
	return c.JSON(s.deps.Security.GetUserDirectoryTypes())
}

// List returns a page of user directory summaries.
func (s *Service) List(c fiber.Ctx) error {
	page, err := s.deps.Security.GetUserDirectorySummaries(c.Context(), handler.ListOptions(c))
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// Create creates a user directory.
func (s *Service) Create(c fiber.Ctx) error {
	ud := new(models.UserDirectory)
	if err := handler.Bind(c, ud); err != nil {
		return err
	}

	if err := s.deps.Security.CreateUserDirectory(c.Context(), ud); err != nil {
		return err
	}

	return handler.Created(c, masked(ud))
}

// Get returns a user directory with its secret parameters masked.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	ud, err := s.deps.Security.GetUserDirectory(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(masked(ud))
}

// Update replaces a user directory and its parameters.
func (s *Service) Update(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	ud := new(models.UserDirectory)
	if err = handler.Bind(c, ud); err != nil {
		return err
	}

	ud.ID = id

	if err = s.unmask(c, ud); err != nil {
		return err
	}

	if err = s.deps.Security.UpdateUserDirectory(c.Context(), ud); err != nil {
		return err
	}

	return c.JSON(masked(ud))
}

// Delete deletes a user directory.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.DeleteUserDirectory(c.Context(), id); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Name returns the name of a user directory.
func (s *Service) Name(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	name, err := s.deps.Security.GetUserDirectoryName(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(&handler.Name{Name: name})
}

// Type returns the type of a user directory.
func (s *Service) Type(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	t, err := s.deps.Security.GetUserDirectoryTypeForUserDirectory(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(t)
}

// Capabilities returns the operations a user directory supports.
func (s *Service) Capabilities(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	capabilities, err := s.deps.Security.GetUserDirectoryCapabilities(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(capabilities)
}

// Tenants lists the tenants a user directory is linked to.
func (s *Service) Tenants(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	tenants, err := s.deps.Security.GetTenantsForUserDirectory(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(tenants)
}

// unmask restores secret parameters a client sent back masked.
func (s *Service) unmask(c fiber.Ctx, ud *models.UserDirectory) error {
	for i := range ud.Parameters {
		if ud.Parameters[i].Name != directory.ParamBindPassword || ud.Parameters[i].Value != maskedValue {
			continue
		}

		existing, err := s.deps.Security.GetUserDirectory(c.Context(), ud.ID)
		if err != nil {
			return err
		}

		ud.Parameters[i].Value, _ = existing.Parameter(directory.ParamBindPassword)
	}

	return nil
}

// masked copies ud with the LDAP bind password hidden.
func masked(ud *models.UserDirectory) *models.UserDirectory {
	out := *ud
	out.Parameters = make([]models.UserDirectoryParameter, len(ud.Parameters))

	for i, p := range ud.Parameters {
		if p.Name == directory.ParamBindPassword && p.Value != "" {
			p.Value = maskedValue
		}

		out.Parameters[i] = p
	}

	return &out
}
