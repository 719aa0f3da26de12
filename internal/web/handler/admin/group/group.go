// Package group provides the group administration endpoints of a user directory.
package group

import (
	"github.com/gofiber/fiber/v3"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// ParamUserDirectoryID names the user directory id route parameter.
	ParamUserDirectoryID = "userDirectoryId"
	// ParamGroupName names the group name route parameter.
	ParamGroupName = "groupName"

	// Path is the base path for group administration.
	Path = handler.SecurityPath + "/user-directories/:" + ParamUserDirectoryID + "/groups"
	// NamesPath lists the group names of a user directory.
	NamesPath = handler.SecurityPath + "/user-directories/:" + ParamUserDirectoryID + "/group-names"

	// RouteGroup addresses a single group.
	RouteGroup = "/:" + ParamGroupName
	// RouteMembers lists and adds the members of a group.
	RouteMembers = RouteGroup + "/members"
	// RouteMember removes a member from a group.
	RouteMember = RouteMembers + "/:memberType/:memberName"
	// RouteRoles lists and grants the roles of a group.
	RouteRoles = RouteGroup + "/roles"
	// RouteRoleCodes lists the role codes of a group.
	RouteRoleCodes = RouteGroup + "/role-codes"
	// RouteRole revokes a role from a group.
	RouteRole = RouteRoles + "/:roleCode"
)

// Service provides the group endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// MemberInput is the body adding a member to a group.
type MemberInput struct {
	MemberType models.GroupMemberType `json:"memberType"`
	MemberName string                 `json:"memberName"`
}

// RoleInput is the body granting a role to a group.
type RoleInput struct {
	RoleCode string `json:"roleCode"`
}

// Init registers routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	authenticated := auth.Authenticated(deps.Sessions)
	access := auth.RequireUserDirectoryAccess(ParamUserDirectoryID)
	administration := auth.RequireFunction(security.FunctionGroupAdministration)
	members := auth.RequireFunction(security.FunctionGroupAdministration, security.FunctionUserGroups)

	router.Get(NamesPath, authenticated, access, administration, s.Names)

	group := router.Group(Path, authenticated, access)

	group.Get(handler.RouterRootPath, administration, s.List)
	group.Post(handler.RouterRootPath, administration, s.Create)
	group.Get(RouteGroup, administration, s.Get)
	group.Put(RouteGroup, administration, s.Update)
	group.Delete(RouteGroup, administration, s.Delete)
	group.Get(RouteMembers, members, s.Members)
	group.Post(RouteMembers, members, s.AddMember)
	group.Delete(RouteMember, members, s.RemoveMember)
	group.Get(RouteRoles, administration, s.Roles)
	group.Get(RouteRoleCodes, administration, s.RoleCodes)
	group.Post(RouteRoles, administration, s.AddRole)
	group.Delete(RouteRole, administration, s.RemoveRole)

	return nil
}

// Names lists the group names of a user directory.
func (s *Service) Names(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	names, err := s.deps.Security.GetGroupNames(c.Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(names)
}

// List returns a page of groups.
func (s *Service) List(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	page, err := s.deps.Security.GetGroups(c.Context(), id, handler.ListOptions(c))
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// Create creates a group.
func (s *Service) Create(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	group := new(models.Group)
	if err = handler.Bind(c, group); err != nil {
		return err
	}

	group.UserDirectoryID = id

	if err = s.deps.Security.CreateGroup(c.Context(), group); err != nil {
		return err
	}

	return handler.Created(c, group)
}

// Get returns a group.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	group, err := s.deps.Security.GetGroup(c.Context(), id, handler.Param(c, ParamGroupName))
	if err != nil {
		return err
	}

	return c.JSON(group)
}

// Update updates the description of a group.
func (s *Service) Update(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	group := new(models.Group)
	if err = handler.Bind(c, group); err != nil {
		return err
	}

	group.UserDirectoryID = id
	group.Name = handler.Param(c, ParamGroupName)

	if err = s.deps.Security.UpdateGroup(c.Context(), group); err != nil {
		return err
	}

	return c.JSON(group)
}

// Delete deletes a group without members.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.DeleteGroup(c.Context(), id, handler.Param(c, ParamGroupName)); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Members lists the members of a group.
func (s *Service) Members(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	members, err := s.deps.Security.GetMembersForGroup(c.Context(), id, handler.Param(c, ParamGroupName))
	if err != nil {
		return err
	}

	return c.JSON(members)
}

// AddMember adds a member to a group.
func (s *Service) AddMember(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	in := new(MemberInput)
	if err = handler.Bind(c, in); err != nil {
		return err
	}

	err = s.deps.Security.AddMemberToGroup(c.Context(), id, handler.Param(c, ParamGroupName), in.MemberType, in.MemberName)
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}

// RemoveMember removes a member from a group.
func (s *Service) RemoveMember(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	err = s.deps.Security.RemoveMemberFromGroup(c.Context(), id, handler.Param(c, ParamGroupName),
		models.GroupMemberType(handler.Param(c, "memberType")), handler.Param(c, "memberName"))
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Roles lists the roles granted to a group.
func (s *Service) Roles(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	roles, err := s.deps.Security.GetRolesForGroup(c.Context(), id, handler.Param(c, ParamGroupName))
	if err != nil {
		return err
	}

	return c.JSON(roles)
}

// RoleCodes lists the codes of the roles granted to a group.
func (s *Service) RoleCodes(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	codes, err := s.deps.Security.GetRoleCodesForGroup(c.Context(), id, handler.Param(c, ParamGroupName))
	if err != nil {
		return err
	}

	return c.JSON(codes)
}

// AddRole grants a role to a group. Only administrators may grant the administrator role.
func (s *Service) AddRole(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	in := new(RoleInput)
	if err = handler.Bind(c, in); err != nil {
		return err
	}

	if err = s.deps.Security.AddRoleToGroup(c.Context(), id, handler.Param(c, ParamGroupName), in.RoleCode); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// RemoveRole revokes a role from a group.
func (s *Service) RemoveRole(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	err = s.deps.Security.RemoveRoleFromGroup(c.Context(), id, handler.Param(c, ParamGroupName), handler.Param(c, "roleCode"))
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}
