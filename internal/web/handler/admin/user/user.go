// Package user provides the user administration endpoints of a user directory.
package user

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/web/handler"
	"github.com/lobkit/identity/internal/web/middleware/auth"
)

const (
	// ParamUserDirectoryID names the user directory id route parameter.
	ParamUserDirectoryID = "userDirectoryId"
	// ParamUsername names the username route parameter.
	ParamUsername = "username"

	// Path is the base path for user administration.
	Path = handler.SecurityPath + "/user-directories/:" + ParamUserDirectoryID + "/users"

	// RouteUser addresses a single user.
	RouteUser = "/:" + ParamUsername
	// RouteName returns the full name of a user.
	RouteName = RouteUser + "/name"
	// RoutePassword sets the password of a user.
	RoutePassword = RouteUser + "/password"
	// RouteGroups lists the group names of a user.
	RouteGroups = RouteUser + "/groups"
	// RouteRoles lists the role codes of a user.
	RouteRoles = RouteUser + "/role-codes"
	// RouteFunctions lists the function codes of a user.
	RouteFunctions = RouteUser + "/function-codes"
	// RouteGroupMembership checks or changes the membership of a user in a group.
	RouteGroupMembership = RouteGroups + "/:group"
)

// Service provides the user endpoints.
type Service struct {
	handler.Service
	deps *handler.Dependencies
}

// Handler is the exported instance.
var Handler = Service{}

// Membership answers group membership checks.
type Membership struct {
	Member bool `json:"member"`
}

// Init registers routes.
func (s *Service) Init(router fiber.Router, deps *handler.Dependencies) error {
	if router == nil || !deps.Valid() {
		return handler.ErrNilDependencies
	}

	s.deps = deps

	group := router.Group(Path,
		auth.Authenticated(deps.Sessions),
		auth.RequireUserDirectoryAccess(ParamUserDirectoryID),
	)

	administration := auth.RequireFunction(security.FunctionUserAdministration)
	userGroups := auth.RequireFunction(security.FunctionUserAdministration, security.FunctionUserGroups)
	passwords := auth.RequireFunction(security.FunctionUserAdministration, security.FunctionResetUserPassword)

	group.Get(handler.RouterRootPath, administration, s.List)
	group.Post(handler.RouterRootPath, administration, s.Create)
	group.Get(RouteUser, administration, s.Get)
	group.Put(RouteUser, administration, s.Update)
	group.Delete(RouteUser, administration, s.Delete)
	group.Get(RouteName, administration, s.Name)
	group.Put(RoutePassword, passwords, s.AdminChangePassword)
	group.Get(RouteGroups, userGroups, s.Groups)
	group.Get(RouteGroupMembership, userGroups, s.IsMember)
	group.Put(RouteGroupMembership, userGroups, s.AddToGroup)
	group.Delete(RouteGroupMembership, userGroups, s.RemoveFromGroup)
	group.Get(RouteRoles, administration, s.RoleCodes)
	group.Get(RouteFunctions, administration, s.FunctionCodes)

	return nil
}

// List returns a page of users, see the filter, sortBy, sortDirection, pageIndex and pageSize
// query parameters.
func (s *Service) List(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	page, err := s.deps.Security.GetUsers(c.Context(), id, repository.UserListOptions{
		ListOptions: handler.ListOptions(c),
		SortBy:      models.ParseUserSortBy(c.Query("sortBy")),
	})
	if err != nil {
		return err
	}

	return c.JSON(page)
}

// Create creates a user. The body carries the initial password; expiredPassword=true and
// userLocked=true control the initial state.
func (s *Service) Create(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	user, err := bindUser(c, id)
	if err != nil {
		return err
	}

	err = s.deps.Security.CreateUser(c.Context(), user,
		handler.BoolQuery(c, "expiredPassword"), handler.BoolQuery(c, "userLocked"))
	if err != nil {
		return err
	}

	return handler.Created(c, user)
}

// Get returns a user.
func (s *Service) Get(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	user, err := s.deps.Security.GetUser(c.Context(), id, handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Update updates a user; expirePassword=true and lockUser=true apply those changes too.
func (s *Service) Update(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	user, err := bindUser(c, id)
	if err != nil {
		return err
	}

	user.Username = handler.Param(c, ParamUsername)

	err = s.deps.Security.UpdateUser(c.Context(), user,
		handler.BoolQuery(c, "expirePassword"), handler.BoolQuery(c, "lockUser"))
	if err != nil {
		return err
	}

	return c.JSON(user)
}

// Delete deletes a user.
func (s *Service) Delete(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	if err = s.deps.Security.DeleteUser(c.Context(), id, handler.Param(c, ParamUsername)); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Name returns the full name of a user.
func (s *Service) Name(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	name, err := s.deps.Security.GetUserName(c.Context(), id, handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return c.JSON(&handler.Name{Name: name})
}

// AdminChangePassword sets the password of a user on behalf of the principal.
func (s *Service) AdminChangePassword(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	req := new(security.AdminChangePasswordRequest)
	if err = handler.Bind(c, req); err != nil {
		return err
	}

	if err = s.deps.Security.AdminChangePassword(c.Context(), id, handler.Param(c, ParamUsername), *req); err != nil {
		return err
	}

	return handler.NoContent(c)
}

// Groups lists the names of the groups of a user.
func (s *Service) Groups(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	names, err := s.deps.Security.GetGroupNamesForUser(c.Context(), id, handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return c.JSON(names)
}

// IsMember reports whether a user is a member of a group.
func (s *Service) IsMember(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	member, err := s.deps.Security.IsUserInGroup(c.Context(), id, handler.Param(c, "group"), handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return c.JSON(&Membership{Member: member})
}

// AddToGroup adds a user to a group.
func (s *Service) AddToGroup(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	err = s.deps.Security.AddUserToGroup(c.Context(), id, handler.Param(c, "group"), handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}

// RemoveFromGroup removes a user from a group.
func (s *Service) RemoveFromGroup(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	err = s.deps.Security.RemoveUserFromGroup(c.Context(), id, handler.Param(c, "group"), handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return handler.NoContent(c)
}

// RoleCodes lists the role codes granted to a user through their groups.
func (s *Service) RoleCodes(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	codes, err := s.deps.Security.GetRoleCodesForUser(c.Context(), id, handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return c.JSON(codes)
}

// FunctionCodes lists the function codes granted to a user through their roles.
func (s *Service) FunctionCodes(c fiber.Ctx) error {
	id, err := handler.UUIDParam(c, ParamUserDirectoryID)
	if err != nil {
		return err
	}

	codes, err := s.deps.Security.GetFunctionCodesForUser(c.Context(), id, handler.Param(c, ParamUsername))
	if err != nil {
		return err
	}

	return c.JSON(codes)
}

// userInput is the user request body. Unlike models.User it accepts a password.
type userInput struct {
	Username      string            `json:"username"`
	Name          string            `json:"name"`
	PreferredName string            `json:"preferredName"`
	PhoneNumber   string            `json:"phoneNumber"`
	MobileNumber  string            `json:"mobileNumber"`
	Email         string            `json:"email"`
	Password      string            `json:"password"`
	Status        models.UserStatus `json:"status"`
}

func bindUser(c fiber.Ctx, userDirectoryID uuid.UUID) (*models.User, error) {
	in := &userInput{Status: models.UserStatusActive}
	if err := handler.Bind(c, in); err != nil {
		return nil, err
	}

	return &models.User{
		UserDirectoryID: userDirectoryID,
		Username:        in.Username,
		Name:            in.Name,
		PreferredName:   in.PreferredName,
		PhoneNumber:     in.PhoneNumber,
		MobileNumber:    in.MobileNumber,
		Email:           in.Email,
		Password:        in.Password,
		Status:          in.Status,
	}, nil
}
