package security

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

func supportsGroupAdministration(c directory.Capabilities) bool {
	return c.SupportsGroupAdministration
}

func supportsGroupMemberAdministration(c directory.Capabilities) bool {
	return c.SupportsGroupMemberAdministration
}

// CreateGroup creates a group in its user directory.
func (s *Service) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := s.validate(ctx, group); err != nil {
		return err
	}

	_, err := s.userDirectoryWith(ctx, group.UserDirectoryID, supportsGroupAdministration, "create group")
	if err != nil {
		return err
	}

	duplicate, err := s.repos.Groups.ExistsByName(ctx, group.UserDirectoryID, group.Name, uuid.Nil)
	if err != nil {
		return err
	}

	if duplicate {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateGroup, group.Name)
	}

	group.ID = uuid.Nil

	return s.repos.Groups.Create(ctx, group)
}

// UpdateGroup updates the description of a group.
func (s *Service) UpdateGroup(ctx context.Context, group *models.Group) error {
	if err := s.validate(ctx, group); err != nil {
		return err
	}

	_, err := s.userDirectoryWith(ctx, group.UserDirectoryID, supportsGroupAdministration, "update group")
	if err != nil {
		return err
	}

	existing, err := s.repos.Groups.FindByName(ctx, group.UserDirectoryID, group.Name)
	if err != nil {
		return err
	}

	existing.Description = group.Description

	if err = s.repos.Groups.Save(ctx, existing); err != nil {
		return err
	}

	*group = *existing

	return nil
}

// DeleteGroup deletes a group without members together with its role grants.
func (s *Service) DeleteGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName string) error {
	_, err := s.userDirectoryWith(ctx, userDirectoryID, supportsGroupAdministration, "delete group")
	if err != nil {
		return err
	}

	group, err := s.repos.Groups.FindByName(ctx, userDirectoryID, groupName)
	if err != nil {
		return err
	}

	members, err := s.repos.Groups.CountMembers(ctx, group.ID)
	if err != nil {
		return err
	}

	if members > 0 {
		return fmt.Errorf("%w: %s has %d members", problem.ErrExistingGroupMembers, group.Name, members)
	}

	return s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Groups.Delete(ctx, group.ID)
	})
}

// GetGroup retrieves a group.
func (s *Service) GetGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName string) (*models.Group, error) {
	if err := s.userDirectoryMustExist(ctx, userDirectoryID); err != nil {
		return nil, err
	}

	return s.repos.Groups.FindByName(ctx, userDirectoryID, groupName)
}

// GetGroupNames lists the names of the groups of a user directory.
func (s *Service) GetGroupNames(ctx context.Context, userDirectoryID uuid.UUID) ([]string, error) {
	if err := s.userDirectoryMustExist(ctx, userDirectoryID); err != nil {
		return nil, err
	}

	return s.repos.Groups.FindNames(ctx, userDirectoryID)
}

// GetGroups lists the groups of a user directory. Filtered listings of the internal user directory
// are capped at its MaxFilteredGroups parameter.
func (s *Service) GetGroups(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	opts repository.ListOptions,
) (*repository.Page[models.Group], error) {
	dir, err := s.userDirectory(ctx, userDirectoryID)
	if err != nil {
		return nil, err
	}

	if internal, ok := dir.(*directory.Internal); ok && opts.Filter != "" && internal.MaxFilteredGroups() > 0 {
		if opts.PageSize <= 0 || opts.PageSize > internal.MaxFilteredGroups() {
			opts.PageSize = internal.MaxFilteredGroups()
		}
	}

	return s.repos.Groups.FindAll(ctx, userDirectoryID, opts)
}

// GetGroupsForUser lists the groups a user is a member of.
func (s *Service) GetGroupsForUser(ctx context.Context, userDirectoryID uuid.UUID, username string) ([]models.Group, error) {
	user, err := s.repos.Users.FindByUsername(ctx, userDirectoryID, username)
	if err != nil {
		return nil, err
	}

	return s.repos.Groups.FindByUserID(ctx, user.ID)
}

// GetGroupNamesForUser lists the names of the groups a user is a member of.
func (s *Service) GetGroupNamesForUser(ctx context.Context, userDirectoryID uuid.UUID, username string) ([]string, error) {
	groups, err := s.GetGroupsForUser(ctx, userDirectoryID, username)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(groups))
	for i := range groups {
		names[i] = groups[i].Name
	}

	return names, nil
}

// AddMemberToGroup adds a member to a group. Only user members are supported.
func (s *Service) AddMemberToGroup(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	groupName string,
	memberType models.GroupMemberType,
	memberName string,
) error {
	if memberType != models.GroupMemberTypeUser {
		return fmt.Errorf("%w: %s group members", problem.ErrUserDirectoryOperationNotSupported, memberType)
	}

	return s.AddUserToGroup(ctx, userDirectoryID, groupName, memberName)
}

// RemoveMemberFromGroup removes a member from a group. Only user members are supported.
func (s *Service) RemoveMemberFromGroup(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	groupName string,
	memberType models.GroupMemberType,
	memberName string,
) error {
	if memberType != models.GroupMemberTypeUser {
		return fmt.Errorf("%w: %s group members", problem.ErrUserDirectoryOperationNotSupported, memberType)
	}

	return s.RemoveUserFromGroup(ctx, userDirectoryID, groupName, memberName)
}

// GetMembersForGroup lists the members of a group.
func (s *Service) GetMembersForGroup(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	groupName string,
) ([]models.GroupMember, error) {
	group, err := s.GetGroup(ctx, userDirectoryID, groupName)
	if err != nil {
		return nil, err
	}

	usernames, err := s.repos.Users.FindUsernamesByGroupID(ctx, group.ID)
	if err != nil {
		return nil, err
	}

	members := make([]models.GroupMember, len(usernames))
	for i, username := range usernames {
		members[i] = models.GroupMember{
			UserDirectoryID: userDirectoryID,
			GroupName:       group.Name,
			MemberType:      models.GroupMemberTypeUser,
			MemberName:      username,
		}
	}

	return members, nil
}

// AddUserToGroup adds a user to a group of the same user directory.
func (s *Service) AddUserToGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName, username string) error {
	group, user, err := s.groupAndUser(ctx, userDirectoryID, groupName, username, "add user to group")
	if err != nil {
		return err
	}

	member, err := s.repos.Groups.IsMember(ctx, group.ID, user.ID)
	if err != nil {
		return err
	}

	if member {
		return fmt.Errorf("%w: %s in %s", problem.ErrExistingGroupMember, user.Username, group.Name)
	}

	return s.repos.Groups.AddMember(ctx, group.ID, user.ID)
}

// RemoveUserFromGroup removes a user from a group.
func (s *Service) RemoveUserFromGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName, username string) error {
	group, user, err := s.groupAndUser(ctx, userDirectoryID, groupName, username, "remove user from group")
	if err != nil {
		return err
	}

	removed, err := s.repos.Groups.RemoveMember(ctx, group.ID, user.ID)
	if err != nil {
		return err
	}

	if !removed {
		return fmt.Errorf("%w: %s in %s", problem.ErrGroupMemberNotFound, user.Username, group.Name)
	}

	return nil
}

func (s *Service) groupAndUser(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	groupName, username, operation string,
) (*models.Group, *models.User, error) {
	_, err := s.userDirectoryWith(ctx, userDirectoryID, supportsGroupMemberAdministration, operation)
	if err != nil {
		return nil, nil, err
	}

	group, err := s.repos.Groups.FindByName(ctx, userDirectoryID, groupName)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.repos.Users.FindByUsername(ctx, userDirectoryID, username)
	if err != nil {
		return nil, nil, err
	}

	return group, user, nil
}

// AddRoleToGroup grants a role to a group. Groups of every user directory type accept role grants.
// The administrator role may only be granted on behalf of an administrator.
func (s *Service) AddRoleToGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName, roleCode string) error {
	group, err := s.GetGroup(ctx, userDirectoryID, groupName)
	if err != nil {
		return err
	}

	role, err := s.repos.Roles.FindByCode(ctx, roleCode)
	if err != nil {
		return err
	}

	if role.Code == RoleAdministrator {
		if p, ok := PrincipalFromContext(ctx); ok && !p.IsAdministrator() {
			log.Warn().Str("username", p.Username).Str("group", group.Name).
				Msg("non administrator tried to grant the administrator role")

			return fmt.Errorf("%w: only administrators may grant the %s role", problem.ErrAccessDenied, role.Code)
		}
	}

	granted, err := s.repos.Groups.HasRole(ctx, group.ID, role.Code)
	if err != nil {
		return err
	}

	if granted {
		return fmt.Errorf("%w: %s to %s", problem.ErrExistingGroupRole, role.Code, group.Name)
	}

	return s.repos.Groups.AddRole(ctx, group.ID, role.Code)
}

// RemoveRoleFromGroup revokes a role from a group.
func (s *Service) RemoveRoleFromGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName, roleCode string) error {
	group, err := s.GetGroup(ctx, userDirectoryID, groupName)
	if err != nil {
		return err
	}

	removed, err := s.repos.Groups.RemoveRole(ctx, group.ID, roleCode)
	if err != nil {
		return err
	}

	if !removed {
		return fmt.Errorf("%w: %s from %s", problem.ErrGroupRoleNotFound, roleCode, group.Name)
	}

	return nil
}

// GetRoleCodesForGroup lists the codes of the roles granted to a group.
func (s *Service) GetRoleCodesForGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName string) ([]string, error) {
	group, err := s.GetGroup(ctx, userDirectoryID, groupName)
	if err != nil {
		return nil, err
	}

	return s.repos.Groups.FindRoleCodes(ctx, group.ID)
}

// GetRolesForGroup lists the roles granted to a group.
func (s *Service) GetRolesForGroup(ctx context.Context, userDirectoryID uuid.UUID, groupName string) ([]models.Role, error) {
	group, err := s.GetGroup(ctx, userDirectoryID, groupName)
	if err != nil {
		return nil, err
	}

	return s.repos.Roles.FindByGroupID(ctx, group.ID)
}

// GetRoleCodesForUser lists the codes of the roles granted to the groups of a user.
func (s *Service) GetRoleCodesForUser(ctx context.Context, userDirectoryID uuid.UUID, username string) ([]string, error) {
	user, err := s.repos.Users.FindByUsername(ctx, userDirectoryID, username)
	if err != nil {
		return nil, err
	}

	return s.repos.Roles.FindCodesByUserID(ctx, user.ID)
}
