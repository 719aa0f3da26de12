package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// GroupRepository persists groups, their user members and their role grants.
type GroupRepository struct {
	db *gorm.DB
}

// Create inserts a group.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// Save updates all fields of a group.
func (r *GroupRepository) Save(ctx context.Context, group *models.Group) error {
	return r.db.WithContext(ctx).Save(group).Error
}

// Delete removes a group, its memberships and its role grants.
func (r *GroupRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("group_id = ?", id).Delete(&models.UserToGroup{}).Error; err != nil {
		return err
	}

	if err := db.Where("group_id = ?", id).Delete(&models.RoleToGroup{}).Error; err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&models.Group{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrGroupNotFound
	}

	return nil
}

// DeleteByUserDirectoryID removes every group of a user directory with its memberships and role grants.
func (r *GroupRepository) DeleteByUserDirectoryID(ctx context.Context, userDirectoryID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	groupIDs := func() *gorm.DB {
		return db.Model(&models.Group{}).Select("id").Where("user_directory_id = ?", userDirectoryID)
	}

	if err := db.Where("group_id IN (?)", groupIDs()).Delete(&models.UserToGroup{}).Error; err != nil {
		return err
	}

	if err := db.Where("group_id IN (?)", groupIDs()).Delete(&models.RoleToGroup{}).Error; err != nil {
		return err
	}

	return db.Where("user_directory_id = ?", userDirectoryID).Delete(&models.Group{}).Error
}

// FindByName retrieves a group of a user directory. Names are matched ignoring case.
func (r *GroupRepository) FindByName(ctx context.Context, userDirectoryID uuid.UUID, name string) (*models.Group, error) {
	var group models.Group

	err := r.db.WithContext(ctx).
		Where("user_directory_id = ? AND LOWER(name) = LOWER(?)", userDirectoryID, name).
		First(&group).Error
	if err != nil {
		return nil, notFound(err, problem.ErrGroupNotFound)
	}

	return &group, nil
}

// ExistsByName reports whether another group than excludeID of the user directory uses the name.
func (r *GroupRepository) ExistsByName(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	name string,
	excludeID uuid.UUID,
) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Group{}).
		Where("user_directory_id = ? AND LOWER(name) = ? AND id <> ?", userDirectoryID, strings.ToLower(name), excludeID))
}

// FindAll lists the groups of a user directory whose name matches the filter.
func (r *GroupRepository) FindAll(
	ctx context.Context,
	userDirectoryID uuid.UUID,
	opts ListOptions,
) (*Page[models.Group], error) {
	opts = opts.normalized()

	return paginate[models.Group](func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Group{}).Where("user_directory_id = ?", userDirectoryID)
		if opts.Filter != "" {
			tx = tx.Where("LOWER(name) LIKE ?", likePattern(opts.Filter))
		}

		return tx
	}, opts, "name")
}

// FindNames lists the names of the groups of a user directory.
func (r *GroupRepository) FindNames(ctx context.Context, userDirectoryID uuid.UUID) ([]string, error) {
	var names []string

	err := r.db.WithContext(ctx).Model(&models.Group{}).
		Where("user_directory_id = ?", userDirectoryID).
		Order("name").
		Pluck("name", &names).Error

	return names, err
}

// FindByUserID lists the groups a user is a member of.
func (r *GroupRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group

	err := r.db.WithContext(ctx).
		Joins("JOIN security_user_to_group_map m ON m.group_id = security_groups.id").
		Where("m.user_id = ?", userID).
		Order("security_groups.name").
		Find(&groups).Error

	return groups, err
}

// CountMembers counts the user members of a group.
func (r *GroupRepository) CountMembers(ctx context.Context, groupID uuid.UUID) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).Model(&models.UserToGroup{}).Where("group_id = ?", groupID).Count(&count).Error

	return count, err
}

// IsMember reports whether the user is a member of the group.
func (r *GroupRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.UserToGroup{}).
		Where("group_id = ? AND user_id = ?", groupID, userID))
}

// AddMember adds a user to a group.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&models.UserToGroup{
		UserID:  userID,
		GroupID: groupID,
	}).Error
}

// RemoveMember removes a user from a group and reports whether the user was a member.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.UserToGroup{})

	return result.RowsAffected > 0, result.Error
}

// RemoveMemberships removes the user from every group of the user directory.
func (r *GroupRepository) RemoveMemberships(ctx context.Context, userDirectoryID, userID uuid.UUID) error {
	groupIDs := r.db.Model(&models.Group{}).Select("id").Where("user_directory_id = ?", userDirectoryID)

	return r.db.WithContext(ctx).
		Where("user_id = ? AND group_id IN (?)", userID, groupIDs).
		Delete(&models.UserToGroup{}).Error
}

// FindRoleCodes lists the codes of the roles granted to a group.
func (r *GroupRepository) FindRoleCodes(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	var codes []string

	err := r.db.WithContext(ctx).Model(&models.RoleToGroup{}).
		Where("group_id = ?", groupID).
		Order("role_code").
		Pluck("role_code", &codes).Error

	return codes, err
}

// HasRole reports whether the role is granted to the group.
func (r *GroupRepository) HasRole(ctx context.Context, groupID uuid.UUID, roleCode string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.RoleToGroup{}).
		Where("group_id = ? AND role_code = ?", groupID, roleCode))
}

// AddRole grants a role to a group.
func (r *GroupRepository) AddRole(ctx context.Context, groupID uuid.UUID, roleCode string) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(&models.RoleToGroup{
		RoleCode: roleCode,
		GroupID:  groupID,
	}).Error
}

// RemoveRole revokes a role from a group and reports whether it was granted.
func (r *GroupRepository) RemoveRole(ctx context.Context, groupID uuid.UUID, roleCode string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("group_id = ? AND role_code = ?", groupID, roleCode).
		Delete(&models.RoleToGroup{})

	return result.RowsAffected > 0, result.Error
}
