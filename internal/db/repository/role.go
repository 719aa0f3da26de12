package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// RoleRepository persists roles and the functions they grant.
type RoleRepository struct {
	db *gorm.DB
}

// Create inserts a role, doing nothing when the code is already taken.
func (r *RoleRepository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(role).Error
}

// FindAll lists every role ordered by name.
func (r *RoleRepository) FindAll(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role

	err := r.db.WithContext(ctx).Order("name").Find(&roles).Error

	return roles, err
}

// FindByCode retrieves a role.
func (r *RoleRepository) FindByCode(ctx context.Context, code string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&role).Error; err != nil {
		return nil, notFound(err, problem.ErrRoleNotFound)
	}

	return &role, nil
}

// ExistsByCode reports whether the role exists.
func (r *RoleRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Role{}).Where("code = ?", code))
}

// FindByGroupID lists the roles granted to a group.
func (r *RoleRepository) FindByGroupID(ctx context.Context, groupID uuid.UUID) ([]models.Role, error) {
	var roles []models.Role

	err := r.db.WithContext(ctx).
		Joins("JOIN security_role_to_group_map m ON m.role_code = security_roles.code").
		Where("m.group_id = ?", groupID).
		Order("security_roles.name").
		Find(&roles).Error

	return roles, err
}

// FindCodesByUserID lists the codes of the roles granted to the groups of a user.
func (r *RoleRepository) FindCodesByUserID(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var codes []string

	err := r.db.WithContext(ctx).Model(&models.RoleToGroup{}).
		Distinct("security_role_to_group_map.role_code").
		Joins("JOIN security_user_to_group_map ug ON ug.group_id = security_role_to_group_map.group_id").
		Where("ug.user_id = ?", userID).
		Order("security_role_to_group_map.role_code").
		Pluck("security_role_to_group_map.role_code", &codes).Error

	return codes, err
}

// AddFunction grants a function to a role, doing nothing when it is already granted.
func (r *RoleRepository) AddFunction(ctx context.Context, roleCode, functionCode string) error {
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.FunctionToRole{FunctionCode: functionCode, RoleCode: roleCode}).Error
}

// RemoveFunction revokes a function from a role and reports whether it was granted.
func (r *RoleRepository) RemoveFunction(ctx context.Context, roleCode, functionCode string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("role_code = ? AND function_code = ?", roleCode, functionCode).
		Delete(&models.FunctionToRole{})

	return result.RowsAffected > 0, result.Error
}

// FindFunctionCodes lists the codes of the functions granted to a role.
func (r *RoleRepository) FindFunctionCodes(ctx context.Context, roleCode string) ([]string, error) {
	var codes []string

	err := r.db.WithContext(ctx).Model(&models.FunctionToRole{}).
		Where("role_code = ?", roleCode).
		Order("function_code").
		Pluck("function_code", &codes).Error

	return codes, err
}
