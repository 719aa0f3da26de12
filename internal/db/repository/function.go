package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// FunctionRepository persists functions.
type FunctionRepository struct {
	db *gorm.DB
}

// Create inserts a function.
func (r *FunctionRepository) Create(ctx context.Context, function *models.Function) error {
	return r.db.WithContext(ctx).Create(function).Error
}

// Save updates all fields of a function.
func (r *FunctionRepository) Save(ctx context.Context, function *models.Function) error {
	return r.db.WithContext(ctx).Save(function).Error
}

// Delete removes a function and its role grants.
func (r *FunctionRepository) Delete(ctx context.Context, code string) error {
	db := r.db.WithContext(ctx)

	if err := db.Where("function_code = ?", code).Delete(&models.FunctionToRole{}).Error; err != nil {
		return err
	}

	result := db.Where("code = ?", code).Delete(&models.Function{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrFunctionNotFound
	}

	return nil
}

// FindByCode retrieves a function.
func (r *FunctionRepository) FindByCode(ctx context.Context, code string) (*models.Function, error) {
	var function models.Function
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&function).Error; err != nil {
		return nil, notFound(err, problem.ErrFunctionNotFound)
	}

	return &function, nil
}

// ExistsByCode reports whether the function exists.
func (r *FunctionRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Function{}).Where("code = ?", code))
}

// FindAll lists every function ordered by name.
func (r *FunctionRepository) FindAll(ctx context.Context) ([]models.Function, error) {
	var functions []models.Function

	err := r.db.WithContext(ctx).Order("name").Find(&functions).Error

	return functions, err
}

// FindCodesByUserID lists the codes of the functions granted, through roles, to the groups of a user.
func (r *FunctionRepository) FindCodesByUserID(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var codes []string

	err := r.db.WithContext(ctx).Model(&models.FunctionToRole{}).
		Distinct("security_function_to_role_map.function_code").
		Joins("JOIN security_role_to_group_map rg ON rg.role_code = security_function_to_role_map.role_code").
		Joins("JOIN security_user_to_group_map ug ON ug.group_id = rg.group_id").
		Where("ug.user_id = ?", userID).
		Order("security_function_to_role_map.function_code").
		Pluck("security_function_to_role_map.function_code", &codes).Error

	return codes, err
}
