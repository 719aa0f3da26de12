package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

// PolicyRepository persists policies.
type PolicyRepository struct {
	db *gorm.DB
}

// Create inserts a policy.
func (r *PolicyRepository) Create(ctx context.Context, policy *models.Policy) error {
	return r.db.WithContext(ctx).Create(policy).Error
}

// Save updates all fields of a policy.
func (r *PolicyRepository) Save(ctx context.Context, policy *models.Policy) error {
	return r.db.WithContext(ctx).Save(policy).Error
}

// Delete removes a policy.
func (r *PolicyRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Policy{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return problem.ErrPolicyNotFound
	}

	return nil
}

// FindByID retrieves a policy.
func (r *PolicyRepository) FindByID(ctx context.Context, id string) (*models.Policy, error) {
	var policy models.Policy
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&policy).Error; err != nil {
		return nil, notFound(err, problem.ErrPolicyNotFound)
	}

	return &policy, nil
}

// ExistsByID reports whether the policy exists.
func (r *PolicyRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	return exists(r.db.WithContext(ctx).Model(&models.Policy{}).Where("id = ?", id))
}

// FindSummaries lists policy summaries whose name matches the filter.
func (r *PolicyRepository) FindSummaries(ctx context.Context, opts ListOptions) (*Page[models.PolicySummary], error) {
	opts = opts.normalized()

	return paginate[models.PolicySummary](func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Policy{})
		if opts.Filter != "" {
			tx = tx.Where("LOWER(name) LIKE ?", likePattern(opts.Filter))
		}

		return tx
	}, opts, "name")
}
