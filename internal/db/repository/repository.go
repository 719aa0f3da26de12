// Package repository provides the gorm backed repositories of the security schema.
//
// Repositories translate gorm.ErrRecordNotFound into the not-found entry of the problem catalog.
// Methods that issue several statements do not open a transaction of their own; callers that need
// atomicity use Repositories.Transaction.
package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lobkit/identity/internal/db/models"
)

const (
	// DefaultPageSize is used when a list request does not specify a page size.
	DefaultPageSize = 25
	// MaxPageSize clamps the page size upper bound.
	MaxPageSize = 100
)

// ErrDBNil is returned when the database connection is nil.
var ErrDBNil = errors.New("database connection is nil")

// Repositories bundles the repositories sharing one database handle.
type Repositories struct {
	db *gorm.DB

	Tenants         *TenantRepository
	UserDirectories *UserDirectoryRepository
	Users           *UserRepository
	Groups          *GroupRepository
	Roles           *RoleRepository
	Functions       *FunctionRepository
	Tokens          *TokenRepository
	Policies        *PolicyRepository
	PasswordResets  *PasswordResetRepository
}

// New creates the repositories for db.
func New(db *gorm.DB) (*Repositories, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	return &Repositories{
		db:              db,
		Tenants:         &TenantRepository{db: db},
		UserDirectories: &UserDirectoryRepository{db: db},
		Users:           &UserRepository{db: db},
		Groups:          &GroupRepository{db: db},
		Roles:           &RoleRepository{db: db},
		Functions:       &FunctionRepository{db: db},
		Tokens:          &TokenRepository{db: db},
		Policies:        &PolicyRepository{db: db},
		PasswordResets:  &PasswordResetRepository{db: db},
	}, nil
}

// Transaction runs fn with repositories bound to a single database transaction.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos, err := New(tx)
		if err != nil {
			return err
		}

		return fn(repos)
	})
}

// ListOptions controls filtering, ordering and paging of list queries.
type ListOptions struct {
	Filter        string
	SortDirection models.SortDirection
	PageIndex     int
	PageSize      int
}

func (o ListOptions) normalized() ListOptions {
	if o.PageIndex < 0 {
		o.PageIndex = 0
	}

	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}

	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}

	if o.SortDirection == "" {
		o.SortDirection = models.SortAscending
	}

	o.Filter = strings.TrimSpace(o.Filter)

	return o
}

// Page is a page of list results.
type Page[T any] struct {
	Items         []T                  `json:"items"`
	Total         int64                `json:"total"`
	PageIndex     int                  `json:"pageIndex"`
	PageSize      int                  `json:"pageSize"`
	Filter        string               `json:"filter,omitempty"`
	SortDirection models.SortDirection `json:"sortDirection"`
}

// query builds the base statement of a paged listing. It is evaluated once for the count and once
// for the page itself so the two statements never share clauses.
type query func() *gorm.DB

// paginate counts the rows matched by q, then loads the requested page.
func paginate[T any](q query, opts ListOptions, orderColumn string) (*Page[T], error) {
	page := &Page[T]{
		Items:         []T{},
		PageIndex:     opts.PageIndex,
		PageSize:      opts.PageSize,
		Filter:        opts.Filter,
		SortDirection: opts.SortDirection,
	}

	if err := q().Count(&page.Total).Error; err != nil {
		return nil, err
	}

	err := q().
		Order(clause.OrderByColumn{
			Column: clause.Column{Name: orderColumn},
			Desc:   opts.SortDirection == models.SortDescending,
		}).
		Limit(opts.PageSize).
		Offset(opts.PageIndex * opts.PageSize).
		Find(&page.Items).Error
	if err != nil {
		return nil, err
	}

	return page, nil
}

// likePattern builds a case-insensitive LIKE pattern; callers compare against LOWER(column).
func likePattern(filter string) string {
	return "%" + strings.ToLower(filter) + "%"
}

// notFound maps gorm.ErrRecordNotFound to the given catalog error.
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}

	return err
}

func exists(tx *gorm.DB) (bool, error) {
	var count int64
	if err := tx.Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}
