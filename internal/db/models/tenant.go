package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is an isolation boundary grouping user directories.
type Tenant struct {
	// ID is the unique identifier for the tenant.
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	// Name is the unique name of the tenant.
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name" validate:"required,max=100"`
	// Status indicates whether the tenant is active.
	Status TenantStatus `gorm:"not null" json:"status"`
	// Created is the timestamp when the tenant was created (managed by GORM).
	Created time.Time `gorm:"autoCreateTime" json:"created"`
	// Updated is the timestamp when the tenant was last updated (managed by GORM).
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

// TableName specifies the database table name for the Tenant model.
func (Tenant) TableName() string {
	return "security_tenants"
}

// UserDirectoryToTenant associates a user directory with a tenant.
type UserDirectoryToTenant struct {
	// UserDirectoryID is the ID of the user directory.
	UserDirectoryID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// TenantID is the ID of the tenant.
	TenantID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	// UserDirectory is the associated user directory.
	// When a user directory is deleted, its tenant associations are removed (CASCADE).
	UserDirectory UserDirectory `gorm:"foreignKey:UserDirectoryID;constraint:OnDelete:CASCADE"`
	// Tenant is the associated tenant.
	// When a tenant is deleted, its user directory associations are removed (CASCADE).
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the UserDirectoryToTenant model.
func (UserDirectoryToTenant) TableName() string {
	return "security_user_directory_to_tenant_map"
}
