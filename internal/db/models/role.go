package models

import "github.com/google/uuid"

// Role groups functions and is granted to groups.
type Role struct {
	// Code is the unique code of the role, e.g. "Administrator".
	Code string `gorm:"size:100;primaryKey" json:"code"`
	// Name is the display name of the role.
	Name string `gorm:"size:100;not null" json:"name"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:100" json:"description"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "security_roles"
}

// Function is a leaf permission code.
type Function struct {
	// Code is the unique code of the function, e.g. "Security.TenantAdministration".
	Code string `gorm:"size:100;primaryKey" json:"code" validate:"required,max=100"`
	// Name is the display name of the function.
	Name string `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	// Description provides a human-readable explanation of what this function grants.
	Description string `gorm:"size:100" json:"description" validate:"max=100"`
}

// TableName specifies the database table name for the Function model.
func (Function) TableName() string {
	return "security_functions"
}

// FunctionToRole represents the many-to-many relationship between functions and roles.
type FunctionToRole struct {
	// FunctionCode is the code of the function.
	FunctionCode string `gorm:"size:100;primaryKey"`
	// RoleCode is the code of the role.
	RoleCode string `gorm:"size:100;primaryKey;index"`
	// Function is the associated function.
	// When a function is deleted, its role assignments are removed (CASCADE).
	Function Function `gorm:"foreignKey:FunctionCode;references:Code;constraint:OnDelete:CASCADE"`
	// Role is the associated role.
	Role Role `gorm:"foreignKey:RoleCode;references:Code;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the FunctionToRole model.
func (FunctionToRole) TableName() string {
	return "security_function_to_role_map"
}

// RoleToGroup represents the many-to-many relationship between roles and groups.
type RoleToGroup struct {
	// RoleCode is the code of the role.
	RoleCode string `gorm:"size:100;primaryKey"`
	// GroupID is the ID of the group.
	GroupID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	// Role is the associated role.
	Role Role `gorm:"foreignKey:RoleCode;references:Code;constraint:OnDelete:CASCADE"`
	// Group is the associated group.
	// When a group is deleted, its role grants are removed (CASCADE).
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the RoleToGroup model.
func (RoleToGroup) TableName() string {
	return "security_role_to_group_map"
}
