package models

import (
	"time"

	"github.com/google/uuid"
)

// UserDirectory is a pluggable identity store, e.g. the internal database or an LDAP server.
type UserDirectory struct {
	// ID is the unique identifier for the user directory.
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	// Type is the code of the user directory type, e.g. "InternalUserDirectory".
	Type string `gorm:"size:100;not null" json:"type" validate:"required,max=100"`
	// Name is the unique name of the user directory.
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name" validate:"required,max=100"`
	// Parameters configure the user directory implementation.
	Parameters []UserDirectoryParameter `gorm:"foreignKey:UserDirectoryID;constraint:OnDelete:CASCADE" json:"parameters" validate:"dive"`
	// Created is the timestamp when the user directory was created (managed by GORM).
	Created time.Time `gorm:"autoCreateTime" json:"created"`
	// Updated is the timestamp when the user directory was last updated (managed by GORM).
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

// TableName specifies the database table name for the UserDirectory model.
func (UserDirectory) TableName() string {
	return "security_user_directories"
}

// Parameter returns the value of the named parameter.
func (d *UserDirectory) Parameter(name string) (string, bool) {
	for _, p := range d.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}

	return "", false
}

// UserDirectoryParameter is a name/value configuration entry of a user directory.
type UserDirectoryParameter struct {
	// UserDirectoryID is the ID of the owning user directory.
	UserDirectoryID uuid.UUID `gorm:"type:char(36);primaryKey" json:"-"`
	// Name is the parameter name.
	Name string `gorm:"size:100;primaryKey" json:"name" validate:"required,max=100"`
	// Value is the parameter value.
	Value string `gorm:"size:4000" json:"value" validate:"max=4000"`
}

// TableName specifies the database table name for the UserDirectoryParameter model.
func (UserDirectoryParameter) TableName() string {
	return "security_user_directory_parameters"
}

// UserDirectorySummary is the short form of a user directory.
type UserDirectorySummary struct {
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`
	Name string    `json:"name"`
}

// UserDirectoryType describes an available user directory implementation.
type UserDirectoryType struct {
	Code string `json:"code"`
	Name string `json:"name"`
}
