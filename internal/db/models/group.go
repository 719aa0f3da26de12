package models

import (
	"time"

	"github.com/google/uuid"
)

// Group is a named set of users within a user directory. Roles are granted to groups.
type Group struct {
	// ID is the unique identifier for the group.
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	// UserDirectoryID is the ID of the user directory the group belongs to.
	UserDirectoryID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_security_groups_directory_name" json:"userDirectoryId"`
	// Name is the name of the group, unique within the user directory.
	Name string `gorm:"size:100;not null;uniqueIndex:idx_security_groups_directory_name" json:"name" validate:"required,max=100"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:100" json:"description" validate:"max=100"`
	// Created is the timestamp when the group was created (managed by GORM).
	Created time.Time `gorm:"autoCreateTime" json:"created"`
	// Updated is the timestamp when the group was last updated (managed by GORM).
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "security_groups"
}

// UserToGroup represents the many-to-many relationship between users and groups.
type UserToGroup struct {
	// UserID is the ID of the user in this membership.
	UserID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// GroupID is the ID of the group in this membership.
	GroupID uuid.UUID `gorm:"type:char(36);primaryKey;index"`
	// User is the associated user.
	// When a user is deleted, all their group memberships are removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	// Group is the associated group.
	Group Group `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the UserToGroup model.
func (UserToGroup) TableName() string {
	return "security_user_to_group_map"
}

// GroupMember is a member of a group as returned by membership queries.
type GroupMember struct {
	UserDirectoryID uuid.UUID       `json:"userDirectoryId"`
	GroupName       string          `json:"groupName"`
	MemberType      GroupMemberType `json:"memberType"`
	MemberName      string          `json:"memberName"`
}
