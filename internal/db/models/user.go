package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
)

// User is a user account held by a user directory.
// Users of external directories are mirrored into this table on authentication.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	// UserDirectoryID is the ID of the user directory the user belongs to.
	UserDirectoryID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_security_users_directory_username" json:"userDirectoryId"`
	// Username is the username for login, unique within the user directory.
	Username string `gorm:"size:100;not null;uniqueIndex:idx_security_users_directory_username" json:"username" validate:"required,max=100"`
	// Name is the full name of the user.
	Name string `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	// PreferredName is the name the user prefers to be addressed by.
	PreferredName string `gorm:"size:100" json:"preferredName" validate:"max=100"`
	// PhoneNumber is the user's phone number.
	PhoneNumber string `gorm:"size:100" json:"phoneNumber" validate:"max=100"`
	// MobileNumber is the user's mobile number.
	MobileNumber string `gorm:"size:100" json:"mobileNumber" validate:"max=100"`
	// Email is the user's email address.
	Email string `gorm:"size:100" json:"email" validate:"omitempty,email,max=100"`
	// Password is the Argon2id hashed password (only used by the internal user directory).
	// On create and update requests it carries the plaintext password until it is hashed.
	Password string `gorm:"size:255" json:"-"`
	// PasswordAttempts counts consecutive failed authentication attempts.
	PasswordAttempts int `gorm:"not null;default:0" json:"passwordAttempts"`
	// PasswordExpiry is when the current password expires, nil if it never does.
	PasswordExpiry *time.Time `json:"passwordExpiry,omitempty"`
	// Status is the status of the user.
	Status UserStatus `gorm:"not null" json:"status"`
	// ExternalReference is the external identifier of mirrored users (the LDAP DN).
	ExternalReference string `gorm:"size:255" json:"externalReference,omitempty"`
	// Created is the timestamp when the user was created (managed by GORM).
	Created time.Time `gorm:"autoCreateTime" json:"created"`
	// Updated is the timestamp when the user was last updated (managed by GORM).
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "security_users"
}

// IsPasswordExpired reports whether the password has expired at the given time.
func (u *User) IsPasswordExpired(now time.Time) bool {
	if u.Status == UserStatusExpired {
		return true
	}

	return u.PasswordExpiry != nil && !now.Before(*u.PasswordExpiry)
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// VerifyPassword verifies a plaintext password against the user's stored hashed password.
// A user without a stored hash never matches.
func (u *User) VerifyPassword(password string) bool {
	return MatchesHash(password, u.Password)
}

// MatchesHash compares a plaintext value with an Argon2id hash in constant time.
func MatchesHash(plain, hash string) bool {
	if hash == "" {
		return false
	}

	match, err := argon2id.ComparePasswordAndHash(plain, hash)
	if err != nil {
		return false
	}

	return match
}

// PasswordHistory records previous password hashes of a user.
type PasswordHistory struct {
	// UserID is the ID of the user.
	UserID uuid.UUID `gorm:"type:char(36);primaryKey"`
	// Changed is when the password was set.
	Changed time.Time `gorm:"primaryKey"`
	// Password is the Argon2id hash of the password.
	Password string `gorm:"size:255;not null"`
	// User is the associated user.
	// When a user is deleted, their password history is removed (CASCADE).
	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the database table name for the PasswordHistory model.
func (PasswordHistory) TableName() string {
	return "security_password_history"
}
