package models

import "time"

// PasswordReset is a request to reset a user's password using an emailed security code.
type PasswordReset struct {
	// Username is the username of the user the reset was requested for.
	Username string `gorm:"size:100;primaryKey" json:"username"`
	// Requested is when the reset was requested.
	Requested time.Time `gorm:"primaryKey" json:"requested"`
	// SecurityCodeHash is the Argon2id hash of the security code.
	SecurityCodeHash string `gorm:"size:255;not null" json:"-"`
	// Status is the status of the reset.
	Status PasswordResetStatus `gorm:"not null;index" json:"status"`
	// Completed is when the reset was used.
	Completed *time.Time `json:"completed,omitempty"`
	// Expired is when the reset was expired.
	Expired *time.Time `json:"expired,omitempty"`
}

// TableName specifies the database table name for the PasswordReset model.
func (PasswordReset) TableName() string {
	return "security_password_resets"
}
