package models

import "time"

// Policy is a versioned XACML policy or policy set.
type Policy struct {
	// ID is the XACML PolicyId or PolicySetId.
	ID string `gorm:"size:100;primaryKey" json:"id" validate:"required,max=100"`
	// Version is the XACML version of the policy.
	Version string `gorm:"size:30;not null" json:"version" validate:"required,max=30"`
	// Name is the display name of the policy.
	Name string `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	// Type is the XACML document type.
	Type PolicyType `gorm:"not null" json:"type"`
	// Data is the XACML document.
	Data string `gorm:"type:text;not null" json:"data" validate:"required"`
	// Created is the timestamp when the policy was created (managed by GORM).
	Created time.Time `gorm:"autoCreateTime" json:"created"`
	// Updated is the timestamp when the policy was last updated (managed by GORM).
	Updated time.Time `gorm:"autoUpdateTime" json:"updated"`
}

// TableName specifies the database table name for the Policy model.
func (Policy) TableName() string {
	return "security_policies"
}

// PolicySummary is the short form of a policy.
type PolicySummary struct {
	ID      string     `json:"id"`
	Version string     `json:"version"`
	Name    string     `json:"name"`
	Type    PolicyType `json:"type"`
}
