package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token is an issued API token whose signed data carries its claims.
type Token struct {
	// ID is the unique identifier for the token, also used as the JWT ID.
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	// Type is the format of the token data.
	Type TokenType `gorm:"size:20;not null" json:"type"`
	// Name is the unique name of the token.
	Name string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	// Description describes what the token is used for.
	Description string `gorm:"size:200" json:"description"`
	// Claims are the custom claims carried by the token.
	Claims TokenClaims `gorm:"type:text" json:"claims"`
	// Data is the signed token.
	Data string `gorm:"type:text;not null" json:"data"`
	// ValidFromDate is when the token becomes valid, nil for immediately.
	ValidFromDate *time.Time `json:"validFromDate,omitempty"`
	// ExpiryDate is when the token expires, nil for never.
	ExpiryDate *time.Time `json:"expiryDate,omitempty"`
	// RevocationDate is when the token was revoked, nil if it was not.
	RevocationDate *time.Time `json:"revocationDate,omitempty"`
	// Issued is when the token was issued.
	Issued time.Time `gorm:"not null" json:"issued"`
}

// TableName specifies the database table name for the Token model.
func (Token) TableName() string {
	return "security_tokens"
}

// Status derives the token status at the given time.
func (t *Token) Status(now time.Time) TokenStatus {
	switch {
	case t.RevocationDate != nil && !now.Before(*t.RevocationDate):
		return TokenStatusRevoked
	case t.ExpiryDate != nil && !now.Before(*t.ExpiryDate):
		return TokenStatusExpired
	case t.ValidFromDate != nil && now.Before(*t.ValidFromDate):
		return TokenStatusPending
	default:
		return TokenStatusActive
	}
}

// TokenClaim is a named, possibly multi-valued claim.
type TokenClaim struct {
	Name   string   `json:"name" validate:"required,max=100"`
	Values []string `json:"values"`
}

// TokenClaims is stored as a JSON document.
type TokenClaims []TokenClaim

// Value implements driver.Valuer.
func (c TokenClaims) Value() (driver.Value, error) {
	if c == nil {
		c = TokenClaims{}
	}

	out, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	return string(out), nil
}

// Scan implements sql.Scanner.
func (c *TokenClaims) Scan(value any) error {
	var data []byte

	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	case nil:
		*c = nil
		return nil
	default:
		return fmt.Errorf("unsupported token claims column type %T", value)
	}

	return json.Unmarshal(data, c)
}

// TokenSummary is the short form of a token.
type TokenSummary struct {
	ID             uuid.UUID   `json:"id"`
	Type           TokenType   `json:"type"`
	Name           string      `json:"name"`
	Status         TokenStatus `json:"status"`
	ValidFromDate  *time.Time  `json:"validFromDate,omitempty"`
	ExpiryDate     *time.Time  `json:"expiryDate,omitempty"`
	RevocationDate *time.Time  `json:"revocationDate,omitempty"`
	Issued         time.Time   `json:"issued"`
}
