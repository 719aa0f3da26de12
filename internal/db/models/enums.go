package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// codedEnum describes an enum persisted as an integer code and serialized as a text code.
type codedEnum struct {
	name  string
	codes []string
}

func (e codedEnum) text(v int) (string, error) {
	if v < 0 || v >= len(e.codes) {
		return "", fmt.Errorf("invalid %s %d", e.name, v)
	}

	return e.codes[v], nil
}

func (e codedEnum) parseText(text string) (int, error) {
	for i, code := range e.codes {
		if strings.EqualFold(code, text) {
			return i, nil
		}
	}

	return 0, fmt.Errorf("invalid %s code %q", e.name, text)
}

// scan converts a database column value into an enum ordinal.
func (e codedEnum) scan(value any) (int, error) {
	var (
		n   int64
		err error
	)

	switch v := value.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int:
		n = int64(v)
	case []byte:
		n, err = strconv.ParseInt(string(v), 10, 64)
	case string:
		n, err = strconv.ParseInt(v, 10, 64)
	case nil:
		return 0, fmt.Errorf("%s can not be null", e.name)
	default:
		return 0, fmt.Errorf("unsupported %s column type %T", e.name, value)
	}

	if err != nil {
		return 0, fmt.Errorf("invalid %s column value: %w", e.name, err)
	}

	if n < 0 || int(n) >= len(e.codes) {
		return 0, fmt.Errorf("invalid %s %d", e.name, n)
	}

	return int(n), nil
}

var (
	tenantStatusEnum        = codedEnum{name: "tenant status", codes: []string{"inactive", "active"}}
	userStatusEnum          = codedEnum{name: "user status", codes: []string{"inactive", "active", "locked", "expired"}}
	policyTypeEnum          = codedEnum{name: "policy type", codes: []string{"xacml_policy", "xacml_policy_set"}}
	passwordResetStatusEnum = codedEnum{name: "password reset status", codes: []string{"unused", "used", "expired"}}
)

// TenantStatus is the status of a tenant.
type TenantStatus int

const (
	// TenantStatusInactive marks a tenant that can not be used.
	TenantStatusInactive TenantStatus = iota
	// TenantStatusActive marks a tenant in use.
	TenantStatusActive
)

func (s TenantStatus) String() string {
	t, _ := tenantStatusEnum.text(int(s))

	return t
}

// Value implements driver.Valuer.
func (s TenantStatus) Value() (driver.Value, error) {
	if _, err := tenantStatusEnum.text(int(s)); err != nil {
		return nil, err
	}

	return int64(s), nil
}

// Scan implements sql.Scanner.
func (s *TenantStatus) Scan(value any) error {
	v, err := tenantStatusEnum.scan(value)
	*s = TenantStatus(v)

	return err
}

// MarshalText implements encoding.TextMarshaler.
func (s TenantStatus) MarshalText() ([]byte, error) {
	t, err := tenantStatusEnum.text(int(s))
	return []byte(t), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TenantStatus) UnmarshalText(text []byte) error {
	v, err := tenantStatusEnum.parseText(string(text))
	*s = TenantStatus(v)

	return err
}

// UserStatus is the status of a user.
type UserStatus int

const (
	// UserStatusInactive marks a user who may not log in.
	UserStatusInactive UserStatus = iota
	// UserStatusActive marks a user who may log in.
	UserStatusActive
	// UserStatusLocked marks a user locked out, either by an administrator or by failed password attempts.
	UserStatusLocked
	// UserStatusExpired marks a user whose password has expired.
	UserStatusExpired
)

func (s UserStatus) String() string {
	t, _ := userStatusEnum.text(int(s))

	return t
}

// Value implements driver.Valuer.
func (s UserStatus) Value() (driver.Value, error) {
	if _, err := userStatusEnum.text(int(s)); err != nil {
		return nil, err
	}

	return int64(s), nil
}

// Scan implements sql.Scanner.
func (s *UserStatus) Scan(value any) error {
	v, err := userStatusEnum.scan(value)
	*s = UserStatus(v)

	return err
}

// MarshalText implements encoding.TextMarshaler.
func (s UserStatus) MarshalText() ([]byte, error) {
	t, err := userStatusEnum.text(int(s))
	return []byte(t), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *UserStatus) UnmarshalText(text []byte) error {
	v, err := userStatusEnum.parseText(string(text))
	*s = UserStatus(v)

	return err
}

// PolicyType is the type of XACML document a policy holds.
type PolicyType int

const (
	// PolicyTypeXACMLPolicy is a single XACML Policy.
	PolicyTypeXACMLPolicy PolicyType = iota
	// PolicyTypeXACMLPolicySet is an XACML PolicySet.
	PolicyTypeXACMLPolicySet
)

func (t PolicyType) String() string {
	s, _ := policyTypeEnum.text(int(t))

	return s
}

// Value implements driver.Valuer.
func (t PolicyType) Value() (driver.Value, error) {
	if _, err := policyTypeEnum.text(int(t)); err != nil {
		return nil, err
	}

	return int64(t), nil
}

// Scan implements sql.Scanner.
func (t *PolicyType) Scan(value any) error {
	v, err := policyTypeEnum.scan(value)
	*t = PolicyType(v)

	return err
}

// MarshalText implements encoding.TextMarshaler.
func (t PolicyType) MarshalText() ([]byte, error) {
	s, err := policyTypeEnum.text(int(t))
	return []byte(s), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *PolicyType) UnmarshalText(text []byte) error {
	v, err := policyTypeEnum.parseText(string(text))
	*t = PolicyType(v)

	return err
}

// PasswordResetStatus is the status of a password reset request.
type PasswordResetStatus int

const (
	// PasswordResetStatusUnused marks a reset whose security code has not been used yet.
	PasswordResetStatusUnused PasswordResetStatus = iota
	// PasswordResetStatusUsed marks a completed reset.
	PasswordResetStatusUsed
	// PasswordResetStatusExpired marks a reset that was never used and is now too old.
	PasswordResetStatusExpired
)

func (s PasswordResetStatus) String() string {
	t, _ := passwordResetStatusEnum.text(int(s))

	return t
}

// Value implements driver.Valuer.
func (s PasswordResetStatus) Value() (driver.Value, error) {
	if _, err := passwordResetStatusEnum.text(int(s)); err != nil {
		return nil, err
	}

	return int64(s), nil
}

// Scan implements sql.Scanner.
func (s *PasswordResetStatus) Scan(value any) error {
	v, err := passwordResetStatusEnum.scan(value)
	*s = PasswordResetStatus(v)

	return err
}

// MarshalText implements encoding.TextMarshaler.
func (s PasswordResetStatus) MarshalText() ([]byte, error) {
	t, err := passwordResetStatusEnum.text(int(s))
	return []byte(t), err
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PasswordResetStatus) UnmarshalText(text []byte) error {
	v, err := passwordResetStatusEnum.parseText(string(text))
	*s = PasswordResetStatus(v)

	return err
}

// TokenType is the format of a token's data.
type TokenType string

const (
	// TokenTypeJWT is a signed JSON Web Token.
	TokenTypeJWT TokenType = "jwt"
)

// Value implements driver.Valuer.
func (t TokenType) Value() (driver.Value, error) {
	if t != TokenTypeJWT {
		return nil, fmt.Errorf("invalid token type %q", string(t))
	}

	return string(t), nil
}

// Scan implements sql.Scanner.
func (t *TokenType) Scan(value any) error {
	switch v := value.(type) {
	case string:
		*t = TokenType(v)
	case []byte:
		*t = TokenType(v)
	default:
		return fmt.Errorf("unsupported token type column type %T", value)
	}

	if *t != TokenTypeJWT {
		return fmt.Errorf("invalid token type %q", string(*t))
	}

	return nil
}

// TokenStatus is derived from a token's validity dates and is never stored.
type TokenStatus string

const (
	// TokenStatusActive is a token that may be used.
	TokenStatusActive TokenStatus = "active"
	// TokenStatusExpired is a token past its expiry date.
	TokenStatusExpired TokenStatus = "expired"
	// TokenStatusRevoked is a token past its revocation date.
	TokenStatusRevoked TokenStatus = "revoked"
	// TokenStatusPending is a token whose validity has not started yet.
	TokenStatusPending TokenStatus = "pending"
)

// GroupMemberType is the type of a group member.
type GroupMemberType string

const (
	// GroupMemberTypeUser is a user member.
	GroupMemberTypeUser GroupMemberType = "user"
	// GroupMemberTypeGroup is a nested group member.
	GroupMemberTypeGroup GroupMemberType = "group"
)

// SortDirection orders list results.
type SortDirection string

const (
	// SortAscending sorts ascending.
	SortAscending SortDirection = "asc"
	// SortDescending sorts descending.
	SortDescending SortDirection = "desc"
)

// ParseSortDirection parses a sort direction, defaulting to ascending.
func ParseSortDirection(s string) SortDirection {
	if strings.EqualFold(s, string(SortDescending)) {
		return SortDescending
	}

	return SortAscending
}

// UserSortBy is the attribute users are sorted by.
type UserSortBy string

const (
	// UserSortByName sorts by name.
	UserSortByName UserSortBy = "name"
	// UserSortByPreferredName sorts by preferred name.
	UserSortByPreferredName UserSortBy = "preferred_name"
	// UserSortByUsername sorts by username.
	UserSortByUsername UserSortBy = "username"
)

// ParseUserSortBy parses a user sort attribute, defaulting to name.
func ParseUserSortBy(s string) UserSortBy {
	switch UserSortBy(strings.ToLower(s)) {
	case UserSortByPreferredName, "preferredname":
		return UserSortByPreferredName
	case UserSortByUsername:
		return UserSortByUsername
	default:
		return UserSortByName
	}
}
