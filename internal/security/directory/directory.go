// Package directory implements the user directories users authenticate against.
//
// A user directory is created from its persisted configuration by New. The internal directory keeps
// users, passwords and groups in the security schema; the LDAP directory authenticates against an
// LDAP server and mirrors users and group memberships into the schema so roles can be granted to
// them like to any other group.
package directory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
)

// User directory type codes.
const (
	TypeInternal = "InternalUserDirectory"
	TypeLDAP     = "LDAPUserDirectory"
)

// Capabilities describes which operations a user directory supports.
type Capabilities struct {
	SupportsAdminChangePassword       bool `json:"supportsAdminChangePassword"`
	SupportsChangePassword            bool `json:"supportsChangePassword"`
	SupportsGroupAdministration       bool `json:"supportsGroupAdministration"`
	SupportsGroupMemberAdministration bool `json:"supportsGroupMemberAdministration"`
	SupportsPasswordExpiry            bool `json:"supportsPasswordExpiry"`
	SupportsPasswordHistory           bool `json:"supportsPasswordHistory"`
	SupportsUserAdministration        bool `json:"supportsUserAdministration"`
	SupportsUserLocks                 bool `json:"supportsUserLocks"`
}

// AdminPasswordOptions control an administrative password change.
type AdminPasswordOptions struct {
	ExpirePassword       bool
	LockUser             bool
	ResetPasswordHistory bool
}

// UserDirectory is an identity store users authenticate against.
type UserDirectory interface {
	// ID returns the ID of the user directory.
	ID() uuid.UUID
	// Capabilities returns the operations the user directory supports.
	Capabilities() Capabilities
	// Authenticate verifies the credentials and returns the authenticated user.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	// ChangePassword changes the password of a user who knows the current one.
	ChangePassword(ctx context.Context, username, password, newPassword string) error
	// AdminChangePassword sets the password of a user without knowing the current one.
	AdminChangePassword(ctx context.Context, username, newPassword string, opts AdminPasswordOptions) error
	// ResetPassword sets the password of a user at the end of a password reset.
	ResetPassword(ctx context.Context, username, newPassword string) error
	// CreateUser creates a user. user.Password carries the plaintext password, if any.
	CreateUser(ctx context.Context, user *models.User, expiredPassword, userLocked bool) error
	// UpdateUser updates a user. A non empty user.Password replaces the password.
	UpdateUser(ctx context.Context, user *models.User, expirePassword, lockUser bool) error
	// DeleteUser deletes a user.
	DeleteUser(ctx context.Context, username string) error
	// GetUser retrieves a user.
	GetUser(ctx context.Context, username string) (*models.User, error)
	// IsExistingUser reports whether the user directory holds the username.
	IsExistingUser(ctx context.Context, username string) (bool, error)
}

// Types lists the available user directory types.
func Types() []models.UserDirectoryType {
	return []models.UserDirectoryType{
		{Code: TypeInternal, Name: "Internal User Directory"},
		{Code: TypeLDAP, Name: "LDAP User Directory"},
	}
}

// CapabilitiesOf returns the capabilities of a user directory type.
func CapabilitiesOf(typeCode string) (Capabilities, error) {
	switch typeCode {
	case TypeInternal:
		return internalCapabilities, nil
	case TypeLDAP:
		return ldapCapabilities, nil
	default:
		return Capabilities{}, fmt.Errorf("%w: %s", problem.ErrUserDirectoryTypeNotFound, typeCode)
	}
}

// Options configure the user directories created by New.
type Options struct {
	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time
	// Dial opens LDAP connections. Defaults to DialLDAP.
	Dial Dialer
}

// Option configures Options.
type Option func(*Options)

// WithClock sets the clock of the user directory.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

// WithDialer sets the LDAP dialer.
func WithDialer(dial Dialer) Option {
	return func(o *Options) {
		o.Dial = dial
	}
}

// New creates the user directory implementation for the persisted configuration.
func New(ud *models.UserDirectory, repos *repository.Repositories, opts ...Option) (UserDirectory, error) {
	o := Options{
		Now:  func() time.Time { return time.Now().UTC() },
		Dial: DialLDAP,
	}

	for _, opt := range opts {
		opt(&o)
	}

	p := parameters{ud: ud}

	switch ud.Type {
	case TypeInternal:
		return newInternal(ud.ID, p, repos, o.Now)
	case TypeLDAP:
		return newLDAP(ud.ID, p, repos, o.Dial)
	default:
		return nil, fmt.Errorf("%w: %s", problem.ErrUserDirectoryTypeNotFound, ud.Type)
	}
}

// parameters reads typed user directory parameters.
type parameters struct {
	ud *models.UserDirectory
}

func (p parameters) String(name, def string) string {
	if v, ok := p.ud.Parameter(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	return def
}

func (p parameters) Int(name string, def int) (int, error) {
	v, ok := p.ud.Parameter(name)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: parameter %s must be a positive number", problem.ErrInvalidArgument, name)
	}

	return n, nil
}

func (p parameters) Bool(name string, def bool) (bool, error) {
	v, ok := p.ud.Parameter(name)
	if !ok || strings.TrimSpace(v) == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("%w: parameter %s must be true or false", problem.ErrInvalidArgument, name)
	}

	return b, nil
}

// unsupported reports an operation the user directory does not implement.
func unsupported(operation string) error {
	return fmt.Errorf("%w: %s", problem.ErrUserDirectoryOperationNotSupported, operation)
}
