package security

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
)

// UserDetails is the authenticated view of a user.
type UserDetails struct {
	Username        string    `json:"username"`
	UserDirectoryID uuid.UUID `json:"userDirectoryId"`
	Name            string    `json:"name"`
	// Authorities are sorted and free of duplicates.
	Authorities []string `json:"authorities"`

	Enabled               bool `json:"enabled"`
	AccountNonLocked      bool `json:"accountNonLocked"`
	CredentialsNonExpired bool `json:"credentialsNonExpired"`
}

// HasAuthority reports whether the user holds authority.
func (u *UserDetails) HasAuthority(authority string) bool {
	_, found := slices.BinarySearch(u.Authorities, authority)
	return found
}

// HasAnyAuthority reports whether the user holds at least one of the authorities.
func (u *UserDetails) HasAnyAuthority(authorities ...string) bool {
	for _, a := range authorities {
		if u.HasAuthority(a) {
			return true
		}
	}

	return false
}

// IsAdministrator reports whether the user holds the administrator role.
func (u *UserDetails) IsAdministrator() bool {
	return u.HasAuthority(RoleAuthority(RoleAdministrator))
}

// HasFunction reports whether the user may perform a function. Administrators may perform any.
func (u *UserDetails) HasFunction(code string) bool {
	return u.IsAdministrator() || u.HasAuthority(FunctionAuthority(code))
}

// HasAccessToUserDirectory reports whether the user may administer a user directory.
func (u *UserDetails) HasAccessToUserDirectory(userDirectoryID uuid.UUID) bool {
	return u.IsAdministrator() || u.HasAuthority(UserDirectoryAuthorityPrefix+userDirectoryID.String())
}

// HasAccessToTenant reports whether the user may administer a tenant.
func (u *UserDetails) HasAccessToTenant(tenantID uuid.UUID) bool {
	return u.IsAdministrator() || u.HasAuthority(TenantAuthorityPrefix+tenantID.String())
}

// IsEnabled reports whether the user may log in.
func (u *UserDetails) IsEnabled() bool {
	return u.Enabled
}

// IsAccountNonLocked reports whether the user is not locked.
func (u *UserDetails) IsAccountNonLocked() bool {
	return u.AccountNonLocked
}

// IsCredentialsNonExpired reports whether the password of the user is still valid.
func (u *UserDetails) IsCredentialsNonExpired() bool {
	return u.CredentialsNonExpired
}

// UserDetailsService loads UserDetails from the security schema.
type UserDetailsService struct {
	repos *repository.Repositories
	now   func() time.Time
}

// NewUserDetailsService creates a UserDetailsService.
func NewUserDetailsService(repos *repository.Repositories) *UserDetailsService {
	return &UserDetailsService{repos: repos, now: func() time.Time { return time.Now().UTC() }}
}

// UserDetailsService returns a UserDetailsService sharing the repositories and clock of s.
func (s *Service) UserDetailsService() *UserDetailsService {
	return &UserDetailsService{repos: s.repos, now: s.now}
}

// LoadUserByUsername loads the user and flattens its functions, roles, tenants and the user
// directories of those tenants into authorities. Unknown usernames fail with ErrUserNotFound.
func (s *UserDetailsService) LoadUserByUsername(ctx context.Context, username string) (*UserDetails, error) {
	userDirectoryID, err := s.repos.Users.FindUserDirectoryIDByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.FindByUsername(ctx, userDirectoryID, username)
	if err != nil {
		return nil, err
	}

	functionCodes, err := s.repos.Functions.FindCodesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	tenantIDs, err := s.repos.Tenants.FindIDsByUserDirectoryID(ctx, userDirectoryID)
	if err != nil {
		return nil, err
	}

	var userDirectoryIDs []uuid.UUID

	for _, tenantID := range tenantIDs {
		ids, errIDs := s.repos.Tenants.FindUserDirectoryIDsByTenantID(ctx, tenantID)
		if errIDs != nil {
			return nil, errIDs
		}

		userDirectoryIDs = append(userDirectoryIDs, ids...)
	}

	roleCodes, err := s.repos.Roles.FindCodesByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	authorities := make([]string, 0, len(functionCodes)+len(roleCodes)+len(tenantIDs)+len(userDirectoryIDs))

	for _, code := range functionCodes {
		authorities = append(authorities, FunctionAuthorityPrefix+code)
	}

	for _, code := range roleCodes {
		authorities = append(authorities, RoleAuthorityPrefix+code)
	}

	for _, id := range tenantIDs {
		authorities = append(authorities, TenantAuthorityPrefix+id.String())
	}

	for _, id := range userDirectoryIDs {
		authorities = append(authorities, UserDirectoryAuthorityPrefix+id.String())
	}

	slices.Sort(authorities)

	return &UserDetails{
		Username:              user.Username,
		UserDirectoryID:       user.UserDirectoryID,
		Name:                  user.Name,
		Authorities:           slices.Compact(authorities),
		Enabled:               user.Status != models.UserStatusInactive,
		AccountNonLocked:      user.Status != models.UserStatusLocked,
		CredentialsNonExpired: !user.IsPasswordExpired(s.now()),
	}, nil
}

type principalKey struct{}

// ContextWithPrincipal returns a context carrying the user a call is made on behalf of.
func ContextWithPrincipal(ctx context.Context, principal *UserDetails) context.Context {
	return context.WithValue(ctx, principalKey{}, principal)
}

// PrincipalFromContext returns the user a call is made on behalf of. Calls without a principal are
// made by the system itself, e.g. seeding or the CLI.
func PrincipalFromContext(ctx context.Context) (*UserDetails, bool) {
	p, ok := ctx.Value(principalKey{}).(*UserDetails)
	return p, ok && p != nil
}
