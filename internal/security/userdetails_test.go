package security_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security"
)

func TestLoadUserByUsername(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tenant := f.createTenant(t, "Acme")
	require.NoError(t, f.svc.AddUserDirectoryToTenant(ctx, tenant.ID, f.dir.ID))

	f.createUser(t, "jane", "Password1")
	f.createGroup(t, "Tenant Admins")
	require.NoError(t, f.svc.AddUserToGroup(ctx, f.dir.ID, "Tenant Admins", "jane"))
	require.NoError(t, f.svc.AddRoleToGroup(ctx, f.dir.ID, "Tenant Admins", security.RoleTenantAdministrator))

	f.createGroup(t, "Resetters")
	require.NoError(t, f.svc.AddUserToGroup(ctx, f.dir.ID, "Resetters", "jane"))
	require.NoError(t, f.svc.AddRoleToGroup(ctx, f.dir.ID, "Resetters", security.RolePasswordResetter))

	tenantDirs, err := f.svc.GetUserDirectoriesForTenant(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, tenantDirs, 2)

	details, err := f.svc.UserDetailsService().LoadUserByUsername(ctx, "JANE")
	require.NoError(t, err)
	assert.Equal(t, "jane", details.Username)
	assert.Equal(t, f.dir.ID, details.UserDirectoryID)
	assert.True(t, details.IsEnabled())
	assert.True(t, details.IsAccountNonLocked())
	assert.True(t, details.IsCredentialsNonExpired())

	assert.IsNonDecreasing(t, details.Authorities)

	expected := []string{
		"FUNCTION_" + security.FunctionGroupAdministration,
		"FUNCTION_" + security.FunctionResetUserPassword,
		"FUNCTION_" + security.FunctionUserAdministration,
		"FUNCTION_" + security.FunctionUserGroups,
		"ROLE_" + security.RolePasswordResetter,
		"ROLE_" + security.RoleTenantAdministrator,
		"TENANT_" + tenant.ID.String(),
	}
	for _, dir := range tenantDirs {
		expected = append(expected, "USER_DIRECTORY_"+dir.ID.String())
	}

	assert.ElementsMatch(t, expected, details.Authorities)

	assert.True(t, details.HasFunction(security.FunctionResetUserPassword))
	assert.False(t, details.HasFunction(security.FunctionTokenAdministration))
	assert.False(t, details.IsAdministrator())
	assert.True(t, details.HasAccessToTenant(tenant.ID))
	assert.True(t, details.HasAccessToUserDirectory(f.dir.ID))
	assert.True(t, details.HasAnyAuthority("ROLE_Nobody", "ROLE_"+security.RolePasswordResetter))

	_, err = f.svc.UserDetailsService().LoadUserByUsername(ctx, "nobody")
	require.ErrorIs(t, err, problem.ErrUserNotFound)
}

func TestAuthenticationManager(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createUser(t, "root", "Password1")
	f.createGroup(t, "Administrators")
	require.NoError(t, f.svc.AddUserToGroup(ctx, f.dir.ID, "Administrators", "root"))
	require.NoError(t, f.svc.AddRoleToGroup(ctx, f.dir.ID, "Administrators", security.RoleAdministrator))

	manager := security.NewAuthenticationManager(f.svc, f.svc.UserDetailsService())

	auth, err := manager.Authenticate(ctx, "root", "Password1")
	require.NoError(t, err)
	assert.True(t, auth.Authenticated)
	assert.True(t, auth.Principal.IsAdministrator())
	assert.Equal(t, []string{"ROLE_" + security.RoleAdministrator}, auth.Authorities)

	// administrators hold every function implicitly
	assert.True(t, auth.Principal.HasFunction(security.FunctionPolicyAdministration))

	_, err = manager.Authenticate(ctx, "root", "wrong")
	require.ErrorIs(t, err, problem.ErrAuthenticationFailed)
}

func TestPrincipalContext(t *testing.T) {
	_, ok := security.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	principal := &security.UserDetails{Username: "jane"}
	got, ok := security.PrincipalFromContext(security.ContextWithPrincipal(context.Background(), principal))
	require.True(t, ok)
	assert.Same(t, principal, got)
}
