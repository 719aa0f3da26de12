package security_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/security"
)

func TestSeed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := security.SeedRequest{AdministratorUsername: "root", AdministratorPassword: "Sup3r-Secret"}

	require.NoError(t, f.svc.Seed(ctx, req))
	// runs on every start
	require.NoError(t, f.svc.Seed(ctx, req))

	dirID, err := f.svc.GetUserDirectoryIDForUser(ctx, "root")
	require.NoError(t, err)

	name, err := f.svc.GetUserDirectoryName(ctx, dirID)
	require.NoError(t, err)
	assert.Equal(t, security.AdministrationUserDirectoryName, name)

	roles, err := f.svc.GetRoleCodesForGroup(ctx, dirID, security.AdministratorsGroupName)
	require.NoError(t, err)
	assert.Equal(t, []string{security.RoleAdministrator}, roles)

	details, err := f.svc.UserDetailsService().LoadUserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.True(t, details.IsAdministrator())

	_, err = f.svc.Authenticate(ctx, "root", "Sup3r-Secret")
	require.NoError(t, err)
}

func TestSeedWithoutAdministrator(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.svc.Seed(context.Background(), security.SeedRequest{}))

	_, err := f.svc.GetUserDirectoryIDForUser(context.Background(), "administrator")
	require.Error(t, err)
}
