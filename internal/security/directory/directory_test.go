package directory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/db"
	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

// clock is a settable time source.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)}
}

func setupRepositories(t *testing.T) *repository.Repositories {
	t.Helper()

	gdb, err := db.OpenMemory()
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	})

	repos, err := repository.New(gdb)
	require.NoError(t, err)

	return repos
}

func createUserDirectory(
	t *testing.T,
	repos *repository.Repositories,
	typeCode, name string,
	params map[string]string,
) *models.UserDirectory {
	t.Helper()

	ud := &models.UserDirectory{Type: typeCode, Name: name}
	for k, v := range params {
		ud.Parameters = append(ud.Parameters, models.UserDirectoryParameter{Name: k, Value: v})
	}

	require.NoError(t, repos.UserDirectories.Create(context.Background(), ud))

	return ud
}

func TestTypes(t *testing.T) {
	types := directory.Types()
	require.Len(t, types, 2)
	assert.Equal(t, directory.TypeInternal, types[0].Code)
	assert.Equal(t, directory.TypeLDAP, types[1].Code)
}

func TestCapabilitiesOf(t *testing.T) {
	internal, err := directory.CapabilitiesOf(directory.TypeInternal)
	require.NoError(t, err)
	assert.True(t, internal.SupportsUserAdministration)
	assert.True(t, internal.SupportsPasswordHistory)

	ldap, err := directory.CapabilitiesOf(directory.TypeLDAP)
	require.NoError(t, err)
	assert.True(t, ldap.SupportsChangePassword)
	assert.False(t, ldap.SupportsUserAdministration)
	assert.False(t, ldap.SupportsGroupMemberAdministration)

	_, err = directory.CapabilitiesOf("Kerberos")
	require.ErrorIs(t, err, problem.ErrUserDirectoryTypeNotFound)
}

func TestNew(t *testing.T) {
	repos := setupRepositories(t)

	testCases := []struct {
		name    string
		ud      *models.UserDirectory
		wantErr error
	}{
		{
			name: "internal defaults",
			ud:   &models.UserDirectory{ID: uuid.New(), Type: directory.TypeInternal},
		},
		{
			name: "ldap",
			ud: &models.UserDirectory{ID: uuid.New(), Type: directory.TypeLDAP, Parameters: []models.UserDirectoryParameter{
				{Name: directory.ParamHost, Value: "ldap.example.org"},
				{Name: directory.ParamBaseDN, Value: "ou=people,dc=example,dc=org"},
			}},
		},
		{
			name:    "unknown type",
			ud:      &models.UserDirectory{ID: uuid.New(), Type: "Kerberos"},
			wantErr: problem.ErrUserDirectoryTypeNotFound,
		},
		{
			name: "invalid number",
			ud: &models.UserDirectory{ID: uuid.New(), Type: directory.TypeInternal, Parameters: []models.UserDirectoryParameter{
				{Name: directory.ParamMaxPasswordAttempts, Value: "many"},
			}},
			wantErr: problem.ErrInvalidArgument,
		},
		{
			name: "invalid bool",
			ud: &models.UserDirectory{ID: uuid.New(), Type: directory.TypeLDAP, Parameters: []models.UserDirectoryParameter{
				{Name: directory.ParamHost, Value: "ldap.example.org"},
				{Name: directory.ParamBaseDN, Value: "dc=example,dc=org"},
				{Name: directory.ParamUseSSL, Value: "maybe"},
			}},
			wantErr: problem.ErrInvalidArgument,
		},
		{
			name:    "ldap without host",
			ud:      &models.UserDirectory{ID: uuid.New(), Type: directory.TypeLDAP},
			wantErr: problem.ErrInvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := directory.New(tc.ud, repos)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.ud.ID, d.ID())
		})
	}
}

func TestInternalParameters(t *testing.T) {
	repos := setupRepositories(t)

	ud := &models.UserDirectory{ID: uuid.New(), Type: directory.TypeInternal, Parameters: []models.UserDirectoryParameter{
		{Name: directory.ParamMaxFilteredUsers, Value: " 20 "},
	}}

	d, err := directory.New(ud, repos)
	require.NoError(t, err)

	internal, ok := d.(*directory.Internal)
	require.True(t, ok)
	assert.Equal(t, 20, internal.MaxFilteredUsers())
	assert.Equal(t, directory.DefaultMaxFilteredGroups, internal.MaxFilteredGroups())
}

func TestLDAPPortDefaults(t *testing.T) {
	repos := setupRepositories(t)

	params := []models.UserDirectoryParameter{
		{Name: directory.ParamHost, Value: "ldap.example.org"},
		{Name: directory.ParamBaseDN, Value: "dc=example,dc=org"},
	}

	d, err := directory.New(&models.UserDirectory{ID: uuid.New(), Type: directory.TypeLDAP, Parameters: params}, repos)
	require.NoError(t, err)
	assert.Equal(t, 389, d.(*directory.LDAP).Config().Port)

	params = append(params, models.UserDirectoryParameter{Name: directory.ParamUseSSL, Value: "true"})

	d, err = directory.New(&models.UserDirectory{ID: uuid.New(), Type: directory.TypeLDAP, Parameters: params}, repos)
	require.NoError(t, err)

	cfg := d.(*directory.LDAP).Config()
	assert.Equal(t, 636, cfg.Port)
	assert.Equal(t, "(uid={username})", cfg.UserFilter)
	assert.Equal(t, 10, cfg.Timeout)
}
