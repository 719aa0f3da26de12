package directory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

const (
	peopleDN  = "ou=people,dc=example,dc=org"
	groupsDN  = "ou=groups,dc=example,dc=org"
	serviceDN = "cn=service,dc=example,dc=org"
)

// fakeServer is an in-memory LDAP server understanding the default user and group filters.
type fakeServer struct {
	users     map[string]map[string][]string // uid -> attributes
	passwords map[string]string              // dn -> password
	groups    map[string][]string            // cn -> member DNs
	modified  map[string]string              // dn -> new password
	dialErr   error
	closed    int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		users: map[string]map[string][]string{
			"jane": {
				"uid": {"jane"}, "mail": {"jane@example.org"}, "givenName": {"Jane"}, "sn": {"Doe"},
				"telephoneNumber": {"+1 555 0100"},
			},
			"john": {"uid": {"john"}, "cn": {"John Smith"}},
		},
		passwords: map[string]string{
			userDN("jane"): "secret",
			userDN("john"): "hunter2",
			serviceDN:      "service-secret",
		},
		groups: map[string][]string{
			"Staff":  {userDN("jane"), userDN("john")},
			"Admins": {userDN("jane")},
		},
		modified: map[string]string{},
	}
}

func userDN(uid string) string {
	return "uid=" + uid + "," + peopleDN
}

func (s *fakeServer) dial(*directory.LDAPConfig) (directory.Conn, error) {
	if s.dialErr != nil {
		return nil, s.dialErr
	}

	return &fakeConn{s: s}, nil
}

type fakeConn struct {
	s *fakeServer
}

func (c *fakeConn) Bind(username, password string) error {
	if pw, ok := c.s.passwords[username]; ok && pw == password {
		return nil
	}

	return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
}

func (c *fakeConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	result := &ldap.SearchResult{}

	switch req.BaseDN {
	case peopleDN:
		for uid, attrs := range c.s.users {
			if req.Filter == fmt.Sprintf("(uid=%s)", ldap.EscapeFilter(uid)) {
				result.Entries = append(result.Entries, ldap.NewEntry(userDN(uid), attrs))
			}
		}
	case groupsDN:
		for cn, members := range c.s.groups {
			for _, member := range members {
				if req.Filter == fmt.Sprintf("(member=%s)", ldap.EscapeFilter(member)) {
					result.Entries = append(result.Entries, ldap.NewEntry("cn="+cn+","+groupsDN, map[string][]string{"cn": {cn}}))
				}
			}
		}
	}

	return result, nil
}

func (c *fakeConn) PasswordModify(req *ldap.PasswordModifyRequest) (*ldap.PasswordModifyResult, error) {
	c.s.modified[req.UserIdentity] = req.NewPassword
	c.s.passwords[req.UserIdentity] = req.NewPassword

	return &ldap.PasswordModifyResult{}, nil
}

func (c *fakeConn) Close() error {
	c.s.closed++
	return nil
}

func setupLDAP(t *testing.T) (directory.UserDirectory, *repository.Repositories, *fakeServer) {
	t.Helper()

	repos := setupRepositories(t)
	server := newFakeServer()

	ud := createUserDirectory(t, repos, directory.TypeLDAP, "Corporate LDAP", map[string]string{
		directory.ParamHost:         "ldap.example.org",
		directory.ParamBaseDN:       peopleDN,
		directory.ParamGroupBaseDN:  groupsDN,
		directory.ParamBindDN:       serviceDN,
		directory.ParamBindPassword: "service-secret",
	})

	d, err := directory.New(ud, repos, directory.WithDialer(server.dial))
	require.NoError(t, err)

	return d, repos, server
}

func TestLDAPAuthenticate(t *testing.T) {
	ctx := context.Background()
	d, repos, server := setupLDAP(t)

	user, err := d.Authenticate(ctx, "jane", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, "Jane", user.PreferredName)
	assert.Equal(t, "jane@example.org", user.Email)
	assert.Equal(t, "+1 555 0100", user.PhoneNumber)
	assert.Equal(t, userDN("jane"), user.ExternalReference)
	assert.Equal(t, d.ID(), user.UserDirectoryID)
	assert.Equal(t, 1, server.closed)

	groups, err := repos.Groups.FindByUserID(ctx, user.ID)
	require.NoError(t, err)

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}

	assert.ElementsMatch(t, []string{"Staff", "Admins"}, names)

	// memberships follow the server on the next login
	server.groups["Admins"] = nil

	again, err := d.Authenticate(ctx, "jane", "secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "mirrored user is updated, not duplicated")

	groups, err = repos.Groups.FindByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Staff", groups[0].Name)

	john, err := d.Authenticate(ctx, "john", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", john.Name, "falls back to cn without given name and surname")
}

func TestLDAPAuthenticateFailures(t *testing.T) {
	ctx := context.Background()
	d, repos, server := setupLDAP(t)

	testCases := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"wrong password", "jane", "wrong", problem.ErrAuthenticationFailed},
		{"empty password", "jane", "", problem.ErrAuthenticationFailed},
		{"unknown user", "nobody", "secret", problem.ErrAuthenticationFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Authenticate(ctx, tc.username, tc.password)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}

	exists, err := repos.Users.ExistsByUsername(ctx, d.ID(), "jane")
	require.NoError(t, err)
	assert.False(t, exists, "failed logins must not mirror the user")

	server.dialErr = errors.New("connection refused")

	_, err = d.Authenticate(ctx, "jane", "secret")
	require.ErrorIs(t, err, problem.ErrServiceUnavailable)
}

func TestLDAPPasswords(t *testing.T) {
	ctx := context.Background()
	d, _, server := setupLDAP(t)

	require.ErrorIs(t, d.ChangePassword(ctx, "jane", "wrong", "new-secret"), problem.ErrAuthenticationFailed)

	require.NoError(t, d.ChangePassword(ctx, "jane", "secret", "new-secret"))
	assert.Equal(t, "new-secret", server.modified[userDN("jane")])

	_, err := d.Authenticate(ctx, "jane", "new-secret")
	require.NoError(t, err)

	require.NoError(t, d.AdminChangePassword(ctx, "john", "reset-secret", directory.AdminPasswordOptions{LockUser: true}))
	assert.Equal(t, "reset-secret", server.modified[userDN("john")])

	require.ErrorIs(t, d.ResetPassword(ctx, "nobody", "x"), problem.ErrUserNotFound)
}

func TestLDAPUnsupported(t *testing.T) {
	ctx := context.Background()
	d, _, _ := setupLDAP(t)

	require.ErrorIs(t, d.CreateUser(ctx, nil, false, false), problem.ErrUserDirectoryOperationNotSupported)
	require.ErrorIs(t, d.UpdateUser(ctx, nil, false, false), problem.ErrUserDirectoryOperationNotSupported)
	require.ErrorIs(t, d.DeleteUser(ctx, "jane"), problem.ErrUserDirectoryOperationNotSupported)
}

func TestLDAPLookups(t *testing.T) {
	ctx := context.Background()
	d, repos, _ := setupLDAP(t)

	exists, err := d.IsExistingUser(ctx, "john")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = d.IsExistingUser(ctx, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)

	user, err := d.GetUser(ctx, "john")
	require.NoError(t, err)
	assert.Equal(t, "John Smith", user.Name)

	mirrored, err := repos.Users.ExistsByUsername(ctx, d.ID(), "john")
	require.NoError(t, err)
	assert.True(t, mirrored)

	_, err = d.GetUser(ctx, "nobody")
	require.ErrorIs(t, err, problem.ErrUserNotFound)
}
