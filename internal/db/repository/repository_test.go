package repository_test

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
)

// setupRepositories creates repositories over a migrated in-memory SQLite database.
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

func createDirectory(t *testing.T, repos *repository.Repositories, name string) *models.UserDirectory {
	t.Helper()

	d := &models.UserDirectory{
		Type: "InternalUserDirectory",
		Name: name,
		Parameters: []models.UserDirectoryParameter{
			{Name: "MaxPasswordAttempts", Value: "5"},
		},
	}
	require.NoError(t, repos.UserDirectories.Create(context.Background(), d))

	return d
}

func createUser(t *testing.T, repos *repository.Repositories, dirID uuid.UUID, username, name string) *models.User {
	t.Helper()

	u := &models.User{UserDirectoryID: dirID, Username: username, Name: name, Status: models.UserStatusActive}
	require.NoError(t, repos.Users.Create(context.Background(), u))

	return u
}

func createGroup(t *testing.T, repos *repository.Repositories, dirID uuid.UUID, name string) *models.Group {
	t.Helper()

	g := &models.Group{UserDirectoryID: dirID, Name: name}
	require.NoError(t, repos.Groups.Create(context.Background(), g))

	return g
}

func TestNewNilDB(t *testing.T) {
	_, err := repository.New(nil)
	require.ErrorIs(t, err, repository.ErrDBNil)
}

func TestTenants(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	for _, name := range []string{"Bravo", "alpha", "Charlie"} {
		require.NoError(t, repos.Tenants.Create(ctx, &models.Tenant{Name: name, Status: models.TenantStatusActive}))
	}

	page, err := repos.Tenants.FindAll(ctx, repository.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 3)
	assert.Equal(t, repository.DefaultPageSize, page.PageSize)

	page, err = repos.Tenants.FindAll(ctx, repository.ListOptions{Filter: "AR", SortDirection: models.SortDescending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, "Charlie", page.Items[0].Name)

	page, err = repos.Tenants.FindAll(ctx, repository.ListOptions{PageIndex: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 1)

	tenant := page.Items[0]

	exists, err := repos.Tenants.ExistsByName(ctx, "BRAVO", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repos.Tenants.ExistsByName(ctx, tenant.Name, tenant.ID)
	require.NoError(t, err)
	assert.False(t, exists, "a tenant does not clash with itself")

	_, err = repos.Tenants.FindByID(ctx, uuid.New())
	require.ErrorIs(t, err, problem.ErrTenantNotFound)

	require.ErrorIs(t, repos.Tenants.Delete(ctx, uuid.New()), problem.ErrTenantNotFound)
}

func TestTenantUserDirectories(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	tenant := &models.Tenant{Name: "Acme", Status: models.TenantStatusActive}
	require.NoError(t, repos.Tenants.Create(ctx, tenant))

	d1 := createDirectory(t, repos, "Acme Internal")
	d2 := createDirectory(t, repos, "Acme LDAP")

	require.NoError(t, repos.Tenants.AddUserDirectory(ctx, tenant.ID, d1.ID))
	require.NoError(t, repos.Tenants.AddUserDirectory(ctx, tenant.ID, d2.ID))

	linked, err := repos.Tenants.HasUserDirectory(ctx, tenant.ID, d1.ID)
	require.NoError(t, err)
	assert.True(t, linked)

	ids, err := repos.Tenants.FindUserDirectoryIDsByTenantID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{d1.ID, d2.ID}, ids)

	tenantIDs, err := repos.Tenants.FindIDsByUserDirectoryID(ctx, d1.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{tenant.ID}, tenantIDs)

	summaries, err := repos.UserDirectories.FindSummariesByTenantID(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Acme Internal", summaries[0].Name)
	assert.Equal(t, d1.ID, summaries[0].ID)

	directories, err := repos.UserDirectories.FindByTenantID(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, directories, 2)
	assert.Len(t, directories[0].Parameters, 1)

	removed, err := repos.Tenants.RemoveUserDirectory(ctx, tenant.ID, d2.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repos.Tenants.RemoveUserDirectory(ctx, tenant.ID, d2.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, repos.Tenants.Delete(ctx, tenant.ID))

	tenantIDs, err = repos.Tenants.FindIDsByUserDirectoryID(ctx, d1.ID)
	require.NoError(t, err)
	assert.Empty(t, tenantIDs)
}

func TestUserDirectories(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	d := createDirectory(t, repos, "Internal")

	got, err := repos.UserDirectories.FindByID(ctx, d.ID)
	require.NoError(t, err)
	value, ok := got.Parameter("MaxPasswordAttempts")
	assert.True(t, ok)
	assert.Equal(t, "5", value)

	got.Name = "Renamed"
	got.Parameters = []models.UserDirectoryParameter{{Name: "PasswordExpiryMonths", Value: "3"}}
	require.NoError(t, repos.UserDirectories.Save(ctx, got))

	got, err = repos.UserDirectories.FindByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.Len(t, got.Parameters, 1)
	assert.Equal(t, "PasswordExpiryMonths", got.Parameters[0].Name)

	name, err := repos.UserDirectories.FindNameByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", name)

	typ, err := repos.UserDirectories.FindTypeByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "InternalUserDirectory", typ)

	_, err = repos.UserDirectories.FindNameByID(ctx, uuid.New())
	require.ErrorIs(t, err, problem.ErrUserDirectoryNotFound)

	page, err := repos.UserDirectories.FindSummaries(ctx, repository.ListOptions{Filter: "name"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, d.ID, page.Items[0].ID)
	assert.Equal(t, "InternalUserDirectory", page.Items[0].Type)

	require.NoError(t, repos.UserDirectories.Delete(ctx, d.ID))
	require.ErrorIs(t, repos.UserDirectories.Delete(ctx, d.ID), problem.ErrUserDirectoryNotFound)

	_, err = repos.UserDirectories.FindByID(ctx, d.ID)
	require.ErrorIs(t, err, problem.ErrUserDirectoryNotFound)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	internal := createDirectory(t, repos, "B Internal")
	other := createDirectory(t, repos, "A Other")

	alice := createUser(t, repos, internal.ID, "alice", "Alice Smith")
	createUser(t, repos, internal.ID, "bob", "Bob Jones")
	createUser(t, repos, other.ID, "alice", "Alice Other")

	got, err := repos.Users.FindByUsername(ctx, internal.ID, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = repos.Users.FindByUsername(ctx, internal.ID, "carol")
	require.ErrorIs(t, err, problem.ErrUserNotFound)

	exists, err := repos.Users.ExistsByUsernameInAnyDirectory(ctx, "Bob")
	require.NoError(t, err)
	assert.True(t, exists)

	dirID, err := repos.Users.FindUserDirectoryIDByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, other.ID, dirID, "the directory with the lowest name wins")

	_, err = repos.Users.FindUserDirectoryIDByUsername(ctx, "nobody")
	require.ErrorIs(t, err, problem.ErrUserNotFound)

	count, err := repos.Users.CountByUserDirectoryID(ctx, internal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	page, err := repos.Users.FindAll(ctx, internal.ID, repository.UserListOptions{
		ListOptions: repository.ListOptions{Filter: "jones"},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "bob", page.Items[0].Username)

	page, err = repos.Users.FindAll(ctx, internal.ID, repository.UserListOptions{
		ListOptions: repository.ListOptions{SortDirection: models.SortDescending},
		SortBy:      models.UserSortByUsername,
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "bob", page.Items[0].Username)

	require.NoError(t, repos.Users.Delete(ctx, alice.ID))
	require.ErrorIs(t, repos.Users.Delete(ctx, alice.ID), problem.ErrUserNotFound)
}

func TestPasswordHistory(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	d := createDirectory(t, repos, "Internal")
	u := createUser(t, repos, d.ID, "alice", "Alice")

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i, hash := range []string{"h1", "h2", "h3"} {
		require.NoError(t, repos.Users.AddPasswordHistory(ctx, u.ID, hash, now.AddDate(0, -i*12, 0)))
	}

	history, err := repos.Users.FindPasswordHistorySince(ctx, u.ID, now.AddDate(0, -13, 0), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "h1", history[0].Password)
	assert.Equal(t, "h2", history[1].Password)

	history, err = repos.Users.FindPasswordHistorySince(ctx, u.ID, now.AddDate(-10, 0, 0), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, repos.Users.DeletePasswordHistory(ctx, u.ID))

	history, err = repos.Users.FindPasswordHistorySince(ctx, u.ID, now.AddDate(-10, 0, 0), 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestGroupsAndAuthorities(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	d := createDirectory(t, repos, "Internal")
	alice := createUser(t, repos, d.ID, "alice", "Alice")
	admins := createGroup(t, repos, d.ID, "Administrators")
	staff := createGroup(t, repos, d.ID, "Staff")

	require.NoError(t, repos.Roles.Create(ctx, &models.Role{Code: "Administrator", Name: "Administrator"}))
	require.NoError(t, repos.Roles.Create(ctx, &models.Role{Code: "PasswordResetter", Name: "Password Resetter"}))
	require.NoError(t, repos.Roles.Create(ctx, &models.Role{Code: "Administrator", Name: "ignored duplicate"}))

	require.NoError(t, repos.Functions.Create(ctx, &models.Function{Code: "Security.UserAdministration", Name: "User Administration"}))
	require.NoError(t, repos.Functions.Create(ctx, &models.Function{Code: "Security.ResetUserPassword", Name: "Reset User Password"}))

	require.NoError(t, repos.Roles.AddFunction(ctx, "Administrator", "Security.UserAdministration"))
	require.NoError(t, repos.Roles.AddFunction(ctx, "Administrator", "Security.ResetUserPassword"))
	require.NoError(t, repos.Roles.AddFunction(ctx, "PasswordResetter", "Security.ResetUserPassword"))
	require.NoError(t, repos.Roles.AddFunction(ctx, "PasswordResetter", "Security.ResetUserPassword"))

	require.NoError(t, repos.Groups.AddRole(ctx, admins.ID, "Administrator"))
	require.NoError(t, repos.Groups.AddRole(ctx, staff.ID, "PasswordResetter"))
	require.NoError(t, repos.Groups.AddMember(ctx, admins.ID, alice.ID))
	require.NoError(t, repos.Groups.AddMember(ctx, staff.ID, alice.ID))

	roles, err := repos.Roles.FindCodesByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Administrator", "PasswordResetter"}, roles)

	functions, err := repos.Functions.FindCodesByUserID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Security.ResetUserPassword", "Security.UserAdministration"}, functions)

	groups, err := repos.Groups.FindByUserID(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Administrators", groups[0].Name)

	usernames, err := repos.Users.FindUsernamesByGroupID(ctx, admins.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, usernames)

	members, err := repos.Groups.CountMembers(ctx, admins.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), members)

	groupRoles, err := repos.Roles.FindByGroupID(ctx, staff.ID)
	require.NoError(t, err)
	require.Len(t, groupRoles, 1)
	assert.Equal(t, "PasswordResetter", groupRoles[0].Code)

	removed, err := repos.Groups.RemoveRole(ctx, staff.ID, "PasswordResetter")
	require.NoError(t, err)
	assert.True(t, removed)

	require.NoError(t, repos.Groups.RemoveMemberships(ctx, d.ID, alice.ID))

	isMember, err := repos.Groups.IsMember(ctx, admins.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	_, err = repos.Groups.FindByName(ctx, d.ID, "missing")
	require.ErrorIs(t, err, problem.ErrGroupNotFound)

	_, err = repos.Roles.FindByCode(ctx, "missing")
	require.ErrorIs(t, err, problem.ErrRoleNotFound)

	require.NoError(t, repos.Functions.Delete(ctx, "Security.ResetUserPassword"))
	require.ErrorIs(t, repos.Functions.Delete(ctx, "Security.ResetUserPassword"), problem.ErrFunctionNotFound)

	codes, err := repos.Roles.FindFunctionCodes(ctx, "Administrator")
	require.NoError(t, err)
	assert.Equal(t, []string{"Security.UserAdministration"}, codes)

	require.NoError(t, repos.Groups.Delete(ctx, admins.ID))
	require.ErrorIs(t, repos.Groups.Delete(ctx, admins.ID), problem.ErrGroupNotFound)
}

func TestTokensPoliciesAndResets(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	token := &models.Token{
		Type:   models.TokenTypeJWT,
		Name:   "Build Server",
		Claims: models.TokenClaims{{Name: "scope", Values: []string{"read"}}},
		Data:   "header.payload.signature",
		Issued: time.Now().UTC(),
	}
	require.NoError(t, repos.Tokens.Create(ctx, token))

	got, err := repos.Tokens.FindByID(ctx, token.ID)
	require.NoError(t, err)
	assert.Equal(t, token.Claims, got.Claims)

	exists, err := repos.Tokens.ExistsByName(ctx, "build server")
	require.NoError(t, err)
	assert.True(t, exists)

	tokens, err := repos.Tokens.FindAll(ctx, "server")
	require.NoError(t, err)
	assert.Len(t, tokens, 1)

	require.NoError(t, repos.Tokens.Delete(ctx, token.ID))
	require.ErrorIs(t, repos.Tokens.Delete(ctx, token.ID), problem.ErrTokenNotFound)

	policy := &models.Policy{ID: "urn:policy", Version: "1.0", Name: "Policy", Type: models.PolicyTypeXACMLPolicy, Data: "<Policy/>"}
	require.NoError(t, repos.Policies.Create(ctx, policy))

	summaries, err := repos.Policies.FindSummaries(ctx, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, summaries.Items, 1)
	assert.Equal(t, "urn:policy", summaries.Items[0].ID)

	_, err = repos.Policies.FindByID(ctx, "urn:missing")
	require.ErrorIs(t, err, problem.ErrPolicyNotFound)

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	old := &models.PasswordReset{Username: "alice", Requested: now.Add(-48 * time.Hour), SecurityCodeHash: "old"}
	fresh := &models.PasswordReset{Username: "alice", Requested: now.Add(-time.Hour), SecurityCodeHash: "fresh"}
	require.NoError(t, repos.PasswordResets.Create(ctx, old))
	require.NoError(t, repos.PasswordResets.Create(ctx, fresh))

	unused, err := repos.PasswordResets.FindUnused(ctx, "ALICE")
	require.NoError(t, err)
	require.Len(t, unused, 2)
	assert.Equal(t, "fresh", unused[0].SecurityCodeHash)

	expired, err := repos.PasswordResets.ExpireRequestedBefore(ctx, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	claimed, err := repos.PasswordResets.Claim(ctx, fresh, now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repos.PasswordResets.Claim(ctx, fresh, now)
	require.NoError(t, err)
	assert.False(t, claimed, "a used reset can not be claimed again")

	claimed, err = repos.PasswordResets.Claim(ctx, old, now)
	require.NoError(t, err)
	assert.False(t, claimed, "an expired reset can not be claimed")

	unused, err = repos.PasswordResets.FindUnused(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, unused)
}

func TestTransactionRollback(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Tenants.Create(ctx, &models.Tenant{Name: "Rolled Back"}); err != nil {
			return err
		}

		return problem.ErrInvalidArgument
	})
	require.ErrorIs(t, err, problem.ErrInvalidArgument)

	exists, err := repos.Tenants.ExistsByName(ctx, "Rolled Back", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteGroupsByUserDirectory(t *testing.T) {
	ctx := context.Background()
	repos := setupRepositories(t)

	dir := createDirectory(t, repos, "Doomed")
	other := createDirectory(t, repos, "Kept")

	user := createUser(t, repos, dir.ID, "jane", "Jane")
	group := createGroup(t, repos, dir.ID, "Staff")
	kept := createGroup(t, repos, other.ID, "Staff")

	require.NoError(t, repos.Roles.Create(ctx, &models.Role{Code: "Auditor", Name: "Auditor"}))
	require.NoError(t, repos.Groups.AddMember(ctx, group.ID, user.ID))
	require.NoError(t, repos.Groups.AddRole(ctx, group.ID, "Auditor"))
	require.NoError(t, repos.Groups.AddRole(ctx, kept.ID, "Auditor"))

	require.NoError(t, repos.Groups.DeleteByUserDirectoryID(ctx, dir.ID))

	names, err := repos.Groups.FindNames(ctx, dir.ID)
	require.NoError(t, err)
	assert.Empty(t, names)

	isMember, err := repos.Groups.IsMember(ctx, group.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	hasRole, err := repos.Groups.HasRole(ctx, kept.ID, "Auditor")
	require.NoError(t, err)
	assert.True(t, hasRole)
}
