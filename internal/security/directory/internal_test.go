package directory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
	"github.com/lobkit/identity/internal/security/directory"
)

const day = 24 * time.Hour

func setupInternal(
	t *testing.T,
	params map[string]string,
) (directory.UserDirectory, *repository.Repositories, *clock) {
	t.Helper()

	repos := setupRepositories(t)
	clk := newClock()
	ud := createUserDirectory(t, repos, directory.TypeInternal, "Internal", params)

	d, err := directory.New(ud, repos, directory.WithClock(clk.Now))
	require.NoError(t, err)

	return d, repos, clk
}

func createInternalUser(t *testing.T, d directory.UserDirectory, username, password string) *models.User {
	t.Helper()

	u := &models.User{Username: username, Name: "Test " + username, Password: password, Status: models.UserStatusActive}
	require.NoError(t, d.CreateUser(context.Background(), u, false, false))

	return u
}

func TestInternalAuthenticate(t *testing.T) {
	ctx := context.Background()
	d, repos, _ := setupInternal(t, map[string]string{directory.ParamMaxPasswordAttempts: "3"})

	created := createInternalUser(t, d, "jane", "Password1")
	assert.Empty(t, created.Password, "plaintext password must not be kept")

	user, err := d.Authenticate(ctx, "JANE", "Password1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, user.ID)

	_, err = d.Authenticate(ctx, "nobody", "Password1")
	require.ErrorIs(t, err, problem.ErrAuthenticationFailed)

	// a failed attempt followed by a success resets the counter
	_, err = d.Authenticate(ctx, "jane", "wrong")
	require.ErrorIs(t, err, problem.ErrAuthenticationFailed)

	user, err = d.Authenticate(ctx, "jane", "Password1")
	require.NoError(t, err)
	assert.Zero(t, user.PasswordAttempts)

	for range 3 {
		_, err = d.Authenticate(ctx, "jane", "wrong")
		require.ErrorIs(t, err, problem.ErrAuthenticationFailed)
	}

	_, err = d.Authenticate(ctx, "jane", "Password1")
	require.ErrorIs(t, err, problem.ErrUserLocked)

	stored, err := repos.Users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusLocked, stored.Status)
	assert.Equal(t, 3, stored.PasswordAttempts)
}

func TestInternalAuthenticateInactive(t *testing.T) {
	ctx := context.Background()
	d, _, _ := setupInternal(t, nil)

	u := &models.User{Username: "idle", Name: "Idle", Password: "Password1", Status: models.UserStatusInactive}
	require.NoError(t, d.CreateUser(ctx, u, false, false))

	_, err := d.Authenticate(ctx, "idle", "Password1")
	require.ErrorIs(t, err, problem.ErrAuthenticationFailed)
}

func TestInternalConcurrentFailedAttempts(t *testing.T) {
	ctx := context.Background()
	d, repos, _ := setupInternal(t, map[string]string{directory.ParamMaxPasswordAttempts: "10"})

	created := createInternalUser(t, d, "jane", "Password1")

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Authenticate(ctx, "jane", "wrong")
			assert.ErrorIs(t, err, problem.ErrAuthenticationFailed)
		}()
	}
	wg.Wait()

	stored, err := repos.Users.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.PasswordAttempts)
	assert.Equal(t, models.UserStatusActive, stored.Status)
}

func TestInternalPasswordChangesKeepStatus(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		status  models.UserStatus
		change  func(d directory.UserDirectory) error
		want    models.UserStatus
		wantErr error
	}{
		{"change rejects inactive", models.UserStatusInactive, func(d directory.UserDirectory) error {
			return d.ChangePassword(ctx, "jane", "Password1", "Password2")
		}, models.UserStatusInactive, problem.ErrAuthenticationFailed},
		{"change renews expired", models.UserStatusExpired, func(d directory.UserDirectory) error {
			return d.ChangePassword(ctx, "jane", "Password1", "Password2")
		}, models.UserStatusActive, nil},
		{"reset keeps inactive", models.UserStatusInactive, func(d directory.UserDirectory) error {
			return d.ResetPassword(ctx, "jane", "Password2")
		}, models.UserStatusInactive, nil},
		{"reset keeps locked", models.UserStatusLocked, func(d directory.UserDirectory) error {
			return d.ResetPassword(ctx, "jane", "Password2")
		}, models.UserStatusLocked, nil},
		{"admin change keeps inactive", models.UserStatusInactive, func(d directory.UserDirectory) error {
			return d.AdminChangePassword(ctx, "jane", "Password2", directory.AdminPasswordOptions{})
		}, models.UserStatusInactive, nil},
		{"admin change locks inactive", models.UserStatusInactive, func(d directory.UserDirectory) error {
			return d.AdminChangePassword(ctx, "jane", "Password2", directory.AdminPasswordOptions{LockUser: true})
		}, models.UserStatusLocked, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, repos, clk := setupInternal(t, nil)

			created := &models.User{Username: "jane", Name: "Jane", Password: "Password1", Status: tc.status}
			require.NoError(t, d.CreateUser(ctx, created, false, false))

			clk.Advance(day)

			err := tc.change(d)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
			}

			stored, err := repos.Users.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stored.Status)
			assert.Zero(t, stored.PasswordAttempts)
		})
	}
}

func TestInternalPasswordExpiry(t *testing.T) {
	ctx := context.Background()
	d, _, clk := setupInternal(t, map[string]string{directory.ParamPasswordExpiryMonths: "1"})

	createInternalUser(t, d, "jane", "Password1")

	clk.Advance(45 * day)

	_, err := d.Authenticate(ctx, "jane", "Password1")
	require.ErrorIs(t, err, problem.ErrExpiredPassword)

	require.NoError(t, d.ChangePassword(ctx, "jane", "Password1", "Password2"))

	user, err := d.Authenticate(ctx, "jane", "Password2")
	require.NoError(t, err)
	require.NotNil(t, user.PasswordExpiry)
	assert.True(t, user.PasswordExpiry.After(clk.Now()))
}

func TestInternalCreateExpiredOrLocked(t *testing.T) {
	ctx := context.Background()
	d, _, _ := setupInternal(t, nil)

	expired := &models.User{Username: "expired", Name: "Expired", Password: "Password1", Status: models.UserStatusActive}
	require.NoError(t, d.CreateUser(ctx, expired, true, false))

	_, err := d.Authenticate(ctx, "expired", "Password1")
	require.ErrorIs(t, err, problem.ErrExpiredPassword)

	locked := &models.User{Username: "locked", Name: "Locked", Password: "Password1", Status: models.UserStatusActive}
	require.NoError(t, d.CreateUser(ctx, locked, false, true))

	_, err = d.Authenticate(ctx, "locked", "Password1")
	require.ErrorIs(t, err, problem.ErrUserLocked)
}

func TestInternalPasswordHistory(t *testing.T) {
	ctx := context.Background()
	d, _, clk := setupInternal(t, nil)

	createInternalUser(t, d, "jane", "Password1")

	clk.Advance(day)
	require.NoError(t, d.ChangePassword(ctx, "jane", "Password1", "Password2"))

	clk.Advance(day)
	err := d.ChangePassword(ctx, "jane", "Password2", "Password1")
	require.ErrorIs(t, err, problem.ErrExistingPassword)

	err = d.ChangePassword(ctx, "jane", "wrong", "Password3")
	require.ErrorIs(t, err, problem.ErrAuthenticationFailed)

	err = d.ResetPassword(ctx, "jane", "Password1")
	require.ErrorIs(t, err, problem.ErrExistingPassword)

	// outside the history window the password may be reused
	clk.Advance(25 * 30 * day)
	require.NoError(t, d.ResetPassword(ctx, "jane", "Password1"))

	_, err = d.Authenticate(ctx, "jane", "Password1")
	require.NoError(t, err)
}

func TestInternalAdminChangePassword(t *testing.T) {
	ctx := context.Background()
	d, _, clk := setupInternal(t, nil)

	createInternalUser(t, d, "jane", "Password1")

	testCases := []struct {
		name     string
		password string
		opts     directory.AdminPasswordOptions
		wantErr  error
	}{
		{"reuse is allowed for administrators", "Password1", directory.AdminPasswordOptions{}, nil},
		{"expire", "Password2", directory.AdminPasswordOptions{ExpirePassword: true}, problem.ErrExpiredPassword},
		{"lock", "Password3", directory.AdminPasswordOptions{LockUser: true}, problem.ErrUserLocked},
		{"reset history and unlock", "Password1", directory.AdminPasswordOptions{ResetPasswordHistory: true}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clk.Advance(day)
			require.NoError(t, d.AdminChangePassword(ctx, "jane", tc.password, tc.opts))

			_, err := d.Authenticate(ctx, "jane", tc.password)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}

			require.NoError(t, err)
		})
	}

	err := d.AdminChangePassword(ctx, "nobody", "Password1", directory.AdminPasswordOptions{})
	require.ErrorIs(t, err, problem.ErrUserNotFound)
}

func TestInternalUserAdministration(t *testing.T) {
	ctx := context.Background()
	d, _, clk := setupInternal(t, nil)

	created := createInternalUser(t, d, "jane", "Password1")

	dup := &models.User{Username: "Jane", Name: "Other", Status: models.UserStatusActive}
	require.ErrorIs(t, d.CreateUser(ctx, dup, false, false), problem.ErrDuplicateUser)

	exists, err := d.IsExistingUser(ctx, "jane")
	require.NoError(t, err)
	assert.True(t, exists)

	update := &models.User{Username: "jane", Name: "Jane Doe", Email: "jane@example.org", Status: models.UserStatusActive}
	require.NoError(t, d.UpdateUser(ctx, update, false, false))
	assert.Equal(t, created.ID, update.ID)
	assert.Empty(t, update.Password, "hash must not leak through the updated user")

	user, err := d.GetUser(ctx, "jane")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", user.Name)
	assert.Equal(t, "jane@example.org", user.Email)

	clk.Advance(day)

	update = &models.User{Username: "jane", Name: "Jane Doe", Password: "Password2", Status: models.UserStatusActive}
	require.NoError(t, d.UpdateUser(ctx, update, false, false))

	_, err = d.Authenticate(ctx, "jane", "Password2")
	require.NoError(t, err)

	update = &models.User{Username: "jane", Name: "Jane Doe", Status: models.UserStatusActive}
	require.NoError(t, d.UpdateUser(ctx, update, true, false))

	_, err = d.Authenticate(ctx, "jane", "Password2")
	require.ErrorIs(t, err, problem.ErrExpiredPassword)

	require.NoError(t, d.DeleteUser(ctx, "jane"))

	_, err = d.GetUser(ctx, "jane")
	require.ErrorIs(t, err, problem.ErrUserNotFound)

	require.ErrorIs(t, d.DeleteUser(ctx, "jane"), problem.ErrUserNotFound)
	require.ErrorIs(t, d.UpdateUser(ctx, update, false, false), problem.ErrUserNotFound)
}
