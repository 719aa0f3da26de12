package security_test

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/problem"
)

func TestPasswordReset(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createUser(t, "jane", "Password1")

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "jane", "", true))

	link, err := url.Parse(f.notifier.links["jane"])
	require.NoError(t, err)
	assert.Equal(t, "id.example.org", link.Host)
	assert.Equal(t, "jane", link.Query().Get("username"))

	code := f.notifier.securityCode(t, "jane")
	assert.Len(t, code, 20)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "jane", "Password9", "WRONGCODE"), problem.ErrInvalidSecurityCode)

	f.clk.Advance(10 * time.Minute)
	require.NoError(t, f.svc.ResetPassword(ctx, "jane", "Password9", code))

	_, err = f.svc.Authenticate(ctx, "jane", "Password9")
	require.NoError(t, err)

	// a used code can not be replayed
	require.ErrorIs(t, f.svc.ResetPassword(ctx, "jane", "Password8", code), problem.ErrInvalidSecurityCode)
}

func TestPasswordResetCustomURL(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createUser(t, "jane", "Password1")

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "jane", "https://portal.example.org/reset?lang=en", true))

	link, err := url.Parse(f.notifier.links["jane"])
	require.NoError(t, err)
	assert.Equal(t, "portal.example.org", link.Host)
	assert.Equal(t, "en", link.Query().Get("lang"))
	assert.NotEmpty(t, link.Query().Get("securityCode"))
}

func TestPasswordResetUnknownUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "ghost", "", true))
	assert.Empty(t, f.notifier.links)

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "ghost", "Password1", "code"), problem.ErrInvalidSecurityCode)
}

func TestPasswordResetWithoutEmail(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createUser(t, "jane", "Password1")

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "jane", "", false))
	assert.Empty(t, f.notifier.links)

	resets, err := f.repos.PasswordResets.FindUnused(ctx, "jane")
	require.NoError(t, err)
	require.Len(t, resets, 1)
	assert.Equal(t, models.PasswordResetStatusUnused, resets[0].Status)
}

func TestPasswordResetExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createUser(t, "jane", "Password1")
	f.createUser(t, "john", "Password1")

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "jane", "", true))
	code := f.notifier.securityCode(t, "jane")

	f.clk.Advance(30 * time.Minute)
	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "john", "", true))

	f.clk.Advance(31 * time.Minute)
	assert.Equal(t, time.Hour, f.svc.PasswordResetExpiry())

	require.ErrorIs(t, f.svc.ResetPassword(ctx, "jane", "Password9", code), problem.ErrInvalidSecurityCode)

	expired, err := f.svc.ExpirePasswordResets(ctx, f.svc.PasswordResetExpiry())
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	resets, err := f.repos.PasswordResets.FindUnused(ctx, "jane")
	require.NoError(t, err)
	assert.Empty(t, resets)

	resets, err = f.repos.PasswordResets.FindUnused(ctx, "john")
	require.NoError(t, err)
	assert.Len(t, resets, 1)
}

func TestPasswordResetCodeIsSingleUse(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.createUser(t, "jane", "Password1")

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "jane", "", true))
	code := f.notifier.securityCode(t, "jane")

	passwords := []string{"Password5", "Password6", "Password7", "Password8"}
	errs := make([]error, len(passwords))

	var wg sync.WaitGroup
	for i, password := range passwords {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = f.svc.ResetPassword(ctx, "jane", password, code)
		}()
	}
	wg.Wait()

	var winner string
	for i, err := range errs {
		if err == nil {
			require.Empty(t, winner, "more than one reset succeeded")
			winner = passwords[i]
			continue
		}

		require.ErrorIs(t, err, problem.ErrInvalidSecurityCode)
	}
	require.NotEmpty(t, winner, "no reset succeeded")

	_, err := f.svc.Authenticate(ctx, "jane", winner)
	require.NoError(t, err)

	resets, err := f.repos.PasswordResets.FindUnused(ctx, "jane")
	require.NoError(t, err)
	assert.Empty(t, resets)
}

func TestPasswordResetKeepsInactiveUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	jane := f.createUser(t, "jane", "Password1")
	jane.Status = models.UserStatusInactive
	require.NoError(t, f.svc.UpdateUser(ctx, jane, false, false))

	require.NoError(t, f.svc.InitiatePasswordReset(ctx, "jane", "", true))
	code := f.notifier.securityCode(t, "jane")

	require.NoError(t, f.svc.ResetPassword(ctx, "jane", "Password9", code))

	stored, err := f.svc.GetUser(ctx, f.dir.ID, "jane")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusInactive, stored.Status)

	_, err = f.svc.Authenticate(ctx, "jane", "Password9")
	require.ErrorIs(t, err, problem.ErrAuthenticationFailed)
}
