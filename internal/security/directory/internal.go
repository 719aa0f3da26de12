package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lobkit/identity/internal/db/models"
	"github.com/lobkit/identity/internal/db/repository"
	"github.com/lobkit/identity/internal/problem"
)

// Internal user directory parameters and their defaults.
const (
	ParamMaxPasswordAttempts      = "MaxPasswordAttempts"
	ParamPasswordExpiryMonths     = "PasswordExpiryMonths"
	ParamPasswordHistoryMonths    = "PasswordHistoryMonths"
	ParamPasswordHistoryMaxLength = "PasswordHistoryMaxLength"
	ParamMaxFilteredUsers         = "MaxFilteredUsers"
	ParamMaxFilteredGroups        = "MaxFilteredGroups"

	DefaultMaxPasswordAttempts      = 5
	DefaultPasswordExpiryMonths     = 12
	DefaultPasswordHistoryMonths    = 24
	DefaultPasswordHistoryMaxLength = 128
	DefaultMaxFilteredUsers         = 100
	DefaultMaxFilteredGroups        = 100
)

var internalCapabilities = Capabilities{
	SupportsAdminChangePassword:       true,
	SupportsChangePassword:            true,
	SupportsGroupAdministration:       true,
	SupportsGroupMemberAdministration: true,
	SupportsPasswordExpiry:            true,
	SupportsPasswordHistory:           true,
	SupportsUserAdministration:        true,
	SupportsUserLocks:                 true,
}

// Internal stores users and groups in the security schema.
type Internal struct {
	id    uuid.UUID
	repos *repository.Repositories
	now   func() time.Time

	maxPasswordAttempts      int
	passwordExpiryMonths     int
	passwordHistoryMonths    int
	passwordHistoryMaxLength int
	maxFilteredUsers         int
	maxFilteredGroups        int
}

func newInternal(id uuid.UUID, p parameters, repos *repository.Repositories, now func() time.Time) (*Internal, error) {
	d := &Internal{id: id, repos: repos, now: now}

	for _, param := range []struct {
		name   string
		def    int
		target *int
	}{
		{ParamMaxPasswordAttempts, DefaultMaxPasswordAttempts, &d.maxPasswordAttempts},
		{ParamPasswordExpiryMonths, DefaultPasswordExpiryMonths, &d.passwordExpiryMonths},
		{ParamPasswordHistoryMonths, DefaultPasswordHistoryMonths, &d.passwordHistoryMonths},
		{ParamPasswordHistoryMaxLength, DefaultPasswordHistoryMaxLength, &d.passwordHistoryMaxLength},
		{ParamMaxFilteredUsers, DefaultMaxFilteredUsers, &d.maxFilteredUsers},
		{ParamMaxFilteredGroups, DefaultMaxFilteredGroups, &d.maxFilteredGroups},
	} {
		v, err := p.Int(param.name, param.def)
		if err != nil {
			return nil, err
		}

		*param.target = v
	}

	return d, nil
}

// ID implements UserDirectory.
func (d *Internal) ID() uuid.UUID {
	return d.id
}

// Capabilities implements UserDirectory.
func (d *Internal) Capabilities() Capabilities {
	return internalCapabilities
}

// MaxFilteredUsers is the page size cap of filtered user listings.
func (d *Internal) MaxFilteredUsers() int {
	return d.maxFilteredUsers
}

// MaxFilteredGroups is the page size cap of filtered group listings.
func (d *Internal) MaxFilteredGroups() int {
	return d.maxFilteredGroups
}

// Authenticate implements UserDirectory.
//
// Unknown users and wrong passwords fail with ErrAuthenticationFailed. Every wrong password counts
// as a failed attempt and the user is locked once MaxPasswordAttempts is reached. A correct
// password of an expired account fails with ErrExpiredPassword.
func (d *Internal) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := d.repos.Users.FindByUsername(ctx, d.id, username)
	if errors.Is(err, problem.ErrUserNotFound) {
		return nil, problem.ErrAuthenticationFailed
	}

	if err != nil {
		return nil, err
	}

	if d.isLocked(user) {
		return nil, fmt.Errorf("%w: %s", problem.ErrUserLocked, user.Username)
	}

	if user.Status == models.UserStatusInactive {
		return nil, fmt.Errorf("%w: %s is inactive", problem.ErrAuthenticationFailed, user.Username)
	}

	if !user.VerifyPassword(password) {
		if err = d.registerFailedAttempt(ctx, user); err != nil {
			return nil, err
		}

		return nil, problem.ErrAuthenticationFailed
	}

	if user.IsPasswordExpired(d.now()) {
		return nil, fmt.Errorf("%w: %s", problem.ErrExpiredPassword, user.Username)
	}

	if user.PasswordAttempts > 0 {
		if err = d.repos.Users.ClearPasswordAttempts(ctx, user.ID); err != nil {
			return nil, err
		}

		user.PasswordAttempts = 0
	}

	return user, nil
}

// ChangePassword implements UserDirectory.
func (d *Internal) ChangePassword(ctx context.Context, username, password, newPassword string) error {
	user, err := d.repos.Users.FindByUsername(ctx, d.id, username)
	if errors.Is(err, problem.ErrUserNotFound) {
		return problem.ErrAuthenticationFailed
	}

	if err != nil {
		return err
	}

	if d.isLocked(user) {
		return fmt.Errorf("%w: %s", problem.ErrUserLocked, user.Username)
	}

	if user.Status == models.UserStatusInactive {
		return fmt.Errorf("%w: %s is inactive", problem.ErrAuthenticationFailed, user.Username)
	}

	if !user.VerifyPassword(password) {
		if err = d.registerFailedAttempt(ctx, user); err != nil {
			return err
		}

		return problem.ErrAuthenticationFailed
	}

	return d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := d.checkPasswordHistory(ctx, tx, user, newPassword); err != nil {
			return err
		}

		user.Status = renewedStatus(user.Status)

		return d.setPassword(ctx, tx, user, newPassword, false)
	})
}

// AdminChangePassword implements UserDirectory. The password history is recorded but not enforced.
// Locked users are unlocked unless opts.LockUser is set; inactive users stay inactive.
func (d *Internal) AdminChangePassword(
	ctx context.Context,
	username, newPassword string,
	opts AdminPasswordOptions,
) error {
	user, err := d.repos.Users.FindByUsername(ctx, d.id, username)
	if err != nil {
		return err
	}

	return d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if opts.ResetPasswordHistory {
			if err := tx.Users.DeletePasswordHistory(ctx, user.ID); err != nil {
				return err
			}
		}

		switch {
		case opts.LockUser:
			user.Status = models.UserStatusLocked
		case user.Status == models.UserStatusLocked:
			user.Status = models.UserStatusActive
		default:
			user.Status = renewedStatus(user.Status)
		}

		return d.setPassword(ctx, tx, user, newPassword, opts.ExpirePassword)
	})
}

// ResetPassword implements UserDirectory. The status of the user is kept, so a reset neither
// unlocks nor activates a user.
func (d *Internal) ResetPassword(ctx context.Context, username, newPassword string) error {
	user, err := d.repos.Users.FindByUsername(ctx, d.id, username)
	if err != nil {
		return err
	}

	return d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := d.checkPasswordHistory(ctx, tx, user, newPassword); err != nil {
			return err
		}

		user.Status = renewedStatus(user.Status)

		return d.setPassword(ctx, tx, user, newPassword, false)
	})
}

// renewedStatus is the status of a user after a new password was set: an expired user becomes
// active again, every other status is kept.
func renewedStatus(status models.UserStatus) models.UserStatus {
	if status == models.UserStatusExpired {
		return models.UserStatusActive
	}

	return status
}

// CreateUser implements UserDirectory.
func (d *Internal) CreateUser(ctx context.Context, user *models.User, expiredPassword, userLocked bool) error {
	exists, err := d.repos.Users.ExistsByUsername(ctx, d.id, user.Username)
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("%w: %s", problem.ErrDuplicateUser, user.Username)
	}

	user.ID = uuid.Nil
	user.UserDirectoryID = d.id
	user.PasswordAttempts = 0

	if userLocked {
		user.Status = models.UserStatusLocked
	}

	plain := user.Password
	user.Password = ""
	user.PasswordExpiry = nil

	err = d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Users.Create(ctx, user); err != nil {
			return err
		}

		if plain == "" {
			return nil
		}

		return d.setPassword(ctx, tx, user, plain, expiredPassword)
	})
	user.Password = ""

	return err
}

// UpdateUser implements UserDirectory.
func (d *Internal) UpdateUser(ctx context.Context, user *models.User, expirePassword, lockUser bool) error {
	existing, err := d.repos.Users.FindByUsername(ctx, d.id, user.Username)
	if err != nil {
		return err
	}

	existing.Name = user.Name
	existing.PreferredName = user.PreferredName
	existing.PhoneNumber = user.PhoneNumber
	existing.MobileNumber = user.MobileNumber
	existing.Email = user.Email
	existing.Status = user.Status

	if lockUser {
		existing.Status = models.UserStatusLocked
	}

	err = d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if user.Password != "" {
			return d.setPassword(ctx, tx, existing, user.Password, expirePassword)
		}

		if expirePassword {
			now := d.now()
			existing.PasswordExpiry = &now
		}

		return tx.Users.Save(ctx, existing)
	})
	if err != nil {
		return err
	}

	*user = *existing
	user.Password = ""

	return nil
}

// DeleteUser implements UserDirectory.
func (d *Internal) DeleteUser(ctx context.Context, username string) error {
	user, err := d.repos.Users.FindByUsername(ctx, d.id, username)
	if err != nil {
		return err
	}

	return d.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Users.Delete(ctx, user.ID)
	})
}

// GetUser implements UserDirectory.
func (d *Internal) GetUser(ctx context.Context, username string) (*models.User, error) {
	return d.repos.Users.FindByUsername(ctx, d.id, username)
}

// IsExistingUser implements UserDirectory.
func (d *Internal) IsExistingUser(ctx context.Context, username string) (bool, error) {
	return d.repos.Users.ExistsByUsername(ctx, d.id, username)
}

func (d *Internal) isLocked(user *models.User) bool {
	if user.Status == models.UserStatusLocked {
		return true
	}

	return d.maxPasswordAttempts > 0 && user.PasswordAttempts >= d.maxPasswordAttempts
}

func (d *Internal) registerFailedAttempt(ctx context.Context, user *models.User) error {
	attempts, err := d.repos.Users.IncrementPasswordAttempts(ctx, user.ID, d.maxPasswordAttempts)
	if err != nil {
		return err
	}

	user.PasswordAttempts = attempts
	if d.maxPasswordAttempts > 0 && attempts >= d.maxPasswordAttempts {
		user.Status = models.UserStatusLocked
	}

	return nil
}

// checkPasswordHistory rejects passwords used within the history window.
func (d *Internal) checkPasswordHistory(
	ctx context.Context,
	repos *repository.Repositories,
	user *models.User,
	newPassword string,
) error {
	if d.passwordHistoryMonths == 0 {
		return nil
	}

	since := d.now().AddDate(0, -d.passwordHistoryMonths, 0)

	history, err := repos.Users.FindPasswordHistorySince(ctx, user.ID, since, d.passwordHistoryMaxLength)
	if err != nil {
		return err
	}

	for _, h := range history {
		if models.MatchesHash(newPassword, h.Password) {
			return problem.ErrExistingPassword
		}
	}

	return nil
}

// setPassword stores the hash of the new password, records it in the password history and sets the
// password expiry. It saves the user.
func (d *Internal) setPassword(
	ctx context.Context,
	repos *repository.Repositories,
	user *models.User,
	newPassword string,
	expired bool,
) error {
	hash, err := models.HashPassword(newPassword)
	if err != nil {
		return err
	}

	now := d.now()

	user.Password = hash
	user.PasswordAttempts = 0
	user.PasswordExpiry = nil

	switch {
	case expired:
		user.PasswordExpiry = &now
	case d.passwordExpiryMonths > 0:
		expiry := now.AddDate(0, d.passwordExpiryMonths, 0)
		user.PasswordExpiry = &expiry
	}

	if err = repos.Users.Save(ctx, user); err != nil {
		return err
	}

	return repos.Users.AddPasswordHistory(ctx, user.ID, hash, now)
}
