package session

import (
	"errors"
	"testing"
	"time"

	"github.com/gofiber/storage/memory/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/security"
)

func TestStore(t *testing.T) {
	store, err := New(memory.New(), config.Session{ExpiryTime: time.Hour})
	require.NoError(t, err)

	principal := &security.UserDetails{
		Username:    "jane",
		Authorities: []string{"FUNCTION_Security.UserAdministration", "ROLE_TenantAdministrator"},
		Enabled:     true,
	}

	id, err := store.Create(principal)
	require.NoError(t, err)
	assert.Len(t, id, 32)

	data, err := store.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "jane", data.Principal.Username)
	assert.Equal(t, principal.Authorities, data.Principal.Authorities)
	assert.True(t, data.Principal.HasAuthority("ROLE_TenantAdministrator"))

	require.NoError(t, store.Delete(id))

	_, err = store.Read(id)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Read("")
	require.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, DefaultCookieName, store.CookieName())

	_, err = New(nil, config.Session{})
	require.ErrorIs(t, err, ErrStorageNil)
}

func TestStoreExpiry(t *testing.T) {
	store, err := New(memory.New(), config.Session{ExpiryTime: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	id, err := store.Create(&security.UserDetails{Username: "jane", Enabled: true})
	require.NoError(t, err)

	_, err = store.Read(id)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := store.Read(id)
		return errors.Is(err, ErrNotFound)
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewStorageSQLite(t *testing.T) {
	storage := NewStorage(&config.Config{DB: config.DB{GormEngine: config.EngineSQLite}})
	assert.IsType(t, &memory.Storage{}, storage)
	require.NoError(t, storage.Close())
}
