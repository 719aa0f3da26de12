// Package session keeps authenticated principals in a gofiber storage backend keyed by an opaque
// session id.
package session

import (
	"encoding/json"
	"errors"
	"time"

	sessionmemory "github.com/gofiber/storage/memory/v2"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/db/dsn"
	"github.com/lobkit/identity/internal/security"
	"github.com/lobkit/identity/internal/uniuri"
)

var (
	// ErrStorageNil is returned when a Store is created without a storage backend.
	ErrStorageNil = errors.New("session storage is nil")
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")
)

// Storage is the subset of the gofiber storage interface sessions need.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte, exp time.Duration) error
	Delete(key string) error
	Close() error
}

// Data is the content of a session.
type Data struct {
	Principal security.UserDetails `json:"principal"`
	Created   time.Time            `json:"created"`
}

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "session"

// Store reads and writes sessions.
type Store struct {
	storage Storage
	cfg     config.Session
}

// New creates a Store. Sessions expire after cfg.ExpiryTime.
func New(storage Storage, cfg config.Session) (*Store, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}

	return &Store{storage: storage, cfg: cfg}, nil
}

// NewStorage opens the session storage matching the configured database engine. sqlite
// deployments keep sessions in memory.
func NewStorage(cfg *config.Config) Storage {
	table := cfg.Webserver.Session.Table

	switch cfg.DB.GormEngine {
	case config.EngineMySQL:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.MySQL(cfg),
			Table:         table,
		})
	case config.EnginePostgres:
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.PostgresURI(cfg),
			Table:         table,
		})
	default:
		return sessionmemory.New()
	}
}

// Expiry is the lifetime of new sessions.
func (s *Store) Expiry() time.Duration {
	return s.cfg.ExpiryTime
}

// CookieName is the name of the session cookie.
func (s *Store) CookieName() string {
	return s.cfg.CookieName
}

// CookieSecure reports whether the session cookie is restricted to HTTPS.
func (s *Store) CookieSecure() bool {
	return s.cfg.CookieSecure
}

// Create stores a session for principal and returns its id.
func (s *Store) Create(principal *security.UserDetails) (string, error) {
	id, err := uniuri.SessionID()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(&Data{Principal: *principal, Created: time.Now().UTC()})
	if err != nil {
		return "", err
	}

	if err = s.storage.Set(id, out, s.cfg.ExpiryTime); err != nil {
		return "", err
	}

	return id, nil
}

// Read loads the session with the given id.
func (s *Store) Read(id string) (*Data, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	raw, err := s.storage.Get(id)
	if err != nil {
		return nil, err
	}

	// gofiber storages answer unknown keys with nil, nil
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	data := new(Data)
	if err = json.Unmarshal(raw, data); err != nil {
		return nil, err
	}

	return data, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	return s.storage.Delete(id)
}

// Close releases the storage backend.
func (s *Store) Close() error {
	return s.storage.Close()
}
