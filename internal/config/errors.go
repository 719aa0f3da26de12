package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("config webserver.port listening port can not be 0")

	// ErrUnsupportedGormEngine error if config db.gormEngine is not mysql, postgres or sqlite.
	ErrUnsupportedGormEngine = errors.New("config db.gormEngine must be mysql, postgres or sqlite")

	// ErrTokenSigningKeyTooShort error if config security.tokenSigningKey is shorter than 32 bytes.
	ErrTokenSigningKeyTooShort = errors.New("config security.tokenSigningKey must have at least 32 bytes")
)
