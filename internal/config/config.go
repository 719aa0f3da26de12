// Package config handles input from etc/main.toml and the LOBKIT_CONFIG_JSON environment override.
package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvJSON names the environment variable holding a JSON document merged over the config file.
const EnvJSON = "LOBKIT_CONFIG_JSON"

// Supported gorm engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

const minSigningKeyLength = 32

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(filepath.Join(path, "main.toml"))

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if JSONConfigEnv := os.Getenv(EnvJSON); JSONConfigEnv != "" {
		v.SetConfigType("json")

		if err := v.MergeConfig(strings.NewReader(JSONConfigEnv)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge "+EnvJSON)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode main config")
	}

	return c, validate(&c)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "lobkit identity")
	v.SetDefault("db.gormEngine", EngineSQLite)
	v.SetDefault("db.name", "identity.db")
	v.SetDefault("webserver.shutDownTime", 5) //nolint:mnd
	v.SetDefault("webserver.session.expiryTime", 12*time.Hour) //nolint:mnd
	v.SetDefault("webserver.session.cookieName", "session")
	v.SetDefault("webserver.session.table", "security_sessions")
	v.SetDefault("security.tokenIssuer", "lobkit")
	v.SetDefault("security.passwordResetExpiry", 24*time.Hour) //nolint:mnd
	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.passwordResetExpirySchedule", "@every 1h")
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate minimal config settings.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	switch c.DB.GormEngine {
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrap(ErrUnsupportedGormEngine, invalidErrMessage)
	}

	if len(c.Security.TokenSigningKey) < minSigningKeyLength {
		return errors.Wrap(ErrTokenSigningKeyTooShort, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	return nil
}
