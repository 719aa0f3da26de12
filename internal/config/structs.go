package config

import (
	"time"

	"github.com/lobkit/identity/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode     bool        `mapstructure:"devMode"`
	Title       string      `mapstructure:"title"`
	DB          DB          `mapstructure:"db"`
	Log         logger.Log  `mapstructure:"log"`
	Webserver   Webserver   `mapstructure:"webserver"`
	Security    Security    `mapstructure:"security"`
	Maintenance Maintenance `mapstructure:"maintenance"`
}

// DB holds the database configuration settings.
type DB struct {
	GormEngine string `mapstructure:"gormEngine"` // mysql, postgres or sqlite
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"` // database name, the file path for sqlite
	Extras     string `mapstructure:"extras"`

	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

// Session settings.
type Session struct {
	ExpiryTime   time.Duration `mapstructure:"expiryTime"`
	CookieName   string        `mapstructure:"cookieName"`
	CookieSecure bool          `mapstructure:"cookieSecure"`
	Table        string        `mapstructure:"table"` // session table for the mysql and postgres storage
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool    `mapstructure:"disableRecover"` // disable recover middleware
	Port           int     `mapstructure:"port"`           // listening port for the webserver
	ShutDownTime   int     `mapstructure:"shutDownTime"`   // wait time for shutdown in seconds
	URL            string  `mapstructure:"url"`            // base url for the webserver
	Session        Session `mapstructure:"session"`
}

// Security holds the identity settings.
type Security struct {
	// TokenIssuer is the iss claim of generated tokens.
	TokenIssuer string `mapstructure:"tokenIssuer"`
	// TokenSigningKey is the HS256 key generated tokens are signed with.
	TokenSigningKey string `mapstructure:"tokenSigningKey"`
	// PasswordResetExpiry is how long a password reset security code stays valid.
	PasswordResetExpiry time.Duration `mapstructure:"passwordResetExpiry"`
	// PasswordResetURL is the page linked from password reset mails.
	PasswordResetURL string `mapstructure:"passwordResetURL"`
	// AdministratorUsername and AdministratorPassword seed the administrator account.
	AdministratorUsername string `mapstructure:"administratorUsername"`
	AdministratorPassword string `mapstructure:"administratorPassword"`
}

// Maintenance configures the background jobs.
type Maintenance struct {
	Enabled bool `mapstructure:"enabled"`
	// PasswordResetExpirySchedule is the cron spec of the password reset expiry job.
	PasswordResetExpirySchedule string `mapstructure:"passwordResetExpirySchedule"`
}
