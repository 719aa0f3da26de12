package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func projectEtc(t *testing.T) string {
	t.Helper()

	projectRoot, err := filepath.Abs("../../")
	require.NoError(t, err)

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(projectEtc(t))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Title)
	assert.Equal(t, 8080, cfg.Webserver.Port)
	assert.NotEmpty(t, cfg.Webserver.URL)
	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
	assert.Equal(t, time.Hour, cfg.DB.ConnMaxLifetime)
	assert.Equal(t, 12*time.Hour, cfg.Webserver.Session.ExpiryTime)
	assert.Equal(t, 24*time.Hour, cfg.Security.PasswordResetExpiry)
	assert.Equal(t, "@every 1h", cfg.Maintenance.PasswordResetExpirySchedule)
	assert.Equal(t, "identity", cfg.Log.ServiceName)
	assert.Equal(t, "access.log", cfg.Log.File.Access.Name)
	assert.True(t, cfg.Log.Console.UseConsoleWriter)
}

func TestReadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	content := `
[webserver]
port = 9000
url = "http://localhost:9000"

[security]
tokenSigningKey = "0123456789abcdef0123456789abcdef"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.toml"), []byte(content), 0o600))

	cfg, err := ReadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, EngineSQLite, cfg.DB.GormEngine)
	assert.Equal(t, 5, cfg.Webserver.ShutDownTime)
	assert.Equal(t, "session", cfg.Webserver.Session.CookieName)
	assert.Equal(t, "lobkit", cfg.Security.TokenIssuer)
	assert.True(t, cfg.Maintenance.Enabled)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(t.TempDir())
	require.Error(t, err)
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	t.Setenv(EnvJSON, `{"Title":"Test Override","Webserver":{"Port":9090},"DB":{"GormEngine":"postgres"}}`)

	cfg, err := ReadConfig(projectEtc(t))
	require.NoError(t, err)

	assert.Equal(t, "Test Override", cfg.Title)
	assert.Equal(t, 9090, cfg.Webserver.Port)
	assert.Equal(t, EnginePostgres, cfg.DB.GormEngine)
	// untouched keys keep their file values
	assert.Equal(t, "http://localhost:8080", cfg.Webserver.URL)
}

func TestReadConfigWithBrokenJSONOverride(t *testing.T) {
	t.Setenv(EnvJSON, `{"Title":`)

	_, err := ReadConfig(projectEtc(t))
	require.Error(t, err)
}

func TestConfigValidation(t *testing.T) {
	valid := func() Config {
		return Config{
			DB:        DB{GormEngine: EngineSQLite},
			Webserver: Webserver{Port: 8080, URL: "http://localhost:8080"},
			Security:  Security{TokenSigningKey: strings.Repeat("k", 32)},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(_ *Config) {}},
		{name: "missing port", mutate: func(c *Config) { c.Webserver.Port = 0 }, wantErr: ErrWebServerPortCanNotBeZero},
		{name: "missing URL", mutate: func(c *Config) { c.Webserver.URL = "" }, wantErr: ErrEmptyURL},
		{name: "unknown engine", mutate: func(c *Config) { c.DB.GormEngine = "oracle" }, wantErr: ErrUnsupportedGormEngine},
		{name: "short signing key", mutate: func(c *Config) { c.Security.TokenSigningKey = "short" }, wantErr: ErrTokenSigningKeyTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := validate(&cfg)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, 5, cfg.Webserver.ShutDownTime)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDumpConfigJSON(t *testing.T) {
	cfg := Config{
		Title:   "Test",
		DevMode: true,
		Webserver: Webserver{
			Port: 8080,
			URL:  "http://localhost:8080",
		},
	}

	jsonStr, err := DumpConfigJSON(&cfg)
	require.NoError(t, err)
	assert.Contains(t, jsonStr, `"Title": "Test"`)
}
