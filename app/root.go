// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/lobkit/identity/internal/config"
	"github.com/lobkit/identity/internal/logger"
)

var (
	configPath string // directory holding main.toml

	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "identity",
	Short: "identity manages tenants, users, groups, roles and tokens",
	Long: `identity is the security service of lobkit. It keeps tenants, user directories,
users, groups, roles, functions, tokens and XACML policies and serves them through a REST API.`,
	Args:          cobra.OnlyValidArgs,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "directory holding main.toml (default ./etc/)")
}

// loadConfig reads the configuration and initialises the logger.
func loadConfig() error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	return logger.Init(cfg.Log)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
