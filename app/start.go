package app

import (
	"github.com/spf13/cobra"

	"github.com/lobkit/identity/internal/daemon"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the identity web service",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if err := loadConfig(); err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
