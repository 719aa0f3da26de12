package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lobkit/identity/internal/db/models"
)

func init() { //nolint: gochecknoinits
	rootCmd.AddCommand(hashPasswordCmd)
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password <password>",
	Short: "Print the Argon2id hash of a password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := models.HashPassword(args[0])
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)

		return err
	},
}
