package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/defeedco/wanderlens/pkg/api/auth"
)

// GetHashKeyCmd returns the API key hashing command.
func GetHashKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hash-key <key>",
		Short: "Print the argon2id hash to put in AUTH_API_KEYS for an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashKey(args[0])
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(GetHashKeyCmd())
}
