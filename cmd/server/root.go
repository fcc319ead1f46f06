package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential-service",
		Short: "Credential lifecycle service",
		Long: `Authenticates users by email and password, issues signed access
tokens and runs the two-phase password change.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewUserAddCmd())
	cmd.AddCommand(NewUserListCmd())
	cmd.AddCommand(NewUserDelCmd())
	cmd.AddCommand(NewPasswdCmd())
	cmd.AddCommand(NewPurgeCmd())
	cmd.AddCommand(NewMigrateCmd())
	return cmd
}

func newLogger(env string) zerolog.Logger {
	if env == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
