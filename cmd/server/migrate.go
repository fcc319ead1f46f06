package main

import (
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/storage/postgres"
	"github.com/spf13/cobra"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending migrations against the PostgreSQL database. SQLite databases create their schema on open.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}
			if c.GetDBDriver() != config.DriverPostgres {
				cmd.Println("nothing to migrate for driver " + c.GetDBDriver())
				return nil
			}

			pool, err := postgres.Connect(cmd.Context(), c.GetDBDSN())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}
