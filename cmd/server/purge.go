package main

import (
	"time"

	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/spf13/cobra"
)

func NewPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete used and expired pending password changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := config.Load()
			if err != nil {
				return err
			}

			store, err := openStorage(cmd.Context(), c)
			if err != nil {
				return err
			}
			defer store.close()

			n, err := store.passwordChanges.DeleteExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			cmd.Printf("purged %d pending password changes\n", n)
			return nil
		},
	}
}
