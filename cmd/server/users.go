package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-credential-service/hashing"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/users"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// withUserService loads config, opens storage and hands fn a users service.
// Storage is closed when fn returns.
func withUserService(ctx context.Context, fn func(*users.Service) error) error {
	c, err := config.Load()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx, c)
	if err != nil {
		return err
	}
	defer store.close()

	hasher, err := hashing.New(c.GetPasswordHasher())
	if err != nil {
		return err
	}
	service, err := users.NewService(store.users, hasher, users.WithLogger(newLogger(c.GetEnv())))
	if err != nil {
		return err
	}
	return fn(service)
}

func NewUserAddCmd() *cobra.Command {
	var input users.CreateUserInput

	cmd := &cobra.Command{
		Use:   "useradd",
		Short: "Create a user with an initial password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserService(cmd.Context(), func(service *users.Service) error {
				user, err := service.Create(cmd.Context(), input)
				if err != nil {
					return err
				}
				cmd.Printf("created user %d <%s>\n", user.ID, user.Email)
				return nil
			})
		},
	}
	addUserFlags(cmd.Flags(), &input)
	return cmd
}

func addUserFlags(flags *pflag.FlagSet, input *users.CreateUserInput) {
	flags.StringVar(&input.Name, "name", "", "display name")
	flags.StringVar(&input.Email, "email", "", "login email (required)")
	flags.StringVar(&input.Password, "password", "", "initial password (required)")
}

func NewUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "userlist",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserService(cmd.Context(), func(service *users.Service) error {
				list, err := service.FindAll(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMAIL\tNAME")
				for _, u := range list {
					fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, u.Email, u.Name)
				}
				return w.Flush()
			})
		},
	}
}

func NewUserDelCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "userdel",
		Short: "Delete a user and their pending password changes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserService(cmd.Context(), func(service *users.Service) error {
				user, err := service.FindByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}
				if err := service.Delete(cmd.Context(), user.ID); err != nil {
					return err
				}
				cmd.Printf("deleted user %d <%s>\n", user.ID, user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email of the user to delete (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func NewPasswdCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Set a user's password without the mailed confirmation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withUserService(cmd.Context(), func(service *users.Service) error {
				user, err := service.FindByEmail(cmd.Context(), email)
				if err != nil {
					return err
				}
				if err := service.UpdatePassword(cmd.Context(), user.ID, password); err != nil {
					return err
				}
				cmd.Printf("password updated for user %d <%s>\n", user.ID, user.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&password, "password", "", "new password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
