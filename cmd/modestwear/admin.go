package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"modestwear/internal/auth"
	"modestwear/internal/kv"
	applog "modestwear/internal/log"
	"modestwear/internal/repos"
	"modestwear/internal/services"
)

// AdminPasswordEnv supplies the password so it stays out of shell history.
const AdminPasswordEnv = "MODESTWEAR_ADMIN_PASSWORD"

func newCreateAdminCommand(opts *rootOptions) *cobra.Command {
	var email, username string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified staff account",
		Long:  "Create a verified staff account. The password is read from " + AdminPasswordEnv + ".",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv(AdminPasswordEnv)
			if password == "" {
				return errors.New(AdminPasswordEnv + " is not set")
			}
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			store, err := kv.Open(e.cfg.KV.Dir)
			if err != nil {
				return err
			}
			defer store.Close()
			tokens, err := auth.NewManager(e.cfg.Auth, store)
			if err != nil {
				return err
			}
			svc := services.NewAuthService(repos.NewUserRepo(e.db), tokens, store, nil, nil, nil)
			u, err := svc.CreateAdmin(cmd.Context(), email, username, password)
			if err != nil {
				return err
			}
			log := applog.Component("admin")
			log.Info().Str("user_id", u.ID).Str("email", u.Email).Str("action", "admin.created").Send()
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email address")
	cmd.Flags().StringVar(&username, "username", "admin", "admin username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
