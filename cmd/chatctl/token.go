package main

import (
	"fmt"
	"time"

	"chat-presence/errors"
	"chat-presence/services"

	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "token", Short: "Manage session tokens"}
	cmd.AddCommand(a.tokenIssueCmd())
	return cmd
}

func (a *app) tokenIssueCmd() *cobra.Command {
	var (
		email string
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.JWTSecret == "" {
				return fmt.Errorf("%w: JWT_SECRET is not set", errors.ErrValidation)
			}
			return a.withAdmin(func(admin *services.AdminService) error {
				token, err := admin.IssueToken(cmd.Context(), email, roles, ttl)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "user email")
	cmd.Flags().StringSliceVar(&roles, "roles", nil, "roles carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
