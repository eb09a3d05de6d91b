package main

import (
	"fmt"
	"time"

	"github.com/otcheredev/clinic-core/internal/auth"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/spf13/cobra"
)

func (a *app) tokenCmd() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Work with access tokens",
	}

	var user, tenant, kind, username string
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Sign a development access token",
		Long: `Sign an access token with the configured JWT secret and issuer.
Intended for local development and smoke tests; production tokens come from
the identity service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			userID, err := parseUUIDFlag("user", user, true)
			if err != nil {
				return err
			}
			userKind := models.UserKind(kind)
			if !userKind.Valid() {
				return fmt.Errorf("--type %q is not a known user type", kind)
			}
			tenantID, err := parseUUIDFlag("tenant", tenant, userKind != models.UserKindSystemAdmin)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = a.cfg.Auth.AccessTTL
			}

			signed, err := auth.NewIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, ttl).Issue(models.Identity{
				UserID:   userID,
				Username: username,
				TenantID: tenantID,
				Kind:     userKind,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	issue.Flags().StringVar(&user, "user", "", "user id (token subject)")
	issue.Flags().StringVar(&username, "username", "", "username claim")
	issue.Flags().StringVar(&tenant, "tenant", "", "tenant id (required unless --type system_admin)")
	issue.Flags().StringVar(&kind, "type", string(models.UserKindTenantUser), "user type")
	issue.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")

	token.AddCommand(issue)
	return token
}
