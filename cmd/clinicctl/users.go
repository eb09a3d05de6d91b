package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func (a *app) usersCmd() *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Manage the user read model",
	}

	var username, tenant, kind string
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a user so roles can be assigned to it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" {
				return fmt.Errorf("--username is required")
			}
			userKind := models.UserKind(kind)
			if !userKind.Valid() {
				return fmt.Errorf("--type must be one of %s, %s, %s",
					models.UserKindSystemAdmin, models.UserKindTenantOwner, models.UserKindTenantUser)
			}
			tenantID, err := parseUUIDFlag("tenant", tenant, userKind != models.UserKindSystemAdmin)
			if err != nil {
				return err
			}

			user := &models.User{Username: username, Kind: userKind, IsActive: true}
			if tenantID != uuid.Nil {
				user.TenantID = &tenantID
			}

			return a.withDB(func(db *gorm.DB) error {
				if err := repository.NewUserRepository(db).Create(cmd.Context(), user); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), user.ID)
				return nil
			})
		},
	}
	add.Flags().StringVar(&username, "username", "", "unique username")
	add.Flags().StringVar(&tenant, "tenant", "", "tenant id (required unless --type system_admin)")
	add.Flags().StringVar(&kind, "type", string(models.UserKindTenantUser), "user type")

	users.AddCommand(add)
	return users
}
