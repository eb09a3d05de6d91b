package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/otcheredev/clinic-core/internal/authz"
	"github.com/otcheredev/clinic-core/internal/repository"
	"github.com/otcheredev/clinic-core/internal/services"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func (a *app) rolesCmd() *cobra.Command {
	roles := &cobra.Command{
		Use:   "roles",
		Short: "Manage roles",
	}

	var tenant string
	defaults := &cobra.Command{
		Use:   "defaults",
		Short: "Create the default clinic roles for a tenant",
		Long: `Create the Nutritionist, Receptionist and Clinic Admin roles for a tenant.
Roles that already exist with the same name are left untouched, so the
command can be repeated safely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tenantID, err := parseUUIDFlag("tenant", tenant, true)
			if err != nil {
				return err
			}
			return a.withDB(func(db *gorm.DB) error {
				roleRepo := repository.NewRoleRepository(db)
				// No permission cache from the CLI; running servers expire theirs by TTL.
				resolver := authz.NewResolver(roleRepo, nil, 0, nil)
				svc := services.NewRoleService(roleRepo, repository.NewUserRepository(db), resolver, repository.NewAuditRepository(db))

				created, err := svc.CreateDefaultRoles(cmd.Context(), tenantID, cliActor)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tPERMISSIONS")
				for _, r := range created {
					fmt.Fprintf(w, "%s\t%s\t%d\n", r.ID, r.Name, len(r.Permissions))
				}
				return w.Flush()
			})
		},
	}
	defaults.Flags().StringVar(&tenant, "tenant", "", "tenant id")

	roles.AddCommand(defaults)
	return roles
}
