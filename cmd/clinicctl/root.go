package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/otcheredev/clinic-core/internal/config"
	"github.com/otcheredev/clinic-core/internal/database"
	"github.com/otcheredev/clinic-core/internal/models"
	"github.com/otcheredev/clinic-core/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// cliActor is recorded as the author of changes made from the command line.
var cliActor = models.Identity{Username: "clinicctl", Kind: models.UserKindSystemAdmin}

// openDB is replaced in tests. The returned func releases the connection.
var openDB = func(cfg *config.Config) (*gorm.DB, func() error, error) {
	db, err := database.Connect(database.Config{
		DSN:      cfg.Database.DSN(),
		LogLevel: cfg.Database.LogLevel,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, func() error { return database.Close(db) }, nil
}

type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "clinicctl",
		Short: "Clinic core administration",
		Long: `clinicctl runs administrative tasks that have no HTTP endpoint.

Configuration is read the same way as the server: .env, CONFIG_FILE and
environment variables.

Example usage:
  clinicctl migrate
  clinicctl roles defaults --tenant 6f1c...
  clinicctl users add --username ana --tenant 6f1c...
  clinicctl token issue --user 9a2e... --type system_admin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Log.Level, "console")
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		a.migrateCmd(),
		a.rolesCmd(),
		a.usersCmd(),
		a.tokenCmd(),
	)
	return root
}

// withDB opens the database for the duration of fn.
func (a *app) withDB(fn func(db *gorm.DB) error) error {
	db, closeDB, err := openDB(a.cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(db)
}

func parseUUIDFlag(name, raw string, required bool) (uuid.UUID, error) {
	if raw == "" {
		if required {
			return uuid.Nil, fmt.Errorf("--%s is required", name)
		}
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s must be a UUID: %w", name, err)
	}
	return id, nil
}
