// Package databasetest opens migrated in-memory databases for tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/otcheredev/clinic-core/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New returns a fresh, migrated sqlite database that is closed when t finishes.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:"), "silent")
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps every statement on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(context.Background(), db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
