// Package dbtest gives tests a migrated in-memory database.
package dbtest

import (
	"testing"

	"github.com/AdamBeresnev/post-battles/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func New(t testing.TB) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", db.MemoryDSN)
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// Every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)

	require.NoError(t, db.RunMigrations(database.DB), "Failed to apply migrations")

	t.Cleanup(func() { database.Close() })
	return database
}
