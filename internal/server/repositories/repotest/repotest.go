// Package repotest opens migrated in-memory SQLite databases for repository
// and service tests.
package repotest

import (
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/passvault/internal/server/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

// NewSQLiteDB returns a fresh in-memory database with the schema applied.
// A single connection is used because every :memory: connection is its own
// database.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.Up(db, "sqlite"))

	return db
}
