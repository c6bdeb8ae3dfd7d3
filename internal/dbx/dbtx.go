// Package dbx provides the database/sql abstractions shared by the
// repositories: the DBTX interface satisfied by both *sql.DB and *sql.Tx, and
// the driver/dialect table.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Driver names accepted in configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Dialect describes how a configured driver maps onto database/sql and goose.
type Dialect struct {
	Name      string // configuration name
	SQLDriver string // name registered with database/sql
	Goose     string // goose dialect
}

// LookupDialect resolves a configured driver name.
func LookupDialect(driver string) (Dialect, error) {
	switch driver {
	case DriverSQLite:
		return Dialect{Name: DriverSQLite, SQLDriver: "sqlite", Goose: "sqlite3"}, nil
	case DriverPostgres:
		return Dialect{Name: DriverPostgres, SQLDriver: "pgx", Goose: "postgres"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported storage driver %q", driver)
	}
}
