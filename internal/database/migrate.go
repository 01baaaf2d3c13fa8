package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_mysql.sql
var mysqlSchema string

// Migrate creates the five catalog tables if they do not exist yet. It is
// idempotent and safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case "sqlite":
		schema = sqliteSchema
	case "mysql":
		schema = mysqlSchema
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}
	// The MySQL driver rejects multi-statement strings unless the DSN opts in,
	// so statements are executed one by one for both drivers.
	for _, stmt := range statements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func statements(schema string) []string {
	var out []string
	for _, s := range strings.Split(schema, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
