package identity

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// Dialect names accepted by Migrate
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Migrate applies every pending migration for dialect and returns the
// number of migrations applied.
func Migrate(ctx context.Context, db *sql.DB, dialect string) (int, error) {
	var gooseDialect goose.Dialect
	switch dialect {
	case DialectSQLite:
		gooseDialect = goose.DialectSQLite3
	case DialectPostgres:
		gooseDialect = goose.DialectPostgres
	default:
		return 0, fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	dir, err := fs.Sub(migrationsFS, "data/sql/migrations/"+dialect)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}

	provider, err := goose.NewProvider(gooseDialect, db, dir)
	if err != nil {
		return 0, fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	return len(results), nil
}
