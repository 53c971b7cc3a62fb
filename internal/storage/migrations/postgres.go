package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"

	"meme-ledger/internal/storage/postgres"
)

const migrationsTableName = "schema_migrations"

func postgresSource() *migrate.EmbedFileSystemMigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{FileSystem: PostgresFS, Root: "postgres"}
}

// RunPostgresMigrations applies embedded migrations not yet recorded in
// schema_migrations. Each file runs in its own transaction.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) (int, error) {
	db := stdlib.OpenDBFromPool(pool.Pool)
	defer db.Close()

	set := &migrate.MigrationSet{TableName: migrationsTableName}
	n, err := set.ExecContext(ctx, db, "postgres", postgresSource(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply postgres migrations: %w", err)
	}
	return n, nil
}
