// Package migrations embeds and applies the database schema. Both engines
// share the same migration runner: files are applied in lexical order and
// recorded in schema_migrations, so re-running is safe.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var files embed.FS

// RunSQLite applies the SQLite migrations on the given connection.
func RunSQLite(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP)`,
	); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	return applyAll("sql/sqlite", func(name, script string) error {
		var count int
		if err := db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, name,
		).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if _, err := db.ExecContext(ctx, script); err != nil {
			return err
		}
		_, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES (?)`, name)
		return err
	})
}

// RunPostgres applies the Postgres migrations on the given pool.
func RunPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW())`,
	); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	return applyAll("sql/postgres", func(name, script string) error {
		var count int
		if err := pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE name = $1`, name,
		).Scan(&count); err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		if _, err := pool.Exec(ctx, script); err != nil {
			return err
		}
		_, err := pool.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
		return err
	})
}

func applyAll(dir string, apply func(name, script string) error) error {
	entries, err := fs.ReadDir(files, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := files.ReadFile(dir + "/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := apply(name, string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}
