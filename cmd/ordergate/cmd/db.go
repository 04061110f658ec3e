package cmd

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/solatis/ordergate/internal/core/db"
)

// openDatabase opens the configured database and loads the named queries.
func openDatabase(ctx context.Context, a *app) (*sqlx.DB, *db.Queries, error) {
	if a.cfg.Database.URL == "" {
		return nil, nil, fmt.Errorf("database URL required (--db-url, OG_DATABASE_URL or database.url)")
	}
	conn, err := db.Open(ctx, a.cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return conn, queries, nil
}

// requireMigrated fails when any embedded migration is still pending.
func requireMigrated(ctx context.Context, conn *sqlx.DB) error {
	statuses, err := db.MigrateStatus(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'ordergate migrate up' first", s.ID)
		}
	}
	return nil
}
