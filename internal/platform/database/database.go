// Package database opens the PostgreSQL pool and applies schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Open opens a PostgreSQL connection pool. URLs with a pgx:// scheme use the
// pgx stdlib driver; plain postgres:// URLs use lib/pq. sql.Open does not
// dial, so callers should Ping before serving traffic.
func Open(databaseURL string) (*sql.DB, error) {
	driver := "postgres"
	if strings.HasPrefix(databaseURL, "pgx://") {
		driver = "pgx"
		databaseURL = "postgres://" + strings.TrimPrefix(databaseURL, "pgx://")
	}
	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Ping verifies the pool can reach the server.
func Ping(ctx context.Context, db *sql.DB) error {
	return db.PingContext(ctx)
}
