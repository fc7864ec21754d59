// Package sqlite stores attempts and EventSub subscription records in an
// embedded SQLite database. It backs single-node and development setups
// where running PostgreSQL is not worth it.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/fortyfive/internal/adapter/metrics"
	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS attempts (
		epoch                 INTEGER NOT NULL,
		broadcaster_user_id   TEXT    NOT NULL,
		chatter_user_id       TEXT    NOT NULL,
		forty_five_value      REAL    NOT NULL,
		forty_five_difference REAL    NOT NULL,
		forty_five_timestamp  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_broadcaster_epoch ON attempts (broadcaster_user_id, epoch)`,
	`CREATE INDEX IF NOT EXISTS idx_attempts_broadcaster_chatter ON attempts (broadcaster_user_id, chatter_user_id)`,
	`CREATE TABLE IF NOT EXISTS eventsub_subscriptions (
		broadcaster_user_id TEXT    PRIMARY KEY,
		subscription_id     TEXT    NOT NULL,
		conduit_id          TEXT    NOT NULL,
		created_at          INTEGER NOT NULL
	)`,
}

// DB is a SQLite handle with query instrumentation.
type DB struct {
	db *sql.DB
	m  *metrics.StoreMetrics
}

// Open opens the database at dsn (e.g. "file:fortyfive.db" or ":memory:")
// and creates the schema. m may be nil.
//
// A single connection is used: SQLite serialises writers anyway, and an
// in-memory database only lives as long as its connection.
func Open(ctx context.Context, dsn string, m *metrics.StoreMetrics) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode = WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	slog.Info("SQLite database ready", "dsn", dsn)
	return &DB{db: db, m: m}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DB) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	start := time.Now()
	row := d.db.QueryRowContext(ctx, query, args...)
	d.m.ObserveQuery(query, time.Since(start), row.Err())
	return row
}

func (d *DB) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := d.db.QueryContext(ctx, query, args...)
	d.m.ObserveQuery(query, time.Since(start), err)
	return rows, err
}

func (d *DB) exec(ctx context.Context, query string, args ...any) error {
	start := time.Now()
	_, err := d.db.ExecContext(ctx, query, args...)
	d.m.ObserveQuery(query, time.Since(start), err)
	return err
}
