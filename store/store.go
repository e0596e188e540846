// Package store is the persistence layer: the only code in this module
// allowed to issue SQL. Upper layers call its adapter functions; none of
// them build queries of their own.
package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/metabench/hubcrawl/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store brokers all reads and writes against the relational schema.
// Writes to append-only tables (http_responses, task_events) are never
// followed by UPDATE from this package; readers race freely against the
// single writer discipline described at the call site (queue leases use
// row-level locking, everything else is insert-or-upsert).
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// Open connects to Postgres via the pgx stdlib driver and applies pending
// migrations forward-only. Migrations are idempotent (IF NOT EXISTS
// throughout) so a re-run against an already-current schema is a no-op.
func Open(ctx context.Context, cfg config.PostgresConfig, log *slog.Logger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies every pending migration under migrations/. Schema is
// the declarative source of truth; there is no reflection-based sync
// against a running database.
func (s *Store) migrate() error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("store: set dialect: %w", err)
	}
	if err := goose.Up(s.db.DB, "migrations"); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for adapters in this package only; callers
// outside store must never reach it directly.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// legacyColumnAbsent reports whether err looks like a "column does not
// exist" error from a schema that predates a later migration — the SELECT
// adapters tolerate this by returning an empty result instead of failing
// the caller, per the persistence layer's forward-compatibility rule.
func legacyColumnAbsent(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "does not exist") && strings.Contains(msg, "column")
}
