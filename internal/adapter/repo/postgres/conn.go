// Package postgres stores interviews, practice sessions and users in PostgreSQL.
// Session aggregates are kept as JSONB documents and every mutation is a single
// UPDATE statement, so each change is atomic at the document level.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// PgxPool is the subset of *pgxpool.Pool the repositories use.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPool creates a traced pgx pool and waits, with exponential backoff, until the database answers.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.NewPool: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=postgres.NewPool: %w", err)
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 250 * time.Millisecond
	expo.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(pctx)
	}
	notify := func(err error, d time.Duration) {
		slog.Warn("postgres not ready, retrying", slog.Any("error", err), slog.Duration("backoff", d))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(expo, ctx), notify); err != nil {
		pool.Close()
		return nil, fmt.Errorf("op=postgres.NewPool: ping: %w", err)
	}
	return pool, nil
}

// Migrate creates tables and indexes when missing.
func Migrate(ctx context.Context, p PgxPool) error {
	if _, err := p.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=postgres.Migrate: %w", err)
	}
	return nil
}
