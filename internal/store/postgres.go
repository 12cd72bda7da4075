// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package store owns the PostgreSQL connection, schema migrations and the
// failure classification shared by every repository.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool is the query surface repositories depend on. *pgxpool.Pool and
// pgxmock.PgxPoolIface both satisfy it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// ConnectOptions tunes Connect.
type ConnectOptions struct {
	// Attempts is how many pings are tried before giving up. Zero means 5.
	Attempts uint64
	// Backoff is the first retry delay; it doubles per attempt. Zero means 200ms.
	Backoff time.Duration
}

// Connect opens a pool and pings it until the database answers, backing off
// between attempts so the server can start alongside its database.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	if opts.Attempts == 0 {
		opts.Attempts = 5
	}
	if opts.Backoff == 0 {
		opts.Backoff = 200 * time.Millisecond
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(opts.Attempts-1, retry.NewExponential(opts.Backoff))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}

	return pool, nil
}
