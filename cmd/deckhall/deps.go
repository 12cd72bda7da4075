// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package main

import (
	"context"
	"io"
	"net"

	goredis "github.com/redis/go-redis/v9"

	"github.com/deckhall/deckhall/internal/store"
)

// Database is the pool surface serve depends on. *pgxpool.Pool and
// pgxmock pools both satisfy it.
type Database interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the PostgreSQL pool.
	// Default: store.Connect
	DatabaseFactory func(ctx context.Context, url string) (Database, error)

	// Migrate applies pending schema migrations.
	// Default: applyMigrations
	Migrate func(url string) error

	// RedisFactory connects the Redis session backend.
	// Default: authredis.Open
	RedisFactory func(ctx context.Context, url string) (goredis.UniversalClient, error)

	// ListenerFactory creates the public HTTP listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// LogOutput receives the process log.
	// Default: os.Stderr
	LogOutput io.Writer
}

// Migrator wraps the methods the migrate commands use from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Status() (store.MigrationStatus, error)
	Force(version int) error
	Close() error
}

// MigratorFactory opens a Migrator for a database URL.
type MigratorFactory func(databaseURL string) (Migrator, error)

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}
