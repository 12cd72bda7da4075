// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package postgres implements game.Repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/game"
	"github.com/deckhall/deckhall/internal/store"
)

// Repository implements game.Repository using PostgreSQL.
type Repository struct {
	pool store.Pool
}

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every game, oldest first.
func (r *Repository) List(ctx context.Context) ([]*game.Game, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, host_id, fields, created_at
		FROM games
		ORDER BY id
	`)
	if err != nil {
		return nil, oops.Code("GAME_LIST_FAILED").With("operation", "query games").Wrap(err)
	}
	defer rows.Close()

	games := []*game.Game{}
	for rows.Next() {
		var (
			idStr  string
			hostID *string
			fields []byte
			g      game.Game
		)
		if err := rows.Scan(&idStr, &g.Name, &hostID, &fields, &g.CreatedAt); err != nil {
			return nil, oops.Code("GAME_LIST_FAILED").With("operation", "scan game").Wrap(err)
		}
		if g.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("GAME_INVALID_ID").With("id", idStr).Wrap(err)
		}
		if hostID != nil {
			if g.Host, err = ulid.Parse(*hostID); err != nil {
				return nil, oops.Code("GAME_INVALID_HOST").With("host", *hostID).Wrap(err)
			}
		}
		if len(fields) > 0 {
			if err := json.Unmarshal(fields, &g.Fields); err != nil {
				return nil, oops.Code("GAME_CORRUPT").With("id", idStr).Wrap(err)
			}
			if len(g.Fields) == 0 {
				g.Fields = nil
			}
		}
		g.CreatedAt = g.CreatedAt.UTC()
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("GAME_LIST_FAILED").With("operation", "iterate games").Wrap(err)
	}
	return games, nil
}

// Create inserts a game.
func (r *Repository) Create(ctx context.Context, g *game.Game) error {
	fields := []byte(`{}`)
	if g.Fields != nil {
		var err error
		if fields, err = json.Marshal(g.Fields); err != nil {
			return oops.Code("GAME_CREATE_FAILED").With("operation", "encode fields").Wrap(err)
		}
	}

	var hostID *string
	if !g.Host.IsZero() {
		s := g.Host.String()
		hostID = &s
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO games (id, name, host_id, fields, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		g.ID.String(),
		g.Name,
		hostID,
		fields,
		g.CreatedAt,
	)
	if err != nil {
		return oops.Code("GAME_CREATE_FAILED").
			With("operation", "insert game").
			With("game_id", g.ID.String()).
			Wrap(err)
	}
	return nil
}

var _ game.Repository = (*Repository)(nil)
