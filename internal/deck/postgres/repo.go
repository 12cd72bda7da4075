// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package postgres implements deck.Repository on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/internal/store"
)

// Repository implements deck.Repository using PostgreSQL.
type Repository struct {
	pool store.Pool
}

// NewRepository creates a new Repository.
func NewRepository(pool store.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the owner's decks ordered by ID.
func (r *Repository) List(ctx context.Context, owner ulid.ULID) ([]*deck.Deck, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, main, sideboard, fields, created_at, updated_at
		FROM decks
		WHERE owner_id = $1
		ORDER BY id
	`, owner.String())
	if err != nil {
		return nil, oops.Code("DECK_LIST_FAILED").
			With("operation", "query decks").
			With("owner", owner.String()).
			Wrap(err)
	}
	defer rows.Close()

	decks := []*deck.Deck{}
	for rows.Next() {
		d, err := scanDeck(rows)
		if err != nil {
			return nil, oops.Code("DECK_LIST_FAILED").
				With("operation", "scan deck").
				With("owner", owner.String()).
				Wrap(err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DECK_LIST_FAILED").
			With("operation", "iterate decks").
			With("owner", owner.String()).
			Wrap(err)
	}
	return decks, nil
}

// Create inserts a deck.
func (r *Repository) Create(ctx context.Context, d *deck.Deck) error {
	main, sideboard, fields, err := encode(d)
	if err != nil {
		return oops.Code("DECK_CREATE_FAILED").With("operation", "encode deck").Wrap(err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO decks (id, owner_id, main, sideboard, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		d.ID.String(),
		d.Owner.String(),
		main,
		sideboard,
		fields,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		return oops.Code("DECK_CREATE_FAILED").
			With("operation", "insert deck").
			With("deck_id", d.ID.String()).
			Wrap(err)
	}
	return nil
}

// Replace overwrites a deck the owner holds. The row filter includes the
// owner, so a foreign deck matches nothing.
func (r *Repository) Replace(ctx context.Context, owner ulid.ULID, d *deck.Deck) error {
	main, sideboard, fields, err := encode(d)
	if err != nil {
		return oops.Code("DECK_REPLACE_FAILED").With("operation", "encode deck").Wrap(err)
	}

	var createdAt time.Time
	err = r.pool.QueryRow(ctx, `
		UPDATE decks
		SET main = $3, sideboard = $4, fields = $5, updated_at = $6
		WHERE id = $1 AND owner_id = $2
		RETURNING created_at
	`,
		d.ID.String(),
		owner.String(),
		main,
		sideboard,
		fields,
		d.UpdatedAt,
	).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return deck.NotFound(d.ID)
	}
	if err != nil {
		return oops.Code("DECK_REPLACE_FAILED").
			With("operation", "update deck").
			With("deck_id", d.ID.String()).
			Wrap(err)
	}
	d.CreatedAt = createdAt.UTC()
	return nil
}

// Delete removes one deck the owner holds.
func (r *Repository) Delete(ctx context.Context, owner, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM decks WHERE id = $1 AND owner_id = $2`, id.String(), owner.String())
	if err != nil {
		return oops.Code("DECK_DELETE_FAILED").
			With("operation", "delete deck").
			With("deck_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return deck.NotFound(id)
	}
	return nil
}

func encode(d *deck.Deck) (main, sideboard, fields []byte, err error) {
	if main, err = marshalCards(d.Main); err != nil {
		return nil, nil, nil, err
	}
	if sideboard, err = marshalCards(d.Sideboard); err != nil {
		return nil, nil, nil, err
	}
	if d.Fields == nil {
		return main, sideboard, []byte(`{}`), nil
	}
	if fields, err = json.Marshal(d.Fields); err != nil {
		return nil, nil, nil, err //nolint:wrapcheck // callers wrap
	}
	return main, sideboard, fields, nil
}

func marshalCards(cards []json.RawMessage) ([]byte, error) {
	if cards == nil {
		return []byte(`[]`), nil
	}
	return json.Marshal(cards) //nolint:wrapcheck // callers wrap
}

func scanDeck(row pgx.Row) (*deck.Deck, error) {
	var (
		idStr, ownerStr         string
		main, sideboard, fields []byte
		d                       deck.Deck
	)
	if err := row.Scan(&idStr, &ownerStr, &main, &sideboard, &fields, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err //nolint:wrapcheck // callers wrap
	}

	var err error
	if d.ID, err = ulid.Parse(idStr); err != nil {
		return nil, oops.Code("DECK_INVALID_ID").With("id", idStr).Wrap(err)
	}
	if d.Owner, err = ulid.Parse(ownerStr); err != nil {
		return nil, oops.Code("DECK_INVALID_OWNER").With("owner", ownerStr).Wrap(err)
	}
	if err := json.Unmarshal(main, &d.Main); err != nil {
		return nil, oops.Code("DECK_CORRUPT").With("column", "main").Wrap(err)
	}
	if err := json.Unmarshal(sideboard, &d.Sideboard); err != nil {
		return nil, oops.Code("DECK_CORRUPT").With("column", "sideboard").Wrap(err)
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &d.Fields); err != nil {
			return nil, oops.Code("DECK_CORRUPT").With("column", "fields").Wrap(err)
		}
		if len(d.Fields) == 0 {
			d.Fields = nil
		}
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	return &d, nil
}

var _ deck.Repository = (*Repository)(nil)
