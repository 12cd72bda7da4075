// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package game keeps the catalogue of open games.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/jsondoc"
)

// ErrInvalid is returned for a game document that fails validation.
var ErrInvalid = errors.New("invalid game")

// MaxNameLength is the longest game name accepted, in characters.
const MaxNameLength = 64

// Game is an open table players can join.
type Game struct {
	ID        ulid.ULID
	Name      string
	Host      ulid.ULID
	Fields    map[string]json.RawMessage
	CreatedAt time.Time
}

const (
	fieldID        = "id"
	fieldName      = "name"
	fieldHost      = "host"
	fieldCreatedAt = "createdAt"
)

type document struct {
	Name string `json:"name" jsonschema:"minLength=1,maxLength=64"`
	Host string `json:"host,omitempty"`
}

var validator = jsondoc.MustValidator("game", &document{})

// Schema returns the published JSON Schema of the game document.
func Schema() ([]byte, error) {
	return jsondoc.Generate("game", "Deckhall Game", &document{}) //nolint:wrapcheck // jsondoc names the schema
}

// Decode validates raw and builds an unsaved Game. Any id, host or
// timestamp in raw is ignored.
func Decode(raw []byte) (*Game, error) {
	if err := validator.Validate(raw); err != nil {
		return nil, invalid(err)
	}
	var g Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, invalid(err)
	}
	if strings.TrimSpace(g.Name) == "" {
		return nil, invalid(errors.New("name cannot be blank"))
	}
	return &g, nil
}

// MarshalJSON flattens Fields into the object.
func (g *Game) MarshalJSON() ([]byte, error) {
	members := map[string]any{
		fieldID:   g.ID.String(),
		fieldName: g.Name,
	}
	if !g.Host.IsZero() {
		members[fieldHost] = g.Host.String()
	}
	if !g.CreatedAt.IsZero() {
		members[fieldCreatedAt] = g.CreatedAt
	}
	return jsondoc.Merge(g.Fields, members) //nolint:wrapcheck // encoding error
}

// UnmarshalJSON reads the name and keeps unknown members in Fields.
func (g *Game) UnmarshalJSON(data []byte) error {
	members, extras, err := jsondoc.Split(data, fieldID, fieldName, fieldHost, fieldCreatedAt)
	if err != nil {
		return err //nolint:wrapcheck // Decode wraps
	}
	*g = Game{Fields: extras}
	if raw, ok := members[fieldName]; ok {
		if err := json.Unmarshal(raw, &g.Name); err != nil {
			return err //nolint:wrapcheck // Decode wraps
		}
	}
	return nil
}

// Repository persists games.
type Repository interface {
	// List returns every game, oldest first.
	List(ctx context.Context) ([]*Game, error)

	// Create inserts a game.
	Create(ctx context.Context, g *Game) error
}

func invalid(err error) error {
	return oops.Code("GAME_INVALID").Wrap(fmt.Errorf("%w: %w", ErrInvalid, err))
}
