// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package deck stores card decks. Every operation is scoped to the deck's
// owner; a deck that belongs to someone else looks exactly like one that
// does not exist.
package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/jsondoc"
)

// ErrNotFound is returned when no deck with the ID belongs to the caller.
var ErrNotFound = errors.New("deck not found")

// ErrInvalid is returned for a deck document that fails validation.
var ErrInvalid = errors.New("invalid deck")

// Deck is a user's card list. Cards are opaque JSON values owned by the
// client.
type Deck struct {
	ID        ulid.ULID
	Owner     ulid.ULID
	Main      []json.RawMessage
	Sideboard []json.RawMessage
	// Fields holds any other members the client sent. They are stored and
	// returned verbatim, flattened into the top-level object.
	Fields    map[string]json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsNew reports whether the deck has never been saved.
func (d *Deck) IsNew() bool {
	return d.ID.IsZero()
}

// Wire member names.
const (
	fieldID        = "id"
	fieldOwner     = "owner"
	fieldMain      = "main"
	fieldSideboard = "sideboard"
	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

var knownFields = []string{fieldID, fieldOwner, fieldMain, fieldSideboard, fieldCreatedAt, fieldUpdatedAt}

// document is the schema the wire form is validated against.
type document struct {
	ID        string `json:"id,omitempty" jsonschema:"pattern=^([0-7][0-9A-HJKMNP-TV-Za-hjkmnp-tv-z]{25})?$"`
	Owner     string `json:"owner,omitempty"`
	Main      []any  `json:"main,omitempty" jsonschema:"nullable"`
	Sideboard []any  `json:"sideboard,omitempty" jsonschema:"nullable"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

var validator = jsondoc.MustValidator("deck", &document{})

// Schema returns the published JSON Schema of the deck document.
func Schema() ([]byte, error) {
	return jsondoc.Generate("deck", "Deckhall Deck", &document{}) //nolint:wrapcheck // jsondoc names the schema
}

// Decode validates raw and builds a Deck from it. An absent or empty id
// yields a new deck; a null card list counts as absent.
func Decode(raw []byte) (*Deck, error) {
	if err := validator.Validate(raw); err != nil {
		return nil, invalid(err)
	}
	var d Deck
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, invalid(err)
	}
	return &d, nil
}

// MarshalJSON flattens Fields into the object.
func (d *Deck) MarshalJSON() ([]byte, error) {
	members := map[string]any{
		fieldOwner:     d.Owner.String(),
		fieldMain:      orEmpty(d.Main),
		fieldSideboard: orEmpty(d.Sideboard),
	}
	if !d.ID.IsZero() {
		members[fieldID] = d.ID.String()
	}
	if !d.CreatedAt.IsZero() {
		members[fieldCreatedAt] = d.CreatedAt
	}
	if !d.UpdatedAt.IsZero() {
		members[fieldUpdatedAt] = d.UpdatedAt
	}
	return jsondoc.Merge(d.Fields, members) //nolint:wrapcheck // encoding error
}

// UnmarshalJSON reads the known members and keeps the rest in Fields. The
// owner and timestamps are server-controlled and ignored on input.
func (d *Deck) UnmarshalJSON(data []byte) error {
	members, extras, err := jsondoc.Split(data, knownFields...)
	if err != nil {
		return err //nolint:wrapcheck // Decode wraps
	}

	*d = Deck{Fields: extras}
	if raw, ok := members[fieldID]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return err //nolint:wrapcheck // Decode wraps
		}
		if id != "" {
			if d.ID, err = ulid.ParseStrict(id); err != nil {
				return err //nolint:wrapcheck // Decode wraps
			}
		}
	}
	if raw, ok := members[fieldMain]; ok {
		if err := json.Unmarshal(raw, &d.Main); err != nil {
			return err //nolint:wrapcheck // Decode wraps
		}
	}
	if raw, ok := members[fieldSideboard]; ok {
		if err := json.Unmarshal(raw, &d.Sideboard); err != nil {
			return err //nolint:wrapcheck // Decode wraps
		}
	}
	return nil
}

func orEmpty(cards []json.RawMessage) []json.RawMessage {
	if cards == nil {
		return []json.RawMessage{}
	}
	return cards
}

// Repository persists decks. Every method is scoped by owner.
type Repository interface {
	// List returns the owner's decks ordered by ID.
	List(ctx context.Context, owner ulid.ULID) ([]*Deck, error)

	// Create inserts a new deck.
	Create(ctx context.Context, d *Deck) error

	// Replace overwrites the cards and fields of a deck the owner holds and
	// fills in the stored CreatedAt. Returns ErrNotFound when no such deck
	// belongs to owner.
	Replace(ctx context.Context, owner ulid.ULID, d *Deck) error

	// Delete removes one deck the owner holds. Returns ErrNotFound when no
	// such deck belongs to owner.
	Delete(ctx context.Context, owner, id ulid.ULID) error
}

func invalid(err error) error {
	return oops.Code("DECK_INVALID").Wrap(fmt.Errorf("%w: %w", ErrInvalid, err))
}

// NotFound builds the error repositories return for a missing or foreign
// deck.
func NotFound(id ulid.ULID) error {
	return oops.Code("DECK_NOT_FOUND").With("deck_id", id.String()).Wrap(ErrNotFound)
}
