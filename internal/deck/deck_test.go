// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package deck_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/pkg/errutil"
)

func TestDecode(t *testing.T) {
	t.Run("new deck with cards and extra fields", func(t *testing.T) {
		d, err := deck.Decode([]byte(`{"main":["card1",{"name":"Island","count":4}],"name":"Mono Blue","format":"legacy"}`))
		require.NoError(t, err)
		assert.True(t, d.IsNew())
		require.Len(t, d.Main, 2)
		assert.JSONEq(t, `"card1"`, string(d.Main[0]))
		assert.Nil(t, d.Sideboard)
		assert.Equal(t, map[string]json.RawMessage{
			"name":   json.RawMessage(`"Mono Blue"`),
			"format": json.RawMessage(`"legacy"`),
		}, d.Fields)
	})

	t.Run("existing deck id", func(t *testing.T) {
		id := ulid.Make()
		d, err := deck.Decode([]byte(`{"id":"` + id.String() + `","main":[],"sideboard":[]}`))
		require.NoError(t, err)
		assert.Equal(t, id, d.ID)
		assert.False(t, d.IsNew())
	})

	t.Run("empty id is new", func(t *testing.T) {
		d, err := deck.Decode([]byte(`{"id":""}`))
		require.NoError(t, err)
		assert.True(t, d.IsNew())
	})

	t.Run("null card lists are absent", func(t *testing.T) {
		d, err := deck.Decode([]byte(`{"main":null,"sideboard":null}`))
		require.NoError(t, err)
		assert.Nil(t, d.Main)
		assert.Nil(t, d.Sideboard)

		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"owner":"`+d.Owner.String()+`","main":[],"sideboard":[]}`, string(data))
	})

	t.Run("client owner and timestamps are ignored", func(t *testing.T) {
		d, err := deck.Decode([]byte(`{"owner":"01ARZ3NDEKTSV4RRFFQ69G5FAV","createdAt":"2001-01-01T00:00:00Z"}`))
		require.NoError(t, err)
		assert.True(t, d.Owner.IsZero())
		assert.True(t, d.CreatedAt.IsZero())
		assert.Nil(t, d.Fields)
	})

	invalid := []struct {
		name string
		doc  string
	}{
		{"not an object", `["card1"]`},
		{"main not a list", `{"main":"card1"}`},
		{"sideboard not a list", `{"sideboard":{}}`},
		{"malformed id", `{"id":"deck-1"}`},
		{"id of right length but not a ulid", `{"id":"ZZZZZZZZZZZZZZZZZZZZZZZZZZ"}`},
		{"id with letters outside the ulid alphabet", `{"id":"0IIIIIIIIIIIIIIIIIIIIIIIII"}`},
		{"card list of the wrong type", `{"main":{"card":1}}`},
		{"truncated", `{"main":[`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := deck.Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, deck.ErrInvalid)
			errutil.AssertErrorCode(t, err, "DECK_INVALID")
		})
	}
}

func TestDeck_MarshalJSON(t *testing.T) {
	id := ulid.Make()
	owner := ulid.Make()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("flattens fields and fills empty lists", func(t *testing.T) {
		d := &deck.Deck{
			ID:        id,
			Owner:     owner,
			Main:      []json.RawMessage{json.RawMessage(`"card1"`)},
			Fields:    map[string]json.RawMessage{"name": json.RawMessage(`"Burn"`)},
			CreatedAt: created,
			UpdatedAt: created,
		}
		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"id": "`+id.String()+`",
			"owner": "`+owner.String()+`",
			"main": ["card1"],
			"sideboard": [],
			"name": "Burn",
			"createdAt": "2026-03-01T12:00:00Z",
			"updatedAt": "2026-03-01T12:00:00Z"
		}`, string(data))
	})

	t.Run("fields cannot shadow server members", func(t *testing.T) {
		d := &deck.Deck{
			ID:     id,
			Owner:  owner,
			Fields: map[string]json.RawMessage{"owner": json.RawMessage(`"mallory"`)},
		}
		data, err := json.Marshal(d)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, owner.String(), out["owner"])
	})
}

func TestSchema(t *testing.T) {
	data, err := deck.Schema()
	require.NoError(t, err)

	var schema struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "Deckhall Deck", schema.Title)
	for _, member := range []string{"id", "owner", "main", "sideboard"} {
		assert.Contains(t, schema.Properties, member)
	}
}
