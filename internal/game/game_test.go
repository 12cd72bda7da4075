// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package game_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhall/deckhall/internal/game"
	"github.com/deckhall/deckhall/internal/store"
	"github.com/deckhall/deckhall/pkg/errutil"
)

func TestDecode(t *testing.T) {
	t.Run("name and extra fields", func(t *testing.T) {
		g, err := game.Decode([]byte(`{"name":"Friday draft","seats":8,"host":"someone-else","id":"x"}`))
		require.NoError(t, err)
		assert.Equal(t, "Friday draft", g.Name)
		assert.True(t, g.ID.IsZero())
		assert.True(t, g.Host.IsZero())
		assert.Equal(t, map[string]json.RawMessage{"seats": json.RawMessage(`8`)}, g.Fields)
	})

	invalid := []struct {
		name string
		doc  string
	}{
		{"missing name", `{"seats":8}`},
		{"empty name", `{"name":""}`},
		{"blank name", `{"name":"   "}`},
		{"name too long", `{"name":"` + strings.Repeat("x", game.MaxNameLength+1) + `"}`},
		{"name not a string", `{"name":7}`},
		{"not an object", `"game"`},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := game.Decode([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, game.ErrInvalid)
			errutil.AssertErrorCode(t, err, "GAME_INVALID")
		})
	}
}

func TestGame_MarshalJSON(t *testing.T) {
	g := &game.Game{
		ID:        ulid.Make(),
		Name:      "Friday draft",
		Host:      ulid.Make(),
		Fields:    map[string]json.RawMessage{"seats": json.RawMessage(`8`)},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "`+g.ID.String()+`",
		"name": "Friday draft",
		"host": "`+g.Host.String()+`",
		"seats": 8,
		"createdAt": "2026-03-01T12:00:00Z"
	}`, string(data))
}

type memRepo struct {
	mu    sync.Mutex
	games []*game.Game
	err   error
}

func (m *memRepo) List(context.Context) ([]*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]*game.Game(nil), m.games...), nil
}

func (m *memRepo) Create(_ context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.games = append(m.games, g)
	return nil
}

type announcement struct {
	event string
	data  any
}

type recordingAnnouncer struct {
	sent []announcement
	err  error
}

func (r *recordingAnnouncer) Announce(event string, data any) error {
	r.sent = append(r.sent, announcement{event, data})
	return r.err
}

func quiet() game.ServiceOption {
	return game.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// droppedAfterCommitRepo stores a game but reports the connection as lost,
// and rejects a second insert of the same id like the primary key would.
type droppedAfterCommitRepo struct {
	memRepo
	creates int
}

func (r *droppedAfterCommitRepo) Create(ctx context.Context, g *game.Game) error {
	r.creates++
	for _, stored := range r.games {
		if stored.ID == g.ID {
			return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
		}
	}
	if err := r.memRepo.Create(ctx, g); err != nil {
		return err
	}
	return &pgconn.PgError{Code: pgerrcode.ConnectionFailure}
}

func TestService_Open(t *testing.T) {
	ctx := context.Background()
	host := ulid.Make()

	t.Run("stores and announces", func(t *testing.T) {
		repo := &memRepo{}
		announcer := &recordingAnnouncer{}
		svc, err := game.NewService(repo, announcer, quiet())
		require.NoError(t, err)

		opened, err := svc.Open(ctx, host, &game.Game{Name: "Friday draft"})
		require.NoError(t, err)
		assert.False(t, opened.ID.IsZero())
		assert.Equal(t, host, opened.Host)
		assert.False(t, opened.CreatedAt.IsZero())

		require.Len(t, repo.games, 1)
		require.Len(t, announcer.sent, 1)
		assert.Equal(t, game.EventAdded, announcer.sent[0].event)
		assert.Equal(t, opened, announcer.sent[0].data)
	})

	t.Run("announcement failure keeps the game", func(t *testing.T) {
		repo := &memRepo{}
		svc, err := game.NewService(repo, &recordingAnnouncer{err: errors.New("hub closed")}, quiet())
		require.NoError(t, err)

		_, err = svc.Open(ctx, host, &game.Game{Name: "Friday draft"})
		require.NoError(t, err)
		assert.Len(t, repo.games, 1)
	})

	t.Run("store failure is not announced", func(t *testing.T) {
		announcer := &recordingAnnouncer{}
		svc, err := game.NewService(&memRepo{err: errors.New("connection refused")}, announcer,
			quiet(), game.WithRetrier(store.NewRetrier(2, time.Millisecond)))
		require.NoError(t, err)

		_, err = svc.Open(ctx, host, &game.Game{Name: "Friday draft"})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrUnavailable)
		assert.Empty(t, announcer.sent)
	})

	t.Run("insert committed before the connection dropped", func(t *testing.T) {
		repo := &droppedAfterCommitRepo{}
		announcer := &recordingAnnouncer{}
		svc, err := game.NewService(repo, announcer,
			quiet(), game.WithRetrier(store.NewRetrier(3, time.Millisecond)))
		require.NoError(t, err)

		opened, err := svc.Open(ctx, host, &game.Game{Name: "Friday draft"})
		require.NoError(t, err)
		assert.Equal(t, 2, repo.creates)
		require.Len(t, repo.games, 1)
		assert.Equal(t, opened.ID, repo.games[0].ID)
		assert.Len(t, announcer.sent, 1)
	})

	t.Run("nil announcer", func(t *testing.T) {
		svc, err := game.NewService(&memRepo{}, nil, quiet())
		require.NoError(t, err)

		_, err = svc.Open(ctx, host, &game.Game{Name: "Solo"})
		require.NoError(t, err)
	})

	t.Run("nil game", func(t *testing.T) {
		svc, err := game.NewService(&memRepo{}, nil, quiet())
		require.NoError(t, err)

		_, err = svc.Open(ctx, host, nil)
		assert.ErrorIs(t, err, game.ErrInvalid)
	})
}

func TestService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("empty catalogue is an empty slice", func(t *testing.T) {
		svc, err := game.NewService(&memRepo{}, nil, quiet())
		require.NoError(t, err)

		games, err := svc.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, games)
		assert.Empty(t, games)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, err := game.NewService(&memRepo{err: errors.New("connection refused")}, nil, quiet())
		require.NoError(t, err)

		_, err = svc.List(ctx)
		assert.ErrorIs(t, err, store.ErrUnavailable)
		errutil.AssertErrorCode(t, err, "STORE_UNAVAILABLE")
	})
}

func TestNewService_NilRepository(t *testing.T) {
	_, err := game.NewService(nil, nil)
	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	data, err := game.Schema()
	require.NoError(t, err)

	var schema struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, "Deckhall Game", schema.Title)
	assert.Contains(t, schema.Properties, "name")
}
