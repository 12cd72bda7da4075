// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckhall/deckhall/internal/game"
	"github.com/deckhall/deckhall/internal/game/postgres"
	"github.com/deckhall/deckhall/pkg/errutil"
)

var gameColumns = []string{"id", "name", "host_id", "fields", "created_at"}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestRepository_List(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id1, id2, host := ulid.Make(), ulid.Make(), ulid.Make()
	hostStr := host.String()

	t.Run("returns games", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`SELECT id, name, host_id, fields, created_at\s+FROM games\s+ORDER BY id`).
			WillReturnRows(pgxmock.NewRows(gameColumns).
				AddRow(id1.String(), "Friday draft", &hostStr, []byte(`{"seats":8}`), now).
				AddRow(id2.String(), "Orphaned", (*string)(nil), []byte(`{}`), now))

		games, err := postgres.NewRepository(mock).List(ctx)
		require.NoError(t, err)
		require.Len(t, games, 2)
		assert.Equal(t, id1, games[0].ID)
		assert.Equal(t, "Friday draft", games[0].Name)
		assert.Equal(t, host, games[0].Host)
		assert.Equal(t, map[string]json.RawMessage{"seats": json.RawMessage(`8`)}, games[0].Fields)
		assert.True(t, games[1].Host.IsZero())
		assert.Nil(t, games[1].Fields)
	})

	t.Run("query failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM games`).WillReturnError(errors.New("connection refused"))

		_, err := postgres.NewRepository(mock).List(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "GAME_LIST_FAILED")
	})
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	host := ulid.Make()
	hostStr := host.String()
	g := &game.Game{
		ID:        ulid.Make(),
		Name:      "Friday draft",
		Host:      host,
		Fields:    map[string]json.RawMessage{"seats": json.RawMessage(`8`)},
		CreatedAt: now,
	}

	t.Run("inserts game", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO games`).
			WithArgs(g.ID.String(), "Friday draft", &hostStr, []byte(`{"seats":8}`), now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, postgres.NewRepository(mock).Create(ctx, g))
	})

	t.Run("insert failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectExec(`INSERT INTO games`).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(errors.New("connection refused"))

		err := postgres.NewRepository(mock).Create(ctx, g)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "GAME_CREATE_FAILED")
	})
}
