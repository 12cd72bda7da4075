// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/auth"
	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/internal/game"
)

type memUsers struct {
	mu     sync.Mutex
	byID   map[ulid.ULID]auth.User
	byName map[string]ulid.ULID
}

func newMemUsers() *memUsers {
	return &memUsers{byID: make(map[ulid.ULID]auth.User), byName: make(map[string]ulid.ULID)}
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.byName[u.Username]; taken {
		return oops.Code("USER_ALREADY_EXISTS").Wrap(auth.ErrUserExists)
	}
	m.byID[u.ID] = *u
	m.byName[u.Username] = u.ID
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &u, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byName[username]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	u := m.byID[id]
	return &u, nil
}

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]auth.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]auth.Session)}
}

func (m *memSessions) Create(_ context.Context, s *auth.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = *s
	return nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, hash string) (*auth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &s, nil
}

func (m *memSessions) DeleteByTokenHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[hash]; !ok {
		return auth.ErrNotFound
	}
	delete(m.sessions, hash)
	return nil
}

func (m *memSessions) UpdateLastSeen(_ context.Context, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[hash]
	if !ok {
		return auth.ErrNotFound
	}
	s.LastSeenAt = at
	m.sessions[hash] = s
	return nil
}

func (m *memSessions) DeleteExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for hash, s := range m.sessions {
		if s.IsExpiredAt(now) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func (m *memSessions) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// memDecks scopes every call by owner, like the SQL repository.
type memDecks struct {
	mu    sync.Mutex
	decks map[ulid.ULID]deck.Deck
}

func newMemDecks() *memDecks {
	return &memDecks{decks: make(map[ulid.ULID]deck.Deck)}
}

func (m *memDecks) List(_ context.Context, owner ulid.ULID) ([]*deck.Deck, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*deck.Deck
	for _, d := range m.decks {
		if d.Owner == owner {
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Compare(out[j].ID) < 0 })
	return out, nil
}

func (m *memDecks) Create(_ context.Context, d *deck.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decks[d.ID] = *d
	return nil
}

func (m *memDecks) Replace(_ context.Context, owner ulid.ULID, d *deck.Deck) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.decks[d.ID]
	if !ok || stored.Owner != owner {
		return deck.NotFound(d.ID)
	}
	d.CreatedAt = stored.CreatedAt
	m.decks[d.ID] = *d
	return nil
}

func (m *memDecks) Delete(_ context.Context, owner, id ulid.ULID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.decks[id]
	if !ok || stored.Owner != owner {
		return deck.NotFound(id)
	}
	delete(m.decks, id)
	return nil
}

func (m *memDecks) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.decks)
}

type memGames struct {
	mu    sync.Mutex
	games []game.Game
}

func (m *memGames) List(_ context.Context) ([]*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*game.Game, 0, len(m.games))
	for i := range m.games {
		g := m.games[i]
		out = append(out, &g)
	}
	return out, nil
}

func (m *memGames) Create(_ context.Context, g *game.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, *g)
	return nil
}

type authAttempt struct {
	strategy string
	state    string
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	attempts []authAttempt
	requests []recordedRequest
}

func (r *fakeRecorder) ObserveRequest(method, route string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{method: method, route: route, status: status})
}

func (r *fakeRecorder) AuthAttempt(strategy, state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, authAttempt{strategy: strategy, state: state})
}

func (r *fakeRecorder) snapshot() ([]authAttempt, []recordedRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]authAttempt(nil), r.attempts...), append([]recordedRequest(nil), r.requests...)
}
