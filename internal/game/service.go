// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package game

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/store"
	"github.com/deckhall/deckhall/pkg/errutil"
)

// EventAdded is the presence event sent when a game opens.
const EventAdded = "added"

// Announcer pushes an event to every connected client.
type Announcer interface {
	Announce(event string, data any) error
}

// Service lists and opens games.
type Service struct {
	repo      Repository
	announcer Announcer
	retrier   *store.Retrier
	logger    *slog.Logger
	now       func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetrier retries transient store failures.
func WithRetrier(r *store.Retrier) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.retrier = r
		}
	}
}

// NewService creates a Service. announcer may be nil, in which case new
// games are not announced.
func NewService(repo Repository, announcer Announcer, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("game repository is required")
	}
	s := &Service{
		repo:      repo,
		announcer: announcer,
		retrier:   store.NewRetrier(1, 0),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns all games. The result is never nil.
func (s *Service) List(ctx context.Context) ([]*Game, error) {
	var games []*Game
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		games, err = s.repo.List(ctx)
		return err
	})
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "list games failed", err)
		return nil, store.Unavailable("list games", err)
	}
	if games == nil {
		games = []*Game{}
	}
	return games, nil
}

// Open stores g hosted by host and announces it to every connected client.
// An announcement failure is logged; the game stays open.
func (s *Service) Open(ctx context.Context, host ulid.ULID, g *Game) (*Game, error) {
	if g == nil {
		return nil, invalid(errors.New("game is required"))
	}

	opened := *g
	opened.ID = ulid.Make()
	opened.Host = host
	opened.CreatedAt = s.now().UTC()

	err := s.retrier.DoInsert(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, &opened)
	})
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "create game failed", err)
		return nil, oops.With("host", host.String()).Wrap(store.Unavailable("create game", err))
	}

	s.logger.InfoContext(ctx, "game opened", "game_id", opened.ID.String(), "host", host.String())
	if s.announcer != nil {
		if err := s.announcer.Announce(EventAdded, &opened); err != nil {
			errutil.LogErrorContext(ctx, s.logger, "announce game failed", err)
		}
	}
	return &opened, nil
}
