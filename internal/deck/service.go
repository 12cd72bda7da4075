// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package deck

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

// Service applies the deck contract on top of a Repository: owner stamping,
// empty card list defaults, and retrying transient store failures.
type Service struct {
	repo    Repository
	retrier *store.Retrier
	logger  *slog.Logger
	now     func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for store failures.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a Service. A nil retrier makes a single attempt.
func NewService(repo Repository, retrier *store.Retrier, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("deck repository is required")
	}
	if retrier == nil {
		retrier = store.NewRetrier(1, 0)
	}
	s := &Service{repo: repo, retrier: retrier, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns the owner's decks. The result is never nil.
func (s *Service) List(ctx context.Context, owner ulid.ULID) ([]*Deck, error) {
	var decks []*Deck
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		decks, err = s.repo.List(ctx, owner)
		return err
	})
	if err != nil {
		return nil, s.storeError(ctx, "list decks", owner, err)
	}
	if decks == nil {
		decks = []*Deck{}
	}
	return decks, nil
}

// Save creates d when it has no ID and replaces it otherwise. The stored
// deck always belongs to owner, whatever owner d carried. Missing card lists
// are stored as empty lists.
func (s *Service) Save(ctx context.Context, owner ulid.ULID, d *Deck) (*Deck, error) {
	if d == nil {
		return nil, invalid(errors.New("deck is required"))
	}

	saved := *d
	saved.Owner = owner
	saved.Main = orEmpty(saved.Main)
	saved.Sideboard = orEmpty(saved.Sideboard)
	saved.UpdatedAt = s.now().UTC()

	if saved.IsNew() {
		saved.ID = ulid.Make()
		saved.CreatedAt = saved.UpdatedAt
		err := s.retrier.DoInsert(ctx, func(ctx context.Context) error {
			return s.repo.Create(ctx, &saved)
		})
		if err != nil {
			return nil, s.storeError(ctx, "create deck", owner, err)
		}
		s.logger.DebugContext(ctx, "deck created", "deck_id", saved.ID.String(), "owner", owner.String())
		return &saved, nil
	}

	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.repo.Replace(ctx, owner, &saved)
	})
	if err != nil {
		return nil, s.storeError(ctx, "replace deck", owner, err)
	}
	return &saved, nil
}

// Delete removes one of the owner's decks.
func (s *Service) Delete(ctx context.Context, owner, id ulid.ULID) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.repo.Delete(ctx, owner, id)
	})
	if err != nil {
		return s.storeError(ctx, "delete deck", owner, err)
	}
	return nil
}

func (s *Service) storeError(ctx context.Context, op string, owner ulid.ULID, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	errutil.LogErrorContext(ctx, s.logger, op+" failed", err)
	return oops.With("owner", owner.String()).Wrap(store.Unavailable(op, err))
}
