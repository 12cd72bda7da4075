// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

// Package web exposes the JSON API, the presence socket and the static
// client over HTTP.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/auth"
	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/internal/game"
)

// SessionManager issues and resolves browser sessions.
type SessionManager interface {
	Resolve(ctx context.Context, token string) (*auth.User, error)
	Establish(ctx context.Context, user *auth.User, client auth.ClientInfo) (string, *auth.Session, error)
	Destroy(ctx context.Context, token string) error
	TTL() time.Duration
}

// DeckService is the deck contract the handlers use.
type DeckService interface {
	List(ctx context.Context, owner ulid.ULID) ([]*deck.Deck, error)
	Save(ctx context.Context, owner ulid.ULID, d *deck.Deck) (*deck.Deck, error)
	Delete(ctx context.Context, owner, id ulid.ULID) error
}

// GameService is the game catalogue contract the handlers use.
type GameService interface {
	List(ctx context.Context) ([]*game.Game, error)
	Open(ctx context.Context, host ulid.ULID, g *game.Game) (*game.Game, error)
}

// Recorder receives request and authentication metrics.
type Recorder interface {
	ObserveRequest(method, route string, status int, elapsed time.Duration)
	AuthAttempt(strategy, state string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRequest(string, string, int, time.Duration) {}
func (nopRecorder) AuthAttempt(string, string)                        {}

// MaxBodyBytes caps the size of an API request body, matching the largest
// presence frame.
const MaxBodyBytes = 64 << 10

// Config holds the HTTP surface settings.
type Config struct {
	// StaticDir holds the client bundle; unknown GET paths fall back to its
	// index.html.
	StaticDir string
	// CORSOrigins are glob patterns of origins allowed to call the API with
	// credentials. Empty disables CORS handling.
	CORSOrigins []string
	// CookieSecure marks the session cookie Secure.
	CookieSecure bool
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Sessions SessionManager
	Login    auth.AuthStrategy
	Signup   auth.AuthStrategy
	Decks    DeckService
	Games    GameService
	// Presence serves the games namespace socket.
	Presence http.Handler
	// Recorder is optional.
	Recorder Recorder
	// Logger is optional; slog.Default is used when nil.
	Logger *slog.Logger
}

func (d Deps) validate() error {
	missing := func(name string) error {
		return oops.Code("WEB_INVALID_DEPS").With("dependency", name).Errorf("%s is required", name)
	}
	switch {
	case d.Sessions == nil:
		return missing("sessions")
	case d.Login == nil:
		return missing("login strategy")
	case d.Signup == nil:
		return missing("signup strategy")
	case d.Decks == nil:
		return missing("deck service")
	case d.Games == nil:
		return missing("game service")
	case d.Presence == nil:
		return missing("presence handler")
	}
	return nil
}

// NewRouter builds the gin engine serving every route.
func NewRouter(cfg Config, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Recorder == nil {
		deps.Recorder = nopRecorder{}
	}

	h := &handlers{
		sessions: deps.Sessions,
		login:    deps.Login,
		signup:   deps.Signup,
		decks:    deps.Decks,
		games:    deps.Games,
		recorder: deps.Recorder,
		logger:   deps.Logger,
		cookie:   cookieSettings{secure: cfg.CookieSecure},
	}
	guard := NewGuard(deps.Sessions, deps.Logger)

	r := gin.New()
	r.Use(
		recovery(deps.Logger),
		accessLog(deps.Logger),
		observe(deps.Recorder),
	)
	if len(cfg.CORSOrigins) > 0 {
		mw, err := corsMiddleware(cfg.CORSOrigins)
		if err != nil {
			return nil, err
		}
		r.Use(mw)
	}

	presence := gin.WrapH(deps.Presence)
	r.GET("/games", presence)
	r.GET("/socket/games", presence)

	api := r.Group("/api", limitBody(MaxBodyBytes))
	api.POST("/signup", h.signupUser)
	api.POST("/login", h.loginUser)
	api.POST("/logout", guard.Optional(), h.logout)

	protected := api.Group("", guard.Require())
	protected.GET("/current-user", h.currentUser)
	protected.GET("/decks", h.listDecks)
	protected.POST("/decks", h.saveDeck)
	protected.DELETE("/decks", h.deleteDeck)
	protected.GET("/games", h.listGames)
	protected.POST("/games", h.openGame)

	r.NoRoute(staticFallback(cfg.StaticDir))
	return r, nil
}
