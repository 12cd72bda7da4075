// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"

	"github.com/deckhall/deckhall/internal/auth"
	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/internal/game"
	"github.com/deckhall/deckhall/pkg/errutil"
)

type handlers struct {
	sessions SessionManager
	login    auth.AuthStrategy
	signup   auth.AuthStrategy
	decks    DeckService
	games    GameService
	recorder Recorder
	logger   *slog.Logger
	cookie   cookieSettings
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{ID: u.ID.String(), Username: u.Username}
}

type saveDeckRequest struct {
	Deck json.RawMessage `json:"deck"`
}

type deleteDeckRequest struct {
	DeckID string `json:"deckId"`
}

type openGameRequest struct {
	Game json.RawMessage `json:"game"`
}

// user is only called behind Guard.Require.
func user(c *gin.Context) *auth.User {
	u, _ := CurrentUser(c)
	return u
}

func (h *handlers) currentUser(c *gin.Context) {
	c.JSON(http.StatusOK, toUserResponse(user(c)))
}

func (h *handlers) signupUser(c *gin.Context) {
	h.authenticate(c, h.signup, http.StatusCreated)
}

func (h *handlers) loginUser(c *gin.Context) {
	h.authenticate(c, h.login, http.StatusOK)
}

// authenticate runs strategy on the posted credentials and, when it
// succeeds, opens a session and sets the cookie.
func (h *handlers) authenticate(c *gin.Context, strategy auth.AuthStrategy, status int) {
	var creds auth.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		h.respondError(c, badRequest(err))
		return
	}

	ctx := c.Request.Context()
	outcome := strategy.Authenticate(ctx, creds)
	h.recorder.AuthAttempt(string(strategy.Kind()), outcome.State.String())
	if outcome.State != auth.StateAuthenticated {
		h.respondError(c, outcome.Err)
		return
	}

	token, _, err := h.sessions.Establish(ctx, outcome.User, auth.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.cookie.set(c, token, h.sessions.TTL())
	c.JSON(status, toUserResponse(outcome.User))
}

func (h *handlers) logout(c *gin.Context) {
	ctx := c.Request.Context()
	if token := sessionToken(c); token != "" {
		if err := h.sessions.Destroy(ctx, token); err != nil {
			errutil.LogErrorContext(ctx, h.logger, "destroy session", err)
		}
	}
	if u, ok := CurrentUser(c); ok {
		h.logger.InfoContext(ctx, "user logged out", "user_id", u.ID.String())
	}
	h.cookie.clear(c)
	c.Status(http.StatusNoContent)
}

func (h *handlers) listDecks(c *gin.Context) {
	decks, err := h.decks.List(c.Request.Context(), user(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decks)
}

func (h *handlers) saveDeck(c *gin.Context) {
	var req saveDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err))
		return
	}
	if len(req.Deck) == 0 || string(req.Deck) == "null" {
		h.respondError(c, badRequest(errors.New("deck is required")))
		return
	}

	d, err := deck.Decode(req.Deck)
	if err != nil {
		h.respondError(c, err)
		return
	}

	saved, err := h.decks.Save(c.Request.Context(), user(c).ID, d)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *handlers) deleteDeck(c *gin.Context) {
	var req deleteDeckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err))
		return
	}
	id, err := ulid.ParseStrict(req.DeckID)
	if err != nil {
		h.respondError(c, badRequest(err))
		return
	}

	if err := h.decks.Delete(c.Request.Context(), user(c).ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) listGames(c *gin.Context) {
	games, err := h.games.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

func (h *handlers) openGame(c *gin.Context) {
	var req openGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badRequest(err))
		return
	}
	if len(req.Game) == 0 || string(req.Game) == "null" {
		h.respondError(c, badRequest(errors.New("game is required")))
		return
	}

	g, err := game.Decode(req.Game)
	if err != nil {
		h.respondError(c, err)
		return
	}

	opened, err := h.games.Open(c.Request.Context(), user(c).ID, g)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, opened)
}
