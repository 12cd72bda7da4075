// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/deckhall/deckhall/internal/auth"
)

const contextKeyUser = "deckhall.user"

// CurrentUser returns the user the guard resolved for this request.
func CurrentUser(c *gin.Context) (*auth.User, bool) {
	v, ok := c.Get(contextKeyUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*auth.User)
	return user, ok && user != nil
}

// Guard gates routes on a live session.
type Guard struct {
	sessions SessionManager
	logger   *slog.Logger
}

// NewGuard creates a Guard resolving cookies through sessions.
func NewGuard(sessions SessionManager, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{sessions: sessions, logger: logger}
}

// Require continues only for requests carrying a live session. Everything
// else is redirected to "/" with no body.
func (g *Guard) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.resolve(c) {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Optional resolves the session when there is one and always continues.
func (g *Guard) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		g.resolve(c)
		c.Next()
	}
}

func (g *Guard) resolve(c *gin.Context) bool {
	token := sessionToken(c)
	if token == "" {
		return false
	}
	user, err := g.sessions.Resolve(c.Request.Context(), token)
	if err != nil {
		g.logger.DebugContext(c.Request.Context(), "session not resolved", "path", c.Request.URL.Path, "error", err)
		return false
	}
	c.Set(contextKeyUser, user)
	return true
}
