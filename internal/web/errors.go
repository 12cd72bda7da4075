// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/deckhall/deckhall/internal/auth"
	"github.com/deckhall/deckhall/internal/deck"
	"github.com/deckhall/deckhall/internal/game"
	"github.com/deckhall/deckhall/internal/store"
	"github.com/deckhall/deckhall/pkg/errutil"
)

// errRequestInvalid marks a body that could not be read as the route
// expects.
var errRequestInvalid = errors.New("invalid request")

var errRequestTooLarge = errors.New("request body too large")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// problem is how one error class is reported to clients.
type problem struct {
	status int
	code   string
	// message replaces the error text when set.
	message string
}

// problems is checked in order; the first sentinel in the chain wins.
var problems = []struct {
	sentinel error
	problem  problem
}{
	{auth.ErrInvalidCredentials, problem{http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "invalid username or password"}},
	{auth.ErrInvalidInput, problem{status: http.StatusBadRequest, code: "AUTH_INVALID_INPUT"}},
	{auth.ErrUserExists, problem{http.StatusConflict, "USER_ALREADY_EXISTS", "username is already taken"}},
	{deck.ErrInvalid, problem{status: http.StatusBadRequest, code: "DECK_INVALID"}},
	{game.ErrInvalid, problem{status: http.StatusBadRequest, code: "GAME_INVALID"}},
	{errRequestTooLarge, problem{http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request body too large"}},
	{errRequestInvalid, problem{status: http.StatusBadRequest, code: "REQUEST_INVALID"}},
	{deck.ErrNotFound, problem{http.StatusNotFound, "DECK_NOT_FOUND", "deck not found"}},
	{store.ErrUnavailable, problem{http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "service temporarily unavailable"}},
}

var internalProblem = problem{http.StatusInternalServerError, "INTERNAL", "internal error"}

func classify(err error) problem {
	for _, p := range problems {
		if errors.Is(err, p.sentinel) {
			return p.problem
		}
	}
	return internalProblem
}

func badRequest(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return oops.Code("REQUEST_TOO_LARGE").
			With("limit", tooLarge.Limit).
			Wrap(fmt.Errorf("%w: %w", errRequestTooLarge, err))
	}
	return oops.Code("REQUEST_INVALID").Wrap(fmt.Errorf("%w: %w", errRequestInvalid, err))
}

// respondError writes the JSON error for err and aborts the chain.
func (h *handlers) respondError(c *gin.Context, err error) {
	p := classify(err)
	msg := p.message
	if msg == "" {
		msg = err.Error()
	}

	ctx := c.Request.Context()
	switch {
	case p.status >= http.StatusInternalServerError:
		errutil.LogErrorContext(ctx, h.logger, "request failed", err)
	default:
		h.logger.DebugContext(ctx, "request rejected", errutil.Attrs(err)...)
	}

	if p.status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(p.status, errorBody{Error: msg, Code: p.code})
}
