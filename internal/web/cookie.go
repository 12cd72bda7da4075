// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "deckhall_session"

type cookieSettings struct {
	secure bool
}

func (s cookieSettings) set(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(ttl.Seconds()), "/", "", s.secure, true)
}

func (s cookieSettings) clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", s.secure, true)
}

func sessionToken(c *gin.Context) string {
	token, err := c.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return token
}
