// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// originMatcher matches request origins against glob patterns such as
// "https://*.example.com" or "http://localhost:*". A "*" never crosses a
// dot, so "https://*.example.com" does not admit "https://a.b.example.com".
type originMatcher struct {
	globs []glob.Glob
}

func newOriginMatcher(patterns []string) (*originMatcher, error) {
	m := &originMatcher{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(strings.TrimSpace(p)), '.')
		if err != nil {
			return nil, oops.Code("WEB_INVALID_CORS_ORIGIN").With("pattern", p).Wrap(err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

func (m *originMatcher) match(origin string) bool {
	origin = strings.ToLower(origin)
	for _, g := range m.globs {
		if g.Match(origin) {
			return true
		}
	}
	return false
}

func corsMiddleware(patterns []string) (gin.HandlerFunc, error) {
	m, err := newOriginMatcher(patterns)
	if err != nil {
		return nil, err
	}
	return cors.New(cors.Config{
		AllowOriginFunc:  m.match,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}), nil
}

// HostPatterns converts origin globs into the host patterns the presence
// socket checks ("https://*.example.com" becomes "*.example.com").
func HostPatterns(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		o = strings.TrimSuffix(o, "/")
		if o != "" {
			hosts = append(hosts, o)
		}
	}
	return hosts
}
