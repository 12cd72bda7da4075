// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// unmatchedRoute labels requests no route claimed, keeping metric
// cardinality bounded.
const unmatchedRoute = "unmatched"

func route(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return unmatchedRoute
}

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		logger.ErrorContext(c.Request.Context(), "handler panicked",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", fmt.Sprint(rec),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"})
	})
}

// limitBody caps request bodies at n bytes. Reading past the cap fails with
// *http.MaxBytesError.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", route(c),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func observe(recorder Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		recorder.ObserveRequest(c.Request.Method, route(c), c.Writer.Status(), time.Since(start))
	}
}
