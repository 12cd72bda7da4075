// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// staticFallback serves files from dir for GET and HEAD requests and answers
// every other unknown path with the client's index.html, so client-side
// routes survive a reload. Unknown API paths get a JSON 404.
func staticFallback(dir string) gin.HandlerFunc {
	index := filepath.Join(dir, "index.html")
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if strings.HasPrefix(p, "/api/") || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			c.AbortWithStatusJSON(http.StatusNotFound, errorBody{Error: "not found", Code: "NOT_FOUND"})
			return
		}

		// Clean against "/" so ".." cannot climb out of dir.
		name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+p)))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			c.File(name)
			return
		}
		c.File(index)
	}
}
