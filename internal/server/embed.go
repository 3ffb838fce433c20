package server

// Embedded dashboard UI. Static files come from the root-level webui
// package, which embeds its sibling web/ directory.

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kypin00-web/KAM-Sentinel/webui"
)

// RegisterStaticFiles mounts the embedded dashboard on the Gin engine.
// API routes registered before this take precedence; all unmatched routes
// fall back to index.html.
func RegisterStaticFiles(r *gin.Engine) {
	webRoot, err := fs.Sub(webui.FS, "web")
	if err != nil {
		panic("embed: web sub-fs failed: " + err.Error())
	}
	staticFS := http.FS(webRoot)

	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if path != "/" {
			if f, err := staticFS.Open(path); err == nil {
				defer f.Close()
				c.FileFromFS(path, staticFS)
				return
			}
		}

		f, err := staticFS.Open("index.html")
		if err != nil {
			c.String(http.StatusNotFound, "dashboard not found")
			return
		}
		defer f.Close()
		stat, _ := f.Stat()
		c.DataFromReader(http.StatusOK, stat.Size(), "text/html; charset=utf-8", f, nil)
	})
}
