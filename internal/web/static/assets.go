// Package static provides the embedded chat UI.
package static

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed index.html css/*.css js/*.js
var assetsFS embed.FS

// Handler returns an http.Handler that serves the embedded UI.
// http.FileServer serves index.html for the root path.
func Handler() http.Handler {
	sub, err := fs.Sub(assetsFS, ".")
	if err != nil {
		// Cannot happen with embed.FS and ".", but fail fast if the
		// embedded filesystem is corrupted.
		panic(fmt.Sprintf("static: failed to create sub-filesystem: %v", err))
	}
	return http.FileServer(http.FS(sub))
}
