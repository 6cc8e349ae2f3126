package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready     bool `json:"ready"`
	Bookmarks int  `json:"bookmarks"`
}

// Readyz reports ready once the bookmark file has been loaded at least once.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := !d.MemoryIndex.GetLastBookmarkReload().IsZero()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{
			Ready:     ready,
			Bookmarks: d.MemoryIndex.BookmarkCount(),
		})
	}
}
