package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
)

// LinkHealth serves GET /api/link-health?url=&mode=&timeoutMs=.
func LinkHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		mode := linkhealth.ParseMode(q.Get("mode"))

		res, err := d.Prober.Probe(r.Context(), q.Get("url"), mode, parseTimeoutMs(q.Get("timeoutMs")))
		if errors.Is(err, linkhealth.ErrInvalidURL) {
			writeError(w, http.StatusBadRequest, "Invalid url")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, res)
	}
}

// parseTimeoutMs returns 0 (use the default) for missing, malformed or non-positive values.
func parseTimeoutMs(s string) time.Duration {
	ms, err := strconv.Atoi(s)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
