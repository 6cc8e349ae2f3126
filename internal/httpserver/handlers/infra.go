package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
)

type componentStatus struct {
	OK              bool   `json:"ok"`
	BookmarksLoaded *int   `json:"bookmarks_loaded,omitempty"`
	DeadLinks       *int   `json:"dead_links,omitempty"`
	LastReload      string `json:"last_reload,omitempty"`
	Mode            string `json:"mode,omitempty"`
	Impact          string `json:"impact,omitempty"`
	Error           string `json:"error,omitempty"`
}

type infraResponse struct {
	State      string                     `json:"state"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count := d.MemoryIndex.BookmarkCount()
		dead := d.MemoryIndex.DeadCount()
		lastReload := d.MemoryIndex.GetLastBookmarkReload()
		lastReloadStr := "never"
		if !lastReload.IsZero() {
			lastReloadStr = lastReload.Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"bookmarks": {
				OK:              count > 0,
				BookmarksLoaded: &count,
				DeadLinks:       &dead,
				LastReload:      lastReloadStr,
			},
			"redis": checkRedis(r.Context(), d),
			"link_health": {
				OK:   d.Prober != nil,
				Mode: "http+tcp",
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			State:      overallState(components),
			Components: components,
		})
	}
}

func overallState(components map[string]componentStatus) string {
	if !components["bookmarks"].OK {
		return "critical"
	}
	if redis, ok := components["redis"]; ok && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}
	return "ok"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "memory-only, health verdicts lost on restart",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "persistence-disabled",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "persistence-enabled",
	}
}
