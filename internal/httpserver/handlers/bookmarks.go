package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

const maxHealthReportBytes = 1 << 20

type bookmarkView struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	URL             string            `json:"url"`
	Category        string            `json:"category,omitempty"`
	Health          linkhealth.Status `json:"health,omitempty"`
	HealthCheckedAt time.Time         `json:"healthCheckedAt,omitzero"`
}

type bookmarksResponse struct {
	Count     int            `json:"count"`
	Bookmarks []bookmarkView `json:"bookmarks"`
}

func viewOf(b *domain.Bookmark) bookmarkView {
	return bookmarkView{
		ID:              b.ID,
		Name:            b.Name,
		URL:             b.URL,
		Category:        b.Category,
		Health:          b.Health,
		HealthCheckedAt: b.HealthCheckedAt,
	}
}

// Bookmarks lists enabled bookmarks. With ?q= they are ranked by match score and non-matches are dropped.
func Bookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := d.MemoryIndex.EnabledBookmarks()

		var views []bookmarkView
		if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
			for _, c := range domain.RankBookmarkCandidates(q, all) {
				views = append(views, viewOf(c.Bookmark))
			}
		} else {
			domain.SortBookmarks(all)
			for _, b := range all {
				views = append(views, viewOf(b))
			}
		}
		if views == nil {
			views = []bookmarkView{}
		}

		writeJSON(w, http.StatusOK, bookmarksResponse{Count: len(views), Bookmarks: views})
	}
}

// HealthReport is the body of POST /api/bookmarks/health.
type HealthReport struct {
	Results []HealthReportItem `json:"results"`
}

type HealthReportItem struct {
	ID        string            `json:"id"`
	Status    linkhealth.Status `json:"status"`
	CheckedAt time.Time         `json:"checkedAt,omitzero"`
}

type healthReportResponse struct {
	Updated int `json:"updated"`
	Ignored int `json:"ignored"`
}

// BookmarksHealth records verdicts reported by a link checker.
// Unknown ids and statuses other than ok/dead are counted as ignored.
func BookmarksHealth(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var report HealthReport
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxHealthReportBytes))
		if err := dec.Decode(&report); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid body")
			return
		}

		var resp healthReportResponse
		for _, item := range report.Results {
			at := item.CheckedAt
			if at.IsZero() {
				at = d.Now()
			}
			updated, ok := d.MemoryIndex.SetHealth(item.ID, item.Status, at)
			if !ok {
				resp.Ignored++
				continue
			}
			resp.Updated++

			if d.Store != nil {
				persistHealth(r.Context(), d, updated)
			}
		}

		d.Logger.Info("bookmark health reported",
			logger.Int("updated", resp.Updated),
			logger.Int("ignored", resp.Ignored))
		writeJSON(w, http.StatusOK, resp)
	}
}

// persistHealth writes the verdict through to redis, storing the whole
// bookmark when redis does not have it yet.
func persistHealth(ctx context.Context, d deps.Deps, b *domain.Bookmark) {
	err := d.Store.UpdateBookmarkHealth(ctx, b.ID, b.Health, b.HealthCheckedAt)
	if errors.Is(err, redisstore.ErrBookmarkNotFound) {
		err = d.Store.SaveBookmark(ctx, b)
	}
	if err != nil {
		d.Logger.Warn("failed to persist bookmark health",
			logger.String("bookmark_id", b.ID),
			logger.Error(err))
	}
}
