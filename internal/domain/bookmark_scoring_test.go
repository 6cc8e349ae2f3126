package domain

import (
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/linkhealth"
)

func TestScoreBookmark(t *testing.T) {
	tests := []struct {
		name           string
		queryStr       string
		bookmarkName   string
		abbr           string
		expectPositive bool
	}{
		{name: "exact name", queryStr: "grafana", bookmarkName: "Grafana", expectPositive: true},
		{name: "prefix", queryStr: "graf", bookmarkName: "Grafana", expectPositive: true},
		{name: "substring", queryStr: "fana", bookmarkName: "Grafana", expectPositive: true},
		{name: "alias only", queryStr: "gf", bookmarkName: "Grafana", abbr: "GF", expectPositive: true},
		{name: "multi-word any order", queryStr: "hub docker", bookmarkName: "Docker Hub", expectPositive: true},
		{name: "no match", queryStr: "xyz", bookmarkName: "Grafana", expectPositive: false},
		{name: "empty query", queryStr: "  ", bookmarkName: "Grafana", expectPositive: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookmark := &Bookmark{ID: "test-id", Name: tt.bookmarkName, Abbr: tt.abbr, URL: "https://example.com"}

			score := ScoreBookmark(tt.queryStr, bookmark)

			if tt.expectPositive && score <= 0 {
				t.Errorf("Expected positive score, got %f", score)
			}
			if !tt.expectPositive && score > 0 {
				t.Errorf("Expected zero score, got %f", score)
			}
		})
	}
}

func TestScoreBookmark_ExactBeatsPrefix(t *testing.T) {
	exact := ScoreBookmark("git", &Bookmark{Name: "Git"})
	prefix := ScoreBookmark("git", &Bookmark{Name: "GitHub"})
	if exact <= prefix {
		t.Errorf("exact %f should outrank prefix %f", exact, prefix)
	}
}

func TestRankBookmarkCandidates(t *testing.T) {
	bookmarks := []*Bookmark{
		{ID: "1", Name: "GitHub"},
		{ID: "2", Name: "Git"},
		{ID: "3", Name: "GitLab", Disabled: true},
		{ID: "4", Name: "Grafana"},
	}

	candidates := RankBookmarkCandidates("git", bookmarks)

	if len(candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Bookmark.ID != "2" {
		t.Errorf("Expected exact match first, got %s", candidates[0].Bookmark.Name)
	}
	for _, c := range candidates {
		if c.Bookmark.Disabled {
			t.Errorf("Disabled bookmark %s should be filtered", c.Bookmark.ID)
		}
	}
}

func TestSortBookmarks(t *testing.T) {
	bookmarks := []*Bookmark{
		{Name: "b", Category: "Dev"},
		{Name: "a", Category: "Media"},
		{Name: "a", Category: "Dev"},
	}
	SortBookmarks(bookmarks)

	got := []string{bookmarks[0].Category + "/" + bookmarks[0].Name, bookmarks[1].Category + "/" + bookmarks[1].Name, bookmarks[2].Category + "/" + bookmarks[2].Name}
	want := []string{"Dev/a", "Dev/b", "Media/a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBookmarkSetHealth(t *testing.T) {
	b := &Bookmark{}
	at := time.Now()

	if b.SetHealth(linkhealth.StatusUnknown, at) {
		t.Error("unknown must not be recorded")
	}
	if !b.SetHealth(linkhealth.StatusDead, at) || !b.IsDead() {
		t.Error("dead should be recorded")
	}
	if !b.HealthCheckedAt.Equal(at) {
		t.Error("checked-at not recorded")
	}
}

func TestBookmarkCarryOver(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	prev := &Bookmark{URL: "https://a.example/", CreatedAt: created, Health: linkhealth.StatusDead}

	same := &Bookmark{URL: "https://a.example/"}
	same.CarryOver(prev)
	if !same.CreatedAt.Equal(created) || same.Health != linkhealth.StatusDead {
		t.Errorf("expected created-at and health carried over, got %+v", same)
	}

	moved := &Bookmark{URL: "https://b.example/"}
	moved.CarryOver(prev)
	if moved.Health != "" {
		t.Errorf("health must reset when the URL changes, got %q", moved.Health)
	}
}
