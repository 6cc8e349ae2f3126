package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/sources/bookmarks"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

const twoBookmarks = `---
- Dev:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Docs:
        - href: https://pkg.go.dev/
`

const oneBookmark = `---
- Dev:
    - Github:
        - abbr: GH
          href: https://github.com/
`

func writeBookmarks(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write bookmarks: %v", err)
	}
}

func TestBookmarkReloader_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeBookmarks(t, path, twoBookmarks)

	idx := index.NewMemoryIndex()
	br := NewBookmarkReloader(path, nil, idx, logger.NewNop(), time.Hour, nil)
	ctx := context.Background()

	if err := br.Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if idx.BookmarkCount() != 2 {
		t.Fatalf("BookmarkCount() = %d, want 2", idx.BookmarkCount())
	}

	github := bookmarks.BookmarkID("https://github.com/")
	docs := bookmarks.BookmarkID("https://pkg.go.dev/")
	checkedAt := time.Now().Add(-time.Hour)
	idx.SetHealth(github, linkhealth.StatusDead, checkedAt)

	writeBookmarks(t, path, oneBookmark)
	if err := br.Reload(ctx); err != nil {
		t.Fatalf("second Reload() error = %v", err)
	}

	gh, ok := idx.GetBookmark(github)
	if !ok || gh.Disabled {
		t.Fatalf("github bookmark missing or disabled: %+v", gh)
	}
	if gh.Health != linkhealth.StatusDead || !gh.HealthCheckedAt.Equal(checkedAt) {
		t.Errorf("health not carried over: %q at %v", gh.Health, gh.HealthCheckedAt)
	}

	removed, ok := idx.GetBookmark(docs)
	if !ok {
		t.Fatal("removed bookmark should be kept as disabled")
	}
	if !removed.Disabled {
		t.Error("removed bookmark should be disabled")
	}
	if len(idx.EnabledBookmarks()) != 1 {
		t.Errorf("EnabledBookmarks() = %d, want 1", len(idx.EnabledBookmarks()))
	}
}

func TestBookmarkReloader_KeepsDisabledTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeBookmarks(t, path, twoBookmarks)

	idx := index.NewMemoryIndex()
	br := NewBookmarkReloader(path, nil, idx, logger.NewNop(), time.Hour, nil)
	ctx := context.Background()
	_ = br.Reload(ctx)

	writeBookmarks(t, path, oneBookmark)
	_ = br.Reload(ctx)
	docs := bookmarks.BookmarkID("https://pkg.go.dev/")
	first, _ := idx.GetBookmark(docs)

	br.now = func() time.Time { return first.UpdatedAt.Add(24 * time.Hour) }
	_ = br.Reload(ctx)
	second, _ := idx.GetBookmark(docs)

	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Errorf("disabled timestamp moved from %v to %v", first.UpdatedAt, second.UpdatedAt)
	}
}

func TestBookmarkReloader_MissingFile(t *testing.T) {
	br := NewBookmarkReloader(filepath.Join(t.TempDir(), "none.yaml"), nil, index.NewMemoryIndex(), logger.NewNop(), time.Hour, nil)
	if err := br.Start(context.Background()); err == nil {
		t.Error("Start() should fail when the initial load fails")
	}
}

func TestBookmarkReloader_ManualTriggerAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redisstore.NewStore(client)

	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeBookmarks(t, path, oneBookmark)

	trigger := make(chan struct{}, 1)
	idx := index.NewMemoryIndex()
	br := NewBookmarkReloader(path, store, idx, logger.NewNop(), time.Hour, trigger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := br.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer br.Stop()

	if !mr.Exists(redisstore.BookmarkKey(bookmarks.BookmarkID("https://github.com/"))) {
		t.Error("initial reload did not write through to redis")
	}

	writeBookmarks(t, path, twoBookmarks)
	trigger <- struct{}{}

	deadline := time.Now().Add(2 * time.Second)
	for idx.BookmarkCount() != 2 {
		if time.Now().After(deadline) {
			t.Fatal("manual trigger did not reload")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRedisSyncer_Sync(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redisstore.NewStore(client)
	ctx := context.Background()

	idx := index.NewMemoryIndex()
	syncer := NewRedisSyncer(store, idx, logger.NewNop())
	if err := syncer.Sync(ctx); err != nil {
		t.Fatalf("Sync() on empty redis error = %v", err)
	}
	if idx.BookmarkCount() != 0 {
		t.Fatal("empty redis should leave the index empty")
	}

	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	writeBookmarks(t, path, twoBookmarks)
	if err := NewBookmarkReloader(path, store, index.NewMemoryIndex(), logger.NewNop(), time.Hour, nil).Reload(ctx); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if err := syncer.Sync(ctx); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if idx.BookmarkCount() != 2 {
		t.Errorf("BookmarkCount() = %d, want 2", idx.BookmarkCount())
	}
	if !idx.GetLastBookmarkReload().IsZero() {
		t.Error("sync must not count as a reload")
	}
}
