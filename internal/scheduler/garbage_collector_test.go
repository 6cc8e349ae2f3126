package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

func TestGarbageCollector_Collect(t *testing.T) {
	memIndex := index.NewMemoryIndex()

	now := time.Now()
	memIndex.UpdateBookmarks([]*domain.Bookmark{
		{ID: "active", Name: "active", Sources: []string{"file"}, UpdatedAt: now},
		{ID: "recently-disabled", Name: "recent", Sources: []string{"file"}, Disabled: true, UpdatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "old-disabled", Name: "old", Sources: []string{"file"}, Disabled: true, UpdatedAt: now.Add(-35 * 24 * time.Hour)},
		{ID: "no-timestamp", Name: "zero", Disabled: true},
	})

	gc := NewGarbageCollector(nil, memIndex, logger.NewNop(), 24*time.Hour, 0)

	if n := gc.Collect(context.Background()); n != 1 {
		t.Errorf("Collect() deleted %d bookmarks, want 1", n)
	}
	if memIndex.BookmarkCount() != 3 {
		t.Errorf("Expected 3 bookmarks after GC, got %d", memIndex.BookmarkCount())
	}
	if _, ok := memIndex.GetBookmark("old-disabled"); ok {
		t.Error("Old disabled bookmark was not removed")
	}
	for _, id := range []string{"active", "recently-disabled", "no-timestamp"} {
		if _, ok := memIndex.GetBookmark(id); !ok {
			t.Errorf("bookmark %s was incorrectly removed", id)
		}
	}
}

func TestGarbageCollector_DeletesFromRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := redisstore.NewStore(client)

	old := &domain.Bookmark{ID: "old", Disabled: true, UpdatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	if err := store.SaveBookmark(context.Background(), old); err != nil {
		t.Fatalf("SaveBookmark() error = %v", err)
	}

	memIndex := index.NewMemoryIndex()
	memIndex.AddBookmark(old)

	gc := NewGarbageCollector(store, memIndex, logger.NewNop(), time.Hour, DefaultGCThreshold)
	gc.Collect(context.Background())

	if mr.Exists(redisstore.BookmarkKey("old")) {
		t.Error("bookmark still present in redis")
	}
}
