package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
	"github.com/MrSnakeDoc/marks/internal/logger"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr, client
}

func TestSaveAndGetBookmark(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	in := &domain.Bookmark{ID: "abc", Name: "Example", URL: "https://example.com/", Category: "Dev"}
	require.NoError(t, store.SaveBookmark(ctx, in))

	got, err := store.GetBookmark(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.URL, got.URL)

	assert.True(t, mr.Exists(BookmarkKey("abc")))
	assert.Equal(t, DefaultBookmarkTTL, mr.TTL(BookmarkKey("abc")))
	members, err := mr.SMembers(AllBookmarksKey())
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, members)
}

func TestGetBookmarkNotFound(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.GetBookmark(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrBookmarkNotFound)
}

func TestGetAllBookmarksPrunesExpired(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBookmarksMany(ctx, []*domain.Bookmark{
		{ID: "a", URL: "https://a.example/"},
		{ID: "b", URL: "https://b.example/"},
	}))
	mr.Del(BookmarkKey("b"))

	all, err := store.GetAllBookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)

	members, _ := mr.SMembers(AllBookmarksKey())
	assert.Equal(t, []string{"a"}, members)
}

func TestDeleteBookmark(t *testing.T) {
	store, mr, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBookmark(ctx, &domain.Bookmark{ID: "a"}))
	require.NoError(t, store.DeleteBookmark(ctx, "a"))

	assert.False(t, mr.Exists(BookmarkKey("a")))
	members, _ := mr.SMembers(AllBookmarksKey())
	assert.Empty(t, members)
}

func TestUpdateBookmarkHealth(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()
	at := time.UnixMilli(1700000000000).UTC()

	require.NoError(t, store.SaveBookmark(ctx, &domain.Bookmark{ID: "a", URL: "https://a.example/"}))
	require.NoError(t, store.UpdateBookmarkHealth(ctx, "a", linkhealth.StatusDead, at))

	got, err := store.GetBookmark(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, linkhealth.StatusDead, got.Health)
	assert.True(t, at.Equal(got.HealthCheckedAt))

	assert.Error(t, store.UpdateBookmarkHealth(ctx, "a", linkhealth.StatusUnknown, at))
	assert.ErrorIs(t, store.UpdateBookmarkHealth(ctx, "missing", linkhealth.StatusOK, at), ErrBookmarkNotFound)
}

func TestCacheBlobBacksPersistentCache(t *testing.T) {
	_, mr, client := newTestStore(t)
	ctx := context.Background()
	blob := NewCacheBlob(client, linkhealth.CacheKey)

	data, err := blob.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	cache := linkhealth.LoadCache(ctx, blob, logger.NewNop())
	cache.Set("https://a.example/", linkhealth.CacheEntry{Status: linkhealth.StatusOK, CheckedAt: time.Now()})
	require.NoError(t, cache.Flush(ctx))
	assert.True(t, mr.Exists(linkhealth.CacheKey))
	assert.Equal(t, time.Duration(0), mr.TTL(linkhealth.CacheKey))

	reloaded := linkhealth.LoadCache(ctx, blob, logger.NewNop())
	e, ok := reloaded.Get("https://a.example/")
	require.True(t, ok)
	assert.Equal(t, linkhealth.StatusOK, e.Status)
}

func TestCacheBlobMalformed(t *testing.T) {
	_, mr, client := newTestStore(t)
	require.NoError(t, mr.Set(linkhealth.CacheKey, "not json"))

	cache := linkhealth.LoadCache(context.Background(), NewCacheBlob(client, linkhealth.CacheKey), logger.NewNop())
	assert.Equal(t, 0, cache.Len())
}
