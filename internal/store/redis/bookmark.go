package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
)

// ErrBookmarkNotFound is returned when no bookmark is stored under an id.
var ErrBookmarkNotFound = errors.New("bookmark not found")

// SaveBookmark stores a bookmark and indexes its id.
func (s *Store) SaveBookmark(ctx context.Context, bookmark *domain.Bookmark) error {
	data, err := json.Marshal(bookmark)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, BookmarkKey(bookmark.ID), data, s.ttl)
	pipe.SAdd(ctx, AllBookmarksKey(), bookmark.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save bookmark: %w", err)
	}
	return nil
}

func (s *Store) GetBookmark(ctx context.Context, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, BookmarkKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrBookmarkNotFound, id)
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var bookmark domain.Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}
	return &bookmark, nil
}

// GetAllBookmarks returns every stored bookmark. Ids whose value expired
// are pruned from the set.
func (s *Store) GetAllBookmarks(ctx context.Context) ([]*domain.Bookmark, error) {
	ids, err := s.client.SMembers(ctx, AllBookmarksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Bookmark{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = BookmarkKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmarks: %w", err)
	}

	bookmarks := make([]*domain.Bookmark, 0, len(ids))
	var stale []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var b domain.Bookmark
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			continue
		}
		bookmarks = append(bookmarks, &b)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, AllBookmarksKey(), stale...).Err(); err != nil {
			return bookmarks, fmt.Errorf("failed to prune expired bookmark ids: %w", err)
		}
	}
	return bookmarks, nil
}

func (s *Store) DeleteBookmark(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, BookmarkKey(id))
	pipe.SRem(ctx, AllBookmarksKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}

// SaveBookmarksMany stores multiple bookmarks in one pipeline.
func (s *Store) SaveBookmarksMany(ctx context.Context, bookmarks []*domain.Bookmark) error {
	if len(bookmarks) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, bookmark := range bookmarks {
		data, err := json.Marshal(bookmark)
		if err != nil {
			return fmt.Errorf("failed to marshal bookmark %s: %w", bookmark.ID, err)
		}
		pipe.Set(ctx, BookmarkKey(bookmark.ID), data, s.ttl)
		pipe.SAdd(ctx, AllBookmarksKey(), bookmark.ID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save bookmarks: %w", err)
	}
	return nil
}

// UpdateBookmarkHealth records a link-health verdict on a stored bookmark.
func (s *Store) UpdateBookmarkHealth(ctx context.Context, id string, status linkhealth.Status, checkedAt time.Time) error {
	bookmark, err := s.GetBookmark(ctx, id)
	if err != nil {
		return err
	}
	if !bookmark.SetHealth(status, checkedAt) {
		return fmt.Errorf("refusing to store non-final status %q", status)
	}
	return s.SaveBookmark(ctx, bookmark)
}
