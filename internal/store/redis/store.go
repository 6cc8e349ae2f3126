package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultBookmarkTTL bounds how long a bookmark survives without being rewritten by a reload.
const DefaultBookmarkTTL = 48 * time.Hour

// Store handles Redis persistence for bookmarks.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client, ttl: DefaultBookmarkTTL}
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
