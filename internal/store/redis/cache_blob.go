package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CacheBlob stores the serialized link-health cache under a single key.
// It has no TTL: entries age out by their own timestamps.
type CacheBlob struct {
	client *redis.Client
	key    string
}

func NewCacheBlob(client *redis.Client, key string) *CacheBlob {
	return &CacheBlob{client: client, key: key}
}

func (b *CacheBlob) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache blob: %w", err)
	}
	return data, nil
}

func (b *CacheBlob) Save(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save cache blob: %w", err)
	}
	return nil
}
