package linkhealth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

const (
	DefaultCacheTTL = 12 * time.Hour
	// CacheKey is the single namespaced key the whole cache is stored under.
	CacheKey = "marks:linkhealth:cache"
)

// CacheEntry is one cached verdict. checkedAt is stored as epoch milliseconds.
type CacheEntry struct {
	Status    Status
	CheckedAt time.Time
}

type wireEntry struct {
	Status    Status `json:"status"`
	CheckedAt int64  `json:"checkedAt"`
}

func (e CacheEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{Status: e.Status, CheckedAt: e.CheckedAt.UnixMilli()})
}

func (e *CacheEntry) UnmarshalJSON(b []byte) error {
	var w wireEntry
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	e.Status = w.Status
	e.CheckedAt = time.UnixMilli(w.CheckedAt)
	return nil
}

// Fresh reports whether the entry is younger than ttl at now.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CheckedAt) < ttl
}

// Cache maps normalized URLs to verdicts. Implementations are safe for concurrent use.
type Cache interface {
	Get(key string) (CacheEntry, bool)
	Set(key string, entry CacheEntry)
	Flush(ctx context.Context) error
}

// BlobStore persists the serialized cache. Load returns nil, nil when nothing is stored yet.
type BlobStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// MemoryCache is a Cache without persistence. Flush only counts calls.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]CacheEntry
	flushes int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]CacheEntry)}
}

func (c *MemoryCache) Get(key string) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *MemoryCache) Set(key string, entry CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
}

func (c *MemoryCache) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	return nil
}

// Flushes returns how many times Flush was called.
func (c *MemoryCache) Flushes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flushes
}

// Len returns the number of entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *MemoryCache) snapshot() map[string]CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]CacheEntry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}

// PersistentCache is a MemoryCache backed by a BlobStore.
type PersistentCache struct {
	*MemoryCache
	store BlobStore
}

// LoadCache reads the stored blob into memory. A missing, unreadable or
// malformed blob yields an empty cache.
func LoadCache(ctx context.Context, store BlobStore, log logger.Logger) *PersistentCache {
	c := &PersistentCache{MemoryCache: NewMemoryCache(), store: store}

	data, err := store.Load(ctx)
	if err != nil {
		log.Warn("link-health cache unreadable, starting empty", logger.Error(err))
		return c
	}
	if len(data) == 0 {
		return c
	}

	var entries map[string]CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn("link-health cache malformed, starting empty", logger.Error(err))
		return c
	}
	for k, e := range entries {
		if e.Status.Definite() {
			c.entries[k] = e
		}
	}
	log.Debug("link-health cache loaded", logger.Int("entries", len(c.entries)))
	return c
}

// Flush writes every entry to the blob store.
func (c *PersistentCache) Flush(ctx context.Context) error {
	data, err := json.Marshal(c.snapshot())
	if err != nil {
		return fmt.Errorf("encode link-health cache: %w", err)
	}
	if err := c.store.Save(ctx, data); err != nil {
		return fmt.Errorf("save link-health cache: %w", err)
	}
	c.mu.Lock()
	c.flushes++
	c.mu.Unlock()
	return nil
}
