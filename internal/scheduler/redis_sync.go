package scheduler

import (
	"context"

	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

// RedisSyncer restores the index from redis on startup, so health verdicts
// survive a restart before the first file reload.
type RedisSyncer struct {
	store  *redisstore.Store
	index  *index.MemoryIndex
	logger logger.Logger
}

func NewRedisSyncer(store *redisstore.Store, idx *index.MemoryIndex, log logger.Logger) *RedisSyncer {
	return &RedisSyncer{
		store:  store,
		index:  idx,
		logger: log,
	}
}

func (rs *RedisSyncer) Sync(ctx context.Context) error {
	rs.logger.Info("syncing bookmarks from redis to memory")

	bookmarks, err := rs.store.GetAllBookmarks(ctx)
	if err != nil {
		return err
	}

	if len(bookmarks) == 0 {
		rs.logger.Info("no bookmarks found in redis")
		return nil
	}

	rs.index.Seed(bookmarks)

	rs.logger.Info("synced bookmarks from redis", logger.Int("count", len(bookmarks)))
	return nil
}
