package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/logger"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

const (
	// DefaultGCThreshold is how long a bookmark stays disabled before it is deleted.
	DefaultGCThreshold = 30 * 24 * time.Hour
)

// GarbageCollector deletes bookmarks that have been disabled for too long.
type GarbageCollector struct {
	store     *redisstore.Store
	index     *index.MemoryIndex
	logger    logger.Logger
	interval  time.Duration
	threshold time.Duration
	stopCh    chan struct{}
	now       func() time.Time
}

func NewGarbageCollector(
	store *redisstore.Store,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	threshold time.Duration,
) *GarbageCollector {
	if threshold == 0 {
		threshold = DefaultGCThreshold
	}

	return &GarbageCollector{
		store:     store,
		index:     idx,
		logger:    log,
		interval:  interval,
		threshold: threshold,
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

func (gc *GarbageCollector) Start(ctx context.Context) error {
	gc.Collect(ctx)

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Collect(ctx)
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect deletes eligible bookmarks and returns how many went.
// Redis deletions are best effort.
func (gc *GarbageCollector) Collect(ctx context.Context) int {
	now := gc.now()
	deleted := 0

	for _, bm := range gc.index.GetAllBookmarks() {
		if !bm.Disabled || bm.UpdatedAt.IsZero() {
			continue
		}
		disabledFor := now.Sub(bm.UpdatedAt)
		if disabledFor < gc.threshold {
			continue
		}

		gc.index.DeleteBookmark(bm.ID)
		if gc.store != nil {
			if err := gc.store.DeleteBookmark(ctx, bm.ID); err != nil {
				gc.logger.Warn("failed to delete bookmark from redis",
					logger.String("bookmark_id", bm.ID),
					logger.Error(err))
			}
		}

		gc.logger.Info("garbage collected disabled bookmark",
			logger.String("bookmark_id", bm.ID),
			logger.String("name", bm.Name),
			logger.Duration("disabled_for", disabledFor))
		deleted++
	}

	if deleted > 0 {
		gc.logger.Info("garbage collection completed", logger.Int("deleted", deleted))
	} else {
		gc.logger.Debug("no bookmarks to garbage collect")
	}
	return deleted
}
