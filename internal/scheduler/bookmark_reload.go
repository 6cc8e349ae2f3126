package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/index"
	"github.com/MrSnakeDoc/marks/internal/logger"
	"github.com/MrSnakeDoc/marks/internal/sources/bookmarks"
	redisstore "github.com/MrSnakeDoc/marks/internal/store/redis"
)

// BookmarkReloader periodically reloads bookmarks.yaml into the index.
type BookmarkReloader struct {
	loader        *bookmarks.Loader
	mapper        *bookmarks.Mapper
	store         *redisstore.Store // nil when redis is disabled
	index         *index.MemoryIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
	now           func() time.Time
}

func NewBookmarkReloader(
	bookmarkFile string,
	store *redisstore.Store,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *BookmarkReloader {
	return &BookmarkReloader{
		loader:        bookmarks.NewLoader(bookmarkFile),
		mapper:        bookmarks.NewMapper(),
		store:         store,
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
		now:           time.Now,
	}
}

// Start loads once synchronously, then reloads on every tick or trigger.
func (br *BookmarkReloader) Start(ctx context.Context) error {
	if err := br.Reload(ctx); err != nil {
		return fmt.Errorf("initial bookmark reload failed: %w", err)
	}

	ticker := time.NewTicker(br.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				br.reloadLogged(ctx)
			case <-br.manualTrigger:
				br.logger.Info("manual bookmark reload triggered")
				br.reloadLogged(ctx)
			case <-br.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (br *BookmarkReloader) Stop() {
	close(br.stopCh)
}

func (br *BookmarkReloader) reloadLogged(ctx context.Context) {
	if err := br.Reload(ctx); err != nil {
		br.logger.Error("failed to reload bookmarks", logger.Error(err))
	}
}

// Reload reads the file, keeps health state of unchanged links and
// disables bookmarks that vanished from the file.
func (br *BookmarkReloader) Reload(ctx context.Context) error {
	br.logger.Info("reloading bookmarks", logger.String("file", br.loader.Path()))

	file, err := br.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load bookmarks: %w", err)
	}

	fresh, err := br.mapper.Map(file)
	if err != nil {
		return fmt.Errorf("failed to map bookmarks: %w", err)
	}

	seen := make(map[string]bool, len(fresh))
	for _, bm := range fresh {
		seen[bm.ID] = true
		if prev, ok := br.index.GetBookmark(bm.ID); ok {
			bm.CarryOver(prev)
		}
	}

	now := br.now()
	var disabled []*domain.Bookmark
	for _, existing := range br.fileBookmarks() {
		if seen[existing.ID] {
			continue
		}
		if !existing.Disabled {
			existing.Disabled = true
			existing.UpdatedAt = now
		}
		disabled = append(disabled, existing)
	}

	br.logger.Info("loaded bookmarks",
		logger.Int("count", len(fresh)),
		logger.Int("disabled", len(disabled)))

	all := append(fresh, disabled...)
	br.index.UpdateBookmarks(all)

	if br.store != nil {
		if err := br.store.SaveBookmarksMany(ctx, all); err != nil {
			br.logger.Warn("failed to save bookmarks to redis", logger.Error(err))
		} else {
			br.logger.Debug("bookmarks saved to redis")
		}
	}

	return nil
}

func (br *BookmarkReloader) fileBookmarks() []*domain.Bookmark {
	var out []*domain.Bookmark
	for _, bm := range br.index.GetAllBookmarks() {
		if slices.Contains(bm.Sources, bookmarks.SourceName) {
			out = append(out, bm)
		}
	}
	return out
}
