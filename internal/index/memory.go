package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
	"github.com/MrSnakeDoc/marks/internal/linkhealth"
)

// MemoryIndex holds the bookmark collection in memory.
// It serves all reads and keeps working when Redis is unavailable.
// Bookmarks handed out are copies, so callers may keep them.
type MemoryIndex struct {
	mu         sync.RWMutex
	bookmarks  map[string]*domain.Bookmark // ID -> Bookmark
	lastReload time.Time
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		bookmarks: make(map[string]*domain.Bookmark),
	}
}

func clone(b *domain.Bookmark) *domain.Bookmark {
	cp := *b
	cp.Sources = append([]string(nil), b.Sources...)
	return &cp
}

// UpdateBookmarks replaces the collection and stamps the reload time.
func (idx *MemoryIndex) UpdateBookmarks(bookmarks []*domain.Bookmark) {
	next := make(map[string]*domain.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		next[b.ID] = clone(b)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.bookmarks = next
	idx.lastReload = time.Now()
}

// Seed replaces the collection without counting as a reload.
// Used when restoring from Redis at startup.
func (idx *MemoryIndex) Seed(bookmarks []*domain.Bookmark) {
	next := make(map[string]*domain.Bookmark, len(bookmarks))
	for _, b := range bookmarks {
		next[b.ID] = clone(b)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.bookmarks = next
}

func (idx *MemoryIndex) GetBookmark(id string) (*domain.Bookmark, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	b, ok := idx.bookmarks[id]
	if !ok {
		return nil, false
	}
	return clone(b), true
}

func (idx *MemoryIndex) GetAllBookmarks() []*domain.Bookmark {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*domain.Bookmark, 0, len(idx.bookmarks))
	for _, b := range idx.bookmarks {
		out = append(out, clone(b))
	}
	return out
}

// EnabledBookmarks returns every bookmark that is not soft-deleted.
func (idx *MemoryIndex) EnabledBookmarks() []*domain.Bookmark {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]*domain.Bookmark, 0, len(idx.bookmarks))
	for _, b := range idx.bookmarks {
		if !b.Disabled {
			out = append(out, clone(b))
		}
	}
	return out
}

func (idx *MemoryIndex) AddBookmark(bookmark *domain.Bookmark) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.bookmarks[bookmark.ID] = clone(bookmark)
}

func (idx *MemoryIndex) DeleteBookmark(id string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.bookmarks, id)
}

// SetHealth records a link-health verdict and returns the updated copy.
// It returns false for unknown ids and non-definite statuses.
func (idx *MemoryIndex) SetHealth(id string, status linkhealth.Status, checkedAt time.Time) (*domain.Bookmark, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	b, ok := idx.bookmarks[id]
	if !ok || !b.SetHealth(status, checkedAt) {
		return nil, false
	}
	return clone(b), true
}

func (idx *MemoryIndex) BookmarkCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.bookmarks)
}

// DeadCount returns how many enabled bookmarks were last seen dead.
func (idx *MemoryIndex) DeadCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, b := range idx.bookmarks {
		if !b.Disabled && b.IsDead() {
			n++
		}
	}
	return n
}

func (idx *MemoryIndex) GetLastBookmarkReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}
