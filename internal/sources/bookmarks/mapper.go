package bookmarks

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// SourceName tags bookmarks that came from the YAML file.
const SourceName = "file"

// Mapper converts a parsed File into domain bookmarks.
type Mapper struct {
	now func() time.Time
}

func NewMapper() *Mapper {
	return &Mapper{now: time.Now}
}

// Map flattens categories in file order. Entries without href are skipped
// and a repeated href keeps its first occurrence.
func (m *Mapper) Map(file File) ([]*domain.Bookmark, error) {
	now := m.now()
	seen := make(map[string]struct{})
	bookmarks := make([]*domain.Bookmark, 0)

	for _, category := range file {
		for _, categoryName := range sortedKeys(category) {
			for _, group := range category[categoryName] {
				for _, name := range sortedKeys(group) {
					entries := group[name]
					if len(entries) == 0 {
						continue
					}
					entry := entries[0]
					href := strings.TrimSpace(entry.Href)
					if href == "" {
						continue
					}

					id := BookmarkID(href)
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}

					bookmarks = append(bookmarks, &domain.Bookmark{
						ID:        id,
						Name:      name,
						Abbr:      entry.Abbr,
						URL:       href,
						Category:  categoryName,
						Sources:   []string{SourceName},
						CreatedAt: now,
						UpdatedAt: now,
					})
				}
			}
		}
	}

	if len(bookmarks) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found in config")
	}
	return bookmarks, nil
}

// BookmarkID derives a stable id from the href: the first 16 hex chars of its SHA-256.
func BookmarkID(href string) string {
	hash := sha256.Sum256([]byte(href))
	return hex.EncodeToString(hash[:])[:16]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
