package domain

import (
	"sort"
	"strings"
)

const (
	ScoreExactMatch     = 100.0
	ScorePrefixMatch    = 75.0
	ScoreSubstringMatch = 50.0
	ScoreFuzzyMatch     = 25.0

	// Earlier substring hits score higher
	ScorePositionBonus = 10.0

	// Exact alias hit outranks everything else
	ScoreExactAliasBonus = 200.0
)

// BookmarkCandidate is a bookmark with its match score.
type BookmarkCandidate struct {
	Bookmark *Bookmark
	Score    float64
}

// ScoreBookmark scores a bookmark against a query, using the best of its name and alias.
func ScoreBookmark(queryStr string, bookmark *Bookmark) float64 {
	if bookmark == nil {
		return 0.0
	}
	queryStr = strings.ToLower(strings.TrimSpace(queryStr))
	if queryStr == "" {
		return 0.0
	}

	best := scoreLabel(queryStr, strings.ToLower(bookmark.Name))
	if bookmark.Abbr != "" {
		best = max(best, scoreLabel(queryStr, strings.ToLower(bookmark.Abbr)))
	}
	return best
}

func scoreLabel(queryStr, label string) float64 {
	if label == "" {
		return 0.0
	}
	if queryStr == label {
		return ScoreExactMatch + ScoreExactAliasBonus
	}
	if strings.HasPrefix(label, queryStr) {
		return ScorePrefixMatch
	}
	if index := strings.Index(label, queryStr); index >= 0 {
		return ScoreSubstringMatch + ScorePositionBonus*(1.0-float64(index)/float64(len(label)))
	}

	// All words present in any order
	if words := strings.Fields(queryStr); len(words) > 1 {
		allMatch := true
		for _, word := range words {
			if !strings.Contains(label, word) {
				allMatch = false
				break
			}
		}
		if allMatch {
			return ScoreFuzzyMatch
		}
	}

	if similarity := calculateSimilarity(queryStr, label); similarity > 0.5 {
		return ScoreFuzzyMatch * similarity
	}
	return 0.0
}

// calculateSimilarity is the share of s1's characters that occur in s2.
func calculateSimilarity(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0.0
	}
	matches, total := 0, 0
	for _, c := range s1 {
		total++
		if strings.ContainsRune(s2, c) {
			matches++
		}
	}
	return float64(matches) / float64(total)
}

// RankBookmarkCandidates returns enabled, matching bookmarks by descending score.
// Ties keep name order.
func RankBookmarkCandidates(queryStr string, bookmarks []*Bookmark) []*BookmarkCandidate {
	candidates := make([]*BookmarkCandidate, 0, len(bookmarks))
	for _, bookmark := range bookmarks {
		if bookmark.Disabled {
			continue
		}
		score := ScoreBookmark(queryStr, bookmark)
		if score == 0.0 {
			continue
		}
		candidates = append(candidates, &BookmarkCandidate{Bookmark: bookmark, Score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Bookmark.Name < candidates[j].Bookmark.Name
	})
	return candidates
}

// SortBookmarks orders bookmarks by category then name.
func SortBookmarks(bookmarks []*Bookmark) {
	sort.SliceStable(bookmarks, func(i, j int) bool {
		if bookmarks[i].Category != bookmarks[j].Category {
			return bookmarks[i].Category < bookmarks[j].Category
		}
		return bookmarks[i].Name < bookmarks[j].Name
	})
}
