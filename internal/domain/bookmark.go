package domain

import (
	"time"

	"github.com/MrSnakeDoc/marks/internal/linkhealth"
)

// Bookmark is one saved link.
type Bookmark struct {
	// ID is stable across reloads: derived from the href.
	ID string `json:"id"`

	// Name is the display label, Abbr an optional short alias used for search.
	Name string `json:"name"`
	Abbr string `json:"abbr,omitempty"`

	URL      string `json:"url"`
	Category string `json:"category,omitempty"`

	// Sources lists where the bookmark was discovered (e.g. "file").
	Sources []string `json:"sources,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Disabled marks a bookmark as soft-deleted. The garbage collector removes it later.
	Disabled bool `json:"disabled,omitempty"`

	// Health is the last reported link-health verdict, empty until a check ran.
	Health          linkhealth.Status `json:"health,omitempty"`
	HealthCheckedAt time.Time         `json:"healthCheckedAt,omitzero"`
}

// IsDead reports whether the last known check found the link dead.
func (b *Bookmark) IsDead() bool {
	return b.Health == linkhealth.StatusDead
}

// SetHealth records a verdict. Unknown never sticks.
func (b *Bookmark) SetHealth(status linkhealth.Status, checkedAt time.Time) bool {
	if !status.Definite() {
		return false
	}
	b.Health = status
	b.HealthCheckedAt = checkedAt
	return true
}

// CarryOver copies identity and health state from a previous version of the same bookmark.
func (b *Bookmark) CarryOver(prev *Bookmark) {
	if prev == nil {
		return
	}
	if !prev.CreatedAt.IsZero() {
		b.CreatedAt = prev.CreatedAt
	}
	if prev.URL == b.URL {
		b.Health = prev.Health
		b.HealthCheckedAt = prev.HealthCheckedAt
	}
}
