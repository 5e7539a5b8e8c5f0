package events

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dedup suppresses repeat publishes of the same detection within a time
// window. Keys live in an LRU so memory stays bounded regardless of task
// churn.
type Dedup struct {
	cache *lru.Cache[string, time.Time]
	ttl   time.Duration
}

func NewDedup(maxKeys int, ttl time.Duration) *Dedup {
	c, _ := lru.New[string, time.Time](maxKeys)
	return &Dedup{cache: c, ttl: ttl}
}

// IsDuplicate reports whether the key was seen inside the window, and
// refreshes the key's timestamp either way.
func (d *Dedup) IsDuplicate(key string) bool {
	dup := false
	if addedAt, ok := d.cache.Get(key); ok && time.Since(addedAt) < d.ttl {
		dup = true
	}
	d.cache.Add(key, time.Now())
	return dup
}

// DedupKey identifies a detection. Timestamps are unix seconds, so
// identical notes landing within the same second collapse to one key.
func DedupKey(evt DetectionEvent) string {
	return fmt.Sprintf("%s|%s|%s|%d", evt.TaskID, evt.IOID, evt.Note, evt.Timestamp)
}
