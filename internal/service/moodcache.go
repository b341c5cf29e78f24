package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"mood-insight/internal/logger"

	"golang.org/x/sync/singleflight"
)

// MoodEntry is one cached dictionary row.
type MoodEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Color string `json:"color"`
}

// MoodSource loads the full dictionary for one member identity.
type MoodSource interface {
	Dictionary(ctx context.Context, memberID int) ([]MoodEntry, error)
}

// MoodCache is a TTL read-through cache over the mood dictionary. It is a
// constructed instance owned by the composition root, not a package global.
// Concurrent fetches for the same identity coalesce onto one source call;
// a stale cache still serves reads until the next fetch replaces the map.
// The cache holds exactly one member identity at a time.
type MoodCache struct {
	src MoodSource
	ttl time.Duration
	sf  singleflight.Group

	mu          sync.RWMutex
	entries     map[string]MoodEntry
	lastFetched time.Time
	memberID    int
}

func NewMoodCache(src MoodSource, ttl time.Duration) *MoodCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &MoodCache{src: src, ttl: ttl, entries: make(map[string]MoodEntry)}
}

// FetchAll loads the dictionary for memberID, coalescing concurrent callers
// onto a single in-flight source call. On success the entry map is replaced
// atomically, never partially merged, and the staleness clock restarts.
// On failure the previous entries keep serving.
func (c *MoodCache) FetchAll(ctx context.Context, memberID int) error {
	_, err, _ := c.sf.Do(strconv.Itoa(memberID), func() (interface{}, error) {
		entries, err := c.src.Dictionary(ctx, memberID)
		if err != nil {
			logger.Warn("mood cache fetch failed, serving previous entries", "member_id", memberID, "err", err)
			return nil, err
		}
		m := make(map[string]MoodEntry, len(entries))
		for _, e := range entries {
			m[e.ID] = e
		}
		c.mu.Lock()
		c.entries = m
		c.lastFetched = time.Now()
		c.memberID = memberID
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// GetByID is a non-blocking lookup against the current map snapshot. It never
// triggers a fetch.
func (c *MoodCache) GetByID(id string) (MoodEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return e, ok
}

// Entries returns a copy of the current dictionary.
func (c *MoodCache) Entries() []MoodEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]MoodEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	return out
}

// MemberID reports which identity the cache currently holds.
func (c *MoodCache) MemberID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.memberID
}

// IsStale reports whether the TTL has elapsed (or nothing was ever fetched).
// Stale does not block reads; it only signals refetch-on-next-opportunity.
func (c *MoodCache) IsStale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastFetched.IsZero() || time.Since(c.lastFetched) > c.ttl
}

// Invalidate forces the next IsStale to report true without clearing entries,
// so reads keep serving stale data while a refetch is pending.
func (c *MoodCache) Invalidate() {
	c.mu.Lock()
	c.lastFetched = time.Time{}
	c.mu.Unlock()
}

// Refresh fetches when the cache is stale or holds a different identity.
func (c *MoodCache) Refresh(ctx context.Context, memberID int) error {
	if !c.IsStale() && c.MemberID() == memberID {
		return nil
	}
	return c.FetchAll(ctx, memberID)
}
