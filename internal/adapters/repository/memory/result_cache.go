package memory

import (
	"sync"
	"time"

	"fleetuptime/internal/core/domain"
	coreerrors "fleetuptime/internal/core/errors"
)

type cachedResult struct {
	result    *domain.UptimeResult
	expiresAt time.Time
}

// ResultCache keeps the last uptime result of each session in memory.
// A Save replaces the whole entry.
type ResultCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedResult
}

// NewResultCache creates a cache whose entries live for ttl after their last
// save. A non-positive ttl keeps entries until the process exits.
func NewResultCache(ttl time.Duration) *ResultCache {
	return &ResultCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cachedResult),
	}
}

func (c *ResultCache) Save(sessionID string, res *domain.UptimeResult) error {
	entry := cachedResult{result: res.Clone()}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = entry
	return nil
}

// Get returns a copy of the session's result or ErrNoCachedResult.
func (c *ResultCache) Get(sessionID string) (*domain.UptimeResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[sessionID]
	if !ok || entry.expired(c.now()) {
		return nil, coreerrors.ErrNoCachedResult
	}
	return entry.result.Clone(), nil
}

// PurgeExpired drops expired entries and reports how many were removed.
func (c *ResultCache) PurgeExpired(now time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for id, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed, nil
}

func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (e cachedResult) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
