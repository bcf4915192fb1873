package memory

import (
	"context"
	"sync"
	"time"

	"quizcraze/internal/app"
	"quizcraze/internal/domain"
)

// RankingCache is an in-process app.RankingCache.
type RankingCache struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	version int64
	entries map[string]cachedRanking
}

type cachedRanking struct {
	version   int64
	entries   []domain.RankingEntry
	expiresAt time.Time
}

func NewRankingCache(ttl time.Duration) *RankingCache {
	return &RankingCache{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]cachedRanking),
	}
}

func (c *RankingCache) Version(_ context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version, nil
}

func (c *RankingCache) Bump(_ context.Context) error {
	c.mu.Lock()
	c.version++
	c.mu.Unlock()
	return nil
}

func (c *RankingCache) Get(_ context.Context, key app.RankingKey, version int64) ([]domain.RankingEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key.String()]
	if !ok || entry.version != version {
		return nil, false
	}
	if c.ttl > 0 && !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return cloneEntries(entry.entries), true
}

func (c *RankingCache) Put(_ context.Context, key app.RankingKey, version int64, entries []domain.RankingEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = cachedRanking{
		version:   version,
		entries:   cloneEntries(entries),
		expiresAt: c.clock().Add(c.ttl),
	}
	return nil
}

// Latest ignores version and TTL; it backs stale reads when the stats store is down.
func (c *RankingCache) Latest(_ context.Context, key app.RankingKey) ([]domain.RankingEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key.String()]
	if !ok {
		return nil, false
	}
	return cloneEntries(entry.entries), true
}

func cloneEntries(in []domain.RankingEntry) []domain.RankingEntry {
	out := make([]domain.RankingEntry, len(in))
	copy(out, in)
	return out
}
