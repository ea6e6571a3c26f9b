package strategy

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

// MemoryCache is the in-memory cache implementation. It is safe for use by
// concurrent game sessions sharing one instance.
type MemoryCache struct {
	config  CacheConfig
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	stats   Stats
	now     func() time.Time // injectable for expiry tests
}

type memoryEntry struct {
	strategy    game.Strategy
	snapshot    game.Snapshot
	fingerprint string
	createdAt   time.Time
	hitCount    int64 // atomic
}

// NewMemoryCache creates a new in-memory strategy cache.
func NewMemoryCache(config CacheConfig) (*MemoryCache, error) {
	config.applyDefaults()
	return &MemoryCache{
		config:  config,
		entries: make(map[string]*memoryEntry),
		stats:   Stats{MaxEntries: int64(config.MaxEntries)},
		now:     time.Now,
	}, nil
}

func (c *MemoryCache) expired(e *memoryEntry) bool {
	return c.now().Sub(e.createdAt) >= c.config.TTL
}

func (c *MemoryCache) Lookup(ctx context.Context, snap game.Snapshot) (*game.Strategy, bool, error) {
	fingerprint := Fingerprint(snap)

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Exact match first: O(1) after hashing.
	if entry, ok := c.entries[fingerprint]; ok && !c.expired(entry) {
		atomic.AddInt64(&entry.hitCount, 1)
		atomic.AddInt64(&c.stats.Hits, 1)
		atomic.AddInt64(&c.stats.ExactHits, 1)
		strat := entry.strategy
		return &strat, true, nil
	}

	// Similarity match across every non-expired entry.
	var best *memoryEntry
	bestScore := 0.0
	for _, entry := range c.entries {
		if c.expired(entry) {
			continue
		}
		score := Similarity(snap, entry.snapshot)
		if score >= c.config.SimilarityThreshold && score > bestScore {
			best = entry
			bestScore = score
		}
	}

	if best != nil {
		atomic.AddInt64(&best.hitCount, 1)
		atomic.AddInt64(&c.stats.Hits, 1)
		atomic.AddInt64(&c.stats.SimilarityHits, 1)
		strat := best.strategy
		return &strat, true, nil
	}

	atomic.AddInt64(&c.stats.Misses, 1)
	return nil, false, nil
}

func (c *MemoryCache) Store(ctx context.Context, snap game.Snapshot, strat game.Strategy) error {
	fingerprint := Fingerprint(snap)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replacing an existing fingerprint never needs an eviction.
	if _, exists := c.entries[fingerprint]; !exists && len(c.entries) >= c.config.MaxEntries {
		c.evictOldest()
	}

	c.entries[fingerprint] = &memoryEntry{
		strategy:    strat,
		snapshot:    snap,
		fingerprint: fingerprint,
		createdAt:   c.now(),
	}
	atomic.AddInt64(&c.stats.Stores, 1)
	atomic.StoreInt64(&c.stats.Size, int64(len(c.entries)))

	return nil
}

// evictOldest removes expired entries, then the oldest evictFraction of the
// remainder ordered by (createdAt, hitCount) ascending. Caller holds c.mu.
func (c *MemoryCache) evictOldest() {
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			atomic.AddInt64(&c.stats.Evictions, 1)
		}
	}
	if len(c.entries) < c.config.MaxEntries {
		return
	}

	sorted := make([]*memoryEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		sorted = append(sorted, entry)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].createdAt.Equal(sorted[j].createdAt) {
			return sorted[i].createdAt.Before(sorted[j].createdAt)
		}
		return atomic.LoadInt64(&sorted[i].hitCount) < atomic.LoadInt64(&sorted[j].hitCount)
	})

	toRemove := int(math.Ceil(float64(len(sorted)) * evictFraction))
	if toRemove < 1 {
		toRemove = 1
	}
	for i := 0; i < toRemove; i++ {
		delete(c.entries, sorted[i].fingerprint)
		atomic.AddInt64(&c.stats.Evictions, 1)
	}
}

func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	size := int64(len(c.entries))
	c.mu.RUnlock()

	return Stats{
		Hits:           atomic.LoadInt64(&c.stats.Hits),
		ExactHits:      atomic.LoadInt64(&c.stats.ExactHits),
		SimilarityHits: atomic.LoadInt64(&c.stats.SimilarityHits),
		Misses:         atomic.LoadInt64(&c.stats.Misses),
		Stores:         atomic.LoadInt64(&c.stats.Stores),
		Evictions:      atomic.LoadInt64(&c.stats.Evictions),
		Size:           size,
		MaxEntries:     int64(c.config.MaxEntries),
	}
}

func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*memoryEntry)

	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.ExactHits, 0)
	atomic.StoreInt64(&c.stats.SimilarityHits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Stores, 0)
	atomic.StoreInt64(&c.stats.Evictions, 0)
	atomic.StoreInt64(&c.stats.Size, 0)

	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}
