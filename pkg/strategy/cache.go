package strategy

import (
	"context"
	"time"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
)

// Cache maps normalized game-state fingerprints to previously obtained
// strategies. Lookups try an exact fingerprint match first and fall back to
// the highest-scoring similar state above the similarity threshold. A cache
// may be shared by concurrent game sessions; implementations synchronize
// store/evict against lookups.
type Cache interface {
	// Lookup returns the cached strategy for the state, or a miss. Expired
	// or undecodable entries are treated as misses, never as errors.
	Lookup(ctx context.Context, snap game.Snapshot) (*game.Strategy, bool, error)

	// Store caches a strategy under the state's fingerprint, evicting old
	// entries first when the cache is full.
	Store(ctx context.Context, snap game.Snapshot, strat game.Strategy) error

	// Stats returns cache performance counters.
	Stats() Stats

	// Clear removes all cached strategies.
	Clear(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// Stats contains cache performance counters. The hit rate matters beyond
// observability: the per-decision latency budget assumes most reviews are
// answered from cache.
type Stats struct {
	Hits           int64 `json:"hits"`
	ExactHits      int64 `json:"exact_hits"`
	SimilarityHits int64 `json:"similarity_hits"`
	Misses         int64 `json:"misses"`
	Stores         int64 `json:"stores"`
	Evictions      int64 `json:"evictions"`
	Size           int64 `json:"size"`
	MaxEntries     int64 `json:"max_entries"`
}

// HitRate is hits over total lookups, 0 when no lookups happened yet.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CacheConfig holds cache configuration.
type CacheConfig struct {
	// Type of cache: "memory" or "sqlite"
	Type string `json:"type" yaml:"type"`

	// Maximum number of entries before eviction kicks in
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// TTL is the maximum entry age before expiry
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// SimilarityThreshold is the minimum score for an approximate hit
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`

	// Path to the SQLite database file (sqlite only)
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

const (
	defaultMaxEntries          = 1000
	defaultTTL                 = 30 * time.Minute
	defaultSimilarityThreshold = 0.85

	// evictFraction is the share of entries dropped when the cache is full,
	// oldest and least-reused first.
	evictFraction = 0.2
)

func (c *CacheConfig) applyDefaults() {
	if c.MaxEntries <= 0 {
		c.MaxEntries = defaultMaxEntries
	}
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.SimilarityThreshold <= 0 {
		c.SimilarityThreshold = defaultSimilarityThreshold
	}
}

// NewCache creates a cache instance based on the configuration.
func NewCache(config CacheConfig) (Cache, error) {
	switch config.Type {
	case "sqlite":
		return NewSQLiteCache(config)
	default:
		// Default to memory cache
		return NewMemoryCache(config)
	}
}
