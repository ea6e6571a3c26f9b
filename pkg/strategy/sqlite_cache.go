package strategy

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/bouncer-go/pkg/game"
	"github.com/XiaoConstantine/bouncer-go/pkg/logging"
)

// SQLiteCache implements Cache on SQLite, so cached strategies survive
// process restarts and can be shared between runs against the same scenarios.
type SQLiteCache struct {
	db     *sql.DB
	config CacheConfig
	mu     sync.Mutex // serializes store-with-eviction sections
	stats  Stats
	now    func() time.Time
}

// NewSQLiteCache creates a new SQLite-backed strategy cache.
func NewSQLiteCache(config CacheConfig) (*SQLiteCache, error) {
	config.applyDefaults()
	if config.Path == "" {
		config.Path = "bouncer_strategies.db"
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	cache := &SQLiteCache{
		db:     db,
		config: config,
		stats:  Stats{MaxEntries: int64(config.MaxEntries)},
		now:    time.Now,
	}

	if err := cache.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return cache, nil
}

func (c *SQLiteCache) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS strategies (
		fingerprint TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		snapshot TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		hit_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_strategies_created_at ON strategies(created_at);
	`

	_, err := c.db.Exec(query)
	return err
}

func (c *SQLiteCache) cutoff() int64 {
	return c.now().Add(-c.config.TTL).UnixNano()
}

func (c *SQLiteCache) Lookup(ctx context.Context, snap game.Snapshot) (*game.Strategy, bool, error) {
	logger := logging.GetLogger()
	fingerprint := Fingerprint(snap)

	// Exact match first.
	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT strategy FROM strategies WHERE fingerprint = ? AND created_at >= ?`,
		fingerprint, c.cutoff()).Scan(&raw)
	switch {
	case err == nil:
		var strat game.Strategy
		if jsonErr := json.Unmarshal([]byte(raw), &strat); jsonErr == nil {
			c.recordHit(ctx, fingerprint, true)
			return &strat, true, nil
		}
		// Undecodable entry: degrade to a miss.
		logger.Warn(ctx, "dropping undecodable cached strategy %s", fingerprint)
		_, _ = c.db.ExecContext(ctx, `DELETE FROM strategies WHERE fingerprint = ?`, fingerprint)
	case err != sql.ErrNoRows:
		return nil, false, fmt.Errorf("failed to look up strategy: %w", err)
	}

	// Similarity scan over non-expired entries.
	rows, err := c.db.QueryContext(ctx,
		`SELECT fingerprint, strategy, snapshot FROM strategies WHERE created_at >= ?`, c.cutoff())
	if err != nil {
		return nil, false, fmt.Errorf("failed to scan strategies: %w", err)
	}
	defer rows.Close()

	var bestFingerprint, bestRaw string
	bestScore := 0.0
	for rows.Next() {
		var fp, stratRaw, snapRaw string
		if err := rows.Scan(&fp, &stratRaw, &snapRaw); err != nil {
			return nil, false, fmt.Errorf("failed to scan row: %w", err)
		}
		var cached game.Snapshot
		if err := json.Unmarshal([]byte(snapRaw), &cached); err != nil {
			// Degrade: skip entries whose snapshot no longer parses.
			continue
		}
		score := Similarity(snap, cached)
		if score >= c.config.SimilarityThreshold && score > bestScore {
			bestFingerprint = fp
			bestRaw = stratRaw
			bestScore = score
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if bestFingerprint != "" {
		var strat game.Strategy
		if err := json.Unmarshal([]byte(bestRaw), &strat); err == nil {
			c.recordHit(ctx, bestFingerprint, false)
			return &strat, true, nil
		}
	}

	atomic.AddInt64(&c.stats.Misses, 1)
	return nil, false, nil
}

func (c *SQLiteCache) recordHit(ctx context.Context, fingerprint string, exact bool) {
	atomic.AddInt64(&c.stats.Hits, 1)
	if exact {
		atomic.AddInt64(&c.stats.ExactHits, 1)
	} else {
		atomic.AddInt64(&c.stats.SimilarityHits, 1)
	}
	if _, err := c.db.ExecContext(ctx,
		`UPDATE strategies SET hit_count = hit_count + 1 WHERE fingerprint = ?`, fingerprint); err != nil {
		logging.GetLogger().Warn(ctx, "failed to update hit count: %v", err)
	}
}

func (c *SQLiteCache) Store(ctx context.Context, snap game.Snapshot, strat game.Strategy) error {
	stratJSON, err := json.Marshal(strat)
	if err != nil {
		return fmt.Errorf("failed to marshal strategy: %w", err)
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	fingerprint := Fingerprint(snap)

	// Two concurrent inserts must not both decide the cache is full and
	// double-evict.
	c.mu.Lock()
	defer c.mu.Unlock()

	var count int
	if err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM strategies`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count strategies: %w", err)
	}
	if count >= c.config.MaxEntries {
		if err := c.evictOldest(ctx, count); err != nil {
			return fmt.Errorf("failed to evict strategies: %w", err)
		}
	}

	_, err = c.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO strategies (fingerprint, strategy, snapshot, created_at, hit_count)
	VALUES (?, ?, ?, ?, 0)
	`, fingerprint, string(stratJSON), string(snapJSON), c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store strategy: %w", err)
	}

	atomic.AddInt64(&c.stats.Stores, 1)
	return nil
}

// evictOldest drops expired entries and then the oldest evictFraction of
// what remains, least-reused first. Caller holds c.mu.
func (c *SQLiteCache) evictOldest(ctx context.Context, count int) error {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM strategies WHERE created_at < ?`, c.cutoff())
	if err != nil {
		return err
	}
	if removed, _ := result.RowsAffected(); removed > 0 {
		atomic.AddInt64(&c.stats.Evictions, removed)
		count -= int(removed)
		if count < c.config.MaxEntries {
			return nil
		}
	}

	toRemove := int(math.Ceil(float64(count) * evictFraction))
	if toRemove < 1 {
		toRemove = 1
	}
	result, err = c.db.ExecContext(ctx, `
	DELETE FROM strategies WHERE fingerprint IN (
		SELECT fingerprint FROM strategies ORDER BY created_at ASC, hit_count ASC LIMIT ?
	)
	`, toRemove)
	if err != nil {
		return err
	}
	if removed, _ := result.RowsAffected(); removed > 0 {
		atomic.AddInt64(&c.stats.Evictions, removed)
	}
	return nil
}

func (c *SQLiteCache) Stats() Stats {
	var size int64
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM strategies`).Scan(&size); err != nil {
		size = -1
	}

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

func (c *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM strategies`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	atomic.StoreInt64(&c.stats.Hits, 0)
	atomic.StoreInt64(&c.stats.ExactHits, 0)
	atomic.StoreInt64(&c.stats.SimilarityHits, 0)
	atomic.StoreInt64(&c.stats.Misses, 0)
	atomic.StoreInt64(&c.stats.Stores, 0)
	atomic.StoreInt64(&c.stats.Evictions, 0)

	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
