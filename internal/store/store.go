package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketResponses = []byte("responses")

// Entry is one cached response
type Entry struct {
	URL       string          `json:"-"`          // Kept in memory only; composed URLs carry credentials
	FetchedAt int64           `json:"fetched_at"` // Epoch milliseconds
	Payload   json.RawMessage `json:"payload"`
}

// Fresh reports whether the entry is younger than ttl at now
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(time.UnixMilli(e.FetchedAt)) < ttl
}

// ResponseCache implements domain.ResponseCache, optionally persisted to BoltDB.
// Expired entries stay in storage until overwritten, pruned, or cleared.
type ResponseCache struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access)
	cache map[string]Entry
	now   func() time.Time
}

// NewResponseCache creates a memory-only cache that lives as long as the process
func NewResponseCache() *ResponseCache {
	return &ResponseCache{cache: make(map[string]Entry), now: time.Now}
}

// OpenResponseCache opens a BoltDB-backed cache under baseCacheDir.
// Each API endpoint gets its own database so switching endpoints never serves foreign data.
func OpenResponseCache(baseCacheDir, endpoint string) (*ResponseCache, error) {
	if baseCacheDir == "" {
		return NewResponseCache(), nil
	}

	dir := baseCacheDir
	if endpoint != "" {
		dir = filepath.Join(baseCacheDir, hashEndpoint(endpoint))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "folio.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &ResponseCache{db: db, cache: make(map[string]Entry), now: time.Now}, nil
}

func hashEndpoint(endpoint string) string {
	normalized := strings.TrimRight(strings.ToLower(endpoint), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

// hashKey derives the on-disk key for a URL
func hashKey(url string) []byte {
	hash := sha256.Sum256([]byte(url))
	return []byte(hex.EncodeToString(hash[:]))
}

func (c *ResponseCache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the payload stored for key if it is younger than ttl.
// ttl <= 0 never hits.
func (c *ResponseCache) Get(key string, ttl time.Duration) (json.RawMessage, bool) {
	e, ok := c.lookup(key)
	if !ok || !e.Fresh(c.now(), ttl) {
		return nil, false
	}
	return e.Payload, true
}

func (c *ResponseCache) lookup(key string) (Entry, bool) {
	// Check memory cache first
	c.mu.RLock()
	if e, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return e, true
	}
	c.mu.RUnlock()

	if c.db == nil {
		return Entry{}, false
	}

	var data []byte
	c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return nil
		}
		if v := b.Get(hashKey(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if data == nil {
		return Entry{}, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false
	}
	e.URL = key

	// Promote to memory cache
	c.mu.Lock()
	c.cache[key] = e
	c.mu.Unlock()

	return e, true
}

// Set stores payload under key, stamped with fetchedAt
func (c *ResponseCache) Set(key string, payload json.RawMessage, fetchedAt time.Time) error {
	e := Entry{URL: key, FetchedAt: fetchedAt.UnixMilli(), Payload: payload}

	c.mu.Lock()
	c.cache[key] = e
	c.mu.Unlock()

	if c.db == nil {
		return nil // Memory-only mode
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Put(hashKey(key), data)
	})
}

// Delete removes one entry
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	delete(c.cache, key)
	c.mu.Unlock()

	if c.db == nil {
		return
	}
	c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketResponses).Delete(hashKey(key))
	})
}

// Len returns the number of entries held in memory
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Prune removes every entry older than maxAge and returns how many were removed
func (c *ResponseCache) Prune(maxAge time.Duration) int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for k, e := range c.cache {
		if !e.Fresh(now, maxAge) {
			delete(c.cache, k)
			removed++
		}
	}
	c.mu.Unlock()

	if c.db == nil {
		return removed
	}

	diskRemoved := 0
	c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		var stale [][]byte
		b.ForEach(func(k, v []byte) error {
			var e Entry
			if json.Unmarshal(v, &e) != nil || !e.Fresh(now, maxAge) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		diskRemoved = len(stale)
		return nil
	})
	return max(removed, diskRemoved)
}

// PruneEvery drops entries older than maxAge each interval until ctx is done.
// Long-running processes use it to bound the memory taken by one-off queries.
func (c *ResponseCache) PruneEvery(ctx context.Context, interval, maxAge time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Prune(maxAge); n > 0 {
				logger.Debug("pruned stale responses", "count", n)
			}
		}
	}
}

// Clear drops every entry
func (c *ResponseCache) Clear() error {
	c.mu.Lock()
	c.cache = make(map[string]Entry)
	c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketResponses) != nil {
			if err := tx.DeleteBucket(bucketResponses); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketResponses)
		return err
	})
}
