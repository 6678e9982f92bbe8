package research

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"jarvis/internal/logging"
)

type cacheEntry struct {
	results   Results
	createdAt time.Time
	expiresAt time.Time
}

// CachedSearcher memoizes successful, non-empty results of another Searcher
// for a fixed TTL. Failures are never cached.
type CachedSearcher struct {
	next    Searcher
	ttl     time.Duration
	maxSize int
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    int
	misses  int
}

// NewCachedSearcher wraps next. A non-positive ttl disables caching.
func NewCachedSearcher(next Searcher, ttl time.Duration, maxSize int) *CachedSearcher {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &CachedSearcher{
		next:    next,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// Search implements Searcher.
func (c *CachedSearcher) Search(ctx context.Context, q Query) (Results, error) {
	if c.ttl <= 0 {
		return c.next.Search(ctx, q)
	}

	key := hashKey(strings.ToLower(strings.TrimSpace(q.Text)), q.FocusMode, strconv.Itoa(q.MaxResults))
	if r, ok := c.get(key); ok {
		logging.ResearchDebug("Search cache hit: %q", q.Text)
		return r, nil
	}

	r, err := c.next.Search(ctx, q)
	if err != nil || r.Empty() {
		return r, err
	}
	c.set(key, r)
	return r, nil
}

// Stats returns the hit and miss counters.
func (c *CachedSearcher) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Size returns the number of cached entries, expired ones included.
func (c *CachedSearcher) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear removes all entries.
func (c *CachedSearcher) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

func (c *CachedSearcher) get(key string) (Results, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().After(entry.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return Results{}, false
	}
	c.hits++
	return entry.results, true
}

func (c *CachedSearcher) set(key string, r Results) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	now := c.now()
	c.entries[key] = &cacheEntry{results: r, createdAt: now, expiresAt: now.Add(c.ttl)}
}

func (c *CachedSearcher) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey = key
			oldest = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func hashKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
