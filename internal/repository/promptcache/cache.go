// Package promptcache holds rendered prompt artifacts, scoped to the
// caller's group set so one audience can never observe another's entry.
package promptcache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultTTL bounds how long a cached artifact stays valid.
const DefaultTTL = 60 * time.Minute

type entry struct {
	value     string
	expiresAt time.Time
}

// Cache is a process-local, mutex-guarded prompt cache. Entries are
// evicted lazily: an expired entry is removed on the read that finds it.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	now        func() time.Time
}

// New creates a cache. ttl <= 0 falls back to DefaultTTL. cacheTotal is
// a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(ttl time.Duration, cacheTotal *prometheus.CounterVec) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		cacheTotal: cacheTotal,
		now:        time.Now,
	}
}

// Get returns the cached artifact for the template under the caller's
// group scope, or ok=false on miss or expiry.
func (c *Cache) Get(template string, groups []string) (string, bool) {
	key := cacheKey(template, groups)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		c.incCache("hit")
		return e.value, true
	}

	if ok {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Put may have
		// refreshed the entry since the read lock was dropped.
		if cur, still := c.entries[key]; still && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
	}

	c.incCache("miss")
	return "", false
}

// Put stores the artifact for the template under the caller's group scope.
func (c *Cache) Put(template string, groups []string, value string) {
	key := cacheKey(template, groups)

	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

// cacheKey derives the entry key from the template content and the
// sorted group scope, so group order never splits the cache.
func cacheKey(template string, groups []string) string {
	scoped := make([]string, len(groups))
	copy(scoped, groups)
	sort.Strings(scoped)

	h := sha256.Sum256([]byte(template + "|" + strings.Join(scoped, ",")))
	return hex.EncodeToString(h[:])
}
