// Package cache stores solver verdicts keyed by a fingerprint of the
// solver, the time budget and the formula.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/solver"
)

// Entry is one cached verdict.
type Entry struct {
	Verdict      solver.Verdict
	CreatedAt    time.Time
	LastAccessed time.Time
}

// Stats counts lookups.
type Stats struct {
	Hits   int
	Misses int
}

// Cache is safe for concurrent use.
type Cache struct {
	entries map[string]Entry
	mutex   sync.RWMutex
	maxAge  time.Duration
	stats   Stats
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxAge expires entries older than d. Zero keeps entries forever.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key fingerprints one solver request.
func Key(version string, budget time.Duration, formula logic.Term) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%s", version, budget.Nanoseconds(), formula)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached verdict for key.
func (c *Cache) Get(key string) (solver.Verdict, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if ok && c.maxAge > 0 && c.now().Sub(entry.CreatedAt) > c.maxAge {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.stats.Misses++
		return solver.Verdict{}, false
	}
	entry.LastAccessed = c.now()
	c.entries[key] = entry
	c.stats.Hits++
	return entry.Verdict, true
}

// Put stores a verdict. Unknown verdicts depend on timing and are not kept.
func (c *Cache) Put(key string, v solver.Verdict) {
	if v.Status == solver.Unknown {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.entries[key] = Entry{Verdict: v, CreatedAt: now, LastAccessed: now}
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Stats returns the lookup counters.
func (c *Cache) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stats
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries = make(map[string]Entry)
}
