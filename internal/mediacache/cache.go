// Package mediacache keeps a bounded in-memory cache of display metadata for
// queued and historical tracks so repeated dashboard reads do not hammer the
// upstream catalogs.
package mediacache

import (
	"sync"
	"time"

	"github.com/azuridayo/tiptune/internal/queue"
)

const (
	// DefaultTTL is how long a cached entry stays usable.
	DefaultTTL = 6 * time.Hour
	// DefaultMaxEntries bounds the cache size. When full, the
	// oldest-inserted entry is evicted first.
	DefaultMaxEntries = 500
)

// Metadata is the display payload attached to a track reference.
type Metadata struct {
	TrackID     string
	Name        string
	Artists     []string
	Album       string
	DurationMS  int
	Explicit    bool
	ImageURL    string
	ExternalURL string
}

type entry struct {
	meta       Metadata
	insertedAt time.Time
}

// Cache is a TTL'd, size-bounded metadata cache. Expired entries are purged
// lazily on read.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	ttl     time.Duration
	max     int
	now     func() time.Time
}

func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		ttl:     DefaultTTL,
		max:     DefaultMaxEntries,
		now:     time.Now,
	}
}

// Key derives the cache key for an item: the spotify track id when the URI
// carries one, otherwise the raw URI.
func Key(it queue.Item) string {
	if id := queue.ParseSpotifyTrackID(it.URI); id != "" {
		return id
	}
	return it.URI
}

func (c *Cache) Get(key string) (Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Metadata{}, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		c.deleteLocked(key)
		return Metadata{}, false
	}
	return e.meta, true
}

func (c *Cache) Put(key string, meta Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.meta = meta
		e.insertedAt = c.now()
		c.moveToBackLocked(key)
		return
	}
	for len(c.entries) >= c.max && len(c.order) > 0 {
		c.deleteLocked(c.order[0])
	}
	c.entries[key] = &entry{meta: meta, insertedAt: c.now()}
	c.order = append(c.order, key)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// moveToBackLocked keeps the eviction order aligned with insertion
// timestamps: a refreshed entry is the newest and must be the last victim.
func (c *Cache) moveToBackLocked(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, key)
			return
		}
	}
}

func (c *Cache) deleteLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
