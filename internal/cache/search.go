package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"grocery/catalog/internal/domain"

	log "github.com/sirupsen/logrus"
)

type searchEntry struct {
	key        string
	result     domain.SearchResult
	storedAt   time.Time
	lastAccess time.Time
}

// SearchCache is a bounded cache of complete search results with a fixed TTL
// and least-recently-used eviction. The front of order is the most recently
// used entry.
type SearchCache struct {
	mu            sync.Mutex
	entries       map[string]*list.Element
	order         *list.List
	maxSize       int
	ttl           time.Duration
	adminIdentity string
	now           func() time.Time
}

func NewSearchCache(maxSize int, ttl time.Duration, adminIdentity string) *SearchCache {
	return &SearchCache{
		entries:       make(map[string]*list.Element),
		order:         list.New(),
		maxSize:       max(1, maxSize),
		ttl:           ttl,
		adminIdentity: adminIdentity,
		now:           time.Now,
	}
}

// Key derives the cache key of a request. Queries differing only in case or
// surrounding whitespace, with the same filters, share a key.
func Key(query string, filters domain.Filters) string {
	active := filters.Map()
	names := make([]string, 0, len(active))
	for name := range active {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(query)))
	b.WriteByte('|')
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		value := strings.TrimSpace(active[name])
		if name == "category" {
			value = strings.ToLower(value)
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(value)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Get returns a copy of a cached result flagged FromCache and marks it as
// most recently used
func (c *SearchCache) Get(query string, filters domain.Filters) (domain.SearchResult, bool) {
	key := Key(query, filters)

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		log.WithField("query", query).Debug("Search cache miss")
		return domain.SearchResult{}, false
	}

	entry := elem.Value.(*searchEntry)
	now := c.now()
	if c.expired(entry, now) {
		c.remove(elem)
		log.WithField("query", query).Debug("Search cache miss (expired)")
		return domain.SearchResult{}, false
	}

	entry.lastAccess = now
	c.order.MoveToFront(elem)

	result := entry.result.Clone()
	result.FromCache = true
	return result, true
}

// Set stores a result. Expired entries are purged first; if the cache is still
// full the least recently used entry is evicted.
func (c *SearchCache) Set(query string, filters domain.Filters, result domain.SearchResult) {
	key := Key(query, filters)

	stored := result.Clone()
	stored.FromCache = false

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stored.CachedAt = now
	c.purgeExpired(now)

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*searchEntry)
		entry.result = stored
		entry.storedAt = now
		entry.lastAccess = now
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.maxSize {
		if oldest := c.order.Back(); oldest != nil {
			log.WithField("key", oldest.Value.(*searchEntry).key).Debug("Search cache full, evicting least recently used entry")
			c.remove(oldest)
		}
	}

	c.entries[key] = c.order.PushFront(&searchEntry{
		key:        key,
		result:     stored,
		storedAt:   now,
		lastAccess: now,
	})
}

// Clear empties the cache. Only the administrative identity may do so.
func (c *SearchCache) Clear(identity string) error {
	if c.adminIdentity == "" || identity != c.adminIdentity {
		log.WithField("identity", identity).Warn("🚫 Refused search cache clear")
		return domain.ErrPermissionDenied
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	count := c.order.Len()
	c.entries = make(map[string]*list.Element)
	c.order.Init()

	log.WithFields(log.Fields{
		"identity": identity,
		"entries":  count,
	}).Info("🗑️ Search cache cleared")
	return nil
}

func (c *SearchCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired(c.now())

	stats := domain.CacheStats{
		EntryCount: c.order.Len(),
		MaxSize:    c.maxSize,
		TTLSeconds: int(c.ttl / time.Second),
	}
	if front := c.order.Front(); front != nil {
		stats.NewestAccess = front.Value.(*searchEntry).lastAccess
	}
	if back := c.order.Back(); back != nil {
		stats.OldestAccess = back.Value.(*searchEntry).lastAccess
	}
	return stats
}

func (c *SearchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *SearchCache) expired(entry *searchEntry, now time.Time) bool {
	return now.Sub(entry.storedAt) > c.ttl
}

func (c *SearchCache) purgeExpired(now time.Time) {
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if c.expired(elem.Value.(*searchEntry), now) {
			c.remove(elem)
		}
		elem = prev
	}
}

func (c *SearchCache) remove(elem *list.Element) {
	entry := c.order.Remove(elem).(*searchEntry)
	delete(c.entries, entry.key)
}
