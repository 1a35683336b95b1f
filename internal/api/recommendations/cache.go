package recommendations

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/go-hk-tourism-ai/internal/types"
)

const (
	DefaultCacheTTL        = 30 * time.Minute
	DefaultCacheMaxEntries = 100
	DefaultCacheEvictCount = 50
)

type cacheEntry struct {
	recs []types.Recommendation
	seq  uint64
}

// Cache holds generated recommendation lists keyed by request. Entries expire
// after the TTL; when a write pushes the size over maxEntries the evictCount
// oldest writes are dropped.
type Cache struct {
	mu         sync.Mutex
	store      *cache.Cache
	seq        uint64
	maxEntries int
	evictCount int
}

func NewCache(ttl time.Duration, maxEntries, evictCount int) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	if evictCount <= 0 || evictCount > maxEntries {
		evictCount = min(DefaultCacheEvictCount, maxEntries)
	}
	return &Cache{
		store:      cache.New(ttl, 2*ttl),
		maxEntries: maxEntries,
		evictCount: evictCount,
	}
}

type keyData struct {
	Preferences map[string]any `json:"preferences"`
	Location    string         `json:"location"`
	Time        string         `json:"time"`
	Limit       int            `json:"limit"`
	Session     string         `json:"session"`
}

// Key hashes the canonical JSON of the request. encoding/json sorts map keys,
// so equal preference maps hash equally.
func Key(prefs map[string]any, location, timeContext string, limit int, sessionID string) string {
	raw, err := json.Marshal(keyData{
		Preferences: prefs,
		Location:    location,
		Time:        timeContext,
		Limit:       limit,
		Session:     sessionID,
	})
	if err != nil {
		raw = fmt.Appendf(nil, "%v|%s|%s|%d|%s", prefs, location, timeContext, limit, sessionID)
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(raw))
}

// Get returns the cached list. Empty lists count as misses, and an expired
// entry is deleted on the lookup that finds it.
func (c *Cache) Get(key string) ([]types.Recommendation, bool) {
	v, ok := c.store.Get(key)
	if !ok {
		c.dropExpired(key)
		return nil, false
	}
	e := v.(cacheEntry)
	if len(e.recs) == 0 {
		return nil, false
	}
	return e.recs, true
}

func (c *Cache) Set(key string, recs []types.Recommendation) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.store.SetDefault(key, cacheEntry{recs: recs, seq: c.seq})

	if c.store.ItemCount() > c.maxEntries {
		c.store.DeleteExpired()
	}
	if c.store.ItemCount() > c.maxEntries {
		c.evictOldestLocked()
	}
}

// dropExpired removes key if it is still stored but past its expiry. It holds
// mu so a concurrent Set of a fresh value is never deleted.
func (c *Cache) dropExpired(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, _, found := c.store.GetWithExpiration(key); !found {
		c.store.Delete(key)
	}
}

func (c *Cache) evictOldestLocked() {
	items := c.store.Items()
	type aged struct {
		key string
		seq uint64
	}
	all := make([]aged, 0, len(items))
	for k, it := range items {
		all = append(all, aged{key: k, seq: it.Object.(cacheEntry).seq})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })
	for _, a := range all[:min(c.evictCount, len(all))] {
		c.store.Delete(a.key)
	}
}

// Len counts stored entries, including expired ones not yet collected.
func (c *Cache) Len() int {
	return c.store.ItemCount()
}
