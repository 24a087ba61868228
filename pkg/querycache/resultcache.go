package querycache

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// EntryMetadata carries the bookkeeping spec.md §4.2 attaches to every
// cached result: "{created_at, last_access, access_count, ttl?, tags,
// level}".
type EntryMetadata struct {
	CreatedAt   time.Time
	LastAccess  time.Time
	AccessCount uint64
	TTL         *time.Duration
	Tags        []string
	Level       string // "L1" or "L2", set on insertion/promotion
}

// ResultEntry is one cached query result (spec.md §4.2).
type ResultEntry struct {
	Result        any // *value.Value rows, or whatever shape the coordinator produced
	ExecutionTime time.Duration
	PlanHash      uint64
	Metadata      EntryMetadata

	sizeBytes int64
}

// TierLimits bounds a cache tier by both entry count and total bytes
// (spec.md §4.2: "each capped by (entries, bytes)").
type TierLimits struct {
	MaxEntries int
	MaxBytes   int64
}

// ResultCache is the two-tier L1/L2 result cache. L1 ("hot") is backed by
// ristretto, whose TinyLFU admission policy and OnEvict hook demote
// overflowing entries straight into L2 ("warm"), a plain LRU. L2 entries
// promote back to L1 after three accesses (spec.md §4.2).
type ResultCache struct {
	l1 *ristretto.Cache[uint64, *ResultEntry]
	l2 *lruTier[*ResultEntry]

	l1Limits TierLimits

	mu       sync.Mutex
	versions map[uint64]uint64 // key -> graph_version, for version-gated invalidation across both tiers
}

func NewResultCache(l1Limits, l2Limits TierLimits) (*ResultCache, error) {
	rc := &ResultCache{
		l1:       nil,
		l2:       newLRUTier[*ResultEntry](l2Limits.MaxEntries, 0),
		l1Limits: l1Limits,
		versions: make(map[uint64]uint64),
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint64, *ResultEntry]{
		NumCounters: int64(l1Limits.MaxEntries) * 10,
		MaxCost:     l1Limits.MaxBytes,
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[*ResultEntry]) {
			if item.Value == nil {
				return
			}
			entry := item.Value
			entry.Metadata.Level = "L2"
			rc.l2.put(item.Key, entry)
		},
	})
	if err != nil {
		return nil, err
	}
	rc.l1 = cache
	return rc, nil
}

// Get looks up key in L1 first, then L2; an L2 hit that reaches its third
// access promotes the entry to L1.
func (c *ResultCache) Get(key QueryCacheKey) (*ResultEntry, bool) {
	hashed := key.Hash()

	if entry, ok := c.l1.Get(hashed); ok {
		entry.Metadata.AccessCount++
		entry.Metadata.LastAccess = time.Now()
		return entry, true
	}

	entry, accesses, ok := c.l2.get(hashed)
	if !ok {
		return nil, false
	}
	entry.Metadata.AccessCount++
	entry.Metadata.LastAccess = time.Now()
	if accesses >= 3 {
		c.promote(hashed, entry)
	}
	return entry, true
}

func (c *ResultCache) promote(hashed uint64, entry *ResultEntry) {
	entry.Metadata.Level = "L1"
	c.l1.Set(hashed, entry, entry.sizeBytes)
	c.l1.Wait()
	c.l2.remove(hashed)
}

// Put inserts a fresh entry, targeting L1 when it fits the per-entry size
// budget and L2 otherwise (spec.md §4.2: "Insertion targets L1 if the
// entry fits").
func (c *ResultCache) Put(key QueryCacheKey, entry *ResultEntry, sizeBytes int64) {
	hashed := key.Hash()
	entry.sizeBytes = sizeBytes
	entry.Metadata.CreatedAt = time.Now()
	entry.Metadata.LastAccess = entry.Metadata.CreatedAt

	c.mu.Lock()
	c.versions[hashed] = key.GraphVersion
	c.mu.Unlock()

	if sizeBytes <= c.l1Limits.MaxBytes {
		entry.Metadata.Level = "L1"
		c.l1.Set(hashed, entry, sizeBytes)
		c.l1.Wait()
		return
	}
	entry.Metadata.Level = "L2"
	c.l2.put(hashed, entry)
}

// InvalidateBelowGraphVersion proactively drops tracked entries whose
// graph_version is stale. This is a memory-reclamation optimization, not a
// correctness requirement: QueryCacheKey embeds graph_version, so a stale
// entry's key can never hash-collide with the current version's lookup key
// (spec.md §4.2 "Correctness invariant").
func (c *ResultCache) InvalidateBelowGraphVersion(newVersion uint64) int {
	c.mu.Lock()
	var stale []uint64
	for hashed, v := range c.versions {
		if v < newVersion {
			stale = append(stale, hashed)
		}
	}
	for _, hashed := range stale {
		delete(c.versions, hashed)
	}
	c.mu.Unlock()

	for _, hashed := range stale {
		c.l1.Del(hashed)
		c.l2.remove(hashed)
	}
	return len(stale)
}

func (c *ResultCache) Close() {
	c.l1.Close()
}
