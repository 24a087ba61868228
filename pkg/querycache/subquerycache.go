package querycache

import (
	"sync"
	"time"

	"github.com/nornic/gqlcore/pkg/value"
)

// SubqueryResultKind discriminates the shapes spec.md §4.2 allows a cached
// subquery result to take.
type SubqueryResultKind string

const (
	SubqueryBoolean    SubqueryResultKind = "Boolean"
	SubqueryScalar     SubqueryResultKind = "Scalar"
	SubquerySet        SubqueryResultKind = "Set"
	SubqueryFullResult SubqueryResultKind = "FullResult"
)

// SubqueryResult is the cached value of one EXISTS/IN/scalar/correlated
// subquery evaluation.
type SubqueryResult struct {
	Kind    SubqueryResultKind
	Boolean bool
	Scalar  value.Value
	Set     []value.Value
	Rows    []map[string]value.Value
}

type subqueryEntry struct {
	result     SubqueryResult
	complexity float64 // higher = more expensive to recompute, preferred for retention
	hits       uint64
	misses     uint64
	lastAccess time.Time
	graphVer   uint64
}

// SubqueryCache caches subquery evaluations. Unlike the result/plan caches
// it does not use a strict LRU: eviction picks the entry with the lowest
// combined score of hit-rate, recency, and (inversely) complexity, since
// spec.md §4.2 asks that "higher complexity [be] preferred for retention"
// — a cheap subquery is worth recomputing before an expensive one is.
type SubqueryCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[uint64]*subqueryEntry

	// subqueryIndex maps a subquery's own hash (independent of bound
	// parameter values) to every cached key derived from it, so an
	// EXISTS/IN check can be answered without re-deriving the full key
	// (spec.md §4.2 "specialized side indices").
	subqueryIndex map[uint64]map[uint64]struct{}
}

func NewSubqueryCache(maxEntries int) *SubqueryCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &SubqueryCache{
		maxEntries:    maxEntries,
		entries:       make(map[uint64]*subqueryEntry),
		subqueryIndex: make(map[uint64]map[uint64]struct{}),
	}
}

func (c *SubqueryCache) Get(subqueryHash uint64, key QueryCacheKey) (SubqueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hashed := key.Hash()
	e, ok := c.entries[hashed]
	if !ok {
		return SubqueryResult{}, false
	}
	if e.graphVer != key.GraphVersion {
		c.removeLocked(hashed, subqueryHash)
		return SubqueryResult{}, false
	}
	e.hits++
	e.lastAccess = time.Now()
	return e.result, true
}

// Put stores a subquery result, evicting the lowest-scoring entry first if
// the cache is full.
func (c *SubqueryCache) Put(subqueryHash uint64, key QueryCacheKey, result SubqueryResult, complexity float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hashed := key.Hash()
	if len(c.entries) >= c.maxEntries {
		if _, exists := c.entries[hashed]; !exists {
			c.evictLowestScoreLocked()
		}
	}
	c.entries[hashed] = &subqueryEntry{result: result, complexity: complexity, lastAccess: time.Now(), graphVer: key.GraphVersion}
	if c.subqueryIndex[subqueryHash] == nil {
		c.subqueryIndex[subqueryHash] = make(map[uint64]struct{})
	}
	c.subqueryIndex[subqueryHash][hashed] = struct{}{}
}

// Exists answers whether ANY cached entry derived from subqueryHash is
// fresh for the given graph version, without needing the full bound-
// parameter key (backs EXISTS/NOT EXISTS fast paths).
func (c *SubqueryCache) Exists(subqueryHash uint64, graphVersion uint64) (SubqueryResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for hashed := range c.subqueryIndex[subqueryHash] {
		if e, ok := c.entries[hashed]; ok && e.graphVer == graphVersion {
			e.hits++
			e.lastAccess = time.Now()
			return e.result, true
		}
	}
	return SubqueryResult{}, false
}

func (c *SubqueryCache) score(e *subqueryEntry) float64 {
	total := e.hits + e.misses
	hitRate := 0.5
	if total > 0 {
		hitRate = float64(e.hits) / float64(total)
	}
	recency := 1.0 / (1.0 + time.Since(e.lastAccess).Seconds())
	// Normalize complexity into roughly [0,1] against a soft ceiling so it
	// doesn't dwarf the other two terms for very expensive subqueries.
	normComplexity := e.complexity / (e.complexity + 10.0)
	return 0.4*hitRate + 0.3*recency + 0.3*normComplexity
}

func (c *SubqueryCache) evictLowestScoreLocked() {
	var worstKey uint64
	var worstScore = -1.0
	found := false
	for k, e := range c.entries {
		s := c.score(e)
		if !found || s < worstScore {
			worstScore = s
			worstKey = k
			found = true
		}
	}
	if found {
		c.removeLocked(worstKey, 0)
	}
}

func (c *SubqueryCache) removeLocked(hashed, subqueryHash uint64) {
	delete(c.entries, hashed)
	if subqueryHash != 0 {
		if set, ok := c.subqueryIndex[subqueryHash]; ok {
			delete(set, hashed)
		}
		return
	}
	for _, set := range c.subqueryIndex {
		delete(set, hashed)
	}
}

// InvalidateBelowGraphVersion drops every entry stale relative to
// newVersion.
func (c *SubqueryCache) InvalidateBelowGraphVersion(newVersion uint64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var removed int
	for hashed, e := range c.entries {
		if e.graphVer < newVersion {
			c.removeLocked(hashed, 0)
			removed++
		}
	}
	return removed
}

func (c *SubqueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
