package querycache

import (
	"time"

	"github.com/nornic/gqlcore/pkg/planner"
)

// DefaultPlanCacheTTL is spec.md §4.2's "TTL default 1h".
const DefaultPlanCacheTTL = time.Hour

// PlanEntry is one cached compiled plan.
type PlanEntry struct {
	Logical         *planner.Logical
	Physical        *planner.Physical
	Trace           *planner.Trace
	Optimization    *planner.Optimization // multi-pattern combining decision, if any (spec.md §4.3)
	CompilationTime time.Duration
	SchemaVersion   uint64
}

// PlanCache caches compiled plans keyed by PlanCacheKey. Entries are
// dropped wholesale once schema_version advances past them (spec.md §4.2
// "Invalidation on schema_version change drops all entries with lower
// version"), so Get never needs to re-check staleness itself.
type PlanCache struct {
	tier *lruTier[*PlanEntry]
}

func NewPlanCache(maxEntries int) *PlanCache {
	return &PlanCache{tier: newLRUTier[*PlanEntry](maxEntries, DefaultPlanCacheTTL)}
}

func (c *PlanCache) Get(key PlanCacheKey) (*PlanEntry, bool) {
	entry, _, ok := c.tier.get(key.Hash())
	return entry, ok
}

func (c *PlanCache) Put(key PlanCacheKey, entry *PlanEntry) {
	c.tier.put(key.Hash(), entry)
}

// InvalidateBelowSchemaVersion drops every cached plan compiled against an
// older schema than newVersion.
func (c *PlanCache) InvalidateBelowSchemaVersion(newVersion uint64) int {
	return c.tier.removeWhere(func(_ uint64, entry *PlanEntry) bool {
		return entry.SchemaVersion < newVersion
	})
}

func (c *PlanCache) Len() int { return c.tier.len() }

func (c *PlanCache) Stats() (hits, misses uint64, size int) {
	return c.tier.stats()
}
