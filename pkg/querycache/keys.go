package querycache

import (
	"hash/fnv"
	"sort"
	"strconv"
)

// QueryCacheKey identifies one result-cache entry (spec.md §4.2): same
// query text, same bound parameters, same graph_version, and same user
// security context must all match for a hit. GraphVersion is embedded in
// the key itself (not checked out-of-band), so a cached result can never
// be served against a newer graph without the key changing first.
type QueryCacheKey struct {
	QueryHash    uint64
	Parameters   map[string]string // stringified parameter values
	GraphVersion uint64
	UserContext  string
}

// Hash reduces the key to the uint64 used as the map key internally.
func (k QueryCacheKey) Hash() uint64 {
	h := fnv.New64a()
	writeU64(h, k.QueryHash)
	for _, name := range sortedKeys(k.Parameters) {
		h.Write([]byte(name))
		h.Write([]byte(k.Parameters[name]))
	}
	writeU64(h, k.GraphVersion)
	h.Write([]byte(k.UserContext))
	return h.Sum64()
}

// PlanCacheKey identifies one plan-cache entry (spec.md §4.2): query text,
// schema_version, optimization level, and planner hints.
type PlanCacheKey struct {
	QueryHash         uint64
	SchemaVersion     uint64
	OptimizationLevel int
	Hints             []string
}

func (k PlanCacheKey) Hash() uint64 {
	h := fnv.New64a()
	writeU64(h, k.QueryHash)
	writeU64(h, k.SchemaVersion)
	h.Write([]byte(strconv.Itoa(k.OptimizationLevel)))
	hints := append([]string(nil), k.Hints...)
	sort.Strings(hints)
	for _, hint := range hints {
		h.Write([]byte(hint))
	}
	return h.Sum64()
}

func writeU64(h interface{ Write([]byte) (int, error) }, n uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(n >> (8 * i))
	}
	h.Write(buf[:])
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HashQueryText is the query_hash component every cache key starts from
// (spec.md §4.1 step 4: "plan_cache_key = hash(query_hash, ...)").
func HashQueryText(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
