// Package value implements gqlcore's property-value type system.
//
// Value is a closed sum type covering everything a node or edge property, a
// query parameter, or a projected column can hold: scalars, temporals,
// collections, vectors, and graph structures (paths, nodes, edges). Rather
// than an ad-hoc `any`/interface{} bag, consumers switch exhaustively on
// Kind so the compiler (and go vet) catch missing cases when a variant is
// added.
//
// Example:
//
//	v := value.Number(42)
//	if n, ok := v.AsNumber(); ok {
//		fmt.Println(n) // 42
//	}
//
//	a := value.String("alice")
//	b := value.String("alice")
//	fmt.Println(value.Equal(a, b)) // true
package value

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Kind discriminates the Value variants.
type Kind uint8

const (
	KindNull Kind = iota
	KindBoolean
	KindNumber
	KindString
	KindDateTime            // UTC
	KindDateTimeFixedOffset // time.Time carries a fixed zone offset
	KindDateTimeNamedTz     // name + UTC instant
	KindTimeWindow
	KindArray
	KindList
	KindVector
	KindPath
	KindNode
	KindEdge
	KindTemporal
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBoolean:
		return "Boolean"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	case KindDateTime:
		return "DateTime"
	case KindDateTimeFixedOffset:
		return "DateTimeFixedOffset"
	case KindDateTimeNamedTz:
		return "DateTimeNamedTz"
	case KindTimeWindow:
		return "TimeWindow"
	case KindArray:
		return "Array"
	case KindList:
		return "List"
	case KindVector:
		return "Vector"
	case KindPath:
		return "Path"
	case KindNode:
		return "Node"
	case KindEdge:
		return "Edge"
	case KindTemporal:
		return "Temporal"
	default:
		return "Unknown"
	}
}

// TimeWindow is a closed [Start, End] interval over UTC instants.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the window, inclusive.
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DurationSeconds returns the window length in seconds.
func (w TimeWindow) DurationSeconds() int64 {
	return int64(w.End.Sub(w.Start).Seconds())
}

// PathElement is one hop in a Path: a node id, optionally followed by the
// edge id used to reach the next element.
type PathElement struct {
	NodeID string
	EdgeID string // empty when this is the terminal element
}

// Path is an alternating sequence of node/edge ids produced by traversal
// operators and PATH constructors.
type Path struct {
	Elements []PathElement
}

// Length is the number of edges (hops) in the path.
func (p Path) Length() int {
	n := 0
	for _, e := range p.Elements {
		if e.EdgeID != "" {
			n++
		}
	}
	return n
}

func (p Path) Nodes() []string {
	out := make([]string, len(p.Elements))
	for i, e := range p.Elements {
		out[i] = e.NodeID
	}
	return out
}

func (p Path) Edges() []string {
	out := make([]string, 0, len(p.Elements))
	for _, e := range p.Elements {
		if e.EdgeID != "" {
			out = append(out, e.EdgeID)
		}
	}
	return out
}

// Node is a graph vertex: a globally-unique-per-graph id, an ordered set of
// labels, and a property bag of Values.
type Node struct {
	ID         string
	Labels     []string
	Properties map[string]Value
}

// HasLabel reports whether the node carries the given label.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Edge is a directed relationship between two nodes in the same graph.
// Multiple edges may share the same endpoints; each has its own id.
type Edge struct {
	ID         string
	Label      string
	From       string
	To         string
	Properties map[string]Value
}

// Temporal wraps a Value with bitemporal metadata (valid-time range plus the
// transaction time it was recorded).
type Temporal struct {
	Value          *Value
	ValidFrom      time.Time
	ValidTo        *time.Time // nil means open-ended
	TransactionTime time.Time
}

// IsValidAt reports whether the wrapped value holds at instant t.
func (t Temporal) IsValidAt(at time.Time) bool {
	if at.Before(t.ValidFrom) {
		return false
	}
	return t.ValidTo == nil || at.Before(*t.ValidTo)
}

// Value is the tagged union. Exactly one of the typed fields is meaningful
// for a given Kind; callers should switch on Kind rather than guess from
// zero values.
type Value struct {
	Kind Kind

	boolean bool
	number  float64
	str     string

	datetime time.Time // KindDateTime, KindDateTimeFixedOffset
	tzName   string    // KindDateTimeNamedTz

	window TimeWindow

	items  []Value  // KindArray, KindList
	vector []float32

	path Path
	node *Node
	edge *Edge

	temporal *Temporal
}

func Null() Value                 { return Value{Kind: KindNull} }
func Boolean(b bool) Value        { return Value{Kind: KindBoolean, boolean: b} }
func Number(n float64) Value      { return Value{Kind: KindNumber, number: n} }
func String(s string) Value       { return Value{Kind: KindString, str: s} }
func DateTime(t time.Time) Value  { return Value{Kind: KindDateTime, datetime: t.UTC()} }

// DateTimeFixedOffset preserves t's original zone offset verbatim.
func DateTimeFixedOffset(t time.Time) Value {
	return Value{Kind: KindDateTimeFixedOffset, datetime: t}
}

// DateTimeNamedTz records a named zone (e.g. "America/New_York") alongside
// the UTC instant so the name survives round-tripping even if the host
// doesn't have that zone loaded.
func DateTimeNamedTz(name string, utc time.Time) Value {
	return Value{Kind: KindDateTimeNamedTz, tzName: name, datetime: utc.UTC()}
}

func TimeWindowValue(w TimeWindow) Value { return Value{Kind: KindTimeWindow, window: w} }
func Array(items []Value) Value          { return Value{Kind: KindArray, items: items} }
func List(items []Value) Value           { return Value{Kind: KindList, items: items} }
func Vector(v []float32) Value           { return Value{Kind: KindVector, vector: v} }
func PathValue(p Path) Value             { return Value{Kind: KindPath, path: p} }
func NodeValue(n Node) Value             { return Value{Kind: KindNode, node: &n} }
func EdgeValue(e Edge) Value             { return Value{Kind: KindEdge, edge: &e} }
func TemporalValue(t Temporal) Value     { return Value{Kind: KindTemporal, temporal: &t} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsBoolean() (bool, bool)  { return v.boolean, v.Kind == KindBoolean }
func (v Value) AsNumber() (float64, bool) { return v.number, v.Kind == KindNumber }
func (v Value) AsString() (string, bool) { return v.str, v.Kind == KindString }

func (v Value) AsDateTimeUTC() (time.Time, bool) {
	switch v.Kind {
	case KindDateTime, KindDateTimeNamedTz:
		return v.datetime, true
	case KindDateTimeFixedOffset:
		return v.datetime.UTC(), true
	default:
		return time.Time{}, false
	}
}

func (v Value) NamedTimezone() (string, bool) {
	if v.Kind == KindDateTimeNamedTz {
		return v.tzName, true
	}
	return "", false
}

func (v Value) AsTimeWindow() (TimeWindow, bool) { return v.window, v.Kind == KindTimeWindow }

func (v Value) AsList() ([]Value, bool) {
	if v.Kind == KindArray || v.Kind == KindList {
		return v.items, true
	}
	return nil, false
}

func (v Value) AsVector() ([]float32, bool) { return v.vector, v.Kind == KindVector }
func (v Value) AsPath() (Path, bool)        { return v.path, v.Kind == KindPath }

func (v Value) AsNode() (*Node, bool) {
	if v.Kind == KindNode {
		return v.node, true
	}
	return nil, false
}

func (v Value) AsEdge() (*Edge, bool) {
	if v.Kind == KindEdge {
		return v.edge, true
	}
	return nil, false
}

func (v Value) AsTemporal() (*Temporal, bool) {
	if v.Kind == KindTemporal {
		return v.temporal, true
	}
	return nil, false
}

// TypeName returns the GQL-visible type name, matching Kind.String() except
// it never exposes internal-only variants differently than the spec's
// GLOSSARY naming.
func (v Value) TypeName() string { return v.Kind.String() }

// String renders a Value the way it would appear in a RETURN projection or
// EXPLAIN trace. Not meant for persistence — see Encode for that.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBoolean:
		return fmt.Sprintf("%t", v.boolean)
	case KindNumber:
		return formatNumber(v.number)
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindDateTime:
		return v.datetime.Format("2006-01-02T15:04:05Z")
	case KindDateTimeFixedOffset:
		return v.datetime.Format("2006-01-02T15:04:05-07:00")
	case KindDateTimeNamedTz:
		return fmt.Sprintf("%s[%s]", v.datetime.Format("2006-01-02T15:04:05Z"), v.tzName)
	case KindTimeWindow:
		return fmt.Sprintf("TIME_WINDOW(%s, %s)", v.window.Start.Format(time.RFC3339), v.window.End.Format(time.RFC3339))
	case KindArray, KindList:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindVector:
		parts := make([]string, len(v.vector))
		for i, f := range v.vector {
			parts[i] = formatNumber(float64(f))
		}
		return "VECTOR[" + strings.Join(parts, ", ") + "]"
	case KindPath:
		return fmt.Sprintf("PATH[%s]", strings.Join(v.path.Nodes(), ", "))
	case KindNode:
		return fmt.Sprintf("(%s:%s)", v.node.ID, strings.Join(v.node.Labels, ":"))
	case KindEdge:
		return fmt.Sprintf("[%s:%s]", v.edge.ID, v.edge.Label)
	case KindTemporal:
		return v.temporal.Value.String()
	default:
		return "?"
	}
}

func formatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) && math.Abs(n) < 1e15 {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// Equal implements structural equality across all variants. Floats compare
// by value (not bit pattern — NaN != NaN here, matching GQL NULL-like
// semantics for comparisons); bit-pattern comparison is reserved for Hash.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return a.boolean == b.boolean
	case KindNumber:
		return a.number == b.number
	case KindString:
		return a.str == b.str
	case KindDateTime, KindDateTimeFixedOffset:
		return a.datetime.Equal(b.datetime)
	case KindDateTimeNamedTz:
		return a.tzName == b.tzName && a.datetime.Equal(b.datetime)
	case KindTimeWindow:
		return a.window.Start.Equal(b.window.Start) && a.window.End.Equal(b.window.End)
	case KindArray, KindList:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindVector:
		if len(a.vector) != len(b.vector) {
			return false
		}
		for i := range a.vector {
			if a.vector[i] != b.vector[i] {
				return false
			}
		}
		return true
	case KindPath:
		if len(a.path.Elements) != len(b.path.Elements) {
			return false
		}
		for i := range a.path.Elements {
			if a.path.Elements[i] != b.path.Elements[i] {
				return false
			}
		}
		return true
	case KindNode:
		return a.node.ID == b.node.ID
	case KindEdge:
		return a.edge.ID == b.edge.ID
	case KindTemporal:
		return Equal(*a.temporal.Value, *b.temporal.Value) && a.temporal.ValidFrom.Equal(b.temporal.ValidFrom)
	default:
		return false
	}
}

// Hash computes a stable 64-bit FNV-1a hash of the value, used by cache
// keys and GROUP BY / DISTINCT. NaN and +/-Inf hash to distinguished
// sentinel tags rather than their (non-unique, non-reflexive) bit patterns;
// all other floats hash by bit pattern so 1.0 and 1 hash identically.
func Hash(v Value) uint64 {
	h := fnvOffset
	mix := func(s string) { h = fnvString(h, s) }
	mixU64 := func(n uint64) { h = fnvUint64(h, n) }

	switch v.Kind {
	case KindNull:
		mixU64(0)
	case KindBoolean:
		mixU64(1)
		if v.boolean {
			mixU64(1)
		} else {
			mixU64(0)
		}
	case KindNumber:
		mixU64(2)
		switch {
		case math.IsNaN(v.number):
			mix("NaN")
		case math.IsInf(v.number, 1):
			mix("+Inf")
		case math.IsInf(v.number, -1):
			mix("-Inf")
		default:
			mixU64(math.Float64bits(v.number))
		}
	case KindString:
		mixU64(3)
		mix(v.str)
	case KindDateTime, KindDateTimeNamedTz:
		mixU64(4)
		mixU64(uint64(v.datetime.Unix()))
		mixU64(uint64(v.datetime.Nanosecond()))
		if v.Kind == KindDateTimeNamedTz {
			mix(v.tzName)
		}
	case KindDateTimeFixedOffset:
		mixU64(8)
		mixU64(uint64(v.datetime.Unix()))
		mixU64(uint64(v.datetime.Nanosecond()))
		_, off := v.datetime.Zone()
		mixU64(uint64(int64(off)))
	case KindTimeWindow:
		mixU64(5)
		mixU64(uint64(v.window.Start.Unix()))
		mixU64(uint64(v.window.End.Unix()))
	case KindArray:
		mixU64(6)
		mixU64(uint64(len(v.items)))
		for _, it := range v.items {
			mixU64(Hash(it))
		}
	case KindList:
		mixU64(11)
		mixU64(uint64(len(v.items)))
		for _, it := range v.items {
			mixU64(Hash(it))
		}
	case KindVector:
		mixU64(7)
		mixU64(uint64(len(v.vector)))
		for _, f := range v.vector {
			mixU64(uint64(math.Float32bits(f)))
		}
	case KindPath:
		mixU64(9)
		for _, e := range v.path.Elements {
			mix(e.NodeID)
			mix(e.EdgeID)
		}
	case KindNode:
		mixU64(10)
		mix(v.node.ID)
	case KindEdge:
		mixU64(12)
		mix(v.edge.ID)
	case KindTemporal:
		mixU64(13)
		mixU64(Hash(*v.temporal.Value))
		mixU64(uint64(v.temporal.ValidFrom.Unix()))
	}
	return h
}

const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

func fnvString(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

func fnvUint64(h uint64, n uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= n & 0xff
		h *= fnvPrime
		n >>= 8
	}
	return h
}

// SortProperties returns property keys in deterministic order, used by
// serialization and hashing of property maps (e.g. node/edge Properties).
func SortProperties(props map[string]Value) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
