package value

// Binary serialization for Value. The format is deterministic (same Value
// always encodes to the same bytes) so it can be used directly as a cache
// key suffix or a storage value without re-hashing. Floats are written as
// their raw IEEE-754 bits so round-tripping never perturbs a property.

import (
	"encoding/binary"
	"errors"
	"math"
	"time"
)

var errTruncated = errors.New("value: truncated encoding")

// Encode appends the binary form of v to buf and returns the extended
// slice.
func Encode(buf []byte, v Value) []byte {
	buf = append(buf, byte(v.Kind))
	switch v.Kind {
	case KindNull:
		// no payload
	case KindBoolean:
		if v.boolean {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case KindNumber:
		buf = putU64(buf, math.Float64bits(v.number))
	case KindString:
		buf = putString(buf, v.str)
	case KindDateTime, KindDateTimeFixedOffset:
		buf = putU64(buf, uint64(v.datetime.UnixNano()))
		if v.Kind == KindDateTimeFixedOffset {
			_, off := v.datetime.Zone()
			buf = putU64(buf, uint64(int64(off)))
		}
	case KindDateTimeNamedTz:
		buf = putString(buf, v.tzName)
		buf = putU64(buf, uint64(v.datetime.UnixNano()))
	case KindTimeWindow:
		buf = putU64(buf, uint64(v.window.Start.UnixNano()))
		buf = putU64(buf, uint64(v.window.End.UnixNano()))
	case KindArray, KindList:
		buf = putU64(buf, uint64(len(v.items)))
		for _, it := range v.items {
			buf = Encode(buf, it)
		}
	case KindVector:
		buf = putU64(buf, uint64(len(v.vector)))
		for _, f := range v.vector {
			buf = putU64(buf, uint64(math.Float32bits(f)))
		}
	case KindPath:
		buf = putU64(buf, uint64(len(v.path.Elements)))
		for _, e := range v.path.Elements {
			buf = putString(buf, e.NodeID)
			buf = putString(buf, e.EdgeID)
		}
	case KindNode:
		buf = encodeNode(buf, v.node)
	case KindEdge:
		buf = encodeEdge(buf, v.edge)
	case KindTemporal:
		buf = Encode(buf, *v.temporal.Value)
		buf = putU64(buf, uint64(v.temporal.ValidFrom.UnixNano()))
		if v.temporal.ValidTo != nil {
			buf = append(buf, 1)
			buf = putU64(buf, uint64(v.temporal.ValidTo.UnixNano()))
		} else {
			buf = append(buf, 0)
		}
		buf = putU64(buf, uint64(v.temporal.TransactionTime.UnixNano()))
	}
	return buf
}

// Decode reads one Value from the front of buf, returning the value and the
// remaining bytes.
func Decode(buf []byte) (Value, []byte, error) {
	if len(buf) < 1 {
		return Value{}, nil, errTruncated
	}
	kind := Kind(buf[0])
	buf = buf[1:]
	switch kind {
	case KindNull:
		return Null(), buf, nil
	case KindBoolean:
		if len(buf) < 1 {
			return Value{}, nil, errTruncated
		}
		return Boolean(buf[0] != 0), buf[1:], nil
	case KindNumber:
		bits, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		return Number(math.Float64frombits(bits)), rest, nil
	case KindString:
		s, rest, err := takeString(buf)
		if err != nil {
			return Value{}, nil, err
		}
		return String(s), rest, nil
	case KindDateTime:
		ns, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		return DateTime(time.Unix(0, int64(ns)).UTC()), rest, nil
	case KindDateTimeFixedOffset:
		ns, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		offRaw, rest2, err := takeU64(rest)
		if err != nil {
			return Value{}, nil, err
		}
		off := int(int64(offRaw))
		loc := time.FixedZone("", off)
		return DateTimeFixedOffset(time.Unix(0, int64(ns)).In(loc)), rest2, nil
	case KindDateTimeNamedTz:
		name, rest, err := takeString(buf)
		if err != nil {
			return Value{}, nil, err
		}
		ns, rest2, err := takeU64(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return DateTimeNamedTz(name, time.Unix(0, int64(ns)).UTC()), rest2, nil
	case KindTimeWindow:
		s, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		e, rest2, err := takeU64(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return TimeWindowValue(TimeWindow{Start: time.Unix(0, int64(s)).UTC(), End: time.Unix(0, int64(e)).UTC()}), rest2, nil
	case KindArray, KindList:
		n, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		items := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			var it Value
			it, rest, err = Decode(rest)
			if err != nil {
				return Value{}, nil, err
			}
			items = append(items, it)
		}
		if kind == KindArray {
			return Array(items), rest, nil
		}
		return List(items), rest, nil
	case KindVector:
		n, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		vec := make([]float32, n)
		for i := range vec {
			var bits uint64
			bits, rest, err = takeU64(rest)
			if err != nil {
				return Value{}, nil, err
			}
			vec[i] = math.Float32frombits(uint32(bits))
		}
		return Vector(vec), rest, nil
	case KindPath:
		n, rest, err := takeU64(buf)
		if err != nil {
			return Value{}, nil, err
		}
		elems := make([]PathElement, n)
		for i := range elems {
			var nodeID, edgeID string
			nodeID, rest, err = takeString(rest)
			if err != nil {
				return Value{}, nil, err
			}
			edgeID, rest, err = takeString(rest)
			if err != nil {
				return Value{}, nil, err
			}
			elems[i] = PathElement{NodeID: nodeID, EdgeID: edgeID}
		}
		return PathValue(Path{Elements: elems}), rest, nil
	case KindNode:
		n, rest, err := decodeNode(buf)
		if err != nil {
			return Value{}, nil, err
		}
		return NodeValue(*n), rest, nil
	case KindEdge:
		e, rest, err := decodeEdge(buf)
		if err != nil {
			return Value{}, nil, err
		}
		return EdgeValue(*e), rest, nil
	case KindTemporal:
		inner, rest, err := Decode(buf)
		if err != nil {
			return Value{}, nil, err
		}
		fromNs, rest, err := takeU64(rest)
		if err != nil {
			return Value{}, nil, err
		}
		hasTo := false
		if len(rest) < 1 {
			return Value{}, nil, errTruncated
		}
		hasTo = rest[0] != 0
		rest = rest[1:]
		var to *time.Time
		if hasTo {
			toNs, rest2, err := takeU64(rest)
			if err != nil {
				return Value{}, nil, err
			}
			t := time.Unix(0, int64(toNs)).UTC()
			to = &t
			rest = rest2
		}
		txNs, rest, err := takeU64(rest)
		if err != nil {
			return Value{}, nil, err
		}
		return TemporalValue(Temporal{
			Value:           &inner,
			ValidFrom:       time.Unix(0, int64(fromNs)).UTC(),
			ValidTo:         to,
			TransactionTime: time.Unix(0, int64(txNs)).UTC(),
		}), rest, nil
	default:
		return Value{}, nil, errors.New("value: unknown kind in encoding")
	}
}

func encodeNode(buf []byte, n *Node) []byte {
	buf = putString(buf, n.ID)
	buf = putU64(buf, uint64(len(n.Labels)))
	for _, l := range n.Labels {
		buf = putString(buf, l)
	}
	keys := SortProperties(n.Properties)
	buf = putU64(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = putString(buf, k)
		buf = Encode(buf, n.Properties[k])
	}
	return buf
}

func decodeNode(buf []byte) (*Node, []byte, error) {
	id, rest, err := takeString(buf)
	if err != nil {
		return nil, nil, err
	}
	nl, rest, err := takeU64(rest)
	if err != nil {
		return nil, nil, err
	}
	labels := make([]string, nl)
	for i := range labels {
		labels[i], rest, err = takeString(rest)
		if err != nil {
			return nil, nil, err
		}
	}
	np, rest, err := takeU64(rest)
	if err != nil {
		return nil, nil, err
	}
	props := make(map[string]Value, np)
	for i := uint64(0); i < np; i++ {
		var k string
		k, rest, err = takeString(rest)
		if err != nil {
			return nil, nil, err
		}
		var v Value
		v, rest, err = Decode(rest)
		if err != nil {
			return nil, nil, err
		}
		props[k] = v
	}
	return &Node{ID: id, Labels: labels, Properties: props}, rest, nil
}

func encodeEdge(buf []byte, e *Edge) []byte {
	buf = putString(buf, e.ID)
	buf = putString(buf, e.Label)
	buf = putString(buf, e.From)
	buf = putString(buf, e.To)
	keys := SortProperties(e.Properties)
	buf = putU64(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = putString(buf, k)
		buf = Encode(buf, e.Properties[k])
	}
	return buf
}

func decodeEdge(buf []byte) (*Edge, []byte, error) {
	id, rest, err := takeString(buf)
	if err != nil {
		return nil, nil, err
	}
	label, rest, err := takeString(rest)
	if err != nil {
		return nil, nil, err
	}
	from, rest, err := takeString(rest)
	if err != nil {
		return nil, nil, err
	}
	to, rest, err := takeString(rest)
	if err != nil {
		return nil, nil, err
	}
	np, rest, err := takeU64(rest)
	if err != nil {
		return nil, nil, err
	}
	props := make(map[string]Value, np)
	for i := uint64(0); i < np; i++ {
		var k string
		k, rest, err = takeString(rest)
		if err != nil {
			return nil, nil, err
		}
		var v Value
		v, rest, err = Decode(rest)
		if err != nil {
			return nil, nil, err
		}
		props[k] = v
	}
	return &Edge{ID: id, Label: label, From: from, To: to, Properties: props}, rest, nil
}

func putU64(buf []byte, n uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], n)
	return append(buf, tmp[:]...)
}

func takeU64(buf []byte) (uint64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, errTruncated
	}
	return binary.BigEndian.Uint64(buf[:8]), buf[8:], nil
}

func putString(buf []byte, s string) []byte {
	buf = putU64(buf, uint64(len(s)))
	return append(buf, s...)
}

func takeString(buf []byte) (string, []byte, error) {
	n, rest, err := takeU64(buf)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < n {
		return "", nil, errTruncated
	}
	return string(rest[:n]), rest[n:], nil
}
