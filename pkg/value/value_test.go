package value

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualScalars(t *testing.T) {
	assert.True(t, Equal(Number(1), Number(1)))
	assert.False(t, Equal(Number(1), Number(2)))
	assert.True(t, Equal(String("a"), String("a")))
	assert.True(t, Equal(Null(), Null()))
	assert.False(t, Equal(Null(), Number(0)))
}

func TestHashDistinguishesNaNAndInf(t *testing.T) {
	nan1 := Number(math.NaN())
	nan2 := Number(math.NaN())
	posInf := Number(math.Inf(1))
	negInf := Number(math.Inf(-1))

	assert.Equal(t, Hash(nan1), Hash(nan2), "NaN hashes to a distinguished tag, stable across instances")
	assert.NotEqual(t, Hash(posInf), Hash(negInf))
	assert.NotEqual(t, Hash(nan1), Hash(posInf))
}

func TestHashFloatsByBitPattern(t *testing.T) {
	assert.Equal(t, Hash(Number(1.0)), Hash(Number(1.0)))
	assert.NotEqual(t, Hash(Number(1.0)), Hash(Number(1.0000000001)))
}

func TestHashTemporalsByEpochAndOffset(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a := DateTime(t1)
	b := DateTime(t1)
	assert.Equal(t, Hash(a), Hash(b))

	named := DateTimeNamedTz("America/New_York", t1)
	assert.NotEqual(t, Hash(a), Hash(named), "named tz must hash distinctly from bare UTC")
}

func TestCodecRoundTripsAllKinds(t *testing.T) {
	window := TimeWindow{Start: time.Unix(1000, 0).UTC(), End: time.Unix(2000, 0).UTC()}
	node := Node{ID: "n1", Labels: []string{"Person"}, Properties: map[string]Value{"age": Number(30)}}
	edge := Edge{ID: "e1", Label: "KNOWS", From: "n1", To: "n2", Properties: map[string]Value{}}
	path := Path{Elements: []PathElement{{NodeID: "n1", EdgeID: "e1"}, {NodeID: "n2"}}}
	tv := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	cases := []Value{
		Null(),
		Boolean(true),
		Number(3.14159),
		Number(math.NaN()),
		String("hello \x00 world"),
		DateTime(tv),
		DateTimeNamedTz("UTC", tv),
		TimeWindowValue(window),
		Array([]Value{Number(1), String("x"), Null()}),
		List([]Value{Boolean(true)}),
		Vector([]float32{0.1, 0.2, -3.5}),
		PathValue(path),
		NodeValue(node),
		EdgeValue(edge),
		TemporalValue(Temporal{Value: ptr(Number(7)), ValidFrom: tv, TransactionTime: tv}),
	}

	for _, v := range cases {
		buf := Encode(nil, v)
		decoded, rest, err := Decode(buf)
		require.NoError(t, err)
		assert.Empty(t, rest)
		if v.Kind == KindNumber {
			if n, _ := v.AsNumber(); math.IsNaN(n) {
				dn, _ := decoded.AsNumber()
				assert.True(t, math.IsNaN(dn))
				continue
			}
		}
		assert.Equal(t, v.Kind, decoded.Kind)
		assert.Equal(t, v.String(), decoded.String())
	}
}

func TestDecodeTruncatedReturnsError(t *testing.T) {
	buf := Encode(nil, String("abcdef"))
	_, _, err := Decode(buf[:len(buf)-2])
	assert.Error(t, err)
}

func ptr(v Value) *Value { return &v }
