package codec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCodec(t *testing.T, salt string) *Codec {
	c, err := New(Options{Salt: salt})
	require.Nil(t, err)
	return c
}

func TestEncodeInjective(t *testing.T) {
	c := newCodec(t, "shors")

	seen := make(map[string]uint64)
	check := func(n uint64) {
		id := c.Encode(n)
		if prev, ok := seen[id]; ok {
			t.Fatalf("%d and %d both encode to %q", prev, n, id)
		}
		seen[id] = n
	}

	for n := uint64(0); n < 20000; n++ {
		check(n)
	}
	for _, n := range []uint64{
		math.MaxInt32, math.MaxInt32 + 1, math.MaxUint32, math.MaxUint32 + 1,
		math.MaxInt64 - 1, math.MaxInt64, math.MaxInt64 + 1, math.MaxUint64 - 1, math.MaxUint64,
	} {
		check(n)
	}
}

func TestEncodeDeterministic(t *testing.T) {
	a := newCodec(t, "shors")
	b := newCodec(t, "shors")
	other := newCodec(t, "another salt")

	assert.Equal(t, a.Encode(42), b.Encode(42))
	assert.NotEqual(t, a.Encode(42), other.Encode(42))
	assert.True(t, len(a.Encode(0)) >= DefaultMinLength)
}

func TestDecode(t *testing.T) {
	c := newCodec(t, "shors")

	for _, n := range []uint64{0, 1, 61, 62, 1000, 1 << 40, math.MaxInt64, math.MaxInt64 + 1, math.MaxUint64} {
		got, err := c.Decode(c.Encode(n))
		assert.Nil(t, err)
		assert.Equal(t, n, got)
	}

	_, err := c.Decode("")
	assert.NotNil(t, err)

	_, err = c.Decode("!!!")
	assert.NotNil(t, err)

	// ids from another salt do not decode
	other := newCodec(t, "another salt")
	_, err = c.Decode(other.Encode(123456))
	assert.NotNil(t, err)
}

func TestDecodeRejectsNonCanonical(t *testing.T) {
	c := newCodec(t, "shors")

	// a two-number id whose high half is too small is never produced by Encode
	id, err := c.h.EncodeInt64([]int64{1, 2})
	require.Nil(t, err)
	_, err = c.Decode(id)
	assert.NotNil(t, err)

	id, err = c.h.EncodeInt64([]int64{1, 2, 3})
	require.Nil(t, err)
	_, err = c.Decode(id)
	assert.NotNil(t, err)
}
