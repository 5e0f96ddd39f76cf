package sui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoder_ULEB128(t *testing.T) {
	tests := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		e := NewEncoder()
		e.ULEB128(tt.v)
		assert.Equal(t, tt.want, e.Data(), "v=%d", tt.v)

		got, err := NewDecoder(tt.want).ULEB128()
		require.NoError(t, err)
		assert.Equal(t, tt.v, got)
	}
}

func TestEncoder_LittleEndianAndVectors(t *testing.T) {
	e := NewEncoder()
	e.U64(0x0102030405060708)
	e.U16(0x0a0b)
	e.Bool(true)
	e.String("clob_v2")

	want := []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01, 0x0b, 0x0a, 0x01, 0x07}
	want = append(want, []byte("clob_v2")...)
	assert.Equal(t, want, e.Data())
	assert.Equal(t, []byte{0x10, 0x27, 0, 0, 0, 0, 0, 0}, PureU64(10000))
}

func TestDecoder_OptionAndErrors(t *testing.T) {
	d := NewDecoder([]byte{1, 0x40, 0x42, 0x0f, 0, 0, 0, 0, 0, 0})
	v, ok, err := d.OptionU64()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1_000_000), v)

	_, ok, err = d.OptionU64()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, d.Remaining())

	_, err = d.U64()
	assert.True(t, errors.Is(err, ErrShortBuffer))

	_, _, err = NewDecoder([]byte{2}).OptionU64()
	assert.Error(t, err)

	_, err = NewDecoder([]byte{0x05, 1, 2}).Bytes()
	assert.True(t, errors.Is(err, ErrShortBuffer))
}
