package sui

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_PadsShortForm(t *testing.T) {
	a, err := ParseAddress("0x6")
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000006", a.String())

	b, err := ParseAddress("0xdee9")
	require.NoError(t, err)
	assert.Equal(t, byte(0xde), b[30])
	assert.Equal(t, byte(0xe9), b[31])

	for _, bad := range []string{"", "0x", "0xzz", "0x" + strings.Repeat("1", 65)} {
		_, err := ParseAddress(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDigest(t *testing.T) {
	raw := make([]byte, 32)
	raw[0] = 7
	enc := base58.Encode(raw)

	d, err := ParseDigest(enc)
	require.NoError(t, err)
	assert.Equal(t, byte(7), d[0])
	assert.Equal(t, enc, d.String())

	_, err = ParseDigest(base58.Encode([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestParseTypeTag_Nested(t *testing.T) {
	s := "0xdee9::clob_v2::Pool<0x2::sui::SUI, 0x5d4b302506645c37ff133b98c4b50a5ae14841659738d6d733d59d0d217a93bf::coin::COIN>"
	tag, err := ParseTypeTag(s)
	require.NoError(t, err)
	require.Equal(t, TypeStruct, tag.Kind)

	st := tag.Struct
	assert.Equal(t, "clob_v2", st.Module)
	assert.Equal(t, "Pool", st.Name)
	require.Len(t, st.TypeParams, 2)
	assert.Equal(t, "sui", st.TypeParams[0].Struct.Module)
	assert.Equal(t, "SUI", st.TypeParams[0].Struct.Name)
	assert.Equal(t, "COIN", st.TypeParams[1].Struct.Name)

	vec, err := ParseTypeTag("vector<vector<u8>>")
	require.NoError(t, err)
	assert.Equal(t, TypeVector, vec.Kind)
	assert.Equal(t, TypeU8, vec.Elem.Elem.Kind)
	assert.Equal(t, "vector<vector<u8>>", vec.String())

	for _, bad := range []string{"0x2::sui", "0x2::sui::SUI<", "0x2::a::B<u8,>", "0x2::a::B<u8>>"} {
		_, err := ParseTypeTag(bad)
		assert.Error(t, err, bad)
	}
}

func TestTypeTag_Encode(t *testing.T) {
	tag, err := ParseTypeTag("0x2::sui::SUI")
	require.NoError(t, err)

	e := NewEncoder()
	tag.encode(e)

	want := []byte{byte(TypeStruct)}
	addr := MustParseAddress("0x2")
	want = append(want, addr[:]...)
	want = append(want, 3, 's', 'u', 'i', 3, 'S', 'U', 'I', 0)
	assert.Equal(t, want, e.Data())
}
