package sui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPTBBuilder_DeduplicatesInputs(t *testing.T) {
	b := NewPTBBuilder()
	pool := MustParseAddress("0x44")

	a1 := b.Pure(PureU8(0))
	a2 := b.Pure(PureBool(false))
	assert.NotEqual(t, a1, a2)

	p1, err := b.Object(Shared(pool, 10, false))
	require.NoError(t, err)
	p2, err := b.Object(Shared(pool, 10, true))
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	pt := b.Finish()
	require.Len(t, pt.Inputs, 3)
	// 同一共享对象既读又写时升级为可变
	assert.True(t, pt.Inputs[2].Object.Mutable)

	_, err = b.Object(Owned(ObjectRef{ID: pool}))
	assert.Error(t, err)
	_, err = b.Object(Shared(pool, 11, true))
	assert.Error(t, err)
}

func TestPTBBuilder_MoveCallEncoding(t *testing.T) {
	b := NewPTBBuilder()
	clock, err := b.Object(Shared(MustParseAddress("0x6"), 1, false))
	require.NoError(t, err)
	amount := b.Pure(PureU8(3))
	res := b.MoveCall(MustParseAddress("0xdee9"), "m", "f", nil, []Argument{clock, amount})
	assert.Equal(t, Argument{Kind: ArgResult, Index: 0}, res)

	kind := b.Finish().MarshalKind()

	clockID := MustParseAddress("0x6")
	pkg := MustParseAddress("0xdee9")
	want := []byte{0x00, 0x02}
	// input 0: shared object
	want = append(want, 0x01, 0x01)
	want = append(want, clockID[:]...)
	want = append(want, 1, 0, 0, 0, 0, 0, 0, 0, 0x00)
	// input 1: pure u8
	want = append(want, 0x00, 0x01, 0x03)
	// one command
	want = append(want, 0x01, 0x00)
	want = append(want, pkg[:]...)
	want = append(want, 1, 'm', 1, 'f', 0x00, 0x02)
	want = append(want, 0x01, 0x00, 0x00, 0x01, 0x01, 0x00)
	assert.Equal(t, want, kind)
}

func TestTransactionData_Marshal(t *testing.T) {
	sender := MustParseAddress("0xa")
	tx := TransactionData{
		Kind:   ProgrammableTransaction{},
		Sender: sender,
		Gas: GasData{
			Payment: []ObjectRef{{ID: MustParseAddress("0xb"), Version: 2}},
			Owner:   sender,
			Price:   750,
			Budget:  50_000_000,
		},
	}
	b := tx.Marshal()

	// V1, PTB, no inputs, no commands
	assert.Equal(t, []byte{0, 0, 0, 0}, b[:4])
	assert.Equal(t, sender[:], b[4:36])
	assert.Equal(t, byte(1), b[36])
	// ref: id(32) + version(8) + digest len(1) + digest(32)
	tail := b[36+1+32+8+1+32:]
	assert.Equal(t, sender[:], tail[:32])
	assert.Equal(t, PureU64(750), tail[32:40])
	assert.Equal(t, PureU64(50_000_000), tail[40:48])
	assert.Equal(t, []byte{0}, tail[48:])

	assert.NotEmpty(t, TransactionDigest(b))
}
