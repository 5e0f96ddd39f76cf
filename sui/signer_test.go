package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func TestNewSignerFromKeystore(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(append([]byte{0x00}, testSeed()...))
	s, err := NewSignerFromKeystore(key)
	require.NoError(t, err)

	direct, err := NewSignerFromSeed(testSeed())
	require.NoError(t, err)
	assert.Equal(t, direct.Address(), s.Address())

	want := blake2b.Sum256(append([]byte{0x00}, s.PublicKey()...))
	assert.Equal(t, Address(want), s.Address())

	_, err = NewSignerFromKeystore(base64.StdEncoding.EncodeToString(append([]byte{0x01}, testSeed()...)))
	assert.Error(t, err, "secp256k1 flag is not supported")
	_, err = NewSignerFromKeystore("not base64!")
	assert.Error(t, err)
	_, err = NewSignerFromKeystore(base64.StdEncoding.EncodeToString(testSeed()))
	assert.Error(t, err)
}

func TestSigner_SignTransaction(t *testing.T) {
	s, err := NewSignerFromSeed(testSeed())
	require.NoError(t, err)

	tx := []byte{1, 2, 3, 4}
	raw, err := base64.StdEncoding.DecodeString(s.SignTransaction(tx))
	require.NoError(t, err)
	require.Len(t, raw, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	assert.Equal(t, byte(0x00), raw[0])

	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := ed25519.PublicKey(raw[1+ed25519.SignatureSize:])
	assert.Equal(t, s.PublicKey(), pub)

	digest := blake2b.Sum256(append([]byte{0, 0, 0}, tx...))
	assert.True(t, ed25519.Verify(pub, digest[:], sig))
	assert.False(t, ed25519.Verify(pub, tx, sig))
}
