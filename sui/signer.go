package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const ed25519Flag byte = 0x00

// transaction data intent: scope=0, version=0, app=0
var transactionIntent = [3]byte{0, 0, 0}

// Signer 持有 ed25519 私钥并对交易签名。
type Signer struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address Address
}

// NewSignerFromKeystore parses a sui.keystore entry: base64(flag || 32-byte seed).
func NewSignerFromKeystore(encoded string) (*Signer, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode keystore key: %w", err)
	}
	if len(raw) != 1+ed25519.SeedSize {
		return nil, fmt.Errorf("keystore key: expected %d bytes, got %d", 1+ed25519.SeedSize, len(raw))
	}
	if raw[0] != ed25519Flag {
		return nil, fmt.Errorf("keystore key: unsupported scheme flag %d", raw[0])
	}
	return NewSignerFromSeed(raw[1:])
}

// NewSignerFromSeed builds a signer from a raw 32-byte ed25519 seed.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.New("ed25519 seed must be 32 bytes")
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Signer{priv: priv, pub: pub, address: AddressFromPublicKey(pub)}, nil
}

// AddressFromPublicKey = blake2b256(flag || pubkey).
func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	h, _ := blake2b.New256(nil)
	h.Write([]byte{ed25519Flag})
	h.Write(pub)
	var a Address
	copy(a[:], h.Sum(nil))
	return a
}

func (s *Signer) Address() Address { return s.address }

func (s *Signer) PublicKey() ed25519.PublicKey { return s.pub }

// SignTransaction 对 BCS 交易字节签名，返回 base64(flag || sig || pubkey)。
func (s *Signer) SignTransaction(txBytes []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write(transactionIntent[:])
	h.Write(txBytes)
	sig := ed25519.Sign(s.priv, h.Sum(nil))

	out := make([]byte, 0, 1+len(sig)+len(s.pub))
	out = append(out, ed25519Flag)
	out = append(out, sig...)
	out = append(out, s.pub...)
	return base64.StdEncoding.EncodeToString(out)
}
