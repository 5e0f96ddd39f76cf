package sui

import (
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// GasData 指定 gas 支付对象、付款人、gas 单价与预算。
type GasData struct {
	Payment []ObjectRef
	Owner   Address
	Price   uint64
	Budget  uint64
}

// TransactionData is a V1 programmable transaction without expiration.
type TransactionData struct {
	Kind   ProgrammableTransaction
	Sender Address
	Gas    GasData
}

// Marshal encodes the transaction as BCS TransactionData.
func (t TransactionData) Marshal() []byte {
	e := NewEncoder()
	// TransactionData::V1
	e.ULEB128(0)
	// TransactionKind::ProgrammableTransaction
	e.ULEB128(0)
	t.Kind.encode(e)
	e.Address(t.Sender)
	e.ULEB128(uint64(len(t.Gas.Payment)))
	for _, ref := range t.Gas.Payment {
		ref.encode(e)
	}
	e.Address(t.Gas.Owner)
	e.U64(t.Gas.Price)
	e.U64(t.Gas.Budget)
	// TransactionExpiration::None
	e.ULEB128(0)
	return e.Data()
}

// TransactionDigest 计算交易摘要（base58），与链上返回的 digest 一致。
func TransactionDigest(txBytes []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte("TransactionData::"))
	h.Write(txBytes)
	return base58.Encode(h.Sum(nil))
}
