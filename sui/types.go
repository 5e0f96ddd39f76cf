package sui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Address is a 32-byte Sui account or object address.
type Address [32]byte

// ObjectID 与地址同构。
type ObjectID = Address

// ParseAddress 解析 0x 前缀的十六进制地址，不足 32 字节左侧补零（0x6 → 0x000..06）。
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if h == "" || len(h) > 64 {
		return a, fmt.Errorf("invalid address %q", s)
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}
	copy(a[len(a)-len(b):], b)
	return a, nil
}

// MustParseAddress panics on malformed input; only for constants.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == Address{} }

// Digest is an object or transaction digest, base58 in JSON.
type Digest [32]byte

// ParseDigest decodes a base58 digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := base58.Decode(s)
	if err != nil {
		return d, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("invalid digest %q: length %d", s, len(b))
	}
	copy(d[:], b)
	return d, nil
}

func (d Digest) String() string { return base58.Encode(d[:]) }

// ObjectRef 对象引用 (id, version, digest)。
type ObjectRef struct {
	ID      ObjectID
	Version uint64
	Digest  Digest
}

func (r ObjectRef) encode(e *Encoder) {
	e.Address(r.ID)
	e.U64(r.Version)
	// digest 在 BCS 中是 Vec<u8>
	e.Bytes(r.Digest[:])
}

// TypeKind enumerates Move type tags in BCS variant order.
type TypeKind uint8

const (
	TypeBool TypeKind = iota
	TypeU8
	TypeU64
	TypeU128
	TypeAddress
	TypeSigner
	TypeVector
	TypeStruct
	TypeU16
	TypeU32
	TypeU256
)

var primitiveNames = map[string]TypeKind{
	"bool":    TypeBool,
	"u8":      TypeU8,
	"u16":     TypeU16,
	"u32":     TypeU32,
	"u64":     TypeU64,
	"u128":    TypeU128,
	"u256":    TypeU256,
	"address": TypeAddress,
	"signer":  TypeSigner,
}

// TypeTag 是 Move 类型，例如 0x2::sui::SUI 或 vector<u8>。
type TypeTag struct {
	Kind   TypeKind
	Elem   *TypeTag   // vector 元素
	Struct *StructTag // struct 类型
}

// StructTag identifies a Move struct type with its type parameters.
type StructTag struct {
	Address    Address
	Module     string
	Name       string
	TypeParams []TypeTag
}

// ParseTypeTag 解析 Move 类型字符串，支持嵌套类型参数。
func ParseTypeTag(s string) (TypeTag, error) {
	s = strings.TrimSpace(s)
	if kind, ok := primitiveNames[s]; ok {
		return TypeTag{Kind: kind}, nil
	}
	if strings.HasPrefix(s, "vector<") && strings.HasSuffix(s, ">") {
		elem, err := ParseTypeTag(s[len("vector<") : len(s)-1])
		if err != nil {
			return TypeTag{}, err
		}
		return TypeTag{Kind: TypeVector, Elem: &elem}, nil
	}
	st, err := ParseStructTag(s)
	if err != nil {
		return TypeTag{}, err
	}
	return TypeTag{Kind: TypeStruct, Struct: &st}, nil
}

// ParseStructTag parses "0xADDR::module::Name<T1, T2>".
func ParseStructTag(s string) (StructTag, error) {
	s = strings.TrimSpace(s)
	head, params := s, ""
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return StructTag{}, fmt.Errorf("invalid struct tag %q: unbalanced <", s)
		}
		head, params = s[:i], s[i+1:len(s)-1]
	}
	parts := strings.Split(head, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return StructTag{}, fmt.Errorf("invalid struct tag %q", s)
	}
	addr, err := ParseAddress(parts[0])
	if err != nil {
		return StructTag{}, fmt.Errorf("invalid struct tag %q: %w", s, err)
	}
	st := StructTag{Address: addr, Module: parts[1], Name: parts[2]}
	if params != "" {
		args, err := splitTypeParams(params)
		if err != nil {
			return StructTag{}, fmt.Errorf("invalid struct tag %q: %w", s, err)
		}
		for _, a := range args {
			tt, err := ParseTypeTag(a)
			if err != nil {
				return StructTag{}, err
			}
			st.TypeParams = append(st.TypeParams, tt)
		}
	}
	return st, nil
}

// splitTypeParams 按顶层逗号切分。
func splitTypeParams(s string) ([]string, error) {
	var out []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced > in %q", s)
			}
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced < in %q", s)
	}
	out = append(out, strings.TrimSpace(s[start:]))
	for _, p := range out {
		if p == "" {
			return nil, fmt.Errorf("empty type parameter in %q", s)
		}
	}
	return out, nil
}

func (t TypeTag) String() string {
	switch t.Kind {
	case TypeVector:
		if t.Elem == nil {
			return "vector<?>"
		}
		return "vector<" + t.Elem.String() + ">"
	case TypeStruct:
		if t.Struct == nil {
			return "?"
		}
		return t.Struct.String()
	}
	for name, k := range primitiveNames {
		if k == t.Kind {
			return name
		}
	}
	return "?"
}

func (s StructTag) String() string {
	var b strings.Builder
	b.WriteString(s.Address.String())
	b.WriteString("::")
	b.WriteString(s.Module)
	b.WriteString("::")
	b.WriteString(s.Name)
	if len(s.TypeParams) > 0 {
		b.WriteByte('<')
		for i, p := range s.TypeParams {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(p.String())
		}
		b.WriteByte('>')
	}
	return b.String()
}

func (t TypeTag) encode(e *Encoder) {
	e.ULEB128(uint64(t.Kind))
	switch t.Kind {
	case TypeVector:
		t.Elem.encode(e)
	case TypeStruct:
		t.Struct.encode(e)
	}
}

func (s StructTag) encode(e *Encoder) {
	e.Address(s.Address)
	e.String(s.Module)
	e.String(s.Name)
	e.ULEB128(uint64(len(s.TypeParams)))
	for _, p := range s.TypeParams {
		p.encode(e)
	}
}
