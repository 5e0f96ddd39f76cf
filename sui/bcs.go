package sui

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a BCS value is truncated.
var ErrShortBuffer = errors.New("bcs: short buffer")

// Encoder 以 BCS 格式序列化：整数小端、变长长度 ULEB128。
type Encoder struct {
	buf bytes.Buffer
}

func NewEncoder() *Encoder { return &Encoder{} }

// Data returns the encoded bytes.
func (e *Encoder) Data() []byte { return e.buf.Bytes() }

func (e *Encoder) U8(v uint8) { e.buf.WriteByte(v) }

func (e *Encoder) Bool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

func (e *Encoder) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// ULEB128 writes a sequence length or enum variant index.
func (e *Encoder) ULEB128(v uint64) {
	for v >= 0x80 {
		e.buf.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	e.buf.WriteByte(byte(v))
}

// Bytes writes a length-prefixed byte vector.
func (e *Encoder) Bytes(b []byte) {
	e.ULEB128(uint64(len(b)))
	e.buf.Write(b)
}

// Fixed writes b without a length prefix.
func (e *Encoder) Fixed(b []byte) { e.buf.Write(b) }

func (e *Encoder) String(s string) { e.Bytes([]byte(s)) }

func (e *Encoder) Address(a Address) { e.buf.Write(a[:]) }

// PureU64 等是构造 Pure 参数的便捷函数。
func PureU64(v uint64) []byte {
	e := NewEncoder()
	e.U64(v)
	return e.Data()
}

func PureU8(v uint8) []byte { return []byte{v} }

func PureBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// Decoder 读取 BCS 数据（devInspect 的返回值）。
type Decoder struct {
	data []byte
	off  int
}

func NewDecoder(b []byte) *Decoder { return &Decoder{data: b} }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.data) - d.off }

func (d *Decoder) take(n int) ([]byte, error) {
	if n < 0 || d.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.off, d.Remaining())
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) U8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) Bool() (bool, error) {
	v, err := d.U8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("bcs: invalid bool byte %d", v)
}

func (d *Decoder) U16() (uint16, error) {
	b, err := d.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *Decoder) U64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *Decoder) ULEB128() (uint64, error) {
	var v uint64
	for shift := uint(0); shift < 64; shift += 7 {
		b, err := d.U8()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.New("bcs: uleb128 overflow")
}

func (d *Decoder) Bytes() ([]byte, error) {
	n, err := d.ULEB128()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, fmt.Errorf("%w: vector length %d", ErrShortBuffer, n)
	}
	return d.take(int(n))
}

func (d *Decoder) Address() (Address, error) {
	var a Address
	b, err := d.take(len(a))
	if err != nil {
		return a, err
	}
	copy(a[:], b)
	return a, nil
}

// OptionU64 decodes Option<u64>.
func (d *Decoder) OptionU64() (uint64, bool, error) {
	tag, err := d.U8()
	if err != nil {
		return 0, false, err
	}
	switch tag {
	case 0:
		return 0, false, nil
	case 1:
		v, err := d.U64()
		return v, err == nil, err
	}
	return 0, false, fmt.Errorf("bcs: invalid option tag %d", tag)
}
