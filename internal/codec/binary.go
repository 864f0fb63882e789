package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/helixdb/helix/internal/ids"
)

// ErrUnknownTag is returned when decode encounters a value-kind byte it
// doesn't recognize. Unknown tags are always a hard decode error, never
// a silently-skipped field.
var ErrUnknownTag = errors.New("codec: unknown value tag")

// ErrTruncated is returned when a buffer ends before a field's declared
// length is satisfied.
var ErrTruncated = errors.New("codec: truncated buffer")

// buffer is a tiny growable byte writer used instead of bytes.Buffer to
// keep the encode path allocation-predictable for small records.
type buffer struct {
	b []byte
}

func (w *buffer) byte(b byte)         { w.b = append(w.b, b) }
func (w *buffer) bytes(b []byte)      { w.b = append(w.b, b...) }
func (w *buffer) u16(v uint16)        { var t [2]byte; binary.BigEndian.PutUint16(t[:], v); w.bytes(t[:]) }
func (w *buffer) u32(v uint32)        { var t [4]byte; binary.BigEndian.PutUint32(t[:], v); w.bytes(t[:]) }
func (w *buffer) u64(v uint64)        { var t [8]byte; binary.BigEndian.PutUint64(t[:], v); w.bytes(t[:]) }
func (w *buffer) varint(v uint64) {
	var t [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(t[:], v)
	w.bytes(t[:n])
}
func (w *buffer) lenPrefixed(b []byte) {
	w.varint(uint64(len(b)))
	w.bytes(b)
}

// reader walks a decode buffer, tracking position and surfacing truncation
// as errors instead of panics.
type reader struct {
	b   []byte
	pos int
}

func (r *reader) remaining() []byte { return r.b[r.pos:] }

func (r *reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, ErrTruncated
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *reader) byteVal() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) varint() (uint64, error) {
	v, n := binary.Uvarint(r.remaining())
	if n <= 0 {
		return 0, ErrTruncated
	}
	r.pos += n
	return v, nil
}

func (r *reader) lenPrefixed() ([]byte, error) {
	n, err := r.varint()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// EncodeValue appends the binary encoding of v to the record and returns
// the result.
func EncodeValue(dst []byte, v Value) []byte {
	w := &buffer{b: dst}
	writeValue(w, v)
	return w.b
}

func writeValue(w *buffer, v Value) {
	w.byte(byte(v.Kind))
	switch v.Kind {
	case KindEmpty:
	case KindString:
		w.lenPrefixed([]byte(v.Str))
	case KindBoolean:
		if v.Bool {
			w.byte(1)
		} else {
			w.byte(0)
		}
	case KindF32:
		w.u32(math.Float32bits(v.F32))
	case KindF64:
		w.u64(math.Float64bits(v.F64))
	case KindI8:
		w.byte(byte(int8(v.Int)))
	case KindI16:
		w.u16(uint16(int16(v.Int)))
	case KindI32:
		w.u32(uint32(int32(v.Int)))
	case KindI64:
		w.u64(uint64(v.Int))
	case KindU8:
		w.byte(byte(v.Uint))
	case KindU16:
		w.u16(uint16(v.Uint))
	case KindU32:
		w.u32(uint32(v.Uint))
	case KindU64:
		w.u64(v.Uint)
	case KindU128:
		w.u64(v.U128Hi)
		w.u64(v.U128Lo)
	case KindUUID:
		idb := v.UUID
		w.bytes(idb[:])
	case KindDate:
		w.u64(uint64(v.DateVal))
	case KindArray:
		w.varint(uint64(len(v.Arr)))
		for _, e := range v.Arr {
			writeValue(w, e)
		}
	case KindObject:
		w.varint(uint64(len(v.Obj)))
		for k, e := range v.Obj {
			w.lenPrefixed([]byte(k))
			writeValue(w, e)
		}
	}
}

// DecodeValue decodes a single Value starting at b[0], returning the value
// and the number of bytes consumed.
func DecodeValue(b []byte) (Value, int, error) {
	r := &reader{b: b}
	v, err := readValue(r)
	if err != nil {
		return Value{}, 0, err
	}
	return v, r.pos, nil
}

func readValue(r *reader) (Value, error) {
	tagByte, err := r.byteVal()
	if err != nil {
		return Value{}, err
	}
	kind := Kind(tagByte)
	switch kind {
	case KindEmpty:
		return Empty(), nil
	case KindString:
		b, err := r.lenPrefixed()
		if err != nil {
			return Value{}, err
		}
		return String(string(b)), nil
	case KindBoolean:
		b, err := r.byteVal()
		if err != nil {
			return Value{}, err
		}
		return Bool(b != 0), nil
	case KindF32:
		u, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		return F32(math.Float32frombits(u)), nil
	case KindF64:
		u, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return F64(math.Float64frombits(u)), nil
	case KindI8:
		b, err := r.byteVal()
		if err != nil {
			return Value{}, err
		}
		return Int(KindI8, int64(int8(b))), nil
	case KindI16:
		u, err := r.u16()
		if err != nil {
			return Value{}, err
		}
		return Int(KindI16, int64(int16(u))), nil
	case KindI32:
		u, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		return Int(KindI32, int64(int32(u))), nil
	case KindI64:
		u, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return Int(KindI64, int64(u)), nil
	case KindU8:
		b, err := r.byteVal()
		if err != nil {
			return Value{}, err
		}
		return Uint(KindU8, uint64(b)), nil
	case KindU16:
		u, err := r.u16()
		if err != nil {
			return Value{}, err
		}
		return Uint(KindU16, uint64(u)), nil
	case KindU32:
		u, err := r.u32()
		if err != nil {
			return Value{}, err
		}
		return Uint(KindU32, uint64(u)), nil
	case KindU64:
		u, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return Uint(KindU64, u), nil
	case KindU128:
		hi, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		lo, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return U128(hi, lo), nil
	case KindUUID:
		b, err := r.take(16)
		if err != nil {
			return Value{}, err
		}
		var arr [16]byte
		copy(arr[:], b)
		return UUID(ids.ID(arr)), nil
	case KindDate:
		u, err := r.u64()
		if err != nil {
			return Value{}, err
		}
		return Date(int64(u)), nil
	case KindArray:
		n, err := r.varint()
		if err != nil {
			return Value{}, err
		}
		arr := make([]Value, n)
		for i := range arr {
			e, err := readValue(r)
			if err != nil {
				return Value{}, err
			}
			arr[i] = e
		}
		return Array(arr), nil
	case KindObject:
		n, err := r.varint()
		if err != nil {
			return Value{}, err
		}
		obj := make(map[string]Value, n)
		for i := uint64(0); i < n; i++ {
			kb, err := r.lenPrefixed()
			if err != nil {
				return Value{}, err
			}
			e, err := readValue(r)
			if err != nil {
				return Value{}, err
			}
			obj[string(kb)] = e
		}
		return Object(obj), nil
	default:
		return Value{}, fmt.Errorf("%w: 0x%02x", ErrUnknownTag, tagByte)
	}
}

