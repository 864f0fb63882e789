// Package codec implements HelixDB's record codec: a deterministic binary
// encoding for Value, Node, Edge, and Vector records, satisfying
// decode(encode(x)) == x for any valid record.
//
// Encoding is length-prefixed per field and every value carries a one-byte
// kind tag; an unrecognized tag is a hard decode error rather than a
// silently-skipped field.
package codec

import (
	"math/big"

	"github.com/helixdb/helix/internal/ids"
)

// Kind tags a Value's variant in the tagged union.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindBoolean
	KindF32
	KindF64
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindUUID
	KindDate
	KindArray
	KindObject
)

// Value is a property leaf: a tagged union over the primitive and composite
// kinds HelixQL's grammar supports. Only the fields relevant to Kind are
// meaningful; the rest are zero. Steps and the remapping layer pattern-match
// on Kind rather than relying on a trait-object-style interface, leaving
// property access to the remapping layer, which inspects the kind of
// value.
type Value struct {
	Kind Kind

	Str     string
	Bool    bool
	F32     float32
	F64     float64
	Int     int64  // holds I8..I64, sign-extended to 64 bits
	Uint    uint64 // holds U8..U64
	U128Hi  uint64 // high 64 bits of a U128, big-endian order
	U128Lo  uint64 // low 64 bits of a U128
	UUID    ids.ID
	DateVal int64 // unix nanoseconds
	Arr     []Value
	Obj     map[string]Value
}

// Empty is the zero/absent value.
func Empty() Value { return Value{Kind: KindEmpty} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Bool(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

func F32(f float32) Value { return Value{Kind: KindF32, F32: f} }

func F64(f float64) Value { return Value{Kind: KindF64, F64: f} }

// Int constructs a signed integer value of the given width kind (I8..I64).
func Int(kind Kind, v int64) Value { return Value{Kind: kind, Int: v} }

// Uint constructs an unsigned integer value of the given width kind
// (U8..U64).
func Uint(kind Kind, v uint64) Value { return Value{Kind: kind, Uint: v} }

// U128 constructs a 128-bit unsigned integer value from its big-endian
// halves.
func U128(hi, lo uint64) Value { return Value{Kind: KindU128, U128Hi: hi, U128Lo: lo} }

func UUID(id ids.ID) Value { return Value{Kind: KindUUID, UUID: id} }

// Date constructs a Date value, represented as unix nanoseconds.
func Date(unixNano int64) Value { return Value{Kind: KindDate, DateVal: unixNano} }

func Array(vs []Value) Value { return Value{Kind: KindArray, Arr: vs} }

func Object(m map[string]Value) Value { return Value{Kind: KindObject, Obj: m} }

// FromAny converts a plain Go value (string, bool, float64, int, []any,
// map[string]any, ...) into a Value, the shape JSON decoding and query
// parameter conversion both need. Unsupported types produce an Empty value
// rather than panicking — callers that care validate beforehand.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Empty()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return F64(t)
	case float32:
		return F32(t)
	case int:
		return Int(KindI64, int64(t))
	case int64:
		return Int(KindI64, t)
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = FromAny(e)
		}
		return Array(arr)
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = FromAny(e)
		}
		return Object(obj)
	default:
		return Empty()
	}
}

// ToAny converts a Value back into a plain Go value suitable for JSON
// marshaling in a response payload.
func (v Value) ToAny() any {
	switch v.Kind {
	case KindEmpty:
		return nil
	case KindString:
		return v.Str
	case KindBoolean:
		return v.Bool
	case KindF32:
		return v.F32
	case KindF64:
		return v.F64
	case KindI8, KindI16, KindI32, KindI64:
		return v.Int
	case KindU8, KindU16, KindU32, KindU64:
		return v.Uint
	case KindU128:
		return u128ToBig(v.U128Hi, v.U128Lo).String()
	case KindUUID:
		return v.UUID.String()
	case KindDate:
		return v.DateVal
	case KindArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.ToAny()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Obj))
		for k, e := range v.Obj {
			out[k] = e.ToAny()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether two values are structurally identical, used by the
// storage engine's update diffing and by boolean-op evaluation in
// pkg/traversal's filter_ref predicates.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindEmpty:
		return true
	case KindString:
		return v.Str == o.Str
	case KindBoolean:
		return v.Bool == o.Bool
	case KindF32:
		return v.F32 == o.F32
	case KindF64:
		return v.F64 == o.F64
	case KindI8, KindI16, KindI32, KindI64:
		return v.Int == o.Int
	case KindU8, KindU16, KindU32, KindU64:
		return v.Uint == o.Uint
	case KindU128:
		return v.U128Hi == o.U128Hi && v.U128Lo == o.U128Lo
	case KindUUID:
		return v.UUID == o.UUID
	case KindDate:
		return v.DateVal == o.DateVal
	case KindArray:
		if len(v.Arr) != len(o.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(o.Arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.Obj) != len(o.Obj) {
			return false
		}
		for k, vv := range v.Obj {
			ov, ok := o.Obj[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// u128ToBig reconstructs the exact 128-bit magnitude from its big-endian
// halves for diagnostic display; internal comparisons use Equal instead.
func u128ToBig(hi, lo uint64) *big.Int {
	out := new(big.Int).SetUint64(hi)
	out.Lsh(out, 64)
	out.Or(out, new(big.Int).SetUint64(lo))
	return out
}
