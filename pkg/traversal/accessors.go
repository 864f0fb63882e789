package traversal

import "github.com/helixdb/helix/internal/codec"

// AsString returns the named property as a string and whether it was
// present with that kind, a check_property-style ergonomic for use in
// filter_ref predicates and the remapping layer without requiring
// callers to switch on codec.Kind themselves.
func (v Value) AsString(field string) (string, bool) {
	p, ok := v.Properties()[field]
	if !ok || p.Kind != codec.KindString {
		return "", false
	}
	return p.Str, true
}

// AsI64 returns the named property as a signed 64-bit integer, accepting
// any signed integer width.
func (v Value) AsI64(field string) (int64, bool) {
	p, ok := v.Properties()[field]
	if !ok {
		return 0, false
	}
	switch p.Kind {
	case codec.KindI8, codec.KindI16, codec.KindI32, codec.KindI64:
		return p.Int, true
	default:
		return 0, false
	}
}

// AsF64 returns the named property as a float64, accepting F32 or F64.
func (v Value) AsF64(field string) (float64, bool) {
	p, ok := v.Properties()[field]
	if !ok {
		return 0, false
	}
	switch p.Kind {
	case codec.KindF64:
		return p.F64, true
	case codec.KindF32:
		return float64(p.F32), true
	default:
		return 0, false
	}
}

// AsBool returns the named property as a boolean.
func (v Value) AsBool(field string) (bool, bool) {
	p, ok := v.Properties()[field]
	if !ok || p.Kind != codec.KindBoolean {
		return false, false
	}
	return p.Bool, true
}

// HasProperty reports whether the value has a property named field at all,
// regardless of kind.
func (v Value) HasProperty(field string) bool {
	_, ok := v.Properties()[field]
	return ok
}
