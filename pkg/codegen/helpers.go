package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/pkg/analyzer"
	"github.com/helixdb/helix/pkg/traversal"
)

// parseParamID parses an id-shaped string parameter, the form every
// node/edge/vector-typed query parameter and literal id reference takes
// on the wire.
func parseParamID(s string) (ids.ID, error) {
	id, err := ids.Parse(s)
	if err != nil {
		return ids.Nil, fmt.Errorf("codegen: %q is not a valid id: %w", s, err)
	}
	return id, nil
}

// loadByID resolves a schema-typed parameter's id against the kind of
// record its declared type names.
func (e *evalCtx) loadByID(t analyzer.ElemType, id ids.ID) (traversal.Value, error) {
	switch t.Kind {
	case analyzer.KindNode:
		n, err := e.txn.GetNode(id)
		if err != nil {
			return traversal.Value{}, err
		}
		return traversal.NodeValue(n), nil
	case analyzer.KindEdge:
		edge, err := e.txn.GetEdge(id)
		if err != nil {
			return traversal.Value{}, err
		}
		return traversal.EdgeValue(edge), nil
	case analyzer.KindVector:
		v, err := e.txn.GetVector(id)
		if err != nil {
			return traversal.Value{}, err
		}
		return traversal.VectorValue(v, 0), nil
	default:
		return traversal.Value{}, fmt.Errorf("codegen: parameter of unknown record kind")
	}
}

// parseNumberLiteral parses a HelixQL number literal's raw text into the
// narrowest codec.Value it fits: an integer literal becomes I64, anything
// with a fractional part or exponent becomes F64.
func parseNumberLiteral(raw string) (codec.Value, error) {
	if !strings.ContainsAny(raw, ".eE") {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return codec.Int(codec.KindI64, n), nil
		}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return codec.Value{}, fmt.Errorf("codegen: invalid number literal %q: %w", raw, err)
	}
	return codec.F64(f), nil
}

// toFloat64 widens any numeric codec.Value kind to float64, for assembling
// an embedding array from parameter or literal values.
func toFloat64(v codec.Value) float64 {
	switch v.Kind {
	case codec.KindF32:
		return float64(v.F32)
	case codec.KindF64:
		return v.F64
	case codec.KindI8, codec.KindI16, codec.KindI32, codec.KindI64:
		return float64(v.Int)
	case codec.KindU8, codec.KindU16, codec.KindU32, codec.KindU64:
		return float64(v.Uint)
	default:
		return 0
	}
}

// compareOrdered implements GT/GTE/LT/LTE over two scalar values of the
// same comparable shape (numeric or string); mixed or unsupported kinds
// are a codegen-time error since the analyzer only lets well-typed
// comparisons through.
func compareOrdered(op string, l, r codec.Value) (codec.Value, error) {
	var cmp int
	switch {
	case isNumeric(l.Kind) && isNumeric(r.Kind):
		lf, rf := toFloat64(l), toFloat64(r)
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		default:
			cmp = 0
		}
	case l.Kind == codec.KindString && r.Kind == codec.KindString:
		cmp = strings.Compare(l.Str, r.Str)
	default:
		return codec.Value{}, fmt.Errorf("codegen: cannot order %v and %v", l.Kind, r.Kind)
	}

	switch op {
	case "GT":
		return codec.Bool(cmp > 0), nil
	case "GTE":
		return codec.Bool(cmp >= 0), nil
	case "LT":
		return codec.Bool(cmp < 0), nil
	case "LTE":
		return codec.Bool(cmp <= 0), nil
	default:
		return codec.Value{}, fmt.Errorf("codegen: unsupported ordering operator %q", op)
	}
}

// indexedFieldsFor filters patch down to the field names label declares as
// INDEX, so UPDATE keeps secondary indices consistent with schema without
// the caller having to track it through the lowered IR (UPDATE's target
// type isn't known until the step actually runs against real records).
func (e *evalCtx) indexedFieldsFor(label string, patch map[string]codec.Value) []string {
	fields := e.schema.FieldsOf(label)
	if fields == nil {
		return nil
	}
	var out []string
	for name := range patch {
		if fi, ok := fields[name]; ok && fi.Indexed {
			out = append(out, name)
		}
	}
	return out
}

func isNumeric(k codec.Kind) bool {
	switch k {
	case codec.KindF32, codec.KindF64, codec.KindI8, codec.KindI16, codec.KindI32, codec.KindI64,
		codec.KindU8, codec.KindU16, codec.KindU32, codec.KindU64:
		return true
	default:
		return false
	}
}
