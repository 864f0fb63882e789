package remap

import "github.com/helixdb/helix/pkg/traversal"

// Render converts a traversal value into a plain map[string]any ready for
// JSON serialization, consulting ch for v's id and applying any recorded
// field remapping; an element with no entry renders as-is (every declared
// property under its stored name, plus "id" and "label"). Scalars have no
// id to look up and never carry a remapping.
func Render(ch *Channel, v traversal.Value) (map[string]any, error) {
	out := baseFields(v)
	if v.Kind == traversal.KindScalar {
		return out, nil
	}
	remapping, ok := ch.Get(v.ID())
	if !ok {
		return out, nil
	}
	for field, r := range remapping {
		if err := applyField(out, field, r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func baseFields(v traversal.Value) map[string]any {
	if v.Kind == traversal.KindScalar {
		return map[string]any{"value": v.Scalar.ToAny()}
	}
	out := map[string]any{
		"id":    v.ID().String(),
		"label": v.Label(),
	}
	for k, val := range v.Properties() {
		out[k] = val.ToAny()
	}
	return out
}

func applyField(out map[string]any, field string, r Remapping) error {
	switch r.Kind {
	case Exclude:
		delete(out, field)
	case Rename:
		if val, ok := out[field]; ok {
			delete(out, field)
			out[r.NewName] = val
		}
	case ValueRemap:
		out[field] = r.Literal.ToAny()
	case TraversalRemap:
		values, err := r.Sub()
		if err != nil {
			return err
		}
		rendered := make([]any, 0, len(values))
		for _, sv := range values {
			rendered = append(rendered, baseFields(sv))
		}
		out[field] = rendered
	case ObjectRemap:
		nested, ok := out[field].(map[string]any)
		if !ok {
			nested = map[string]any{}
		}
		for nf, nr := range r.Nested {
			if err := applyField(nested, nf, nr); err != nil {
				return err
			}
		}
		out[field] = nested
	}
	return nil
}
