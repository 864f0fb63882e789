package codegen

import (
	"github.com/helixdb/helix/pkg/remap"
	"github.com/helixdb/helix/pkg/traversal"
)

// buildResponse evaluates every RETURN expression, renders its collected
// values through the remapping channel, and assembles the response map
// keyed by each expression's projection name — the last step of a
// compiled handler's run: deserialize params, open a transaction, run
// the pipeline, populate the response map, commit, serialize.
func (e *evalCtx) buildResponse() (map[string]any, error) {
	resp := make(map[string]any, len(e.lq.Query.Returns))
	for i, ret := range e.lq.Query.Returns {
		values, err := e.collect(ret)
		if err != nil {
			return nil, err
		}
		rendered, err := e.renderAll(values)
		if err != nil {
			return nil, err
		}
		resp[e.lq.ReturnNames[i]] = rendered
	}
	return resp, nil
}

// renderAll renders every value through remap.Render, unwrapping a scalar
// element to its bare value so a COUNT or a property projection comes
// back as plain numbers/strings rather than {"value": ...} wrappers.
func (e *evalCtx) renderAll(values []traversal.Value) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		rendered, err := remap.Render(e.remap, v)
		if err != nil {
			return nil, err
		}
		if v.Kind == traversal.KindScalar {
			out = append(out, rendered["value"])
			continue
		}
		out = append(out, rendered)
	}
	return out, nil
}
