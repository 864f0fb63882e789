package codegen

import (
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/pkg/parser"
	"github.com/helixdb/helix/pkg/remap"
	"github.com/helixdb/helix/pkg/traversal"
)

// applyStep compiles one chained step against p, dispatching on the
// step's concrete type the same way pkg/analyzer's inferStep does —
// codegen and analysis walk the same shape, one producing runtime calls
// where the other produces diagnostics.
func (e *evalCtx) applyStep(p *traversal.Pipeline, step parser.Step) (*traversal.Pipeline, error) {
	switch s := step.(type) {
	case parser.OutStep:
		return p.Out(s.Label), nil
	case parser.InStep:
		return p.In(s.Label), nil
	case parser.OutEStep:
		return p.OutE(s.Label), nil
	case parser.InEStep:
		return p.InE(s.Label), nil
	case parser.BothStep:
		return p.Both(s.Label), nil
	case parser.BothEStep:
		return p.BothE(s.Label), nil
	case parser.BothVStep:
		return p.BothV(), nil
	case parser.FromNStep:
		return p.FromN(), nil
	case parser.ToNStep:
		return p.ToN(), nil

	case parser.WhereStep:
		return p.FilterRef(func(v traversal.Value) (bool, error) {
			saved := e.scope["_"]
			e.scope["_"] = []traversal.Value{v}
			cond, err := e.evalScalar(s.Cond)
			e.scope["_"] = saved
			if err != nil {
				return false, err
			}
			return cond.Bool, nil
		}), nil

	case parser.PropertyStep:
		return p.FilterRef(func(v traversal.Value) (bool, error) {
			fields := make(map[string]remap.Remapping, len(v.Properties()))
			for name := range v.Properties() {
				keep := false
				for _, f := range s.Fields {
					if f == name {
						keep = true
						break
					}
				}
				if !keep {
					fields[name] = remap.ExcludeField()
				}
			}
			e.remap.SetFieldsFor(v, fields)
			return true, nil
		}), nil

	case parser.ExcludeStep:
		return p.FilterRef(func(v traversal.Value) (bool, error) {
			fields := make(map[string]remap.Remapping, len(s.Fields))
			for _, f := range s.Fields {
				fields[f] = remap.ExcludeField()
			}
			e.remap.SetFieldsFor(v, fields)
			return true, nil
		}), nil

	case parser.LambdaStep:
		return p.FilterRef(func(v traversal.Value) (bool, error) {
			saved := e.scope[s.Param]
			e.scope[s.Param] = []traversal.Value{v}
			fields := make(map[string]remap.Remapping, len(s.Fields))
			for name, expr := range s.Fields {
				val, err := e.evalScalar(expr)
				if err != nil {
					e.scope[s.Param] = saved
					return false, err
				}
				fields[name] = remap.ValueField(val)
			}
			e.scope[s.Param] = saved
			e.remap.SetFieldsFor(v, fields)
			return true, nil
		}), nil

	case parser.RangeStep:
		start, err := e.evalScalar(s.Start)
		if err != nil {
			return nil, err
		}
		end, err := e.evalScalar(s.End)
		if err != nil {
			return nil, err
		}
		return p.Range(int(start.Int), int(end.Int)), nil

	case parser.CountStep:
		return p.Count(), nil

	case parser.DedupStep:
		return p.Dedup(), nil

	case parser.UpdateStep:
		return e.applyUpdate(p, s)

	case parser.ShortestPathStep:
		// The base pipeline only establishes that the chain started from a
		// node for analysis purposes; From/To name the path's actual
		// endpoints explicitly, so the upstream values aren't consumed.
		p.Close()
		src, err := e.evalID(s.From)
		if err != nil {
			return nil, err
		}
		dst, err := e.evalID(s.To)
		if err != nil {
			return nil, err
		}
		srcNode, err := e.txn.GetNode(src)
		if err != nil {
			return nil, err
		}
		path, err := traversal.FromValues(e.txn, []traversal.Value{traversal.NodeValue(srcNode)}).ShortestPath(dst, s.Label)
		if err != nil {
			return nil, err
		}
		return traversal.FromValues(e.txn, pathToValues(path)), nil

	default:
		return nil, scalarErr(step.Location(), "unsupported step %T", step)
	}
}

// applyUpdate drains p, patches each record through the transaction
// directly (rather than traversal.Pipeline.Update's single indexedFields
// list), since a step's items may carry different labels and each needs
// its own schema's indexed-field set diffed correctly.
func (e *evalCtx) applyUpdate(p *traversal.Pipeline, s parser.UpdateStep) (*traversal.Pipeline, error) {
	patch, err := e.evalProps(s.Patch)
	if err != nil {
		return nil, err
	}
	values, err := p.Collect()
	if err != nil {
		return nil, err
	}
	out := make([]traversal.Value, 0, len(values))
	for _, v := range values {
		indexed := e.indexedFieldsFor(v.Label(), patch)
		switch v.Kind {
		case traversal.KindNode:
			if err := e.txn.UpdateNode(v.ID(), patch, indexed); err != nil {
				return nil, err
			}
			n, err := e.txn.GetNode(v.ID())
			if err != nil {
				return nil, err
			}
			out = append(out, traversal.NodeValue(n))
		case traversal.KindEdge:
			if err := e.txn.UpdateEdge(v.ID(), patch, indexed); err != nil {
				return nil, err
			}
			edge, err := e.txn.GetEdge(v.ID())
			if err != nil {
				return nil, err
			}
			out = append(out, traversal.EdgeValue(edge))
		default:
			return nil, scalarErr(s.Location(), "UPDATE requires a node or edge value")
		}
	}
	return traversal.FromValues(e.txn, out), nil
}

func pathToValues(steps []traversal.ShortestPathStep) []traversal.Value {
	out := make([]traversal.Value, 0, len(steps)*2)
	for _, s := range steps {
		out = append(out, s.Edge, s.Node)
	}
	return out
}

// idType is the id every node/edge/vector record carries, aliased here so
// this package's exported signatures don't need to import internal/ids
// directly for callers that only ever pass strings through.
type idType = ids.ID
