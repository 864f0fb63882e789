package traversal

import (
	"fmt"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
)

// Update applies patch to every node or edge currently in the pipeline,
// using indexedFields to keep secondary indices consistent, and replaces
// the pipeline's contents with the updated records (traversal step
// update). Vector values are rejected — schema attaches indexedFields to
// nodes and edges only.
func (p *Pipeline) Update(patch map[string]codec.Value, indexedFields []string) *Pipeline {
	values, err := p.Collect()
	if err != nil {
		return fail(p.txn, err)
	}
	out := make([]Value, 0, len(values))
	for _, v := range values {
		switch v.Kind {
		case KindNode:
			if err := p.txn.UpdateNode(v.Node.ID, patch, indexedFields); err != nil {
				return fail(p.txn, err)
			}
			n, err := p.txn.GetNode(v.Node.ID)
			if err != nil {
				return fail(p.txn, err)
			}
			out = append(out, NodeValue(n))
		case KindEdge:
			if err := p.txn.UpdateEdge(v.Edge.ID, patch, indexedFields); err != nil {
				return fail(p.txn, err)
			}
			e, err := p.txn.GetEdge(v.Edge.ID)
			if err != nil {
				return fail(p.txn, err)
			}
			out = append(out, EdgeValue(e))
		default:
			return fail(p.txn, fmt.Errorf("traversal: update requires a node or edge value, got %v", v.Kind))
		}
	}
	return newPipeline(p.txn, newSliceIterator(out))
}

// Drop deletes every node, edge, or vector currently in the pipeline
// (traversal step drop). idx, when non-nil, also removes vector ids from
// the in-memory similarity index; pass nil when the pipeline is known to
// carry no vectors.
func (p *Pipeline) Drop(idx *vector.Index) error {
	values, err := p.Collect()
	if err != nil {
		return err
	}
	for _, v := range values {
		switch v.Kind {
		case KindNode:
			if err := p.txn.DropNode(v.Node.ID); err != nil {
				return err
			}
		case KindEdge:
			if err := p.txn.DropEdge(v.Edge.ID); err != nil {
				return err
			}
		case KindVector:
			if err := p.txn.DropVectorRecord(v.Vector.ID); err != nil {
				return err
			}
			if idx != nil {
				idx.Remove(v.Vector.Label, v.Vector.ID)
			}
		default:
			return fmt.Errorf("traversal: drop requires a node, edge, or vector value, got %v", v.Kind)
		}
	}
	return nil
}

// ShortestPathStep is one hop in a resolved shortest path, mirroring
// storage.PathStep but expressed in terms of traversal Values so callers
// compose it with the rest of the pipeline API.
type ShortestPathStep struct {
	Edge Value
	Node Value
}

// ShortestPath drains the pipeline's first node as the source, runs an
// unweighted BFS to dst, and returns the resolved hop-by-hop path
// (traversal step shortest_path). The pipeline must yield exactly one
// node; it is closed before returning.
func (p *Pipeline) ShortestPath(dst ids.ID, edgeLabel string) ([]ShortestPathStep, error) {
	v, ok, err := p.Next()
	p.Close()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	if err := requireKind(v, KindNode, "shortest_path"); err != nil {
		return nil, err
	}
	steps, err := p.txn.ShortestPath(v.Node.ID, dst, edgeLabel)
	if err != nil {
		return nil, err
	}
	out := make([]ShortestPathStep, len(steps))
	for i, s := range steps {
		step := ShortestPathStep{Edge: EdgeValue(s.Edge)}
		if s.Node != nil {
			step.Node = NodeValue(s.Node)
		} else {
			step.Node = VectorValue(s.Vec, 0)
		}
		out[i] = step
	}
	return out, nil
}
