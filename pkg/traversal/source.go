package traversal

import (
	"context"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
)

// NFromType starts a pipeline over every node with the given label, the
// n_from_type source step.
func NFromType(txn *storage.Txn, label string) *Pipeline {
	c := txn.NodesByLabel(label)
	return newPipeline(txn, &funcIterator{
		next: func() (Value, bool, error) {
			if !c.Next() {
				return Value{}, false, c.Err()
			}
			return NodeValue(c.Node()), true, nil
		},
		close: c.Close,
	})
}

// NFromID starts a pipeline over a single node looked up by id
// (source step n_from_id).
func NFromID(txn *storage.Txn, id ids.ID) *Pipeline {
	n, err := txn.GetNode(id)
	if err == storage.ErrNotFound {
		return newPipeline(txn, newSliceIterator(nil))
	}
	if err != nil {
		return fail(txn, err)
	}
	return newPipeline(txn, newSliceIterator([]Value{NodeValue(n)}))
}

// NFromIndex starts a pipeline over every node whose (label, field)
// property equals value, via the secondary index (source step
// n_from_index).
func NFromIndex(txn *storage.Txn, label, field string, value codec.Value) *Pipeline {
	c := txn.NodesByIndex(label, field, value)
	return newPipeline(txn, &funcIterator{
		next: func() (Value, bool, error) {
			if !c.Next() {
				return Value{}, false, c.Err()
			}
			return NodeValue(c.Node()), true, nil
		},
		close: c.Close,
	})
}

// EFromType starts a pipeline over every edge with the given label
// (source step e_from_type).
func EFromType(txn *storage.Txn, label string) *Pipeline {
	c := txn.EdgesByLabel(label)
	return newPipeline(txn, &funcIterator{
		next: func() (Value, bool, error) {
			if !c.Next() {
				return Value{}, false, c.Err()
			}
			return EdgeValue(c.Edge()), true, nil
		},
		close: c.Close,
	})
}

// EFromID starts a pipeline over a single edge looked up by id
// (source step e_from_id).
func EFromID(txn *storage.Txn, id ids.ID) *Pipeline {
	e, err := txn.GetEdge(id)
	if err == storage.ErrNotFound {
		return newPipeline(txn, newSliceIterator(nil))
	}
	if err != nil {
		return fail(txn, err)
	}
	return newPipeline(txn, newSliceIterator([]Value{EdgeValue(e)}))
}

// AddN creates a node and starts a one-item pipeline over it (source step
// add_n). The id is generated unless opts.ID overrides it.
func AddN(txn *storage.Txn, label string, props map[string]codec.Value, indexedFields []string, opts storage.CreateNodeOptions) *Pipeline {
	n, err := txn.CreateNode(label, props, indexedFields, opts)
	if err != nil {
		return fail(txn, err)
	}
	return newPipeline(txn, newSliceIterator([]Value{NodeValue(n)}))
}

// AddE creates an edge and starts a one-item pipeline over it (source
// step add_e).
func AddE(txn *storage.Txn, label string, from, to ids.ID, props map[string]codec.Value, class codec.EdgeClass, indexedFields []string, opts storage.CreateEdgeOptions) *Pipeline {
	e, err := txn.CreateEdge(label, from, to, props, class, indexedFields, opts)
	if err != nil {
		return fail(txn, err)
	}
	return newPipeline(txn, newSliceIterator([]Value{EdgeValue(e)}))
}

// AddV creates a vector record, registers its embedding with idx, and
// starts a one-item pipeline over it (source step add_v).
func AddV(txn *storage.Txn, idx *vector.Index, label string, embedding []float64, props map[string]codec.Value, opts storage.CreateVectorRecordOptions) *Pipeline {
	v, err := txn.CreateVectorRecord(label, embedding, props, opts)
	if err != nil {
		return fail(txn, err)
	}
	if idx != nil {
		if err := idx.Insert(label, v.ID, embedding); err != nil {
			return fail(txn, err)
		}
	}
	return newPipeline(txn, newSliceIterator([]Value{VectorValue(v, 0)}))
}

// SearchV runs a similarity search against idx and starts a pipeline over
// the matching vector records, each carrying its similarity score (source
// step search_v). filter, when non-nil, is applied to each candidate's
// stored properties before it is resolved to a full record — a
// filter_ref-compatible predicate pre-filter ahead of the similarity
// search itself.
func SearchV(ctx context.Context, txn *storage.Txn, idx *vector.Index, label string, query []float64, k int, minScore float64, filter func(Value) (bool, error)) *Pipeline {
	results, err := idx.Search(ctx, label, query, k, minScore)
	if err != nil {
		return fail(txn, err)
	}
	pos := 0
	return newPipeline(txn, &funcIterator{
		next: func() (Value, bool, error) {
			for pos < len(results) {
				r := results[pos]
				pos++
				v, err := txn.GetVector(r.ID)
				if err != nil {
					return Value{}, false, err
				}
				val := VectorValue(v, r.Score)
				if filter != nil {
					ok, err := filter(val)
					if err != nil {
						return Value{}, false, err
					}
					if !ok {
						continue
					}
				}
				return val, true, nil
			}
			return Value{}, false, nil
		},
	})
}
