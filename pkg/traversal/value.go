// Package traversal implements HelixDB's lazy, pull-based traversal
// pipeline: the runtime value the query language compiles a graph
// traversal into. A Pipeline is bound to exactly one storage.Txn for its
// entire lifetime and each step wraps the previous one in an Iterator
// that only does work when pulled, the way NornicDB's StorageExecutor
// builds up a traversal context step by step, generalized here from that
// AST-walking executor into a composable, reusable iterator chain.
package traversal

import (
	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/ids"
)

// Kind discriminates which variant of Value is populated.
type Kind uint8

const (
	KindNode Kind = iota
	KindEdge
	KindVector
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	case KindVector:
		return "vector"
	case KindScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// Value is the sum type flowing through a traversal pipeline: exactly one
// record kind at a time, with an optional score when the value came out
// of a similarity search.
type Value struct {
	Kind   Kind
	Node   *codec.Node
	Edge   *codec.Edge
	Vector *codec.Vector
	Scalar codec.Value
	Score  float64
}

// NodeValue wraps a node as a traversal value.
func NodeValue(n *codec.Node) Value { return Value{Kind: KindNode, Node: n} }

// EdgeValue wraps an edge as a traversal value.
func EdgeValue(e *codec.Edge) Value { return Value{Kind: KindEdge, Edge: e} }

// VectorValue wraps a vector as a traversal value, with the similarity
// score it was retrieved under (0 when not the result of a search).
func VectorValue(v *codec.Vector, score float64) Value {
	return Value{Kind: KindVector, Vector: v, Score: score}
}

// ScalarValue wraps a scalar (e.g. a count, or a projected property) as a
// traversal value.
func ScalarValue(v codec.Value) Value { return Value{Kind: KindScalar, Scalar: v} }

// ID returns the identifier of the underlying record, regardless of
// kind. Panics if called on a scalar value, which has none.
func (v Value) ID() ids.ID {
	switch v.Kind {
	case KindNode:
		return v.Node.ID
	case KindEdge:
		return v.Edge.ID
	case KindVector:
		return v.Vector.ID
	default:
		panic("traversal: scalar value has no id")
	}
}

// Properties returns the underlying record's property map, or nil for a
// scalar value.
func (v Value) Properties() map[string]codec.Value {
	switch v.Kind {
	case KindNode:
		return v.Node.Properties
	case KindEdge:
		return v.Edge.Properties
	case KindVector:
		return v.Vector.Properties
	default:
		return nil
	}
}

// Label returns the underlying record's label, or "" for a scalar value.
func (v Value) Label() string {
	switch v.Kind {
	case KindNode:
		return v.Node.Label
	case KindEdge:
		return v.Edge.Label
	case KindVector:
		return v.Vector.Label
	default:
		return ""
	}
}
