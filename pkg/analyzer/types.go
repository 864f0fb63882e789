package analyzer

// ValueKind is the coarse kind a scope entry or traversal step result
// carries, mirroring pkg/traversal.Kind plus two analysis-only kinds
// (Path, Unknown) that never reach the runtime pipeline.
type ValueKind int

const (
	KindUnknown ValueKind = iota
	KindNode
	KindEdge
	KindVector
	KindScalar
	// KindPath is the result of a shortest_path step; RETURNed directly,
	// never fed into another traversal step.
	KindPath
)

// ElemType is the type an expression or bound variable carries during
// Pass B: a kind plus the schema label when it is known precisely enough
// to check field access and step legality against. Label is empty when a
// step's result could be one of several labels (e.g. an unlabeled out()
// over a node with edges to more than one label) — subsequent label-
// specific checks are then skipped rather than guessed at.
type ElemType struct {
	Kind  ValueKind
	Label string
}

func nodeType(label string) ElemType   { return ElemType{Kind: KindNode, Label: label} }
func edgeType(label string) ElemType   { return ElemType{Kind: KindEdge, Label: label} }
func vectorType(label string) ElemType { return ElemType{Kind: KindVector, Label: label} }
func scalarType() ElemType             { return ElemType{Kind: KindScalar} }
func unknownType() ElemType            { return ElemType{Kind: KindUnknown} }

func (t ValueKind) String() string {
	switch t {
	case KindNode:
		return "node"
	case KindEdge:
		return "edge"
	case KindVector:
		return "vector"
	case KindScalar:
		return "scalar"
	case KindPath:
		return "path"
	default:
		return "unknown"
	}
}
