package analyzer

import "github.com/helixdb/helix/pkg/parser"

// FieldInfo is one schema field's resolved shape.
type FieldInfo struct {
	Type     parser.TypeExpr
	Indexed  bool
	Optional bool
	Default  parser.Expr
}

// NodeInfo is a resolved N:: schema.
type NodeInfo struct {
	Name   string
	Fields map[string]FieldInfo
}

// EdgeInfo is a resolved E:: schema.
type EdgeInfo struct {
	Name   string
	From   string
	To     string
	Fields map[string]FieldInfo
}

// VectorInfo is a resolved V:: schema.
type VectorInfo struct {
	Name   string
	Fields map[string]FieldInfo
}

// SchemaInfo is the lookup structure Pass A builds: quick maps from label
// to resolved schema, consulted throughout Pass B.
type SchemaInfo struct {
	Nodes   map[string]*NodeInfo
	Edges   map[string]*EdgeInfo
	Vectors map[string]*VectorInfo
}

// LabelKind reports whether a name identifies a node, vector, edge
// schema, or none of the above.
type LabelKind int

const (
	LabelUnknown LabelKind = iota
	LabelNode
	LabelVector
	LabelEdge
)

// Kind reports which kind of schema (if any) name identifies. Used when
// checking an edge's From/To reference, which may be a node or a vector
// label.
func (si *SchemaInfo) Kind(name string) LabelKind {
	if _, ok := si.Nodes[name]; ok {
		return LabelNode
	}
	if _, ok := si.Vectors[name]; ok {
		return LabelVector
	}
	if _, ok := si.Edges[name]; ok {
		return LabelEdge
	}
	return LabelUnknown
}

// BuildSchema runs Pass A: register every schema declaration and validate
// that each edge schema's From/To reference an existing node or vector
// label.
func BuildSchema(f *parser.File) (*SchemaInfo, []Diagnostic) {
	si := &SchemaInfo{
		Nodes:   make(map[string]*NodeInfo),
		Edges:   make(map[string]*EdgeInfo),
		Vectors: make(map[string]*VectorInfo),
	}
	var diags []Diagnostic

	for _, decl := range f.Schemas {
		switch t := decl.(type) {
		case *parser.NodeSchema:
			if _, dup := si.Nodes[t.Name]; dup {
				diags = append(diags, errf(t.Loc, "node schema %q is already declared", t.Name))
				continue
			}
			si.Nodes[t.Name] = &NodeInfo{Name: t.Name, Fields: fieldMap(t.Fields)}

		case *parser.EdgeSchema:
			if _, dup := si.Edges[t.Name]; dup {
				diags = append(diags, errf(t.Loc, "edge schema %q is already declared", t.Name))
				continue
			}
			si.Edges[t.Name] = &EdgeInfo{Name: t.Name, From: t.From, To: t.To, Fields: fieldMap(t.Properties)}

		case *parser.VectorSchema:
			if _, dup := si.Vectors[t.Name]; dup {
				diags = append(diags, errf(t.Loc, "vector schema %q is already declared", t.Name))
				continue
			}
			si.Vectors[t.Name] = &VectorInfo{Name: t.Name, Fields: fieldMap(t.Fields)}
		}
	}

	for _, e := range si.Edges {
		if si.Kind(e.From) == LabelUnknown {
			diags = append(diags, errf(parser.Loc{}, "edge %q: From %q is not a declared node or vector schema", e.Name, e.From))
		}
		if si.Kind(e.To) == LabelUnknown {
			diags = append(diags, errf(parser.Loc{}, "edge %q: To %q is not a declared node or vector schema", e.Name, e.To))
		}
	}

	return si, diags
}

func fieldMap(fields []parser.FieldDecl) map[string]FieldInfo {
	m := make(map[string]FieldInfo, len(fields))
	for _, f := range fields {
		m[f.Name] = FieldInfo{Type: f.Type, Indexed: f.Indexed, Optional: f.Optional, Default: f.Default}
	}
	return m
}

// FieldsOf returns the field map for a node, edge, or vector label,
// regardless of which kind it is, or nil if the label is undeclared.
func (si *SchemaInfo) FieldsOf(label string) map[string]FieldInfo {
	if n, ok := si.Nodes[label]; ok {
		return n.Fields
	}
	if e, ok := si.Edges[label]; ok {
		return e.Fields
	}
	if v, ok := si.Vectors[label]; ok {
		return v.Fields
	}
	return nil
}
