package analyzer

import "github.com/helixdb/helix/pkg/parser"

// qctx carries the mutable state threaded through Pass B for one query:
// the current scope (variable name -> type), the accumulating
// annotations, and the diagnostics collected so far. Analysis never
// aborts on an error — it records the diagnostic, falls back to
// KindUnknown for the offending expression so downstream checks don't
// cascade false positives, and keeps going.
type qctx struct {
	schema  *SchemaInfo
	scope   map[string]ElemType
	lowered *LoweredQuery
	diags   []Diagnostic
}

func analyzeQuery(schema *SchemaInfo, q *parser.QueryDecl) (*LoweredQuery, []Diagnostic) {
	lq := &LoweredQuery{
		Query:         q,
		ParamTypes:    make(map[string]ElemType),
		VarTypes:      make(map[string]ElemType),
		ExprTypes:     make(map[parser.Expr]ElemType),
		IndexedFields: make(map[parser.Expr][]string),
	}
	c := &qctx{schema: schema, scope: make(map[string]ElemType), lowered: lq}

	for _, p := range q.Params {
		t := elemTypeOfParam(schema, p.Type)
		c.scope[p.Name] = t
		lq.ParamTypes[p.Name] = t
	}

	c.walkStmts(q.Body)

	for _, ret := range q.Returns {
		c.infer(ret)
		name := "_"
		if id, ok := ret.(*parser.Ident); ok {
			name = id.Name
		}
		lq.ReturnNames = append(lq.ReturnNames, name)
	}

	for k, v := range c.scope {
		lq.VarTypes[k] = v
	}
	return lq, c.diags
}

func elemTypeOfParam(schema *SchemaInfo, t parser.TypeExpr) ElemType {
	switch schema.Kind(t.Name) {
	case LabelNode:
		return nodeType(t.Name)
	case LabelVector:
		return vectorType(t.Name)
	case LabelEdge:
		return edgeType(t.Name)
	default:
		return scalarType()
	}
}

func (c *qctx) errf(loc parser.Loc, format string, args ...any) {
	c.diags = append(c.diags, errf(loc, format, args...))
}

func (c *qctx) walkStmts(stmts []parser.Stmt) {
	for _, s := range stmts {
		c.walkStmt(s)
	}
}

func (c *qctx) walkStmt(s parser.Stmt) {
	switch t := s.(type) {
	case *parser.AssignStmt:
		if _, dup := c.scope[t.Name]; dup {
			c.errf(t.Loc, "%q is already declared in this query", t.Name)
		}
		c.scope[t.Name] = c.infer(t.Value)

	case *parser.ExprStmt:
		c.infer(t.Value)

	case *parser.DropStmt:
		rt := c.infer(t.Value)
		if rt.Kind != KindNode && rt.Kind != KindEdge && rt.Kind != KindUnknown {
			c.errf(t.Loc, "DROP requires a traversal yielding nodes or edges, got %s", rt.Kind)
		}

	case *parser.ForStmt:
		collType := c.infer(t.Coll)
		if collType.Kind != KindNode && collType.Kind != KindEdge && collType.Kind != KindVector && collType.Kind != KindUnknown {
			c.errf(t.Loc, "FOR requires an iterable collection, got %s", collType.Kind)
		}
		saved := make(map[string]ElemType, len(c.scope))
		for k, v := range c.scope {
			saved[k] = v
		}
		for _, v := range t.Vars {
			c.scope[v] = collType
		}
		c.walkStmts(t.Body)
		c.scope = saved
	}
}

// infer computes expr's ElemType, recording it in the lowered IR's
// ExprTypes table, and emits diagnostics for schema/scope violations along
// the way.
func (c *qctx) infer(expr parser.Expr) ElemType {
	t := c.inferUncached(expr)
	c.lowered.ExprTypes[expr] = t
	return t
}

func (c *qctx) inferUncached(expr parser.Expr) ElemType {
	switch e := expr.(type) {
	case *parser.Ident:
		if t, ok := c.scope[e.Name]; ok {
			return t
		}
		c.errf(e.Loc, "%q is not in scope", e.Name)
		return unknownType()

	case *parser.Anon:
		if t, ok := c.scope["_"]; ok {
			return t
		}
		return unknownType()

	case *parser.Literal:
		return scalarType()

	case *parser.NodeSource:
		if _, ok := c.schema.Nodes[e.Type]; !ok {
			c.errf(e.Loc, "%q is not a declared node schema", e.Type)
			return unknownType()
		}
		if e.IndexField != "" {
			fi, ok := c.schema.Nodes[e.Type].Fields[e.IndexField]
			if !ok {
				c.errf(e.Loc, "%q is not a field of node %q", e.IndexField, e.Type)
			} else if !fi.Indexed {
				c.errf(e.Loc, "field %q of node %q is not indexed; N<%s>(field::value) requires an INDEX field", e.IndexField, e.Type, e.Type)
			}
			c.infer(e.IndexValue)
		}
		if e.ID != nil {
			c.infer(e.ID)
		}
		return nodeType(e.Type)

	case *parser.EdgeSource:
		if _, ok := c.schema.Edges[e.Type]; !ok {
			c.errf(e.Loc, "%q is not a declared edge schema", e.Type)
			return unknownType()
		}
		if e.ID != nil {
			c.infer(e.ID)
		}
		return edgeType(e.Type)

	case *parser.AddN:
		if _, ok := c.schema.Nodes[e.Type]; !ok {
			c.errf(e.Loc, "%q is not a declared node schema", e.Type)
			return unknownType()
		}
		c.checkProps(e.Loc, e.Type, c.schema.Nodes[e.Type].Fields, e.Props, expr)
		return nodeType(e.Type)

	case *parser.AddE:
		if _, ok := c.schema.Edges[e.Type]; !ok {
			c.errf(e.Loc, "%q is not a declared edge schema", e.Type)
			return unknownType()
		}
		c.checkProps(e.Loc, e.Type, c.schema.Edges[e.Type].Fields, e.Props, expr)
		if e.From == nil || e.To == nil {
			c.errf(e.Loc, "AddE<%s> requires ::From(...) and ::To(...)", e.Type)
		} else {
			c.infer(e.From)
			c.infer(e.To)
		}
		return edgeType(e.Type)

	case *parser.AddV:
		if _, ok := c.schema.Vectors[e.Type]; !ok {
			c.errf(e.Loc, "%q is not a declared vector schema", e.Type)
			return unknownType()
		}
		c.infer(e.Embedding)
		c.checkProps(e.Loc, e.Type, c.schema.Vectors[e.Type].Fields, e.Props, expr)
		return vectorType(e.Type)

	case *parser.SearchV:
		if _, ok := c.schema.Vectors[e.Type]; !ok {
			c.errf(e.Loc, "%q is not a declared vector schema", e.Type)
			return unknownType()
		}
		c.infer(e.Vec)
		c.infer(e.K)
		return vectorType(e.Type)

	case *parser.FieldAccess:
		bt := c.infer(e.Base)
		if bt.Kind == KindUnknown || bt.Label == "" {
			return scalarType()
		}
		fields := c.schema.FieldsOf(bt.Label)
		if fields != nil {
			if _, ok := fields[e.Field]; !ok {
				c.errf(e.Loc, "%q is not a field of %s %q", e.Field, bt.Kind, bt.Label)
			}
		}
		return scalarType()

	case *parser.BinaryExpr:
		c.infer(e.Left)
		c.infer(e.Right)
		return scalarType()

	case *parser.ExistsExpr:
		c.infer(e.Value)
		return scalarType()

	case *parser.StepChain:
		return c.inferStepChain(e)

	default:
		return unknownType()
	}
}

func (c *qctx) checkProps(loc parser.Loc, label string, fields map[string]FieldInfo, props map[string]parser.Expr, owner parser.Expr) {
	var indexed []string
	for name, v := range props {
		fi, ok := fields[name]
		if !ok {
			c.errf(loc, "%q is not a field of %q", name, label)
		} else if fi.Indexed {
			indexed = append(indexed, name)
		}
		c.infer(v)
	}
	if len(indexed) > 0 {
		c.lowered.IndexedFields[owner] = indexed
	}
}

func (c *qctx) inferStepChain(chain *parser.StepChain) ElemType {
	cur := c.infer(chain.Base)
	for _, step := range chain.Steps {
		cur = c.inferStep(cur, step)
	}
	return cur
}

func (c *qctx) inferStep(cur ElemType, step parser.Step) ElemType {
	switch s := step.(type) {
	case parser.OutStep:
		return c.stepDirectional(cur, s.Label, s.Location(), true, "Out")
	case parser.InStep:
		return c.stepDirectional(cur, s.Label, s.Location(), false, "In")
	case parser.OutEStep:
		c.requireKind(cur, s.Location(), KindNode, "OutE")
		return edgeType(s.Label)
	case parser.InEStep:
		c.requireKind(cur, s.Location(), KindNode, "InE")
		return edgeType(s.Label)
	case parser.BothStep:
		c.requireKind(cur, s.Location(), KindNode, "Both")
		return nodeType("")
	case parser.BothEStep:
		c.requireKind(cur, s.Location(), KindNode, "BothE")
		return edgeType(s.Label)
	case parser.BothVStep:
		c.requireKind(cur, s.Location(), KindEdge, "BothV")
		return unknownType()
	case parser.FromNStep:
		return c.stepEndpoint(cur, s.Location(), true)
	case parser.ToNStep:
		return c.stepEndpoint(cur, s.Location(), false)
	case parser.WhereStep:
		saved := c.scope["_"]
		c.scope["_"] = cur
		c.infer(s.Cond)
		c.scope["_"] = saved
		return cur
	case parser.PropertyStep:
		c.checkFieldNames(cur, s.Location(), s.Fields)
		return cur
	case parser.ExcludeStep:
		c.checkFieldNames(cur, s.Location(), s.Fields)
		return cur
	case parser.LambdaStep:
		saved := c.scope[s.Param]
		c.scope[s.Param] = cur
		for _, v := range s.Fields {
			c.infer(v)
		}
		c.scope[s.Param] = saved
		return cur
	case parser.RangeStep:
		c.infer(s.Start)
		c.infer(s.End)
		return cur
	case parser.CountStep:
		return scalarType()
	case parser.DedupStep:
		return cur
	case parser.UpdateStep:
		if cur.Kind != KindNode && cur.Kind != KindEdge && cur.Kind != KindUnknown {
			c.errf(s.Location(), "UPDATE requires a node or edge, got %s", cur.Kind)
		}
		fields := c.schema.FieldsOf(cur.Label)
		for name, v := range s.Patch {
			if fields != nil {
				if _, ok := fields[name]; !ok {
					c.errf(s.Location(), "%q is not a field of %q", name, cur.Label)
				}
			}
			c.infer(v)
		}
		return cur
	case parser.ShortestPathStep:
		c.requireKind(cur, s.Location(), KindNode, "ShortestPath")
		c.infer(s.From)
		c.infer(s.To)
		return ElemType{Kind: KindPath}
	default:
		return cur
	}
}

func (c *qctx) requireKind(cur ElemType, loc parser.Loc, want ValueKind, step string) {
	if cur.Kind != want && cur.Kind != KindUnknown {
		c.errf(loc, "%s requires a %s, got %s", step, want, cur.Kind)
	}
}

func (c *qctx) checkFieldNames(cur ElemType, loc parser.Loc, names []string) {
	if cur.Label == "" {
		return
	}
	fields := c.schema.FieldsOf(cur.Label)
	if fields == nil {
		return
	}
	for _, n := range names {
		if _, ok := fields[n]; !ok {
			c.errf(loc, "%q is not a field of %q", n, cur.Label)
		}
	}
}

// stepDirectional handles Out/In: requires a node, validates the edge
// label (when given) is declared and attached to cur's label on the
// correct side, and resolves the result node's label when it can be
// determined unambiguously.
func (c *qctx) stepDirectional(cur ElemType, edgeLabel string, loc parser.Loc, outbound bool, stepName string) ElemType {
	c.requireKind(cur, loc, KindNode, stepName)
	if edgeLabel == "" {
		return nodeType("")
	}
	ei, ok := c.schema.Edges[edgeLabel]
	if !ok {
		c.errf(loc, "%q is not a declared edge schema", edgeLabel)
		return nodeType("")
	}
	near, far := ei.From, ei.To
	if !outbound {
		near, far = ei.To, ei.From
	}
	if cur.Label != "" && cur.Label != near {
		side := "From"
		if !outbound {
			side = "To"
		}
		c.errf(loc, "%s<%s>: %s requires %q on the %s side, but current type is %q", stepName, edgeLabel, edgeLabel, cur.Label, side, cur.Label)
	}
	if c.schema.Kind(far) == LabelVector {
		return vectorType(far)
	}
	return nodeType(far)
}

func (c *qctx) stepEndpoint(cur ElemType, loc parser.Loc, from bool) ElemType {
	stepName := "ToN"
	if from {
		stepName = "FromN"
	}
	c.requireKind(cur, loc, KindEdge, stepName)
	if cur.Label == "" {
		return nodeType("")
	}
	ei, ok := c.schema.Edges[cur.Label]
	if !ok {
		return nodeType("")
	}
	label := ei.To
	if from {
		label = ei.From
	}
	if c.schema.Kind(label) == LabelVector {
		return vectorType(label)
	}
	return nodeType(label)
}
