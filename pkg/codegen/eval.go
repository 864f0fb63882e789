package codegen

import (
	"context"
	"fmt"

	"github.com/helixdb/helix/internal/codec"
	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
	"github.com/helixdb/helix/pkg/analyzer"
	"github.com/helixdb/helix/pkg/parser"
	"github.com/helixdb/helix/pkg/remap"
	"github.com/helixdb/helix/pkg/traversal"
)

// evalCtx carries the state threaded through one handler invocation: the
// bound transaction, the current variable scope (a query variable's
// collected values, re-enterable via traversal.FromValues), and the
// per-request remapping channel the response builder consults last.
type evalCtx struct {
	ctx    context.Context
	schema *analyzer.SchemaInfo
	lq     *analyzer.LoweredQuery
	txn    *storage.Txn
	vecIdx *vector.Index
	scope  map[string][]traversal.Value
	remap  *remap.Channel
}

// bindParams converts the caller-supplied params into codec.Value and
// stashes them in scope as single-element scalar bindings, so the rest of
// evaluation can look a parameter up with the same Ident path as any other
// bound variable.
func (e *evalCtx) bindParams(params map[string]any) error {
	for name, t := range e.lq.ParamTypes {
		raw, ok := params[name]
		if !ok {
			return fmt.Errorf("codegen: missing required parameter %q", name)
		}
		if t.Kind == analyzer.KindScalar || t.Kind == analyzer.KindUnknown {
			e.scope[name] = []traversal.Value{traversal.ScalarValue(codec.FromAny(raw))}
			continue
		}
		// A node/edge/vector-typed parameter is supplied as its id string.
		idStr, ok := raw.(string)
		if !ok {
			return fmt.Errorf("codegen: parameter %q must be an id string", name)
		}
		id, err := parseParamID(idStr)
		if err != nil {
			return fmt.Errorf("codegen: parameter %q: %w", name, err)
		}
		v, err := e.loadByID(t, id)
		if err != nil {
			return fmt.Errorf("codegen: parameter %q: %w", name, err)
		}
		e.scope[name] = []traversal.Value{v}
	}
	return nil
}

func (e *evalCtx) execStmts(stmts []parser.Stmt) error {
	for _, s := range stmts {
		if err := e.execStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (e *evalCtx) execStmt(s parser.Stmt) error {
	switch t := s.(type) {
	case *parser.AssignStmt:
		values, err := e.collect(t.Value)
		if err != nil {
			return err
		}
		e.scope[t.Name] = values
		return nil

	case *parser.ExprStmt:
		_, err := e.collect(t.Value)
		return err

	case *parser.DropStmt:
		values, err := e.collect(t.Value)
		if err != nil {
			return err
		}
		return traversal.FromValues(e.txn, values).Drop(e.vecIdx)

	case *parser.ForStmt:
		values, err := e.collect(t.Coll)
		if err != nil {
			return err
		}
		for _, v := range values {
			saved := make(map[string][]traversal.Value, len(t.Vars))
			for _, name := range t.Vars {
				saved[name] = e.scope[name]
				e.scope[name] = []traversal.Value{v}
			}
			err := e.execStmts(t.Body)
			for _, name := range t.Vars {
				e.scope[name] = saved[name]
			}
			if err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("codegen: unsupported statement %T", s)
	}
}

// collect evaluates expr to a pipeline and drains it, since every
// assignment and FOR binding in HelixQL needs the full materialized
// result before the next statement can reference it.
func (e *evalCtx) collect(expr parser.Expr) ([]traversal.Value, error) {
	p, err := e.evalPipeline(expr)
	if err != nil {
		return nil, err
	}
	return p.Collect()
}

// evalPipeline builds the *traversal.Pipeline a traversal-shaped
// expression denotes. Non-traversal expressions (literals, idents bound to
// a scalar, boolean ops) are wrapped as a one-item scalar pipeline so
// every expression position can go through the same path.
func (e *evalCtx) evalPipeline(expr parser.Expr) (*traversal.Pipeline, error) {
	switch ex := expr.(type) {
	case *parser.Ident:
		values, ok := e.scope[ex.Name]
		if !ok {
			return nil, scalarErr(ex.Loc, "%q is not bound", ex.Name)
		}
		return traversal.FromValues(e.txn, values), nil

	case *parser.Anon:
		values, ok := e.scope["_"]
		if !ok {
			return nil, scalarErr(ex.Loc, "\"_\" has no current item here")
		}
		return traversal.FromValues(e.txn, values), nil

	case *parser.Literal:
		v, err := e.literalValue(ex)
		if err != nil {
			return nil, err
		}
		return traversal.FromValues(e.txn, []traversal.Value{traversal.ScalarValue(v)}), nil

	case *parser.NodeSource:
		return e.evalNodeSource(ex)

	case *parser.EdgeSource:
		return e.evalEdgeSource(ex)

	case *parser.AddN:
		return e.evalAddN(ex)

	case *parser.AddE:
		return e.evalAddE(ex)

	case *parser.AddV:
		return e.evalAddV(ex)

	case *parser.SearchV:
		return e.evalSearchV(ex)

	case *parser.StepChain:
		p, err := e.evalPipeline(ex.Base)
		if err != nil {
			return nil, err
		}
		for _, step := range ex.Steps {
			p, err = e.applyStep(p, step)
			if err != nil {
				return nil, err
			}
		}
		return p, nil

	case *parser.BinaryExpr, *parser.ExistsExpr, *parser.FieldAccess:
		v, err := e.evalScalar(expr)
		if err != nil {
			return nil, err
		}
		return traversal.FromValues(e.txn, []traversal.Value{traversal.ScalarValue(v)}), nil

	default:
		return nil, scalarErr(expr.Location(), "unsupported expression %T", expr)
	}
}

func (e *evalCtx) literalValue(lit *parser.Literal) (codec.Value, error) {
	switch lit.Kind {
	case parser.LitString:
		return codec.String(lit.Str), nil
	case parser.LitBool:
		return codec.Bool(lit.Bool), nil
	case parser.LitNone:
		return codec.Empty(), nil
	case parser.LitNumber:
		return parseNumberLiteral(lit.Num)
	default:
		return codec.Value{}, scalarErr(lit.Loc, "unknown literal kind")
	}
}

func (e *evalCtx) evalNodeSource(ns *parser.NodeSource) (*traversal.Pipeline, error) {
	switch {
	case ns.ID != nil:
		id, err := e.evalID(ns.ID)
		if err != nil {
			return nil, err
		}
		return traversal.NFromID(e.txn, id), nil
	case ns.IndexField != "":
		val, err := e.evalScalar(ns.IndexValue)
		if err != nil {
			return nil, err
		}
		return traversal.NFromIndex(e.txn, ns.Type, ns.IndexField, val), nil
	default:
		return traversal.NFromType(e.txn, ns.Type), nil
	}
}

func (e *evalCtx) evalEdgeSource(es *parser.EdgeSource) (*traversal.Pipeline, error) {
	if es.ID != nil {
		id, err := e.evalID(es.ID)
		if err != nil {
			return nil, err
		}
		return traversal.EFromID(e.txn, id), nil
	}
	return traversal.EFromType(e.txn, es.Type), nil
}

func (e *evalCtx) evalAddN(an *parser.AddN) (*traversal.Pipeline, error) {
	props, err := e.evalProps(an.Props)
	if err != nil {
		return nil, err
	}
	indexed := e.lq.IndexedFields[an]
	return traversal.AddN(e.txn, an.Type, props, indexed, storage.CreateNodeOptions{}), nil
}

func (e *evalCtx) evalAddE(ae *parser.AddE) (*traversal.Pipeline, error) {
	props, err := e.evalProps(ae.Props)
	if err != nil {
		return nil, err
	}
	from, err := e.evalID(ae.From)
	if err != nil {
		return nil, err
	}
	to, err := e.evalID(ae.To)
	if err != nil {
		return nil, err
	}
	ei := e.schema.Edges[ae.Type]
	class := codec.ClassNode
	if ei != nil && e.schema.Kind(ei.To) == analyzer.LabelVector {
		class = codec.ClassVec
	}
	indexed := e.lq.IndexedFields[ae]
	opts := storage.CreateEdgeOptions{CheckEndpoints: true}
	if ei != nil {
		opts.FromLabel, opts.ToLabel = ei.From, ei.To
	}
	return traversal.AddE(e.txn, ae.Type, from, to, props, class, indexed, opts), nil
}

func (e *evalCtx) evalAddV(av *parser.AddV) (*traversal.Pipeline, error) {
	embedding, err := e.evalEmbedding(av.Embedding)
	if err != nil {
		return nil, err
	}
	props, err := e.evalProps(av.Props)
	if err != nil {
		return nil, err
	}
	return traversal.AddV(e.txn, e.vecIdx, av.Type, embedding, props, storage.CreateVectorRecordOptions{}), nil
}

func (e *evalCtx) evalSearchV(sv *parser.SearchV) (*traversal.Pipeline, error) {
	embedding, err := e.evalEmbedding(sv.Vec)
	if err != nil {
		return nil, err
	}
	kVal, err := e.evalScalar(sv.K)
	if err != nil {
		return nil, err
	}
	k := int(kVal.Int)
	return traversal.SearchV(e.ctx, e.txn, e.vecIdx, sv.Type, embedding, k, 0, nil), nil
}

// evalProps evaluates every value in a Props map, keyed by field name.
func (e *evalCtx) evalProps(props map[string]parser.Expr) (map[string]codec.Value, error) {
	out := make(map[string]codec.Value, len(props))
	for name, expr := range props {
		v, err := e.evalScalar(expr)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// evalEmbedding evaluates expr (an Array<F64> literal or a bound
// parameter) into a []float64 for vector operations.
func (e *evalCtx) evalEmbedding(expr parser.Expr) ([]float64, error) {
	v, err := e.evalScalar(expr)
	if err != nil {
		return nil, err
	}
	if v.Kind != codec.KindArray {
		return nil, scalarErr(expr.Location(), "expected an array of numbers for the embedding")
	}
	out := make([]float64, len(v.Arr))
	for i, el := range v.Arr {
		out[i] = toFloat64(el)
	}
	return out, nil
}

// evalID evaluates expr to an id, accepting a scalar string/UUID value or
// a single bound node/edge/vector whose id is taken directly.
func (e *evalCtx) evalID(expr parser.Expr) (idType, error) {
	if ident, ok := expr.(*parser.Ident); ok {
		values, ok := e.scope[ident.Name]
		if ok && len(values) > 0 && values[0].Kind != traversal.KindScalar {
			return values[0].ID(), nil
		}
	}
	v, err := e.evalScalar(expr)
	if err != nil {
		return idType{}, err
	}
	switch v.Kind {
	case codec.KindUUID:
		return v.UUID, nil
	case codec.KindString:
		return parseParamID(v.Str)
	default:
		return idType{}, scalarErr(expr.Location(), "expected an id")
	}
}

// evalScalar evaluates any expression down to a single codec.Value,
// unwrapping a one-item pipeline result when expr denotes a traversal.
func (e *evalCtx) evalScalar(expr parser.Expr) (codec.Value, error) {
	switch ex := expr.(type) {
	case *parser.Literal:
		return e.literalValue(ex)

	case *parser.BinaryExpr:
		return e.evalBinary(ex)

	case *parser.ExistsExpr:
		p, err := e.evalPipeline(ex.Value)
		if err != nil {
			return codec.Value{}, err
		}
		_, ok, err := p.Next()
		p.Close()
		if err != nil {
			return codec.Value{}, err
		}
		return codec.Bool(ok), nil

	case *parser.FieldAccess:
		base, err := e.evalSingleValue(ex.Base)
		if err != nil {
			return codec.Value{}, err
		}
		props := base.Properties()
		if props == nil {
			return codec.Empty(), nil
		}
		return props[ex.Field], nil

	default:
		v, err := e.evalSingleValue(expr)
		if err != nil {
			return codec.Value{}, err
		}
		if v.Kind == traversal.KindScalar {
			return v.Scalar, nil
		}
		return codec.Empty(), nil
	}
}

// evalSingleValue evaluates expr to a pipeline and takes its first
// result, used when an expression position (a field access base, an id
// argument) expects exactly one value rather than a collection.
func (e *evalCtx) evalSingleValue(expr parser.Expr) (traversal.Value, error) {
	p, err := e.evalPipeline(expr)
	if err != nil {
		return traversal.Value{}, err
	}
	v, ok, err := p.Next()
	p.Close()
	if err != nil {
		return traversal.Value{}, err
	}
	if !ok {
		return traversal.Value{}, scalarErr(expr.Location(), "expression produced no value")
	}
	return v, nil
}

func (e *evalCtx) evalBinary(b *parser.BinaryExpr) (codec.Value, error) {
	switch b.Op {
	case "AND":
		l, err := e.evalScalar(b.Left)
		if err != nil {
			return codec.Value{}, err
		}
		if !l.Bool {
			return codec.Bool(false), nil
		}
		r, err := e.evalScalar(b.Right)
		if err != nil {
			return codec.Value{}, err
		}
		return codec.Bool(r.Bool), nil

	case "OR":
		l, err := e.evalScalar(b.Left)
		if err != nil {
			return codec.Value{}, err
		}
		if l.Bool {
			return codec.Bool(true), nil
		}
		r, err := e.evalScalar(b.Right)
		if err != nil {
			return codec.Value{}, err
		}
		return codec.Bool(r.Bool), nil
	}

	l, err := e.evalScalar(b.Left)
	if err != nil {
		return codec.Value{}, err
	}
	r, err := e.evalScalar(b.Right)
	if err != nil {
		return codec.Value{}, err
	}
	switch b.Op {
	case "EQ":
		return codec.Bool(l.Equal(r)), nil
	case "NEQ":
		return codec.Bool(!l.Equal(r)), nil
	case "GT", "GTE", "LT", "LTE":
		return compareOrdered(b.Op, l, r)
	default:
		return codec.Value{}, scalarErr(b.Loc, "unsupported operator %q", b.Op)
	}
}
