// Package codegen turns an analyzer.LoweredQuery into an executable
// Handler: a syntax-directed tree-walk over the lowered IR that builds a
// Go closure capturing the exact sequence of pkg/traversal calls the
// query names, rather than emitting Go source and invoking a second
// compile step at request time.
package codegen

import (
	"context"
	"fmt"

	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
	"github.com/helixdb/helix/pkg/analyzer"
	"github.com/helixdb/helix/pkg/parser"
	"github.com/helixdb/helix/pkg/remap"
	"github.com/helixdb/helix/pkg/traversal"
)

// Database is the handful of runtime collaborators a compiled query needs:
// the storage engine to open transactions against and the in-memory vector
// index search_v consults. cmd/helix constructs one per process.
type Database struct {
	Engine *storage.Engine
	Vector *vector.Index
}

// Handler is a compiled query: deserialized params in, a response map (one
// entry per RETURN name) out. Built once per query at load time and
// invoked once per request thereafter.
type Handler func(ctx context.Context, db *Database, params map[string]any) (map[string]any, error)

// Build compiles lq into a Handler. schema supplies field/edge-endpoint
// lookups the same way it does during analysis; lq must have come from a
// Result with no error-severity diagnostics — Build does not re-validate.
func Build(schema *analyzer.SchemaInfo, lq *analyzer.LoweredQuery) Handler {
	mutates := queryMutates(lq.Query)

	return func(ctx context.Context, db *Database, params map[string]any) (resp map[string]any, err error) {
		run := func(txn *storage.Txn) error {
			e := &evalCtx{
				ctx:    ctx,
				schema: schema,
				lq:     lq,
				txn:    txn,
				vecIdx: db.Vector,
				scope:  make(map[string][]traversal.Value),
				remap:  remap.NewChannel(),
			}
			if err := e.bindParams(params); err != nil {
				return err
			}
			if err := e.execStmts(lq.Query.Body); err != nil {
				return err
			}
			resp, err = e.buildResponse()
			return err
		}

		if mutates {
			err = db.Engine.Update(run)
		} else {
			err = db.Engine.View(run)
		}
		return resp, err
	}
}

// queryMutates reports whether any statement in q's body can mutate
// storage (AddN/AddE/AddV, DROP, or an UPDATE step), which decides
// whether Build opens a read-write or read-only transaction.
func queryMutates(q *parser.QueryDecl) bool {
	for _, s := range q.Body {
		if stmtMutates(s) {
			return true
		}
	}
	return false
}

func stmtMutates(s parser.Stmt) bool {
	switch t := s.(type) {
	case *parser.AssignStmt:
		return exprMutates(t.Value)
	case *parser.ExprStmt:
		return exprMutates(t.Value)
	case *parser.DropStmt:
		return true
	case *parser.ForStmt:
		if exprMutates(t.Coll) {
			return true
		}
		for _, s := range t.Body {
			if stmtMutates(s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func exprMutates(e parser.Expr) bool {
	switch t := e.(type) {
	case *parser.AddN, *parser.AddE, *parser.AddV:
		return true
	case *parser.StepChain:
		if exprMutates(t.Base) {
			return true
		}
		for _, step := range t.Steps {
			if _, ok := step.(parser.UpdateStep); ok {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// scalarErr wraps a codegen-time failure with the offending location,
// matching the diagnostic-style errors the rest of the pipeline surfaces.
func scalarErr(loc parser.Loc, format string, args ...any) error {
	return fmt.Errorf("codegen: %s:%d: %s", loc.File, loc.Start, fmt.Sprintf(format, args...))
}
