package analyzer

import "github.com/helixdb/helix/pkg/parser"

// LoweredQuery is the language-agnostic form the code generator consumes:
// the query's AST (already validated) annotated with the type every
// expression and bound variable resolved to. Rather than re-expressing
// statements and steps as a second parallel tree, annotations are kept as
// side tables keyed by the AST nodes they describe — the nodes themselves
// already mirror the pipeline adapters one-to-one (a StepChain's Steps are
// exactly source/step/remap adapters in order), so a parallel IR tree
// would just be a renamed copy of the same shapes. ExprTypes uses the
// *parser.Expr pointer identity as its key, which is sound because the
// parser allocates a new node per expression.
type LoweredQuery struct {
	Query      *parser.QueryDecl
	ParamTypes map[string]ElemType
	VarTypes   map[string]ElemType
	ExprTypes  map[parser.Expr]ElemType
	// IndexedFields records, per AddN/AddE/AddV expression, which of its
	// supplied properties are declared INDEX fields in schema — codegen
	// passes this straight to storage.CreateNode/CreateEdge/CreateVectorRecord.
	IndexedFields map[parser.Expr][]string
	// ReturnNames is the RETURN clause's projection names, taken from each
	// returned expression's bound identifier when it is a plain Ident, or
	// synthesized as "_0", "_1", ... otherwise.
	ReturnNames []string
}

// Result is everything Analyze produces for one HelixQL source file.
type Result struct {
	Schema      *SchemaInfo
	Queries     []*LoweredQuery
	Diagnostics []Diagnostic
}

// Analyze runs both passes over a parsed file and returns the lowered IR
// alongside every diagnostic collected; analysis never short-circuits on
// the first error so all problems in a file are reported together.
func Analyze(f *parser.File) *Result {
	schema, diags := BuildSchema(f)
	res := &Result{Schema: schema, Diagnostics: diags}
	for _, q := range f.Queries {
		lq, qdiags := analyzeQuery(schema, q)
		res.Queries = append(res.Queries, lq)
		res.Diagnostics = append(res.Diagnostics, qdiags...)
	}
	return res
}

// HasErrors reports whether any collected diagnostic is an error (as
// opposed to a warning); code generation is blocked when true.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
