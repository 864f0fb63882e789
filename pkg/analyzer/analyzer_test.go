package analyzer

import (
	"testing"

	"github.com/helixdb/helix/pkg/parser"
)

func mustParse(t *testing.T, src string) *parser.File {
	t.Helper()
	f, err := parser.Parse("test.hql", src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func TestBuildSchemaValidatesEdgeEndpoints(t *testing.T) {
	f := mustParse(t, `
		N::Person { name: String }
		E::Knows { From: Person, To: Ghost }
	`)
	_, diags := BuildSchema(f)
	if len(diags) == 0 {
		t.Fatalf("expected a diagnostic for unknown To label, got none")
	}
}

func TestBuildSchemaAcceptsValidEdges(t *testing.T) {
	f := mustParse(t, `
		N::Person { INDEX name: String }
		E::Knows { From: Person, To: Person }
	`)
	_, diags := BuildSchema(f)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
}

// TestDuplicateAssignmentDiagnostic mirrors spec end-to-end scenario 5:
// QUERY q() => u <- N<User> u <- N<User> RETURN u emits an "already
// declared" diagnostic on the second assignment.
func TestDuplicateAssignmentDiagnostic(t *testing.T) {
	f := mustParse(t, `
		N::User { name: String }
		QUERY q() => u <- N<User> u <- N<User> RETURN u
	`)
	schema, _ := BuildSchema(f)
	_, diags := analyzeQuery(schema, f.Queries[0])
	found := false
	for _, d := range diags {
		if d.Message == `"u" is already declared in this query` {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an 'already declared' diagnostic, got %+v", diags)
	}
}

// TestUnknownFieldDiagnostic mirrors spec end-to-end scenario 6:
// schema N::User{name: String}, query QUERY q() => u <- N<User>::{age}
// RETURN u emits "age is not a field of node User".
func TestUnknownFieldDiagnostic(t *testing.T) {
	f := mustParse(t, `
		N::User { name: String }
		QUERY q() => u <- N<User>::{age} RETURN u
	`)
	schema, _ := BuildSchema(f)
	_, diags := analyzeQuery(schema, f.Queries[0])
	found := false
	for _, d := range diags {
		if d.Message == `"age" is not a field of "User"` {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unknown-field diagnostic, got %+v", diags)
	}
}

func TestAnalyzeAcceptsWellTypedQuery(t *testing.T) {
	f := mustParse(t, `
		N::Person { INDEX name: String, age: I64 }
		E::Knows { From: Person, To: Person }
		QUERY friendsOf(id: Uuid) => result <- N<Person>(id)::Out<Knows>::Out<Knows> RETURN result
	`)
	res := Analyze(f)
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	lq := res.Queries[0]
	if lq.VarTypes["result"].Kind != KindNode || lq.VarTypes["result"].Label != "Person" {
		t.Fatalf("result type = %+v, want node Person", lq.VarTypes["result"])
	}
}

func TestAnalyzeDirectionalStepLabelMismatch(t *testing.T) {
	f := mustParse(t, `
		N::Person { name: String }
		N::Company { name: String }
		E::WorksAt { From: Person, To: Company }
		QUERY bad() => x <- N<Company>::Out<WorksAt> RETURN x
	`)
	schema, _ := BuildSchema(f)
	_, diags := analyzeQuery(schema, f.Queries[0])
	if len(diags) == 0 {
		t.Fatalf("expected a label-mismatch diagnostic")
	}
}

func TestAnalyzeIndexedFieldLookup(t *testing.T) {
	f := mustParse(t, `
		N::Person { INDEX name: String }
		QUERY byName(name: String) => p <- N<Person>(name::name) RETURN p
	`)
	res := Analyze(f)
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
}

func TestAnalyzeNonIndexedFieldLookupFails(t *testing.T) {
	f := mustParse(t, `
		N::Person { name: String }
		QUERY byName(name: String) => p <- N<Person>(name::name) RETURN p
	`)
	res := Analyze(f)
	if !res.HasErrors() {
		t.Fatalf("expected an error for a non-indexed field lookup")
	}
}

func TestAnalyzeAddNIndexedFieldsRecorded(t *testing.T) {
	f := mustParse(t, `
		N::Person { INDEX name: String, age: I64 }
		QUERY create(name: String, age: I64) => p <- AddN<Person>{ name: name, age: age } RETURN p
	`)
	res := Analyze(f)
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", res.Diagnostics)
	}
	lq := res.Queries[0]
	addN := lq.Query.Body[0].(*parser.AssignStmt).Value
	indexed := lq.IndexedFields[addN]
	if len(indexed) != 1 || indexed[0] != "name" {
		t.Fatalf("IndexedFields = %+v, want [name]", indexed)
	}
}

func TestAnalyzeDropRequiresNodeOrEdge(t *testing.T) {
	f := mustParse(t, `
		V::Doc { title: String }
		QUERY bad(v: Array<F64>) => d <- SearchV<Doc>(v, 5) DROP 5 RETURN d
	`)
	res := Analyze(f)
	if !res.HasErrors() {
		t.Fatalf("expected an error for DROP on a scalar")
	}
}
