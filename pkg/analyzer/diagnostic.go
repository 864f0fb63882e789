// Package analyzer implements HelixQL's two-pass semantic analyzer: schema
// validation followed by per-query scope and type inference, emitting
// diagnostics and a lowered IR for the code generator. The two-pass shape
// (register the graph shape first, then check usages against it) is
// grounded on straga-Mimir_lite's schema registration happening before
// query execution (constraint/index bookkeeping validated ahead of any
// MATCH running against it), adapted from a runtime check into a static,
// compile-time analysis since HelixQL queries are compiled once rather
// than interpreted per request.
package analyzer

import (
	"fmt"

	"github.com/helixdb/helix/pkg/parser"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one analyzer finding, rendered compiler-style against the
// query source: file, line/column (via Loc), severity, message, an
// optional hint, and an optional suggested fix.
type Diagnostic struct {
	Severity Severity
	Loc      parser.Loc
	Message  string
	Hint     string
	Fix      string // empty if no fix is suggested
}

func errf(loc parser.Loc, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

func errfHint(loc parser.Loc, hint, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: SeverityError, Loc: loc, Message: fmt.Sprintf(format, args...), Hint: hint}
}
