package parser

import "fmt"

// Parser is a recursive-descent parser over a pre-lexed token stream.
type Parser struct {
	file   string
	toks   []Token
	pos    int
}

// Parse lexes and parses a complete HelixQL source file.
func Parse(file, src string) (*File, error) {
	toks, err := NewLexer(file, src).Tokenize()
	if err != nil {
		return nil, err
	}
	p := &Parser{file: file, toks: toks}
	return p.parseFile()
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peekLoc() Loc { return p.cur().Loc }

func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(kind TokenKind, lit string) bool {
	t := p.cur()
	return t.Kind == kind && (lit == "" || t.Lit == lit)
}

func (p *Parser) atIdent(lit string) bool {
	return p.cur().Kind == TokIdent && p.cur().Lit == lit
}

func (p *Parser) expectPunct(lit string) (Token, error) {
	if p.at(TokPunct, lit) {
		return p.advance(), nil
	}
	return Token{}, p.errf("expected %q, got %q", lit, p.cur().Lit)
}

func (p *Parser) expectIdent() (Token, error) {
	if p.cur().Kind == TokIdent {
		return p.advance(), nil
	}
	return Token{}, p.errf("expected identifier, got %q", p.cur().Lit)
}

func (p *Parser) errf(format string, args ...any) error {
	return &SyntaxError{Loc: p.peekLoc(), Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) parseFile() (*File, error) {
	f := &File{}
	for !p.at(TokEOF, "") {
		switch {
		case p.atIdent("N") && p.peekPunctAt(1, "::"):
			s, err := p.parseNodeSchema()
			if err != nil {
				return nil, err
			}
			f.Schemas = append(f.Schemas, s)
		case p.atIdent("E") && p.peekPunctAt(1, "::"):
			s, err := p.parseEdgeSchema()
			if err != nil {
				return nil, err
			}
			f.Schemas = append(f.Schemas, s)
		case p.atIdent("V") && p.peekPunctAt(1, "::"):
			s, err := p.parseVectorSchema()
			if err != nil {
				return nil, err
			}
			f.Schemas = append(f.Schemas, s)
		case p.atIdent("QUERY"):
			q, err := p.parseQuery()
			if err != nil {
				return nil, err
			}
			f.Queries = append(f.Queries, q)
		default:
			return nil, p.errf("expected a schema (N::/E::/V::) or QUERY declaration, got %q", p.cur().Lit)
		}
	}
	return f, nil
}

func (p *Parser) peekPunctAt(offset int, lit string) bool {
	i := p.pos + offset
	if i >= len(p.toks) {
		return false
	}
	return p.toks[i].Kind == TokPunct && p.toks[i].Lit == lit
}

func (p *Parser) parseNodeSchema() (*NodeSchema, error) {
	start := p.peekLoc()
	p.advance() // N
	if _, err := p.expectPunct("::"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	fields, err := p.parseFieldBlock()
	if err != nil {
		return nil, err
	}
	return &NodeSchema{Name: name.Lit, Fields: fields, Loc: spanFrom(start, p.peekLoc())}, nil
}

func (p *Parser) parseVectorSchema() (*VectorSchema, error) {
	start := p.peekLoc()
	p.advance() // V
	if _, err := p.expectPunct("::"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	fields, err := p.parseFieldBlock()
	if err != nil {
		return nil, err
	}
	return &VectorSchema{Name: name.Lit, Fields: fields, Loc: spanFrom(start, p.peekLoc())}, nil
}

func (p *Parser) parseEdgeSchema() (*EdgeSchema, error) {
	start := p.peekLoc()
	p.advance() // E
	if _, err := p.expectPunct("::"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	es := &EdgeSchema{Name: name.Lit}
	for !p.at(TokPunct, "}") {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		switch key.Lit {
		case "From":
			t, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			es.From = t.Lit
		case "To":
			t, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			es.To = t.Lit
		case "Properties":
			fields, err := p.parseFieldBlock()
			if err != nil {
				return nil, err
			}
			es.Properties = fields
		default:
			return nil, p.errf("unexpected edge schema key %q, want From, To, or Properties", key.Lit)
		}
		p.skipOptComma()
	}
	p.advance() // }
	es.Loc = spanFrom(start, p.peekLoc())
	return es, nil
}

func (p *Parser) skipOptComma() {
	if p.at(TokPunct, ",") {
		p.advance()
	}
}

func (p *Parser) parseFieldBlock() ([]FieldDecl, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var fields []FieldDecl
	for !p.at(TokPunct, "}") {
		fstart := p.peekLoc()
		fd := FieldDecl{}
		if p.atIdent("INDEX") {
			fd.Indexed = true
			p.advance()
		} else if p.atIdent("OPTIONAL") {
			fd.Optional = true
			p.advance()
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		fd.Name = name.Lit
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		fd.Type = t
		if p.atIdent("DEFAULT") {
			p.advance()
			def, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			fd.Default = def
		}
		fd.Loc = spanFrom(fstart, p.peekLoc())
		fields = append(fields, fd)
		p.skipOptComma()
	}
	p.advance() // }
	return fields, nil
}

func (p *Parser) parseType() (TypeExpr, error) {
	start := p.peekLoc()
	name, err := p.expectIdent()
	if err != nil {
		return TypeExpr{}, err
	}
	te := TypeExpr{Name: name.Lit}
	if name.Lit == "Array" && p.at(TokPunct, "<") {
		p.advance()
		elem, err := p.parseType()
		if err != nil {
			return TypeExpr{}, err
		}
		if _, err := p.expectPunct(">"); err != nil {
			return TypeExpr{}, err
		}
		te.Elem = &elem
	}
	te.Loc = spanFrom(start, p.peekLoc())
	return te, nil
}

func (p *Parser) parseQuery() (QueryDecl, error) {
	start := p.peekLoc()
	p.advance() // QUERY
	name, err := p.expectIdent()
	if err != nil {
		return QueryDecl{}, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return QueryDecl{}, err
	}
	var params []ParamDecl
	for !p.at(TokPunct, ")") {
		pstart := p.peekLoc()
		pn, err := p.expectIdent()
		if err != nil {
			return QueryDecl{}, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return QueryDecl{}, err
		}
		t, err := p.parseType()
		if err != nil {
			return QueryDecl{}, err
		}
		params = append(params, ParamDecl{Name: pn.Lit, Type: t, Loc: spanFrom(pstart, p.peekLoc())})
		p.skipOptComma()
	}
	p.advance() // )
	if _, err := p.expectPunct("=>"); err != nil {
		return QueryDecl{}, err
	}
	var body []Stmt
	for !p.atIdent("RETURN") {
		s, err := p.parseStmt()
		if err != nil {
			return QueryDecl{}, err
		}
		body = append(body, s)
	}
	p.advance() // RETURN
	var returns []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return QueryDecl{}, err
		}
		returns = append(returns, e)
		if !p.at(TokPunct, ",") {
			break
		}
		p.advance()
	}
	return QueryDecl{Name: name.Lit, Params: params, Body: body, Returns: returns, Loc: spanFrom(start, p.peekLoc())}, nil
}

func (p *Parser) parseStmt() (Stmt, error) {
	start := p.peekLoc()
	switch {
	case p.atIdent("DROP"):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &DropStmt{Value: e, Loc: spanFrom(start, p.peekLoc())}, nil

	case p.atIdent("FOR"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		var vars []string
		for !p.at(TokPunct, ")") {
			v, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			vars = append(vars, v.Lit)
			p.skipOptComma()
		}
		p.advance() // )
		if !p.atIdent("IN") {
			return nil, p.errf("expected IN in FOR statement, got %q", p.cur().Lit)
		}
		p.advance()
		coll, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		var body []Stmt
		for !p.at(TokPunct, "}") {
			s, err := p.parseStmt()
			if err != nil {
				return nil, err
			}
			body = append(body, s)
		}
		p.advance() // }
		return &ForStmt{Vars: vars, Coll: coll, Body: body, Loc: spanFrom(start, p.peekLoc())}, nil

	case p.cur().Kind == TokIdent && p.peekPunctAt(1, "<-"):
		name := p.advance()
		p.advance() // <-
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignStmt{Name: name.Lit, Value: e, Loc: spanFrom(start, p.peekLoc())}, nil

	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ExprStmt{Value: e, Loc: spanFrom(start, p.peekLoc())}, nil
	}
}

// parseExpr parses OR-level boolean expressions, the loosest-binding
// production, down through AND, comparisons, and primaries.
func (p *Parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atIdent("OR") {
		start := left.Location()
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "OR", Left: left, Right: right, Loc: spanFrom(start, p.peekLoc())}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.atIdent("AND") {
		start := left.Location()
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "AND", Left: left, Right: right, Loc: spanFrom(start, p.peekLoc())}
	}
	return left, nil
}

var comparisonOps = map[string]bool{"EQ": true, "NEQ": true, "GT": true, "GTE": true, "LT": true, "LTE": true}

func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == TokIdent && comparisonOps[p.cur().Lit] {
		op := p.advance().Lit
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{Op: op, Left: left, Right: right, Loc: spanFrom(left.Location(), p.peekLoc())}, nil
	}
	return left, nil
}

// parsePostfix parses a primary expression followed by `.field` accesses
// and then any `::`-chained traversal steps.
func (p *Parser) parsePostfix() (Expr, error) {
	start := p.peekLoc()
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(TokPunct, ".") {
		p.advance()
		f, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		e = &FieldAccess{Base: e, Field: f.Lit, Loc: spanFrom(start, p.peekLoc())}
	}
	if !p.at(TokPunct, "::") {
		return e, nil
	}
	chain := &StepChain{Base: e}
	for p.at(TokPunct, "::") {
		p.advance()
		step, fromTo, err := p.parseStep()
		if err != nil {
			return nil, err
		}
		if fromTo != nil {
			applyFromTo(e, fromTo)
			continue
		}
		chain.Steps = append(chain.Steps, step)
	}
	chain.Loc = spanFrom(start, p.peekLoc())
	return chain, nil
}

// fromToStep carries a `::From(x)`/`::To(x)` step's argument back up to the
// enclosing AddE, which owns From/To rather than treating them as generic
// chain steps.
type fromToStep struct {
	isFrom bool
	value  Expr
}

func applyFromTo(base Expr, ft *fromToStep) {
	ae, ok := base.(*AddE)
	if !ok {
		return
	}
	if ft.isFrom {
		ae.From = ft.value
	} else {
		ae.To = ft.value
	}
}

func (p *Parser) parseStep() (Step, *fromToStep, error) {
	start := p.peekLoc()

	if p.at(TokPunct, "{") {
		names, err := p.parseNameSet()
		if err != nil {
			return nil, nil, err
		}
		return PropertyStep{baseStep{spanFrom(start, p.peekLoc())}, names}, nil, nil
	}
	if p.at(TokPunct, "!") {
		p.advance()
		names, err := p.parseNameSet()
		if err != nil {
			return nil, nil, err
		}
		return ExcludeStep{baseStep{spanFrom(start, p.peekLoc())}, names}, nil, nil
	}
	if p.at(TokPunct, "|") {
		p.advance()
		param, err := p.expectIdent()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct("|"); err != nil {
			return nil, nil, err
		}
		fields, err := p.parseObjectLiteral()
		if err != nil {
			return nil, nil, err
		}
		return LambdaStep{baseStep{spanFrom(start, p.peekLoc())}, param.Lit, fields}, nil, nil
	}

	name, err := p.expectIdent()
	if err != nil {
		return nil, nil, err
	}
	switch name.Lit {
	case "Out":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		return OutStep{baseStep{spanFrom(start, p.peekLoc())}, label}, nil, nil
	case "In":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		return InStep{baseStep{spanFrom(start, p.peekLoc())}, label}, nil, nil
	case "OutE":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		return OutEStep{baseStep{spanFrom(start, p.peekLoc())}, label}, nil, nil
	case "InE":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		return InEStep{baseStep{spanFrom(start, p.peekLoc())}, label}, nil, nil
	case "Both":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		return BothStep{baseStep{spanFrom(start, p.peekLoc())}, label}, nil, nil
	case "BothE":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		return BothEStep{baseStep{spanFrom(start, p.peekLoc())}, label}, nil, nil
	case "BothV":
		return BothVStep{baseStep{spanFrom(start, p.peekLoc())}}, nil, nil
	case "FromN":
		return FromNStep{baseStep{spanFrom(start, p.peekLoc())}}, nil, nil
	case "ToN":
		return ToNStep{baseStep{spanFrom(start, p.peekLoc())}}, nil, nil
	case "From":
		if _, err := p.expectPunct("("); err != nil {
			return nil, nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
		return nil, &fromToStep{isFrom: true, value: v}, nil
	case "To":
		if _, err := p.expectPunct("("); err != nil {
			return nil, nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
		return nil, &fromToStep{isFrom: false, value: v}, nil
	case "WHERE":
		if _, err := p.expectPunct("("); err != nil {
			return nil, nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
		return WhereStep{baseStep{spanFrom(start, p.peekLoc())}, cond}, nil, nil
	case "RANGE":
		if _, err := p.expectPunct("("); err != nil {
			return nil, nil, err
		}
		s, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
		return RangeStep{baseStep{spanFrom(start, p.peekLoc())}, s, e}, nil, nil
	case "COUNT":
		return CountStep{baseStep{spanFrom(start, p.peekLoc())}}, nil, nil
	case "DEDUP":
		return DedupStep{baseStep{spanFrom(start, p.peekLoc())}}, nil, nil
	case "UPDATE":
		if _, err := p.expectPunct("("); err != nil {
			return nil, nil, err
		}
		patch, err := p.parseObjectLiteral()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
		return UpdateStep{baseStep{spanFrom(start, p.peekLoc())}, patch}, nil, nil
	case "ShortestPath":
		label, err := p.parseOptAngleLabel()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct("("); err != nil {
			return nil, nil, err
		}
		from, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, nil, err
		}
		to, err := p.parseExpr()
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, nil, err
		}
		return ShortestPathStep{baseStep{spanFrom(start, p.peekLoc())}, label, from, to}, nil, nil
	default:
		return nil, nil, p.errf("unknown traversal step %q", name.Lit)
	}
}

func (p *Parser) parseOptAngleLabel() (string, error) {
	if !p.at(TokPunct, "<") {
		return "", nil
	}
	p.advance()
	name, err := p.expectIdent()
	if err != nil {
		return "", err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return "", err
	}
	return name.Lit, nil
}

func (p *Parser) parsePrimary() (Expr, error) {
	start := p.peekLoc()
	switch {
	case p.atIdent("_"):
		p.advance()
		return &Anon{Loc: spanFrom(start, p.peekLoc())}, nil

	case p.at(TokPunct, "("):
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil

	case p.cur().Kind == TokString:
		s := p.advance()
		return &Literal{Kind: LitString, Str: s.Lit, Loc: s.Loc}, nil

	case p.cur().Kind == TokNumber:
		n := p.advance()
		return &Literal{Kind: LitNumber, Num: n.Lit, Loc: n.Loc}, nil

	case p.atIdent("true") || p.atIdent("false"):
		b := p.advance()
		return &Literal{Kind: LitBool, Bool: b.Lit == "true", Loc: b.Loc}, nil

	case p.atIdent("NONE"):
		n := p.advance()
		return &Literal{Kind: LitNone, Loc: n.Loc}, nil

	case p.atIdent("EXISTS"):
		p.advance()
		if _, err := p.expectPunct("("); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ExistsExpr{Value: v, Loc: spanFrom(start, p.peekLoc())}, nil

	case p.atIdent("N"):
		return p.parseNodeSource(start)

	case p.atIdent("E"):
		return p.parseEdgeSource(start)

	case p.atIdent("AddN"):
		return p.parseAddN(start)

	case p.atIdent("AddE"):
		return p.parseAddE(start)

	case p.atIdent("AddV"):
		return p.parseAddV(start)

	case p.atIdent("SearchV"):
		return p.parseSearchV(start)

	case p.cur().Kind == TokIdent:
		id := p.advance()
		return &Ident{Name: id.Lit, Loc: id.Loc}, nil

	default:
		return nil, p.errf("unexpected token %q in expression", p.cur().Lit)
	}
}

func (p *Parser) parseNodeSource(start Loc) (Expr, error) {
	p.advance() // N
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	ns := &NodeSource{Type: t.Lit}
	if p.at(TokPunct, "(") {
		p.advance()
		if p.cur().Kind == TokIdent && p.peekPunctAt(1, "::") {
			field := p.advance()
			p.advance() // ::
			val, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ns.IndexField = field.Lit
			ns.IndexValue = val
		} else {
			id, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			ns.ID = id
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	ns.Loc = spanFrom(start, p.peekLoc())
	return ns, nil
}

func (p *Parser) parseEdgeSource(start Loc) (Expr, error) {
	p.advance() // E
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	es := &EdgeSource{Type: t.Lit}
	if p.at(TokPunct, "(") {
		p.advance()
		id, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		es.ID = id
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	es.Loc = spanFrom(start, p.peekLoc())
	return es, nil
}

func (p *Parser) parseAddN(start Loc) (Expr, error) {
	p.advance() // AddN
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	props, err := p.parseObjectLiteral()
	if err != nil {
		return nil, err
	}
	return &AddN{Type: t.Lit, Props: props, Loc: spanFrom(start, p.peekLoc())}, nil
}

func (p *Parser) parseAddE(start Loc) (Expr, error) {
	p.advance() // AddE
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	props, err := p.parseObjectLiteral()
	if err != nil {
		return nil, err
	}
	return &AddE{Type: t.Lit, Props: props, Loc: spanFrom(start, p.peekLoc())}, nil
}

func (p *Parser) parseAddV(start Loc) (Expr, error) {
	p.advance() // AddV
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	vec, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	av := &AddV{Type: t.Lit, Embedding: vec}
	if p.at(TokPunct, ",") {
		p.advance()
		props, err := p.parseObjectLiteral()
		if err != nil {
			return nil, err
		}
		av.Props = props
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	av.Loc = spanFrom(start, p.peekLoc())
	return av, nil
}

func (p *Parser) parseSearchV(start Loc) (Expr, error) {
	p.advance() // SearchV
	if _, err := p.expectPunct("<"); err != nil {
		return nil, err
	}
	t, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(">"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	vec, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	k, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return &SearchV{Type: t.Lit, Vec: vec, K: k, Loc: spanFrom(start, p.peekLoc())}, nil
}

func (p *Parser) parseObjectLiteral() (map[string]Expr, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	m := make(map[string]Expr)
	for !p.at(TokPunct, "}") {
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		m[key.Lit] = v
		p.skipOptComma()
	}
	p.advance() // }
	return m, nil
}

func (p *Parser) parseNameSet() ([]string, error) {
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var names []string
	for !p.at(TokPunct, "}") {
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		names = append(names, id.Lit)
		p.skipOptComma()
	}
	p.advance() // }
	return names, nil
}

func spanFrom(start, end Loc) Loc {
	return Loc{File: start.File, Start: start.Start, End: end.Start, SpanText: ""}
}
