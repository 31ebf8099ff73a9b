package frontend

import (
	"github.com/tcbbd/dragon-Compiler/internal/ast"
)

// Parser is a hand-written recursive-descent parser over the token stream
// produced by Lexer. It never backtracks: every production is chosen by one
// token of lookahead.
type Parser struct {
	lex *Lexer
}

// Parse lexes and parses src into a PROGRAM ast.Node, or returns the first
// syntax error encountered.
func Parse(src string) (n *ast.Node, err error) {
	p := &Parser{lex: NewLexer(src)}
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(*ast.Error); ok {
				err = e
				return
			}
			panic(r)
		}
	}()
	return p.parseUnit(), nil
}

func (p *Parser) fail(loc ast.Location, format string, args ...interface{}) {
	panic(ast.Errorf(loc, format, args...))
}

func (p *Parser) peek() token { return p.lex.Peek() }
func (p *Parser) next() token { return p.lex.Next() }

func (p *Parser) expectKeyword(kw string) token {
	t := p.next()
	if t.kind != tKeyword || t.text != kw {
		p.fail(t.loc, "expected %q, got %q", kw, t.text)
	}
	return t
}

func (p *Parser) expectPunct(s string) token {
	t := p.next()
	if t.kind != tPunct || t.text != s {
		p.fail(t.loc, "expected %q, got %q", s, t.text)
	}
	return t
}

func (p *Parser) expectIdent() token {
	t := p.next()
	if t.kind != tIdent {
		p.fail(t.loc, "expected identifier, got %q", t.text)
	}
	return t
}

func (p *Parser) atKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tKeyword && t.text == kw
}

func (p *Parser) atPunct(s string) bool {
	t := p.peek()
	return t.kind == tPunct && t.text == s
}

// parseUnit parses a sequence of top-level type/function declarations
// followed by exactly one "program" entry point.
func (p *Parser) parseUnit() *ast.Node {
	start := p.peek().loc
	var globals []*ast.Node
	for p.atKeyword("type") || p.atKeyword("func") {
		if p.atKeyword("type") {
			globals = append(globals, p.parseTypeDecl())
		} else {
			globals = append(globals, p.parseFuncDecl())
		}
	}
	globals = append(globals, p.parseProgram())

	end := p.peek().loc
	return &ast.Node{Typ: ast.PROGRAM, Loc: span(start, end), Children: []*ast.Node{
		{Typ: ast.GLOBAL_LIST, Children: globals},
	}}
}

func span(a, b ast.Location) ast.Location {
	return ast.Location{Line: a.Line, Col: a.Col, EndLine: b.EndLine, EndCol: b.EndCol}
}

func (p *Parser) parseTypeName() *ast.Node {
	t := p.next()
	if t.kind != tIdent && t.kind != tKeyword {
		p.fail(t.loc, "expected type name, got %q", t.text)
	}
	return &ast.Node{Typ: ast.TYPE_REF, Loc: t.loc, Data: t.text}
}

func (p *Parser) parseTypeDecl() *ast.Node {
	start := p.expectKeyword("type").loc
	name := p.expectIdent()
	var super string
	if p.atKeyword("extends") {
		p.next()
		super = p.expectIdent().text
	}
	p.expectKeyword("is")

	if p.atKeyword("array") {
		if super != "" {
			p.fail(name.loc, "array type %q cannot extend %q", name.text, super)
		}
		p.next()
		p.expectKeyword("of")
		lengthExpr := p.parseExpr()
		elemType := p.parseTypeName()
		p.optionalSemi()
		return &ast.Node{
			Typ: ast.ARRAY_DECL, Loc: span(start, elemType.Loc), Data: name.text,
			Children: []*ast.Node{lengthExpr, elemType},
		}
	}

	p.expectKeyword("class")

	var body []*ast.Node
	for !p.atKeyword("end") {
		if p.atKeyword("var") {
			body = append(body, p.parseFieldDecl())
		} else if p.atKeyword("func") {
			body = append(body, p.parseMethodDecl())
		} else {
			t := p.peek()
			p.fail(t.loc, "expected field or method declaration, got %q", t.text)
		}
	}
	p.expectKeyword("end")
	end := p.expectKeyword("class")
	p.optionalSemi()

	return &ast.Node{
		Typ: ast.CLASS_DECL, Loc: span(start, end.loc), Data: [2]string{name.text, super},
		Children: []*ast.Node{{Typ: ast.CLASS_BODY, Children: body}},
	}
}

func (p *Parser) optionalSemi() {
	if p.atPunct(";") {
		p.next()
	}
}

func (p *Parser) parseFieldDecl() *ast.Node {
	start := p.expectKeyword("var").loc
	names := p.parseIdentList()
	p.expectKeyword("is")
	ty := p.parseTypeName()
	p.optionalSemi()
	return &ast.Node{
		Typ: ast.FIELD_DECL, Loc: span(start, ty.Loc),
		Children: []*ast.Node{{Typ: ast.VARIABLE_LIST, Data: names}, ty},
	}
}

func (p *Parser) parseIdentList() []string {
	var names []string
	names = append(names, p.expectIdent().text)
	for p.atPunct(",") {
		p.next()
		names = append(names, p.expectIdent().text)
	}
	return names
}

func (p *Parser) parseParamList() *ast.Node {
	p.expectPunct("(")
	var params []*ast.Node
	if !p.atPunct(")") {
		for {
			nameTok := p.expectIdent()
			p.expectKeyword("is")
			ty := p.parseTypeName()
			params = append(params, &ast.Node{
				Typ: ast.TYPED_VARIABLE_LIST, Loc: span(nameTok.loc, ty.Loc),
				Children: []*ast.Node{{Typ: ast.VARIABLE_LIST, Data: []string{nameTok.text}}, ty},
			})
			if p.atPunct(",") {
				p.next()
				continue
			}
			break
		}
	}
	p.expectPunct(")")
	return &ast.Node{Typ: ast.PARAMETER_LIST, Children: params}
}

// parseFuncDeclCommon parses everything shared by free functions and
// methods: "func" NAME "(" params ")" ["returns" TYPE] "is" locals "begin"
// stmts "end" "func".
func (p *Parser) parseFuncDeclCommon() (start ast.Location, name string, params, locals, body *ast.Node, retType *ast.Node, end ast.Location) {
	start = p.expectKeyword("func").loc
	name = p.expectIdent().text
	params = p.parseParamList()
	if p.atKeyword("returns") {
		p.next()
		retType = p.parseTypeName()
	} else {
		retType = &ast.Node{Typ: ast.TYPE_REF, Data: "void"}
	}
	p.expectKeyword("is")

	var decls []*ast.Node
	for p.atKeyword("var") {
		decls = append(decls, p.parseLocalVarDecl())
	}
	locals = &ast.Node{Typ: ast.DECLARATION_LIST, Children: decls}

	p.expectKeyword("begin")
	body = p.parseStmtList(func() bool { return p.atKeyword("end") })
	p.expectKeyword("end")
	end = p.expectKeyword("func").loc
	p.optionalSemi()
	return
}

func (p *Parser) parseLocalVarDecl() *ast.Node {
	start := p.expectKeyword("var").loc
	names := p.parseIdentList()
	p.expectKeyword("is")
	ty := p.parseTypeName()
	p.optionalSemi()
	return &ast.Node{
		Typ: ast.VAR_DECL_STMT, Loc: span(start, ty.Loc),
		Children: []*ast.Node{{Typ: ast.VARIABLE_LIST, Data: names}, ty},
	}
}

func (p *Parser) parseFuncDecl() *ast.Node {
	start, name, params, locals, body, ret, end := p.parseFuncDeclCommon()
	return &ast.Node{
		Typ: ast.FUNCTION_DECL, Loc: span(start, end), Data: name,
		Children: []*ast.Node{params, ret, locals, body},
	}
}

func (p *Parser) parseMethodDecl() *ast.Node {
	start, name, params, locals, body, ret, end := p.parseFuncDeclCommon()
	return &ast.Node{
		Typ: ast.METHOD_DECL, Loc: span(start, end), Data: name,
		Children: []*ast.Node{params, ret, locals, body},
	}
}

func (p *Parser) parseProgram() *ast.Node {
	start := p.expectKeyword("program").loc
	name := p.expectIdent().text

	var decls []*ast.Node
	for p.atKeyword("var") {
		decls = append(decls, p.parseLocalVarDecl())
	}
	p.expectKeyword("is")
	p.expectKeyword("begin")
	body := p.parseStmtList(func() bool { return p.atKeyword("end") })
	end := p.expectKeyword("end").loc
	p.optionalSemi()

	return &ast.Node{
		Typ: ast.FUNCTION_DECL, Loc: span(start, end), Data: name,
		Children: []*ast.Node{
			{Typ: ast.PARAMETER_LIST},
			{Typ: ast.TYPE_REF, Data: "void"},
			{Typ: ast.DECLARATION_LIST, Children: decls},
			body,
		},
	}
}

func (p *Parser) parseStmtList(stop func() bool) *ast.Node {
	start := p.peek().loc
	var stmts []*ast.Node
	for !stop() && p.peek().kind != tEOF {
		stmts = append(stmts, p.parseStmt())
	}
	return &ast.Node{Typ: ast.BLOCK, Loc: start, Children: stmts}
}

func (p *Parser) parseStmt() *ast.Node {
	t := p.peek()
	switch {
	case t.kind == tPunct && t.text == ";":
		p.next()
		return &ast.Node{Typ: ast.NULL_STMT, Loc: t.loc}
	case t.kind == tKeyword && t.text == "var":
		return p.parseLocalVarDecl()
	case t.kind == tKeyword && t.text == "return":
		return p.parseReturnStmt()
	case t.kind == tKeyword && t.text == "print":
		return p.parsePrintStmt()
	case t.kind == tKeyword && t.text == "if":
		return p.parseIfStmt()
	case t.kind == tKeyword && t.text == "while":
		return p.parseWhileStmt()
	case t.kind == tKeyword && t.text == "repeat":
		return p.parseRepeatStmt()
	case t.kind == tKeyword && t.text == "foreach":
		return p.parseForeachStmt()
	case t.kind == tKeyword && t.text == "break":
		p.next()
		p.optionalSemi()
		return &ast.Node{Typ: ast.BREAK_STMT, Loc: t.loc}
	case t.kind == tKeyword && t.text == "continue":
		p.next()
		p.optionalSemi()
		return &ast.Node{Typ: ast.CONTINUE_STMT, Loc: t.loc}
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseReturnStmt() *ast.Node {
	start := p.expectKeyword("return").loc
	if p.atPunct(";") || p.atKeyword("end") {
		p.optionalSemi()
		return &ast.Node{Typ: ast.RETURN_STMT, Loc: start}
	}
	e := p.parseExpr()
	p.optionalSemi()
	return &ast.Node{Typ: ast.RETURN_STMT, Loc: span(start, e.Loc), Children: []*ast.Node{e}}
}

func (p *Parser) parsePrintStmt() *ast.Node {
	start := p.expectKeyword("print").loc
	var items []*ast.Node
	items = append(items, p.parseExpr())
	for p.atPunct(",") {
		p.next()
		items = append(items, p.parseExpr())
	}
	p.optionalSemi()
	return &ast.Node{
		Typ: ast.PRINT_STMT, Loc: start,
		Children: []*ast.Node{{Typ: ast.PRINT_LIST, Children: items}},
	}
}

func (p *Parser) parseIfStmt() *ast.Node {
	start := p.expectKeyword("if").loc
	cond := p.parseExpr()
	p.expectKeyword("then")
	then := p.parseStmtList(func() bool {
		return p.atKeyword("elif") || p.atKeyword("else") || p.atKeyword("end")
	})

	children := []*ast.Node{cond, then}
	for p.atKeyword("elif") {
		p.next()
		ec := p.parseExpr()
		p.expectKeyword("then")
		eb := p.parseStmtList(func() bool {
			return p.atKeyword("elif") || p.atKeyword("else") || p.atKeyword("end")
		})
		children = append(children, ec, eb)
	}
	if p.atKeyword("else") {
		p.next()
		elseBody := p.parseStmtList(func() bool { return p.atKeyword("end") })
		children = append(children, elseBody)
	}
	p.expectKeyword("end")
	end := p.expectKeyword("if").loc
	p.optionalSemi()
	return &ast.Node{Typ: ast.IF_STMT, Loc: span(start, end), Children: children}
}

func (p *Parser) parseWhileStmt() *ast.Node {
	start := p.expectKeyword("while").loc
	cond := p.parseExpr()
	p.expectKeyword("do")
	body := p.parseStmtList(func() bool { return p.atKeyword("end") })
	p.expectKeyword("end")
	end := p.expectKeyword("while").loc
	p.optionalSemi()
	return &ast.Node{Typ: ast.WHILE_STMT, Loc: span(start, end), Children: []*ast.Node{cond, body}}
}

func (p *Parser) parseRepeatStmt() *ast.Node {
	start := p.expectKeyword("repeat").loc
	body := p.parseStmtList(func() bool { return p.atKeyword("until") })
	p.expectKeyword("until")
	cond := p.parseExpr()
	end := cond.Loc
	p.optionalSemi()
	return &ast.Node{Typ: ast.REPEAT_STMT, Loc: span(start, end), Children: []*ast.Node{body, cond}}
}

func (p *Parser) parseForeachStmt() *ast.Node {
	start := p.expectKeyword("foreach").loc
	iter := p.expectIdent().text
	p.expectKeyword("in")
	arr := p.parseExpr()
	p.expectKeyword("do")
	body := p.parseStmtList(func() bool { return p.atKeyword("end") })
	p.expectKeyword("end")
	end := p.expectKeyword("foreach").loc
	p.optionalSemi()
	return &ast.Node{
		Typ: ast.FOREACH_STMT, Loc: span(start, end), Data: iter,
		Children: []*ast.Node{arr, body},
	}
}

func (p *Parser) parseExprOrAssignStmt() *ast.Node {
	e := p.parseExpr()
	if p.atPunct(":=") {
		p.next()
		rhs := p.parseExpr()
		p.optionalSemi()
		return &ast.Node{Typ: ast.ASSIGN_STMT, Loc: span(e.Loc, rhs.Loc), Children: []*ast.Node{e, rhs}}
	}
	p.optionalSemi()
	return e
}

// Operator precedence, low to high. Rows from spec.md §4.4 collapsed into a
// standard C-like ladder; the spec only fixes grouping by result category,
// not a total order, so this is one reasonable linearisation of it.
var precedence = map[string]int{
	"or": 1, "and": 2,
	"==": 3, "!=": 3, "<": 4, "<=": 4, ">": 4, ">=": 4,
	"|": 5, "^": 5, "&": 6,
	"<<": 7, ">>": 7,
	"+": 8, "-": 8,
	"*": 9, "/": 9, "%": 9,
}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinary(1)
}

func (p *Parser) parseBinary(minPrec int) *ast.Node {
	lhs := p.parseUnary()
	for {
		t := p.peek()
		op := t.text
		prec, ok := precedence[op]
		if !ok || prec < minPrec {
			return lhs
		}
		if t.kind != tPunct && t.kind != tKeyword {
			return lhs
		}
		p.next()
		rhs := p.parseBinary(prec + 1)
		lhs = &ast.Node{Typ: ast.BINARY_EXPR, Loc: span(lhs.Loc, rhs.Loc), Data: op, Children: []*ast.Node{lhs, rhs}}
	}
}

func (p *Parser) parseUnary() *ast.Node {
	t := p.peek()
	if (t.kind == tPunct && t.text == "-") || (t.kind == tKeyword && t.text == "not") {
		p.next()
		operand := p.parseUnary()
		return &ast.Node{Typ: ast.UNARY_EXPR, Loc: span(t.loc, operand.Loc), Data: t.text, Children: []*ast.Node{operand}}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	e := p.parsePrimary()
	for {
		switch {
		case p.atPunct("."):
			p.next()
			field := p.expectIdent()
			e = &ast.Node{Typ: ast.FIELD_ACCESS_EXPR, Loc: span(e.Loc, field.loc), Data: field.text, Children: []*ast.Node{e}}
		case p.atPunct("["):
			p.next()
			idx := p.parseExpr()
			end := p.expectPunct("]").loc
			e = &ast.Node{Typ: ast.ARRAY_ACCESS_EXPR, Loc: span(e.Loc, end), Children: []*ast.Node{e, idx}}
		case p.atPunct("("):
			p.next()
			var args []*ast.Node
			if !p.atPunct(")") {
				args = append(args, p.parseExpr())
				for p.atPunct(",") {
					p.next()
					args = append(args, p.parseExpr())
				}
			}
			end := p.expectPunct(")").loc
			e = &ast.Node{
				Typ: ast.CALL_EXPR, Loc: span(e.Loc, end),
				Children: []*ast.Node{e, {Typ: ast.ARGUMENT_LIST, Children: args}},
			}
		default:
			return e
		}
	}
}

func (p *Parser) parsePrimary() *ast.Node {
	t := p.next()
	switch {
	case t.kind == tInt:
		return &ast.Node{Typ: ast.INTEGER_LIT, Loc: t.loc, Data: t.ival}
	case t.kind == tString:
		return &ast.Node{Typ: ast.STRING_LIT, Loc: t.loc, Data: t.text}
	case t.kind == tKeyword && t.text == "true":
		return &ast.Node{Typ: ast.BOOLEAN_LIT, Loc: t.loc, Data: true}
	case t.kind == tKeyword && t.text == "false":
		return &ast.Node{Typ: ast.BOOLEAN_LIT, Loc: t.loc, Data: false}
	case t.kind == tKeyword && t.text == "this":
		return &ast.Node{Typ: ast.THIS_EXPR, Loc: t.loc}
	case t.kind == tIdent:
		return &ast.Node{Typ: ast.IDENTIFIER_EXPR, Loc: t.loc, Data: t.text}
	case t.kind == tPunct && t.text == "(":
		e := p.parseExpr()
		p.expectPunct(")")
		return e
	}
	p.fail(t.loc, "unexpected token %q", t.text)
	return nil
}
