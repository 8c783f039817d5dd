// Package parser implements the indentation-sensitive, recursive-descent
// statement parser and the Pratt-style expression parser described in
// spec §4.2. It consumes tokens from a lexer.Lexer and produces a
// []*ast.Node for the current scope. Parser failures are always fatal
// (spec §7): the first malformed token aborts parsing with a located
// diagnostic.
package parser

import (
	"github.com/aveline/stepc/internal/ast"
	"github.com/aveline/stepc/internal/diag"
	"github.com/aveline/stepc/internal/lexer"
	"github.com/aveline/stepc/internal/token"
	"github.com/aveline/stepc/internal/types"
)

// Parser holds parser state: two tokens of lookahead over the lexer,
// plus the shared indentation stack (spec §4.2's "stack of active
// indent widths"). A single indentStack instance is threaded through
// every recursive call that parses a nested block (function body, if
// branch, while body), exactly as the language's own reference
// implementation reuses one parser-wide stack across nested calls to
// the same statement-list parser.
type Parser struct {
	file string
	lex  *lexer.Lexer

	cur  token.Token
	peek token.Token

	// indentStack records the active block indent widths, innermost
	// last. An empty stack means "global scope".
	indentStack []int
}

// New creates a Parser over src, primed with two tokens of lookahead.
func New(file, src string) (*Parser, error) {
	p := &Parser{file: file, lex: lexer.New(file, src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) loc() diag.Location {
	return diag.Location{Row: p.cur.Row, Col: p.cur.Col}
}

func (p *Parser) errorf(format string, args ...any) error {
	return diag.New(p.file, p.loc(), format, args...)
}

// Parse parses the whole token stream at global scope.
func (p *Parser) Parse() ([]*ast.Node, error) {
	return p.parseStatements()
}

// parseStatements is the shared statement-list parser for both global
// scope and any nested block: the indentation semantics (spec §4.2) are
// expressed as a single uniform rule over "this line's indent width"
// (0 when the line begins with a token other than Indent) compared
// against the innermost active indent level (0 at global scope):
//
//   - width == expected: consume the Indent token (if any) and parse
//     one statement at this level.
//   - width < expected: this block has ended; pop this level and
//     return without consuming the line, so the enclosing level(s) can
//     re-examine the same line — this naturally cascades a dedent
//     through multiple enclosing blocks at once, collapsing all the
//     way to global scope when width is 0.
//   - width > expected: a hard indentation error.
func (p *Parser) parseStatements() ([]*ast.Node, error) {
	var nodes []*ast.Node
	for {
		for p.cur.Kind == token.Newline {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.cur.Kind == token.EOF {
			return nodes, nil
		}

		expected := 0
		if n := len(p.indentStack); n > 0 {
			expected = p.indentStack[n-1]
		}
		width := 0
		hasIndent := p.cur.Kind == token.Indent
		if hasIndent {
			width = p.cur.Width
		}

		switch {
		case width == expected:
			if hasIndent {
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
		case width < expected:
			p.indentStack = p.indentStack[:len(p.indentStack)-1]
			return nodes, nil
		default:
			return nil, p.errorf("unexpected indentation")
		}

		node, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
}

// enterBlock validates that the current token is an Indent strictly
// greater than the active level and pushes it onto the indent stack.
// It does not consume the token: the next call to parseStatements will
// consume it as the first line of the new block.
func (p *Parser) enterBlock() error {
	if p.cur.Kind != token.Indent {
		return p.errorf("expected an indented block")
	}
	top := 0
	if n := len(p.indentStack); n > 0 {
		top = p.indentStack[n-1]
	}
	if p.cur.Width <= top {
		return p.errorf("indentation must increase to start a new block")
	}
	p.indentStack = append(p.indentStack, p.cur.Width)
	return nil
}

func (p *Parser) parseStatement() (*ast.Node, error) {
	for p.cur.Kind == token.Newline {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	var node *ast.Node
	var err error
	switch p.cur.Kind {
	case token.Keyword:
		switch p.cur.Keyword {
		case token.KeywordDef:
			node, err = p.parseFunctionDef()
		case token.KeywordVar:
			node, err = p.parseDeclaration()
		case token.KeywordIf:
			node, err = p.parseIfElse()
		case token.KeywordWhile:
			node, err = p.parseWhile()
		case token.KeywordReturn:
			node, err = p.parseReturn()
		case token.KeywordTrue, token.KeywordFalse:
			node, err = p.parseStatementExpression()
		case token.KeywordElse:
			err = p.errorf("unexpected 'else' with no matching 'if'")
		case token.KeywordConst:
			err = p.errorf("'const' is reserved but not yet implemented")
		default:
			err = p.errorf("unexpected keyword %q", p.cur.Keyword)
		}
	case token.Identifier:
		if p.peek.Kind == token.Operator && p.peek.Op == token.Assign {
			node, err = p.parseAssignment()
		} else {
			node, err = p.parseStatementExpression()
		}
	case token.Builtin:
		node, err = p.parseBuiltin()
	default:
		node, err = p.parseStatementExpression()
	}
	if err != nil {
		return nil, err
	}

	if p.cur.Kind == token.Newline {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return node, nil
}

func (p *Parser) parseFunctionDef() (*ast.Node, error) {
	if len(p.indentStack) != 0 {
		return nil, p.errorf("functions may only be declared at the global scope")
	}
	loc := p.loc()
	if err := p.advance(); err != nil { // consume 'def'
		return nil, err
	}

	if p.cur.Kind != token.Identifier {
		return nil, p.errorf("expected a function name after 'def'")
	}
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind != token.LParen {
		return nil, p.errorf("expected '(' after function name")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var params []ast.Param
	if p.cur.Kind != token.RParen {
		var err error
		params, err = p.parseFunctionDefArgs()
		if err != nil {
			return nil, err
		}
	}
	if p.cur.Kind != token.RParen {
		return nil, p.errorf("expected ')' to close the parameter list")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	hasReturnType := false
	var returnType types.Primitive
	if p.cur.Kind == token.Operator && p.cur.Op == token.Arrow {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Kind != token.Identifier {
			return nil, p.errorf("expected a type name after '->'")
		}
		t, ok := types.ParseName(p.cur.Text)
		if !ok {
			return nil, p.errorf("%q is not a valid type", p.cur.Text)
		}
		returnType = t
		hasReturnType = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	} else if p.cur.Kind == token.Operator {
		return nil, p.errorf("unexpected operator %v in function definition", p.cur.Op)
	}

	if p.cur.Kind != token.Colon {
		return nil, p.errorf("expected ':' to start the function body")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Newline {
		return nil, p.errorf("expected a newline after ':'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if err := p.enterBlock(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}

	return &ast.Node{
		Kind:          ast.FunctionDef,
		Loc:           loc,
		Name:          name,
		Params:        params,
		HasReturnType: hasReturnType,
		ReturnType:    returnType,
		Body:          body,
	}, nil
}

func (p *Parser) parseFunctionDefArgs() ([]ast.Param, error) {
	var params []ast.Param
	for p.cur.Kind != token.RParen {
		if p.cur.Kind == token.Newline {
			return nil, p.errorf("newlines are not allowed inside a parameter list")
		}
		if p.cur.Kind == token.EOF {
			return nil, p.errorf("unexpected end of file inside a parameter list")
		}
		if p.cur.Kind != token.Identifier {
			return nil, p.errorf("expected a parameter name")
		}
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.cur.Kind != token.Colon {
			return nil, p.errorf("expected ':' after parameter name")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		if p.cur.Kind != token.Identifier {
			return nil, p.errorf("expected a type name for parameter %q", name)
		}
		t, ok := types.ParseName(p.cur.Text)
		if !ok {
			return nil, p.errorf("%q is not a valid type", p.cur.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}

		params = append(params, ast.Param{Name: name, Type: t})

		if p.cur.Kind == token.Comma {
			if p.peek.Kind != token.Identifier {
				return nil, p.errorf("expected a parameter after ','")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return params, nil
}

func (p *Parser) parseDeclaration() (*ast.Node, error) {
	loc := p.loc()
	if err := p.advance(); err != nil { // consume 'var'
		return nil, err
	}

	if p.cur.Kind != token.Identifier {
		return nil, p.errorf("expected an identifier for the declaration")
	}
	name := p.cur.Text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind != token.Colon {
		return nil, p.errorf("expected ':' after the declared name")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.cur.Kind != token.Identifier {
		return nil, p.errorf("expected a type name after ':'")
	}
	declType, ok := types.ParseName(p.cur.Text)
	if !ok {
		return nil, p.errorf("%q is not a valid type", p.cur.Text)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var init *ast.Node
	switch {
	case p.cur.Kind == token.Operator && p.cur.Op == token.Assign:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression(token.P0)
		if err != nil {
			return nil, err
		}
		init = expr
	case p.cur.Kind == token.Newline || p.cur.Kind == token.EOF:
		// No initializer.
	default:
		return nil, p.errorf("unexpected token after declaration of %q", name)
	}

	return &ast.Node{Kind: ast.Declaration, Loc: loc, Name: name, DeclType: declType, Init: init}, nil
}

func (p *Parser) parseAssignment() (*ast.Node, error) {
	loc := p.loc()
	name := p.cur.Text
	if err := p.advance(); err != nil { // consume identifier
		return nil, err
	}
	if p.cur.Kind != token.Operator || p.cur.Op != token.Assign {
		return nil, p.errorf("expected '=' after %q", name)
	}
	if err := p.advance(); err != nil { // consume '='
		return nil, err
	}
	value, err := p.parseExpression(token.P0)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Assignment, Loc: loc, Name: name, Value: value}, nil
}

func (p *Parser) parseIfElse() (*ast.Node, error) {
	loc := p.loc()
	if err := p.advance(); err != nil { // consume 'if'
		return nil, err
	}
	cond, err := p.parseExpression(token.P0)
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Colon {
		return nil, p.errorf("expected ':' after the 'if' condition")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Newline {
		return nil, p.errorf("expected a newline after ':'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if err := p.enterBlock(); err != nil {
		return nil, err
	}
	then, err := p.parseStatements()
	if err != nil {
		return nil, err
	}

	// Inside a block, an 'else' line starts with an Indent at the width
	// of the enclosing block (the level the 'if' itself was parsed at).
	if p.cur.Kind == token.Indent && p.peek.Kind == token.Keyword && p.peek.Keyword == token.KeywordElse {
		top := 0
		if n := len(p.indentStack); n > 0 {
			top = p.indentStack[n-1]
		}
		if p.cur.Width == top {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if p.cur.Kind != token.Keyword || p.cur.Keyword != token.KeywordElse {
		return &ast.Node{Kind: ast.If, Loc: loc, Cond: cond, Body: then}, nil
	}
	if err := p.advance(); err != nil { // consume 'else'
		return nil, err
	}
	if p.cur.Kind != token.Colon {
		return nil, p.errorf("expected ':' after 'else'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Newline {
		return nil, p.errorf("expected a newline after ':'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if err := p.enterBlock(); err != nil {
		return nil, err
	}
	els, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.If, Loc: loc, Cond: cond, Body: then, Else: els}, nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	loc := p.loc()
	if err := p.advance(); err != nil { // consume 'while'
		return nil, err
	}
	cond, err := p.parseExpression(token.P0)
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Colon {
		return nil, p.errorf("expected ':' after the 'while' condition")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.cur.Kind != token.Newline {
		return nil, p.errorf("expected a newline after ':'")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	if err := p.enterBlock(); err != nil {
		return nil, err
	}
	body, err := p.parseStatements()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.While, Loc: loc, Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn() (*ast.Node, error) {
	loc := p.loc()
	if err := p.advance(); err != nil { // consume 'return'
		return nil, err
	}
	if p.cur.Kind == token.Newline || p.cur.Kind == token.EOF {
		return &ast.Node{Kind: ast.Return, Loc: loc}, nil
	}
	expr, err := p.parseExpression(token.P0)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Return, Loc: loc, Expr: expr, HasExpr: true}, nil
}

func (p *Parser) parseStatementExpression() (*ast.Node, error) {
	loc := p.loc()
	expr, err := p.parseExpression(token.P0)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.SExpression, Loc: loc, Expr: expr}, nil
}

func (p *Parser) parseBuiltin() (*ast.Node, error) {
	loc := p.loc()
	name := p.cur.Text
	if err := p.advance(); err != nil { // consume builtin name
		return nil, err
	}
	if p.cur.Kind != token.LParen {
		return nil, p.errorf("expected '(' after %q", name)
	}
	// Deliberately does not consume the '(' here: parseExpression's
	// primary-expression case handles LParen-grouping, and a builtin
	// call is always written as a single parenthesized argument, so the
	// grouping path does the consuming.
	expr, err := p.parseExpression(token.P0)
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.BuiltinFunction, Loc: loc, Name: name, Expr: expr}, nil
}

// parseExpression implements Pratt-style operator-precedence parsing:
// it first descends to the tightest-binding primary, then climbs back
// up consuming infix operators at exactly the requested precedence
// level (spec §4.2). Structural operators (Assign, Arrow) are tabled at
// P0 but are never consumed as infix operators here — assignment and
// return-type annotation are parsed by dedicated statement-level code
// before an expression parse ever begins, so one trailing the end of a
// fully-parsed expression (e.g. `1 = 2`) is malformed input, not a
// binary operator, and is rejected with a located diagnostic.
func (p *Parser) parseExpression(prec token.Precedence) (*ast.Node, error) {
	if prec >= token.PCount {
		return p.parseOperand()
	}

	lhs, err := p.parseExpression(prec.Next())
	if err != nil {
		return nil, err
	}

	if p.cur.Kind != token.EOF && p.cur.Kind != token.Newline && p.cur.Kind != token.Colon {
		if p.cur.Kind == token.Operator && p.cur.Prec == prec {
			if p.cur.Op == token.Assign || p.cur.Op == token.Arrow {
				return nil, p.errorf("unexpected operator %v in expression", p.cur.Op)
			}
			loc := p.loc()
			op := p.cur.Op
			if err := p.advance(); err != nil {
				return nil, err
			}
			rhs, err := p.parseExpression(prec)
			if err != nil {
				return nil, err
			}
			return &ast.Node{
				Kind:       ast.BinaryOp,
				Loc:        loc,
				Left:       lhs,
				Op:         toASTOp(op),
				Right:      rhs,
				ResultType: types.Void,
			}, nil
		}
	}
	return lhs, nil
}

func (p *Parser) parseOperand() (*ast.Node, error) {
	loc := p.loc()
	switch p.cur.Kind {
	case token.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression(token.P0)
		if err != nil {
			return nil, err
		}
		if p.cur.Kind != token.RParen {
			return nil, p.errorf("expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return expr, nil

	case token.RParen:
		return nil, p.errorf("unexpected ')'")

	case token.Identifier:
		if p.peek.Kind == token.LParen {
			return p.parseFunctionCall()
		}
		name := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Identifier, Loc: loc, Name: name, IdentType: types.Void}, nil

	case token.Integer:
		text := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Literal, Loc: loc, LitType: types.Integer, Text: text}, nil

	case token.Float:
		text := p.cur.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Literal, Loc: loc, LitType: types.Float, Text: text}, nil

	case token.Keyword:
		switch p.cur.Keyword {
		case token.KeywordTrue:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.Literal, Loc: loc, LitType: types.Bool, Text: "true"}, nil
		case token.KeywordFalse:
			if err := p.advance(); err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.Literal, Loc: loc, LitType: types.Bool, Text: "false"}, nil
		}
	}
	return nil, p.errorf("unexpected token %v in expression", p.cur.Kind)
}

func (p *Parser) parseFunctionCall() (*ast.Node, error) {
	loc := p.loc()
	name := p.cur.Text
	if err := p.advance(); err != nil { // consume identifier
		return nil, err
	}
	if p.cur.Kind != token.LParen {
		return nil, p.errorf("expected '(' after function name %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var args []*ast.Node
	if p.cur.Kind != token.RParen {
		var err error
		args, err = p.parseCallArgs()
		if err != nil {
			return nil, err
		}
	}
	if p.cur.Kind != token.RParen {
		return nil, p.errorf("expected ')' to close the call to %q", name)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	return &ast.Node{Kind: ast.FunctionCall, Loc: loc, Name: name, Args: args, CallReturnType: types.Void}, nil
}

func (p *Parser) parseCallArgs() ([]*ast.Node, error) {
	var args []*ast.Node
	for p.cur.Kind != token.RParen {
		if p.cur.Kind == token.Newline {
			return nil, p.errorf("newlines are not allowed inside a call's argument list")
		}
		if p.cur.Kind == token.EOF {
			return nil, p.errorf("unexpected end of file inside a call's argument list")
		}
		expr, err := p.parseExpression(token.P0)
		if err != nil {
			return nil, err
		}
		args = append(args, expr)

		if p.cur.Kind == token.Comma {
			if p.peek.Kind == token.RParen {
				return nil, p.errorf("expected another argument after ','")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	return args, nil
}

func toASTOp(op token.Op) ast.Op {
	switch op {
	case token.Plus:
		return ast.Plus
	case token.Minus:
		return ast.Minus
	case token.Mul:
		return ast.Mul
	case token.Div:
		return ast.Div
	case token.Equal:
		return ast.Equal
	case token.Greater:
		return ast.Greater
	case token.Less:
		return ast.Less
	case token.And:
		return ast.And
	case token.Or:
		return ast.Or
	default:
		panic("parser: structural operator reached toASTOp")
	}
}
