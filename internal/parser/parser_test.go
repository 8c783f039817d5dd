package parser

import (
	"testing"

	"github.com/aveline/stepc/internal/ast"
	"github.com/aveline/stepc/internal/types"
)

func parse(t *testing.T, src string) []*ast.Node {
	t.Helper()
	p, err := New("test.step", src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	nodes, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return nodes
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	p, err := New("test.step", src)
	if err != nil {
		return err
	}
	_, err = p.Parse()
	return err
}

func TestParseDeclarationWithInitializer(t *testing.T) {
	nodes := parse(t, "var x : u64 = 1 + 2\n")
	if len(nodes) != 1 {
		t.Fatalf("got %d statements, want 1", len(nodes))
	}
	decl := nodes[0]
	if decl.Kind != ast.Declaration || decl.Name != "x" || decl.DeclType != types.U64 {
		t.Fatalf("unexpected declaration node: %+v", decl)
	}
	if decl.Init == nil || decl.Init.Kind != ast.BinaryOp || decl.Init.Op != ast.Plus {
		t.Fatalf("unexpected initializer: %+v", decl.Init)
	}
}

func TestParseDeclarationWithoutInitializer(t *testing.T) {
	nodes := parse(t, "var x : bool\n")
	if nodes[0].Init != nil {
		t.Fatalf("expected no initializer, got %+v", nodes[0].Init)
	}
}

func TestParseAssignment(t *testing.T) {
	nodes := parse(t, "x = 5\n")
	if nodes[0].Kind != ast.Assignment || nodes[0].Name != "x" {
		t.Fatalf("unexpected node: %+v", nodes[0])
	}
}

func TestParseFunctionDefWithBody(t *testing.T) {
	src := "def add(a: u64, b: u64) -> u64:\n    return a + b\n"
	nodes := parse(t, src)
	if len(nodes) != 1 || nodes[0].Kind != ast.FunctionDef {
		t.Fatalf("expected a single FunctionDef, got %+v", nodes)
	}
	fn := nodes[0]
	if fn.Name != "add" || len(fn.Params) != 2 || !fn.HasReturnType || fn.ReturnType != types.U64 {
		t.Fatalf("unexpected function header: %+v", fn)
	}
	if len(fn.Body) != 1 || fn.Body[0].Kind != ast.Return {
		t.Fatalf("unexpected function body: %+v", fn.Body)
	}
}

func TestParseFunctionDefRejectsNestedDef(t *testing.T) {
	src := "def outer():\n    def inner():\n        return\n"
	if err := parseErr(t, src); err == nil {
		t.Fatalf("expected an error for a nested function definition")
	}
}

func TestParseNestedIfWhileDedentCascade(t *testing.T) {
	src := "def f():\n" +
		"    if 1 == 1:\n" +
		"        while 1 == 1:\n" +
		"            var x : u64 = 1\n" +
		"    var y : u64 = 2\n"
	nodes := parse(t, src)
	fn := nodes[0]
	if len(fn.Body) != 2 {
		t.Fatalf("expected the dedent to cascade back to the function body, got %d statements: %+v", len(fn.Body), fn.Body)
	}
	if fn.Body[0].Kind != ast.If || fn.Body[1].Kind != ast.Declaration {
		t.Fatalf("unexpected function body shape: %+v", fn.Body)
	}
	ifNode := fn.Body[0]
	if len(ifNode.Body) != 1 || ifNode.Body[0].Kind != ast.While {
		t.Fatalf("unexpected if-body: %+v", ifNode.Body)
	}
	whileNode := ifNode.Body[0]
	if len(whileNode.Body) != 1 || whileNode.Body[0].Kind != ast.Declaration {
		t.Fatalf("unexpected while-body: %+v", whileNode.Body)
	}
}

func TestParseIfElse(t *testing.T) {
	src := "def f():\n" +
		"    if 1 == 1:\n" +
		"        return\n" +
		"    else:\n" +
		"        return\n"
	nodes := parse(t, src)
	ifNode := nodes[0].Body[0]
	if len(ifNode.Else) != 1 {
		t.Fatalf("expected an else branch, got %+v", ifNode.Else)
	}
}

func TestParseIndentationMustIncrease(t *testing.T) {
	src := "def f():\n" +
		"return\n"
	if err := parseErr(t, src); err == nil {
		t.Fatalf("expected an indentation error for an unindented function body")
	}
}

func TestParseUnexpectedIndentIsFatal(t *testing.T) {
	src := "var x : u64\n    var y : u64\n"
	if err := parseErr(t, src); err == nil {
		t.Fatalf("expected an error for an unexpected indent at global scope")
	}
}

func TestParseFunctionCallExpression(t *testing.T) {
	nodes := parse(t, "f(1, 2 + 3)\n")
	expr := nodes[0].Expr
	if expr.Kind != ast.FunctionCall || expr.Name != "f" || len(expr.Args) != 2 {
		t.Fatalf("unexpected call node: %+v", expr)
	}
}

func TestParseFunctionCallTrailingCommaIsFatal(t *testing.T) {
	if err := parseErr(t, "f(1, 2,)\n"); err == nil {
		t.Fatalf("expected a trailing-comma error")
	}
}

func TestParseFunctionCallNewlineInArgsIsFatal(t *testing.T) {
	if err := parseErr(t, "f(1,\n2)\n"); err == nil {
		t.Fatalf("expected a newline-in-argument-list error")
	}
}

// TestParseStructuralOperatorInExpressionIsFatal guards against '=' and
// '->' being consumed as infix BinaryOp operators: both are tabled at
// P0 for the statement-level parsers that own them, but must never
// reach parseExpression's infix check, which would otherwise hand them
// to toASTOp and panic instead of producing a located diagnostic.
func TestParseStructuralOperatorInExpressionIsFatal(t *testing.T) {
	for _, src := range []string{
		"1 = 2\n",
		"print_int(1 = 2)\n",
		"var x : u64 = (x = 1)\n",
		"var x : u64 = 1 -> 2\n",
	} {
		if err := parseErr(t, src); err == nil {
			t.Fatalf("expected a located parse error for %q, got none", src)
		}
	}
}

func TestParseBuiltinCall(t *testing.T) {
	nodes := parse(t, "print_int(1 + 2)\n")
	if nodes[0].Kind != ast.BuiltinFunction || nodes[0].Name != "print_int" {
		t.Fatalf("unexpected node: %+v", nodes[0])
	}
	if nodes[0].Expr.Kind != ast.BinaryOp {
		t.Fatalf("unexpected builtin argument: %+v", nodes[0].Expr)
	}
}

func TestParseExpressionPrecedence(t *testing.T) {
	// 1 + 2 * 3 should bind as 1 + (2 * 3): the BinaryOp's Right is the
	// multiplication, never the left.
	nodes := parse(t, "x = 1 + 2 * 3\n")
	add := nodes[0].Value
	if add.Kind != ast.BinaryOp || add.Op != ast.Plus {
		t.Fatalf("expected a top-level '+', got %+v", add)
	}
	if add.Right.Kind != ast.BinaryOp || add.Right.Op != ast.Mul {
		t.Fatalf("expected '*' to bind tighter than '+', got %+v", add.Right)
	}
}

func TestParseParenthesizedExpression(t *testing.T) {
	nodes := parse(t, "x = (1 + 2) * 3\n")
	mul := nodes[0].Value
	if mul.Kind != ast.BinaryOp || mul.Op != ast.Mul {
		t.Fatalf("expected a top-level '*', got %+v", mul)
	}
	if mul.Left.Kind != ast.BinaryOp || mul.Left.Op != ast.Plus {
		t.Fatalf("expected the parenthesized '+' on the left, got %+v", mul.Left)
	}
}

func TestParseBoolLiterals(t *testing.T) {
	nodes := parse(t, "var ok : bool = true\n")
	if nodes[0].Init.LitType != types.Bool || nodes[0].Init.Text != "true" {
		t.Fatalf("unexpected literal: %+v", nodes[0].Init)
	}
}

func TestParseReturnWithoutExpression(t *testing.T) {
	nodes := parse(t, "def f():\n    return\n")
	ret := nodes[0].Body[0]
	if ret.Kind != ast.Return || ret.HasExpr || ret.Expr != nil {
		t.Fatalf("unexpected bare return: %+v", ret)
	}
}

func TestParseWhileLoop(t *testing.T) {
	nodes := parse(t, "def f():\n    while 1 == 1:\n        return\n")
	while := nodes[0].Body[0]
	if while.Kind != ast.While || while.Cond == nil || len(while.Body) != 1 {
		t.Fatalf("unexpected while node: %+v", while)
	}
}

func TestParseElseWithoutIfIsFatal(t *testing.T) {
	if err := parseErr(t, "else:\n    return\n"); err == nil {
		t.Fatalf("expected an error for a dangling 'else'")
	}
}

func TestParseMultipleTopLevelFunctions(t *testing.T) {
	src := "def a():\n    return\ndef b():\n    return\n"
	nodes := parse(t, src)
	if len(nodes) != 2 || nodes[0].Name != "a" || nodes[1].Name != "b" {
		t.Fatalf("unexpected top-level nodes: %+v", nodes)
	}
}
