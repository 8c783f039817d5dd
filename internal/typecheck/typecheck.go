// Package typecheck runs the three destructive passes described in
// spec §4.3 over a parsed program: registering function signatures,
// alpha-renaming shadowed variables, and resolving every expression's
// concrete type by unifying ambiguous literal types with context via a
// dominant-type lattice. The rename and resolve passes rewrite the AST in place, the
// same destructive style original_source/type_checker.rs uses (renamed
// names and resolved types are written back into the same nodes the
// parser built).
package typecheck

import (
	"strconv"

	"github.com/aveline/stepc/internal/ast"
	"github.com/aveline/stepc/internal/diag"
	"github.com/aveline/stepc/internal/types"
)

type scopedVar struct {
	Name string
	Type types.Primitive
}

type funcSig struct {
	ParamTypes    []types.Primitive
	ReturnType    types.Primitive
	HasReturnType bool
}

// Checker holds the mutable state threaded through all three passes.
type Checker struct {
	file string

	scopes      []map[string]scopedVar
	varTypes    map[string]types.Primitive
	varRefCount map[string]int
	functions   map[string]funcSig

	currentFunc *funcSig
}

// Check runs register/rename/resolve over program, rewriting it in
// place. The first fatal condition aborts with a located *diag.Error.
func Check(file string, program []*ast.Node) error {
	c := &Checker{
		file:        file,
		varTypes:    make(map[string]types.Primitive),
		varRefCount: make(map[string]int),
		functions:   make(map[string]funcSig),
	}
	if err := c.registerFunctions(program); err != nil {
		return err
	}
	if err := c.renameStatements(program); err != nil {
		return err
	}
	return c.resolveStatements(program)
}

func (c *Checker) errorf(loc diag.Location, format string, args ...any) error {
	return diag.New(c.file, loc, format, args...)
}

func (c *Checker) mismatch(loc diag.Location, left, right types.Primitive) error {
	return c.errorf(loc, "type mismatch: %v is not compatible with %v", left, right)
}

// --- pass 1: register functions ---

func (c *Checker) registerFunctions(program []*ast.Node) error {
	for _, n := range program {
		if n.Kind != ast.FunctionDef {
			continue
		}
		if _, exists := c.functions[n.Name]; exists {
			return c.errorf(n.Loc, "function %q is already defined", n.Name)
		}
		paramTypes := make([]types.Primitive, len(n.Params))
		for i, p := range n.Params {
			paramTypes[i] = p.Type
		}
		c.functions[n.Name] = funcSig{
			ParamTypes:    paramTypes,
			ReturnType:    n.ReturnType,
			HasReturnType: n.HasReturnType,
		}
	}
	return nil
}

// --- pass 2: alpha-rename ---

func (c *Checker) advanceRefCounter(name string) (int, bool) {
	n, ok := c.varRefCount[name]
	if !ok {
		c.varRefCount[name] = 0
		return 0, false
	}
	c.varRefCount[name] = n + 1
	return n, true
}

// declareVar binds name in the innermost scope, renaming it to
// "name_N" on every occurrence past the first, and returns the name
// actually bound (the original name itself on first declaration).
func (c *Checker) declareVar(name string, t types.Primitive) string {
	if n, shadowed := c.advanceRefCounter(name); shadowed {
		newName := renamedName(name, n)
		c.scopes[len(c.scopes)-1][name] = scopedVar{Name: newName, Type: t}
		c.varTypes[newName] = t
		return newName
	}
	c.scopes[len(c.scopes)-1][name] = scopedVar{Name: name, Type: t}
	c.varTypes[name] = t
	return name
}

func renamedName(name string, n int) string {
	return name + "_" + strconv.Itoa(n)
}

func (c *Checker) getVar(name string) (scopedVar, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	return scopedVar{}, false
}

func (c *Checker) declareParams(fn *ast.Node) error {
	seen := make(map[string]bool, len(fn.Params))
	for i := range fn.Params {
		p := &fn.Params[i]
		if seen[p.Name] {
			return c.errorf(fn.Loc, "duplicate parameter name %q", p.Name)
		}
		seen[p.Name] = true
		p.Name = c.declareVar(p.Name, p.Type)
	}
	return nil
}

func (c *Checker) renameStatements(nodes []*ast.Node) error {
	c.scopes = append(c.scopes, make(map[string]scopedVar))
	for _, n := range nodes {
		switch n.Kind {
		case ast.FunctionDef:
			c.scopes = append(c.scopes, make(map[string]scopedVar))
			if err := c.declareParams(n); err != nil {
				return err
			}
			if err := c.renameStatements(n.Body); err != nil {
				return err
			}
			c.scopes = c.scopes[:len(c.scopes)-1]

		case ast.Assignment:
			if err := c.renameExpr(n.Value); err != nil {
				return err
			}
			v, ok := c.getVar(n.Name)
			if !ok {
				return c.errorf(n.Loc, "variable %q was not declared", n.Name)
			}
			n.Name = v.Name

		case ast.SExpression:
			if err := c.renameExpr(n.Expr); err != nil {
				return err
			}

		case ast.BuiltinFunction:
			if err := c.renameExpr(n.Expr); err != nil {
				return err
			}

		case ast.Declaration:
			if n.Init != nil {
				if err := c.renameExpr(n.Init); err != nil {
					return err
				}
			}
			n.Name = c.declareVar(n.Name, n.DeclType)

		case ast.If:
			if err := c.renameExpr(n.Cond); err != nil {
				return err
			}
			if err := c.renameStatements(n.Body); err != nil {
				return err
			}
			if n.Else != nil {
				if err := c.renameStatements(n.Else); err != nil {
					return err
				}
			}

		case ast.While:
			if err := c.renameExpr(n.Cond); err != nil {
				return err
			}
			if err := c.renameStatements(n.Body); err != nil {
				return err
			}

		case ast.Return:
			if n.HasExpr {
				if err := c.renameExpr(n.Expr); err != nil {
					return err
				}
			}

		default:
			panic("typecheck: unexpected expression node used as a statement")
		}
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
	return nil
}

func (c *Checker) renameExpr(node *ast.Node) error {
	switch node.Kind {
	case ast.BinaryOp:
		if err := c.renameExpr(node.Left); err != nil {
			return err
		}
		return c.renameExpr(node.Right)

	case ast.Literal:
		return nil

	case ast.Identifier:
		v, ok := c.getVar(node.Name)
		if !ok {
			return c.errorf(node.Loc, "variable %q was not declared", node.Name)
		}
		node.Name = v.Name
		node.IdentType = v.Type
		return nil

	case ast.FunctionCall:
		for _, arg := range node.Args {
			if err := c.renameExpr(arg); err != nil {
				return err
			}
		}
		return nil

	default:
		panic("typecheck: unexpected statement node in expression position during renaming")
	}
}

// --- pass 3: resolve types ---

func (c *Checker) resolveStatements(nodes []*ast.Node) error {
	for _, n := range nodes {
		switch n.Kind {
		case ast.FunctionDef:
			sig := c.functions[n.Name]
			prev := c.currentFunc
			c.currentFunc = &sig
			if err := c.resolveStatements(n.Body); err != nil {
				c.currentFunc = prev
				return err
			}
			c.currentFunc = prev

		case ast.Assignment:
			varType, ok := c.varTypes[n.Name]
			if !ok {
				panic("typecheck: assignment to an unresolved variable name")
			}
			if _, err := c.resolveExpr(n.Value, varType); err != nil {
				return err
			}

		case ast.BuiltinFunction:
			if _, err := c.resolveExpr(n.Expr, types.U64); err != nil {
				return err
			}

		case ast.Declaration:
			if n.Init != nil {
				if _, err := c.resolveExpr(n.Init, n.DeclType); err != nil {
					return err
				}
			}

		case ast.If:
			if err := c.resolveCondition(n.Cond); err != nil {
				return err
			}
			if err := c.resolveStatements(n.Body); err != nil {
				return err
			}
			if n.Else != nil {
				if err := c.resolveStatements(n.Else); err != nil {
					return err
				}
			}

		case ast.While:
			if err := c.resolveCondition(n.Cond); err != nil {
				return err
			}
			if err := c.resolveStatements(n.Body); err != nil {
				return err
			}

		case ast.Return:
			if c.currentFunc == nil {
				return c.errorf(n.Loc, "return statement outside of any function")
			}
			if n.HasExpr != c.currentFunc.HasReturnType {
				return c.errorf(n.Loc, "return statement does not match the function's declared return type")
			}
			if n.HasExpr {
				if _, err := c.resolveExpr(n.Expr, c.currentFunc.ReturnType); err != nil {
					return err
				}
			}

		case ast.SExpression:
			if n.Expr.Kind == ast.FunctionCall {
				if err := c.resolveCallStatement(n.Expr); err != nil {
					return err
				}
				break
			}
			if _, err := c.resolveExpr(n.Expr, types.Void); err != nil {
				return err
			}

		default:
			panic("typecheck: unexpected expression node used as a statement")
		}
	}
	return nil
}

// resolveCondition implements spec §4.3's preserved legacy rule for
// if/while conditions: a condition that is already boolean-shaped
// (a comparison, a logical operator, or a bool literal/variable) is
// accepted as-is; anything else is unified against U64, matching the
// original nonzero-test semantics.
func (c *Checker) resolveCondition(cond *ast.Node) error {
	natural, err := c.findType(cond)
	if err != nil {
		return err
	}
	expected := types.U64
	if natural == types.Bool {
		expected = types.Bool
	}
	_, err = c.resolveExpr(cond, expected)
	return err
}

func (c *Checker) lookupFunction(node *ast.Node) (funcSig, error) {
	sig, ok := c.functions[node.Name]
	if !ok {
		return funcSig{}, c.errorf(node.Loc, "function %q is not defined", node.Name)
	}
	return sig, nil
}

func (c *Checker) checkCallArgs(node *ast.Node, sig funcSig) error {
	if len(node.Args) != len(sig.ParamTypes) {
		return c.errorf(node.Loc, "function %q expects %d argument(s), got %d", node.Name, len(sig.ParamTypes), len(node.Args))
	}
	for i, arg := range node.Args {
		if _, err := c.resolveExpr(arg, sig.ParamTypes[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolveCallStatement handles a function call used as a bare
// statement, where a void return is legal.
func (c *Checker) resolveCallStatement(node *ast.Node) error {
	sig, err := c.lookupFunction(node)
	if err != nil {
		return err
	}
	if err := c.checkCallArgs(node, sig); err != nil {
		return err
	}
	node.CallReturnType = sig.ReturnType
	return nil
}

// resolveCall handles a function call used in an expression position,
// where a value is required: calling a function with no declared
// return type here is fatal.
func (c *Checker) resolveCall(node *ast.Node, expected types.Primitive) (types.Primitive, error) {
	sig, err := c.lookupFunction(node)
	if err != nil {
		return 0, err
	}
	if err := c.checkCallArgs(node, sig); err != nil {
		return 0, err
	}
	if !sig.HasReturnType {
		return 0, c.errorf(node.Loc, "function %q returns nothing but is used as a value", node.Name)
	}
	t, err := c.dominantType(sig.ReturnType, expected, node.Loc)
	if err != nil {
		return 0, err
	}
	node.CallReturnType = sig.ReturnType
	return t, nil
}

// findType computes a node's type purely from its own structure,
// ignoring any contextual expectation — the "found_type" half of the
// original resolver's two-step dance, used to combine sibling operand
// types before an outer expected type is pushed down.
func (c *Checker) findType(node *ast.Node) (types.Primitive, error) {
	switch node.Kind {
	case ast.Identifier:
		return node.IdentType, nil
	case ast.Literal:
		return node.LitType, nil
	case ast.FunctionCall:
		sig, err := c.lookupFunction(node)
		if err != nil {
			return 0, err
		}
		return sig.ReturnType, nil
	case ast.BinaryOp:
		if node.Op.IsComparison() || node.Op.IsLogical() {
			return types.Bool, nil
		}
		left, err := c.findType(node.Left)
		if err != nil {
			return 0, err
		}
		right, err := c.findType(node.Right)
		if err != nil {
			return 0, err
		}
		return c.dominantType(left, right, node.Loc)
	default:
		panic("typecheck: unexpected node kind in expression position")
	}
}

// resolveExpr unifies node's type with expected and rewrites literal
// and binary nodes in its subtree to the resolved concrete type (the
// "set_type_for_expression" half of the original resolver, folded into
// the same recursive walk since our AST does not need a separate
// stamping pass).
func (c *Checker) resolveExpr(node *ast.Node, expected types.Primitive) (types.Primitive, error) {
	switch node.Kind {
	case ast.Literal:
		t, err := c.dominantType(node.LitType, expected, node.Loc)
		if err != nil {
			return 0, err
		}
		node.LitType = t
		return t, nil

	case ast.Identifier:
		t, err := c.dominantType(node.IdentType, expected, node.Loc)
		if err != nil {
			return 0, err
		}
		if t != node.IdentType {
			return 0, c.errorf(node.Loc, "variable %q cannot be used as %v", node.Name, expected)
		}
		return node.IdentType, nil

	case ast.FunctionCall:
		return c.resolveCall(node, expected)

	case ast.BinaryOp:
		return c.resolveBinaryOp(node, expected)

	default:
		panic("typecheck: unexpected node kind in expression position")
	}
}

func (c *Checker) resolveBinaryOp(node *ast.Node, expected types.Primitive) (types.Primitive, error) {
	switch {
	case node.Op.IsLogical():
		if _, err := c.dominantType(types.Bool, expected, node.Loc); err != nil {
			return 0, err
		}
		if _, err := c.resolveExpr(node.Left, types.Bool); err != nil {
			return 0, err
		}
		if _, err := c.resolveExpr(node.Right, types.Bool); err != nil {
			return 0, err
		}
		node.ResultType = types.Bool
		return types.Bool, nil

	case node.Op.IsComparison():
		if _, err := c.dominantType(types.Bool, expected, node.Loc); err != nil {
			return 0, err
		}
		leftNatural, err := c.findType(node.Left)
		if err != nil {
			return 0, err
		}
		rightNatural, err := c.findType(node.Right)
		if err != nil {
			return 0, err
		}
		operandType, err := c.dominantType(leftNatural, rightNatural, node.Loc)
		if err != nil {
			return 0, err
		}
		// Two ambiguous operands (e.g. `1 == 1`) get no concrete type
		// from each other, so they are narrowed to their default here.
		switch operandType {
		case types.Number, types.Integer:
			operandType = types.U64
		case types.Float:
			operandType = types.F64
		}
		if _, err := c.resolveExpr(node.Left, operandType); err != nil {
			return 0, err
		}
		if _, err := c.resolveExpr(node.Right, operandType); err != nil {
			return 0, err
		}
		node.ResultType = types.Bool
		return types.Bool, nil

	default: // arithmetic: +, -, *, /
		leftNatural, err := c.findType(node.Left)
		if err != nil {
			return 0, err
		}
		rightNatural, err := c.findType(node.Right)
		if err != nil {
			return 0, err
		}
		natural, err := c.dominantType(leftNatural, rightNatural, node.Loc)
		if err != nil {
			return 0, err
		}
		final, err := c.dominantType(natural, expected, node.Loc)
		if err != nil {
			return 0, err
		}
		if _, err := c.resolveExpr(node.Left, final); err != nil {
			return 0, err
		}
		if _, err := c.resolveExpr(node.Right, final); err != nil {
			return 0, err
		}
		node.ResultType = final
		return final, nil
	}
}

// dominantType is the lattice join described in spec §9's design notes:
// Void ⊑ Number ⊑ {Integer, Float} ⊑ {U64, F64}, with Bool incomparable
// to everything but itself and Void.
func (c *Checker) dominantType(left, right types.Primitive, loc diag.Location) (types.Primitive, error) {
	switch left {
	case types.Number:
		switch right {
		case types.Void, types.Number:
			return left, nil
		case types.Float, types.F64, types.Integer, types.U64:
			return right, nil
		}
	case types.Float:
		switch right {
		case types.Void, types.Number, types.Float:
			return left, nil
		case types.F64:
			return right, nil
		}
	case types.Integer:
		switch right {
		case types.Void, types.Number, types.Integer:
			return left, nil
		case types.U64:
			return right, nil
		}
	case types.Void:
		switch right {
		case types.Void, types.Number, types.Integer, types.U64, types.Float, types.F64, types.Bool:
			return right, nil
		}
	case types.U64:
		switch right {
		case types.Void, types.Number, types.Integer, types.U64:
			return left, nil
		}
	case types.F64:
		switch right {
		case types.Void, types.Number, types.Float, types.F64:
			return left, nil
		}
	case types.Bool:
		switch right {
		case types.Bool, types.Void:
			return types.Bool, nil
		}
	}
	return 0, c.mismatch(loc, left, right)
}
