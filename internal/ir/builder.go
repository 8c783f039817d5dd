package ir

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/aveline/stepc/internal/abi"
	"github.com/aveline/stepc/internal/ast"
	"github.com/aveline/stepc/internal/diag"
	"github.com/aveline/stepc/internal/types"
)

// bindingKind distinguishes a declared global variable from a function
// parameter, the same split original_source/builder.rs's VarriableType
// makes: a global lives in `.bss` and is always addressed by name, a
// parameter lives in its function's own spill/caller-area frame slot
// and is addressed through the classifier's Parameter.
type bindingKind int

const (
	bindGlobal bindingKind = iota
	bindParam
)

type binding struct {
	kind       bindingKind
	globalType types.Primitive
	param      abi.Parameter
}

// Builder walks a type-checked AST (every name already alpha-renamed,
// every expression already carrying a concrete type) and emits a
// Program. It is a two-pass builder: Build first scans every top-level
// FunctionDef to register its SysV signature (so a call can be
// translated before its callee's definition is reached textually), then
// translates the program's statements.
type Builder struct {
	file string

	signatures map[string]*abi.Signature
	scopes     []map[string]binding

	// currentReturnType/currentFuncName are valid only while translating
	// inside a FunctionDef's body, for Return's ABI-specific push and
	// epilogue jump.
	currentReturnType types.Primitive
	currentFuncName   string

	labelCounter int
}

// Build runs the scan and translate passes over program and returns the
// resulting Program. The first fatal condition — a duplicate function
// name, a variable shadowing a function, a reference to an undeclared
// name, an illegal parameter type reaching the classifier — aborts with
// a located *diag.Error (or, for conditions the type checker must
// already have ruled out, a plain internal error; spec §4.4's SPEC_FULL
// addition).
func Build(file string, program []*ast.Node) (*Program, error) {
	b := &Builder{file: file, signatures: make(map[string]*abi.Signature)}
	if err := b.scan(program); err != nil {
		return nil, err
	}
	p := New()
	if err := b.translateStatements(program, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (b *Builder) errorf(loc diag.Location, format string, args ...any) error {
	return diag.New(b.file, loc, format, args...)
}

// --- scan pass: register every top-level function's SysV signature ---

func (b *Builder) scan(program []*ast.Node) error {
	defs := lo.Filter(program, func(n *ast.Node, _ int) bool { return n.Kind == ast.FunctionDef })
	names := lo.Map(defs, func(n *ast.Node, _ int) string { return n.Name })
	for _, name := range lo.FindDuplicates(names) {
		loc := lo.Filter(defs, func(n *ast.Node, _ int) bool { return n.Name == name })[1].Loc
		return b.errorf(loc, "function %q is already defined", name)
	}

	for _, n := range defs {
		paramTypes := lo.Map(n.Params, func(p ast.Param, _ int) types.Primitive { return p.Type })
		sig, err := abi.Classify(paramTypes)
		if err != nil {
			return fmt.Errorf("ir: building signature for %q: %w", n.Name, err)
		}
		b.signatures[n.Name] = sig
	}
	return nil
}

// --- translate pass ---

func (b *Builder) declareGlobal(loc diag.Location, name string, t types.Primitive) error {
	if _, isFunc := b.signatures[name]; isFunc {
		return b.errorf(loc, "variable %q cannot shadow a function of the same name", name)
	}
	b.scopes[len(b.scopes)-1][name] = binding{kind: bindGlobal, globalType: t}
	return nil
}

func (b *Builder) lookup(name string) (binding, bool) {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if v, ok := b.scopes[i][name]; ok {
			return v, true
		}
	}
	return binding{}, false
}

func (b *Builder) translateStatements(nodes []*ast.Node, p *Program) error {
	b.scopes = append(b.scopes, make(map[string]binding))
	for _, n := range nodes {
		if err := b.translateStatement(n, p); err != nil {
			return err
		}
	}
	b.scopes = b.scopes[:len(b.scopes)-1]
	return nil
}

func (b *Builder) translateStatement(n *ast.Node, p *Program) error {
	switch n.Kind {
	case ast.Declaration:
		if err := b.declareGlobal(n.Loc, n.Name, n.DeclType); err != nil {
			return err
		}
		p.AddVar(n.Name)
		if n.Init == nil {
			return nil
		}
		if err := b.translateExpr(n.Init, p); err != nil {
			return err
		}
		p.Push(storeOp(n.DeclType, n.Name))
		return nil

	case ast.Assignment:
		v, ok := b.lookup(n.Name)
		if !ok {
			return b.errorf(n.Loc, "variable %q was not declared", n.Name)
		}
		if err := b.translateExpr(n.Value, p); err != nil {
			return err
		}
		switch v.kind {
		case bindGlobal:
			p.Push(storeOp(v.globalType, n.Name))
		case bindParam:
			p.Push(paramStoreOp(v.param))
		}
		return nil

	case ast.BuiltinFunction:
		if err := b.translateExpr(n.Expr, p); err != nil {
			return err
		}
		switch n.Name {
		case "print_int":
			p.Push(Operation{Kind: PrintInt})
		default:
			return b.errorf(n.Loc, "unsupported builtin function %q", n.Name)
		}
		return nil

	case ast.If:
		if err := b.translateExpr(n.Cond, p); err != nil {
			return err
		}
		num := b.label()
		p.Push(Operation{Kind: If, N: num})
		if err := b.translateStatements(n.Body, p); err != nil {
			return err
		}
		p.Push(Operation{Kind: Else, N: num})
		if n.Else != nil {
			if err := b.translateStatements(n.Else, p); err != nil {
				return err
			}
		}
		p.Push(Operation{Kind: EndIf, N: num})
		return nil

	case ast.While:
		num := b.label()
		p.Push(Operation{Kind: While, N: num})
		if err := b.translateExpr(n.Cond, p); err != nil {
			return err
		}
		p.Push(Operation{Kind: CondWhile, N: num})
		if err := b.translateStatements(n.Body, p); err != nil {
			return err
		}
		p.Push(Operation{Kind: EndWhile, N: num})
		return nil

	case ast.Return:
		if n.HasExpr {
			if err := b.translateExpr(n.Expr, p); err != nil {
				return err
			}
			switch b.currentReturnType {
			case types.F64:
				p.Push(Operation{Kind: SysVSSEReturn})
			default:
				p.Push(Operation{Kind: SysVIntegerReturn})
			}
		}
		p.Push(Operation{Kind: Return, Name: b.currentFuncName})
		return nil

	case ast.SExpression:
		if err := b.translateExpr(n.Expr, p); err != nil {
			return err
		}
		// A call to a function with no return type pushes nothing to discard.
		if n.Expr.Kind == ast.FunctionCall && n.Expr.CallReturnType == types.Void {
			return nil
		}
		p.Push(Operation{Kind: PopStack})
		return nil

	case ast.FunctionDef:
		return b.translateFunctionDef(n, p)

	default:
		panic(fmt.Sprintf("ir: unexpected node kind %v used as a statement", n.Kind))
	}
}

func (b *Builder) translateFunctionDef(n *ast.Node, p *Program) error {
	sig, ok := b.signatures[n.Name]
	if !ok {
		panic(fmt.Sprintf("ir: function %q missing from the scanned signature table", n.Name))
	}

	p.EnterFunction()
	p.Push(Operation{Kind: BeginFunction, Name: n.Name})

	b.scopes = append(b.scopes, make(map[string]binding))
	for i, param := range n.Params {
		cp := sig.Params[i]
		b.scopes[len(b.scopes)-1][param.Name] = binding{kind: bindParam, param: cp}
		if cp.Class != abi.Memory {
			p.Push(saveArgOp(cp))
		}
	}
	p.Push(Operation{Kind: ReserveParameters, Offset: sig.ReservedStack})

	prevReturn, prevName := b.currentReturnType, b.currentFuncName
	b.currentReturnType, b.currentFuncName = n.ReturnType, n.Name
	if !n.HasReturnType {
		b.currentReturnType = types.Void
	}

	for _, stmt := range n.Body {
		if err := b.translateStatement(stmt, p); err != nil {
			return err
		}
	}

	b.currentReturnType, b.currentFuncName = prevReturn, prevName
	b.scopes = b.scopes[:len(b.scopes)-1]

	p.Push(Operation{Kind: EndFunction, Name: n.Name})
	p.LeaveFunction()
	return nil
}

func (b *Builder) translateExpr(n *ast.Node, p *Program) error {
	switch n.Kind {
	case ast.Literal:
		p.Push(literalOp(n.LitType, n.Text))
		return nil

	case ast.Identifier:
		v, ok := b.lookup(n.Name)
		if !ok {
			return b.errorf(n.Loc, "variable %q was not declared", n.Name)
		}
		switch v.kind {
		case bindGlobal:
			p.Push(loadOp(v.globalType, n.Name))
		case bindParam:
			p.Push(paramLoadOp(v.param))
		}
		return nil

	case ast.BinaryOp:
		if err := b.translateExpr(n.Left, p); err != nil {
			return err
		}
		if err := b.translateExpr(n.Right, p); err != nil {
			return err
		}
		op, err := binaryOpKind(n.ResultType, n.Op, b.findOperandType(n.Left))
		if err != nil {
			return b.errorf(n.Loc, "%s", err.Error())
		}
		p.Push(Operation{Kind: op})
		return nil

	case ast.FunctionCall:
		return b.translateCall(n, p)

	default:
		panic(fmt.Sprintf("ir: unexpected node kind %v in expression position", n.Kind))
	}
}

// findOperandType reports the already-resolved concrete type of an
// operand, used only to pick a comparison's opcode set (the result is
// Bool either way): U64 and Bool operands use EqualInt et al., F64
// operands are rejected because float comparisons have no opcodes.
func (b *Builder) findOperandType(n *ast.Node) types.Primitive {
	switch n.Kind {
	case ast.Literal:
		return n.LitType
	case ast.Identifier:
		return n.IdentType
	case ast.BinaryOp:
		return n.ResultType
	case ast.FunctionCall:
		return n.CallReturnType
	default:
		return types.Void
	}
}

func (b *Builder) translateCall(n *ast.Node, p *Program) error {
	sig, ok := b.signatures[n.Name]
	if !ok {
		return b.errorf(n.Loc, "function %q is not defined", n.Name)
	}
	if len(n.Args) != len(sig.Params) {
		return b.errorf(n.Loc, "function %q expects %d argument(s), got %d", n.Name, len(sig.Params), len(n.Args))
	}
	for i, arg := range n.Args {
		if err := b.translateExpr(arg, p); err != nil {
			return err
		}
		p.Push(argPrepOp(sig.Params[i]))
	}
	p.Push(Operation{Kind: FunctionCall, Name: n.Name})

	if n.CallReturnType != types.Void {
		switch n.CallReturnType {
		case types.F64:
			p.Push(Operation{Kind: SysVPushSSEReturn})
		default:
			p.Push(Operation{Kind: SysVPushIntegerReturn})
		}
	}
	return nil
}

func (b *Builder) label() int {
	n := b.labelCounter
	b.labelCounter++
	return n
}

// --- Operation constructors per class/type, grounded on
// original_source/src/lib/compiler.rs's translate_operations match arms
// and scopes/systemv.rs's Parameter::translate_store/translate_load. ---

func literalOp(t types.Primitive, text string) Operation {
	switch t {
	case types.U64:
		return Operation{Kind: PushInt, Text: text}
	case types.F64:
		return Operation{Kind: PushFloat, Text: text}
	case types.Bool:
		return Operation{Kind: PushBool, Text: text}
	default:
		panic(fmt.Sprintf("ir: literal of unresolved type %v reached the builder", t))
	}
}

func loadOp(t types.Primitive, name string) Operation {
	switch t {
	case types.U64, types.Bool:
		return Operation{Kind: LoadInt, Name: name}
	case types.F64:
		return Operation{Kind: LoadFloat, Name: name}
	default:
		panic(fmt.Sprintf("ir: load of unresolved type %v reached the builder", t))
	}
}

func storeOp(t types.Primitive, name string) Operation {
	switch t {
	case types.U64, types.Bool:
		return Operation{Kind: StoreInt, Name: name}
	case types.F64:
		return Operation{Kind: StoreFloat, Name: name}
	default:
		panic(fmt.Sprintf("ir: store of unresolved type %v reached the builder", t))
	}
}

func paramLoadOp(p abi.Parameter) Operation {
	switch p.Class {
	case abi.Integer:
		return Operation{Kind: SysVIntParamLoad, Offset: p.Offset}
	case abi.SSE:
		return Operation{Kind: SysVSSEParamLoad, Offset: p.Offset}
	default:
		return Operation{Kind: SysVMemParamLoad, Offset: p.Offset}
	}
}

func paramStoreOp(p abi.Parameter) Operation {
	switch p.Class {
	case abi.Integer:
		return Operation{Kind: SysVIntParamStore, Offset: p.Offset}
	case abi.SSE:
		return Operation{Kind: SysVSSEParamStore, Offset: p.Offset}
	default:
		return Operation{Kind: SysVMemParamStore, Offset: p.Offset}
	}
}

func saveArgOp(p abi.Parameter) Operation {
	switch p.Class {
	case abi.Integer:
		return Operation{Kind: SysVIntSaveArg, Index: p.Index, Offset: p.Offset}
	case abi.SSE:
		return Operation{Kind: SysVSSESaveArg, Index: p.Index, Offset: p.Offset}
	default:
		panic("ir: memory-class parameter has nothing to save on entry")
	}
}

func argPrepOp(p abi.Parameter) Operation {
	switch p.Class {
	case abi.Integer:
		return Operation{Kind: SysVIntArgPrep, Index: p.Index}
	case abi.SSE:
		return Operation{Kind: SysVSSEArgPrep, Index: p.Index}
	default:
		return Operation{Kind: SysVMemArgPrep, Offset: p.Offset}
	}
}

// binaryOpKind picks the Operation Kind for a resolved BinaryOp,
// following original_source/builder.rs's (result_type, op) match: the
// result type selects the int/float/bool family, and for comparisons
// that family is always Bool so the operand type (passed separately)
// picks between the integer and (not yet implemented) float comparator
// sets, matching spec §4.5's "comparisons for floats are not
// implemented — fatal until added".
func binaryOpKind(result types.Primitive, op ast.Op, operand types.Primitive) (Kind, error) {
	if op.IsLogical() {
		switch op {
		case ast.And:
			return AndBool, nil
		case ast.Or:
			return OrBool, nil
		}
	}
	if op.IsComparison() {
		switch operand {
		case types.U64, types.Bool:
			switch op {
			case ast.Equal:
				return EqualInt, nil
			case ast.Less:
				return LessInt, nil
			case ast.Greater:
				return GreaterInt, nil
			}
		case types.F64:
			return 0, fmt.Errorf("floating point comparisons are not implemented")
		}
	}
	switch result {
	case types.U64:
		switch op {
		case ast.Plus:
			return AddInt, nil
		case ast.Minus:
			return MinusInt, nil
		case ast.Mul:
			return MultInt, nil
		case ast.Div:
			return DivInt, nil
		}
		return 0, fmt.Errorf("operator %v is not defined for u64", op)
	case types.F64:
		switch op {
		case ast.Plus:
			return AddFloat, nil
		case ast.Minus:
			return MinusFloat, nil
		case ast.Mul:
			return MultFloat, nil
		case ast.Div:
			return DivFloat, nil
		}
		return 0, fmt.Errorf("operator %v is not defined for f64", op)
	default:
		return 0, fmt.Errorf("operator %v is not defined for %v", op, result)
	}
}
