// Package ast defines the variant type for syntax nodes the parser
// builds, the type checker destructively rewrites, and the IR builder
// reads. Every node carries a source location for diagnostics.
package ast

import (
	"github.com/aveline/stepc/internal/diag"
	"github.com/aveline/stepc/internal/types"
)

// Kind tags which variant a Node represents.
type Kind int

const (
	FunctionDef Kind = iota
	FunctionCall
	Declaration
	Assignment
	BinaryOp
	Literal
	Identifier
	BuiltinFunction
	If
	While
	Return
	SExpression
)

func (k Kind) String() string {
	switch k {
	case FunctionDef:
		return "FunctionDef"
	case FunctionCall:
		return "FunctionCall"
	case Declaration:
		return "Declaration"
	case Assignment:
		return "Assignment"
	case BinaryOp:
		return "BinaryOp"
	case Literal:
		return "Literal"
	case Identifier:
		return "Identifier"
	case BuiltinFunction:
		return "BuiltinFunction"
	case If:
		return "If"
	case While:
		return "While"
	case Return:
		return "Return"
	case SExpression:
		return "SExpression"
	default:
		return "<invalid kind>"
	}
}

// Param is a single declared function parameter: a name and its
// concrete declared type.
type Param struct {
	Name string
	Type types.Primitive
}

// Node is every AST variant flattened into one struct, tagged by Kind.
// This mirrors the teacher's own tagged-instruction pattern
// (instructions.Instruction{Type, Value}) scaled up to the richer set
// of fields a full syntax tree needs; each field below documents which
// Kind(s) populate it.
type Node struct {
	Kind Kind
	Loc  diag.Location

	// Name: FunctionDef, FunctionCall, Declaration, Assignment,
	// Identifier, BuiltinFunction (function name / target name).
	// Renamed destructively by the type checker's alpha-renaming pass
	// for Declaration/Identifier/Assignment.
	Name string

	// Params: FunctionDef only. Nil means "no parameter list".
	Params []Param

	// HasReturnType / ReturnType: FunctionDef only.
	HasReturnType bool
	ReturnType    types.Primitive

	// Body: FunctionDef, If (then-branch), While.
	Body []*Node

	// Else: If only. Nil means no else-branch.
	Else []*Node

	// Cond: If, While.
	Cond *Node

	// Args: FunctionCall only.
	Args []*Node

	// CallReturnType: FunctionCall only — the callee's declared return
	// type (Void if the callee returns nothing), filled in by the type
	// checker.
	CallReturnType types.Primitive

	// DeclType: Declaration only — the explicitly annotated type.
	DeclType types.Primitive

	// Init: Declaration only — optional initializer expression.
	Init *Node

	// Value: Assignment only — the right-hand-side expression.
	Value *Node

	// Left, Op, Right, ResultType: BinaryOp only.
	Left       *Node
	Op         Op
	Right      *Node
	ResultType types.Primitive

	// LitType, Text: Literal only. Text preserves the literal digits
	// (or "true"/"false") verbatim for later embedding in assembly.
	LitType types.Primitive
	Text    string

	// IdentType: Identifier only — the resolved type of this reference.
	IdentType types.Primitive

	// Expr: BuiltinFunction (the argument expression), SExpression (the
	// wrapped expression), Return (optional return expression, nil for
	// a bare `return`).
	Expr *Node

	// HasExpr: Return only — distinguishes `return` from `return expr`
	// when Expr is nil either way would be ambiguous.
	HasExpr bool
}

// Op mirrors token.Op without importing the token package's
// parser-facing precedence machinery into the AST; kept as its own
// small enum so ast has no dependency on how operators were lexed.
type Op int

const (
	Plus Op = iota
	Minus
	Mul
	Div
	Equal
	Greater
	Less
	And
	Or
)

func (o Op) String() string {
	switch o {
	case Plus:
		return "+"
	case Minus:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Equal:
		return "=="
	case Greater:
		return ">"
	case Less:
		return "<"
	case And:
		return "&&"
	case Or:
		return "||"
	default:
		return "<invalid op>"
	}
}

// IsComparison reports whether o is one of ==, <, >: operators whose
// result is always Bool regardless of operand type.
func (o Op) IsComparison() bool {
	return o == Equal || o == Greater || o == Less
}

// IsLogical reports whether o is one of &&, ||: operators whose
// operands and result are all Bool.
func (o Op) IsLogical() bool {
	return o == And || o == Or
}
