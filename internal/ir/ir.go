// Package ir implements the flat stack-machine intermediate
// representation described in spec §3 and §4.5: a purely linear
// Operation variant (no nested blocks; control flow is numbered
// labels), the Program that collects one operation sequence per
// function plus the program entry, and the Builder that walks a typed
// AST and emits them. Grounded on
// _examples/original_source/src/lib/operations.rs (the Operation/Program
// shape) and builder.rs (the two-pass scan/translate builder).
package ir

// Kind tags which Operation variant a value represents. Every field on
// Operation besides Kind is only meaningful for the Kind(s) documented
// on it.
type Kind int

const (
	PushInt Kind = iota
	PushFloat
	PushBool

	AddInt
	MinusInt
	MultInt
	DivInt
	EqualInt
	LessInt
	GreaterInt

	AddFloat
	MinusFloat
	MultFloat
	DivFloat

	AndBool
	OrBool

	LoadInt
	StoreInt
	LoadFloat
	StoreFloat

	If
	Else
	EndIf
	While
	CondWhile
	EndWhile
	PopStack

	BeginFunction
	ReserveParameters
	EndFunction
	FunctionCall
	Return

	SysVIntArgPrep
	SysVIntSaveArg
	SysVIntParamLoad
	SysVIntParamStore
	SysVSSEArgPrep
	SysVSSESaveArg
	SysVSSEParamLoad
	SysVSSEParamStore
	SysVMemArgPrep
	SysVMemParamLoad
	SysVMemParamStore

	SysVIntegerReturn
	SysVSSEReturn
	SysVPushIntegerReturn
	SysVPushSSEReturn

	PrintInt
)

// Operation is one step of the linear IR. Fields are populated
// according to Kind:
//
//   - Text: PushInt/PushFloat/PushBool — the literal text, preserved
//     verbatim from the token that produced it.
//   - Name: LoadInt/StoreInt/LoadFloat/StoreFloat — the variable name;
//     BeginFunction/EndFunction/FunctionCall/Return — the function name.
//   - N: If/Else/EndIf/While/CondWhile/EndWhile — the label number.
//   - Index: SysVIntArgPrep/SysVSSEArgPrep — the argument/SSE register
//     index; SysVIntSaveArg/SysVSSESaveArg — the register index half of
//     the (index, offset) pair the classifier assigned.
//   - Offset: SysVIntSaveArg/SysVSSESaveArg/SysVIntParamLoad/
//     SysVIntParamStore/SysVSSEParamLoad/SysVSSEParamStore — the frame
//     offset below rbp; SysVMemArgPrep/SysVMemParamLoad/
//     SysVMemParamStore — the caller-area offset above rbp+16;
//     ReserveParameters — the byte count to `sub rsp, N`.
type Operation struct {
	Kind   Kind
	Text   string
	Name   string
	N      int
	Index  int
	Offset int
}

// Target selects which of Program's two operation sequences newly
// pushed operations are routed to.
type Target int

const (
	TargetMain Target = iota
	TargetFunction
)

// Program holds the two operation sequences the IR builder produces —
// one for the program entry, one (concatenated) for every function body
// — plus the set of global variable names that need a `.bss`
// reservation, and the routing flag the builder flips while walking a
// FunctionDef (spec §3's Program/§4.5's current_target).
type Program struct {
	FunctionDefs []Operation
	Main         []Operation
	Vars         []string

	target Target
}

// New returns an empty Program targeting Main.
func New() *Program {
	return &Program{target: TargetMain}
}

// Push appends op to whichever sequence the current target selects.
func (p *Program) Push(op Operation) {
	switch p.target {
	case TargetFunction:
		p.FunctionDefs = append(p.FunctionDefs, op)
	default:
		p.Main = append(p.Main, op)
	}
}

// EnterFunction switches routing to a function body.
func (p *Program) EnterFunction() {
	p.target = TargetFunction
}

// LeaveFunction switches routing back to the program entry.
func (p *Program) LeaveFunction() {
	p.target = TargetMain
}

// AddVar registers name as needing a `.bss` reservation, in
// first-declaration order, if it is not already registered.
func (p *Program) AddVar(name string) {
	for _, v := range p.Vars {
		if v == name {
			return
		}
	}
	p.Vars = append(p.Vars, name)
}
