// Package types holds the primitive type lattice shared by the parser,
// type checker, ABI classifier and IR builder.
package types

// Primitive is a value type: either one of the ambiguous placeholder
// types the parser produces (Number, Integer, Float, Void) or one of the
// concrete types the type checker narrows them to (U64, F64, Bool).
type Primitive int

const (
	// Void is legal only as a function return type, or as the
	// provisional type of a not-yet-resolved identifier/expression.
	Void Primitive = iota

	// Number is the most ambiguous numeric placeholder: a literal with
	// no surrounding context to pin its concrete type.
	Number

	// Integer is a numeric literal known to have no fractional part,
	// but not yet pinned to U64.
	Integer

	// Float is a numeric literal known to have a fractional part, but
	// not yet pinned to F64.
	Float

	// U64 is a concrete 64-bit unsigned integer.
	U64

	// F64 is a concrete double-precision float.
	F64

	// Bool is a concrete boolean.
	Bool
)

func (p Primitive) String() string {
	switch p {
	case Void:
		return "void"
	case Number:
		return "number"
	case Integer:
		return "integer"
	case Float:
		return "float"
	case U64:
		return "u64"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	default:
		return "<invalid primitive>"
	}
}

// IsConcrete reports whether p is a type that may reach the IR builder.
func (p Primitive) IsConcrete() bool {
	return p == U64 || p == F64 || p == Bool
}

// IsAmbiguous reports whether p is a placeholder that must be narrowed
// by the type checker before IR generation.
func (p Primitive) IsAmbiguous() bool {
	return p == Number || p == Integer || p == Float
}

// ParseName maps a parsed type-identifier (the text after a `:` in a
// declaration or parameter list) to its concrete Primitive. Only the
// concrete types are nameable in source; Void is implicit (the absence
// of a return-type annotation) and the ambiguous placeholders only ever
// arise from literals.
func ParseName(name string) (Primitive, bool) {
	switch name {
	case "u64":
		return U64, true
	case "f64":
		return F64, true
	case "bool":
		return Bool, true
	default:
		return Void, false
	}
}
