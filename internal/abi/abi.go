// Package abi implements the System V AMD64 parameter classifier
// described in spec §4.4: for each function it partitions declared
// parameters into integer, SSE and memory classes and assigns each a
// frame offset, grounded on
// _examples/original_source/src/lib/scopes/systemv.rs's SystemV::add /
// add_parameters algorithm (its only third-party counterpart in this
// pack, ajroetker-goat/arch.go, documents the idiomatic Go shape for
// "classify a parameter list per calling convention" without owning the
// SysV register-budget rule itself).
package abi

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/aveline/stepc/internal/types"
)

// Class is the SysV parameter category a Parameter is assigned to.
type Class int

const (
	Integer Class = iota
	SSE
	Memory
)

func (c Class) String() string {
	switch c {
	case Integer:
		return "integer"
	case SSE:
		return "sse"
	case Memory:
		return "memory"
	default:
		return "<invalid class>"
	}
}

// Parameter records one declared parameter's SysV classification: which
// class it belongs to, its index within that class (the argument or SSE
// register number at entry/call), and its frame offset. For Integer and
// SSE parameters, Offset is a distance below rbp in the callee's own
// spill area ([rbp - Offset]); for Memory parameters it is a distance
// above the return address in the caller's argument area
// ([rbp + 16 + Offset]).
type Parameter struct {
	Class  Class
	Index  int
	Offset int
}

// Signature is the complete classification of one function's parameter
// list, plus the number of bytes the callee must reserve with
// `sub rsp, N` at entry to hold its spilled register-class arguments.
type Signature struct {
	Params        []Parameter
	ReservedStack int
}

// Classify partitions paramTypes (in declaration order) into SysV
// classes following spec §4.4: U64/Bool take the integer class while
// fewer than 6 have been assigned, F64 takes the SSE class while fewer
// than 8 have been assigned, and anything that overflows its budget
// falls back to the memory class, assigned in declaration order (so the
// first memory argument receives the lowest caller-area offset).
//
// Only U64, F64 and Bool are legal parameter types here; the parser
// accepts only those type names for a parameter, so an ambiguous or
// Void type arriving here is an internal compiler error, not a
// user-facing diagnostic (SPEC_FULL §4.4 additions).
func Classify(paramTypes []types.Primitive) (*Signature, error) {
	sig := &Signature{Params: make([]Parameter, len(paramTypes))}

	intCount, sseCount, memCount := 0, 0, 0
	for i, t := range paramTypes {
		switch t {
		case types.U64, types.Bool:
			if intCount < 6 {
				sig.ReservedStack += 8
				sig.Params[i] = Parameter{Class: Integer, Index: intCount, Offset: sig.ReservedStack}
				intCount++
				continue
			}
			sig.Params[i] = Parameter{Class: Memory, Index: memCount, Offset: memCount * 8}
			memCount++

		case types.F64:
			if sseCount < 8 {
				sig.ReservedStack += 8
				sig.Params[i] = Parameter{Class: SSE, Index: sseCount, Offset: sig.ReservedStack}
				sseCount++
				continue
			}
			sig.Params[i] = Parameter{Class: Memory, Index: memCount, Offset: memCount * 8}
			memCount++

		default:
			return nil, fmt.Errorf("abi: illegal parameter type %v reached the classifier", t)
		}
	}
	return sig, nil
}

// IntegerParams returns the subset of sig's parameters classified
// Integer, in declaration order.
func (sig *Signature) IntegerParams() []Parameter {
	return lo.Filter(sig.Params, func(p Parameter, _ int) bool { return p.Class == Integer })
}

// SSEParams returns the subset of sig's parameters classified SSE, in
// declaration order.
func (sig *Signature) SSEParams() []Parameter {
	return lo.Filter(sig.Params, func(p Parameter, _ int) bool { return p.Class == SSE })
}

// MemoryParams returns the subset of sig's parameters classified
// Memory, in declaration order.
func (sig *Signature) MemoryParams() []Parameter {
	return lo.Filter(sig.Params, func(p Parameter, _ int) bool { return p.Class == Memory })
}

// IntegerArgRegs is the SysV AMD64 integer argument register order.
var IntegerArgRegs = [6]string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// SSEArgRegs is the SysV AMD64 SSE argument register order.
var SSEArgRegs = [8]string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}
