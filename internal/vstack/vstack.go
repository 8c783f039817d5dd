// Package vstack tracks the depth of the virtual evaluation stack the
// code generator materializes on the hardware stack (spec §2's "stack
// machine" IR, §4.6's "virtual stack via push/pop of rax/rbx"). It
// replaces the teacher's own stack package — a runtime string stack
// that nothing in the teacher's own compiler ever called — with a
// compile-time bookkeeping type the generator actually exercises: every
// IR operation has a known push/pop effect on the virtual stack, and
// the generator uses a Stack to assert that effect never goes negative,
// catching a malformed IR (a builder bug, not a user program) before it
// produces nonsensical assembly.
package vstack

import "fmt"

// Stack counts the number of values currently live on the virtual
// stack. It carries no data itself — the values are the hardware
// stack's own push/pop traffic — only the depth invariant.
type Stack struct {
	depth int
}

// New returns an empty Stack.
func New() *Stack {
	return &Stack{}
}

// Push records n values being pushed.
func (s *Stack) Push(n int) {
	s.depth += n
}

// Pop records n values being popped. It panics if fewer than n values
// are live: that can only happen if the IR builder emitted an operation
// sequence whose stack effect does not balance, an internal compiler
// error rather than anything a source program can trigger.
func (s *Stack) Pop(n int) {
	if s.depth < n {
		panic(fmt.Sprintf("vstack: popped %d value(s) with only %d live", n, s.depth))
	}
	s.depth -= n
}

// Depth reports the number of values currently live.
func (s *Stack) Depth() int {
	return s.depth
}
