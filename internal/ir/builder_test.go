package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aveline/stepc/internal/parser"
	"github.com/aveline/stepc/internal/typecheck"
)

func build(t *testing.T, src string) *Program {
	t.Helper()
	p, err := parser.New("test.step", src)
	require.NoError(t, err)
	program, err := p.Parse()
	require.NoError(t, err)
	require.NoError(t, typecheck.Check("test.step", program))
	prog, err := Build("test.step", program)
	require.NoError(t, err)
	return prog
}

func kinds(ops []Operation) []Kind {
	out := make([]Kind, len(ops))
	for i, op := range ops {
		out[i] = op.Kind
	}
	return out
}

func TestBuildDeclarationAndPrint(t *testing.T) {
	prog := build(t, "var x : u64 = 1 + 2\nprint_int(x)\n")
	assert.Equal(t, []Kind{PushInt, PushInt, AddInt, StoreInt, LoadInt, PrintInt}, kinds(prog.Main))
	assert.Equal(t, []string{"x"}, prog.Vars)
}

func TestBuildIfElseEmitsMatchingLabelNumbers(t *testing.T) {
	src := "if 1 == 1:\n    print_int(1)\nelse:\n    print_int(0)\n"
	prog := build(t, src)
	assert.Equal(t, []Kind{
		PushInt, PushInt, EqualInt, If,
		PushInt, PrintInt, Else,
		PushInt, PrintInt, EndIf,
	}, kinds(prog.Main))

	var ifOp, elseOp, endOp Operation
	for _, op := range prog.Main {
		switch op.Kind {
		case If:
			ifOp = op
		case Else:
			elseOp = op
		case EndIf:
			endOp = op
		}
	}
	assert.Equal(t, ifOp.N, elseOp.N)
	assert.Equal(t, ifOp.N, endOp.N)
}

func TestBuildWhileEmitsMatchingLabelNumbers(t *testing.T) {
	src := "var x : u64 = 0\nwhile x == 0:\n    x = 1\n"
	prog := build(t, src)
	assert.Equal(t, []Kind{
		PushInt, StoreInt,
		While, LoadInt, PushInt, EqualInt, CondWhile,
		PushInt, StoreInt,
		EndWhile,
	}, kinds(prog.Main))
	assert.Equal(t, prog.Main[2].N, prog.Main[6].N)
	assert.Equal(t, prog.Main[2].N, prog.Main[9].N)
}

func TestBuildFunctionDefRoutesToFunctionDefsNotMain(t *testing.T) {
	src := "def add(a: u64, b: u64) -> u64:\n    return a + b\nvar x : u64 = add(1, 2)\n"
	prog := build(t, src)

	assert.Equal(t, []Kind{
		BeginFunction, SysVIntSaveArg, SysVIntSaveArg, ReserveParameters,
		SysVIntParamLoad, SysVIntParamLoad, AddInt, SysVIntegerReturn, Return,
		EndFunction,
	}, kinds(prog.FunctionDefs))

	assert.Equal(t, []Kind{
		PushInt, SysVIntArgPrep, PushInt, SysVIntArgPrep, FunctionCall,
		SysVPushIntegerReturn, StoreInt,
	}, kinds(prog.Main))
}

func TestBuildDuplicateFunctionIsFatal(t *testing.T) {
	p, err := parser.New("test.step", "def f():\n    return\ndef f():\n    return\n")
	require.NoError(t, err)
	program, err := p.Parse()
	require.NoError(t, err)
	// typecheck.Check would already reject the duplicate definition, so
	// it is skipped here and Build is exercised directly: the failure
	// must come from the IR builder's own scan pass.
	_, err = Build("test.step", program)
	assert.Error(t, err)
}

func TestBuildCallToUndefinedFunctionIsFatal(t *testing.T) {
	// translateCall independently re-validates a callee against the
	// builder's own scanned signature table (not just the type checker's
	// function table), so Build must be exercised directly, bypassing
	// typecheck.Check, to exercise that path.
	p, err := parser.New("test.step", "missing(1)\n")
	require.NoError(t, err)
	program, err := p.Parse()
	require.NoError(t, err)
	_, err = Build("test.step", program)
	assert.Error(t, err)
}

func TestBuildSeparateFunctionsGetDistinctLabelNumbers(t *testing.T) {
	src := "def f():\n    if 1 == 1:\n        return\ndef g():\n    if 1 == 1:\n        return\n"
	prog := build(t, src)

	var labels []int
	for _, op := range prog.FunctionDefs {
		if op.Kind == If {
			labels = append(labels, op.N)
		}
	}
	require.Len(t, labels, 2)
	assert.Equal(t, 0, labels[0])
	assert.Equal(t, 1, labels[1])
}
