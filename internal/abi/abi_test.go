package abi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aveline/stepc/internal/types"
)

func TestClassifyFirstSixIntegersGetRegisterIndices(t *testing.T) {
	params := make([]types.Primitive, 6)
	for i := range params {
		params[i] = types.U64
	}
	sig, err := Classify(params)
	require.NoError(t, err)

	for i, p := range sig.Params {
		assert.Equal(t, Integer, p.Class)
		assert.Equal(t, i, p.Index)
		assert.Equal(t, (i+1)*8, p.Offset)
	}
	assert.Equal(t, 48, sig.ReservedStack)
}

func TestClassifySeventhIntegerOverflowsToMemory(t *testing.T) {
	params := make([]types.Primitive, 7)
	for i := range params {
		params[i] = types.U64
	}
	sig, err := Classify(params)
	require.NoError(t, err)

	assert.Equal(t, Memory, sig.Params[6].Class)
	assert.Equal(t, 0, sig.Params[6].Index)
	assert.Equal(t, 0, sig.Params[6].Offset)
	assert.Equal(t, 48, sig.ReservedStack)
}

func TestClassifyFirstEightFloatsGetSSEIndices(t *testing.T) {
	params := make([]types.Primitive, 8)
	for i := range params {
		params[i] = types.F64
	}
	sig, err := Classify(params)
	require.NoError(t, err)

	for i, p := range sig.Params {
		assert.Equal(t, SSE, p.Class)
		assert.Equal(t, i, p.Index)
	}
	assert.Equal(t, 64, sig.ReservedStack)
}

func TestClassifyNinthFloatOverflowsToMemory(t *testing.T) {
	params := make([]types.Primitive, 9)
	for i := range params {
		params[i] = types.F64
	}
	sig, err := Classify(params)
	require.NoError(t, err)

	assert.Equal(t, Memory, sig.Params[8].Class)
	assert.Equal(t, 64, sig.ReservedStack)
}

func TestClassifyBoolUsesIntegerClass(t *testing.T) {
	sig, err := Classify([]types.Primitive{types.Bool})
	require.NoError(t, err)
	assert.Equal(t, Integer, sig.Params[0].Class)
}

func TestClassifyMixedIntAndFloatParams(t *testing.T) {
	sig, err := Classify([]types.Primitive{types.U64, types.F64, types.U64})
	require.NoError(t, err)

	require.Len(t, sig.IntegerParams(), 2)
	require.Len(t, sig.SSEParams(), 1)
	assert.Equal(t, 0, sig.IntegerParams()[0].Index)
	assert.Equal(t, 1, sig.IntegerParams()[1].Index)
	assert.Equal(t, 0, sig.SSEParams()[0].Index)
	assert.Equal(t, 24, sig.ReservedStack)
}

func TestClassifyRejectsIllegalType(t *testing.T) {
	_, err := Classify([]types.Primitive{types.Void})
	assert.Error(t, err)
}

func TestClassifyReservedStackNeverAliasesSavedRbp(t *testing.T) {
	sig, err := Classify([]types.Primitive{types.U64})
	require.NoError(t, err)
	assert.NotEqual(t, 0, sig.Params[0].Offset, "offset 0 would alias the saved rbp slot")
}
