package slicer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

func fcGraph(t *testing.T, numOutput, weightDataSize int) *engine.Graph {
	t.Helper()
	g := &engine.Graph{
		InputCount: 1,
		Operators: []engine.Operator{
			{Kind: engine.KindInput, Name: "in", Outputs: []int{0}, Params: &kernel.InputParams{Shape: [4]int{1, 1, 1, 16}}},
			{Kind: engine.KindInnerProduct, Name: "fc", Inputs: []int{0}, Outputs: []int{1},
				Params: &kernel.InnerProductParams{NumOutput: numOutput, WeightDataSize: weightDataSize}},
		},
		Blobs: []engine.Blob{
			{Name: "in", Producer: 0, Consumer: 1},
			{Name: "fc_out", Producer: 1, Consumer: -1},
		},
	}
	require.NoError(t, g.TopologicalSort())
	require.NoError(t, engine.InferShapes(g))
	return g
}

func TestSliceSplitsOversizeInnerProduct(t *testing.T) {
	g := fcGraph(t, 1000, 16000)

	require.NoError(t, Slice(g, Config{MaxDataSizeElements: 100}))
	require.NoError(t, g.Validate())

	var branches int
	for _, op := range g.Operators {
		if op.Kind == engine.KindInnerProduct {
			branches++
			p := op.Params.(*kernel.InnerProductParams)
			assert.LessOrEqual(t, p.NumOutput, 100)
		}
	}
	assert.Greater(t, branches, 1, "oversize InnerProduct must be split into more than one branch")

	var hasSplit, hasConcat bool
	for _, op := range g.Operators {
		hasSplit = hasSplit || op.Kind == engine.KindSplit
		hasConcat = hasConcat || op.Kind == engine.KindConcat
	}
	assert.True(t, hasSplit)
	assert.True(t, hasConcat)
}

func TestSliceLeavesInBudgetInnerProductUntouched(t *testing.T) {
	g := fcGraph(t, 10, 160)

	require.NoError(t, Slice(g, Config{MaxDataSizeElements: 1000}))

	var fcCount int
	for _, op := range g.Operators {
		if op.Kind == engine.KindInnerProduct {
			fcCount++
		}
	}
	assert.Equal(t, 1, fcCount)
}

func TestSliceSplitWeightDataSizeSumsToOriginal(t *testing.T) {
	g := fcGraph(t, 1000, 16000)
	require.NoError(t, Slice(g, Config{MaxDataSizeElements: 100}))

	total := 0
	for _, op := range g.Operators {
		if op.Kind == engine.KindInnerProduct {
			total += op.Params.(*kernel.InnerProductParams).WeightDataSize
		}
	}
	assert.Equal(t, 16000, total)
}
