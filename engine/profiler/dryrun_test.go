package profiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

func shapeInferredChain(t *testing.T) *engine.Graph {
	t.Helper()
	g := &engine.Graph{
		InputCount: 1,
		Operators: []engine.Operator{
			{Kind: engine.KindInput, Name: "in", Outputs: []int{0}, Params: &kernel.InputParams{Shape: [4]int{1, 1, 1, 8}}},
			{Kind: engine.KindInnerProduct, Name: "fc1", Inputs: []int{0}, Outputs: []int{1},
				Params: &kernel.InnerProductParams{NumOutput: 4, WeightDataSize: 64}},
			{Kind: engine.KindInnerProduct, Name: "fc2", Inputs: []int{1}, Outputs: []int{2},
				Params: &kernel.InnerProductParams{NumOutput: 2, WeightDataSize: 32}},
		},
		Blobs: []engine.Blob{
			{Name: "in", Producer: 0, Consumer: 1},
			{Name: "fc1_out", Producer: 1, Consumer: 2},
			{Name: "fc2_out", Producer: 2, Consumer: -1},
		},
	}
	require.NoError(t, engine.InferShapes(g))
	return g
}

func TestRunEmitsOneWeightMallocFreePairPerWeightedOperator(t *testing.T) {
	g := shapeInferredChain(t)

	mp, _, err := Run(g, DryRunConfig{})
	require.NoError(t, err)

	weightMallocs, weightFrees := 0, 0
	for _, ev := range mp.Events() {
		if ev.Class != engine.ClassWeight {
			continue
		}
		if ev.Kind == EventMalloc {
			weightMallocs++
		} else {
			weightFrees++
		}
	}
	assert.Equal(t, 2, weightMallocs)
	assert.Equal(t, 2, weightFrees)
}

func TestRunProducesATimeProfileEntryPerOperator(t *testing.T) {
	g := shapeInferredChain(t)

	_, tp, err := Run(g, DryRunConfig{})
	require.NoError(t, err)

	profiles := tp.Profiles()
	assert.Len(t, profiles, len(g.Operators))
	for _, p := range profiles {
		assert.GreaterOrEqual(t, p.LoadingEnd, p.LoadingBegin)
		assert.GreaterOrEqual(t, p.ComputingEnd, p.ComputingBegin)
	}
}

func TestRunSkipsWeightCostForInputOperator(t *testing.T) {
	g := shapeInferredChain(t)

	_, tp, err := Run(g, DryRunConfig{})
	require.NoError(t, err)

	profiles := tp.Profiles()
	require.NotEmpty(t, profiles)
	assert.Equal(t, 0.0, profiles[0].LoadingEnd-profiles[0].LoadingBegin)
}

func TestRunHigherThroughputYieldsLowerDuration(t *testing.T) {
	g1 := shapeInferredChain(t)
	g2 := shapeInferredChain(t)

	_, slow, err := Run(g1, DryRunConfig{LoadBytesPerMS: 1e6, ComputeElementsPerMS: 1e6})
	require.NoError(t, err)
	_, fast, err := Run(g2, DryRunConfig{LoadBytesPerMS: 1e9, ComputeElementsPerMS: 1e9})
	require.NoError(t, err)

	slowProfiles := slow.Profiles()
	fastProfiles := fast.Profiles()
	require.Len(t, slowProfiles, len(fastProfiles))
	totalSlow, totalFast := 0.0, 0.0
	for i := range slowProfiles {
		totalSlow += slowProfiles[i].LoadingDuration + slowProfiles[i].ComputingDuration
		totalFast += fastProfiles[i].LoadingDuration + fastProfiles[i].ComputingDuration
	}
	assert.Less(t, totalFast, totalSlow)
}
