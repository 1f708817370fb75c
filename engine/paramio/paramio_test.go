package paramio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

func twoLayerGraph() *engine.Graph {
	return &engine.Graph{
		InputCount: 1,
		Operators: []engine.Operator{
			{Kind: engine.KindInput, Name: "in", Inputs: []int{}, Outputs: []int{0}, Params: &kernel.InputParams{Shape: [4]int{1, 1, 1, 8}}},
			{Kind: engine.KindInnerProduct, Name: "fc1", Inputs: []int{0}, Outputs: []int{1},
				Params: &kernel.InnerProductParams{NumOutput: 4, WeightDataSize: 32}},
			{Kind: engine.KindConvolution, Name: "conv1", Inputs: []int{1}, Outputs: []int{2},
				Params: &kernel.ConvParams{NumOutput: 3, KernelW: 1, KernelH: 1, DilationW: 1, DilationH: 1,
					StrideW: 1, StrideH: 1, WeightDataSize: 12}},
		},
		Blobs: []engine.Blob{
			{Name: "in", Producer: 0, Consumer: 1},
			{Name: "fc1_out", Producer: 1, Consumer: 2},
			{Name: "conv1_out", Producer: 2, Consumer: -1},
		},
	}
}

func TestWriteParamThenReadParamRoundTrips(t *testing.T) {
	g := twoLayerGraph()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.param")

	require.NoError(t, WriteParam(path, g))
	got, err := ReadParam(path)
	require.NoError(t, err)

	require.Len(t, got.Operators, len(g.Operators))
	require.Len(t, got.Blobs, len(g.Blobs))
	for i, op := range g.Operators {
		assert.Equal(t, op.Kind, got.Operators[i].Kind)
		assert.Equal(t, op.Name, got.Operators[i].Name)
		assert.Equal(t, op.Inputs, got.Operators[i].Inputs)
		assert.Equal(t, op.Outputs, got.Operators[i].Outputs)
	}
	assert.Equal(t, g.Operators[1].Params, got.Operators[1].Params)
	assert.Equal(t, g.Operators[2].Params, got.Operators[2].Params)
}

func TestReadParamRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.param")
	require.NoError(t, os.WriteFile(path, []byte("not-a-magic\n1 1\n"), 0o644))

	_, err := ReadParam(path)
	assert.ErrorIs(t, err, engine.ErrIOFailure)
}

func TestWriteWeightsSizesMatchWeightDataSize(t *testing.T) {
	g := twoLayerGraph()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")

	require.NoError(t, WriteWeights(path, g))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, data, 32+12)
}

func TestWriteWeightsDeterministicByName(t *testing.T) {
	g := twoLayerGraph()
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.bin")
	p2 := filepath.Join(dir, "b.bin")

	require.NoError(t, WriteWeights(p1, g))
	require.NoError(t, WriteWeights(p2, g))

	d1, err := os.ReadFile(p1)
	require.NoError(t, err)
	d2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, d1, d2)
}

func TestReadWeightsNullReturnsEmpty(t *testing.T) {
	data, err := ReadWeights("null")
	require.NoError(t, err)
	assert.Nil(t, data)
}
