package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
)

func TestInputShapeReadsFixedShape(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindInput, Params: &InputParams{Shape: [4]int{4, 5, 1, 3}}}
	out, err := inputShape(op, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, engine.Shape{W: 4, H: 5, D: 1, C: 3, ElemSize: elemSize}, out[0])
}

func TestConvShapeAppliesStrideAndPadding(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindConvolution, Params: &ConvParams{
		NumOutput: 8, KernelW: 3, KernelH: 3, DilationW: 1, DilationH: 1, StrideW: 2, StrideH: 2,
		PadLeft: 1, PadRight: 1, PadTop: 1, PadBottom: 1,
	}}
	in := engine.Shape{W: 8, H: 8, D: 1, C: 3, ElemSize: elemSize}
	out, err := convShape(op, []engine.Shape{in})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0].W)
	assert.Equal(t, 4, out[0].H)
	assert.Equal(t, 8, out[0].C)
}

func TestConvShapeRejectsWrongInputCount(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindConvolution, Params: &ConvParams{}}
	_, err := convShape(op, nil)
	assert.Error(t, err)
}

func TestInnerProductShapeCollapsesToNumOutput(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindInnerProduct, Params: &InnerProductParams{NumOutput: 16}}
	in := engine.Shape{W: 4, H: 4, D: 1, C: 8, ElemSize: elemSize}
	out, err := innerProductShape(op, []engine.Shape{in})
	require.NoError(t, err)
	assert.Equal(t, 16, out[0].C)
	assert.Equal(t, 1, out[0].Elements()/out[0].C)
}

func TestSplitShapeReplicatesInputPerOutput(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindSplit, Outputs: []int{0, 1, 2}}
	in := engine.Shape{W: 1, H: 1, D: 1, C: 4, ElemSize: elemSize}
	out, err := splitShape(op, []engine.Shape{in})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, s := range out {
		assert.Equal(t, in, s)
	}
}

func TestConcatShapeSumsChannelsAcrossInputs(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindConcat, Params: &ConcatParams{Axis: 1}}
	a := engine.Shape{W: 1, H: 1, D: 1, C: 4, ElemSize: elemSize}
	b := engine.Shape{W: 1, H: 1, D: 1, C: 6, ElemSize: elemSize}
	out, err := concatShape(op, []engine.Shape{a, b})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 10, out[0].C)
}

func TestGatherShapeSetsHeightToIndexCount(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindGather, Params: &GatherParams{Axis: 0}}
	data := engine.Shape{W: 1, H: 1, D: 1, C: 8, ElemSize: elemSize}
	indices := engine.Shape{W: 1, H: 1, D: 1, C: 5, ElemSize: elemSize}
	out, err := gatherShape(op, []engine.Shape{data, indices})
	require.NoError(t, err)
	assert.Equal(t, 5, out[0].H)
	assert.Equal(t, 8, out[0].C)
}

func TestDivTrilWhereShapePassesShapeThrough(t *testing.T) {
	op := &engine.Operator{Kind: engine.KindDivTrilWhere, Params: &DivTrilWhereParams{Divisor: 8}}
	in := engine.Shape{W: 2, H: 2, D: 1, C: 4, ElemSize: elemSize}
	out, err := divTrilWhereShape(op, []engine.Shape{in})
	require.NoError(t, err)
	assert.Equal(t, in, out[0])
}
