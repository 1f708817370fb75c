package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityShape is registered once for this test binary under a kind no
// production code uses, so InferShapes/TopologicalSort tests don't need to
// pull in engine/kernel (which would import engine back, a cycle).
const kindTestIdentity OperatorKind = "TestIdentity"

func init() {
	RegisterShapeInfer(kindTestIdentity, func(op *Operator, inputs []Shape) ([]Shape, error) {
		if len(inputs) == 0 {
			return []Shape{{W: 1, H: 1, D: 1, C: 1, ElemSize: 4}}, nil
		}
		return []Shape{inputs[0]}, nil
	})
}

func chainGraph() *Graph {
	return &Graph{
		InputCount: 1,
		Operators: []Operator{
			{Kind: KindInput, Name: "in", Outputs: []int{0}},
			{Kind: kindTestIdentity, Name: "a", Inputs: []int{0}, Outputs: []int{1}},
			{Kind: kindTestIdentity, Name: "b", Inputs: []int{1}, Outputs: []int{2}},
		},
		Blobs: []Blob{
			{Name: "in", Producer: 0, Consumer: 1},
			{Name: "a_out", Producer: 1, Consumer: 2},
			{Name: "b_out", Producer: 2, Consumer: -1},
		},
	}
}

func TestValidateAcceptsWellFormedGraph(t *testing.T) {
	g := chainGraph()
	require.NoError(t, g.Validate())
}

func TestValidateRejectsOutOfRangeBlobProducer(t *testing.T) {
	g := chainGraph()
	g.Blobs[0].Producer = 99
	assert.ErrorIs(t, g.Validate(), ErrGraphInvariantViolation)
}

func TestValidateRejectsNonInputOperatorInInputPrefix(t *testing.T) {
	g := chainGraph()
	g.InputCount = 2
	assert.ErrorIs(t, g.Validate(), ErrGraphInvariantViolation)
}

func TestTopologicalSortOrdersOutOfOrderOperators(t *testing.T) {
	g := chainGraph()
	// Swap a and b out of dependency order; TopologicalSort must fix it.
	g.Operators[1], g.Operators[2] = g.Operators[2], g.Operators[1]
	g.Blobs[0].Consumer = 2
	g.Blobs[1].Producer = 2
	g.Blobs[1].Consumer = 1
	g.Blobs[2].Producer = 1

	require.NoError(t, g.TopologicalSort())
	assert.Equal(t, "in", g.Operators[0].Name)
	assert.Equal(t, "a", g.Operators[1].Name)
	assert.Equal(t, "b", g.Operators[2].Name)
}

func TestTopologicalSortDetectsCycle(t *testing.T) {
	g := chainGraph()
	// Make b's output feed back into a's input, forming a cycle.
	g.Operators[1].Inputs = append(g.Operators[1].Inputs, 2)
	g.Blobs[2].Consumer = 1

	err := g.TopologicalSort()
	assert.ErrorIs(t, err, ErrGraphInvariantViolation)
}

func TestInferShapesPropagatesAlongChain(t *testing.T) {
	g := chainGraph()
	// engine/kernel's Input shape function is not linked into this test
	// binary; the identity stand-in's no-input case supplies the input shape.
	g.Operators[0].Kind = kindTestIdentity
	require.NoError(t, InferShapes(g))

	for _, b := range g.Blobs {
		assert.False(t, b.Shape.Empty())
	}
	assert.Equal(t, g.Blobs[0].Shape, g.Blobs[1].Shape)
	assert.Equal(t, g.Blobs[1].Shape, g.Blobs[2].Shape)
}

func TestInferShapesFailsOnUnregisteredKind(t *testing.T) {
	g := chainGraph()
	g.Operators[1].Kind = OperatorKind("NoSuchKind")

	err := InferShapes(g)
	assert.ErrorIs(t, err, ErrGraphInvariantViolation)
}
