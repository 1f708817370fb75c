package engine

import "fmt"

// MemoryClass tags which of the three allocator façades a region belongs
// to: weight data (persists across a load/free cycle only for the lifetime
// of its operator, unless marked persistent by the scheduler), activation
// blobs, or per-operator scratch workspace.
type MemoryClass int

const (
	ClassWeight MemoryClass = iota
	ClassBlob
	ClassWorkspace
)

func (c MemoryClass) String() string {
	switch c {
	case ClassWeight:
		return "weight"
	case ClassBlob:
		return "blob"
	case ClassWorkspace:
		return "workspace"
	default:
		return fmt.Sprintf("MemoryClass(%d)", int(c))
	}
}

// Shape is a symbolic tensor shape: up to four dims plus an element size in
// bytes. Unused dims are 1, never 0 — a Shape is "empty" only when ElemSize
// is 0, which is how shape inference reports a blob it couldn't infer.
type Shape struct {
	W, H, D, C int
	ElemSize   int
}

// Elements returns the total element count described by the shape.
func (s Shape) Elements() int { return s.W * s.H * s.D * s.C }

// Bytes returns Elements() * ElemSize.
func (s Shape) Bytes() int { return s.Elements() * s.ElemSize }

// Empty reports whether shape inference has not yet populated this shape.
func (s Shape) Empty() bool { return s.ElemSize == 0 }

// OperatorKind identifies which shape-inference/forward/load_param
// implementation in engine/kernel handles an operator.
type OperatorKind string

const (
	KindInput        OperatorKind = "Input"
	KindConvolution  OperatorKind = "Convolution"
	KindInnerProduct OperatorKind = "InnerProduct"
	KindSplit        OperatorKind = "Split"
	KindConcat       OperatorKind = "Concat"
	KindGather       OperatorKind = "Gather"
	KindDivTrilWhere OperatorKind = "DivTrilWhere"
)

// Blob is a tensor produced by exactly one operator and consumed by at most
// one. Consumer == -1 means the blob is a network output.
type Blob struct {
	Name     string
	Producer int
	Consumer int
	Shape    Shape
}

// Operator is one node of the computation graph ("layer" in the original).
// Inputs/Outputs hold blob indices into the owning Graph's Blobs slice.
type Operator struct {
	Kind    OperatorKind
	Name    string
	Inputs  []int
	Outputs []int
	// Params is kind-specific: *kernel.ConvParams, *kernel.InnerProductParams,
	// *kernel.ConcatParams, etc. engine itself never inspects it — only the
	// registered kernel implementation for the operator's Kind does.
	Params any
}

// Graph is the whole network: an index-addressed array of operators and an
// index-addressed array of blobs. Relationships are always expressed as
// integer indices, never pointers, so a full graph snapshot is a cheap
// value copy — useful for the slicer's rewrite-and-retry passes.
type Graph struct {
	Operators []Operator
	Blobs     []Blob
	// InputCount is the number of leading operators that are KindInput; the
	// graph invariant is that they occupy indices [0, InputCount) after
	// every topological sort.
	InputCount int
}

// Validate checks the graph invariants from the data model: every blob has
// exactly one producer, consumer indices are in range, and no operator
// references an out-of-range blob index.
func (g *Graph) Validate() error {
	for bi, b := range g.Blobs {
		if b.Producer < 0 || b.Producer >= len(g.Operators) {
			return fmt.Errorf("%w: blob %d (%s) has invalid producer %d", ErrGraphInvariantViolation, bi, b.Name, b.Producer)
		}
		if b.Consumer != -1 && (b.Consumer < 0 || b.Consumer >= len(g.Operators)) {
			return fmt.Errorf("%w: blob %d (%s) has invalid consumer %d", ErrGraphInvariantViolation, bi, b.Name, b.Consumer)
		}
	}
	for oi, op := range g.Operators {
		for _, bi := range op.Inputs {
			if bi < 0 || bi >= len(g.Blobs) {
				return fmt.Errorf("%w: operator %d (%s) references out-of-range input blob %d", ErrGraphInvariantViolation, oi, op.Name, bi)
			}
		}
		for _, bi := range op.Outputs {
			if bi < 0 || bi >= len(g.Blobs) {
				return fmt.Errorf("%w: operator %d (%s) references out-of-range output blob %d", ErrGraphInvariantViolation, oi, op.Name, bi)
			}
		}
	}
	for i := 0; i < g.InputCount; i++ {
		if g.Operators[i].Kind != KindInput {
			return fmt.Errorf("%w: operator %d expected to be Input, got %s", ErrGraphInvariantViolation, i, g.Operators[i].Kind)
		}
		if len(g.Operators[i].Inputs) != 0 {
			return fmt.Errorf("%w: Input operator %d has non-empty inputs", ErrGraphInvariantViolation, i)
		}
	}
	return nil
}
