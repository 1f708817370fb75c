package kernel

// InputParams carries the fixed shape of a graph input; Input operators
// have no operator inputs, so shape inference has nothing else to go on.
type InputParams struct {
	Shape [4]int // W, H, D, C
}

// ConvParams mirrors the subset of ncnn's Convolution parameters that
// shape inference and the slicer's memory estimation need.
type ConvParams struct {
	NumOutput                                 int
	KernelW, KernelH                          int
	DilationW, DilationH                      int
	StrideW, StrideH                          int
	PadLeft, PadRight, PadTop, PadBottom       int
	WeightDataSize                            int
	// WeightLayout: 0=flat 1=CHW 2=im2col-GEMM 3=Winograd63 4=Winograd43
	// 5=Winograd23 6=conv3x3s2, set by the slicer's pretransform pass.
	WeightLayout int
}

// InnerProductParams mirrors ncnn's InnerProduct (fully-connected) layer.
type InnerProductParams struct {
	NumOutput      int
	WeightDataSize int // bytes of weight data this layer owns, bin-split like ConvParams.WeightDataSize
}

// ConcatParams selects the axis blobs are joined along.
type ConcatParams struct {
	Axis int // 0 = channel/row axis, 1 = default NCNN axis for >=2D tensors
}

// SplitParams: Split has no parameters — it fans one blob out to N
// identical copies, one per output, so downstream operators can each
// consume their own reference.
type SplitParams struct{}

// GatherParams mirrors flexnn's transformer-specific Gather layer: gathers
// rows of the input along Axis using an index blob.
type GatherParams struct {
	Axis int
}

// DivTrilWhereParams mirrors flexnn's fused lower-triangular-mask-then-divide
// layer used in attention score computation.
type DivTrilWhereParams struct {
	Divisor float64
}
