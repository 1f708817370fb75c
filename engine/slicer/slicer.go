package slicer

import (
	"fmt"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

// Slice rewrites every operator in g whose transient memory need exceeds
// cfg's budget into a Split -> {smaller op}* -> Concat subgraph, then
// re-runs topological sort and shape inference. g must already be
// topologically sorted and shape-inferred before calling Slice.
func Slice(g *engine.Graph, cfg Config) error {
	changed := true
	for changed {
		changed = false
		for i := range g.Operators {
			op := &g.Operators[i]
			switch op.Kind {
			case engine.KindInnerProduct:
				did, err := sliceInnerProduct(g, i, cfg)
				if err != nil {
					return err
				}
				if did {
					changed = true
				}
			case engine.KindConvolution:
				did, err := sliceConvolution(g, i, cfg)
				if err != nil {
					return err
				}
				if did {
					changed = true
				}
			}
			if changed {
				break // graph indices are now stale; restart the scan
			}
		}
		if changed {
			if err := g.TopologicalSort(); err != nil {
				return err
			}
			if err := engine.InferShapes(g); err != nil {
				return err
			}
		}
	}
	return nil
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// sliceInnerProduct implements spec.md §4.C's InnerProduct decomposition:
// split out_features into k row-range chunks, each within
// cfg.MaxDataSizeElements, joined back with Concat.
func sliceInnerProduct(g *engine.Graph, opIdx int, cfg Config) (bool, error) {
	op := g.Operators[opIdx]
	params, ok := op.Params.(*kernel.InnerProductParams)
	if !ok {
		return false, fmt.Errorf("%w: InnerProduct %q missing params", engine.ErrSlicingFailure, op.Name)
	}
	if len(op.Inputs) != 1 || len(op.Outputs) != 1 {
		return false, fmt.Errorf("%w: InnerProduct %q must have exactly one input and output", engine.ErrSlicingFailure, op.Name)
	}
	inBlobIdx, outBlobIdx := op.Inputs[0], op.Outputs[0]
	inShape := g.Blobs[inBlobIdx].Shape
	inFeatures := inShape.Elements()
	n := params.NumOutput

	if cfg.MaxDataSizeElements <= 0 {
		return false, nil
	}
	nMax := (cfg.MaxDataSizeElements - inFeatures) / (1 + inFeatures)
	if nMax < 1 {
		return false, fmt.Errorf("%w: InnerProduct %q: no output-row count fits budget %d with in_features=%d", engine.ErrSlicingFailure, op.Name, cfg.MaxDataSizeElements, inFeatures)
	}
	if n <= nMax {
		return false, nil
	}
	k := ceilDiv(n, nMax)

	axis := 1
	if inShape.H == 1 && inShape.D == 1 && inShape.C == 1 {
		axis = 0
	}

	rewriteFanOutSplit(g, opIdx, inBlobIdx, outBlobIdx, k, func(j int) (engine.Operator, engine.Shape) {
		chunk := n / k
		if j == k-1 {
			chunk = n - chunk*(k-1)
		}
		outShape := inShape
		outShape.W, outShape.H, outShape.D = 1, 1, 1
		outShape.C = chunk
		return engine.Operator{
			Kind: engine.KindInnerProduct,
			Name: fmt.Sprintf("%s_%d", op.Name, j),
			Params: &kernel.InnerProductParams{
				NumOutput:      chunk,
				WeightDataSize: params.WeightDataSize * chunk / n,
			},
		}, outShape
	}, &kernel.ConcatParams{Axis: axis})

	return true, nil
}

// sliceConvolution implements spec.md §4.C's Convolution decomposition:
// for a 3x3 stride-1 convolution with both channel counts >= 8, first try
// Winograd F(6,3) then F(4,3); if neither fits cfg.ConvMaxBytes, split along
// output channels (aligned to 8, halving) until the per-branch footprint
// fits.
func sliceConvolution(g *engine.Graph, opIdx int, cfg Config) (bool, error) {
	op := g.Operators[opIdx]
	params, ok := op.Params.(*kernel.ConvParams)
	if !ok {
		return false, fmt.Errorf("%w: Convolution %q missing params", engine.ErrSlicingFailure, op.Name)
	}
	if len(op.Inputs) != 1 || len(op.Outputs) != 1 {
		return false, fmt.Errorf("%w: Convolution %q must have exactly one input and output", engine.ErrSlicingFailure, op.Name)
	}
	inBlobIdx, outBlobIdx := op.Inputs[0], op.Outputs[0]
	inShape := g.Blobs[inBlobIdx].Shape

	if cfg.ConvMaxBytes <= 0 {
		return false, nil
	}

	isEligible := params.KernelW == 3 && params.KernelH == 3 &&
		params.StrideW == 1 && params.StrideH == 1 &&
		inShape.C >= 8 && params.NumOutput >= 8

	if isEligible {
		for _, m := range []int{6, 4} {
			if winogradWorkspaceBytes(m, inShape, params.NumOutput) <= cfg.ConvMaxBytes {
				return false, nil // fits as-is once pretransformed; Pretransform chooses the layout
			}
		}
	} else if directWorkspaceBytes(inShape, params, params.NumOutput) <= cfg.ConvMaxBytes {
		return false, nil
	}

	outC := params.NumOutput
	for outC > 8 {
		candidate := outC / 2
		candidate -= candidate % 8
		if candidate < 8 {
			candidate = 8
		}
		fits := directWorkspaceBytes(inShape, params, candidate) <= cfg.ConvMaxBytes
		if isEligible {
			fits = winogradWorkspaceBytes(4, inShape, candidate) <= cfg.ConvMaxBytes
		}
		if fits {
			outC = candidate
			break
		}
		outC = candidate
	}
	if outC >= params.NumOutput {
		return false, fmt.Errorf("%w: Convolution %q: no output-channel split fits budget %d bytes", engine.ErrSlicingFailure, op.Name, cfg.ConvMaxBytes)
	}
	k := ceilDiv(params.NumOutput, outC)

	rewriteFanOutSplit(g, opIdx, inBlobIdx, outBlobIdx, k, func(j int) (engine.Operator, engine.Shape) {
		chunk := params.NumOutput / k
		if j == k-1 {
			chunk = params.NumOutput - chunk*(k-1)
		}
		branchParams := *params
		branchParams.NumOutput = chunk
		branchParams.WeightDataSize = params.WeightDataSize * chunk / params.NumOutput
		outShape := inShape
		outShape.W = convOutDim(inShape.W, params.KernelW, params.DilationW, params.StrideW, params.PadLeft, params.PadRight)
		outShape.H = convOutDim(inShape.H, params.KernelH, params.DilationH, params.StrideH, params.PadTop, params.PadBottom)
		outShape.C = chunk
		return engine.Operator{
			Kind:   engine.KindConvolution,
			Name:   fmt.Sprintf("%s_%d", op.Name, j),
			Params: &branchParams,
		}, outShape
	}, &kernel.ConcatParams{Axis: 0})

	return true, nil
}

// WorkspaceBytes estimates the transient scratch memory op needs to
// compute its current (post-pretransform) weight layout, given its input
// shape. Non-Convolution kinds need no workspace in this model and return
// 0. Used by the structural memory dry run to emit a workspace malloc/free
// pair around each operator's compute phase.
func WorkspaceBytes(op engine.Operator, inShape engine.Shape) int {
	p, ok := op.Params.(*kernel.ConvParams)
	if !ok {
		return 0
	}
	switch p.WeightLayout {
	case LayoutWinograd63:
		return winogradWorkspaceBytes(6, inShape, p.NumOutput)
	case LayoutWinograd43:
		return winogradWorkspaceBytes(4, inShape, p.NumOutput)
	case LayoutIm2colGEMM:
		return directWorkspaceBytes(inShape, p, p.NumOutput)
	default:
		return 0
	}
}

func convOutDim(in, kernelSize, dilation, stride, padBefore, padAfter int) int {
	effectiveKernel := dilation*(kernelSize-1) + 1
	return (in+padBefore+padAfter-effectiveKernel)/stride + 1
}

// winogradWorkspaceBytes approximates the transient memory a Winograd F(m,3)
// transform needs: transformed-input tiles plus transformed-kernel storage,
// at 4 bytes/element. Tile edge length is m+3-1.
func winogradWorkspaceBytes(m int, in engine.Shape, outC int) int {
	tile := m + 3 - 1
	tilesW := ceilDiv(in.W, m)
	tilesH := ceilDiv(in.H, m)
	numTiles := tilesW * tilesH
	transformedInput := numTiles * tile * tile * in.C * 4
	transformedKernel := tile * tile * in.C * outC * 4
	return transformedInput + transformedKernel
}

// directWorkspaceBytes approximates an im2col/direct convolution's
// transient buffer: one im2col column matrix sized kernel_area*in_c by
// out_w*out_h, 4 bytes/element.
func directWorkspaceBytes(in engine.Shape, p *kernel.ConvParams, outC int) int {
	outW := convOutDim(in.W, p.KernelW, p.DilationW, p.StrideW, p.PadLeft, p.PadRight)
	outH := convOutDim(in.H, p.KernelH, p.DilationH, p.StrideH, p.PadTop, p.PadBottom)
	kernelArea := p.KernelW * p.KernelH * in.C
	im2col := kernelArea * outW * outH * 4
	weights := kernelArea * outC * 4
	return im2col + weights
}

// rewriteFanOutSplit is the shared Split -> branches -> Concat graph
// surgery used by both sliceInnerProduct and sliceConvolution: it inserts a
// Split operator fanning inBlobIdx out to k copies, k branch operators
// built by makeBranch, and a Concat operator feeding back into the original
// outBlobIdx so every other operator's reference to that blob is unaffected.
func rewriteFanOutSplit(g *engine.Graph, opIdx, inBlobIdx, outBlobIdx, k int, makeBranch func(j int) (engine.Operator, engine.Shape), concatParams *kernel.ConcatParams) {
	n := len(g.Operators)
	producerMap := make([]int, n)
	consumerMap := make([]int, n)
	for i := 0; i < n; i++ {
		producerMap[i] = i
		consumerMap[i] = i
	}

	newOps := make([]engine.Operator, 0, n+2*k+2)
	newBlobs := append([]engine.Blob(nil), g.Blobs...)

	for i, op := range g.Operators {
		if i != opIdx {
			newIdx := len(newOps)
			producerMap[i] = newIdx
			consumerMap[i] = newIdx
			newOps = append(newOps, op)
			continue
		}

		splitIdx := len(newOps)
		consumerMap[i] = splitIdx

		branchInBlobs := make([]int, k)
		origOp := g.Operators[opIdx]
		for j := 0; j < k; j++ {
			bi := len(newBlobs)
			newBlobs = append(newBlobs, engine.Blob{
				Name:     fmt.Sprintf("%s_split%d", origOp.Name, j),
				Producer: splitIdx,
				Shape:    g.Blobs[inBlobIdx].Shape,
			})
			branchInBlobs[j] = bi
		}
		newOps = append(newOps, engine.Operator{
			Kind:    engine.KindSplit,
			Name:    origOp.Name + "_split",
			Inputs:  []int{inBlobIdx},
			Outputs: branchInBlobs,
			Params:  &kernel.SplitParams{},
		})

		branchOutBlobs := make([]int, k)
		for j := 0; j < k; j++ {
			branchIdx := len(newOps)
			newBlobs[branchInBlobs[j]].Consumer = branchIdx

			branch, shape := makeBranch(j)
			branch.Inputs = []int{branchInBlobs[j]}

			bi := len(newBlobs)
			branchOutBlobs[j] = bi
			branch.Outputs = []int{bi}
			newOps = append(newOps, branch)
			newBlobs = append(newBlobs, engine.Blob{
				Name:     branch.Name + "_out",
				Producer: branchIdx,
				Shape:    shape,
			})
		}

		concatIdx := len(newOps)
		producerMap[i] = concatIdx
		for j := 0; j < k; j++ {
			newBlobs[branchOutBlobs[j]].Consumer = concatIdx
		}
		newOps = append(newOps, engine.Operator{
			Kind:    engine.KindConcat,
			Name:    origOp.Name + "_concat",
			Inputs:  branchOutBlobs,
			Outputs: []int{outBlobIdx},
			Params:  concatParams,
		})
	}

	for bi := range g.Blobs { // remap only the original blobs; new ones already carry final indices
		newBlobs[bi].Producer = producerMap[newBlobs[bi].Producer]
		if newBlobs[bi].Consumer != -1 {
			newBlobs[bi].Consumer = consumerMap[newBlobs[bi].Consumer]
		}
	}

	g.Operators = newOps
	g.Blobs = newBlobs
}
