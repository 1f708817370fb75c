package slicer

import (
	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

// Weight layout ids, matching ncnn's Convolution::weight_data_type field
// documented in original_source/src/layer/convolution.h.
const (
	LayoutFlat      = 0
	LayoutCHW       = 1
	LayoutIm2colGEMM = 2
	LayoutWinograd63 = 3
	LayoutWinograd43 = 4
	LayoutWinograd23 = 5
	LayoutConv3x3S2  = 6
)

// Pretransform chooses, for every Convolution operator, the first weight
// layout whose predicted peak memory fits cfg.ConvMaxBytes, trying
// Winograd-63 then Winograd-43 (3x3 stride-1 kernels with at least 8 input
// and output channels only) then im2col-GEMM (any kernel shape). When none
// fits, a 3x3 stride-2 kernel gets the conv3x3s2 layout and anything else
// gets CHW. Pointwise and depthwise-style kernels are not treated specially.
func Pretransform(g *engine.Graph, cfg Config) error {
	for i := range g.Operators {
		op := &g.Operators[i]
		if op.Kind != engine.KindConvolution {
			continue
		}
		params, ok := op.Params.(*kernel.ConvParams)
		if !ok {
			continue
		}
		inShape := g.Blobs[op.Inputs[0]].Shape

		eligible := params.KernelW == 3 && params.KernelH == 3 &&
			params.StrideW == 1 && params.StrideH == 1 &&
			inShape.C >= 8 && params.NumOutput >= 8

		switch {
		case eligible && fitsOrUnbounded(winogradWorkspaceBytes(6, inShape, params.NumOutput), cfg.ConvMaxBytes):
			params.WeightLayout = LayoutWinograd63
		case eligible && fitsOrUnbounded(winogradWorkspaceBytes(4, inShape, params.NumOutput), cfg.ConvMaxBytes):
			params.WeightLayout = LayoutWinograd43
		case fitsOrUnbounded(directWorkspaceBytes(inShape, params, params.NumOutput), cfg.ConvMaxBytes):
			params.WeightLayout = LayoutIm2colGEMM
		case params.StrideW == 2 && params.StrideH == 2 && params.KernelW == 3 && params.KernelH == 3:
			params.WeightLayout = LayoutConv3x3S2
		default:
			params.WeightLayout = LayoutCHW
		}
	}
	return nil
}

func fitsOrUnbounded(size, budget int) bool {
	return budget <= 0 || size <= budget
}
