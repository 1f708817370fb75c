package kernel

import (
	"fmt"

	"github.com/flexnn/flexnn/engine"
)

const elemSize = 4 // float32, matching ncnn's default Mat element size

func init() {
	engine.RegisterShapeInfer(engine.KindInput, inputShape)
	engine.RegisterShapeInfer(engine.KindConvolution, convShape)
	engine.RegisterShapeInfer(engine.KindInnerProduct, innerProductShape)
	engine.RegisterShapeInfer(engine.KindSplit, splitShape)
	engine.RegisterShapeInfer(engine.KindConcat, concatShape)
	engine.RegisterShapeInfer(engine.KindGather, gatherShape)
	engine.RegisterShapeInfer(engine.KindDivTrilWhere, divTrilWhereShape)
}

func inputShape(op *engine.Operator, _ []engine.Shape) ([]engine.Shape, error) {
	p, ok := op.Params.(*InputParams)
	if !ok {
		return nil, fmt.Errorf("Input operator %q missing InputParams", op.Name)
	}
	return []engine.Shape{{
		W: p.Shape[0], H: p.Shape[1], D: p.Shape[2], C: p.Shape[3],
		ElemSize: elemSize,
	}}, nil
}

func convOutputDim(in, kernel, dilation, stride, padBefore, padAfter int) int {
	effectiveKernel := dilation*(kernel-1) + 1
	return (in+padBefore+padAfter-effectiveKernel)/stride + 1
}

func convShape(op *engine.Operator, inputs []engine.Shape) ([]engine.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("Convolution %q wants 1 input, got %d", op.Name, len(inputs))
	}
	p, ok := op.Params.(*ConvParams)
	if !ok {
		return nil, fmt.Errorf("Convolution %q missing ConvParams", op.Name)
	}
	in := inputs[0]
	outW := convOutputDim(in.W, p.KernelW, p.DilationW, p.StrideW, p.PadLeft, p.PadRight)
	outH := convOutputDim(in.H, p.KernelH, p.DilationH, p.StrideH, p.PadTop, p.PadBottom)
	return []engine.Shape{{W: outW, H: outH, D: in.D, C: p.NumOutput, ElemSize: elemSize}}, nil
}

func innerProductShape(op *engine.Operator, inputs []engine.Shape) ([]engine.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("InnerProduct %q wants 1 input, got %d", op.Name, len(inputs))
	}
	p, ok := op.Params.(*InnerProductParams)
	if !ok {
		return nil, fmt.Errorf("InnerProduct %q missing InnerProductParams", op.Name)
	}
	return []engine.Shape{{W: 1, H: 1, D: 1, C: p.NumOutput, ElemSize: elemSize}}, nil
}

func splitShape(op *engine.Operator, inputs []engine.Shape) ([]engine.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("Split %q wants 1 input, got %d", op.Name, len(inputs))
	}
	out := make([]engine.Shape, len(op.Outputs))
	for i := range out {
		out[i] = inputs[0]
	}
	return out, nil
}

func concatShape(op *engine.Operator, inputs []engine.Shape) ([]engine.Shape, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("Concat %q wants at least 1 input", op.Name)
	}
	p, _ := op.Params.(*ConcatParams)
	axis := 1
	if p != nil {
		axis = p.Axis
	}
	out := inputs[0]
	total := 0
	for _, in := range inputs {
		switch axis {
		case 0:
			total += in.C
		default:
			total += in.C // FlexNN concats 2-D activations along the channel/feature axis either way
		}
	}
	out.C = total
	return []engine.Shape{out}, nil
}

func gatherShape(op *engine.Operator, inputs []engine.Shape) ([]engine.Shape, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("Gather %q wants 2 inputs (data, indices), got %d", op.Name, len(inputs))
	}
	data, indices := inputs[0], inputs[1]
	out := data
	out.H = indices.Elements()
	return []engine.Shape{out}, nil
}

func divTrilWhereShape(op *engine.Operator, inputs []engine.Shape) ([]engine.Shape, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("DivTrilWhere %q wants 1 input, got %d", op.Name, len(inputs))
	}
	return []engine.Shape{inputs[0]}, nil
}
