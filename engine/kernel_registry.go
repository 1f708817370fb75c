package engine

import "fmt"

// ShapeInferFunc propagates shapes through one operator: given the already-
// known shapes of its inputs, it returns the shapes of its outputs.
type ShapeInferFunc func(op *Operator, inputs []Shape) ([]Shape, error)

// kernelRegistry holds one ShapeInferFunc per operator kind. Implementations
// live in engine/kernel and register themselves here from init(), the same
// way the simulator this tooling was adapted from wires pluggable latency
// models and KV stores into its root package without an import cycle.
var kernelRegistry = map[OperatorKind]ShapeInferFunc{}

// RegisterShapeInfer is called by engine/kernel's init() functions, one per
// supported OperatorKind. Calling it twice for the same kind is a
// programmer error and panics, matching the panic-on-duplicate-registration
// discipline used elsewhere in this codebase's factory functions.
func RegisterShapeInfer(kind OperatorKind, fn ShapeInferFunc) {
	if _, exists := kernelRegistry[kind]; exists {
		panic(fmt.Sprintf("engine: shape inference already registered for kind %q", kind))
	}
	kernelRegistry[kind] = fn
}

// InferShapes walks g in topological order, invoking the registered
// ShapeInferFunc per operator and assigning results to output blobs. The
// graph must already be topologically sorted.
func InferShapes(g *Graph) error {
	for oi := range g.Operators {
		op := &g.Operators[oi]
		infer, ok := kernelRegistry[op.Kind]
		if !ok {
			return fmt.Errorf("%w: no shape inference registered for kind %q", ErrGraphInvariantViolation, op.Kind)
		}

		inputShapes := make([]Shape, len(op.Inputs))
		for i, bi := range op.Inputs {
			inputShapes[i] = g.Blobs[bi].Shape
			if inputShapes[i].Empty() {
				return fmt.Errorf("%w: operator %d (%s) input blob %d has no shape yet", ErrShapeInferenceIncomplete, oi, op.Name, bi)
			}
		}

		outShapes, err := infer(op, inputShapes)
		if err != nil {
			return fmt.Errorf("%w: operator %d (%s): %v", ErrShapeInferenceIncomplete, oi, op.Name, err)
		}
		if len(outShapes) != len(op.Outputs) {
			return fmt.Errorf("%w: operator %d (%s) produced %d shapes for %d outputs", ErrShapeInferenceIncomplete, oi, op.Name, len(outShapes), len(op.Outputs))
		}
		for i, bi := range op.Outputs {
			if outShapes[i].Empty() {
				return fmt.Errorf("%w: operator %d (%s) inferred empty shape for output %d", ErrShapeInferenceIncomplete, oi, op.Name, bi)
			}
			g.Blobs[bi].Shape = outShapes[i]
		}
	}
	return nil
}
