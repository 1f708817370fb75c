// Package kernel registers the shape-inference function for every
// OperatorKind engine.Graph can hold. Each init() below calls
// engine.RegisterShapeInfer exactly once, mirroring the import-cycle-
// breaking registration idiom used elsewhere for pluggable per-domain
// implementations: engine never imports kernel, so callers must import
// kernel for side effects (`import _ "github.com/flexnn/flexnn/engine/kernel"`)
// before building or slicing a graph.
//
// Forward execution, weight loading, and pipeline creation are deliberately
// not implemented here — per the purpose statement, the neural operator
// kernels themselves are external collaborators. What lives here is only
// enough of each operator's shape contract for the planning engine (slicer,
// profiler, scheduler) to reason about tensor sizes without running real
// math.
package kernel
