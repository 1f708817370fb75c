// Package engine holds the FlexNN graph model: the operator/blob arrays,
// topological sort, and shape inference that every other package builds on.
//
// Reading guide. Start here, then:
//   - engine/kernel registers per-operator-kind shape inference.
//   - engine/slicer rewrites oversize operators using this package's graph.
//   - engine/profiler runs a dry pass over a sliced, shape-inferred graph.
//   - engine/xyplane is the 2-D placement primitive used by...
//   - engine/scheduler, which turns profiles into a malloc plan.
//   - engine/allocator replays that plan during real inference, driven by...
//   - engine/executor's loader/computer worker pair.
//
// Like the simulator this module's tooling was adapted from, operator kind
// implementations register themselves into this package's dispatch table
// from their own init() functions rather than being imported directly here,
// which keeps engine free of a dependency on engine/kernel.
package engine
