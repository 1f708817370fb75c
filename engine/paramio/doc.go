// Package paramio reads and writes the text graph description and binary
// weight blob the slice and profile CLI commands operate on.
//
// Grounded on original_source/src/net.cpp's Net::load_param (magic number
// 7767517, layer_count/blob_count header, per-operator type/name/bottom/top-
// count/blob-name line) and examples/flexnnslice.h's ModelWriter-derived
// save path, which physically ranges and clones each split branch's share of
// its parent's weight buffer. Two deliberate simplifications from the
// original, recorded in DESIGN.md: per-operator parameters are written as
// `key=value` pairs rather than ncnn's positional integer-id ParamDict
// grammar (consistent with spec.md's own key=value CLI option convention,
// and far simpler than reproducing ncnn's per-layer-type id table), and the
// weight buffer itself is treated as an opaque byte span sized by
// WeightDataSize rather than parsed into typed tensors — this engine's
// planning components (slicer, profiler, scheduler, allocator) never read a
// weight value, only its size, matching the original's own DummyMat
// shape-only representation for everything but the slicer's physical
// weight-buffer split.
package paramio
