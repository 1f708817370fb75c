// Package slicer rewrites operators that would need more transient memory
// than a target device can spare into topologically equivalent
// Split -> {smaller op}* -> Concat subgraphs, then re-validates the graph.
//
// Grounded on original_source/src/net.cpp's graph-rewrite passes for the
// overall shape, and on spec.md §4.C for the exact decomposition formulas
// (the narrower C++ slicing tool that ships the precise Winograd tile
// arithmetic was not part of the retrieved original_source/ set, so the
// Winograd memory estimate here is a direct implementation of the
// tile-count formula the spec names rather than a port of original code).
package slicer

// Config bounds how large any one operator's transient memory footprint is
// allowed to be, following the grouped *Config convention used throughout
// this codebase.
type Config struct {
	// MaxDataSizeElements bounds an InnerProduct's transient buffer size,
	// measured in elements (not bytes) to match the spec's worked example.
	MaxDataSizeElements int
	// ConvMaxBytes bounds a Convolution's transient (im2col/Winograd
	// workspace) footprint in bytes.
	ConvMaxBytes int
}
