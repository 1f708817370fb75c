package scheduler

import "github.com/flexnn/flexnn/internal/align"

// Config tunes schedule_naive's heuristics. All the numeric defaults below
// reproduce the constants hardcoded in flexnnschedule.h.
type Config struct {
	MemoryBudget int // Y extent of the unified buffer, in bytes

	SkipLayerCount  int // operators before the first loadable weight; default 1
	MaxPreloadCount int // how many operators the loader may run ahead; default 50
	Align           int // byte alignment for every offset; default align.Align

	// PersistentComputeLoadRatio and PersistentSlackFraction gate whether any
	// weight is made persistent at all: persistent selection only runs when
	// total_compute < PersistentComputeLoadRatio*total_load and
	// PersistentSlackFraction*(total_weight-weight_at_peak) < margin.
	PersistentComputeLoadRatio float64 // default 2.0
	PersistentSlackFraction    float64 // default 0.7
}

func (c Config) withDefaults() Config {
	if c.SkipLayerCount == 0 {
		c.SkipLayerCount = 1
	}
	if c.MaxPreloadCount == 0 {
		c.MaxPreloadCount = 50
	}
	if c.Align == 0 {
		c.Align = align.Align
	}
	if c.PersistentComputeLoadRatio == 0 {
		c.PersistentComputeLoadRatio = 2.0
	}
	if c.PersistentSlackFraction == 0 {
		c.PersistentSlackFraction = 0.7
	}
	return c
}
