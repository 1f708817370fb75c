package executor

import "github.com/flexnn/flexnn/engine/profiler"

// LoadOperator performs whatever I/O a layer's load phase requires —
// reading its weights off disk and preparing it to run. The kernel itself is
// an external collaborator; the executor only calls it at the right time.
type LoadOperator func(layer int) error

// ComputeOperator runs a layer's forward computation once it has been
// loaded, and releases any loading-phase resources the layer no longer
// needs.
type ComputeOperator func(layer int) error

// Config parameterises one forward pass.
type Config struct {
	LayerCount     int
	SkipLayerCount int // input layers the computer never has to load; default 1

	// LayerDependencies[i] is the exclusive end of the range of layer
	// indices the loader may run ahead to once layer i finishes computing.
	// If nil, a default vector is built whose entry SkipLayerCount-1 is
	// SkipLayerCount+1 and every other entry is LayerCount: finishing the
	// first computed layer releases every remaining layer to the loader at
	// once, and later layers release nothing further.
	LayerDependencies []int

	Load    LoadOperator
	Compute ComputeOperator

	TimeProfiler profiler.TimeProfiler // optional

	// LoaderCPU/ComputerCPU are best-effort affinity hints: the worker
	// goroutines pin themselves to an OS thread with runtime.LockOSThread
	// and log the requested core, but Go has no portable sched_setaffinity
	// equivalent, so the pin is informational only (see DESIGN.md). -1
	// means no preference; the zero Config pins both workers to core 0.
	LoaderCPU   int
	ComputerCPU int
}

func (c Config) withDefaults() Config {
	if c.SkipLayerCount <= 0 {
		c.SkipLayerCount = 1
	}
	if c.LayerDependencies == nil {
		dep := make([]int, c.LayerCount)
		for i := range dep {
			dep[i] = c.LayerCount
		}
		if idx := c.SkipLayerCount - 1; idx >= 0 && idx < len(dep) {
			dep[idx] = c.SkipLayerCount + 1
		}
		c.LayerDependencies = dep
	}
	return c
}
