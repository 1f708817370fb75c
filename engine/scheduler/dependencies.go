package scheduler

import (
	"fmt"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/profiler"
)

// ResolveLayerDependencies derives the loader's preload horizon from a
// finished schedule: dep[i] is the first operator index the loader may not
// yet have started loading by the time operator i finishes computing.
//
// Grounded on resolve_layer_dependencies in flexnnschedule.h. Only the
// active max-over-starts method is implemented; the header also contains a
// commented-out pairwise-overlap alternative that was apparently abandoned
// mid-development and is not reproduced here.
func ResolveLayerDependencies(schedule []MemoryProfileEntry, layerCount, skipLayerCount int) ([]int, error) {
	lastLayerBeforeLoading := make([]int, layerCount)
	for i := range lastLayerBeforeLoading {
		lastLayerBeforeLoading[i] = -1
	}
	dep := make([]int, layerCount)
	for i := range dep {
		dep[i] = layerCount
	}
	for i := 0; i < skipLayerCount && i < layerCount; i++ {
		dep[i] = skipLayerCount + 1
	}

	for _, e := range schedule {
		if e.Class != engine.ClassWeight {
			continue
		}
		lastLayerBeforeLoading[e.StartLayerIndex] = max(lastLayerBeforeLoading[e.StartLayerIndex], e.X-1)
	}

	for i := 0; i < layerCount; i++ {
		if lastLayerBeforeLoading[i] < skipLayerCount {
			continue
		}
		dep[lastLayerBeforeLoading[i]-1] = min(dep[lastLayerBeforeLoading[i]-1], i)
	}

	for i := layerCount - 1; i > 0; i-- {
		dep[i-1] = min(dep[i], dep[i-1])
	}

	for i := 0; i < layerCount-1; i++ {
		if dep[i] == i+1 {
			return nil, fmt.Errorf("%w: layer %d depends on its immediate successor %d", engine.ErrDependencyInvariantFailure, i, i+1)
		}
	}

	return dep, nil
}

// PredictLatency simulates the two-worker executor against a dependency
// vector to estimate end-to-end latency, for verifying a schedule before
// committing to it.
//
// Grounded on predict_latency in flexnnschedule.h.
func PredictLatency(timeProfiles []profiler.LayerTimeProfile, dep []int, skipLayerCount int) float64 {
	layerCount := len(dep)
	byLayer := make([]profiler.LayerTimeProfile, layerCount)
	for _, p := range timeProfiles {
		if p.LayerIndex >= 0 && p.LayerIndex < layerCount {
			byLayer[p.LayerIndex] = p
		}
	}

	loadingEnd := make([]float64, layerCount)

	var tl, tc float64
	loadingEnd[skipLayerCount] = tl + byLayer[skipLayerCount].LoadingDuration
	tl = loadingEnd[skipLayerCount]

	for i := skipLayerCount; i < layerCount; i++ {
		tc = max(tc, loadingEnd[i])
		tc += byLayer[i].ComputingDuration

		start, end := dep[i-1], dep[i]
		for j := start; j < end; j++ {
			tl += byLayer[j].LoadingDuration
			loadingEnd[j] = tl
		}
	}

	return tc
}
