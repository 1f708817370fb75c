package scheduler

import (
	"fmt"
	"sort"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/xyplane"
	"github.com/flexnn/flexnn/internal/align"
)

// Result is the scheduler's output: a fully placed memory schedule plus the
// persistent-weight offsets chosen in Step 2.
type Result struct {
	Schedule          []MemoryProfileEntry // sorted by (x, class, malloc count)
	PersistentOffsets []int
	WeightCount       int
	BlobCount         int
	IntermediateCount int
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Schedule computes the space-time placement described in spec.md §4.G:
// peak estimation, optional persistent-weight selection, blob placement,
// and a per-operator preload/backup/retry loop over an XY-plane.
//
// totalLoadingDuration and totalComputingDuration are the sums across every
// time profile (get_total_loading_duration/get_total_computing_duration in
// the original); callers typically have these from the same time-profile
// set used to derive layerCount.
func Schedule(profiles *PairedProfiles, layerCount int, totalLoadingDuration, totalComputingDuration float64, cfg Config) (*Result, error) {
	cfg = cfg.withDefaults()
	a := cfg.Align
	alignBig := func(v int) int { return align.Big(v, a) }
	alignSmall := func(v int) int { return align.Small(v, a) }

	weights := profiles.Weights()
	blobs := profiles.Blobs()
	intermediates := profiles.Intermediates()

	// Step 1: find the peak layer. Ties favor the later index, matching the
	// original's ">=" comparison.
	layerMemory := make([]int, layerCount)
	layerWeightMemory := make([]int, layerCount)
	totalWeightMemory := 0
	for _, p := range profiles.Entries {
		for i := p.StartLayerIndex; i <= p.EndLayerIndex; i++ {
			layerMemory[i] += p.Size
			if p.Class == engine.ClassWeight {
				layerWeightMemory[i] += p.Size
				totalWeightMemory += p.Size
			}
		}
	}
	peakMemory, peakIndex := 0, -1
	for i, m := range layerMemory {
		if m >= peakMemory {
			peakMemory, peakIndex = m, i
		}
	}

	maxMemoryMargin := cfg.MemoryBudget - peakMemory

	// Step 2: persistent-weight selection, gated by the IO-bound-and-slack
	// predicate. Weights are greedily placed in descending score order
	// against the high end of the buffer.
	type scored struct {
		entry MemoryProfileEntry
		score int
	}
	scoredWeights := make([]scored, len(weights))
	for i, p := range weights {
		var score int
		if p.StartLayerIndex <= peakIndex && p.EndLayerIndex >= peakIndex {
			score = max(peakIndex-p.StartLayerIndex, p.EndLayerIndex-peakIndex)
		} else {
			score = min(absInt(p.StartLayerIndex-peakIndex), absInt(p.EndLayerIndex-peakIndex))
		}
		scoredWeights[i] = scored{entry: p, score: score}
	}
	sort.SliceStable(scoredWeights, func(i, j int) bool { return scoredWeights[i].score > scoredWeights[j].score })

	persistentOffset := alignSmall(cfg.MemoryBudget)
	persistentMinOffset := alignBig(cfg.MemoryBudget - maxMemoryMargin)
	persistentWeights := map[int]int{} // weight MallocCount -> fixed offset

	ioBound := totalComputingDuration < cfg.PersistentComputeLoadRatio*totalLoadingDuration
	hasSlack := cfg.PersistentSlackFraction*float64(totalWeightMemory-layerWeightMemory[peakIndex]) < float64(maxMemoryMargin)
	if ioBound && hasSlack {
		for _, sw := range scoredWeights {
			next := alignSmall(persistentOffset-sw.entry.Size)
			if next < persistentMinOffset {
				continue
			}
			persistentOffset = next
			persistentWeights[sw.entry.MallocCount] = persistentOffset
		}
	}

	dynamicMemoryBudget := alignSmall(persistentOffset)
	plane := xyplane.New(layerCount, dynamicMemoryBudget, a)

	var schedule []MemoryProfileEntry

	// Blobs first: pack against alternating sides of the buffer based on
	// producer parity, recomputing the cursors whenever the layer index
	// advances past a run of blobs that start at the same layer.
	left, right := 0, dynamicMemoryBudget
	layerIndex := 0
	for _, p := range blobs {
		if p.StartLayerIndex > layerIndex {
			layerIndex = p.StartLayerIndex
			nextLeft, nextRight := 0, dynamicMemoryBudget
			for _, s := range schedule {
				if s.EndLayerIndex >= layerIndex {
					if s.StartLayerIndex%2 == 0 {
						nextLeft = max(nextLeft, s.Y+s.Size)
					} else {
						nextRight = min(nextRight, s.Y)
					}
				}
			}
			left, right = nextLeft, nextRight
		}

		placed := p
		if layerIndex%2 == 0 {
			placed.X = placed.StartLayerIndex
			placed.Y = alignBig(left)
			left = placed.Y + placed.Size
		} else {
			placed.X = placed.StartLayerIndex
			placed.Y = alignSmall(right-placed.Size)
			right = placed.Y
		}
		schedule = append(schedule, placed)

		if _, err := plane.InsertXRangeY(placed.StartLayerIndex, placed.EndLayerIndex, placed.Y, placed.Size); err != nil {
			return nil, fmt.Errorf("%w: placing blob starting at layer %d: %v", engine.ErrSchedulingInfeasible, placed.StartLayerIndex, err)
		}
	}

	// placeWeights attempts to place every not-yet-placed weight whose
	// lifetime starts at or before i. Persistent weights skip the plane
	// entirely and use their Step-2 offset. preload controls whether the
	// loading cursor is allowed to run ahead of i by up to
	// cfg.MaxPreloadCount operators.
	placeWeights := func(i, widx, ldx int, preload bool) (newWidx, newLdx int, placed []MemoryProfileEntry, ok bool) {
		newWidx, newLdx = widx, ldx
		for newWidx < len(weights) {
			p := weights[newWidx]
			if p.StartLayerIndex > i {
				break
			}
			if offset, persistent := persistentWeights[p.MallocCount]; persistent {
				q := p
				if preload {
					q.X = newLdx
				} else {
					q.X = p.StartLayerIndex
				}
				q.Y = offset
				placed = append(placed, q)
				newWidx++
				continue
			}

			startX := p.StartLayerIndex
			if preload {
				newLdx = max(newLdx, p.StartLayerIndex-cfg.MaxPreloadCount)
				startX = newLdx
			}
			xs, y, err := plane.InsertXRange(startX, p.EndLayerIndex, p.Size)
			if err != nil {
				return newWidx, newLdx, placed, false
			}
			q := p
			q.X, q.Y = xs, y
			placed = append(placed, q)
			newLdx = xs
			newWidx++
		}
		return newWidx, newLdx, placed, true
	}

	placeIntermediates := func(i, iidx int) (newIidx int, placed []MemoryProfileEntry, ok bool) {
		newIidx = iidx
		for newIidx < len(intermediates) {
			p := intermediates[newIidx]
			if p.StartLayerIndex > i {
				break
			}
			xs, y, err := plane.InsertXRange(p.StartLayerIndex, p.EndLayerIndex, p.Size)
			if err != nil {
				return newIidx, placed, false
			}
			q := p
			q.X, q.Y = xs, y
			placed = append(placed, q)
			newIidx++
		}
		return newIidx, placed, true
	}

	weightIdx, intermediateIdx, loadingX := 0, 0, 0
	for i := 0; i < layerCount; i++ {
		plane.Backup()
		w0, ii0, l0 := weightIdx, intermediateIdx, loadingX

		w1, l1, wPlaced, ok1 := placeWeights(i, w0, l0, true)
		ok2 := false
		var ii1 int
		var iPlaced []MemoryProfileEntry
		if ok1 {
			ii1, iPlaced, ok2 = placeIntermediates(i, ii0)
		}
		if ok1 && ok2 {
			weightIdx, loadingX, intermediateIdx = w1, l1, ii1
			schedule = append(schedule, wPlaced...)
			schedule = append(schedule, iPlaced...)
			continue
		}

		// Re-schedule this operator with no preloading.
		plane.Restore()
		w2, l2, wPlaced2, ok3 := placeWeights(i, w0, l0, false)
		if !ok3 {
			return nil, fmt.Errorf("%w: layer %d: weight placement failed even without preload", engine.ErrSchedulingInfeasible, i)
		}
		ii2, iPlaced2, ok4 := placeIntermediates(i, ii0)
		if !ok4 {
			return nil, fmt.Errorf("%w: layer %d: intermediate placement failed even without preload", engine.ErrSchedulingInfeasible, i)
		}
		weightIdx, loadingX, intermediateIdx = w2, l2, ii2
		schedule = append(schedule, wPlaced2...)
		schedule = append(schedule, iPlaced2...)
	}

	sort.SliceStable(schedule, func(i, j int) bool {
		return memoryIndex(schedule[i].X, schedule[i].Class, schedule[i].MallocCount) <
			memoryIndex(schedule[j].X, schedule[j].Class, schedule[j].MallocCount)
	})

	// Persistent offsets are reported in ascending weight malloc-count order
	// (the order in which they were discovered while scanning weights, not
	// the score order they were selected in).
	keys := make([]int, 0, len(persistentWeights))
	for k := range persistentWeights {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	persistentOffsets := make([]int, 0, len(keys))
	for _, k := range keys {
		persistentOffsets = append(persistentOffsets, persistentWeights[k])
	}

	return &Result{
		Schedule:          schedule,
		PersistentOffsets: persistentOffsets,
		WeightCount:       profiles.WeightCount,
		BlobCount:         profiles.BlobCount,
		IntermediateCount: profiles.IntermediateCount,
	}, nil
}
