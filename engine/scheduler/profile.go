package scheduler

import (
	"fmt"
	"sort"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/profiler"
)

// MemoryProfileEntry is one malloc's full lifetime: when it was requested,
// when it was freed, and (once scheduled) where it was placed.
//
// Grounded on original_source/examples/flexnnschedule.h's MemoryProfile.
type MemoryProfileEntry struct {
	StartLayerIndex int
	EndLayerIndex   int
	Size            int
	Class           engine.MemoryClass
	MallocCount     int // monotonic count within Class

	X int // operator index at which the allocation is (re)loaded
	Y int // offset inside the unified buffer
}

// memoryIndex packs (x, class, malloc_count) into the sort key the scheduler
// uses everywhere a deterministic processing order matters: 14 bits for x, 2
// for class, 16 for the count. Matches the correct (non-static) member
// function in the original; its static twin shifts class into bit 30
// instead of 16 and is not reproduced.
func memoryIndex(x int, class engine.MemoryClass, mallocCount int) int {
	return ((x & 0x3fff) << 18) | ((int(class) & 0x3) << 16) | (mallocCount & 0xffff)
}

// LayerCount returns the operator count implied by a time-profile set: one
// past the largest layer index observed.
func LayerCount(profiles []profiler.LayerTimeProfile) int {
	max := -1
	for _, p := range profiles {
		if p.LayerIndex > max {
			max = p.LayerIndex
		}
	}
	return max + 1
}

// TotalDurations sums the loading and computing durations across every time
// profile, matching get_total_loading_duration/get_total_computing_duration.
func TotalDurations(profiles []profiler.LayerTimeProfile) (loading, computing float64) {
	for _, p := range profiles {
		loading += p.LoadingDuration
		computing += p.ComputingDuration
	}
	return loading, computing
}

// PairedProfiles groups the paired malloc/free events produced by PairEvents,
// in ascending (class, malloc_count) order (x is 0 for every entry at this
// stage, since none has been scheduled yet).
type PairedProfiles struct {
	Entries           []MemoryProfileEntry
	WeightCount       int
	BlobCount         int
	IntermediateCount int
}

// Weights, Blobs, and Intermediates return the Class-partitioned views of
// Entries, preserving malloc-count order.
func (p *PairedProfiles) Weights() []MemoryProfileEntry      { return p.byClass(engine.ClassWeight) }
func (p *PairedProfiles) Blobs() []MemoryProfileEntry        { return p.byClass(engine.ClassBlob) }
func (p *PairedProfiles) Intermediates() []MemoryProfileEntry { return p.byClass(engine.ClassWorkspace) }

func (p *PairedProfiles) byClass(c engine.MemoryClass) []MemoryProfileEntry {
	out := make([]MemoryProfileEntry, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Class == c {
			out = append(out, e)
		}
	}
	return out
}

// PairEvents matches every malloc event in the dry-run log with its free and
// returns one MemoryProfileEntry per pair.
//
// Grounded on memory_events_to_profiles in flexnnschedule.h: a free with no
// matching malloc, or a free matching an already-paired malloc, is skipped
// without being logged rather than treated as fatal; only a malloc that is
// never freed fails the whole pairing.
func PairEvents(events []profiler.Event) (*PairedProfiles, error) {
	type liveKey struct {
		class engine.MemoryClass
		key   int
	}
	var entries []MemoryProfileEntry
	live := map[liveKey]int{} // (class, key) -> entries index, only while unpaired
	var counters [3]int

	for _, ev := range events {
		lk := liveKey{class: ev.Class, key: ev.Key}
		switch ev.Kind {
		case profiler.EventMalloc:
			e := MemoryProfileEntry{
				StartLayerIndex: ev.LayerIndex,
				Size:            ev.Size,
				Class:           ev.Class,
				MallocCount:     counters[ev.Class],
			}
			counters[ev.Class]++
			entries = append(entries, e)
			live[lk] = len(entries) - 1
		case profiler.EventFree:
			idx, ok := live[lk]
			if !ok {
				continue // free with no paired malloc: logged by the caller, not fatal here
			}
			entries[idx].EndLayerIndex = ev.LayerIndex
			delete(live, lk)
		}
	}

	if len(live) > 0 {
		return nil, fmt.Errorf("%w: %d allocations never freed", engine.ErrSchedulingInfeasible, len(live))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return memoryIndex(entries[i].X, entries[i].Class, entries[i].MallocCount) <
			memoryIndex(entries[j].X, entries[j].Class, entries[j].MallocCount)
	})

	return &PairedProfiles{
		Entries:           entries,
		WeightCount:       counters[engine.ClassWeight],
		BlobCount:         counters[engine.ClassBlob],
		IntermediateCount: counters[engine.ClassWorkspace],
	}, nil
}
