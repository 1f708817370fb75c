package allocator

import (
	"fmt"
	"sync"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/scheduler"
)

// PlannedAllocator owns one unified buffer and replays a malloc plan: each
// FastMalloc call for a class returns the next offset that class's plan
// says to use, in order. FastFree is a no-op — nothing is ever actually
// freed, the plan already accounts for every allocation's lifetime.
type PlannedAllocator struct {
	mu       sync.Mutex
	buffer   []byte
	offsets  [3][]int
	counters [3]int

	persistentOffsets map[int]bool
	loadMode          int // -1 unset, 0 loading persistent weights, 1 loading the rest
}

// New allocates the unified buffer. size is the scheduler's memory_budget.
func New(size int) *PlannedAllocator {
	return &PlannedAllocator{buffer: make([]byte, size), loadMode: -1}
}

// SetMallocPlan installs the scheduler's output. plan must be indexed by
// engine.MemoryClass (weight, blob, workspace).
func (a *PlannedAllocator) SetMallocPlan(plan [][]int, persistentOffsets []int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for c := 0; c < 3; c++ {
		a.offsets[c] = append([]int(nil), plan[c]...)
		a.counters[c] = 0
	}
	a.persistentOffsets = make(map[int]bool, len(persistentOffsets))
	for _, off := range persistentOffsets {
		a.persistentOffsets[off] = true
	}
}

// LoadMallocPlan reads a malloc-plan file (the format in spec.md §6) and
// installs it.
func (a *PlannedAllocator) LoadMallocPlan(path string) error {
	plan, persistentOffsets, err := scheduler.ReadMallocPlan(path)
	if err != nil {
		return err
	}
	a.SetMallocPlan(plan, persistentOffsets)
	return nil
}

// FastMalloc returns the buffer slice and offset the plan assigns to the
// next call for class c. It fails once a class's plan is exhausted — the
// dry-run profiler and the real executor must issue exactly the same
// sequence of malloc calls per class.
func (a *PlannedAllocator) FastMalloc(c engine.MemoryClass, size int) ([]byte, int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.counters[c] >= len(a.offsets[c]) {
		return nil, 0, fmt.Errorf("%w: class %s exhausted after %d allocations", engine.ErrPlanReplayMismatch, c, a.counters[c])
	}
	offset := a.offsets[c][a.counters[c]]
	a.counters[c]++
	if offset+size > len(a.buffer) {
		return nil, 0, fmt.Errorf("%w: class %s offset %d+%d exceeds buffer size %d", engine.ErrPlanReplayMismatch, c, offset, size, len(a.buffer))
	}
	return a.buffer[offset : offset+size], offset, nil
}

// FastFree is a no-op: the plan already accounts for every allocation's
// lifetime, so there is nothing left to do at the call site.
func (a *PlannedAllocator) FastFree(c engine.MemoryClass, offset int) {}

// Clear resets every class's replay counter to the start of its plan,
// between inference iterations.
func (a *PlannedAllocator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters = [3]int{}
}

// IsPersistent answers membership in the persistent-weight set, inverted by
// the current load mode (mode 0 negates, mode 1 does not) so the same
// predicate drives both the persistent-weight loading pass and the
// transient-weight loading pass with opposite polarity. Matches
// PlannedAllocator::is_persistent in the original exactly; SetLoadMode must
// be called before this means anything.
func (a *PlannedAllocator) IsPersistent(offset int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	inSet := a.persistentOffsets[offset]
	switch a.loadMode {
	case 0:
		return !inSet
	case 1:
		return inSet
	default:
		return false
	}
}

// SetLoadMode selects which of the two loading passes IsPersistent answers
// for: 0 while the loader is materialising persistent weights, 1 while it is
// loading everything else.
func (a *PlannedAllocator) SetLoadMode(mode int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.loadMode = mode
}

// ClassAllocator is a façade bound to one memory class, handed to the
// kernels that only know they need "the weight allocator" or "the blob
// allocator" without reasoning about the others.
type ClassAllocator struct {
	Class     engine.MemoryClass
	Allocator *PlannedAllocator
}

func (c *ClassAllocator) FastMalloc(size int) ([]byte, int, error) {
	return c.Allocator.FastMalloc(c.Class, size)
}

func (c *ClassAllocator) FastFree(offset int) {
	c.Allocator.FastFree(c.Class, offset)
}
