package profiler

import (
	"sync"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/internal/align"
)

// EventKind distinguishes a malloc from its matching free.
type EventKind int

const (
	EventFree EventKind = iota
	EventMalloc
)

// Event is one observed allocator call during the dry run: a malloc and its
// matching free share Key, the correlation token the scheduler uses to pair
// them back into a MemoryProfileEntry. It carries no real pointer — unlike
// the original's void*, a dry run under Go never needs one.
type Event struct {
	LayerIndex int
	Class      engine.MemoryClass
	Kind       EventKind
	Key        int
	Size       int
	Time       float64
}

// MemoryProfiler is the central event log. It is owned by exactly one
// dry-run goroutine; the mutex exists because the facade allocators are
// value types that may be captured and called from more than one call site
// without the caller needing to reason about it, per the "shared mutable
// profiler state" design note this package is grounded on.
type MemoryProfiler struct {
	mu      sync.Mutex
	events  []Event
	nextKey [3]int // per-class monotonically increasing malloc_count
	clock   func() float64
}

// NewMemoryProfiler creates an empty profiler. clock returns the current
// time in milliseconds since a monotonic reference; passing nil uses a
// simple call-count-based clock suitable for deterministic tests.
func NewMemoryProfiler(clock func() float64) *MemoryProfiler {
	if clock == nil {
		var n float64
		clock = func() float64 { n++; return n }
	}
	return &MemoryProfiler{clock: clock}
}

// Malloc records a malloc event for class c at layer, aligns size up to
// align.Align, and returns the (class, malloc_count) key needed to later
// record the matching Free.
func (p *MemoryProfiler) Malloc(layer int, c engine.MemoryClass, size int) (key int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key = p.nextKey[c]
	p.nextKey[c]++
	p.events = append(p.events, Event{
		LayerIndex: layer,
		Class:      c,
		Kind:       EventMalloc,
		Key:        key,
		Size:       align.Big(size, align.Align),
		Time:       p.clock(),
	})
	return key
}

// Free records the free matching a prior Malloc's returned key.
func (p *MemoryProfiler) Free(layer int, c engine.MemoryClass, key int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{
		LayerIndex: layer,
		Class:      c,
		Kind:       EventFree,
		Key:        key,
		Time:       p.clock(),
	})
}

// Events returns a copy of the recorded event log.
func (p *MemoryProfiler) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Clear empties the event log and resets per-class counters.
func (p *MemoryProfiler) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.nextKey = [3]int{}
}

// ClassAllocator is a lightweight façade over a MemoryProfiler for one
// memory class. A caller issues Malloc/Free on the façade matching the
// buffer it is requesting, without needing to know about the other two
// classes or the profiler's locking discipline. Run in dryrun.go calls the
// MemoryProfiler directly and does not use it.
type ClassAllocator struct {
	Class     engine.MemoryClass
	Profiler  *MemoryProfiler
	curLayer  int
}

// SetLayer records which operator is currently executing; later Malloc and
// Free calls on the façade are attributed to that layer.
func (a *ClassAllocator) SetLayer(layer int) { a.curLayer = layer }

func (a *ClassAllocator) Malloc(size int) int {
	return a.Profiler.Malloc(a.curLayer, a.Class, size)
}

func (a *ClassAllocator) Free(key int) {
	a.Profiler.Free(a.curLayer, a.Class, key)
}
