// Package profiler implements the shape-only dry-run memory and time
// profilers (spec components D and E): a central MemoryProfiler records a
// timestamped malloc/free event log behind a mutex, with three thin
// per-class allocator façades forwarding into it, and a TimeProfiler
// interface with locked (concurrent) and unlocked (single-threaded dry run)
// implementations recording per-operator load/compute timing.
//
// Grounded on original_source/src/profiler.h: MemoryProfilerEvent's
// auto-timestamping constructor, the MemoryProfilerInterface/MemoryProfiler
// façade-over-shared-state split, and the UnlockedTimeProfiler/
// LockedTimeProfiler dichotomy are all ported directly; event pairing into
// scheduler-facing profile entries is implemented in engine/scheduler
// (it is that package's input, grounded on
// original_source/examples/flexnnschedule.h's memory_events_to_profiles).
package profiler
