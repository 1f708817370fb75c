// Package allocator implements the planned allocator (spec component H): a
// single aligned unified buffer plus three per-class façades that replay a
// precomputed offset sequence instead of performing real heap allocation.
//
// Grounded on original_source/src/plannedallocator.h/.cpp:
// PlannedAllocatorInterface becomes ClassAllocator, PlannedAllocator keeps
// its name, fastMalloc/fastFree/is_persistent/set_load_mode/clear carry over
// with Go naming. The original's void* arithmetic is replaced by byte
// offsets into a single []byte (see DESIGN.md's "pointer arithmetic → byte
// offsets" note).
package allocator
