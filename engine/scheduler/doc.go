// Package scheduler turns a paired memory/time profile into a concrete
// space-time placement (spec component G): a malloc plan, a layer-dependency
// vector describing how far the loader may run ahead of the computer, and an
// optional set of persistent-weight offsets.
//
// Grounded on original_source/examples/flexnnschedule.h's FlexnnSchedule
// class. The member functions there operate on one shared std::map keyed by
// a packed (x, class, malloc_count) index; this package keeps the same
// ordering discipline (profiles are always processed in ascending
// memory-index order) but splits the responsibilities into separate
// functions over plain slices, since Go has no equivalent to a silently
// shared mutable class member to thread state through.
package scheduler
