// Package executor implements the parallel executor (spec component I):
// two workers, a loader and a computer, started afresh for each forward
// pass and cooperating over per-direction task queues gated by the layer-dependency vector the
// scheduler produced.
//
// Grounded on original_source/src/net.cpp: ConcurrentContextQueue becomes
// TaskQueue (mutex + condvar blocking push/pop, matching spec.md §5's
// concurrency model table rather than a channel-based rewrite), and
// ForwardParallelContext plus loading_thread_worker/computing_thread_worker
// become Context and its two worker loops. The original's should_ternimate
// shutdown signal is not needed here: a Context runs exactly one inference
// pass and its workers exit once every layer has been loaded and computed.
package executor
