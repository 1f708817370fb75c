package engine

import "errors"

// Sentinel errors matching the taxonomy every FlexNN command surfaces to its
// caller. Library code always wraps these with fmt.Errorf("...: %w", ...)
// so callers can recover the category with errors.Is while still getting a
// useful message.
var (
	// ErrGraphInvariantViolation: cycle, unknown operator kind, missing
	// producer, or consumer index out of range.
	ErrGraphInvariantViolation = errors.New("graph invariant violation")
	// ErrShapeInferenceIncomplete: an Input has no shape, or a kernel
	// returned an empty shape.
	ErrShapeInferenceIncomplete = errors.New("shape inference incomplete")
	// ErrSlicingFailure: no valid decomposition fits the budget.
	ErrSlicingFailure = errors.New("slicing failure")
	// ErrSchedulingInfeasible: the scheduler exhausted retries for some
	// operator.
	ErrSchedulingInfeasible = errors.New("scheduling infeasible")
	// ErrDependencyInvariantFailure: dep[i] == i+1 for some i.
	ErrDependencyInvariantFailure = errors.New("dependency invariant failure")
	// ErrPlanReplayMismatch: the allocator received more mallocs of some
	// class than the plan contains.
	ErrPlanReplayMismatch = errors.New("plan replay mismatch")
	// ErrIOFailure: any file open/read/write error surfaced by a command.
	ErrIOFailure = errors.New("io failure")
)
