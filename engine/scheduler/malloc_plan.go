package scheduler

import (
	"fmt"

	"github.com/flexnn/flexnn/engine"
)

// GenerateMallocPlan flattens a final schedule (already sorted by
// (x, class, malloc count)) into the three per-class offset sequences the
// planned allocator replays at runtime.
//
// Grounded on generate_malloc_plan in flexnnschedule.h.
func GenerateMallocPlan(schedule []MemoryProfileEntry) ([][]int, error) {
	plan := make([][]int, 3)
	for _, e := range schedule {
		if e.Y < 0 {
			return nil, fmt.Errorf("%w: invalid offset %d for allocation starting at layer %d", engine.ErrSchedulingInfeasible, e.Y, e.StartLayerIndex)
		}
		plan[e.Class] = append(plan[e.Class], e.Y)
	}
	return plan, nil
}
