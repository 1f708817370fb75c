package scheduler

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flexnn/flexnn/engine"
)

// WriteMallocPlan writes the malloc-plan file format from spec.md §6:
//
//	# weight_count blob_count intermediate_count (persistent_count)
//	<Nw> <Nb> <Ni> [<Np>]
//	# weight_offsets
//	...
//	# blob_offsets
//	...
//	# intermediate_offsets
//	...
//	# persistent_offsets
//	...
//
// Grounded on write_malloc_plan in flexnnschedule.h.
func WriteMallocPlan(path string, plan [][]int, persistentOffsets []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "# weight_count blob_count intermediate_count (persistent_count)")
	if len(persistentOffsets) > 0 {
		fmt.Fprintf(w, "%d %d %d %d\n", len(plan[engine.ClassWeight]), len(plan[engine.ClassBlob]), len(plan[engine.ClassWorkspace]), len(persistentOffsets))
	} else {
		fmt.Fprintf(w, "%d %d %d\n", len(plan[engine.ClassWeight]), len(plan[engine.ClassBlob]), len(plan[engine.ClassWorkspace]))
	}

	fmt.Fprintln(w, "# weight_offsets")
	for _, v := range plan[engine.ClassWeight] {
		fmt.Fprintln(w, v)
	}
	fmt.Fprintln(w, "# blob_offsets")
	for _, v := range plan[engine.ClassBlob] {
		fmt.Fprintln(w, v)
	}
	fmt.Fprintln(w, "# intermediate_offsets")
	for _, v := range plan[engine.ClassWorkspace] {
		fmt.Fprintln(w, v)
	}
	fmt.Fprintln(w, "# persistent_offsets")
	for _, v := range persistentOffsets {
		fmt.Fprintln(w, v)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", engine.ErrIOFailure, path, err)
	}
	return nil
}

// ReadMallocPlan reads back the format written by WriteMallocPlan.
func ReadMallocPlan(path string) (plan [][]int, persistentOffsets []int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var counts []int
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Fields(line) {
			n, convErr := strconv.Atoi(field)
			if convErr != nil {
				return nil, nil, fmt.Errorf("%w: %s: malformed counts line %q", engine.ErrIOFailure, path, line)
			}
			counts = append(counts, n)
		}
		break
	}
	if len(counts) < 3 {
		return nil, nil, fmt.Errorf("%w: %s: missing count header", engine.ErrIOFailure, path)
	}
	nw, nb, ni := counts[0], counts[1], counts[2]
	np := 0
	if len(counts) > 3 {
		np = counts[3]
	}

	plan = make([][]int, 3)
	sections := []struct {
		class engine.MemoryClass
		count int
	}{
		{engine.ClassWeight, nw},
		{engine.ClassBlob, nb},
		{engine.ClassWorkspace, ni},
	}
	for _, sec := range sections {
		vals, readErr := readIntSection(sc, sec.count)
		if readErr != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", engine.ErrIOFailure, path, readErr)
		}
		plan[sec.class] = vals
	}
	persistentOffsets, readErr := readIntSection(sc, np)
	if readErr != nil {
		return nil, nil, fmt.Errorf("%w: %s: %v", engine.ErrIOFailure, path, readErr)
	}
	return plan, persistentOffsets, nil
}

// readIntSection skips one "#"-prefixed section header then reads count
// integer lines.
func readIntSection(sc *bufio.Scanner, count int) ([]int, error) {
	out := make([]int, 0, count)
	sawHeader := false
	for len(out) < count && sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			sawHeader = true
			continue
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("malformed offset line %q", line)
		}
		out = append(out, n)
	}
	_ = sawHeader
	if len(out) != count {
		return nil, fmt.Errorf("expected %d offsets, got %d", count, len(out))
	}
	return out, nil
}

// WriteLayerDependencies writes one non-negative integer per line, in
// operator order.
func WriteLayerDependencies(path string, dep []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, v := range dep {
		fmt.Fprintln(w, v)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", engine.ErrIOFailure, path, err)
	}
	return nil
}

// ReadLayerDependencies reads back the format written by
// WriteLayerDependencies.
func ReadLayerDependencies(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	var dep []int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			return nil, fmt.Errorf("%w: %s: malformed line %q", engine.ErrIOFailure, path, line)
		}
		dep = append(dep, n)
	}
	return dep, nil
}

// WriteMemoryLayout dumps the final schedule for debugging, one allocation
// per line as x,end,y,size,start,class — the exact field order used by
// write_memory_layout in flexnnschedule.h (not start,end,x,y,size,class, as
// a reader might otherwise guess).
func WriteMemoryLayout(path string, schedule []MemoryProfileEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range schedule {
		fmt.Fprintf(w, "%d,%d,%d,%d,%d,%d\n", e.X, e.EndLayerIndex, e.Y, e.Size, e.StartLayerIndex, int(e.Class))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", engine.ErrIOFailure, path, err)
	}
	return nil
}
