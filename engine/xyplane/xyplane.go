// Package xyplane implements the scheduler's space-time placement engine: a
// 2-D rectangle packer over [0, X) operator indices by [0, Y) buffer offset.
//
// Grounded on original_source/examples/xyplane.h, the reference FlexNN
// XY-plane. Columns (x) hold a list of free segments which, together with
// the allocated segments, cover [0, Y); inserting a block removes the
// containing free segment, appends at most two residual segments to the end
// of the list (so it is not kept sorted by y), and records the allocation in
// a parallel payout list. Unlike a general allocator, nothing is ever freed back into
// the free list mid-session — the only way to undo a mutation is a full
// Backup/Restore snapshot, which is exactly how the scheduler retries a
// failed operator placement (see engine/scheduler).
package xyplane

import (
	"errors"
	"fmt"

	"github.com/flexnn/flexnn/internal/align"
)

// Find selects which budget (free segment) to use when more than one fits.
type Find int

const (
	FindFirst Find = iota
	FindSmallestY
	FindLargestY
)

// Segment is a half-open byte range [Y, Y+DY).
type Segment struct {
	Y, DY int
}

var (
	// ErrNotAligned is returned when a requested y offset is not a multiple
	// of the plane's alignment. Corresponds to the original's -2.
	ErrNotAligned = errors.New("xyplane: y is not aligned")
	// ErrNoSpace is returned when no free segment can hold the request.
	// Corresponds to the original's -5/-6/-11.
	ErrNoSpace = errors.New("xyplane: no free segment fits the request")
	// ErrDegenerateRange names the case of a requested [y1,y2) window
	// narrower than dy once aligned. Corresponds to the original's -10. No
	// function in this package returns it: such a request yields ErrNoSpace.
	ErrDegenerateRange = errors.New("xyplane: range too small for request")
)

// Plane is the packer state for one scheduling run.
type Plane struct {
	X, Y0, Align int

	budgets [][]Segment // budgets[x] = free segments at column x
	payouts [][]Segment // payouts[x] = allocated segments at column x

	backupBudgets [][]Segment
	backupPayouts [][]Segment
}

// New creates a plane spanning x in [0, x) and y in [0, y) (y rounded down
// to the nearest alignment boundary, matching the original constructor).
func New(x, y, alignment int) *Plane {
	y0 := align.Small(y, alignment)
	p := &Plane{X: x, Y0: y0, Align: alignment}
	p.budgets = make([][]Segment, x)
	p.payouts = make([][]Segment, x)
	for i := range p.budgets {
		p.budgets[i] = []Segment{{Y: 0, DY: y0}}
	}
	return p
}

func (p *Plane) alignBig(v int) int   { return align.Big(v, p.Align) }
func (p *Plane) alignSmall(v int) int { return align.Small(v, p.Align) }
func (p *Plane) isAligned(v int) bool { return align.IsAligned(v, p.Align) }

// findBudgetsYRange returns every free segment at column x that contains a
// dy-sized window inside [y1, y2).
func (p *Plane) findBudgetsYRange(x, y1, y2, dy int) []Segment {
	dy = p.alignBig(dy)
	y1 = p.alignBig(y1)
	y2 = p.alignSmall(y2)
	if y2-y1 < dy {
		return nil
	}
	var ret []Segment
	for _, seg := range p.budgets[x] {
		if seg.DY >= dy && seg.Y+dy <= y2 && y1+dy <= seg.Y+seg.DY {
			ret = append(ret, seg)
		}
	}
	return ret
}

// findBudgetYRange finds one free segment at column x per the given
// selection policy.
func (p *Plane) findBudgetYRange(x, y1, y2, dy int, opt Find) (Segment, bool) {
	dy = p.alignBig(dy)
	y1 = p.alignBig(y1)
	y2 = p.alignSmall(y2)
	if y2-y1 < dy {
		return Segment{}, false
	}
	found := false
	var best Segment
	for _, seg := range p.budgets[x] {
		if seg.DY < dy || seg.Y+dy > y2 || y1+dy > seg.Y+seg.DY {
			continue
		}
		switch opt {
		case FindFirst:
			return seg, true
		case FindSmallestY:
			if !found || seg.Y < best.Y {
				best, found = seg, true
			}
		case FindLargestY:
			if !found || seg.Y > best.Y {
				best, found = seg, true
			}
		}
	}
	return best, found
}

// findBudgetsYRangeNarrowed intersects each column's free segments against
// a caller-supplied list of already-found segments from adjacent columns —
// the building block for the backward recursive search in
// findBudgetsXRangeYRange.
func (p *Plane) findBudgetsYRangeNarrowed(prev []Segment, x, y1, y2, dy int) []Segment {
	dy = p.alignBig(dy)
	y1 = p.alignBig(y1)
	y2 = p.alignSmall(y2)
	if y2-y1 < dy {
		return nil
	}
	yMin, yMax := y1, y2
	for _, seg := range prev {
		if seg.Y > yMin {
			yMin = seg.Y
		}
		if seg.Y+seg.DY < yMax {
			yMax = seg.Y + seg.DY
		}
	}
	var ret []Segment
	for _, seg := range p.budgets[x] {
		if seg.DY < dy {
			continue
		}
		if seg.Y+dy > yMax {
			continue
		}
		if seg.Y+seg.DY < yMin+dy {
			continue
		}
		ret = append(ret, seg)
	}
	return ret
}

// chain is one candidate sequence of per-column segments, x2 first (the
// original stores these in reverse so each recursive step only appends).
type chain []Segment

// findBudgetsXRangeYRange recursively searches backward from x2 to x1,
// keeping only the chains of maximum length. Each returned chain's length is
// the number of columns (counting from x2) for which a
// simultaneously-compatible segment exists; success is x2-x1+1.
func (p *Plane) findBudgetsXRangeYRange(x1, x2, y1, y2, dy int) []chain {
	dy = p.alignBig(dy)
	y1 = p.alignBig(y1)
	y2 = p.alignSmall(y2)

	if x1 == x2 {
		var found []chain
		for _, seg := range p.findBudgetsYRange(x1, y1, y2, dy) {
			found = append(found, chain{seg})
		}
		return found
	}

	rest := p.findBudgetsXRangeYRange(x1+1, x2, y1, y2, dy)
	if len(rest) == 0 {
		return rest
	}
	restLen := len(rest[0])
	if restLen < x2-x1 {
		return rest
	}

	var extended []chain
	for _, c := range rest {
		for _, seg := range p.findBudgetsYRangeNarrowed(c, x1, y1, y2, dy) {
			nc := make(chain, len(c), len(c)+1)
			copy(nc, c)
			nc = append(nc, seg)
			extended = append(extended, nc)
		}
	}
	if len(extended) == 0 {
		return rest
	}
	return extended
}

// InsertXY places a dy-high block at column x starting exactly at y.
func (p *Plane) InsertXY(x, y, dy int) (int, error) {
	if !p.isAligned(y) {
		return 0, ErrNotAligned
	}
	dy = p.alignBig(dy)

	budget := p.budgets[x]
	for i, seg := range budget {
		if seg.Y <= y && seg.Y+seg.DY >= y+dy {
			p.payouts[x] = append(p.payouts[x], Segment{Y: y, DY: dy})

			rest := make([]Segment, 0, len(budget)+1)
			rest = append(rest, budget[:i]...)
			rest = append(rest, budget[i+1:]...)
			if seg.Y < y {
				rest = append(rest, Segment{Y: seg.Y, DY: y - seg.Y})
			}
			if seg.Y+seg.DY > y+dy {
				rest = append(rest, Segment{Y: y + dy, DY: seg.Y + seg.DY - y - dy})
			}
			p.budgets[x] = rest
			return y, nil
		}
	}
	return 0, ErrNoSpace
}

// InsertXYRange places a dy-sized block at column x anywhere within
// [y1, y2), greedily choosing the first segment that fits.
func (p *Plane) InsertXYRange(x, y1, y2, dy int) (int, error) {
	dy = p.alignBig(dy)
	y1 = p.alignBig(y1)
	y2 = p.alignSmall(y2)

	found := p.findBudgetsYRange(x, y1, y2, dy)
	for _, seg := range found {
		y := seg.Y
		if y1 > y {
			y = y1
		}
		return p.InsertXY(x, y, dy)
	}
	return 0, ErrNoSpace
}

// InsertXRangeY places the same (y, dy) block at every column in [x1, x2].
// The caller must have already validated that the range is free at y — a
// partial failure midway through the range cannot be rolled back by this
// call alone (the scheduler wraps every multi-column placement attempt in
// its own Backup/Restore).
func (p *Plane) InsertXRangeY(x1, x2, y, dy int) (int, error) {
	if !p.isAligned(y) {
		return 0, ErrNotAligned
	}
	dy = p.alignBig(dy)
	for x := x1; x <= x2; x++ {
		got, err := p.InsertXY(x, y, dy)
		if err != nil || got != y {
			if err == nil {
				err = fmt.Errorf("xyplane: column %d placed at %d, wanted %d", x, got, y)
			}
			return got, err
		}
	}
	return y, nil
}

// InsertXRangeYRange finds a y simultaneously free across the longest
// possible suffix of [x1, x2] within [y1, y2), preferring the full range,
// and places dy there. Returns the actual starting column and the chosen y.
func (p *Plane) InsertXRangeYRange(x1, x2, y1, y2, dy int) (startX, y int, err error) {
	dy = p.alignBig(dy)
	y1 = p.alignBig(y1)
	y2 = p.alignSmall(y2)

	found := p.findBudgetsXRangeYRange(x1, x2, y1, y2, dy)
	if len(found) == 0 {
		return 0, 0, ErrNoSpace
	}
	length := len(found[0])
	startX = x2 - length + 1

	chosenY := y1
	for _, seg := range found[0] {
		if seg.Y > chosenY {
			chosenY = seg.Y
		}
	}
	got, err := p.InsertXRangeY(startX, x2, chosenY, dy)
	return startX, got, err
}

// InsertXRange is InsertXRangeYRange over the full column height.
func (p *Plane) InsertXRange(x1, x2, dy int) (startX, y int, err error) {
	dy = p.alignBig(dy)
	return p.InsertXRangeYRange(x1, x2, 0, p.Y0, dy)
}

// Backup snapshots the current budgets/payouts so a failed multi-step
// placement can be rolled back.
func (p *Plane) Backup() {
	p.backupBudgets = deepCopy(p.budgets)
	p.backupPayouts = deepCopy(p.payouts)
}

// Restore reverts to the last Backup.
func (p *Plane) Restore() {
	p.budgets = deepCopy(p.backupBudgets)
	p.payouts = deepCopy(p.backupPayouts)
}

func deepCopy(src [][]Segment) [][]Segment {
	dst := make([][]Segment, len(src))
	for i, col := range src {
		if col == nil {
			continue
		}
		dst[i] = append([]Segment(nil), col...)
	}
	return dst
}

// Payouts returns the allocated segments at column x, for debug dumps and
// tests.
func (p *Plane) Payouts(x int) []Segment { return p.payouts[x] }

// Budgets returns the free segments at column x, for debug dumps and tests.
func (p *Plane) Budgets(x int) []Segment { return p.budgets[x] }
