// Package testutil provides shared test infrastructure for engine/ and its
// subpackages: golden-file comparison and floating-point assertions.
package testutil

import (
	"math"
	"os"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertFileContentEqual compares two files byte-for-byte, as used by the
// malloc-plan and dependency-vector round-trip tests where the format is
// deterministic and an exact match is expected.
func AssertFileContentEqual(t *testing.T, wantPath, gotPath string) {
	t.Helper()
	want, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("reading golden file %s: %v", wantPath, err)
	}
	got, err := os.ReadFile(gotPath)
	if err != nil {
		t.Fatalf("reading output file %s: %v", gotPath, err)
	}
	if string(want) != string(got) {
		t.Errorf("%s does not match golden %s:\n--- want ---\n%s\n--- got ---\n%s", gotPath, wantPath, want, got)
	}
}

// AssertIntSlicesEqual compares two plans' flattened offsets slice-by-slice,
// used when a byte-exact file comparison is too strict (e.g. comparing
// against a plan rebuilt from a different code path than the one that
// produced the golden file).
func AssertIntSlicesEqual(t *testing.T, name string, want, got []int) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length mismatch: want %d, got %d", name, len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("%s[%d]: want %d, got %d", name, i, want[i], got[i])
		}
	}
}
