package scheduler

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/internal/testutil"
)

func TestMallocPlanRoundTripsThroughDisk(t *testing.T) {
	plan := [][]int{
		{0, 64, 192},
		{0, 128},
		{256},
	}
	persistent := []int{64}

	path := filepath.Join(t.TempDir(), "malloc_plan.txt")
	require.NoError(t, WriteMallocPlan(path, plan, persistent))

	gotPlan, gotPersistent, err := ReadMallocPlan(path)
	require.NoError(t, err)

	testutil.AssertIntSlicesEqual(t, "weight_offsets", plan[engine.ClassWeight], gotPlan[engine.ClassWeight])
	testutil.AssertIntSlicesEqual(t, "blob_offsets", plan[engine.ClassBlob], gotPlan[engine.ClassBlob])
	testutil.AssertIntSlicesEqual(t, "intermediate_offsets", plan[engine.ClassWorkspace], gotPlan[engine.ClassWorkspace])
	testutil.AssertIntSlicesEqual(t, "persistent_offsets", persistent, gotPersistent)
}

func TestMallocPlanRoundTripIsByteStableOnRewrite(t *testing.T) {
	plan := [][]int{{0, 64}, {0}, {128}}

	dir := t.TempDir()
	first := filepath.Join(dir, "first.txt")
	require.NoError(t, WriteMallocPlan(first, plan, nil))

	gotPlan, gotPersistent, err := ReadMallocPlan(first)
	require.NoError(t, err)

	second := filepath.Join(dir, "second.txt")
	require.NoError(t, WriteMallocPlan(second, gotPlan, gotPersistent))

	testutil.AssertFileContentEqual(t, first, second)
}

func TestLayerDependenciesRoundTripThroughDisk(t *testing.T) {
	dep := []int{2, 3, -1}

	path := filepath.Join(t.TempDir(), "dep.txt")
	require.NoError(t, WriteLayerDependencies(path, dep))

	got, err := ReadLayerDependencies(path)
	require.NoError(t, err)
	testutil.AssertIntSlicesEqual(t, "dependencies", dep, got)
}
