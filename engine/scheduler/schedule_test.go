package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/profiler"
)

// threeLayerProfiles builds a minimal weight+blob dry-run event log for a
// 3-operator chain: input (no weight) -> op1 -> op2, each with one weight
// malloc/free and one blob malloc/free.
func threeLayerProfiles(t *testing.T) (*PairedProfiles, []profiler.LayerTimeProfile) {
	t.Helper()
	var now float64
	clock := func() float64 { return now }
	mp := profiler.NewMemoryProfiler(clock)
	tp := profiler.NewUnlockedTimeProfiler(clock)

	inBlob := mp.Malloc(0, engine.ClassBlob, 64)

	tp.LayerLoadingBegin(1)
	w1 := mp.Malloc(1, engine.ClassWeight, 128)
	now += 1
	tp.LayerLoadingEnd(1)
	tp.LayerComputingBegin(1)
	out1 := mp.Malloc(1, engine.ClassBlob, 64)
	now += 1
	tp.LayerComputingEnd(1)
	mp.Free(1, engine.ClassWeight, w1)
	mp.Free(1, engine.ClassBlob, inBlob)

	tp.LayerLoadingBegin(2)
	w2 := mp.Malloc(2, engine.ClassWeight, 128)
	now += 1
	tp.LayerLoadingEnd(2)
	tp.LayerComputingBegin(2)
	out2 := mp.Malloc(2, engine.ClassBlob, 64)
	now += 1
	tp.LayerComputingEnd(2)
	mp.Free(2, engine.ClassWeight, w2)
	mp.Free(2, engine.ClassBlob, out1)
	mp.Free(2, engine.ClassBlob, out2)

	paired, err := PairEvents(mp.Events())
	require.NoError(t, err)
	return paired, tp.Profiles()
}

func TestScheduleProducesInBudgetPlacements(t *testing.T) {
	paired, profiles := threeLayerProfiles(t)
	loading, computing := TotalDurations(profiles)
	layerCount := LayerCount(profiles)

	result, err := Schedule(paired, layerCount, loading, computing, Config{MemoryBudget: 4096})
	require.NoError(t, err)

	for _, e := range result.Schedule {
		assert.LessOrEqual(t, e.Y+e.Size, 4096)
		assert.Equal(t, 0, e.Y%64)
	}
}

func TestScheduleRejectsImpossibleBudget(t *testing.T) {
	paired, profiles := threeLayerProfiles(t)
	loading, computing := TotalDurations(profiles)
	layerCount := LayerCount(profiles)

	_, err := Schedule(paired, layerCount, loading, computing, Config{MemoryBudget: 64})
	assert.ErrorIs(t, err, engine.ErrSchedulingInfeasible)
}

func TestResolveLayerDependenciesNeverPointsToImmediateSuccessor(t *testing.T) {
	paired, profiles := threeLayerProfiles(t)
	loading, computing := TotalDurations(profiles)
	layerCount := LayerCount(profiles)

	result, err := Schedule(paired, layerCount, loading, computing, Config{MemoryBudget: 4096})
	require.NoError(t, err)

	dep, err := ResolveLayerDependencies(result.Schedule, layerCount, 1)
	require.NoError(t, err)
	for i := 0; i < layerCount-1; i++ {
		assert.NotEqual(t, i+1, dep[i])
	}
}

func TestPredictLatencyIsNonNegative(t *testing.T) {
	paired, profiles := threeLayerProfiles(t)
	loading, computing := TotalDurations(profiles)
	layerCount := LayerCount(profiles)

	result, err := Schedule(paired, layerCount, loading, computing, Config{MemoryBudget: 4096})
	require.NoError(t, err)
	dep, err := ResolveLayerDependencies(result.Schedule, layerCount, 1)
	require.NoError(t, err)

	latency := PredictLatency(profiles, dep, 1)
	assert.GreaterOrEqual(t, latency, 0.0)
}

func TestGenerateMallocPlanGroupsByClass(t *testing.T) {
	paired, profiles := threeLayerProfiles(t)
	loading, computing := TotalDurations(profiles)
	layerCount := LayerCount(profiles)

	result, err := Schedule(paired, layerCount, loading, computing, Config{MemoryBudget: 4096})
	require.NoError(t, err)

	plan, err := GenerateMallocPlan(result.Schedule)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, result.WeightCount, len(plan[engine.ClassWeight]))
	assert.Equal(t, result.BlobCount, len(plan[engine.ClassBlob]))
}
