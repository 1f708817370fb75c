package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexnn/flexnn/engine"
)

func TestFastMallocReplaysPlanInOrder(t *testing.T) {
	a := New(1024)
	a.SetMallocPlan([][]int{{0, 64}, {128}, {256}}, nil)

	_, off, err := a.FastMalloc(engine.ClassWeight, 32)
	require.NoError(t, err)
	assert.Equal(t, 0, off)

	_, off, err = a.FastMalloc(engine.ClassWeight, 32)
	require.NoError(t, err)
	assert.Equal(t, 64, off)

	_, off, err = a.FastMalloc(engine.ClassBlob, 16)
	require.NoError(t, err)
	assert.Equal(t, 128, off)
}

func TestFastMallocFailsOnceClassExhausted(t *testing.T) {
	a := New(256)
	a.SetMallocPlan([][]int{{0}, nil, nil}, nil)

	_, _, err := a.FastMalloc(engine.ClassWeight, 16)
	require.NoError(t, err)

	_, _, err = a.FastMalloc(engine.ClassWeight, 16)
	assert.ErrorIs(t, err, engine.ErrPlanReplayMismatch)
}

func TestFastMallocFailsWhenOffsetOverflowsBuffer(t *testing.T) {
	a := New(64)
	a.SetMallocPlan([][]int{{32}, nil, nil}, nil)

	_, _, err := a.FastMalloc(engine.ClassWeight, 64)
	assert.ErrorIs(t, err, engine.ErrPlanReplayMismatch)
}

func TestClearResetsReplayCursor(t *testing.T) {
	a := New(256)
	a.SetMallocPlan([][]int{{0, 64}, nil, nil}, nil)

	_, _, err := a.FastMalloc(engine.ClassWeight, 16)
	require.NoError(t, err)
	a.Clear()

	_, off, err := a.FastMalloc(engine.ClassWeight, 16)
	require.NoError(t, err)
	assert.Equal(t, 0, off)
}

func TestIsPersistentPolarityFlipsWithLoadMode(t *testing.T) {
	a := New(256)
	a.SetMallocPlan([][]int{{0}, nil, nil}, []int{128})

	a.SetLoadMode(0) // loading persistent weights: predicate negated
	assert.False(t, a.IsPersistent(128))
	assert.True(t, a.IsPersistent(64))

	a.SetLoadMode(1) // loading everything else: predicate direct
	assert.True(t, a.IsPersistent(128))
	assert.False(t, a.IsPersistent(64))
}
