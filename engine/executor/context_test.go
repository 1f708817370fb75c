package executor

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVisitsEveryLayerOnce(t *testing.T) {
	const layers = 6

	var mu sync.Mutex
	var loaded, computed []int

	cfg := Config{
		LayerCount:     layers,
		SkipLayerCount: 1,
		Load: func(layer int) error {
			mu.Lock()
			loaded = append(loaded, layer)
			mu.Unlock()
			return nil
		},
		Compute: func(layer int) error {
			mu.Lock()
			computed = append(computed, layer)
			mu.Unlock()
			return nil
		},
	}

	require.NoError(t, Run(cfg))

	sort.Ints(loaded)
	sort.Ints(computed)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, loaded)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, computed)
}

func TestRunHonorsExplicitDependencyVector(t *testing.T) {
	const layers = 4
	// Layer 1 only unlocks layer 2; layer 2 unlocks layer 3; layer 3 unlocks
	// nothing further.
	deps := []int{2, 3, 4, 4}

	var mu sync.Mutex
	loadOrder := map[int]int{}
	seq := 0

	cfg := Config{
		LayerCount:        layers,
		SkipLayerCount:    1,
		LayerDependencies: deps,
		Load: func(layer int) error {
			mu.Lock()
			seq++
			loadOrder[layer] = seq
			mu.Unlock()
			return nil
		},
		Compute: func(layer int) error { return nil },
	}

	require.NoError(t, Run(cfg))
	assert.Less(t, loadOrder[1], loadOrder[2])
	assert.Less(t, loadOrder[2], loadOrder[3])
}

func TestRunPropagatesLoadError(t *testing.T) {
	boom := errors.New("disk read failed")
	cfg := Config{
		LayerCount:     3,
		SkipLayerCount: 1,
		Load: func(layer int) error {
			if layer == 2 {
				return boom
			}
			return nil
		},
		Compute: func(layer int) error { return nil },
	}

	err := Run(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRunPropagatesComputeError(t *testing.T) {
	boom := errors.New("kernel panicked")
	cfg := Config{
		LayerCount:     3,
		SkipLayerCount: 1,
		Load:           func(layer int) error { return nil },
		Compute: func(layer int) error {
			if layer == 1 {
				return boom
			}
			return nil
		},
	}

	err := Run(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestTaskQueueDrainBlocksUntilPushed(t *testing.T) {
	q := NewTaskQueue()
	done := make(chan []int, 1)
	go func() {
		tasks, ok := q.Drain()
		require.True(t, ok)
		done <- tasks
	}()

	q.Push(7)
	tasks := <-done
	assert.Equal(t, []int{7}, tasks)
}

func TestTaskQueuePushRangeNoOpWhenEmpty(t *testing.T) {
	q := NewTaskQueue()
	q.PushRange(5, 5)
	q.Push(1)
	tasks, ok := q.Drain()
	require.True(t, ok)
	assert.Equal(t, []int{1}, tasks)
}

func TestTaskQueueCloseUnblocksDrain(t *testing.T) {
	q := NewTaskQueue()
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Drain()
		done <- ok
	}()

	q.Close()
	assert.False(t, <-done)
}
