package executor

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// Context runs one forward pass: a loader goroutine and a computer goroutine
// hand layer indices back and forth over two task queues until every layer
// has been both loaded and computed. It is grounded on
// NetPrivate::ForwardParallelContext plus forward_layer_parallel,
// loading_thread_worker and computing_thread_worker, but is scoped to a
// single pass rather than a long-lived pair of threads serving a queue of
// contexts: Go goroutines are cheap enough that Run spawns a fresh pair per
// call and lets them exit, instead of keeping the original's two worker
// threads alive for the process lifetime and dispatching contexts to them.
type Context struct {
	cfg       Config
	loading   *TaskQueue
	computing *TaskQueue
}

// NewContext prepares a Context for one forward pass over layerCount layers.
func NewContext(cfg Config) *Context {
	cfg = cfg.withDefaults()
	return &Context{cfg: cfg, loading: NewTaskQueue(), computing: NewTaskQueue()}
}

// Run primes the loading queue with the first loadable layer and blocks
// until both workers have finished every layer, mirroring
// forward_layer_parallel's push-initial-task-then-wait-on-both-completion-
// flags sequence. It returns the first error either worker encountered.
func (c *Context) Run() error {
	var wg sync.WaitGroup
	var loadErr, computeErr error
	wg.Add(2)

	go func() {
		defer wg.Done()
		loadErr = c.loaderLoop()
	}()
	go func() {
		defer wg.Done()
		computeErr = c.computerLoop()
	}()

	c.loading.PushRange(c.cfg.SkipLayerCount, c.cfg.SkipLayerCount+1)

	wg.Wait()
	if loadErr != nil {
		return loadErr
	}
	return computeErr
}

func lockToCPU(cpu int, role string) {
	if cpu < 0 {
		return
	}
	runtime.LockOSThread()
	logrus.WithFields(logrus.Fields{"role": role, "cpu": cpu}).Debug("pinned worker to OS thread (affinity is a hint, not enforced)")
}

// loaderLoop is loading_thread_worker, scoped to one pass: drain whatever
// layers are queued, load each in turn, and on completion hand it to the
// computer. It exits once every layer past the skipped inputs has been
// loaded.
func (c *Context) loaderLoop() error {
	lockToCPU(c.cfg.LoaderCPU, "loader")
	defer c.computing.Close()

	completed := c.cfg.SkipLayerCount
	for completed < c.cfg.LayerCount {
		tasks, ok := c.loading.Drain()
		if !ok {
			return nil // computer hit an error and closed us out first
		}
		for _, layer := range tasks {
			if c.cfg.TimeProfiler != nil {
				c.cfg.TimeProfiler.LayerLoadingBegin(layer)
			}
			if err := c.cfg.Load(layer); err != nil {
				return fmt.Errorf("loading layer %d: %w", layer, err)
			}
			if c.cfg.TimeProfiler != nil {
				c.cfg.TimeProfiler.LayerLoadingEnd(layer)
			}
			completed++
			c.computing.Push(layer)
		}
	}
	return nil
}

// computerLoop is computing_thread_worker: drain queued layers, compute
// each, then release the next range of layers the dependency vector says
// the loader may now run ahead into.
func (c *Context) computerLoop() error {
	lockToCPU(c.cfg.ComputerCPU, "computer")
	defer c.loading.Close()

	completed := c.cfg.SkipLayerCount
	for completed < c.cfg.LayerCount {
		tasks, ok := c.computing.Drain()
		if !ok {
			return nil // loader hit an error and closed us out first
		}
		for _, layer := range tasks {
			if c.cfg.TimeProfiler != nil {
				c.cfg.TimeProfiler.LayerComputingBegin(layer)
			}
			if err := c.cfg.Compute(layer); err != nil {
				return fmt.Errorf("computing layer %d: %w", layer, err)
			}
			if c.cfg.TimeProfiler != nil {
				c.cfg.TimeProfiler.LayerComputingEnd(layer)
			}
			completed++
			c.loading.PushRange(c.cfg.LayerDependencies[layer-1], c.cfg.LayerDependencies[layer])
		}
	}
	return nil
}

// Run executes one forward pass with the given configuration. It is the
// package's entry point; most callers don't need NewContext directly.
func Run(cfg Config) error {
	return NewContext(cfg).Run()
}
