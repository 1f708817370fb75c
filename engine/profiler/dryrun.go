package profiler

import (
	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
	"github.com/flexnn/flexnn/engine/slicer"
)

// DryRunConfig is the synthetic cost model the structural dry run uses to
// stand in for a real kernel's loading/computing duration. The kernels
// themselves are not implemented (engine/kernel is shape-inference only),
// so loading time is modeled as bytes moved over a constant throughput and
// computing time as output elements produced over a constant rate, rather
// than by running real layer math.
type DryRunConfig struct {
	LoadBytesPerMS       float64 // default 2e6 (~2 GB/s)
	ComputeElementsPerMS float64 // default 1e6
}

func (c DryRunConfig) withDefaults() DryRunConfig {
	if c.LoadBytesPerMS == 0 {
		c.LoadBytesPerMS = 2e6
	}
	if c.ComputeElementsPerMS == 0 {
		c.ComputeElementsPerMS = 1e6
	}
	return c
}

func weightBytes(op engine.Operator) int {
	switch p := op.Params.(type) {
	case *kernel.ConvParams:
		return p.WeightDataSize
	case *kernel.InnerProductParams:
		return p.WeightDataSize
	default:
		return 0
	}
}

// Run walks g — already topologically sorted and shape-inferred — in
// operator order and emits the malloc/free/timing sequence a real dry run
// would observe: each operator loads its weight buffer (if any), allocates
// its workspace and output blobs, computes, then frees its weight and
// workspace and any input blob no later operator still needs. Input
// operators load and compute nothing: they get a zero-duration time profile
// entry, and their output blobs are allocated at the Input operator's index.
//
// Grounded on examples/flexnnprofile.cpp's g_memory_profiler/g_time_profiler
// globals and per-layer begin/end call pattern; the original drives this
// walk with a real GPT-2 forward pass (tokenizer, vocab, real weights),
// which is out of scope here (see engine/kernel's doc comment) — this walk
// reproduces the same allocator call sequence and relative timing shape
// using sizes only.
func Run(g *engine.Graph, cfg DryRunConfig) (*MemoryProfiler, *UnlockedTimeProfiler, error) {
	cfg = cfg.withDefaults()

	var now float64
	clock := func() float64 { return now }
	mp := NewMemoryProfiler(clock)
	tp := NewUnlockedTimeProfiler(clock)

	lastConsumer := make([]int, len(g.Blobs))
	for bi, b := range g.Blobs {
		last := b.Producer
		for oi, op := range g.Operators {
			for _, in := range op.Inputs {
				if in == bi {
					last = oi
				}
			}
		}
		lastConsumer[bi] = last
	}

	liveBlobKey := map[int]int{}
	for i, op := range g.Operators {
		if op.Kind == engine.KindInput {
			for _, bi := range op.Outputs {
				liveBlobKey[bi] = mp.Malloc(i, engine.ClassBlob, g.Blobs[bi].Shape.Bytes())
			}
			tp.LayerLoadingBegin(i)
			tp.LayerLoadingEnd(i)
			tp.LayerComputingBegin(i)
			tp.LayerComputingEnd(i)
			continue
		}

		tp.LayerLoadingBegin(i)
		wbytes := weightBytes(op)
		var weightKey int
		if wbytes > 0 {
			weightKey = mp.Malloc(i, engine.ClassWeight, wbytes)
		}
		now += float64(wbytes) / cfg.LoadBytesPerMS
		tp.LayerLoadingEnd(i)

		tp.LayerComputingBegin(i)
		var inShape engine.Shape
		if len(op.Inputs) > 0 {
			inShape = g.Blobs[op.Inputs[0]].Shape
		}
		wsBytes := slicer.WorkspaceBytes(op, inShape)
		var wsKey int
		if wsBytes > 0 {
			wsKey = mp.Malloc(i, engine.ClassWorkspace, wsBytes)
		}

		outElements := 0
		for _, bi := range op.Outputs {
			shape := g.Blobs[bi].Shape
			outElements += shape.Elements()
			liveBlobKey[bi] = mp.Malloc(i, engine.ClassBlob, shape.Bytes())
		}
		now += float64(outElements) / cfg.ComputeElementsPerMS
		tp.LayerComputingEnd(i)

		if wsBytes > 0 {
			mp.Free(i, engine.ClassWorkspace, wsKey)
		}
		if wbytes > 0 {
			mp.Free(i, engine.ClassWeight, weightKey)
		}
		for _, bi := range op.Inputs {
			if lastConsumer[bi] == i {
				if key, ok := liveBlobKey[bi]; ok {
					mp.Free(i, engine.ClassBlob, key)
					delete(liveBlobKey, bi)
				}
			}
		}
	}

	for bi, key := range liveBlobKey {
		mp.Free(len(g.Operators)-1, engine.ClassBlob, key)
		_ = bi
	}

	return mp, tp, nil
}
