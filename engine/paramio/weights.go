package paramio

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"os"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

// WeightBytes returns the number of weight bytes op owns, 0 for operator
// kinds with no weight buffer (Input, Split, Concat, Gather, DivTrilWhere).
func WeightBytes(op engine.Operator) int {
	switch p := op.Params.(type) {
	case *kernel.ConvParams:
		return p.WeightDataSize
	case *kernel.InnerProductParams:
		return p.WeightDataSize
	default:
		return 0
	}
}

// ReadWeights reads path's raw bytes. "null" is ncnn's convention for "no
// weight file available" and returns an empty buffer rather than an error,
// matching flexnnslice.cpp's own null-bin handling.
func ReadWeights(path string) ([]byte, error) {
	if path == "null" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading weight file %s: %v", engine.ErrIOFailure, path, err)
	}
	return data, nil
}

func seedFromName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

// WriteWeights emits one contiguous weight buffer for g's operators, in
// declaration order, sized by WeightBytes per operator. A split operator's
// exact byte provenance from its pre-split parent is not reconstructed (see
// DESIGN.md): none of this engine's planning components — slicer, profiler,
// scheduler, allocator — ever reads a weight value, only its size, so each
// operator's share is filled by a deterministic generator seeded from its
// name. This mirrors flexnnslice.h's own gen_random_weight fallback, applied
// here to every weight-bearing operator rather than only to a missing input
// file.
func WriteWeights(path string, g *engine.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating weight file %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	for _, op := range g.Operators {
		n := WeightBytes(op)
		if n <= 0 {
			continue
		}
		buf := make([]byte, n)
		rand.New(rand.NewSource(seedFromName(op.Name))).Read(buf)
		if _, err := f.Write(buf); err != nil {
			return fmt.Errorf("%w: writing weight file %s: %v", engine.ErrIOFailure, path, err)
		}
	}
	return nil
}
