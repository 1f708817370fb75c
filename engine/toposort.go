package engine

import "fmt"

// TopologicalSort rewrites g.Operators into a valid topological order using
// Kahn's algorithm, seeded by every zero-indegree operator in its original
// order — which keeps Input operators (they have no inputs) as a stable
// prefix without needing special-case handling. Blob Producer/Consumer
// indices are rewritten in place to match the new operator order.
func (g *Graph) TopologicalSort() error {
	n := len(g.Operators)
	indegree := make([]int, n)
	consumers := make([][]int, n) // consumers[op] = operators that read one of op's outputs

	for oi, op := range g.Operators {
		for _, bi := range op.Inputs {
			producer := g.Blobs[bi].Producer
			indegree[oi]++
			consumers[producer] = append(consumers[producer], oi)
		}
	}

	order := make([]int, 0, n)
	ready := make([]int, 0, n)
	for oi := 0; oi < n; oi++ {
		if indegree[oi] == 0 {
			ready = append(ready, oi)
		}
	}

	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, consumer := range consumers[next] {
			indegree[consumer]--
			if indegree[consumer] == 0 {
				ready = append(ready, consumer)
			}
		}
	}

	if len(order) != n {
		return fmt.Errorf("%w: cycle detected among operators", ErrGraphInvariantViolation)
	}

	oldToNew := make([]int, n)
	newOperators := make([]Operator, n)
	for newIdx, oldIdx := range order {
		oldToNew[oldIdx] = newIdx
		newOperators[newIdx] = g.Operators[oldIdx]
	}
	g.Operators = newOperators

	for bi := range g.Blobs {
		g.Blobs[bi].Producer = oldToNew[g.Blobs[bi].Producer]
		if g.Blobs[bi].Consumer != -1 {
			g.Blobs[bi].Consumer = oldToNew[g.Blobs[bi].Consumer]
		}
	}

	inputCount := 0
	for _, op := range g.Operators {
		if op.Kind != KindInput {
			break
		}
		inputCount++
	}
	g.InputCount = inputCount

	return g.Validate()
}
