package routing

import (
	"fmt"
	"sort"
)

// TopologicalOrder returns every area of an acyclic graph in an order where
// each area appears strictly after all of its predecessors, using Kahn's
// algorithm. Among the areas currently at in-degree zero the smallest area
// code is always emitted first, so the output is deterministic across runs.
//
// The caller is expected to have validated the graph already. If the queue
// drains before every area is consumed the graph contains a cycle and the
// precondition was violated; that returns ErrCyclicOrder, which is an
// internal invariant failure rather than a validation outcome.
func TopologicalOrder(g *Graph) ([]string, error) {
	if g.IsEmpty() {
		return []string{}, nil
	}

	inDegree := make([]int, g.Len())
	for i := range inDegree {
		inDegree[i] = len(g.preds[i])
	}

	// g.order is ascending by code, so the initial ready list is too.
	ready := make([]int32, 0, g.Len())
	for _, idx := range g.order {
		if inDegree[idx] == 0 {
			ready = append(ready, idx)
		}
	}

	sorted := make([]string, 0, g.Len())
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		sorted = append(sorted, g.codes[current])

		for _, succ := range g.succs[current] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				ready = insertByCode(g, ready, succ)
			}
		}
	}

	if len(sorted) != g.Len() {
		return nil, fmt.Errorf("%w: consumed %d of %d areas", ErrCyclicOrder, len(sorted), g.Len())
	}
	return sorted, nil
}

// insertByCode places idx into ready keeping it sorted ascending by area
// code. Graphs hold tens of areas, so a binary-search insert beats carrying
// a heap.
func insertByCode(g *Graph, ready []int32, idx int32) []int32 {
	code := g.codes[idx]
	pos := sort.Search(len(ready), func(i int) bool {
		return g.codes[ready[i]] >= code
	})
	ready = append(ready, 0)
	copy(ready[pos+1:], ready[pos:])
	ready[pos] = idx
	return ready
}

// OrderBatches groups an acyclic graph into parallel stages: batch i holds
// every area whose predecessors all sit in earlier batches, each batch
// ascending by area code. Areas in one batch have no dependency relation
// and may run concurrently. Returns ErrCyclicOrder under the same
// precondition violation as TopologicalOrder.
func OrderBatches(g *Graph) ([][]string, error) {
	if g.IsEmpty() {
		return [][]string{}, nil
	}

	inDegree := make([]int, g.Len())
	for i := range inDegree {
		inDegree[i] = len(g.preds[i])
	}

	current := make([]int32, 0, g.Len())
	for _, idx := range g.order {
		if inDegree[idx] == 0 {
			current = append(current, idx)
		}
	}

	batches := make([][]string, 0)
	consumed := 0
	for len(current) > 0 {
		batch := make([]string, len(current))
		for i, idx := range current {
			batch[i] = g.codes[idx]
		}
		batches = append(batches, batch)
		consumed += len(current)

		next := make([]int32, 0)
		for _, idx := range current {
			for _, succ := range g.succs[idx] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					next = append(next, succ)
				}
			}
		}
		g.sortByCode(next)
		current = next
	}

	if consumed != g.Len() {
		return nil, fmt.Errorf("%w: consumed %d of %d areas", ErrCyclicOrder, consumed, g.Len())
	}
	return batches, nil
}
