package routing

import (
	"sort"
)

// Graph is an immutable in-memory routing graph for one model. Areas live
// in a dense arena and all traversal works on integer indexes; string area
// codes appear only at the boundary. Build one per validation or ordering
// call with NewGraph.
type Graph struct {
	codes []string         // arena index -> area code
	index map[string]int32 // area code -> arena index
	preds [][]int32        // incoming edges, sorted ascending by area code
	succs [][]int32        // outgoing edges, sorted ascending by area code
	order []int32          // every index, ascending by area code
}

// NewGraph builds a routing graph from a flat step list. It fails with a
// StepInputError (wrapping ErrInvalidStepInput) on an empty area code, a
// duplicate area code, or a predecessor that references an area outside the
// step set. Duplicate predecessor mentions within one step collapse to a
// single edge.
func NewGraph(steps []Step) (*Graph, error) {
	g := &Graph{
		codes: make([]string, 0, len(steps)),
		index: make(map[string]int32, len(steps)),
		preds: make([][]int32, len(steps)),
		succs: make([][]int32, len(steps)),
	}

	// First pass: register every area so predecessors can reference areas
	// declared later in the list.
	for _, step := range steps {
		if step.AreaCode == "" {
			return nil, &StepInputError{Fault: FaultEmptyArea}
		}
		if _, exists := g.index[step.AreaCode]; exists {
			return nil, &StepInputError{Fault: FaultDuplicateArea, AreaCode: step.AreaCode}
		}
		g.index[step.AreaCode] = int32(len(g.codes))
		g.codes = append(g.codes, step.AreaCode)
	}

	// Second pass: resolve predecessor references into edges.
	for _, step := range steps {
		to := g.index[step.AreaCode]
		seen := make(map[int32]bool, len(step.Predecessors))
		for _, predCode := range step.Predecessors {
			from, exists := g.index[predCode]
			if !exists {
				return nil, &StepInputError{
					Fault:       FaultDanglingPredecessor,
					AreaCode:    step.AreaCode,
					Predecessor: predCode,
				}
			}
			if seen[from] {
				continue
			}
			seen[from] = true
			g.preds[to] = append(g.preds[to], from)
			g.succs[from] = append(g.succs[from], to)
		}
	}

	// Deterministic traversal order: every index list ascending by code.
	g.order = make([]int32, len(g.codes))
	for i := range g.order {
		g.order[i] = int32(i)
	}
	g.sortByCode(g.order)
	for i := range g.preds {
		g.sortByCode(g.preds[i])
		g.sortByCode(g.succs[i])
	}

	return g, nil
}

func (g *Graph) sortByCode(idx []int32) {
	sort.Slice(idx, func(a, b int) bool {
		return g.codes[idx[a]] < g.codes[idx[b]]
	})
}

// Len returns the number of areas in the graph.
func (g *Graph) Len() int {
	return len(g.codes)
}

// IsEmpty reports whether the graph has no areas.
func (g *Graph) IsEmpty() bool {
	return len(g.codes) == 0
}

// Contains reports whether the area is part of the graph.
func (g *Graph) Contains(areaCode string) bool {
	_, exists := g.index[areaCode]
	return exists
}

// AllAreas returns every area code, ascending.
func (g *Graph) AllAreas() []string {
	areas := make([]string, len(g.order))
	for i, idx := range g.order {
		areas[i] = g.codes[idx]
	}
	return areas
}

// PredecessorsOf returns the areas that must complete before areaCode,
// ascending. The second return is false when the area is not in the graph.
func (g *Graph) PredecessorsOf(areaCode string) ([]string, bool) {
	idx, exists := g.index[areaCode]
	if !exists {
		return nil, false
	}
	return g.resolve(g.preds[idx]), true
}

// SuccessorsOf returns the areas that list areaCode as a predecessor,
// ascending. The second return is false when the area is not in the graph.
func (g *Graph) SuccessorsOf(areaCode string) ([]string, bool) {
	idx, exists := g.index[areaCode]
	if !exists {
		return nil, false
	}
	return g.resolve(g.succs[idx]), true
}

func (g *Graph) resolve(idx []int32) []string {
	codes := make([]string, len(idx))
	for i, id := range idx {
		codes[i] = g.codes[id]
	}
	return codes
}

// Steps returns the graph as a normalized step list: areas ascending by
// code, each predecessor set deduplicated and sorted. Two graphs built from
// set-equal inputs produce identical output, which is what the persistence
// round-trip relies on.
func (g *Graph) Steps() []Step {
	steps := make([]Step, 0, len(g.order))
	for _, idx := range g.order {
		steps = append(steps, Step{
			AreaCode:     g.codes[idx],
			Predecessors: g.resolve(g.preds[idx]),
		})
	}
	return steps
}
