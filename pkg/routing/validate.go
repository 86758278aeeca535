package routing

// Validate decides whether a routing graph is acceptable for persistence.
//
// Cycle detection uses depth-first search with three colors per area:
//   - WHITE: unvisited
//   - GRAY:  currently visiting (on the DFS stack)
//   - BLACK: finished visiting
//
// An edge into a GRAY area is a back edge and proves a cycle; the cycle's
// members are recovered by walking the explicit DFS stack back to the back
// edge's target, so CycleNodes lists the cycle in path order. Roots and
// successor lists are visited ascending by area code, which makes the first
// reported cycle reproducible when several exist. Only the first cycle is
// reported.
//
// An area is an orphan when it has no predecessors, no other area depends
// on it, and the graph holds more than one area. A single-area routing is
// never orphaned. Orphan detection runs even when a cycle was already
// found, so one call reports all structural problems at once.
func Validate(g *Graph) *ValidationResult {
	result := &ValidationResult{
		CycleNodes:  []string{},
		OrphanNodes: []string{},
	}

	if cycle := findCycle(g); len(cycle) > 0 {
		result.HasCycle = true
		result.CycleNodes = cycle
	}

	for _, idx := range g.order {
		if len(g.preds[idx]) == 0 && len(g.succs[idx]) == 0 && g.Len() > 1 {
			result.OrphanNodes = append(result.OrphanNodes, g.codes[idx])
		}
	}
	result.HasOrphans = len(result.OrphanNodes) > 0

	result.IsValid = !result.HasCycle && !result.HasOrphans
	return result
}

// ValidateSteps builds a graph from steps and validates it. Structural
// input problems surface as an error; they are a different failure class
// from a cycle or orphan verdict.
func ValidateSteps(steps []Step) (*ValidationResult, error) {
	g, err := NewGraph(steps)
	if err != nil {
		return nil, err
	}
	return Validate(g), nil
}

// findCycle returns the first cycle in path order, or nil if the graph is
// acyclic.
func findCycle(g *Graph) []string {
	const (
		WHITE = 0 // unvisited
		GRAY  = 1 // in progress, on the DFS stack
		BLACK = 2 // done
	)

	color := make([]int, g.Len())
	stack := make([]int32, 0, g.Len())
	var cycle []int32

	var dfs func(u int32) bool
	dfs = func(u int32) bool {
		color[u] = GRAY
		stack = append(stack, u)

		for _, v := range g.succs[u] {
			switch color[v] {
			case WHITE:
				if dfs(v) {
					return true
				}
			case GRAY:
				// Back edge: the cycle is the stack suffix starting at v.
				// A self-loop leaves just u on that suffix.
				start := len(stack) - 1
				for stack[start] != v {
					start--
				}
				cycle = append(cycle, stack[start:]...)
				return true
			}
		}

		stack = stack[:len(stack)-1]
		color[u] = BLACK
		return false
	}

	for _, u := range g.order {
		if color[u] == WHITE {
			if dfs(u) {
				break
			}
		}
	}

	if cycle == nil {
		return nil
	}
	return g.resolve(cycle)
}
