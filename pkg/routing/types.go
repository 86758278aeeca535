package routing

// Step is one node of a model's routing graph: a production area plus the
// set of areas that must complete before it may begin. Predecessor order is
// not significant; an empty predecessor set marks a start area.
type Step struct {
	AreaCode     string   `json:"areaCode"`
	Predecessors []string `json:"predecessors"`
}

// ModelRouting is the complete routing for one product model. Either the
// whole step set exists or the model has no routing; callers never see a
// partially defined state.
type ModelRouting struct {
	ModelID string `json:"modelId"`
	Steps   []Step `json:"steps"`
}

// ValidationResult reports the structural health of a routing graph.
// Cycle and orphan detection are independent checks and both are always
// populated, so a single validation reports every problem at once.
type ValidationResult struct {
	IsValid     bool     `json:"isValid"`
	HasCycle    bool     `json:"hasCycle"`
	CycleNodes  []string `json:"cycleNodes"`
	HasOrphans  bool     `json:"hasOrphans"`
	OrphanNodes []string `json:"orphanNodes"`
}
