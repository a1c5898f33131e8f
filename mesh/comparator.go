package mesh

// ComparisonResult is the control-surface shape spec.md §6's compare()
// returns: per-policy derived statistics and the category winners
// SPEC_FULL.md §12 specifies how to derive.
type ComparisonResult struct {
	PerPolicy         map[Policy]*ComparisonStats
	WinnersByCategory map[string]Policy
}

// Comparator derives category winners from two policies' ComparisonStats.
// It holds no state of its own; Compare is a pure function of its inputs.
type Comparator struct{}

// NewComparator returns a Comparator. It carries no configuration.
func NewComparator() *Comparator {
	return &Comparator{}
}

// Compare implements SPEC_FULL.md §12's winners-by-category rule: the
// policy with the higher network_efficiency/resource_efficiency/
// average_path_length wins that category; the policy with the lower
// collision total wins the collisions category; an exact tie in any
// category awards no winner and the category is omitted from the map.
func (c *Comparator) Compare(flood, treeAware *ComparisonStats) *ComparisonResult {
	result := &ComparisonResult{
		PerPolicy: map[Policy]*ComparisonStats{
			PolicyFlood:     flood,
			PolicyTreeAware: treeAware,
		},
		WinnersByCategory: make(map[string]Policy),
	}

	higherWins := func(category string, a, b float64) {
		if a > b {
			result.WinnersByCategory[category] = PolicyFlood
		} else if b > a {
			result.WinnersByCategory[category] = PolicyTreeAware
		}
	}

	higherWins("network_efficiency", flood.NetworkEfficiency, treeAware.NetworkEfficiency)
	higherWins("resource_efficiency", flood.ResourceEfficiency, treeAware.ResourceEfficiency)
	higherWins("average_path_length", flood.AverageHops, treeAware.AverageHops)

	switch {
	case flood.TotalCollisions < treeAware.TotalCollisions:
		result.WinnersByCategory["collisions"] = PolicyFlood
	case treeAware.TotalCollisions < flood.TotalCollisions:
		result.WinnersByCategory["collisions"] = PolicyTreeAware
	}

	return result
}
