package mesh

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComparatorWinnersByCategory(t *testing.T) {
	flood := &ComparisonStats{
		Policy:             PolicyFlood,
		NetworkEfficiency:  60,
		ResourceEfficiency: 70,
		AverageHops:        3,
		TotalCollisions:    10,
	}
	treeAware := &ComparisonStats{
		Policy:             PolicyTreeAware,
		NetworkEfficiency:  80,
		ResourceEfficiency: 70,
		AverageHops:        2,
		TotalCollisions:    4,
	}

	result := NewComparator().Compare(flood, treeAware)

	require.Equal(t, PolicyTreeAware, result.WinnersByCategory["network_efficiency"])
	require.Equal(t, PolicyFlood, result.WinnersByCategory["average_path_length"])
	require.Equal(t, PolicyTreeAware, result.WinnersByCategory["collisions"])
	_, tied := result.WinnersByCategory["resource_efficiency"]
	require.False(t, tied, "an exact tie should award no winner")
}
