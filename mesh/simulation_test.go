package mesh

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestSimConfig(t *testing.T) SimulationConfig {
	t.Helper()
	topo := lineTopology(t, 10)
	return SimulationConfig{
		Topology: topo,
		Learning: DefaultLearningConfig(10, 1),
		Comparison: ComparisonConfig{
			MessageCount: 5,
			TotalFrames:  60,
			Seed:         7,
		},
	}
}

func TestNewSimulationRejectsInvalidConfig(t *testing.T) {
	_, err := NewSimulation(SimulationConfig{}, zerolog.Nop())
	require.Error(t, err)
	require.IsType(t, ErrConfigurationInvalid{}, err)
}

func TestSimulationSetupAndRunLearning(t *testing.T) {
	sim, err := NewSimulation(newTestSimConfig(t), zerolog.Nop())
	require.NoError(t, err)

	stats, err := sim.RunLearning()
	require.NoError(t, err)
	require.NotEmpty(t, stats.Messages)
}

func TestSimulationCompareRunsBothPoliciesOnSameMessages(t *testing.T) {
	sim, err := NewSimulation(newTestSimConfig(t), zerolog.Nop())
	require.NoError(t, err)

	_, err = sim.RunLearning()
	require.NoError(t, err)

	result := sim.Compare()
	require.Contains(t, result.PerPolicy, PolicyFlood)
	require.Contains(t, result.PerPolicy, PolicyTreeAware)

	flood := result.PerPolicy[PolicyFlood]
	treeAware := result.PerPolicy[PolicyTreeAware]
	require.Equal(t, flood.MessageCount, treeAware.MessageCount)
}

func TestSimulationResetPhasePreservesKnowledgeByDefault(t *testing.T) {
	sim, err := NewSimulation(newTestSimConfig(t), zerolog.Nop())
	require.NoError(t, err)

	_, err = sim.RunLearning()
	require.NoError(t, err)

	var before int
	for _, n := range sim.Nodes() {
		before += len(n.Knowledge)
	}
	require.Greater(t, before, 0)

	sim.ResetPhase(ResetComparison)

	var after int
	for _, n := range sim.Nodes() {
		after += len(n.Knowledge)
	}
	require.Equal(t, before, after, "ResetComparison must preserve knowledge trees")
}

func TestSimulationResetAllWipesKnowledge(t *testing.T) {
	sim, err := NewSimulation(newTestSimConfig(t), zerolog.Nop())
	require.NoError(t, err)

	_, err = sim.RunLearning()
	require.NoError(t, err)

	sim.ResetPhase(ResetAll)

	for _, n := range sim.Nodes() {
		require.Empty(t, n.Knowledge, "ResetAll must wipe every node's knowledge tree")
	}
}
