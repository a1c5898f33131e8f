package mesh

import (
	"github.com/rs/zerolog"
)

// ResetDepth selects how much state reset_phase clears, per spec.md §6.
type ResetDepth int

const (
	// ResetComparison clears per-node volatile state (flags, outbox,
	// inbox, duplicate-suppression sets) but preserves every node's
	// knowledge tree, so a fresh policy can be compared against the same
	// learned topology knowledge.
	ResetComparison ResetDepth = iota
	// ResetAll additionally wipes every node's knowledge tree.
	ResetAll
)

// SimulationConfig is the setup()-time input spec.md §6 names: a
// topology plus the two phase configurations.
type SimulationConfig struct {
	Topology   *Topology
	Learning   LearningConfig
	Comparison ComparisonConfig
}

// Simulation is the top-level control surface spec.md §6 specifies:
// setup, run_learning, run_comparison, compare, reset_phase. It owns the
// node set (and therefore the knowledge trees) for the lifetime of the
// simulation.
type Simulation struct {
	cfg    SimulationConfig
	nodes  map[NodeID]*Node
	runner *PhaseRunner
	logger zerolog.Logger

	learningStats *PhaseStats

	comparisonMessages []*Message
	comparisonStats    map[Policy]*PhaseStats
}

// NewSimulation validates cfg and builds the node set from its topology.
// Returns ErrConfigurationInvalid for a nil topology or an invalid
// comparison configuration. The topology itself is not re-validated here;
// NewTopology reports ErrTopologyInvalid when it is built.
func NewSimulation(cfg SimulationConfig, logger zerolog.Logger) (*Simulation, error) {
	if err := validateSimulationConfig(cfg); err != nil {
		return nil, err
	}

	nodes := make(map[NodeID]*Node, cfg.Topology.NodeCount())
	for id := NodeID(0); int(id) < cfg.Topology.NodeCount(); id++ {
		nodes[id] = NewNode(id, cfg.Topology.Neighbors(id))
	}

	s := &Simulation{
		cfg:             cfg,
		nodes:           nodes,
		logger:          logger.With().Str("component", "simulation").Logger(),
		comparisonStats: make(map[Policy]*PhaseStats),
	}
	s.runner = NewPhaseRunner(cfg.Topology, nodes, s.logger)
	s.logger.Debug().Int("node_count", cfg.Topology.NodeCount()).Msg("simulation set up")
	return s, nil
}

func validateSimulationConfig(cfg SimulationConfig) error {
	if cfg.Topology == nil {
		return ErrConfigurationInvalid{msg: "topology must not be nil"}
	}
	if cfg.Comparison.MessageCount <= 0 {
		return ErrConfigurationInvalid{msg: "comparison config: message_count must be positive"}
	}
	if cfg.Comparison.TotalFrames <= 0 {
		return ErrConfigurationInvalid{msg: "comparison config: total_frames must be positive"}
	}
	hopLimit := cfg.Comparison.hopLimitFor(cfg.Topology.NodeCount())
	if cfg.Comparison.TotalFrames <= hopLimit+4 {
		return ErrConfigurationInvalid{msg: "comparison config: total_frames too small for hop_limit"}
	}
	return nil
}

// RunLearning runs the learning phase to termination. Knowledge trees
// built here persist into every later comparison run.
func (s *Simulation) RunLearning() (*PhaseStats, error) {
	cfg := s.cfg.Learning
	if cfg.NodeCount == 0 {
		cfg = DefaultLearningConfig(s.cfg.Topology.NodeCount(), cfg.Seed)
	}
	stats, err := s.runner.RunLearning(cfg)
	if err != nil {
		s.logger.Error().Err(err).Msg("learning phase failed")
		return nil, err
	}
	s.learningStats = stats
	s.logger.Info().
		Int("total_transmissions_accepted", stats.TotalTransmissionsAccepted()).
		Msg("learning phase complete")
	return stats, nil
}

// RunComparison replays the (generated once, cached) comparison message
// set under policy. The first call for a given Simulation generates the
// message set; subsequent calls (for the other policy) reuse it
// unchanged, so both policies see an identical schedule.
func (s *Simulation) RunComparison(policy Policy) *ComparisonStats {
	if s.comparisonMessages == nil {
		s.comparisonMessages = s.runner.GenerateComparisonMessages(s.cfg.Comparison)
	}
	stats := s.runner.RunComparison(s.cfg.Comparison, policy, s.comparisonMessages)
	s.comparisonStats[policy] = stats
	return stats.Derive(policy)
}

// Compare runs both policies (if not already run) over the identical
// comparison message set and derives category winners.
func (s *Simulation) Compare() *ComparisonResult {
	flood := s.comparisonStats[PolicyFlood]
	if flood == nil {
		s.RunComparison(PolicyFlood)
		flood = s.comparisonStats[PolicyFlood]
	}
	treeAware := s.comparisonStats[PolicyTreeAware]
	if treeAware == nil {
		s.RunComparison(PolicyTreeAware)
		treeAware = s.comparisonStats[PolicyTreeAware]
	}

	cmp := NewComparator()
	result := cmp.Compare(flood.Derive(PolicyFlood), treeAware.Derive(PolicyTreeAware))
	s.logger.Info().
		Interface("winners_by_category", result.WinnersByCategory).
		Msg("comparison complete")
	return result
}

// ResetPhase implements spec.md §6's reset_phase(which): ResetComparison
// clears volatile node state and the cached comparison message set while
// preserving knowledge trees; ResetAll additionally wipes every node's
// knowledge tree.
func (s *Simulation) ResetPhase(depth ResetDepth) {
	for _, n := range s.nodes {
		n.resetVolatile()
		if depth == ResetAll {
			n.resetKnowledge()
		}
	}
	s.comparisonMessages = nil
	s.comparisonStats = make(map[Policy]*PhaseStats)
	if depth == ResetAll {
		s.learningStats = nil
	}

	s.logger.Debug().Bool("wiped_knowledge", depth == ResetAll).Msg("phase reset")
}

// Nodes exposes the live node set for inspection (tests, the view
// package). Callers must not mutate node internals directly; only
// FrameEngine and PhaseRunner are permitted to.
func (s *Simulation) Nodes() map[NodeID]*Node {
	return s.nodes
}

// LiveSnapshots returns a channel that receives a copy of every
// subsequently-run tick's FrameSnapshot, for wiring into a mesh/view
// Publisher. The channel is buffered to absorb bursts; slow consumers
// miss intermediate ticks rather than blocking the simulation.
func (s *Simulation) LiveSnapshots() <-chan *FrameSnapshot {
	feed := make(chan *FrameSnapshot, 8)
	s.runner.SetLiveFeed(feed)
	return feed
}
