package mesh

import (
	"math/rand"

	"github.com/rs/zerolog"
)

// LearningConfig parametrizes the learning phase (spec.md §6).
type LearningConfig struct {
	NodeCount         int
	LearningHopLimit  int
	InterMessageDelta int
	Seed              int64
}

// DefaultLearningConfig fills in spec.md §4.5's constants
// (learning_hop_limit=4, inter_message_delta=4) for the given node count.
func DefaultLearningConfig(nodeCount int, seed int64) LearningConfig {
	return LearningConfig{
		NodeCount:         nodeCount,
		LearningHopLimit:  4,
		InterMessageDelta: 4,
		Seed:              seed,
	}
}

// ComparisonConfig parametrizes the comparison phase (spec.md §6).
type ComparisonConfig struct {
	MessageCount int
	TotalFrames  int
	Seed         int64

	// HopLimitTable maps node_count to hop_limit, per spec.md §4.5's table
	// {10:4, 50:8, 100:12, default:6}. Zero value triggers DefaultHopLimitTable.
	HopLimitTable map[int]int
}

// DefaultHopLimitTable is spec.md §4.5's hop-limit-by-scale table.
func DefaultHopLimitTable() map[int]int {
	return map[int]int{10: 4, 50: 8, 100: 12}
}

// hopLimitFor looks up the hop limit for nodeCount, falling back to the
// table's default entry (key 0) or 6 if neither is present.
func (c ComparisonConfig) hopLimitFor(nodeCount int) int {
	table := c.HopLimitTable
	if table == nil {
		table = DefaultHopLimitTable()
	}
	if v, ok := table[nodeCount]; ok {
		return v
	}
	if v, ok := table[0]; ok {
		return v
	}
	return 6
}

// PhaseRunner drives a FrameEngine through a full phase: generating the
// message schedule, stepping the engine until termination, and folding
// results into PhaseStats (spec.md §4.5).
type PhaseRunner struct {
	topology *Topology
	nodes    map[NodeID]*Node
	logger   zerolog.Logger

	// liveFeed, if non-nil, receives a copy of every tick's snapshot as it
	// is produced, for the mesh/view websocket publisher. Sends are
	// non-blocking: a viewer that cannot keep up simply misses
	// intermediate ticks, matching SPEC_FULL.md §11's "latest state only"
	// semantics.
	liveFeed chan *FrameSnapshot
}

// SetLiveFeed wires a channel that will receive a copy of every tick's
// FrameSnapshot as the phase runs, for the mesh/view live publisher. Pass
// nil to disable.
func (r *PhaseRunner) SetLiveFeed(feed chan *FrameSnapshot) {
	r.liveFeed = feed
}

// NewPhaseRunner builds a runner over a fixed topology and node set. The
// same nodes (and their knowledge trees) are reused across learning and
// every comparison run.
func NewPhaseRunner(topology *Topology, nodes map[NodeID]*Node, logger zerolog.Logger) *PhaseRunner {
	return &PhaseRunner{topology: topology, nodes: nodes, logger: logger.With().Str("component", "phase_runner").Logger()}
}

// GenerateLearningPairs derives the deterministic (source, target) pairs
// SPEC_FULL.md §12 specifies: stride pairing (i, (i + nodeCount/2) %
// nodeCount), self-pairs skipped, reproducible without any PRNG.
func GenerateLearningPairs(nodeCount int) []Path {
	if nodeCount <= 1 {
		return nil
	}
	pairs := make([]Path, 0, nodeCount)
	seen := make(map[[2]NodeID]struct{})
	stride := nodeCount / 2
	for i := 0; i < nodeCount; i++ {
		src := NodeID(i)
		dst := NodeID((i + stride) % nodeCount)
		if src == dst {
			continue
		}
		key := [2]NodeID{src, dst}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pairs = append(pairs, Path{src, dst})
	}
	return pairs
}

// RunLearning builds the learning message schedule, always under
// PolicyFlood, and runs it to termination: either the last learning
// message completes, or the scheduled frames are exhausted.
func (r *PhaseRunner) RunLearning(cfg LearningConfig) (*PhaseStats, error) {
	if err := validateLearningConfig(cfg); err != nil {
		return nil, err
	}

	pairs := GenerateLearningPairs(cfg.NodeCount)
	messages := make([]*Message, 0, len(pairs))
	id := MessageID(1)
	frame := 1
	for _, p := range pairs {
		messages = append(messages, NewMessage(id, p[0], p[1], cfg.LearningHopLimit, frame))
		id++
		frame += cfg.InterMessageDelta
	}

	lastScheduled := 1
	if len(messages) > 0 {
		lastScheduled = messages[len(messages)-1].StartFrame
	}
	// Run a generous margin past the last admission so the final message's
	// hop budget has room to either reach its target or expire.
	totalFrames := lastScheduled + cfg.LearningHopLimit + cfg.InterMessageDelta

	r.logger.Info().
		Int("node_count", cfg.NodeCount).
		Int("message_count", len(messages)).
		Int("total_frames", totalFrames).
		Msg("learning phase starting")

	engine := NewFrameEngine(r.topology, r.nodes, PolicyFlood, true, r.logger)
	return r.run(engine, messages, totalFrames), nil
}

// generateComparisonMessages builds the comparison phase's message set
// with the message-generation PRNG stream spec.md §9 requires be
// independent of any topology-level stream.
func (r *PhaseRunner) generateComparisonMessages(cfg ComparisonConfig) []*Message {
	rng := rand.New(rand.NewSource(cfg.Seed))
	hopLimit := cfg.hopLimitFor(r.topology.NodeCount())
	latestStart := cfg.TotalFrames - (hopLimit + 4)
	if latestStart < 1 {
		latestStart = 1
	}

	messages := make([]*Message, 0, cfg.MessageCount)
	for i := 0; i < cfg.MessageCount; i++ {
		src := NodeID(rng.Intn(r.topology.NodeCount()))
		dst := src
		for dst == src {
			dst = NodeID(rng.Intn(r.topology.NodeCount()))
		}
		startFrame := 1
		if latestStart > 1 {
			startFrame = 1 + rng.Intn(latestStart)
		}
		messages = append(messages, NewMessage(MessageID(i+1), src, dst, hopLimit, startFrame))
	}
	return messages
}

// RunComparison replays the given message set under policy, starting from
// a clean volatile node state but the existing (possibly learning-seeded)
// knowledge trees, per spec.md §4.5: knowledge trees are not reset
// between policies.
func (r *PhaseRunner) RunComparison(cfg ComparisonConfig, policy Policy, messages []*Message) *PhaseStats {
	clones := make([]*Message, len(messages))
	for i, m := range messages {
		cp := m.clone()
		cp.reset()
		clones[i] = cp
	}

	for _, n := range r.nodes {
		n.resetVolatile()
	}

	r.logger.Info().
		Str("policy", policy.String()).
		Int("message_count", len(clones)).
		Int("total_frames", cfg.TotalFrames).
		Msg("comparison phase starting")

	engine := NewFrameEngine(r.topology, r.nodes, policy, false, r.logger)
	return r.run(engine, clones, cfg.TotalFrames)
}

// GenerateComparisonMessages exposes generateComparisonMessages so a
// caller (Simulation) can generate the message set once and replay the
// identical set under both policies.
func (r *PhaseRunner) GenerateComparisonMessages(cfg ComparisonConfig) []*Message {
	return r.generateComparisonMessages(cfg)
}

// run steps engine until every message completes or totalFrames ticks
// have elapsed, folding each tick into a fresh PhaseStats.
func (r *PhaseRunner) run(engine *FrameEngine, messages []*Message, totalFrames int) *PhaseStats {
	engine.Messages = messages
	stats := NewPhaseStats()

	for tick := 1; tick <= totalFrames; tick++ {
		snap, fs := engine.Step()
		stats.Record(fs, snap, messages)

		if r.liveFeed != nil {
			select {
			case r.liveFeed <- snap:
			default:
			}
		}

		if allCompleted(messages) {
			break
		}
	}

	r.logger.Info().
		Int("frames_run", len(stats.Collisions)).
		Int("total_collisions", stats.TotalCollisions()).
		Bool("all_completed", allCompleted(messages)).
		Msg("phase terminated")

	return stats
}

func allCompleted(messages []*Message) bool {
	for _, m := range messages {
		if !m.IsCompleted() {
			return false
		}
	}
	return true
}

func validateLearningConfig(cfg LearningConfig) error {
	if cfg.NodeCount <= 0 {
		return ErrConfigurationInvalid{msg: "learning config: node_count must be positive"}
	}
	if cfg.LearningHopLimit <= 0 {
		return ErrConfigurationInvalid{msg: "learning config: learning_hop_limit must be positive"}
	}
	if cfg.InterMessageDelta <= 0 {
		return ErrConfigurationInvalid{msg: "learning config: inter_message_delta must be positive"}
	}
	return nil
}
