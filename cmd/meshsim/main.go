// Command meshsim runs the learning phase followed by a flood vs.
// tree_aware comparison over a randomly generated topology, printing the
// derived statistics and category winners.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Talya-Perets/MeshtasticSimulator/mesh"
	"github.com/Talya-Perets/MeshtasticSimulator/mesh/view"
)

func main() {
	preset := flag.Int("nodes", 0, "node count preset: 10, 50, or 100 (0 prompts interactively)")
	messageCount := flag.Int("messages", 0, "comparison message count (0 prompts interactively)")
	totalFrames := flag.Int("frames", 0, "comparison frame budget (0 prompts interactively)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "comparison PRNG seed")
	viewAddr := flag.String("view-addr", "", "if set, serve a live snapshot websocket at this address (e.g. :8080)")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	reader := bufio.NewReader(os.Stdin)

	nodeCount := *preset
	if nodeCount == 0 {
		nodeCount = promptInt(reader, "Node count preset [10, 50, 100]: ", 10)
	}
	if nodeCount != 10 && nodeCount != 50 && nodeCount != 100 {
		logger.Fatal().Int("node_count", nodeCount).Msg("unsupported node count preset")
	}

	msgCount := *messageCount
	if msgCount == 0 {
		msgCount = promptInt(reader, "Comparison message count: ", 20)
	}

	frames := *totalFrames
	if frames == 0 {
		frames = promptInt(reader, "Comparison frame budget: ", 200)
	}

	topoRNG := rand.New(rand.NewSource(int64(nodeCount)))
	adjacency := generateTopology(nodeCount, 2, topoRNG)
	meshAdjacency := make(map[mesh.NodeID][]mesh.NodeID, len(adjacency))
	for from, tos := range adjacency {
		ids := make([]mesh.NodeID, len(tos))
		for i, to := range tos {
			ids[i] = mesh.NodeID(to)
		}
		meshAdjacency[mesh.NodeID(from)] = ids
	}

	topology, err := mesh.NewTopology(nodeCount, meshAdjacency)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build topology")
	}

	cfg := mesh.SimulationConfig{
		Topology: topology,
		Learning: mesh.DefaultLearningConfig(nodeCount, *seed),
		Comparison: mesh.ComparisonConfig{
			MessageCount: msgCount,
			TotalFrames:  frames,
			Seed:         *seed,
		},
	}

	sim, err := mesh.NewSimulation(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid simulation configuration")
	}

	if *viewAddr != "" {
		snapshots := sim.LiveSnapshots()
		http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
			pub, err := view.NewPublisher(snapshots, w, r)
			if err != nil {
				logger.Error().Err(err).Msg("failed to upgrade websocket")
				return
			}
			if err := pub.Sync(); err != nil {
				logger.Debug().Err(err).Msg("view client disconnected")
			}
		})
		go func() {
			logger.Info().Str("addr", *viewAddr).Msg("serving live snapshot feed")
			if err := http.ListenAndServe(*viewAddr, nil); err != nil {
				logger.Error().Err(err).Msg("view server stopped")
			}
		}()
	}

	learningStats, err := sim.RunLearning()
	if err != nil {
		logger.Fatal().Err(err).Msg("learning phase failed")
	}
	logger.Info().
		Int("frames", len(learningStats.Collisions)).
		Int("total_collisions", learningStats.TotalCollisions()).
		Msg("learning phase complete")

	result := sim.Compare()
	printComparison(result)
}

func printComparison(result *mesh.ComparisonResult) {
	for _, policy := range []mesh.Policy{mesh.PolicyFlood, mesh.PolicyTreeAware} {
		stats := result.PerPolicy[policy]
		fmt.Printf("policy=%s network_efficiency=%.2f%% resource_efficiency=%.2f%% average_hops=%.2f collisions=%d messages=%d/%d\n",
			policy, stats.NetworkEfficiency, stats.ResourceEfficiency, stats.AverageHops,
			stats.TotalCollisions, stats.SuccessfulCount, stats.MessageCount)
	}
	fmt.Println("winners:")
	for _, category := range []string{"network_efficiency", "resource_efficiency", "average_path_length", "collisions"} {
		if winner, ok := result.WinnersByCategory[category]; ok {
			fmt.Printf("  %s: %s\n", category, winner)
		} else {
			fmt.Printf("  %s: tie\n", category)
		}
	}
}

func promptInt(r *bufio.Reader, prompt string, fallback int) int {
	fmt.Print(prompt)
	line, err := r.ReadString('\n')
	if err != nil {
		return fallback
	}
	var v int
	if _, err := fmt.Sscanf(line, "%d", &v); err != nil || v <= 0 {
		return fallback
	}
	return v
}
