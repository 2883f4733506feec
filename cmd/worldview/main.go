package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/worldviewlab/claimgraph/internal/client"
	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/platform/envutil"
	"github.com/worldviewlab/claimgraph/internal/platform/logger"
	"github.com/worldviewlab/claimgraph/internal/platform/shutdown"
	"github.com/worldviewlab/claimgraph/internal/session"
)

func main() {
	worldview := flag.String("worldview", "", "worldview sentence to build a graph from")
	k := flag.Int("k", 200, "market results per claim search")
	top := flag.Int("top", 15, "max claims to keep")
	threshold := flag.Float64("threshold", 0.78, "similarity threshold for edges")
	expandID := flag.String("expand", "", "node id to expand after the build")
	flag.Parse()

	if err := run(*worldview, *k, *top, *threshold, *expandID); err != nil {
		fmt.Fprintf(os.Stderr, "worldview: %v\n", err)
		os.Exit(1)
	}
}

func run(worldview string, k, top int, threshold float64, expandID string) error {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	cl, err := client.NewFromEnv()
	if err != nil {
		return err
	}
	log.Info("starting build", "backend", cl.BaseURL(), "worldview", worldview)

	onSnapshot := progressLogger(log)

	out, err := cl.Build(ctx, client.BuildRequest{
		Worldview: worldview,
		K:         k,
		TopN:      top,
		Threshold: threshold,
	}, graph.Graph{}, onSnapshot)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	logOutcome(log, "build complete", out)

	if expandID != "" {
		parent, ok := out.Graph.NodeByID(expandID)
		if !ok {
			return fmt.Errorf("expand: node %q not in committed graph", expandID)
		}
		out, err = cl.Expand(ctx, client.ExpandRequest{
			ParentID:  parent.ID,
			Worldview: parent.Label,
			ParentHop: parent.Hop,
			K:         k,
			TopN:      top,
			Threshold: threshold,
		}, out.Graph, onSnapshot)
		if err != nil {
			return fmt.Errorf("expand: %w", err)
		}
		logOutcome(log, "expand complete", out)
	}

	printGraph(out.Graph)
	return nil
}

// progressLogger reports staged progress only when something grew, so
// chatty streams do not flood the terminal.
func progressLogger(log *logger.Logger) func(session.Snapshot) {
	lastNodes, lastEdges := -1, -1
	return func(s session.Snapshot) {
		if len(s.Nodes) == lastNodes && len(s.Edges) == lastEdges {
			return
		}
		lastNodes, lastEdges = len(s.Nodes), len(s.Edges)
		log.Debug("staging", "nodes", lastNodes, "speculative_edges", lastEdges)
	}
}

func logOutcome(log *logger.Logger, msg string, out client.Outcome) {
	counts := make(map[string]int, len(out.Counter))
	for t, n := range out.Counter {
		counts[string(t)] = n
	}
	log.Info(msg,
		"nodes", len(out.Graph.Nodes),
		"edges", len(out.Graph.Edges),
		"core_id", out.Graph.CoreID,
		"events", counts)
}

func printGraph(g graph.Graph) {
	fmt.Printf("graph: %d nodes, %d edges (core %s)\n", len(g.Nodes), len(g.Edges), g.CoreID)
	for _, n := range g.Nodes {
		marker := " "
		if n.ID == g.CoreID {
			marker = "*"
		}
		conf := ""
		if n.Verification != nil {
			conf = fmt.Sprintf(" conf=%.2f", n.Verification.Confidence)
		}
		fmt.Printf("%s [%s] hop=%d sim=%.2f%s %s\n", marker, n.Status, n.Hop, n.Similarity, conf, n.Label)
	}
}
