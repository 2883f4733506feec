// Package pipeline stands in for the real claim pipeline: it emits the
// full event vocabulary for a build or expand operation, with
// deterministic content so client behavior is reproducible.
package pipeline

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/config"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/scenario"
	"github.com/worldviewlab/claimgraph/internal/platform/logger"
)

// Emitter writes one event to the stream. The pipeline serializes all
// calls, so implementations need no locking of their own.
type Emitter func(event string, data any) error

// Params describes one operation. ParentID is empty for a build; for an
// expand it names the node being grown and ParentHop its distance from
// the core.
type Params struct {
	Worldview string
	ParentID  string
	ParentHop int
	K         int
	TopN      int
	Threshold float64
}

type Pipeline struct {
	log *logger.Logger
	scn *scenario.Scenario

	delay    time.Duration
	parallel int64
	perBuild int
}

func New(log *logger.Logger, scn *scenario.Scenario, cfg config.PipelineConfig) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	parallel := cfg.MaxParallelVerify
	if parallel <= 0 {
		parallel = 8
	}
	perBuild := cfg.ClaimsPerBuild
	if perBuild <= 0 {
		perBuild = 8
	}
	return &Pipeline{
		log:      log,
		scn:      scn,
		delay:    cfg.StreamDelay.Duration,
		parallel: int64(parallel),
		perBuild: perBuild,
	}
}

// Run produces the whole event sequence for one operation, ending with
// graph_complete. The caller turns a returned error into a terminal
// error event.
func (p *Pipeline) Run(ctx context.Context, params Params, emit Emitter) error {
	var mu sync.Mutex
	send := func(event string, data any) error {
		if err := p.pause(ctx); err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		return emit(event, data)
	}

	root := p.rootNode(params)
	if err := send("claim_generated", nodePayload(root)); err != nil {
		return err
	}

	claims := p.claimsFor(params.Worldview)
	if params.TopN > 0 && len(claims) > params.TopN {
		claims = claims[:params.TopN]
	}

	nodes := make([]*graph.Node, 0, len(claims))
	for i, c := range claims {
		n := &graph.Node{
			ID:         claimID(),
			Label:      c.Label,
			Status:     graph.StatusGenerated,
			Similarity: c.Similarity,
			Hop:        root.Hop + 1,
		}
		if n.Similarity <= 0 {
			n.Similarity = derivedSimilarity(params.Worldview, i)
		}
		nodes = append(nodes, n)
		if err := send("claim_generated", nodePayload(n)); err != nil {
			return err
		}
	}

	if err := p.verifyAll(ctx, nodes, claims, send); err != nil {
		return err
	}

	for i, n := range nodes {
		m := claims[i].Market
		if m == nil {
			continue
		}
		if err := send("market_searching", map[string]any{"nodeId": n.ID}); err != nil {
			return err
		}
		n.Market = m
		if err := send("sources_found", map[string]any{"nodeId": n.ID, "market": m}); err != nil {
			return err
		}
	}

	final := p.assemble(root, nodes, params.Threshold)
	p.log.Debug("pipeline complete",
		"worldview", params.Worldview,
		"nodes", len(final.Nodes),
		"edges", len(final.Edges))
	return send("graph_complete", final)
}

// verifyAll runs claim verification with bounded parallelism, emitting
// the verifying/query/source/verified sequence per claim.
func (p *Pipeline) verifyAll(ctx context.Context, nodes []*graph.Node, claims []scenario.Claim, send Emitter) error {
	sem := semaphore.NewWeighted(p.parallel)
	g, gctx := errgroup.WithContext(ctx)

	for i := range nodes {
		n, c := nodes[i], claims[i]
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			n.Status = graph.StatusVerifying
			if err := send("claim_verifying", map[string]any{"nodeId": n.ID}); err != nil {
				return err
			}
			for _, q := range c.Queries {
				if err := send("verification_query", map[string]any{"nodeId": n.ID, "query": q}); err != nil {
					return err
				}
			}
			for _, src := range c.Sources {
				if err := send("verification_source_found", map[string]any{"nodeId": n.ID, "source": src}); err != nil {
					return err
				}
			}

			if c.Confidence <= 0 {
				n.Status = graph.StatusFailed
				return send("claim_verified", map[string]any{"nodeId": n.ID})
			}

			n.Status = graph.StatusVerified
			n.Verification = &graph.Verification{
				Confidence: c.Confidence,
				Rationale:  c.Rationale,
				Sources:    c.Sources,
			}
			return send("claim_verified", map[string]any{
				"nodeId":       n.ID,
				"verification": n.Verification,
			})
		})
	}
	return g.Wait()
}

func (p *Pipeline) assemble(root *graph.Node, nodes []*graph.Node, threshold float64) graph.Graph {
	out := graph.Graph{CoreID: root.ID}
	out.Nodes = append(out.Nodes, *root)
	for _, n := range nodes {
		out.Nodes = append(out.Nodes, *n)
	}
	for _, n := range nodes {
		out.Edges = append(out.Edges, graph.Edge{
			Source: root.ID,
			Target: n.ID,
			Weight: n.Similarity,
			Kind:   graph.EdgeDerivesFrom,
		})
	}
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			w := pairSimilarity(nodes[i].Label, nodes[j].Label)
			if w >= threshold {
				out.Edges = append(out.Edges, graph.Edge{
					Source: nodes[i].ID,
					Target: nodes[j].ID,
					Weight: w,
					Kind:   graph.EdgeSimilarTo,
				})
			}
		}
	}
	return out
}

func (p *Pipeline) rootNode(params Params) *graph.Node {
	if params.ParentID != "" {
		return &graph.Node{
			ID:         params.ParentID,
			Label:      params.Worldview,
			Status:     graph.StatusVerified,
			Similarity: 1.0,
			Hop:        params.ParentHop,
		}
	}
	// The root claim is the worldview itself and is assumed true.
	return &graph.Node{
		ID:         claimID(),
		Label:      params.Worldview,
		Status:     graph.StatusVerified,
		Similarity: 1.0,
		Hop:        0,
	}
}

// claimsFor returns the canned scenario claims for the worldview, or
// synthesizes deterministic ones.
func (p *Pipeline) claimsFor(worldview string) []scenario.Claim {
	if canned := p.scn.Find(worldview); len(canned) > 0 {
		return canned
	}

	claims := make([]scenario.Claim, 0, p.perBuild)
	for i := 0; i < p.perBuild; i++ {
		label := fmt.Sprintf("%s (derived consequence %d)", strings.TrimSpace(worldview), i+1)
		conf := derivedConfidence(worldview, i)
		c := scenario.Claim{
			Label:      label,
			Confidence: conf,
			Rationale:  fmt.Sprintf("Synthetic assessment with confidence %.2f.", conf),
			Queries:    []string{fmt.Sprintf("evidence for: %s", label)},
			Sources: []graph.Source{{
				Title:   fmt.Sprintf("Reference %d for %q", i+1, shorten(worldview)),
				URL:     fmt.Sprintf("https://example.com/evidence/%d", i+1),
				Snippet: "Synthetic evidence snippet.",
			}},
		}
		// Every seventh claim fails verification so the failed path stays
		// exercised in dev.
		if hashOf(worldview, i)%7 == 0 {
			c.Confidence = 0
			c.Rationale = ""
			c.Sources = nil
		}
		if i%3 == 0 {
			c.Market = &graph.Market{
				ID:        fmt.Sprintf("MKT-%d", hashOf(worldview, i)%100000),
				Title:     fmt.Sprintf("Market on %q", shorten(worldview)),
				URL:       fmt.Sprintf("https://example.com/markets/%d", i+1),
				Relevance: 0.8,
			}
		}
		claims = append(claims, c)
	}
	return claims
}

func (p *Pipeline) pause(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.delay):
		return nil
	}
}

func nodePayload(n *graph.Node) map[string]any {
	return map[string]any{"node": n}
}

func claimID() string {
	return "claim-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func hashOf(parts ...any) uint32 {
	h := fnv.New32a()
	_, _ = fmt.Fprint(h, parts...)
	return h.Sum32()
}

func derivedSimilarity(worldview string, i int) float64 {
	return 0.6 + float64(hashOf("sim", worldview, i)%3500)/10000.0
}

func derivedConfidence(worldview string, i int) float64 {
	return 0.35 + float64(hashOf("conf", worldview, i)%6000)/10000.0
}

func pairSimilarity(a, b string) float64 {
	return 0.55 + float64(hashOf("pair", a, b)%4000)/10000.0
}

func shorten(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 40 {
		return s
	}
	return s[:40] + "…"
}
