package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/worldviewlab/claimgraph/internal/client"
	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/config"
	"github.com/worldviewlab/claimgraph/internal/mockbackend/pipeline"
	"github.com/worldviewlab/claimgraph/internal/platform/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Env:  "test",
		HTTP: config.HTTPConfig{MaxRequestBytes: 1 << 20},
		Pipeline: config.PipelineConfig{
			MaxParallelVerify: 4,
			ClaimsPerBuild:    4,
		},
	}
	log := logger.Nop()
	p := pipeline.New(log, nil, cfg.Pipeline)

	srv := httptest.NewServer(NewRouter(cfg, log, p))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestGraphStreamRejectsShortWorldview(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/graph/stream", "application/json",
		strings.NewReader(`{"worldview":"ab"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	var env struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "invalid_request" || !strings.Contains(env.Error.Message, "worldview") {
		t.Fatalf("envelope=%+v", env)
	}
}

func TestGraphStreamRejectsBadJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/graph/stream", "application/json",
		strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

func TestGraphExpandRequiresParent(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/graph/expand", "application/json",
		strings.NewReader(`{"worldview":"a valid worldview"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}

// TestStreamRoundTrip drives the full loop: mock backend on one side,
// the streaming client on the other.
func TestStreamRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	c, err := client.New(client.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	req := client.BuildRequest{Worldview: "markets are efficient", K: 200, TopN: 15, Threshold: 0.99}
	out, err := c.Build(context.Background(), req, graph.Graph{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(out.Graph.Nodes) != 5 { // root plus four synthesized claims
		t.Fatalf("nodes=%d", len(out.Graph.Nodes))
	}
	if out.Graph.CoreID == "" {
		t.Fatalf("coreId empty")
	}
	root, ok := out.Graph.NodeByID(out.Graph.CoreID)
	if !ok || root.Hop != 0 || root.Status != graph.StatusVerified {
		t.Fatalf("root=%+v", root)
	}

	// Expanding a derived node keeps the committed graph consistent.
	var child graph.Node
	for _, n := range out.Graph.Nodes {
		if n.Hop == 1 {
			child = n
			break
		}
	}
	exReq := client.ExpandRequest{
		ParentID:  child.ID,
		Worldview: child.Label,
		ParentHop: child.Hop,
		K:         200,
		TopN:      15,
		Threshold: 0.99,
	}
	expanded, err := c.Expand(context.Background(), exReq, out.Graph, nil)
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(expanded.Graph.Nodes) != 9 {
		t.Fatalf("nodes after expand=%d", len(expanded.Graph.Nodes))
	}
	if expanded.Graph.CoreID != out.Graph.CoreID {
		t.Fatalf("expand re-rooted: %q", expanded.Graph.CoreID)
	}
	seen := map[string]bool{}
	for _, e := range expanded.Graph.Edges {
		if seen[e.Key()] {
			t.Fatalf("duplicate edge %s", e.Key())
		}
		seen[e.Key()] = true
	}
}
