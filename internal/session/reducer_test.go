package session

import (
	"testing"

	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/stream"
)

func generated(id string, hop int) stream.Event {
	return stream.Event{
		Type: stream.EventClaimGenerated,
		Node: &graph.Node{ID: id, Label: "claim " + id, Hop: hop},
	}
}

func TestApplyClaimGeneratedStagesAndDefaults(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))

	snap := s.Snapshot()
	if len(snap.Nodes) != 1 {
		t.Fatalf("nodes=%d", len(snap.Nodes))
	}
	if snap.Nodes[0].Status != graph.StatusGenerated {
		t.Fatalf("status=%q", snap.Nodes[0].Status)
	}
	if snap.RootID != "root" {
		t.Fatalf("rootID=%q", snap.RootID)
	}
}

func TestApplyRootDiscoveryAndSpeculativeEdges(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, generated("a", 1))
	Apply(s, generated("b", 1))
	Apply(s, generated("far", 2))

	snap := s.Snapshot()
	if len(snap.Edges) != 2 {
		t.Fatalf("edges=%d, want speculative edges for direct children only", len(snap.Edges))
	}
	for _, e := range snap.Edges {
		if e.Source != "root" || e.Kind != graph.EdgeSpeculative {
			t.Fatalf("edge=%+v", e)
		}
	}
}

func TestApplyExpandSessionSeedsParent(t *testing.T) {
	s := NewExpandSession("parent", 2)
	Apply(s, generated("child", 3))

	snap := s.Snapshot()
	if snap.RootID != "parent" {
		t.Fatalf("rootID=%q", snap.RootID)
	}
	if len(snap.Edges) != 1 || snap.Edges[0].Source != "parent" || snap.Edges[0].Target != "child" {
		t.Fatalf("edges=%+v", snap.Edges)
	}
}

func TestApplyNoRootNoSpeculativeEdge(t *testing.T) {
	s := NewSession()
	// A hop-1 node arriving before any root has nothing to hang off.
	Apply(s, generated("orphan", 1))
	if snap := s.Snapshot(); len(snap.Edges) != 0 {
		t.Fatalf("edges=%+v", snap.Edges)
	}
}

func TestApplyStatusProgression(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, stream.Event{Type: stream.EventClaimVerifying, NodeID: "root"})

	snap := s.Snapshot()
	if snap.Nodes[0].Status != graph.StatusVerifying || !snap.Nodes[0].Verifying {
		t.Fatalf("node=%+v", snap.Nodes[0])
	}

	Apply(s, stream.Event{
		Type:   stream.EventClaimVerified,
		NodeID: "root",
		Verification: &graph.Verification{
			Confidence: 0.91,
			Rationale:  "supported",
			Sources:    []graph.Source{{Title: "terminal", URL: "https://t"}},
		},
	})

	snap = s.Snapshot()
	n := snap.Nodes[0]
	if n.Status != graph.StatusVerified || n.Verifying {
		t.Fatalf("node=%+v", n)
	}
	if n.Verification == nil || n.Verification.Confidence != 0.91 {
		t.Fatalf("verification=%+v", n.Verification)
	}
	if len(n.Sources) != 1 || n.Sources[0].Title != "terminal" {
		t.Fatalf("sources=%+v", n.Sources)
	}
}

func TestApplyVerifiedWithoutVerificationFails(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, stream.Event{Type: stream.EventClaimVerifying, NodeID: "root"})
	Apply(s, stream.Event{Type: stream.EventClaimVerified, NodeID: "root"})

	snap := s.Snapshot()
	if snap.Nodes[0].Status != graph.StatusFailed {
		t.Fatalf("status=%q", snap.Nodes[0].Status)
	}
}

func TestApplyTerminalSourcesReplaceAccumulated(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, stream.Event{Type: stream.EventVerificationQuery, NodeID: "root", Query: "q1"})
	Apply(s, stream.Event{Type: stream.EventVerificationSourceFound, NodeID: "root", Source: &graph.Source{Title: "progressive"}})
	Apply(s, stream.Event{
		Type:         stream.EventClaimVerified,
		NodeID:       "root",
		Verification: &graph.Verification{Confidence: 0.8, Sources: []graph.Source{{Title: "a"}, {Title: "b"}}},
	})

	snap := s.Snapshot()
	n := snap.Nodes[0]
	if len(n.Queries) != 1 || n.Queries[0] != "q1" {
		t.Fatalf("queries=%+v", n.Queries)
	}
	if len(n.Sources) != 2 || n.Sources[0].Title != "a" {
		t.Fatalf("sources=%+v", n.Sources)
	}
}

func TestApplyUnknownNodeIDIsNoOp(t *testing.T) {
	s := NewSession()
	Apply(s, stream.Event{Type: stream.EventClaimVerifying, NodeID: "ghost"})
	Apply(s, stream.Event{Type: stream.EventVerificationQuery, NodeID: "ghost", Query: "q"})
	Apply(s, stream.Event{Type: stream.EventClaimVerified, NodeID: "ghost", Verification: &graph.Verification{Confidence: 1}})
	Apply(s, stream.Event{Type: stream.EventSourcesFound, NodeID: "ghost", Market: &graph.Market{ID: "m"}})

	if snap := s.Snapshot(); len(snap.Nodes) != 0 {
		t.Fatalf("nodes=%+v", snap.Nodes)
	}
	if s.Done() {
		t.Fatalf("session ended")
	}
}

func TestApplyMarketLifecycle(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, stream.Event{Type: stream.EventMarketSearching, NodeID: "root"})
	if snap := s.Snapshot(); !snap.Nodes[0].MarketSearching {
		t.Fatalf("node=%+v", snap.Nodes[0])
	}

	Apply(s, stream.Event{
		Type:   stream.EventSourcesFound,
		NodeID: "root",
		Market: &graph.Market{ID: "m1", Title: "Will it happen?", Relevance: 0.7},
	})
	snap := s.Snapshot()
	n := snap.Nodes[0]
	if n.MarketSearching || n.Market == nil || n.Market.ID != "m1" {
		t.Fatalf("node=%+v", n)
	}
}

func TestApplyGraphCompleteClearsStaging(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, generated("a", 1))

	final := &graph.Graph{
		CoreID: "root",
		Nodes:  []graph.Node{{ID: "root"}, {ID: "a"}},
		Edges:  []graph.Edge{{Source: "root", Target: "a", Weight: 0.82, Kind: graph.EdgeDerivesFrom}},
	}
	Apply(s, stream.Event{Type: stream.EventGraphComplete, Graph: final})

	if !s.Done() {
		t.Fatalf("not done")
	}
	if _, failed := s.Failure(); failed {
		t.Fatalf("unexpected failure")
	}
	got := s.Final()
	if len(got.Nodes) != 2 || len(got.Edges) != 1 || got.CoreID != "root" {
		t.Fatalf("final=%+v", got)
	}
	if snap := s.Snapshot(); len(snap.Nodes) != 0 || len(snap.Edges) != 0 {
		t.Fatalf("staging survived: %+v", snap)
	}
}

func TestApplyErrorEndsSessionVerbatim(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))
	Apply(s, stream.Event{Type: stream.EventError, Err: "rate limited"})

	if !s.Done() {
		t.Fatalf("not done")
	}
	reason, failed := s.Failure()
	if !failed || reason != "rate limited" {
		t.Fatalf("failure=%q/%v", reason, failed)
	}

	// Events after the terminal are ignored.
	Apply(s, generated("late", 1))
	if snap := s.Snapshot(); len(snap.Nodes) != 1 {
		t.Fatalf("post-terminal event applied: %+v", snap.Nodes)
	}
}

func TestApplyErrorWithoutReasonGetsDefault(t *testing.T) {
	s := NewSession()
	Apply(s, stream.Event{Type: stream.EventError})
	if reason, failed := s.Failure(); !failed || reason != "operation failed" {
		t.Fatalf("failure=%q/%v", reason, failed)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	s := NewSession()
	Apply(s, generated("root", 0))

	snap := s.Snapshot()
	snap.Nodes[0].Label = "mutated"
	snap.Nodes[0].Queries = append(snap.Nodes[0].Queries, "mutated")

	again := s.Snapshot()
	if again.Nodes[0].Label != "claim root" || len(again.Nodes[0].Queries) != 0 {
		t.Fatalf("snapshot aliased session state: %+v", again.Nodes[0])
	}
}
