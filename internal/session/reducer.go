package session

import (
	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/stream"
)

// speculativeWeight is the placeholder weight for edges drawn before the
// backend has computed a real one.
const speculativeWeight = 0.5

// Apply is the event reducer: it folds one decoded event into the
// session. Events referencing unknown node ids are tolerated as no-ops,
// as are unknown event types; delivery is assumed ordered but not
// trusted to be complete.
func Apply(s *Session, ev stream.Event) {
	if s.done {
		return
	}

	switch ev.Type {
	case stream.EventClaimGenerated:
		applyClaimGenerated(s, ev)

	case stream.EventClaimVerifying:
		if n, ok := s.node(ev.NodeID); ok {
			n.AdvanceStatus(graph.StatusVerifying)
			n.Verifying = true
		}

	case stream.EventVerificationQuery:
		if n, ok := s.node(ev.NodeID); ok && ev.Query != "" {
			n.Queries = append(n.Queries, ev.Query)
		}

	case stream.EventVerificationSourceFound:
		if n, ok := s.node(ev.NodeID); ok && ev.Source != nil {
			n.Sources = append(n.Sources, *ev.Source)
		}

	case stream.EventClaimVerified:
		applyClaimVerified(s, ev)

	case stream.EventMarketSearching:
		if n, ok := s.node(ev.NodeID); ok {
			n.MarketSearching = true
		}

	case stream.EventSourcesFound:
		if n, ok := s.node(ev.NodeID); ok {
			n.MarketSearching = false
			if ev.Market != nil {
				m := *ev.Market
				n.Market = &m
			}
		}

	case stream.EventGraphComplete:
		final := graph.Graph{}
		if ev.Graph != nil {
			final = ev.Graph.Clone()
		}
		s.final = &final
		s.staged = make(map[string]*graph.Node)
		s.order = nil
		s.ephemeral = nil
		s.done = true

	case stream.EventError:
		s.failure = ev.Err
		if s.failure == "" {
			s.failure = "operation failed"
		}
		s.failed = true
		s.done = true
	}
}

func applyClaimGenerated(s *Session, ev stream.Event) {
	if ev.Node == nil || ev.Node.ID == "" {
		return
	}
	n := *ev.Node
	if n.Status == "" {
		n.Status = graph.StatusGenerated
	}
	s.stage(n)

	if !s.haveRoot && n.Hop == 0 {
		s.rootID = n.ID
		s.rootHop = 0
		s.haveRoot = true
		return
	}

	// Speculative edge for direct children of the known root. Nodes that
	// arrive before any root is known simply go without one.
	if s.haveRoot && n.ID != s.rootID && n.Hop == s.rootHop+1 {
		s.ephemeral = append(s.ephemeral, graph.Edge{
			Source: s.rootID,
			Target: n.ID,
			Weight: speculativeWeight,
			Kind:   graph.EdgeSpeculative,
		})
	}
}

func applyClaimVerified(s *Session, ev stream.Event) {
	n, ok := s.node(ev.NodeID)
	if !ok {
		return
	}
	n.Verifying = false

	// Absence of a verification result means the claim failed.
	if ev.Verification == nil {
		n.AdvanceStatus(graph.StatusFailed)
		return
	}
	if !n.AdvanceStatus(graph.StatusVerified) {
		return
	}
	if n.Verification == nil {
		v := *ev.Verification
		if v.Sources != nil {
			v.Sources = append([]graph.Source(nil), v.Sources...)
		}
		n.Verification = &v
	}
	// Terminal payload wins over progressively accumulated sources.
	if len(ev.Verification.Sources) > 0 {
		n.Sources = append([]graph.Source(nil), ev.Verification.Sources...)
	}
}
