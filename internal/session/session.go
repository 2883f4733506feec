// Package session aggregates one streaming graph operation: it stages
// nodes as events arrive, tracks speculative edges shown for user
// feedback, and holds the authoritative graph once the terminal event
// lands. A Session belongs to exactly one operation and is discarded
// afterwards.
package session

import "github.com/worldviewlab/claimgraph/internal/graph"

type Session struct {
	staged map[string]*graph.Node
	order  []string

	ephemeral []graph.Edge

	rootID   string
	rootHop  int
	haveRoot bool

	final   *graph.Graph
	failure string
	done    bool
	failed  bool
}

// NewSession starts a build session. The root is discovered from the
// first hop-0 node on the stream.
func NewSession() *Session {
	return &Session{staged: make(map[string]*graph.Node)}
}

// NewExpandSession starts an expand session. Speculative edges hang off
// the expanded parent node, so the parent seeds the root slot.
func NewExpandSession(parentID string, parentHop int) *Session {
	s := NewSession()
	if parentID != "" {
		s.rootID = parentID
		s.rootHop = parentHop
		s.haveRoot = true
	}
	return s
}

// Done reports whether a terminal event has been processed.
func (s *Session) Done() bool { return s.done }

// Failure returns the carried failure reason once the session ended
// with an error event.
func (s *Session) Failure() (string, bool) {
	return s.failure, s.failed
}

// Final returns the authoritative graph after graph_complete. The zero
// graph is returned while the session is still streaming or failed.
func (s *Session) Final() graph.Graph {
	if s.final == nil {
		return graph.Graph{}
	}
	return *s.final
}

// Snapshot is a read-only view of in-flight state for progressive
// rendering. Fields only ever grow between snapshots of one session.
type Snapshot struct {
	Nodes  []graph.Node
	Edges  []graph.Edge
	RootID string
}

// Snapshot deep-copies the staged nodes (in arrival order) and the
// ephemeral edges. Mutating the result never touches the session.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{RootID: s.rootID}
	for _, id := range s.order {
		if n, ok := s.staged[id]; ok {
			snap.Nodes = append(snap.Nodes, n.Clone())
		}
	}
	if s.ephemeral != nil {
		snap.Edges = append([]graph.Edge(nil), s.ephemeral...)
	}
	return snap
}

func (s *Session) stage(n graph.Node) {
	if _, exists := s.staged[n.ID]; !exists {
		s.order = append(s.order, n.ID)
	}
	c := n.Clone()
	s.staged[n.ID] = &c
}

func (s *Session) node(id string) (*graph.Node, bool) {
	n, ok := s.staged[id]
	return n, ok
}
