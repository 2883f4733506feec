package graph

// EdgeKind classifies an edge. Speculative edges exist only inside a
// streaming session and never reach a committed graph.
type EdgeKind string

const (
	EdgeDerivesFrom EdgeKind = "derives_from"
	EdgeSimilarTo   EdgeKind = "similar_to"
	EdgeSpeculative EdgeKind = "speculative"
)

// Edge connects two nodes. The compound (source, target) key is unique
// within a committed graph.
type Edge struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Weight float64  `json:"weight"`
	Kind   EdgeKind `json:"type,omitempty"`
}

// Key returns the dedup key for the edge.
func (e Edge) Key() string {
	return e.Source + "->" + e.Target
}

// Graph is the committed node/edge set the application renders. The
// zero value is a valid empty graph.
type Graph struct {
	Nodes  []Node `json:"nodes"`
	Edges  []Edge `json:"edges"`
	CoreID string `json:"coreId"`
}

// NodeByID returns the node with the given id, if present.
func (g Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Clone deep-copies the graph.
func (g Graph) Clone() Graph {
	out := Graph{CoreID: g.CoreID}
	if g.Nodes != nil {
		out.Nodes = make([]Node, 0, len(g.Nodes))
		for _, n := range g.Nodes {
			out.Nodes = append(out.Nodes, n.Clone())
		}
	}
	if g.Edges != nil {
		out.Edges = append([]Edge(nil), g.Edges...)
	}
	return out
}

// Merge reconciles a freshly authoritative graph into a committed one.
// Every node id and edge key present in either side appears exactly once
// in the result; committed entries keep their attributes and order, and
// only genuinely new ids/keys are appended. Merging the same
// authoritative graph twice is therefore a no-op the second time. An
// empty committed graph degenerates to the authoritative graph.
func Merge(committed, authoritative Graph) Graph {
	out := committed.Clone()

	seenNodes := make(map[string]struct{}, len(out.Nodes))
	for _, n := range out.Nodes {
		seenNodes[n.ID] = struct{}{}
	}
	seenEdges := make(map[string]struct{}, len(out.Edges))
	for _, e := range out.Edges {
		seenEdges[e.Key()] = struct{}{}
	}

	for _, n := range authoritative.Nodes {
		if _, ok := seenNodes[n.ID]; ok {
			continue
		}
		seenNodes[n.ID] = struct{}{}
		out.Nodes = append(out.Nodes, n.Clone())
	}
	for _, e := range authoritative.Edges {
		if _, ok := seenEdges[e.Key()]; ok {
			continue
		}
		seenEdges[e.Key()] = struct{}{}
		out.Edges = append(out.Edges, e)
	}

	// Expanding never re-roots an existing graph.
	if out.CoreID == "" {
		out.CoreID = authoritative.CoreID
	}
	return out
}
