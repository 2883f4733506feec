package graph

// Status is the lifecycle state of a claim node. It only ever moves
// forward: generated -> verifying -> verified | failed.
type Status string

const (
	StatusGenerated Status = "generated"
	StatusVerifying Status = "verifying"
	StatusVerified  Status = "verified"
	StatusFailed    Status = "failed"
)

func (s Status) rank() int {
	switch s {
	case StatusGenerated:
		return 0
	case StatusVerifying:
		return 1
	case StatusVerified, StatusFailed:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the status will not change again.
func (s Status) Terminal() bool {
	return s == StatusVerified || s == StatusFailed
}

// Source is a web source discovered while verifying a claim.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Verification is the terminal verification result for a claim. It is
// set at most once per node.
type Verification struct {
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale,omitempty"`
	Sources    []Source `json:"exa_results,omitempty"`
}

// Market is the single market record attachable to a claim.
type Market struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Relevance float64 `json:"relevance"`
}

// Node is a claim in the graph. Queries and Sources accumulate
// append-only while the node is staged; Verifying and MarketSearching
// are in-flight flags and never serialized.
type Node struct {
	ID         string  `json:"id"`
	Label      string  `json:"label"`
	Status     Status  `json:"status"`
	Similarity float64 `json:"similarity"`
	Hop        int     `json:"hop"`

	Queries      []string      `json:"queries,omitempty"`
	Sources      []Source      `json:"sources,omitempty"`
	Verification *Verification `json:"verification,omitempty"`
	Market       *Market       `json:"market,omitempty"`

	Verifying       bool `json:"-"`
	MarketSearching bool `json:"-"`
}

// AdvanceStatus moves the node forward to next. It reports whether the
// transition was applied; regressions and unknown statuses are refused.
func (n *Node) AdvanceStatus(next Status) bool {
	if next.rank() < 0 || next.rank() < n.Status.rank() {
		return false
	}
	if n.Status.Terminal() && next != n.Status {
		return false
	}
	n.Status = next
	return true
}

// Clone returns a deep copy so snapshots never alias live state.
func (n Node) Clone() Node {
	out := n
	if n.Queries != nil {
		out.Queries = append([]string(nil), n.Queries...)
	}
	if n.Sources != nil {
		out.Sources = append([]Source(nil), n.Sources...)
	}
	if n.Verification != nil {
		v := *n.Verification
		if v.Sources != nil {
			v.Sources = append([]Source(nil), v.Sources...)
		}
		out.Verification = &v
	}
	if n.Market != nil {
		m := *n.Market
		out.Market = &m
	}
	return out
}
