package stream

import (
	"encoding/json"
	"strings"

	"github.com/worldviewlab/claimgraph/internal/graph"
)

// EventType names one entry of the backend's event vocabulary.
type EventType string

const (
	EventClaimGenerated          EventType = "claim_generated"
	EventClaimVerifying          EventType = "claim_verifying"
	EventVerificationQuery       EventType = "verification_query"
	EventVerificationSourceFound EventType = "verification_source_found"
	EventClaimVerified           EventType = "claim_verified"
	EventMarketSearching         EventType = "market_searching"
	EventSourcesFound            EventType = "sources_found"
	EventGraphComplete           EventType = "graph_complete"
	EventError                   EventType = "error"

	// EventMessage is the default type for records without an event line.
	EventMessage EventType = "message"

	// EventMalformed is the counter bucket for records that could not be
	// decoded. It never reaches the reducer.
	EventMalformed EventType = "malformed"
)

// Known reports whether t belongs to the backend vocabulary. Unknown
// types are still forwarded so counters see them; the reducer treats
// them as no-ops.
func (t EventType) Known() bool {
	switch t {
	case EventClaimGenerated, EventClaimVerifying, EventVerificationQuery,
		EventVerificationSourceFound, EventClaimVerified, EventMarketSearching,
		EventSourcesFound, EventGraphComplete, EventError:
		return true
	}
	return false
}

// Terminal reports whether t ends the operation.
func (t EventType) Terminal() bool {
	return t == EventGraphComplete || t == EventError
}

// Event is one decoded, structurally validated record. Only the fields
// relevant to Type are populated.
type Event struct {
	Type EventType

	Node         *graph.Node
	NodeID       string
	Query        string
	Source       *graph.Source
	Verification *graph.Verification
	Market       *graph.Market
	Graph        *graph.Graph
	Err          string
}

// recordPayload covers every payload shape in the vocabulary; one
// unmarshal serves all event types.
type recordPayload struct {
	Node         *graph.Node         `json:"node"`
	NodeID       string              `json:"nodeId"`
	Query        string              `json:"query"`
	Source       *graph.Source       `json:"source"`
	Verification *graph.Verification `json:"verification"`
	Market       *graph.Market       `json:"market"`
	Nodes        []graph.Node        `json:"nodes"`
	Edges        []graph.Edge        `json:"edges"`
	CoreID       string              `json:"coreId"`
	Error        string              `json:"error"`
}

// ParseRecord decodes one raw record into an Event. ok is false when the
// record carries no data line or its data is not valid JSON; the
// returned event then has Type EventMalformed so callers can count it.
// Parse failures are expected noise from truncated delivery and never
// produce an error.
func ParseRecord(record string) (Event, bool) {
	eventName := ""
	var dataLines []string

	for _, line := range strings.Split(record, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}

	if len(dataLines) == 0 {
		return Event{Type: EventMalformed}, false
	}

	var p recordPayload
	if err := json.Unmarshal([]byte(strings.Join(dataLines, "\n")), &p); err != nil {
		return Event{Type: EventMalformed}, false
	}

	typ := EventType(eventName)
	if eventName == "" {
		typ = EventMessage
	}

	ev := Event{
		Type:         typ,
		Node:         p.Node,
		NodeID:       p.NodeID,
		Query:        p.Query,
		Source:       p.Source,
		Verification: p.Verification,
		Market:       p.Market,
		Err:          p.Error,
	}
	if typ == EventGraphComplete {
		ev.Graph = &graph.Graph{Nodes: p.Nodes, Edges: p.Edges, CoreID: p.CoreID}
	}
	return ev, true
}
