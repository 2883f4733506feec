package session

import (
	"context"
	"errors"
	"io"

	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/stream"
)

// ErrStreamEnded is returned when the source closes before a terminal
// event. Callers racing an external deadline against the stream can
// cancel the source and expect this outcome.
var ErrStreamEnded = errors.New("stream ended without completion")

// OperationError carries the failure reason of an explicit error event,
// verbatim.
type OperationError struct {
	Reason string
}

func (e *OperationError) Error() string { return e.Reason }

const readChunkSize = 4096

// Controller owns the read loop of one operation: it pulls chunks from
// the source, reassembles records, applies them to the session, and
// stops on the first terminal event. The source is closed on every exit
// path.
type Controller struct {
	session *Session
	counter stream.Counter

	// OnSnapshot, when set, receives a fresh snapshot after every applied
	// event while the session is still streaming.
	OnSnapshot func(Snapshot)
}

func NewController(s *Session) *Controller {
	return &Controller{
		session: s,
		counter: stream.NewCounter(),
	}
}

// Counter returns the per-event-type tally observed so far.
func (c *Controller) Counter() stream.Counter {
	return c.counter.Clone()
}

// Run drives the session until a terminal event, stream end, or ctx
// cancellation. It returns the authoritative graph on graph_complete, an
// *OperationError for an explicit error event, and ErrStreamEnded when
// the source drains without either.
func (c *Controller) Run(ctx context.Context, body io.ReadCloser) (graph.Graph, error) {
	defer body.Close()

	dec := stream.NewFrameDecoder()
	buf := make([]byte, readChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return graph.Graph{}, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			for _, rec := range dec.Feed(string(buf[:n])) {
				ev, ok := stream.ParseRecord(rec)
				c.counter.Add(ev.Type)
				if !ok {
					continue
				}
				Apply(c.session, ev)

				if c.session.Done() {
					if reason, failed := c.session.Failure(); failed {
						return graph.Graph{}, &OperationError{Reason: reason}
					}
					return c.session.Final(), nil
				}
				if c.OnSnapshot != nil {
					c.OnSnapshot(c.session.Snapshot())
				}
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return graph.Graph{}, ErrStreamEnded
			}
			return graph.Graph{}, readErr
		}
	}
}
