// Package client opens build and expand operations against a worldview
// graph backend and folds their event streams into a committed graph.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/worldviewlab/claimgraph/internal/graph"
	"github.com/worldviewlab/claimgraph/internal/platform/envutil"
	"github.com/worldviewlab/claimgraph/internal/session"
	"github.com/worldviewlab/claimgraph/internal/stream"
)

const (
	buildPath  = "/v1/graph/stream"
	expandPath = "/v1/graph/expand"
	healthPath = "/healthz"
)

type Options struct {
	BaseURL string
	APIKey  string

	// Timeout bounds non-streaming calls. StreamTimeout, when positive,
	// bounds a whole streaming operation; callers normally leave it zero
	// and rely on ctx cancellation.
	Timeout       time.Duration
	StreamTimeout time.Duration

	HTTPClient *http.Client
}

type Client struct {
	baseURL string
	apiKey  string

	timeout       time.Duration
	streamTimeout time.Duration

	httpClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(opts.APIKey),
		timeout:       timeout,
		streamTimeout: opts.StreamTimeout,
		httpClient:    hc,
	}, nil
}

func NewFromEnv() (*Client, error) {
	return New(Options{
		BaseURL:       envutil.String("WV_BACKEND_BASE_URL", "http://localhost:8080"),
		APIKey:        strings.TrimSpace(os.Getenv("WV_BACKEND_API_KEY")),
		Timeout:       envutil.Seconds("WV_BACKEND_TIMEOUT_SECONDS", 30*time.Second),
		StreamTimeout: envutil.Seconds("WV_BACKEND_STREAM_TIMEOUT_SECONDS", 0),
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

// Outcome is the result of one completed operation.
type Outcome struct {
	// Graph is the committed graph after reconciliation.
	Graph graph.Graph

	// Counter tallies every record type seen on the stream.
	Counter stream.Counter
}

// Build opens a build stream and reconciles its authoritative graph into
// committed (normally the empty graph). The committed graph is never
// altered when the operation fails. onSnapshot, when non-nil, receives
// progressive staged-state snapshots.
func (c *Client) Build(ctx context.Context, req BuildRequest, committed graph.Graph, onSnapshot func(session.Snapshot)) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{Graph: committed}, err
	}
	return c.run(ctx, buildPath, req, committed, session.NewSession(), onSnapshot)
}

// Expand opens an expand stream for one node of the committed graph and
// merges the result in. Expanding overlapping neighborhoods repeatedly
// is safe; reconciliation never duplicates node ids or edge keys.
func (c *Client) Expand(ctx context.Context, req ExpandRequest, committed graph.Graph, onSnapshot func(session.Snapshot)) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{Graph: committed}, err
	}
	sess := session.NewExpandSession(req.ParentID, req.ParentHop)
	return c.run(ctx, expandPath, req, committed, sess, onSnapshot)
}

func (c *Client) run(ctx context.Context, path string, body any, committed graph.Graph, sess *session.Session, onSnapshot func(session.Snapshot)) (Outcome, error) {
	ctx2 := ctx
	var cancel context.CancelFunc
	if c.streamTimeout > 0 {
		ctx2, cancel = context.WithTimeout(ctx, c.streamTimeout)
		defer cancel()
	}

	respBody, err := c.openStream(ctx2, path, body)
	if err != nil {
		return Outcome{Graph: committed}, err
	}

	ctrl := session.NewController(sess)
	ctrl.OnSnapshot = onSnapshot

	authoritative, err := ctrl.Run(ctx2, respBody)
	out := Outcome{Graph: committed, Counter: ctrl.Counter()}
	if err != nil {
		return out, err
	}
	out.Graph = graph.Merge(committed, authoritative)
	return out, nil
}

// openStream issues the request and hands back the response body once
// the backend has committed to streaming. A non-2xx status is surfaced
// immediately with the response text.
func (c *Client) openStream(ctx context.Context, path string, body any) (io.ReadCloser, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, "application/json", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = resp.Body.Close()
		return nil, parseHTTPError(resp.StatusCode, raw)
	}
	return resp.Body, nil
}

// Health probes the backend's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx2, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx2, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req, "", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseHTTPError(resp.StatusCode, raw)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, contentType string, accept string) {
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
