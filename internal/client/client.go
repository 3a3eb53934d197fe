// Package client talks to a remote execution service over HTTP.
//
// One Execute call is one POST of {"script": ...}. The response is
// classified into exactly one of three error kinds or a decoded
// api.ExecuteResponse:
//
//   - the request never got a response      → apperror.ErrTransport
//   - non-2xx status                         → apperror.ErrApplication
//   - 2xx with a body that is not an object  → apperror.ErrMalformedResponse
//
// The client never retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sakif/script-playground/internal/api"
	"github.com/sakif/script-playground/internal/apperror"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 10 << 20

// Client implements orchestrator.Executor.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client posting to endpoint, e.g.
// "http://localhost:8080/execute". No request timeout is applied here; the
// caller bounds calls through the context.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Endpoint() string { return c.endpoint }

// Execute posts req and decodes the reply.
func (c *Client) Execute(ctx context.Context, req api.ExecuteRequest) (*api.ExecuteResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.Transport(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, apperror.Transport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		// The connection broke after the status line arrived.
		return nil, apperror.Transport(err)
	}

	c.logger.Debug("execution service responded",
		slog.String("endpoint", c.endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(data)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperror.Application(resp.StatusCode, errorMessage(data))
	}

	out, err := decodeSuccess(data)
	if err != nil {
		return nil, apperror.MalformedResponse(resp.StatusCode, err)
	}
	return out, nil
}

// errorMessage extracts {"error": "..."} from a failure body, tolerating
// anything else.
func errorMessage(data []byte) string {
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || api.IsNull(body.Error) {
		return ""
	}
	var msg string
	if err := json.Unmarshal(body.Error, &msg); err == nil {
		return strings.TrimSpace(msg)
	}
	// A structured error value; show it as JSON rather than losing it.
	return string(body.Error)
}

// decodeSuccess requires a JSON object. Missing fields default to "" and nil.
func decodeSuccess(data []byte) (*api.ExecuteResponse, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decoding response: body is null")
	}

	out := &api.ExecuteResponse{}
	if raw, ok := fields["stdout"]; ok && !api.IsNull(raw) {
		if err := json.Unmarshal(raw, &out.Stdout); err != nil {
			return nil, fmt.Errorf("decoding stdout: %w", err)
		}
	}
	if raw, ok := fields["result"]; ok && !api.IsNull(raw) {
		out.Result = raw
	}
	return out, nil
}
