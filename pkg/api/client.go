// Package api implements the REST client for the Arkadia oracle backend.
//
// All requests and responses are JSON. Non-2xx responses are surfaced as
// *TransportError with the response body captured as plain text for
// diagnostics; failure bodies are never parsed as JSON.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the backend over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the given base URL. No client-side timeout is
// imposed; oracle replies can take as long as the backend needs.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

// TransportError is a network failure or a non-2xx response on any
// backend call.
type TransportError struct {
	Op         string
	StatusCode int // 0 when the request itself failed
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Status fetches the backend readiness report.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.do(ctx, "status", http.MethodGet, "/status", nil, &out)
	return out, err
}

// ListThreads fetches all threads owned by userID, most recent first.
func (c *Client) ListThreads(ctx context.Context, userID string) ([]Thread, error) {
	var out []Thread
	path := "/threads?user_id=" + url.QueryEscape(userID)
	if err := c.do(ctx, "list threads", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateThread requests a new empty thread for userID.
func (c *Client) CreateThread(ctx context.Context, userID string) (Thread, error) {
	var out Thread
	path := "/threads?user_id=" + url.QueryEscape(userID)
	err := c.do(ctx, "create thread", http.MethodPost, path, nil, &out)
	return out, err
}

// ListMessages fetches the full history of a thread, oldest first.
func (c *Client) ListMessages(ctx context.Context, threadID ThreadID) ([]Message, error) {
	var out []Message
	path := "/threads/" + url.PathEscape(string(threadID)) + "/messages"
	if err := c.do(ctx, "list messages", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Send submits a user turn to the oracle and returns the reply.
func (c *Client) Send(ctx context.Context, req OracleRequest) (OracleResponse, error) {
	var out OracleResponse
	err := c.do(ctx, "send", http.MethodPost, "/oracle", &req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Failure bodies are diagnostics only, never JSON.
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
