// Package api is the client for the remote budget REST API. It is a thin
// wrapper: one base URL, JSON in and out, the session token attached per
// request. No retries and no request queuing; each call either resolves
// with parsed JSON or fails with the server-supplied error payload.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const DefaultBaseURL = "http://localhost:8000/api"

// Client issues requests against the configured base URL. The token is an
// explicit argument on every authenticated call rather than mutable client
// state, so a Client is safe to share across sessions.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// New creates a Client for the given base URL. An empty baseURL falls back
// to DefaultBaseURL; a trailing slash is trimmed so resource paths join
// cleanly.
func New(baseURL string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}
}

// Error is a non-2xx response from the API. Message holds the server's own
// wording when the payload carried one; callers fall back to a per-action
// generic string when it is empty.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
}

// ErrorMessage extracts the server-provided message from err, or returns
// fallback when the error carries none.
func ErrorMessage(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsUnauthorized reports whether err is the server rejecting the token.
// This is the only signal that a restored session has expired.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden)
}

// roundTrip performs one request and returns the raw response body.
// path must start with "/" and keep its trailing slash; the API treats
// the trailing slash as significant.
func (c *Client) roundTrip(ctx context.Context, token, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: serverMessage(raw)}
		slog.DebugContext(ctx, "API error response",
			"method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}
	return raw, nil
}

// do performs a request and unmarshals the response into out when non-nil.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	raw, err := c.roundTrip(ctx, token, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// serverMessage pulls the error text out of an API error payload.
// Auth endpoints use {"error": ...}; other endpoints use {"detail": ...}.
func serverMessage(raw []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Detail
}

// decodeList accepts either a bare JSON array or a {"results": [...]}
// envelope; the API returns both shapes depending on pagination.
func decodeList[T any](raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil
	}
	var envelope struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("decode list envelope: %w", err)
	}
	return envelope.Results, nil
}
