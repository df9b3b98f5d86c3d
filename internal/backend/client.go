// Package backend is the typed HTTP client for the civic backend service.
// All business rules (moderation transitions, signature thresholds, vote
// tallying) live there; this client only shapes requests and responses and
// the backend independently re-checks permissions on every call. Locally
// passing a guard never substitutes for that check.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/agora-civic/agora/internal/platform/httpx"
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client for the given base URL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// apiError is the backend's error envelope.
type apiError struct {
	Message string `json:"message"`
}

// do performs one call. token is the opaque backend token from the session
// claims; it is forwarded verbatim.
func (c *Client) do(ctx context.Context, token, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var payload apiError
		_ = json.NewDecoder(res.Body).Decode(&payload)
		return statusError(res.StatusCode, payload.Message)
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

// statusError maps backend statuses onto the shared sentinel errors so
// handlers can respond without inspecting status codes themselves.
func statusError(status int, message string) error {
	var base error
	switch status {
	case http.StatusNotFound:
		base = httpx.ErrNotFound
	case http.StatusUnauthorized:
		base = httpx.ErrUnauthorized
	case http.StatusForbidden:
		base = httpx.ErrForbidden
	case http.StatusConflict:
		base = httpx.ErrDuplicate
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = httpx.ErrValidation
	default:
		return fmt.Errorf("backend: unexpected status %d: %s", status, message)
	}
	if message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, message)
}

// Page wraps a paginated listing.
type Page[T any] struct {
	Items   []T `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

func listQuery(page int) url.Values {
	q := url.Values{}
	if page > 1 {
		q.Set("page", fmt.Sprint(page))
	}
	return q
}
