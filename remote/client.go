// Package remote implements the HTTP client for the job service. Every call
// is an idempotent create addressed by path plus idempotency key, so the
// outbox can safely redeliver after timeouts.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fieldline/actionbox"
)

// Client talks to the job service REST API.
type Client struct {
	base   string
	token  string
	client *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient creates a client for the given API base URL, e.g.
// "https://api.example.com".
func NewClient(base string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateSubmission implements actionbox.Client.
func (c *Client) CreateSubmission(ctx context.Context, key string, p actionbox.SubmissionPayload) (actionbox.Receipt, error) {
	path := fmt.Sprintf("/api/v2/jobs/%s/submit-production", url.PathEscape(p.Job))
	return c.post(ctx, path, key, p)
}

// CreateComment implements actionbox.Client.
func (c *Client) CreateComment(ctx context.Context, key string, p actionbox.CommentPayload) (actionbox.Receipt, error) {
	path := fmt.Sprintf("/api/v2/jobs/%s/comments", url.PathEscape(p.Job))
	return c.post(ctx, path, key, p)
}

// StartJob implements actionbox.Client.
func (c *Client) StartJob(ctx context.Context, key string, p actionbox.StartJobPayload) (actionbox.Receipt, error) {
	path := fmt.Sprintf("/api/v2/jobs/%s/start", url.PathEscape(p.Job))
	return c.post(ctx, path, key, p)
}

// createResponse is the service's acknowledgement body.
type createResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// errorResponse is the service's structured error body.
type errorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func (c *Client) post(ctx context.Context, path, key string, body any) (actionbox.Receipt, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return actionbox.Receipt{}, fmt.Errorf("remote: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return actionbox.Receipt{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return actionbox.Receipt{}, err
	}
	defer func(body io.ReadCloser) { _ = body.Close() }(resp.Body)

	if resp.StatusCode >= 300 {
		return actionbox.Receipt{}, decodeError(resp)
	}

	var created createResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		// A 2xx with an unreadable body still means the action landed.
		return actionbox.Receipt{}, nil
	}
	return actionbox.Receipt{ServerID: created.ID, ServerTime: created.Timestamp}, nil
}

func decodeError(resp *http.Response) error {
	apiErr := &actionbox.APIError{
		StatusCode: resp.StatusCode,
		Message:    resp.Status,
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Detail != "" {
			apiErr.Message = body.Detail
		}
		apiErr.Code = body.Code
	}
	return apiErr
}
