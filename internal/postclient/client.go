// Package postclient is a client for the remote posts REST API.
package postclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/starford/postdeck/internal/apperr"
	"github.com/starford/postdeck/internal/models"
)

// Client talks to a posts API. The base URL is passed on every call so
// that the caller owns it.
type Client struct {
	httpClient *http.Client
	token      string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// New creates a new posts API client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches every post: GET {base}/posts.
func (c *Client) List(ctx context.Context, baseURL string) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, endpoint(baseURL, "/posts", nil), nil, &posts); err != nil {
		return nil, fmt.Errorf("postclient: list posts: %w", err)
	}
	return nonNil(posts), nil
}

// ListSorted asks the server for a sorted list:
// GET {base}/posts?sort={field}&direction={dir}.
func (c *Client) ListSorted(ctx context.Context, baseURL string, field models.Field, dir models.Direction) ([]models.Post, error) {
	// Keep sort before direction; url.Values.Encode would reorder them.
	target := endpoint(baseURL, "/posts", nil) +
		"?sort=" + url.QueryEscape(string(field)) +
		"&direction=" + url.QueryEscape(string(dir))

	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, target, nil, &posts); err != nil {
		return nil, fmt.Errorf("postclient: list sorted posts: %w", err)
	}
	return nonNil(posts), nil
}

// Get fetches a single post: GET {base}/posts/{id}.
func (c *Client) Get(ctx context.Context, baseURL string, id int) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodGet, postURL(baseURL, id), nil, &post); err != nil {
		return nil, fmt.Errorf("postclient: get post %d: %w", id, err)
	}
	return &post, nil
}

// Create adds a post: POST {base}/posts.
func (c *Client) Create(ctx context.Context, baseURL string, in models.PostInput) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, endpoint(baseURL, "/posts", nil), in, &post); err != nil {
		return nil, fmt.Errorf("postclient: create post: %w", err)
	}
	return &post, nil
}

// Update replaces the editable fields of a post: PUT {base}/posts/{id}.
func (c *Client) Update(ctx context.Context, baseURL string, id int, in models.PostInput) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPut, postURL(baseURL, id), in, &post); err != nil {
		return nil, fmt.Errorf("postclient: update post %d: %w", id, err)
	}
	return &post, nil
}

// Delete removes a post: DELETE {base}/posts/{id}. Only the status is used.
func (c *Client) Delete(ctx context.Context, baseURL string, id int) error {
	if err := c.do(ctx, http.MethodDelete, postURL(baseURL, id), nil, nil); err != nil {
		return fmt.Errorf("postclient: delete post %d: %w", id, err)
	}
	return nil
}

// Search runs a single-field search: GET {base}/posts/search?{field}={query}.
func (c *Client) Search(ctx context.Context, baseURL string, field models.Field, query string) ([]models.Post, error) {
	q := url.Values{}
	q.Set(string(field), query)

	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, endpoint(baseURL, "/posts/search", q), nil, &posts); err != nil {
		return nil, fmt.Errorf("postclient: search posts by %s: %w", field, err)
	}
	return nonNil(posts), nil
}

// upstreamError is the error body the posts API sends with non-2xx statuses.
type upstreamError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", apperr.ErrUnreachable, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", apperr.ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := statusMessage(resp.StatusCode, data)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", apperr.ErrNotFound, msg)
		}
		return fmt.Errorf("%w: %s", apperr.ErrUpstream, msg)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrDecode, err)
	}
	return nil
}

func statusMessage(status int, data []byte) string {
	var ue upstreamError
	if err := json.Unmarshal(data, &ue); err == nil {
		if ue.Message != "" {
			return strconv.Itoa(status) + " " + ue.Message
		}
		if ue.Error != "" {
			return strconv.Itoa(status) + " " + ue.Error
		}
	}
	return http.StatusText(status)
}

func endpoint(baseURL, path string, q url.Values) string {
	u := strings.TrimRight(baseURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func postURL(baseURL string, id int) string {
	return endpoint(baseURL, "/posts/"+strconv.Itoa(id), nil)
}

func nonNil(posts []models.Post) []models.Post {
	if posts == nil {
		return []models.Post{}
	}
	return posts
}
