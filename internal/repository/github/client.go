// Package github implements content storage against a Git hosting REST API:
// sha-conditional file reads/writes, plus a CommentRepository backed by one
// JSON file per post.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mzyun/novelgate/internal/errs"
)

const defaultBaseURL = "https://api.github.com"

// Client is a minimal contents-API client. Writes are conditional on the
// current content sha; a remote mismatch maps to errs.ErrVersionConflict so
// callers can treat it as retryable.
type Client struct {
	http   *http.Client
	base   string
	token  string
	owner  string
	repo   string
	branch string
}

// Option tweaks client construction.
type Option func(*Client)

// WithBaseURL points the client at a different API host (tests, GHE).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient constructs a contents-API client for one repository and branch.
func NewClient(token, owner, repo, branch string, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: 15 * time.Second},
		base:   defaultBaseURL,
		token:  token,
		owner:  owner,
		repo:   repo,
		branch: branch,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// File is one repository file: decoded content plus the sha required for
// conditional writes.
type File struct {
	Content []byte
	SHA     string
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (c *Client) contentsURL(path string) string {
	segs := strings.Split(path, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.base, c.owner, c.repo, strings.Join(segs, "/"))
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// GetFile fetches a file and its sha from the configured branch.
func (c *Client) GetFile(ctx context.Context, path string) (*File, error) {
	u := c.contentsURL(path) + "?ref=" + url.QueryEscape(c.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errs.ErrNotFound
	default:
		return nil, fmt.Errorf("get %s: unexpected status %d", path, resp.StatusCode)
	}

	var cr contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("get %s: decode: %w", path, err)
	}
	// The API wraps base64 content with newlines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(cr.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("get %s: content: %w", path, err)
	}
	return &File{Content: raw, SHA: cr.SHA}, nil
}

// PutFile writes a file. For updates sha must be the current content sha;
// passing an empty sha creates the file. Remote sha mismatch maps to
// ErrVersionConflict.
func (c *Client) PutFile(ctx context.Context, path string, content []byte, sha, message string) (string, error) {
	body, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     sha,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return "", errs.ErrVersionConflict
	case http.StatusNotFound:
		return "", errs.ErrNotFound
	default:
		return "", fmt.Errorf("put %s: unexpected status %d", path, resp.StatusCode)
	}

	var pr putResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("put %s: decode: %w", path, err)
	}
	return pr.Content.SHA, nil
}
