// Package github implements the hosting and dispatch ports against the
// GitHub REST API.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// APIError carries the status code of a failed GitHub API call so callers
// can map it onto the dispatch error taxonomy.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API %d: %s", e.StatusCode, e.Body)
}

// Client talks to the GitHub REST API for a single source repository.
type Client struct {
	baseURL    string
	owner      string
	repo       string
	tokens     hosting.TokenSource
	httpClient *http.Client
}

// NewClient creates a GitHub client bound to the given "owner/repo" source
// repository. Requests authenticate with tokens from the given source.
func NewClient(baseURL, sourceRepo string, tokens hosting.TokenSource) (*Client, error) {
	owner, repo, err := splitRepo(sourceRepo)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		owner:      owner,
		repo:       repo,
		tokens:     tokens,
		httpClient: http.DefaultClient,
	}, nil
}

// doRequest issues one authenticated API call and returns the response body.
// Status codes >= 400 come back as *APIError.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL is constructed from trusted baseURL + owner/repo
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return respBody, nil
}

func splitRepo(full string) (owner, repo string, err error) {
	parts := strings.Split(full, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q: expected owner/repo", full)
	}
	return parts[0], parts[1], nil
}

// StaticTokenSource returns the same token for every call. Scoped credential
// issuance and refresh are external; this is the simplest conforming source.
type StaticTokenSource string

// Token implements hosting.TokenSource.
func (s StaticTokenSource) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("no token configured")
	}
	return string(s), nil
}
