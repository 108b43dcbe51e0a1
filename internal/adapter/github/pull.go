package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// pullResponse mirrors the fields of the pulls API this pipeline reads.
// merge_commit_sha and mergeable are null while GitHub is still computing
// mergeability.
type pullResponse struct {
	MergeCommitSHA *string `json:"merge_commit_sha"`
	Mergeable      *bool   `json:"mergeable"`
	State          string  `json:"state"`
	Merged         bool    `json:"merged"`
}

// MergeStatus implements hosting.PullStatusAPI.
func (c *Client) MergeStatus(ctx context.Context, pullNumber int) (hosting.MergeStatus, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, c.owner, c.repo, pullNumber)
	body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return hosting.MergeStatus{}, fmt.Errorf("github pull %d: %w", pullNumber, err)
	}

	var pr pullResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return hosting.MergeStatus{}, fmt.Errorf("github parse pull: %w", err)
	}

	return hosting.MergeStatus{
		MergeCommitSHA: pr.MergeCommitSHA,
		Mergeable:      pr.Mergeable,
		State:          pr.State,
		Merged:         pr.Merged,
	}, nil
}

// HasWriteAccess implements hosting.PermissionChecker using the repository-ID
// addressed collaborators endpoint, so the check is pinned to the repository
// the event actually came from.
func (c *Client) HasWriteAccess(ctx context.Context, login string, repositoryID int64) (bool, error) {
	reqURL := fmt.Sprintf("%s/repositories/%d/collaborators/%s/permission",
		c.baseURL, repositoryID, url.PathEscape(login))
	body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("github permission %s: %w", login, err)
	}

	var perm struct {
		Permission string `json:"permission"`
	}
	if err := json.Unmarshal(body, &perm); err != nil {
		return false, fmt.Errorf("github parse permission: %w", err)
	}

	switch perm.Permission {
	case "admin", "maintain", "write":
		return true, nil
	}
	return false, nil
}

// ListChangedFiles implements hosting.ChangeLister. Pagination is bounded by
// the files endpoint's 100-per-page maximum.
func (c *Client) ListChangedFiles(ctx context.Context, pullNumber int) ([]string, error) {
	var paths []string
	for page := 1; ; page++ {
		reqURL := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=100&page=%d",
			c.baseURL, c.owner, c.repo, pullNumber, page)
		body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("github pull files %d: %w", pullNumber, err)
		}

		var files []struct {
			Filename string `json:"filename"`
		}
		if err := json.Unmarshal(body, &files); err != nil {
			return nil, fmt.Errorf("github parse pull files: %w", err)
		}
		for _, f := range files {
			paths = append(paths, f.Filename)
		}
		if len(files) < 100 {
			return paths, nil
		}
	}
}

// RemoveLabel implements hosting.LabelRemover. A 404 is tolerated: the label
// may already have been removed by a concurrent run.
func (c *Client) RemoveLabel(ctx context.Context, pullNumber int, label string) error {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/issues/%d/labels/%s",
		c.baseURL, c.owner, c.repo, pullNumber, url.PathEscape(label))
	_, err := c.doRequest(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("github remove label %q: %w", label, err)
	}
	return nil
}
