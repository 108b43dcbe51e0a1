package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/Strob0t/TestRelay/internal/port/dispatch"
	"github.com/Strob0t/TestRelay/internal/port/hosting"
)

// WorkflowClient triggers workflow runs in a downstream repository. It is a
// separate client from the source-repository Client because the dispatch
// call crosses the repository boundary with its own scoped credential.
type WorkflowClient struct {
	client       *Client
	workflowFile string
}

// NewWorkflowClient creates a dispatcher for the given downstream
// "owner/repo" and workflow filename.
func NewWorkflowClient(baseURL, downstreamRepo, workflowFile string, tokens hosting.TokenSource) (*WorkflowClient, error) {
	c, err := NewClient(baseURL, downstreamRepo, tokens)
	if err != nil {
		return nil, err
	}
	return &WorkflowClient{client: c, workflowFile: workflowFile}, nil
}

// TriggerWorkflow implements dispatch.WorkflowDispatcher by POSTing to the
// workflow-dispatches endpoint. GitHub acknowledges acceptance with 204 and
// does not return a run identifier on this endpoint.
func (w *WorkflowClient) TriggerWorkflow(ctx context.Context, repo, ref string, inputs map[string]string) (dispatch.Acceptance, error) {
	if repo != w.client.owner+"/"+w.client.repo {
		return dispatch.Acceptance{}, fmt.Errorf("workflow client is bound to %s/%s, got %q",
			w.client.owner, w.client.repo, repo)
	}

	payload := struct {
		Ref    string            `json:"ref"`
		Inputs map[string]string `json:"inputs"`
	}{Ref: ref, Inputs: inputs}

	data, err := json.Marshal(payload)
	if err != nil {
		return dispatch.Acceptance{}, fmt.Errorf("marshal dispatch payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		w.client.baseURL, w.client.owner, w.client.repo, w.workflowFile)
	if _, err := w.client.doRequest(ctx, http.MethodPost, reqURL, strings.NewReader(string(data))); err != nil {
		return dispatch.Acceptance{}, fmt.Errorf("github workflow dispatch: %w", err)
	}

	return dispatch.Acceptance{Accepted: true}, nil
}
