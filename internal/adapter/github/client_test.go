package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, "acme/acme", StaticTokenSource("tok"))
	if err != nil {
		t.Fatal(err)
	}
	return c, srv
}

func TestNewClientRejectsBadRepo(t *testing.T) {
	for _, repo := range []string{"", "acme", "acme/", "/acme", "a/b/c"} {
		if _, err := NewClient("https://api.github.com", repo, StaticTokenSource("t")); err == nil {
			t.Errorf("NewClient(%q) expected error", repo)
		}
	}
}

func TestMergeStatusPending(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/acme/pulls/7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"merge_commit_sha": nil,
			"mergeable":        nil,
			"state":            "open",
			"merged":           false,
		})
	}))

	st, err := c.MergeStatus(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if st.MergeCommitSHA != nil || st.Mergeable != nil {
		t.Fatalf("expected pending status, got %+v", st)
	}
	if st.State != "open" {
		t.Fatalf("state = %q", st.State)
	}
}

func TestMergeStatusAvailable(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"merge_commit_sha": "abc123",
			"mergeable":        true,
			"state":            "open",
		})
	}))

	st, err := c.MergeStatus(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if st.MergeCommitSHA == nil || *st.MergeCommitSHA != "abc123" {
		t.Fatalf("sha = %v", st.MergeCommitSHA)
	}
	if st.Mergeable == nil || !*st.Mergeable {
		t.Fatalf("mergeable = %v", st.Mergeable)
	}
}

func TestMergeStatusAPIError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Server Error"}`, http.StatusBadGateway)
	}))

	_, err := c.MergeStatus(context.Background(), 7)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
}

func TestHasWriteAccess(t *testing.T) {
	tests := []struct {
		permission string
		want       bool
	}{
		{"admin", true},
		{"maintain", true},
		{"write", true},
		{"read", false},
		{"none", false},
	}
	for _, tt := range tests {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/repositories/42/collaborators/contributor1/permission" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{"permission": tt.permission})
		}))

		got, err := c.HasWriteAccess(context.Background(), "contributor1", 42)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("permission %q: HasWriteAccess = %t, want %t", tt.permission, got, tt.want)
		}
	}
}

func TestHasWriteAccessPropagatesError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "oops", http.StatusInternalServerError)
	}))

	_, err := c.HasWriteAccess(context.Background(), "contributor1", 42)
	if err == nil {
		t.Fatal("expected error so the gate can fail closed")
	}
}

func TestListChangedFiles(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			t.Errorf("unexpected page %s", r.URL.Query().Get("page"))
		}
		_ = json.NewEncoder(w).Encode([]map[string]string{
			{"filename": "src/server/main.go"},
			{"filename": "web/app/index.tsx"},
		})
	}))

	paths, err := c.ListChangedFiles(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != "src/server/main.go" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestRemoveLabelToleratesNotFound(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"Label does not exist"}`, http.StatusNotFound)
	}))

	if err := c.RemoveLabel(context.Background(), 7, "Trigger: downstream tests"); err != nil {
		t.Fatalf("404 should be tolerated, got %v", err)
	}
}

func TestTriggerWorkflow(t *testing.T) {
	var gotBody struct {
		Ref    string            `json:"ref"`
		Inputs map[string]string `json:"inputs"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/acme-extended/actions/workflows/acceptance.yml/dispatches" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wc, err := NewWorkflowClient(srv.URL, "acme/acme-extended", "acceptance.yml", StaticTokenSource("tok"))
	if err != nil {
		t.Fatal(err)
	}

	acc, err := wc.TriggerWorkflow(context.Background(), "acme/acme-extended", "main",
		map[string]string{"merge_commit_sha": "abc123"})
	if err != nil {
		t.Fatal(err)
	}
	if !acc.Accepted {
		t.Fatal("expected acceptance")
	}
	if gotBody.Ref != "main" || gotBody.Inputs["merge_commit_sha"] != "abc123" {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestTriggerWorkflowRejectsWrongRepo(t *testing.T) {
	wc, err := NewWorkflowClient("https://api.github.com", "acme/acme-extended", "acceptance.yml", StaticTokenSource("tok"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wc.TriggerWorkflow(context.Background(), "acme/other", "main", nil); err == nil {
		t.Fatal("expected repo mismatch error")
	}
}

func TestStaticTokenSourceEmpty(t *testing.T) {
	if _, err := StaticTokenSource("").Token(context.Background()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
