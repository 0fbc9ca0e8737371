// Package crawler implements the Workspace Crawler (§4.3): a BFS over a
// data-platform workspace's directory listings, bounded-concurrency
// metadata fetch, freshness filtering, and the Job-Association Enrichment
// second pass. Grounded on the teacher's pkg/runbook/github.go HTTP client
// idiom (timeout-bound *http.Client, bearer auth) and pkg/queue/worker.go's
// bounded-concurrency discipline.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Entry is one directory listing entry (§6: "list path").
type Entry struct {
	Path    string `json:"path"`
	IsDir   bool   `json:"is_dir"`
	Language string `json:"language,omitempty"`
}

// NotebookStatusInfo is one notebook's get-status metadata (§6: "get-status
// for metadata").
type NotebookStatusInfo struct {
	Path       string     `json:"path"`
	Language   string     `json:"language"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}

// Job is one workspace job definition (§6: "list jobs").
type Job struct {
	JobID        string   `json:"job_id"`
	JobName      string   `json:"job_name"`
	HasSchedule  bool     `json:"has_schedule"`
	NotebookPaths []string `json:"notebook_paths"` // covers both single-task and multi-task shapes
}

// Run is one job-run record (§6: "list runs for job").
type Run struct {
	RunID       string     `json:"run_id"`
	State       string     `json:"state"` // SUCCESS | ... per §4.3
	TriggerType string     `json:"trigger_type,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
}

// WorkspaceClient is the outbound contract of §6 "Outbound — workspace":
// "REST API of a data-platform workspace: list path, export notebook
// (SOURCE format, base64-encoded content), get-status for metadata, list
// jobs (paginated, limit=25), list runs for job (limit=25)."
type WorkspaceClient interface {
	ListPath(ctx context.Context, path string) ([]Entry, error)
	ExportNotebookSource(ctx context.Context, path string) (string, error)
	GetStatus(ctx context.Context, path string) (NotebookStatusInfo, error)
	ListJobs(ctx context.Context, page int) (jobs []Job, hasMore bool, err error)
	ListRunsForJob(ctx context.Context, jobID string, limit int) ([]Run, error)
}

// HTTPClient is the production WorkspaceClient, a thin REST wrapper
// matching the teacher's GitHubClient construction idiom: one *http.Client
// fixed to a base URL and bearer token.
type HTTPClient struct {
	http    *http.Client
	baseURL string
	token   string
}

// NewHTTPClient returns an HTTPClient bound to baseURL/token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: baseURL,
		token:   token,
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, query map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("authorization", "Bearer "+c.token)
	q := req.URL.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// StatusError carries the upstream HTTP status so callers can classify it
// per §7's taxonomy: 401/403 fatal, 429/5xx transient, else item-level.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("workspace api error (status %d): %s", e.StatusCode, e.Body)
}

// Fatal reports whether StatusCode should abort the run per §4.3/§7.
func (e *StatusError) Fatal() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// Transient reports whether StatusCode is worth retrying with backoff.
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (c *HTTPClient) ListPath(ctx context.Context, path string) ([]Entry, error) {
	var out struct {
		Entries []Entry `json:"entries"`
	}
	if err := c.get(ctx, "/api/2.0/workspace/list", map[string]string{"path": path}, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *HTTPClient) ExportNotebookSource(ctx context.Context, path string) (string, error) {
	var out struct {
		Content string `json:"content"` // base64
	}
	if err := c.get(ctx, "/api/2.0/workspace/export", map[string]string{"path": path, "format": "SOURCE"}, &out); err != nil {
		return "", err
	}
	return decodeBase64(out.Content)
}

func (c *HTTPClient) GetStatus(ctx context.Context, path string) (NotebookStatusInfo, error) {
	var out NotebookStatusInfo
	err := c.get(ctx, "/api/2.0/workspace/get-status", map[string]string{"path": path}, &out)
	return out, err
}

func (c *HTTPClient) ListJobs(ctx context.Context, page int) ([]Job, bool, error) {
	var out struct {
		Jobs    []Job `json:"jobs"`
		HasMore bool  `json:"has_more"`
	}
	err := c.get(ctx, "/api/2.1/jobs/list", map[string]string{"limit": "25", "page_token": fmt.Sprint(page)}, &out)
	return out.Jobs, out.HasMore, err
}

func (c *HTTPClient) ListRunsForJob(ctx context.Context, jobID string, limit int) ([]Run, error) {
	var out struct {
		Runs []Run `json:"runs"`
	}
	err := c.get(ctx, "/api/2.1/jobs/runs/list", map[string]string{"job_id": jobID, "limit": fmt.Sprint(limit)}, &out)
	return out.Runs, err
}

var _ WorkspaceClient = (*HTTPClient)(nil)
