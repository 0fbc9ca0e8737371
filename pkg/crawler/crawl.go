package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
)

// Notebook is one retained notebook's path, metadata, and source text,
// ready for pkg/notebook to parse.
type Notebook struct {
	Path     string
	Language string
	Meta     models.NotebookMetadata
	Source   string
}

// Result is the crawl's output: every discovered notebook's metadata, the
// retained notebooks' source text, and the per-run failures list, which the
// concurrent metadata fetches append to under a mutex.
type Result struct {
	Metadata  []models.NotebookMetadata
	Retained  []Notebook
	Failures  []string
	Discovered int
}

// Crawler runs the BFS + bounded-concurrency metadata fetch of §4.3
// Workspace Crawler.
type Crawler struct {
	client      WorkspaceClient
	concurrency int64
}

// New returns a Crawler bound to client, bounding concurrent metadata
// fetches to concurrency (default 8 per §4.3/§5).
func New(client WorkspaceClient, concurrency int) *Crawler {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Crawler{client: client, concurrency: int64(concurrency)}
}

// Crawl walks rootPath breadth-first, fetching status for every discovered
// notebook with bounded concurrency, applying the freshness filter, and
// returning retained notebooks' exported source. ctx cancellation is
// checked between listing calls and observed by in-flight fetches (§5
// suspension points).
func (c *Crawler) Crawl(ctx context.Context, rootPath string, cutoff *time.Time) (*Result, error) {
	res := &Result{}

	queue := []string{rootPath}
	var notebookPaths []string

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := c.listPathWithRetry(ctx, dir)
		if err != nil {
			if fe, ok := err.(*StatusError); ok && fe.Fatal() {
				return res, fmt.Errorf("fatal listing %s: %w", dir, err)
			}
			res.Failures = append(res.Failures, fmt.Sprintf("list %s: %v", dir, err))
			continue
		}

		for _, e := range entries {
			if e.IsDir {
				queue = append(queue, e.Path)
				continue
			}
			notebookPaths = append(notebookPaths, e.Path)
			res.Discovered++
		}
	}

	sem := semaphore.NewWeighted(c.concurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, path := range notebookPaths {
		if err := sem.Acquire(ctx, 1); err != nil {
			break // ctx cancelled
		}
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			defer sem.Release(1)

			meta, notebook, failure := c.fetchOne(ctx, path, cutoff)
			mu.Lock()
			defer mu.Unlock()
			if failure != "" {
				res.Failures = append(res.Failures, failure)
				return
			}
			res.Metadata = append(res.Metadata, meta)
			if notebook != nil {
				res.Retained = append(res.Retained, *notebook)
			}
		}(path)
	}
	wg.Wait()

	return res, nil
}

func (c *Crawler) fetchOne(ctx context.Context, path string, cutoff *time.Time) (models.NotebookMetadata, *Notebook, string) {
	status, err := c.getStatusWithRetry(ctx, path)
	if err != nil {
		return models.NotebookMetadata{}, nil, fmt.Sprintf("status %s: %v", path, err)
	}

	meta := models.NotebookMetadata{
		Path:           path,
		Language:       status.Language,
		CreatedAt:      status.CreatedAt,
		ModifiedAt:     status.ModifiedAt,
		ContentPresent: false,
	}

	// Freshness filter (§4.3): kept iff modified-at unknown or >= cutoff.
	if cutoff != nil && status.ModifiedAt != nil && status.ModifiedAt.Before(*cutoff) {
		meta.Status = models.NotebookSkippedStale
		return meta, nil, ""
	}

	source, err := c.exportWithRetry(ctx, path)
	if err != nil {
		return meta, nil, fmt.Sprintf("export %s: %v", path, err)
	}

	meta.ContentPresent = true
	meta.Status = models.NotebookProcessed
	return meta, &Notebook{Path: path, Language: status.Language, Meta: meta, Source: source}, ""
}

// retry wraps fn with the §4.3/§7 transient-error retry policy: exponential
// backoff 2s -> 30s, four attempts, only for errors that self-report
// Transient() true.
func retry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, 3), ctx)

	var result T
	err := backoff.Retry(func() error {
		var err error
		result, err = fn()
		if err == nil {
			return nil
		}
		type transient interface{ Transient() bool }
		if t, ok := err.(transient); ok && t.Transient() {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
	return result, err
}

func (c *Crawler) listPathWithRetry(ctx context.Context, path string) ([]Entry, error) {
	return retry(ctx, func() ([]Entry, error) { return c.client.ListPath(ctx, path) })
}

func (c *Crawler) getStatusWithRetry(ctx context.Context, path string) (NotebookStatusInfo, error) {
	return retry(ctx, func() (NotebookStatusInfo, error) { return c.client.GetStatus(ctx, path) })
}

func (c *Crawler) exportWithRetry(ctx context.Context, path string) (string, error) {
	return retry(ctx, func() (string, error) { return c.client.ExportNotebookSource(ctx, path) })
}
