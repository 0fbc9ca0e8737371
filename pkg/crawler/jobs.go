package crawler

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"golang.org/x/sync/semaphore"
)

// EnrichWithJobs runs the Job-Association Enrichment second pass (§4.3):
// list every job (paginated), map notebook-path to the job(s) that
// reference it (covering both single-task and multi-task-job shapes via
// Job.NotebookPaths), then fetch each referenced job's last-25 runs with
// the same bounded-concurrency discipline as Crawl, and attach the
// resulting JobInfo to every NotebookMetadata row it applies to.
func (c *Crawler) EnrichWithJobs(ctx context.Context, res *Result) error {
	jobs, err := c.listAllJobs(ctx)
	if err != nil {
		return err
	}

	pathToJobIDs := map[string][]string{}
	jobByID := map[string]Job{}
	for _, j := range jobs {
		jobByID[j.JobID] = j
		for _, p := range j.NotebookPaths {
			pathToJobIDs[p] = append(pathToJobIDs[p], j.JobID)
		}
	}

	referenced := map[string]struct{}{}
	for i := range res.Metadata {
		for _, jobID := range pathToJobIDs[res.Metadata[i].Path] {
			referenced[jobID] = struct{}{}
		}
	}
	if len(referenced) == 0 {
		return nil
	}

	jobInfoByID := make(map[string]models.JobInfo, len(referenced))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(c.concurrency)

	for jobID := range referenced {
		jobID := jobID
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			runs, err := retry(ctx, func() ([]Run, error) { return c.client.ListRunsForJob(ctx, jobID, 25) })
			if err != nil {
				mu.Lock()
				res.Failures = append(res.Failures, "list runs for job "+jobID+": "+err.Error())
				mu.Unlock()
				return
			}

			info := summarizeRuns(jobByID[jobID], runs)
			mu.Lock()
			jobInfoByID[jobID] = info
			mu.Unlock()
		}()
	}
	wg.Wait()

	for i := range res.Metadata {
		for _, jobID := range pathToJobIDs[res.Metadata[i].Path] {
			if info, ok := jobInfoByID[jobID]; ok {
				res.Metadata[i].Jobs = append(res.Metadata[i].Jobs, info)
			}
		}
	}
	return nil
}

// jobPage bundles ListJobs' three return values so it fits the single-T
// retry helper.
type jobPage struct {
	jobs    []Job
	hasMore bool
}

func (c *Crawler) listAllJobs(ctx context.Context) ([]Job, error) {
	var all []Job
	page := 0
	for {
		result, err := retry(ctx, func() (jobPage, error) {
			jobs, hasMore, err := c.client.ListJobs(ctx, page)
			return jobPage{jobs: jobs, hasMore: hasMore}, err
		})
		if err != nil {
			return nil, err
		}
		all = append(all, result.jobs...)
		if !result.hasMore {
			break
		}
		page++
	}
	return all, nil
}

// summarizeRuns reduces a job's recent runs into the aggregate JobInfo
// fields §4.3 asks for: consecutive success count from the most recent run
// backwards, earliest start time among the fetched runs, and the trigger
// type: PERIODIC if the job has a schedule or any fetched run is periodic,
// otherwise ONE_TIME if there are runs, otherwise empty.
func summarizeRuns(job Job, runs []Run) models.JobInfo {
	sorted := make([]Run, len(runs))
	copy(sorted, runs)
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := sorted[i].StartTime, sorted[j].StartTime
		if ti == nil || tj == nil {
			return false
		}
		return ti.After(*tj)
	})

	consecutive := 0
	for _, r := range sorted {
		if r.State != "SUCCESS" {
			break
		}
		consecutive++
	}

	var earliest *time.Time
	trigger := ""
	if job.HasSchedule {
		trigger = "PERIODIC"
	}
	for _, r := range sorted {
		if r.StartTime != nil && (earliest == nil || r.StartTime.Before(*earliest)) {
			earliest = r.StartTime
		}
		if r.TriggerType == "PERIODIC" {
			trigger = "PERIODIC"
		}
	}
	if trigger == "" && len(sorted) > 0 {
		trigger = "ONE_TIME"
	}

	return models.JobInfo{
		JobID:                   job.JobID,
		JobName:                 job.JobName,
		ConsecutiveSuccessCount: consecutive,
		EarliestRunDate:         earliest,
		TriggerType:             trigger,
	}
}
