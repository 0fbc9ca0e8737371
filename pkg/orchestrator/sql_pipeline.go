package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/crawler"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/notebook"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/progress"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/sqlanalysis"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/sqldocs"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/sqlparser"
	"github.com/gin-gonic/gin"
)

// sqlPipelineRequest is the POST body for submitting a SQL Corpus Pipeline
// run (§4.3).
type sqlPipelineRequest struct {
	Cluster  string `json:"cluster" binding:"required"` // key into ClusterWorkspaceDirectory
	Token    string `json:"token" binding:"required"`   // workspace PAT, never persisted
	Dialect  string `json:"dialect"`
	RootPath string `json:"root_path"`
}

func (o *Orchestrator) submitSQLPipelineHandler(c *gin.Context) {
	orgID := c.Param("org")
	userID := userIDFromRequest(c)

	var req sqlPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	baseURL, ok := o.cfg.ClusterWorkspaceDirectory[req.Cluster]
	if !ok {
		badRequest(c, fmt.Sprintf("unknown cluster %q", req.Cluster))
		return
	}
	if req.Dialect == "" {
		req.Dialect = "spark"
	}
	if req.RootPath == "" {
		req.RootPath = "/"
	}

	run := &models.ExtractionRun{
		ID:         newID(),
		OwningUser: userID,
		OwningOrg:  orgID,
		Workspace:  req.Cluster,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now(),
	}
	if err := o.store.CreateExtractionRun(context.Background(), run); err != nil {
		writeError(c, err)
		return
	}

	taskName := fmt.Sprintf("sql-pipeline-%s", run.ID)
	submitErr := o.tasks.Submit(context.Background(), taskName, userID, func(ctx context.Context) error {
		return o.runSQLPipeline(ctx, run.ID, orgID, userID, req, baseURL)
	})
	if submitErr != nil {
		writeError(c, submitErr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "status": run.Status})
}

func (o *Orchestrator) runSQLPipeline(ctx context.Context, runID, orgID, userID string, req sqlPipelineRequest, baseURL string) error {
	client := crawler.NewHTTPClient(baseURL, req.Token)
	cw := crawler.New(client, o.cfg.CrawlerConcurrency)

	o.emitProgress(userID, "sql_pipeline", runID, "crawl", 0, 0, "starting workspace crawl", "running")

	result, err := cw.Crawl(ctx, req.RootPath, nil)
	if err != nil {
		return o.failExtractionRun(ctx, runID, userID, err)
	}
	if err := cw.EnrichWithJobs(ctx, result); err != nil {
		// job enrichment failing is item-level (§4.3); continue with what we have.
		o.emitProgress(userID, "sql_pipeline", runID, "crawl", len(result.Metadata), len(result.Metadata), "job enrichment incomplete: "+err.Error(), "running")
	}

	if err := o.store.BulkInsertNotebookMetadata(ctx, result.Metadata); err != nil {
		return o.failExtractionRun(ctx, runID, userID, err)
	}

	parser := sqlparser.NewHeuristicParser()
	var allRows []models.ExtractedSql
	for i, nb := range result.Retained {
		src := notebook.Source{Path: nb.Path, Name: nb.Path, Language: notebook.Language(nb.Language), FileType: "notebook", Text: nb.Source}
		rows, err := notebook.Extract(ctx, parser, req.Dialect, runID, src)
		if err != nil {
			continue // per-notebook failure is item-level, never aborts (§4.3)
		}
		allRows = append(allRows, rows...)
		o.emitProgress(userID, "sql_pipeline", runID, "extract", i+1, len(result.Retained), nb.Path, "running")
	}

	if err := o.store.BulkInsertExtractedSQL(ctx, allRows); err != nil {
		return o.failExtractionRun(ctx, runID, userID, err)
	}

	counters := models.ExtractionCounters{
		Discovered: result.Discovered,
		Processed:  len(result.Metadata),
		Extracted:  len(allRows),
	}
	if err := o.store.CompleteExtractionRun(ctx, runID, models.RunStatusCompleted, counters, result.Failures, ""); err != nil {
		return err
	}
	o.emitTerminal(userID, "sql_pipeline", runID, "")

	return o.runSQLAnalysis(ctx, runID, orgID, userID, req.Dialect, allRows, parser)
}

func (o *Orchestrator) runSQLAnalysis(ctx context.Context, extractionRunID, orgID, userID, dialect string, rows []models.ExtractedSql, parser sqlparser.Parser) error {
	analysisRunID := newID()
	fingerprints, _, cs, literalVals, aliasConv, clusters, filters, summary, totalWeight :=
		sqlanalysis.Run(ctx, parser, dialect, analysisRunID, rows, o.cfg.Filters)

	analysisRun := &models.AnalysisRun{
		ID:                 analysisRunID,
		ExtractionRunID:    extractionRunID,
		OrgID:              orgID,
		Status:             models.RunStatusCompleted,
		Counters:           cs,
		Clusters:           clusters,
		ClassifiedFilters:  filters,
		FingerprintSummary: summary,
		LiteralVals:        literalVals,
		AliasConv:          aliasConv,
		TotalWeight:        totalWeight,
		CreatedAt:          time.Now(),
	}
	if err := o.store.CreateAnalysisRun(ctx, analysisRun); err != nil {
		return err
	}
	if err := o.store.BulkInsertAnalysisFingerprints(ctx, fingerprints); err != nil {
		return err
	}

	return o.authorSQLDocs(ctx, analysisRun, fingerprints, orgID, userID)
}

func (o *Orchestrator) authorSQLDocs(ctx context.Context, run *models.AnalysisRun, fingerprints []models.AnalysisFingerprint, orgID, userID string) error {
	provider, model := o.defaultLLM()

	payloads, err := sqldocs.BuildPayloads(run, nil)
	if err != nil {
		return err
	}
	docs := sqldocs.AuthorAll(ctx, o.llm, provider, model, payloads, run.FingerprintSummary)

	result, err := sqldocs.Validate(ctx, o.llm, provider, model, docs)
	if err != nil {
		o.emitProgress(userID, "sql_pipeline", run.ID, "validate", 0, 0, "cross-document validation failed: "+err.Error(), "running")
	} else if !result.Pass {
		o.emitProgress(userID, "sql_pipeline", run.ID, "validate", 0, 0, result.Report, "running")
	}
	_ = sqldocs.SpotCheck(fingerprints, docs)

	if err := o.store.SupersedeContextDocs(ctx, orgID, models.SourceDatabricks); err != nil {
		return err
	}
	for slot, doc := range docs {
		cd := &models.ContextDoc{
			ID:          newID(),
			SourceType:  models.SourceDatabricks,
			SourceRunID: run.ID,
			OrgID:       orgID,
			DocKey:      string(slot),
			DocName:     string(slot),
			DocContent:  doc.Text,
			Model:       model,
			Provider:    provider,
			Status:      models.DocStatusActive,
			CreatedAt:   time.Now(),
		}
		if doc.Err != nil {
			cd.Warnings = []string{doc.Err.Error()}
		}
		if err := o.store.CreateContextDoc(ctx, cd); err != nil {
			return err
		}
	}

	if topics, err := sqldocs.AssessFocusTopics(ctx, o.llm, provider, model, run, docs); err == nil {
		preamble := sqldocs.Preamble(run.FingerprintSummary.TopColumns)
		for i, topic := range topics {
			payload, err := sqldocs.FocusPayload(run, topic)
			if err != nil {
				continue
			}
			docKey := fmt.Sprintf("%02d_FOCUS_%s", 6+i, topic.Title)
			doc := sqldocs.AuthorDoc(ctx, o.llm, provider, model, config.DocSlot(docKey), payload, preamble, "")
			cd := &models.ContextDoc{
				ID:          newID(),
				SourceType:  models.SourceDatabricks,
				SourceRunID: run.ID,
				OrgID:       orgID,
				DocKey:      docKey,
				DocName:     topic.Title,
				DocContent:  doc.Text,
				Model:       model,
				Provider:    provider,
				Status:      models.DocStatusActive,
				CreatedAt:   time.Now(),
			}
			_ = o.store.CreateContextDoc(ctx, cd)
		}
	}

	o.emitTerminal(userID, "sql_pipeline_docs", run.ID, "")
	return nil
}

func (o *Orchestrator) failExtractionRun(ctx context.Context, runID, userID string, err error) error {
	_ = o.store.CompleteExtractionRun(ctx, runID, models.RunStatusFailed, models.ExtractionCounters{}, nil, err.Error())
	o.emitTerminal(userID, "sql_pipeline", runID, err.Error())
	return err
}

func (o *Orchestrator) getSQLRunHandler(c *gin.Context) {
	run, err := o.store.GetExtractionRun(context.Background(), c.Param("id"))
	if err != nil {
		notFound(c, "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}

// emitProgress and emitTerminal are shared across all three pipelines.
func (o *Orchestrator) emitProgress(userID, pipeline, runID, phase string, completed, total int, detail, status string) {
	o.hub.SendToUser(userID, progress.ProgressEvent{
		Type: pipeline + "_progress", RunID: runID, Phase: phase,
		Completed: completed, Total: total, Detail: detail, Status: status,
	})
}

func (o *Orchestrator) emitTerminal(userID, pipeline, runID, errMsg string) {
	evtType := pipeline + "_complete"
	if errMsg != "" {
		evtType = pipeline + "_failed"
	}
	o.hub.SendToUser(userID, progress.TerminalEvent{Type: evtType, RunID: runID, Error: errMsg})
}

func (o *Orchestrator) defaultLLM() (provider, model string) {
	for name, p := range o.cfg.LLMProviders {
		return name, p.Model
	}
	return "", ""
}
