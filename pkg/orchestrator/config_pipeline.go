package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/configanalysis"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/configapi"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/configdocs"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/gin-gonic/gin"
)

// configPipelineRequest is the POST body for submitting a Configuration
// Object Pipeline run (§4.4).
type configPipelineRequest struct {
	BaseURL       string            `json:"base_url" binding:"required"`
	BearerToken   string            `json:"bearer_token"`
	Cookie        string            `json:"cookie"`
	CookieMarkers []string          `json:"cookie_markers"`
	Params        map[string]string `json:"params"`
}

func (o *Orchestrator) submitConfigPipelineHandler(c *gin.Context) {
	orgID := c.Param("org")
	userID := userIDFromRequest(c)

	var req configPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	run := &models.ConfigExtractionRun{
		ID:         newID(),
		OwningUser: userID,
		OwningOrg:  orgID,
		Host:       req.BaseURL,
		Status:     models.RunStatusRunning,
		StartedAt:  time.Now(),
	}
	if err := o.store.CreateConfigExtractionRun(context.Background(), run); err != nil {
		writeError(c, err)
		return
	}

	taskName := fmt.Sprintf("config-pipeline-%s", run.ID)
	submitErr := o.tasks.Submit(context.Background(), taskName, userID, func(ctx context.Context) error {
		return o.runConfigPipeline(ctx, run.ID, orgID, userID, req)
	})
	if submitErr != nil {
		writeError(c, submitErr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "status": run.Status})
}

func (o *Orchestrator) runConfigPipeline(ctx context.Context, runID, orgID, userID string, req configPipelineRequest) error {
	client := configapi.New(req.BaseURL, req.BearerToken, req.Cookie, orgID, req.CookieMarkers)

	var allRequests []models.ConfigAPIRequestRecord
	var categoryItems []configanalysis.CategoryItems
	var discovered, extracted int

	for i, cat := range configapi.Categories {
		res, err := client.FanOutCategory(ctx, cat, cloneParams(req.Params))
		allRequests = append(allRequests, res.Requests...)
		if err != nil {
			// a bearer-path auth failure is fatal for the whole run (§4.4).
			return o.failConfigExtractionRun(ctx, runID, userID, err)
		}
		for _, items := range res.Items {
			discovered += len(items)
			extracted += len(items)
		}
		categoryItems = append(categoryItems, configanalysis.CategoryItems{Category: cat.Name, Items: res.Items})
		o.emitProgress(userID, "config_pipeline", runID, "fan_out", i+1, len(configapi.Categories), cat.Name, "running")
	}

	if err := o.store.BulkInsertConfigAPIRequests(ctx, runID, allRequests); err != nil {
		return o.failConfigExtractionRun(ctx, runID, userID, err)
	}

	counters := models.ExtractionCounters{Discovered: discovered, Processed: discovered, Extracted: extracted}
	if err := o.store.CompleteConfigExtractionRun(ctx, runID, models.RunStatusCompleted, counters, ""); err != nil {
		return err
	}
	o.emitTerminal(userID, "config_pipeline", runID, "")

	return o.runConfigAnalysis(ctx, runID, orgID, userID, categoryItems)
}

func (o *Orchestrator) runConfigAnalysis(ctx context.Context, extractionRunID, orgID, userID string, categoryItems []configanalysis.CategoryItems) error {
	fingerprints, inventory, cs, clusters := configanalysis.Run(categoryItems)

	analysisRunID := newID()
	analysisRun := &models.ConfigAnalysisRun{
		ID:                    analysisRunID,
		ConfigExtractionRunID: extractionRunID,
		OrgID:                 orgID,
		Status:                models.RunStatusCompleted,
		Inventory:             inventory,
		Fingerprints:          fingerprints,
		Counters:              cs,
		Clusters:              clusters,
		CreatedAt:             time.Now(),
	}
	if err := o.store.CreateConfigAnalysisRun(ctx, analysisRun); err != nil {
		return err
	}

	return o.authorConfigDocs(ctx, analysisRun, orgID, userID)
}

func (o *Orchestrator) authorConfigDocs(ctx context.Context, run *models.ConfigAnalysisRun, orgID, userID string) error {
	provider, model := o.defaultLLM()

	snap := configdocs.Snapshot{Inventory: run.Inventory, Counters: run.Counters, Clusters: run.Clusters}
	payloads, err := configdocs.BuildPayloads(snap)
	if err != nil {
		return err
	}

	docs := configdocs.AuthorAll(ctx, o.llm, provider, model, payloads, groupClustersBySlot(run.Clusters))

	if err := o.store.SupersedeContextDocs(ctx, orgID, models.SourceConfigAPIs); err != nil {
		return err
	}
	for slot, doc := range docs {
		cd := &models.ContextDoc{
			ID:          newID(),
			SourceType:  models.SourceConfigAPIs,
			SourceRunID: run.ID,
			OrgID:       orgID,
			DocKey:      string(slot),
			DocName:     string(slot),
			DocContent:  doc.Text,
			Model:       model,
			Provider:    provider,
			Status:      models.DocStatusActive,
			Warnings:    doc.Warnings,
			CreatedAt:   time.Now(),
		}
		if err := o.store.CreateContextDoc(ctx, cd); err != nil {
			return err
		}
	}

	o.emitTerminal(userID, "config_pipeline_docs", run.ID, "")
	return nil
}

func (o *Orchestrator) failConfigExtractionRun(ctx context.Context, runID, userID string, err error) error {
	_ = o.store.CompleteConfigExtractionRun(ctx, runID, models.RunStatusFailed, models.ExtractionCounters{}, err.Error())
	o.emitTerminal(userID, "config_pipeline", runID, err.Error())
	return err
}

func (o *Orchestrator) getConfigRunHandler(c *gin.Context) {
	run, err := o.store.GetConfigExtractionRun(context.Background(), c.Param("id"))
	if err != nil {
		notFound(c, "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}

func cloneParams(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// slotEntityTypes mirrors configdocs' own (unexported) binding of entity
// types to fixed doc slots (§4.4), duplicated here so the orchestrator can
// group clusters before calling AuthorAll.
var slotEntityTypes = map[config.DocSlot][]string{
	config.SlotLoyalty:     {"loyalty_tier", "loyalty_rule"},
	config.SlotCampaign:    {"campaign"},
	config.SlotPromotion:   {"promotion"},
	config.SlotAudience:    {"audience"},
	config.SlotCustomizing: {"extended_field", "org_setting"},
}

// groupClustersBySlot assigns each config cluster to every fixed doc slot
// whose entity types include the cluster's entity type.
func groupClustersBySlot(clusters []models.ConfigCluster) map[config.DocSlot][]models.ConfigCluster {
	out := map[config.DocSlot][]models.ConfigCluster{}
	for _, cl := range clusters {
		for slot, types := range slotEntityTypes {
			for _, t := range types {
				if t == cl.EntityType {
					out[slot] = append(out[slot], cl)
				}
			}
		}
	}
	return out
}
