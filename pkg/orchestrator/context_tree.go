package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/contexttree"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/wiki"
	"github.com/gin-gonic/gin"
)

// contextTreeRequest is the POST body for submitting a Context Tree Engine
// run (§4.5).
type contextTreeRequest struct {
	WikiSpace         string `json:"wiki_space"`
	SanitizeBlueprint string `json:"sanitize_blueprint"`
}

func (o *Orchestrator) submitContextTreeHandler(c *gin.Context) {
	orgID := c.Param("org")
	userID := userIDFromRequest(c)

	var req contextTreeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, err.Error())
		return
	}

	run := &models.ContextTreeRun{
		ID:        newID(),
		OrgID:     orgID,
		Status:    models.RunStatusRunning,
		CreatedAt: time.Now(),
	}
	if err := o.store.CreateContextTreeRun(context.Background(), run); err != nil {
		writeError(c, err)
		return
	}

	taskName := fmt.Sprintf("context-tree-%s", run.ID)
	submitErr := o.tasks.Submit(context.Background(), taskName, userID, func(ctx context.Context) error {
		return o.runContextTree(ctx, run.ID, orgID, userID, req)
	})
	if submitErr != nil {
		writeError(c, submitErr)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"run_id": run.ID, "status": run.Status})
}

func (o *Orchestrator) runContextTree(ctx context.Context, runID, orgID, userID string, req contextTreeRequest) error {
	provider, model := o.defaultLLM()
	wikiClient := wiki.New(o.cfg.Wiki.BaseURL, o.cfg.Wiki.Username, o.cfg.Wiki.APIToken)
	collector := contexttree.NewCollector(o.store, wikiClient)

	o.progressLogTree(userID, runID, "collect", "running", "collecting context sources")

	root, collected, usage, err := contexttree.Run(ctx, o.llm, collector, contexttree.Options{
		Provider:          provider,
		Model:             model,
		OrgID:             orgID,
		WikiSpace:         req.WikiSpace,
		SanitizeBlueprint: req.SanitizeBlueprint,
		SanitizeMaxTokens: o.cfg.SanitizeTokenCap,
	})
	if err != nil {
		_ = o.store.CompleteContextTreeRun(ctx, runID, models.RunStatusFailed)
		o.emitTerminal(userID, "context_tree", runID, err.Error())
		return err
	}

	o.progressLogTree(userID, runID, "analyze", "running", collected.Provenance)

	if err := o.store.UpdateContextTreeResult(ctx, runID, root, usage.TotalTokens); err != nil {
		return err
	}
	if err := o.store.CompleteContextTreeRun(ctx, runID, models.RunStatusCompleted); err != nil {
		return err
	}
	o.emitTerminal(userID, "context_tree", runID, "")
	return nil
}

func (o *Orchestrator) progressLogTree(userID, runID, phase, status, detail string) {
	entry := models.ProgressEntry{Phase: phase, Detail: detail, Status: status, Timestamp: time.Now()}
	_ = o.store.AppendContextTreeProgress(context.Background(), runID, entry)
	o.emitProgress(userID, "context_tree", runID, phase, 0, 0, detail, status)
}

func (o *Orchestrator) getContextTreeRunHandler(c *gin.Context) {
	run, err := o.store.GetContextTreeRun(context.Background(), c.Param("id"))
	if err != nil {
		notFound(c, "run not found")
		return
	}
	c.JSON(http.StatusOK, run)
}

// restructureRequest is the POST body for proposing a tree restructure
// (§4.5 Restructure Proposer). Proposals are never auto-applied: the
// caller must re-submit the returned After tree via a follow-up update if
// they want it persisted.
type restructureRequest struct {
	NodeIDs     []string `json:"node_ids" binding:"required"`
	Instruction string   `json:"instruction" binding:"required"`
}

func (o *Orchestrator) restructureContextTreeHandler(c *gin.Context) {
	run, err := o.store.GetContextTreeRun(context.Background(), c.Param("id"))
	if err != nil {
		notFound(c, "run not found")
		return
	}
	if run.Tree == nil {
		badRequest(c, "run has no tree yet")
		return
	}

	var req restructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	provider, model := o.defaultLLM()
	proposal, err := contexttree.Propose(c.Request.Context(), o.llm, provider, model, run.Tree, req.NodeIDs, req.Instruction)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, proposal)
}
