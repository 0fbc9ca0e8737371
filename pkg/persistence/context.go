package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// CreateContextDoc inserts a new active ContextDoc.
func (s *Store) CreateContextDoc(ctx context.Context, d *models.ContextDoc) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_docs (id, source_type, source_run_id, org_id, doc_key, doc_name, doc_content, model, provider, system_prompt, payload, token_count, status, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		d.ID, d.SourceType, d.SourceRunID, d.OrgID, d.DocKey, d.DocName, d.DocContent, d.Model, d.Provider, d.SystemPrompt, d.Payload, d.TokenCount, d.Status, marshalJSON(d.Warnings), d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert context doc: %w", err)
	}
	return nil
}

// SupersedeContextDocs marks every currently-active doc for (orgID,
// sourceType) superseded, ahead of inserting a fresh generation — a doc
// "survives deletion of its generating AnalysisRun only if explicitly
// promoted; otherwise it cascades" (§3), so superseding rather than
// deleting is the default transition between generations.
func (s *Store) SupersedeContextDocs(ctx context.Context, orgID string, sourceType models.ContextDocSourceType) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE context_docs SET status = $3
		WHERE org_id = $1 AND source_type = $2 AND status = $4`,
		orgID, sourceType, models.DocStatusSuperseded, models.DocStatusActive)
	if err != nil {
		return fmt.Errorf("supersede context docs: %w", err)
	}
	return nil
}

// ListActiveContextDocs returns every active doc for orgID/sourceType,
// ordered by doc_key for a stable document sequence.
func (s *Store) ListActiveContextDocs(ctx context.Context, orgID string, sourceType models.ContextDocSourceType) ([]models.ContextDoc, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_type, source_run_id, org_id, doc_key, doc_name, doc_content, model, provider, system_prompt, payload, token_count, status, warnings, created_at
		FROM context_docs WHERE org_id = $1 AND source_type = $2 AND status = $3
		ORDER BY doc_key`, orgID, sourceType, models.DocStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active context docs: %w", err)
	}
	defer rows.Close()

	var out []models.ContextDoc
	for rows.Next() {
		var d models.ContextDoc
		var warnings []byte
		if err := rows.Scan(&d.ID, &d.SourceType, &d.SourceRunID, &d.OrgID, &d.DocKey, &d.DocName, &d.DocContent, &d.Model, &d.Provider, &d.SystemPrompt, &d.Payload, &d.TokenCount, &d.Status, &warnings, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan context doc: %w", err)
		}
		if err := unmarshalJSON(warnings, &d.Warnings); err != nil {
			return nil, fmt.Errorf("decode context doc warnings: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteContextDocsBySourceRun performs the explicit cascaded delete §4.6
// calls for: "for entities that do not cascade at the database level
// (context docs referenced by source_run_id without a foreign key), the
// facade performs explicit deletes first."
func (s *Store) DeleteContextDocsBySourceRun(ctx context.Context, sourceRunID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM context_docs WHERE source_run_id = $1`, sourceRunID)
	if err != nil {
		return fmt.Errorf("delete context docs by source run: %w", err)
	}
	return nil
}

// CreateContextTreeRun inserts a new running ContextTreeRun.
func (s *Store) CreateContextTreeRun(ctx context.Context, r *models.ContextTreeRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO context_tree_runs (id, org_id, input_source_summary, tree_data, model, token_usage, progress_data, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.OrgID, r.InputSummary, marshalJSON(r.Tree), r.Model, r.TokenUsage, marshalJSON(r.Progress), r.Status, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert context tree run: %w", err)
	}
	return nil
}

// AppendContextTreeProgress appends one entry to the run's ordered,
// append-only progress log (§3: "progress-data (ordered append-only log of
// phase/detail/status triples)"). The entry is appended in a single UPDATE
// by concatenating a one-element jsonb array onto progress_data.
func (s *Store) AppendContextTreeProgress(ctx context.Context, id string, entry models.ProgressEntry) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE context_tree_runs SET progress_data = progress_data || $2::jsonb WHERE id = $1`,
		id, marshalJSON([]models.ProgressEntry{entry}))
	if err != nil {
		return fmt.Errorf("append context tree progress: %w", err)
	}
	return nil
}

// UpdateContextTreeResult persists the current tree shape and token usage
// without changing status, used after each tree-building phase.
func (s *Store) UpdateContextTreeResult(ctx context.Context, id string, tree *models.Node, tokenUsage int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE context_tree_runs SET tree_data = $2, token_usage = $3 WHERE id = $1`,
		id, marshalJSON(tree), tokenUsage)
	if err != nil {
		return fmt.Errorf("update context tree result: %w", err)
	}
	return nil
}

// CompleteContextTreeRun sets the run's terminal status and completed_at.
func (s *Store) CompleteContextTreeRun(ctx context.Context, id string, status models.RunStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("persistence: CompleteContextTreeRun requires a terminal status, got %q", status)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE context_tree_runs SET status = $2, completed_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete context tree run: %w", err)
	}
	return nil
}

// GetContextTreeRun loads one ContextTreeRun by id.
func (s *Store) GetContextTreeRun(ctx context.Context, id string) (*models.ContextTreeRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, org_id, input_source_summary, tree_data, model, token_usage, progress_data, status, created_at, completed_at
		FROM context_tree_runs WHERE id = $1`, id)

	var r models.ContextTreeRun
	var tree, progress []byte
	if err := row.Scan(&r.ID, &r.OrgID, &r.InputSummary, &tree, &r.Model, &r.TokenUsage, &progress, &r.Status, &r.CreatedAt, &r.CompletedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get context tree run: %w", err)
	}
	if len(tree) > 0 {
		var node models.Node
		if err := unmarshalJSON(tree, &node); err != nil {
			return nil, fmt.Errorf("decode context tree run tree: %w", err)
		}
		r.Tree = &node
	}
	if err := unmarshalJSON(progress, &r.Progress); err != nil {
		return nil, fmt.Errorf("decode context tree run progress: %w", err)
	}
	return &r, nil
}
