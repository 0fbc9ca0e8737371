package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/google/uuid"
)

// BulkInsertConfigAPIRequests inserts fan-out request records in one
// multi-row statement (§4.4 Fan-Out API Client).
func (s *Store) BulkInsertConfigAPIRequests(ctx context.Context, configExtractionRunID string, rows []models.ConfigAPIRequestRecord) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildBulkInsert(
		"config_api_requests",
		[]string{"id", "config_extraction_run_id", "api_name", "status", "http_status", "item_count", "duration_ms", "error_message", "response_bytes"},
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{uuid.New().String(), configExtractionRunID, r.APIName, r.Status, r.HTTPStatus, r.ItemCount, r.DurationMS, nullIfEmpty(r.ErrorMessage), r.ResponseBytes}
		},
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk insert config api requests: %w", err)
	}
	return nil
}

// CreateConfigAnalysisRun assigns the run's version atomically as
// max(existing)+1 for (config_extraction_run_id, org_id), mirroring
// CreateAnalysisRun for the config pipeline.
func (s *Store) CreateConfigAnalysisRun(ctx context.Context, r *models.ConfigAnalysisRun) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO config_analysis_runs (id, config_extraction_run_id, org_id, version, status, inventory, structural_summaries, fingerprints, counters, clusters, created_at)
		SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, $4, $5, $6, $7, $8, $9, $10
		FROM config_analysis_runs WHERE config_extraction_run_id = $2 AND org_id = $3
		RETURNING version`,
		r.ID, r.ConfigExtractionRunID, r.OrgID, r.Status, marshalJSON(r.Inventory), marshalJSON(r.StructuralSummaries),
		marshalJSON(r.Fingerprints), marshalJSON(r.Counters), marshalJSON(r.Clusters), r.CreatedAt)

	if err := row.Scan(&r.Version); err != nil {
		return fmt.Errorf("create config analysis run: %w", err)
	}
	return nil
}

// GetConfigAnalysisRun loads one ConfigAnalysisRun by id.
func (s *Store) GetConfigAnalysisRun(ctx context.Context, id string) (*models.ConfigAnalysisRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, config_extraction_run_id, org_id, version, status, inventory, structural_summaries, fingerprints, counters, clusters, created_at
		FROM config_analysis_runs WHERE id = $1`, id)

	var r models.ConfigAnalysisRun
	var inventory, summaries, fingerprints, counters, clusters []byte
	if err := row.Scan(&r.ID, &r.ConfigExtractionRunID, &r.OrgID, &r.Version, &r.Status, &inventory, &summaries, &fingerprints, &counters, &clusters, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get config analysis run: %w", err)
	}
	for dst, src := range map[any][]byte{&r.Inventory: inventory, &r.StructuralSummaries: summaries, &r.Fingerprints: fingerprints, &r.Counters: counters, &r.Clusters: clusters} {
		if err := unmarshalJSON(src, dst); err != nil {
			return nil, fmt.Errorf("decode config analysis run: %w", err)
		}
	}
	return &r, nil
}
