package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// BulkInsertExtractedSQL inserts rows in one multi-row statement (§4.6:
// "Analysis and extraction writes are bulk-inserted"). A conflicting
// (org_id, content_hash) among valid rows is skipped rather than erroring,
// since duplicate detection is an expected outcome of crawling overlapping
// notebooks, not a failure.
func (s *Store) BulkInsertExtractedSQL(ctx context.Context, rows []models.ExtractedSql) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildBulkInsert(
		"extracted_sql",
		[]string{"id", "run_id", "org_id", "notebook_path", "notebook_name", "language", "cell_index", "file_type", "cleaned_sql", "content_hash", "is_valid", "redacted_snippet", "created_at"},
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.ID, r.RunID, r.OrgID, r.NotebookPath, r.NotebookName, r.Language, r.CellIndex, r.FileType, r.CleanedSQL, r.ContentHash, r.IsValid, r.RedactedSnippet, r.CreatedAt}
		},
	)
	query += " ON CONFLICT (org_id, content_hash) WHERE is_valid DO NOTHING"

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk insert extracted sql: %w", err)
	}
	return nil
}

// BulkInsertNotebookMetadata inserts rows in one multi-row statement.
func (s *Store) BulkInsertNotebookMetadata(ctx context.Context, rows []models.NotebookMetadata) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildBulkInsert(
		"notebook_metadata",
		[]string{"run_id", "path", "language", "created_at", "modified_at", "content_present", "status", "jobs"},
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.RunID, r.Path, r.Language, r.CreatedAt, r.ModifiedAt, r.ContentPresent, r.Status, marshalJSON(r.Jobs)}
		},
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk insert notebook metadata: %w", err)
	}
	return nil
}

// CreateAnalysisRun assigns the run's version atomically as max(existing)+1
// for (extraction_run_id, org_id) and inserts the row in the same statement,
// satisfying §3's "version is assigned atomically" invariant without a
// separate read-then-write race window.
func (s *Store) CreateAnalysisRun(ctx context.Context, r *models.AnalysisRun) error {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO analysis_runs (id, extraction_run_id, org_id, version, status, counters, clusters, classified_filters, fingerprint_summary, literal_vals, alias_conv, total_weight, created_at)
		SELECT $1, $2, $3, COALESCE(MAX(version), 0) + 1, $4, $5, $6, $7, $8, $9, $10, $11, $12
		FROM analysis_runs WHERE extraction_run_id = $2 AND org_id = $3
		RETURNING version`,
		r.ID, r.ExtractionRunID, r.OrgID, r.Status, marshalJSON(r.Counters), marshalJSON(r.Clusters),
		marshalJSON(r.ClassifiedFilters), marshalJSON(r.FingerprintSummary), marshalJSON(r.LiteralVals),
		marshalJSON(r.AliasConv), r.TotalWeight, r.CreatedAt)

	if err := row.Scan(&r.Version); err != nil {
		return fmt.Errorf("create analysis run: %w", err)
	}
	return nil
}

// GetAnalysisRun loads one AnalysisRun by id.
func (s *Store) GetAnalysisRun(ctx context.Context, id string) (*models.AnalysisRun, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, extraction_run_id, org_id, version, status, counters, clusters, classified_filters, fingerprint_summary, literal_vals, alias_conv, total_weight, created_at
		FROM analysis_runs WHERE id = $1`, id)

	var r models.AnalysisRun
	var counters, clusters, filters, summary, litVals, aliasConv []byte
	if err := row.Scan(&r.ID, &r.ExtractionRunID, &r.OrgID, &r.Version, &r.Status, &counters, &clusters, &filters, &summary, &litVals, &aliasConv, &r.TotalWeight, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get analysis run: %w", err)
	}
	for dst, src := range map[any][]byte{&r.Counters: counters, &r.Clusters: clusters, &r.ClassifiedFilters: filters, &r.FingerprintSummary: summary, &r.LiteralVals: litVals, &r.AliasConv: aliasConv} {
		if err := unmarshalJSON(src, dst); err != nil {
			return nil, fmt.Errorf("decode analysis run: %w", err)
		}
	}
	return &r, nil
}

// BulkInsertAnalysisFingerprints inserts rows in one multi-row statement.
func (s *Store) BulkInsertAnalysisFingerprints(ctx context.Context, rows []models.AnalysisFingerprint) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildBulkInsert(
		"analysis_fingerprints",
		[]string{"id", "analysis_run_id", "tables", "alias_map", "qualified_columns", "functions", "join_edges", "where_predicates", "group_by", "having", "order_by", "literals", "case_when_blocks", "window_exprs", "flags", "limit_value", "select_column_count", "raw_sql", "canonical_sql", "nl_hint", "frequency"},
		len(rows),
		func(i int) []any {
			r := rows[i]
			return []any{r.ID, r.AnalysisRunID, marshalJSON(r.Tables), marshalJSON(r.AliasMap), marshalJSON(r.QualifiedColumns), marshalJSON(r.Functions), marshalJSON(r.JoinEdges), marshalJSON(r.WherePredicates), marshalJSON(r.GroupBy), marshalJSON(r.Having), marshalJSON(r.OrderBy), marshalJSON(r.Literals), marshalJSON(r.CaseWhenBlocks), marshalJSON(r.WindowExprs), marshalJSON(r.Flags), r.LimitValue, r.SelectColumnCount, r.RawSQL, r.CanonicalSQL, nullIfEmpty(r.NLHint), r.Frequency}
		},
	)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("bulk insert analysis fingerprints: %w", err)
	}
	return nil
}

// ListAnalysisFingerprints loads every fingerprint belonging to one analysis
// run, used by the Payload Builder and Cross-Document Validator.
func (s *Store) ListAnalysisFingerprints(ctx context.Context, analysisRunID string) ([]models.AnalysisFingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, analysis_run_id, tables, alias_map, qualified_columns, functions, join_edges, where_predicates, group_by, having, order_by, literals, case_when_blocks, window_exprs, flags, limit_value, select_column_count, raw_sql, canonical_sql, nl_hint, frequency
		FROM analysis_fingerprints WHERE analysis_run_id = $1`, analysisRunID)
	if err != nil {
		return nil, fmt.Errorf("list analysis fingerprints: %w", err)
	}
	defer rows.Close()

	var out []models.AnalysisFingerprint
	for rows.Next() {
		var r models.AnalysisFingerprint
		var tables, aliasMap, qcols, fns, joins, wherePreds, groupBy, having, orderBy, literals, caseWhen, windowExprs, flags []byte
		var nlHint sql.NullString
		if err := rows.Scan(&r.ID, &r.AnalysisRunID, &tables, &aliasMap, &qcols, &fns, &joins, &wherePreds, &groupBy, &having, &orderBy, &literals, &caseWhen, &windowExprs, &flags, &r.LimitValue, &r.SelectColumnCount, &r.RawSQL, &r.CanonicalSQL, &nlHint, &r.Frequency); err != nil {
			return nil, fmt.Errorf("scan analysis fingerprint: %w", err)
		}
		for dst, src := range map[any][]byte{&r.Tables: tables, &r.AliasMap: aliasMap, &r.QualifiedColumns: qcols, &r.Functions: fns, &r.JoinEdges: joins, &r.WherePredicates: wherePreds, &r.GroupBy: groupBy, &r.Having: having, &r.OrderBy: orderBy, &r.Literals: literals, &r.CaseWhenBlocks: caseWhen, &r.WindowExprs: windowExprs, &r.Flags: flags} {
			if err := unmarshalJSON(src, dst); err != nil {
				return nil, fmt.Errorf("decode analysis fingerprint: %w", err)
			}
		}
		r.NLHint = nlHint.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// buildBulkInsert renders a single multi-row INSERT statement for table with
// the given columns, one VALUES group per row via rowArgs(i).
func buildBulkInsert(table string, columns []string, n int, rowArgs func(i int) []any) (string, []any) {
	query := "INSERT INTO " + table + " (" + joinColumns(columns) + ") VALUES "
	args := make([]any, 0, n*len(columns))
	placeholder := 1
	for i := 0; i < n; i++ {
		if i > 0 {
			query += ", "
		}
		query += "("
		for j := range columns {
			if j > 0 {
				query += ", "
			}
			query += fmt.Sprintf("$%d", placeholder)
			placeholder++
		}
		query += ")"
		args = append(args, rowArgs(i)...)
	}
	return query, args
}

func joinColumns(columns []string) string {
	out := ""
	for i, c := range columns {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
