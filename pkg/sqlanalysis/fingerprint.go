package sqlanalysis

import (
	"context"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/sqlparser"
	"github.com/google/uuid"
)

// ExtractPhase1 implements §4.3 phase 1: for each deduped unique query,
// parse it and build its full AnalysisFingerprint. A per-query parse
// failure is recorded and skipped rather than aborting the run. Queries are
// parsed one after another in the calling goroutine; Run calls it directly,
// with no worker pool.
func ExtractPhase1(ctx context.Context, parser sqlparser.Parser, dialect, analysisRunID string, queries []dedupedQuery) (fingerprints []models.AnalysisFingerprint, failures []string) {
	for _, q := range queries {
		pq, err := parser.Parse(ctx, dialect, q.SQL)
		if err != nil {
			failures = append(failures, fmt.Sprintf("parse failed for query (freq=%d): %v", q.Freq, err))
			continue
		}

		fp := models.AnalysisFingerprint{
			ID:                uuid.New().String(),
			AnalysisRunID:     analysisRunID,
			Tables:            pq.Tables,
			AliasMap:          pq.AliasMap,
			QualifiedColumns:  pq.QualifiedColumns,
			Functions:         pq.Functions,
			JoinEdges:         pq.JoinEdges,
			WherePredicates:   pq.WherePredicates,
			GroupBy:           pq.GroupBy,
			Having:            pq.Having,
			OrderBy:           pq.OrderBy,
			Literals:          pq.Literals,
			CaseWhenBlocks:    pq.CaseWhenBlocks,
			WindowExprs:       pq.WindowExprs,
			Flags:             pq.Flags,
			LimitValue:        pq.LimitValue,
			SelectColumnCount: pq.SelectColumnCount,
			RawSQL:            q.SQL,
			CanonicalSQL:      pq.CanonicalSQL,
			NLHint:            q.NLHint,
			Frequency:         q.Freq,
		}
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints, failures
}
