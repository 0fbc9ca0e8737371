package sqlanalysis

import (
	"context"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/sqlparser"
)

// Run ties phases 0-1 and the counters/clusterer/classifier into one
// AnalysisRun-shaped result (§4.3 end to end), given already-validated SQL
// rows for one org.
func Run(ctx context.Context, parser sqlparser.Parser, dialect, analysisRunID string, rows []models.ExtractedSql, thresholds config.FilterThresholds) (fingerprints []models.AnalysisFingerprint, parseFailures []string, cs models.CounterSet, literalVals, aliasConv map[string]models.FreqTable, clusters []models.QueryCluster, filters []models.ClassifiedFilter, summary models.FingerprintSummary, totalWeight int) {
	inputs := make([]DedupInput, 0, len(rows))
	for _, r := range rows {
		if !r.IsValid {
			continue
		}
		inputs = append(inputs, DedupInput{SQL: r.CleanedSQL})
	}

	canonicalize := func(sql string) (string, bool) {
		pq, err := parser.Parse(ctx, dialect, sql)
		if err != nil {
			return "", false
		}
		return pq.CanonicalSQL, true
	}

	deduped := DedupPhase0(inputs, canonicalize)
	fingerprints, parseFailures = ExtractPhase1(ctx, parser, dialect, analysisRunID, deduped)

	cs, literalVals, aliasConv = BuildCounters(fingerprints)
	clusters = BuildClusters(fingerprints)
	filters = ClassifyFilters(fingerprints, thresholds)

	for _, fp := range fingerprints {
		w := fp.Frequency
		if w <= 0 {
			w = 1
		}
		totalWeight += w
	}
	summary = models.FingerprintSummary{
		UniqueQueries: len(fingerprints),
		TopColumns:    cs.QualifiedColumns.Top(10),
		TopTables:     cs.Tables.Top(10),
	}
	return
}
