package sqlanalysis

import (
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// ClassifyFilters implements §4.3 Filter Classifier: "global" uses total
// weight across every fingerprint; "per-table" uses the sum of
// frequencies of queries touching that table. A predicate is mandatory if
// its global weight fraction clears thresholds.Mandatory; otherwise it is
// table_default/common if its weight fraction within some table it
// appears in clears thresholds.TableDefault/Common; otherwise
// situational.
func ClassifyFilters(fingerprints []models.AnalysisFingerprint, thresholds config.FilterThresholds) []models.ClassifiedFilter {
	totalWeightByTable := map[string]int{}
	weightByPredicateTable := map[string]map[string]int{}
	globalWeight := map[string]int{}
	var totalWeightAll int
	var predicateOrder []string
	seenPredicate := map[string]bool{}

	for _, fp := range fingerprints {
		w := fp.Frequency
		if w <= 0 {
			w = 1
		}
		totalWeightAll += w
		for _, t := range fp.Tables {
			totalWeightByTable[t] += w
		}
		for _, pred := range fp.WherePredicates {
			pred = normalizePredicate(pred)
			if !seenPredicate[pred] {
				seenPredicate[pred] = true
				predicateOrder = append(predicateOrder, pred)
			}
			globalWeight[pred] += w
			if weightByPredicateTable[pred] == nil {
				weightByPredicateTable[pred] = map[string]int{}
			}
			for _, t := range fp.Tables {
				weightByPredicateTable[pred][t] += w
			}
		}
	}

	var out []models.ClassifiedFilter
	for _, pred := range predicateOrder {
		globalPct := 0.0
		if totalWeightAll > 0 {
			globalPct = float64(globalWeight[pred]) / float64(totalWeightAll)
		}

		perTablePct := map[string]float64{}
		maxTablePct := 0.0
		for table, w := range weightByPredicateTable[pred] {
			tableTotal := totalWeightByTable[table]
			if tableTotal == 0 {
				continue
			}
			pct := float64(w) / float64(tableTotal)
			perTablePct[table] = pct
			if pct > maxTablePct {
				maxTablePct = pct
			}
		}

		tier := models.TierSituational
		switch {
		case globalPct >= thresholds.Mandatory:
			tier = models.TierMandatory
		case maxTablePct >= thresholds.TableDefault:
			tier = models.TierTableDefault
		case maxTablePct >= thresholds.Common:
			tier = models.TierCommon
		}

		out = append(out, models.ClassifiedFilter{
			Condition:   pred,
			Tier:        tier,
			GlobalPct:   globalPct,
			PerTablePct: perTablePct,
		})
	}
	return out
}
