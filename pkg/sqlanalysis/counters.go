package sqlanalysis

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BuildCounters implements §4.3 Frequency Counters: twelve weighted
// counters (weighted by each fingerprint's Frequency) plus literal_vals and
// alias_conv. literal_vals/alias_conv are accumulated in an ordered map but
// returned as plain Go maps, so insertion order is not kept; their JSON
// form has sorted keys because encoding/json sorts map keys.
func BuildCounters(fingerprints []models.AnalysisFingerprint) (models.CounterSet, map[string]models.FreqTable, map[string]models.FreqTable) {
	cs := models.NewCounterSet()

	literalVals := orderedmap.New[string, models.FreqTable]()
	aliasConv := orderedmap.New[string, models.FreqTable]()

	for _, fp := range fingerprints {
		w := fp.Frequency
		if w <= 0 {
			w = 1
		}

		for _, t := range fp.Tables {
			cs.Tables.Add(t, w)
		}
		for _, c := range fp.QualifiedColumns {
			cs.QualifiedColumns.Add(c, w)
		}
		for _, f := range fp.Functions {
			cs.Functions.Add(f, w)
		}
		for _, edge := range fp.JoinEdges {
			pairKey := unorderedPairKey(edge.Left, edge.Right)
			cs.TablePairs.Add(pairKey, w)
			if _, exists := cs.JoinConditions[pairKey]; !exists {
				cs.JoinConditions[pairKey] = edge.Condition
			}
		}
		for _, pred := range fp.WherePredicates {
			cs.WherePredicates.Add(normalizePredicate(pred), w)
		}
		for _, g := range fp.GroupBy {
			cs.GroupBy.Add(g, w)
		}
		for _, pair := range aggColumnPairsIn(fp.CanonicalSQL) {
			cs.AggColumnPairs.Add(pair, w)
		}
		for _, o := range fp.OrderBy {
			cs.OrderBy.Add(o, w)
		}

		addFlag(cs.StructuralFlags, "cte", fp.Flags.CTE, w)
		addFlag(cs.StructuralFlags, "window", fp.Flags.Window, w)
		addFlag(cs.StructuralFlags, "union", fp.Flags.Union, w)
		addFlag(cs.StructuralFlags, "case", fp.Flags.Case, w)
		addFlag(cs.StructuralFlags, "subquery", fp.Flags.Subquery, w)
		addFlag(cs.StructuralFlags, "having", fp.Flags.Having, w)
		addFlag(cs.StructuralFlags, "order_by", fp.Flags.OrderBy, w)
		addFlag(cs.StructuralFlags, "distinct", fp.Flags.Distinct, w)
		addFlag(cs.StructuralFlags, "limit", fp.Flags.Limit, w)

		if fp.LimitValue != nil {
			cs.LimitValues.Add(fmt.Sprint(*fp.LimitValue), w)
		}
		cs.SelectColumnCounts.Add(fmt.Sprint(fp.SelectColumnCount), w)

		for col, vals := range fp.Literals {
			table, ok := literalVals.Get(col)
			if !ok {
				table = models.FreqTable{}
				literalVals.Set(col, table)
			}
			for _, v := range vals {
				table.Add(v, w)
			}
		}
		for alias, table := range fp.AliasMap {
			aliasTable, ok := aliasConv.Get(table)
			if !ok {
				aliasTable = models.FreqTable{}
				aliasConv.Set(table, aliasTable)
			}
			aliasTable.Add(alias, w)
		}
	}

	return cs, orderedToPlain(literalVals), orderedToPlain(aliasConv)
}

func orderedToPlain(om *orderedmap.OrderedMap[string, models.FreqTable]) map[string]models.FreqTable {
	out := make(map[string]models.FreqTable, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

func addFlag(ft models.FreqTable, name string, set bool, weight int) {
	if set {
		ft.Add(name, weight)
	}
}

func unorderedPairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func normalizePredicate(pred string) string {
	return strings.Join(strings.Fields(pred), " ")
}

var aggCallRe = regexp.MustCompile(`(?i)\b(sum|count|avg|min|max)\s*\(\s*(distinct\s+)?([\w.*]+)\s*\)`)

// aggColumnPairsIn scans canonical SQL text for literal aggregate-function
// calls, yielding "func(col)" pairs (§4.3: "(aggregate-function, column)
// pairs").
func aggColumnPairsIn(canonicalSQL string) []string {
	var out []string
	for _, m := range aggCallRe.FindAllStringSubmatch(canonicalSQL, -1) {
		fn := strings.ToLower(m[1])
		col := m[3]
		out = append(out, fmt.Sprintf("%s(%s)", fn, col))
	}
	return out
}
