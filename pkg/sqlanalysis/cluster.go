package sqlanalysis

import (
	"sort"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// noTablesSignature is the table-signature clusterer's bucket for queries
// touching no tables (§4.3: "__NONE__ if empty").
const noTablesSignature = "__NONE__"

func tableSignature(tables []string) string {
	if len(tables) == 0 {
		return noTablesSignature
	}
	sorted := append([]string(nil), tables...)
	sort.Strings(sorted)
	dedup := sorted[:0]
	var last string
	for i, t := range sorted {
		if i == 0 || t != last {
			dedup = append(dedup, t)
			last = t
		}
	}
	return strings.Join(dedup, "|")
}

// BuildClusters implements §4.3 Query Clusterer: group by table signature,
// select a representative (shortest raw SQL) and complex (longest) per
// cluster, and record per-cluster top functions/group-by/where-predicates
// by weighted frequency.
func BuildClusters(fingerprints []models.AnalysisFingerprint) []models.QueryCluster {
	type bucket struct {
		ids        []string
		functions  models.FreqTable
		groupBy    models.FreqTable
		where      models.FreqTable
		totalWeight int
		repID      string
		repLen     int
		complexID  string
		complexLen int
	}
	buckets := map[string]*bucket{}
	var order []string

	for _, fp := range fingerprints {
		sig := tableSignature(fp.Tables)
		b, ok := buckets[sig]
		if !ok {
			b = &bucket{functions: models.FreqTable{}, groupBy: models.FreqTable{}, where: models.FreqTable{}}
			buckets[sig] = b
			order = append(order, sig)
		}

		w := fp.Frequency
		if w <= 0 {
			w = 1
		}
		b.ids = append(b.ids, fp.ID)
		b.totalWeight += w
		for _, f := range fp.Functions {
			b.functions.Add(f, w)
		}
		for _, g := range fp.GroupBy {
			b.groupBy.Add(g, w)
		}
		for _, p := range fp.WherePredicates {
			b.where.Add(p, w)
		}

		n := len(fp.RawSQL)
		if b.repID == "" || n < b.repLen {
			b.repID, b.repLen = fp.ID, n
		}
		if b.complexID == "" || n > b.complexLen {
			b.complexID, b.complexLen = fp.ID, n
		}
	}

	clusters := make([]models.QueryCluster, 0, len(order))
	for _, sig := range order {
		b := buckets[sig]
		clusters = append(clusters, models.QueryCluster{
			TableSignature:     sig,
			FingerprintIDs:     b.ids,
			RepresentativeID:   b.repID,
			ComplexID:          b.complexID,
			TopFunctions:       b.functions.Top(10),
			TopGroupBy:         b.groupBy.Top(10),
			TopWherePredicates: b.where.Top(10),
			TotalWeight:        b.totalWeight,
		})
	}
	return clusters
}
