package configanalysis

import (
	"sort"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// BuildClusters implements §4.4 Config Clusterer: group fingerprints by
// (entity-type, entity-subtype), pick up to five templates by diversity
// (simplest, most complex, then evenly-spaced picks from the middle,
// deduplicated), and record common fields (>=70% of members), top values
// per field, and naming-pattern detection.
func BuildClusters(fingerprints []models.ConfigFingerprint) []models.ConfigCluster {
	type bucket struct {
		members []models.ConfigFingerprint
	}
	buckets := map[[2]string]*bucket{}
	var order [][2]string

	for _, fp := range fingerprints {
		key := [2]string{fp.EntityType, fp.Subtype}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		b.members = append(b.members, fp)
	}

	clusters := make([]models.ConfigCluster, 0, len(order))
	for _, key := range order {
		members := buckets[key].members
		cluster := models.ConfigCluster{
			EntityType:       key[0],
			Subtype:          key[1],
			TemplateIDs:      diverseTemplates(members),
			CommonFields:     commonFields(members),
			TopValues:        topValues(members),
			StructuralCounts: structuralCounts(members),
		}
		for _, m := range members {
			cluster.FingerprintIDs = append(cluster.FingerprintIDs, m.ID)
			w := m.Frequency
			if w <= 0 {
				w = 1
			}
			cluster.TotalWeight += w
		}
		if prefix, sep, ok := namingPattern(members); ok {
			cluster.NamingPrefix = prefix
			cluster.SeparatorStyle = sep
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// diverseTemplates picks up to five fingerprint ids by diversity: the
// simplest and most complex (sorted by depth*field-count), then
// evenly-spaced picks from the middle, deduplicated.
func diverseTemplates(members []models.ConfigFingerprint) []string {
	if len(members) == 0 {
		return nil
	}
	sorted := append([]models.ConfigFingerprint(nil), members...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MaxDepth*sorted[i].TotalFieldCount < sorted[j].MaxDepth*sorted[j].TotalFieldCount
	})

	const maxTemplates = 5
	picked := map[string]bool{}
	var ids []string
	add := func(idx int) {
		if idx < 0 || idx >= len(sorted) {
			return
		}
		id := sorted[idx].ID
		if picked[id] {
			return
		}
		picked[id] = true
		ids = append(ids, id)
	}

	add(0)
	add(len(sorted) - 1)
	remaining := maxTemplates - len(ids)
	if remaining > 0 && len(sorted) > 2 {
		step := float64(len(sorted)-1) / float64(remaining+1)
		for i := 1; i <= remaining; i++ {
			add(int(step * float64(i)))
			if len(ids) >= maxTemplates {
				break
			}
		}
	}
	return ids
}

// commonFields returns fields present in at least 70% of members.
func commonFields(members []models.ConfigFingerprint) []string {
	if len(members) == 0 {
		return nil
	}
	counts := map[string]int{}
	var order []string
	for _, m := range members {
		for _, f := range m.FieldNames {
			if counts[f] == 0 {
				order = append(order, f)
			}
			counts[f]++
		}
	}
	var out []string
	threshold := 0.70 * float64(len(members))
	for _, f := range order {
		if float64(counts[f]) >= threshold {
			out = append(out, f)
		}
	}
	return out
}

// topValues returns, per field, the top categorical values seen across
// members.
func topValues(members []models.ConfigFingerprint) map[string][]string {
	tables := map[string]models.FreqTable{}
	var order []string
	for _, m := range members {
		for field, vals := range m.CategoricalVals {
			t, ok := tables[field]
			if !ok {
				t = models.FreqTable{}
				tables[field] = t
				order = append(order, field)
			}
			for _, v := range vals {
				t.Add(v, 1)
			}
		}
	}
	out := make(map[string][]string, len(order))
	for _, field := range order {
		out[field] = tables[field].Top(5)
	}
	return out
}

func structuralCounts(members []models.ConfigFingerprint) map[string]int {
	counts := map[string]int{"has_rules": 0, "has_conditions": 0, "has_workflow": 0}
	for _, m := range members {
		if m.HasRules {
			counts["has_rules"]++
		}
		if m.HasConditions {
			counts["has_conditions"]++
		}
		if m.HasWorkflow {
			counts["has_workflow"]++
		}
	}
	return counts
}

// namingPattern detects a shared naming prefix (>=30% of members) and the
// prevailing separator style.
func namingPattern(members []models.ConfigFingerprint) (prefix, separator string, ok bool) {
	prefixCounts := map[string]int{}
	sepCounts := map[string]int{}
	var prefixOrder []string
	for _, m := range members {
		if p, has := namingPrefix(m.EntityName); has {
			if prefixCounts[p] == 0 {
				prefixOrder = append(prefixOrder, p)
			}
			prefixCounts[p]++
		}
		sepCounts[namingSeparator(m.EntityName)]++
	}

	threshold := 0.30 * float64(len(members))
	bestPrefix, bestCount := "", 0
	for _, p := range prefixOrder {
		if prefixCounts[p] > bestCount {
			bestPrefix, bestCount = p, prefixCounts[p]
		}
	}
	if float64(bestCount) >= threshold && bestCount > 0 {
		prefix = bestPrefix
		ok = true
	}

	bestSep, bestSepCount := "", 0
	for sep, c := range sepCounts {
		if c > bestSepCount {
			bestSep, bestSepCount = sep, c
		}
	}
	separator = bestSep
	return prefix, separator, ok
}
