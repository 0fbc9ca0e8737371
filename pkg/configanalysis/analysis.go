package configanalysis

import (
	"encoding/json"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// CategoryItems is one category's fan-out result, keyed by api-name, ready
// for fingerprinting.
type CategoryItems struct {
	Category string
	Items    map[string][]json.RawMessage
}

// Run builds the full config-analysis snapshot (§4.4 end to end) from the
// fan-out client's per-category results: fingerprint every item, then
// derive counters and clusters.
func Run(categories []CategoryItems) (fingerprints []models.ConfigFingerprint, inventory map[string]int, cs models.ConfigCounterSet, clusters []models.ConfigCluster) {
	inventory = map[string]int{}

	for _, cat := range categories {
		count := 0
		for apiName, items := range cat.Items {
			for _, raw := range items {
				fp, err := BuildFingerprint(cat.Category, apiName, raw)
				if err != nil {
					continue
				}
				fingerprints = append(fingerprints, fp)
				count++
			}
		}
		inventory[cat.Category] = count
	}

	cs = BuildCounters(fingerprints)
	clusters = BuildClusters(fingerprints)
	return fingerprints, inventory, cs, clusters
}
