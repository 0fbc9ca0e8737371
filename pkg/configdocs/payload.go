// Package configdocs implements the Configuration Object Pipeline's
// Payload Builder & Document Author (§4.4): org profile, entity catalog,
// field reference, config standards payload sections, and the
// post-authoring forbidden-audit-language / entity-name-presence checks.
package configdocs

import (
	"encoding/json"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// slotEntityTypes binds each of the five fixed slots to the entity-types it
// covers (§4.4).
var slotEntityTypes = map[config.DocSlot][]string{
	config.SlotLoyalty:     {"loyalty_tier", "loyalty_rule"},
	config.SlotCampaign:    {"campaign"},
	config.SlotPromotion:   {"promotion"},
	config.SlotAudience:    {"audience"},
	config.SlotCustomizing: {"extended_field", "org_setting"},
}

// Snapshot is the config-analysis data one payload draws from.
type Snapshot struct {
	Inventory map[string]int
	Counters  models.ConfigCounterSet
	Clusters  []models.ConfigCluster
}

// Payload is one slot's JSON-serialized payload (§4.4 sections: org
// profile, entity catalog, field reference, config standards).
type Payload struct {
	Slot config.DocSlot
	JSON string
}

// BuildPayloads builds the five fixed slots.
func BuildPayloads(snap Snapshot) (map[config.DocSlot]Payload, error) {
	out := map[config.DocSlot]Payload{}
	for slot, types := range slotEntityTypes {
		clusters := clustersForTypes(snap.Clusters, types)
		data := map[string]any{
			"org_profile":     orgProfile(snap, types),
			"entity_catalog":  entityCatalog(clusters),
			"field_reference": fieldReference(snap.Counters, types),
			"config_standards": configStandards(clusters),
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		out[slot] = Payload{Slot: slot, JSON: string(raw)}
	}
	return out, nil
}

func clustersForTypes(clusters []models.ConfigCluster, types []string) []models.ConfigCluster {
	wanted := map[string]bool{}
	for _, t := range types {
		wanted[t] = true
	}
	var out []models.ConfigCluster
	for _, c := range clusters {
		if wanted[c.EntityType] {
			out = append(out, c)
		}
	}
	return out
}

// orgProfile summarizes, for the entity-types this slot covers, each type's
// weighted entity count, a naming convention, and the org's top separator
// styles. Every type is given the org-wide top naming prefix rather than a
// prefix detected per type, and no channel distribution is included.
func orgProfile(snap Snapshot, types []string) map[string]any {
	counts := map[string]int{}
	for _, t := range types {
		counts[t] = snap.Counters.EntityType[t]
	}
	namingConventions := map[string]string{}
	for _, t := range types {
		if p := snap.Counters.NamingPrefix.Top(1); len(p) > 0 {
			namingConventions[t] = p[0]
		}
	}
	return map[string]any{
		"entity_counts":      counts,
		"naming_conventions": namingConventions,
		"separator_styles":   snap.Counters.NamingSeparator.Top(3),
	}
}

// entityCatalog returns one entry per cluster: its template fingerprint ids,
// common fields, top values, naming pattern and structural counts. The
// templates' full JSON bodies are not included.
func entityCatalog(clusters []models.ConfigCluster) []map[string]any {
	out := make([]map[string]any, 0, len(clusters))
	for _, c := range clusters {
		out = append(out, map[string]any{
			"entity_type":    c.EntityType,
			"subtype":        c.Subtype,
			"template_ids":   c.TemplateIDs,
			"common_fields":  c.CommonFields,
			"top_values":     c.TopValues,
			"naming_prefix":  c.NamingPrefix,
			"separator":      c.SeparatorStyle,
			"structural":     c.StructuralCounts,
		})
	}
	return out
}

// fieldReference builds the union schema of the slot's entity-types as a
// per-field presence_pct (the field's weight over its entity-type's total
// weight). Field types and sample values are not included, and a field seen
// under several of the slot's entity-types keeps whichever pct is written
// last.
func fieldReference(cs models.ConfigCounterSet, types []string) map[string]any {
	fields := map[string]any{}
	totalByType := map[string]int{}
	for _, t := range types {
		totalByType[t] = cs.EntityType[t]
	}
	for key, count := range cs.EntityFieldUsage {
		entity, field, ok := splitPair(key)
		if !ok || !contains(types, entity) {
			continue
		}
		total := totalByType[entity]
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total)
		}
		fieldEntry, _ := fields[field].(map[string]any)
		if fieldEntry == nil {
			fieldEntry = map[string]any{}
		}
		fieldEntry["presence_pct"] = pct
		fields[field] = fieldEntry
	}
	return fields
}

// configStandards infers one rule per cluster field from its top values: a
// field with a single top value is reported as dominant_value, a field with
// several as an enumeration. No share threshold is computed; the top values
// carry no counts.
func configStandards(clusters []models.ConfigCluster) []map[string]any {
	var out []map[string]any
	for _, c := range clusters {
		for field, values := range c.TopValues {
			if len(values) == 1 {
				out = append(out, map[string]any{
					"rule":  "dominant_value",
					"field": field,
					"value": values[0],
				})
			} else if len(values) > 1 {
				out = append(out, map[string]any{
					"rule":   "enumeration",
					"field":  field,
					"values": values,
				})
			}
		}
	}
	return out
}

func splitPair(key string) (a, b string, ok bool) {
	idx := strings.Index(key, "|")
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
