// Package sqldocs implements the Payload Builder & Document Author,
// Cross-Document Validator, and Focus-Doc Assessor for the SQL Corpus
// Pipeline (§4.3). Grounded on the original's
// apps/api/app/services/sql_analysis.py document-authoring pass and the
// teacher's pkg/llmgw Gateway for the LLM calls themselves.
package sqldocs

import (
	"encoding/json"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// maxPayloadChars is the hard JSON-serialized payload cap (§4.3).
const maxPayloadChars = 200_000

// Overrides lets a caller toggle individual items out of a slot's payload
// before construction (§4.3: "Inclusion overrides").
type Overrides struct {
	ExcludeTables     map[string]bool
	ExcludeColumns    map[string]bool
	ExcludeFunctions  map[string]bool
}

// Payload is one doc slot's JSON-serializable content plus its
// strip_stats variant.
type Payload struct {
	Slot       config.DocSlot
	JSON       string // full payload, capped at maxPayloadChars
	StripStats string // display-only count/percent keys removed
}

// statsKeys are the display-only keys stripped for the LLM-facing variant
// (§4.3: "a strip_stats variant for LLM payloads that removes
// display-only count/percent keys").
var statsKeys = map[string]bool{
	"global_pct": true, "per_table_pct": true, "total_weight": true,
	"frequency": true, "top_functions": true, "top_group_by": true, "top_where_predicates": true,
}

// BuildPayloads builds the five fixed §4.3 doc slots from one AnalysisRun's
// data. o may be nil for no overrides.
func BuildPayloads(run *models.AnalysisRun, o *Overrides) (map[config.DocSlot]Payload, error) {
	if o == nil {
		o = &Overrides{}
	}

	master := map[string]any{
		"dialect_rules": "standard SQL structural conventions observed in this corpus",
		"structural_flags": run.Counters.StructuralFlags,
		"total_weight":     run.TotalWeight,
	}
	schema := map[string]any{
		"tables":            filterKeys(run.Counters.Tables, o.ExcludeTables),
		"qualified_columns": filterKeys(run.Counters.QualifiedColumns, o.ExcludeColumns),
		"table_pairs":       run.Counters.TablePairs,
		"join_conditions":   run.Counters.JoinConditions,
	}
	business := map[string]any{
		"literal_vals": run.LiteralVals,
		"functions":    filterKeys(run.Counters.Functions, o.ExcludeFunctions),
		"group_by":     run.Counters.GroupBy,
		"agg_pairs":    run.Counters.AggColumnPairs,
	}
	filters := map[string]any{
		"classified_filters": run.ClassifiedFilters,
	}
	patterns := map[string]any{
		"clusters":    run.Clusters,
		"alias_conv":  run.AliasConv,
		"order_by":    run.Counters.OrderBy,
		"limit_values": run.Counters.LimitValues,
	}

	slotData := map[config.DocSlot]any{
		config.SlotMaster:   master,
		config.SlotSchema:   schema,
		config.SlotBusiness: business,
		config.SlotFilters:  filters,
		config.SlotPatterns: patterns,
	}

	out := make(map[config.DocSlot]Payload, len(slotData))
	for slot, data := range slotData {
		p, err := buildPayload(slot, data)
		if err != nil {
			return nil, err
		}
		out[slot] = p
	}
	return out, nil
}

func buildPayload(slot config.DocSlot, data any) (Payload, error) {
	full, err := json.Marshal(data)
	if err != nil {
		return Payload{}, err
	}
	fullStr := capChars(string(full), maxPayloadChars)

	var generic any
	if err := json.Unmarshal([]byte(fullStr), &generic); err != nil {
		generic = data
	}
	stripped := stripStatsKeys(generic)
	strippedBytes, err := json.Marshal(stripped)
	if err != nil {
		return Payload{}, err
	}

	return Payload{Slot: slot, JSON: fullStr, StripStats: capChars(string(strippedBytes), maxPayloadChars)}, nil
}

func capChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// stripStatsKeys removes display-only count/percent keys recursively.
func stripStatsKeys(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			if statsKeys[k] {
				continue
			}
			out[k] = stripStatsKeys(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = stripStatsKeys(item)
		}
		return out
	default:
		return val
	}
}

func filterKeys(ft models.FreqTable, exclude map[string]bool) models.FreqTable {
	if len(exclude) == 0 {
		return ft
	}
	out := models.FreqTable{}
	for k, v := range ft {
		if exclude[strings.ToLower(k)] {
			continue
		}
		out[k] = v
	}
	return out
}
