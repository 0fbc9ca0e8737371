package sqldocs

import (
	"context"
	"fmt"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// Doc is one authored document.
type Doc struct {
	Key  config.DocSlot
	Text string
	// Err is set, and Text left as whatever partial content exists, when
	// authoring this doc failed — failure of one doc never aborts the run
	// (§4.3).
	Err error
}

var slotPromptTemplates = map[config.DocSlot]string{
	config.SlotMaster:   "Author the dialect and structural rules reference document (01_MASTER) from this payload.",
	config.SlotSchema:   "Author the table, column, and join registry document (02_SCHEMA) from this payload.",
	config.SlotBusiness: "Author the business semantics document (03_BUSINESS: enums, KPIs, dimensions, CASE-WHEN patterns, NL pairings) from this payload.",
	config.SlotFilters:  "Author the classified-filters document (04_FILTERS: mandatory/table-default/common/date) from this payload.",
	config.SlotPatterns: "Author the query-pattern document (05_PATTERNS: cluster templates, structural exemplars, NL<->SQL pairs) from this payload.",
}

// Preamble describes all five slots and their boundaries, plus the most
// frequent columns as canonical terminology (§4.3: "The document author
// sends each payload along with a shared preamble").
func Preamble(topColumns []string) string {
	var b strings.Builder
	b.WriteString("This corpus is split across five documents:\n")
	b.WriteString("01_MASTER: dialect and structural rules.\n")
	b.WriteString("02_SCHEMA: table, column, and join registry.\n")
	b.WriteString("03_BUSINESS: enums, KPIs, dimensions, CASE-WHEN patterns, natural-language pairings.\n")
	b.WriteString("04_FILTERS: classified filters (mandatory, table-default, common, situational).\n")
	b.WriteString("05_PATTERNS: cluster templates, structural exemplars, NL<->SQL pairs.\n")
	b.WriteString("Keep each document scoped to its own boundary; do not repeat another document's content.\n")
	if len(topColumns) > 0 {
		b.WriteString("Canonical terminology (most frequent columns): " + strings.Join(topColumns, ", ") + "\n")
	}
	return b.String()
}

// AuthorDoc sends one slot's payload plus the shared preamble to the LLM.
func AuthorDoc(ctx context.Context, gw *llmgw.Gateway, provider, model string, slot config.DocSlot, payload Payload, preamble string, appendix string) Doc {
	prompt := slotPromptTemplates[slot]
	if prompt == "" {
		prompt = fmt.Sprintf("Author document %s from this payload.", slot)
	}

	content := preamble + "\n\n" + prompt + "\n\nPayload:\n" + payload.StripStats
	if appendix != "" {
		content += "\n\nValidator feedback to address:\n" + appendix
	}

	p, err := gw.Provider(provider)
	if err != nil {
		return Doc{Key: slot, Err: err}
	}
	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: content}},
		Model:    model,
	})
	if err != nil {
		return Doc{Key: slot, Err: err}
	}
	return Doc{Key: slot, Text: resp.Text}
}

// AuthorAll authors every slot sequentially per run (§4.3: "Authoring is
// sequential per run but may be parallelized across docs"); callers that
// want parallel authoring can fan this function out themselves per slot.
func AuthorAll(ctx context.Context, gw *llmgw.Gateway, provider, model string, payloads map[config.DocSlot]Payload, summary models.FingerprintSummary) map[config.DocSlot]Doc {
	preamble := Preamble(summary.TopColumns)
	out := make(map[config.DocSlot]Doc, len(payloads))
	for _, slot := range []config.DocSlot{config.SlotMaster, config.SlotSchema, config.SlotBusiness, config.SlotFilters, config.SlotPatterns} {
		payload, ok := payloads[slot]
		if !ok {
			continue
		}
		out[slot] = AuthorDoc(ctx, gw, provider, model, slot, payload, preamble, "")
	}
	return out
}
