package configdocs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// Doc is one authored configuration document.
type Doc struct {
	Key      config.DocSlot
	Text     string
	Warnings []string
	Err      error
}

var slotPromptTemplates = map[config.DocSlot]string{
	config.SlotLoyalty:     "Author the loyalty program master reference (01_LOYALTY_MASTER) from this payload.",
	config.SlotCampaign:    "Author the campaign reference document (02_CAMPAIGN_REFERENCE) from this payload.",
	config.SlotPromotion:   "Author the promotion rules document (03_PROMOTION_RULES) from this payload.",
	config.SlotAudience:    "Author the audience segments document (04_AUDIENCE_SEGMENTS) from this payload.",
	config.SlotCustomizing: "Author the customizations document (05_CUSTOMIZATIONS) from this payload.",
}

// forbiddenAuditLanguage matches phrases describing absence or
// recommending future work, which a factual config-reference document
// must never contain (§4.4 post-authoring validator).
var forbiddenAuditLanguage = regexp.MustCompile(`(?i)\bno \w+ configured\b|\bnot found\b|\b0 \w+s\b|\brecommend\b|\bfuture configuration\b`)

// AuthorDoc sends one slot's payload to the LLM, then runs the
// post-authoring checks: forbidden audit-language scan (warnings, not
// gating) and an entity-name-presence check.
func AuthorDoc(ctx context.Context, gw *llmgw.Gateway, provider, model string, slot config.DocSlot, payload Payload, entityNames []string) Doc {
	prompt := slotPromptTemplates[slot]
	if prompt == "" {
		prompt = fmt.Sprintf("Author document %s from this payload.", slot)
	}

	p, err := gw.Provider(provider)
	if err != nil {
		return Doc{Key: slot, Err: err}
	}
	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: prompt + "\n\nPayload:\n" + payload.JSON}},
		Model:    model,
	})
	if err != nil {
		return Doc{Key: slot, Err: err}
	}

	doc := Doc{Key: slot, Text: resp.Text}
	if m := forbiddenAuditLanguage.FindString(resp.Text); m != "" {
		doc.Warnings = append(doc.Warnings, "forbidden audit language detected: "+m)
	}
	if !anyNamePresent(resp.Text, entityNames) {
		doc.Warnings = append(doc.Warnings, "no catalog entity name found in document text")
	}
	return doc
}

func anyNamePresent(text string, names []string) bool {
	if len(names) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, n := range names {
		if n != "" && strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// AuthorAll authors every slot. The presence check is given every top
// categorical value of the slot's clusters (which includes the values of
// top-level name fields), not a list of entity names alone, so any one of
// those values appearing in the text satisfies it.
func AuthorAll(ctx context.Context, gw *llmgw.Gateway, provider, model string, payloads map[config.DocSlot]Payload, clustersBySlot map[config.DocSlot][]models.ConfigCluster) map[config.DocSlot]Doc {
	out := make(map[config.DocSlot]Doc, len(payloads))
	for slot, payload := range payloads {
		var names []string
		for _, c := range clustersBySlot[slot] {
			for _, v := range c.TopValues {
				names = append(names, v...)
			}
		}
		out[slot] = AuthorDoc(ctx, gw, provider, model, slot, payload, names)
	}
	return out
}
