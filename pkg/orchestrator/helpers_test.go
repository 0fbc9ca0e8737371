package orchestrator

import (
	"testing"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/toolregistry"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
)

func TestFirstLineOf(t *testing.T) {
	assert.Equal(t, "hello", firstLineOf("hello\nworld"))
	assert.Equal(t, "no newline", firstLineOf("no newline"))

	long := ""
	for i := 0; i < 250; i++ {
		long += "x"
	}
	assert.Len(t, firstLineOf(long), 200)
}

func TestCloneParamsIsIndependentCopy(t *testing.T) {
	in := map[string]string{"a": "1"}
	out := cloneParams(in)
	out["a"] = "2"
	assert.Equal(t, "1", in["a"])
	assert.Equal(t, "2", out["a"])
}

func TestGroupClustersBySlotMatchesByEntityType(t *testing.T) {
	clusters := []models.ConfigCluster{
		{EntityType: "loyalty_rule"},
		{EntityType: "campaign"},
		{EntityType: "unmapped_type"},
	}
	grouped := groupClustersBySlot(clusters)

	assert.Len(t, grouped[config.SlotLoyalty], 1)
	assert.Len(t, grouped[config.SlotCampaign], 1)
	assert.Empty(t, grouped[config.SlotPromotion])
	for slot := range grouped {
		for _, cl := range grouped[slot] {
			assert.NotEqual(t, "unmapped_type", cl.EntityType)
		}
	}
}

func TestToolDefsConvertsSchema(t *testing.T) {
	tools := []*toolregistry.Tool{
		{Name: "echo", Description: "echoes", Schema: &jsonschema.Schema{Type: "object"}},
	}
	defs := toolDefs(tools)
	assert.Len(t, defs, 1)
	assert.Equal(t, "echo", defs[0].Name)
	assert.Equal(t, "object", defs[0].Schema["type"])
}

func TestHistoryToMessagesPreservesToolCalls(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "hi"},
		{
			Role:    models.ChatRoleAssistant,
			Content: "",
			ToolCalls: []models.ChatToolCall{
				{ID: "call1", Name: "search", Arguments: `{"q":"x"}`},
			},
		},
	}
	msgs := historyToMessages(history)
	assert.Len(t, msgs, 2)
	assert.Equal(t, llmgw.RoleUser, msgs[0].Role)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "search", msgs[1].ToolCalls[0].Name)
}
