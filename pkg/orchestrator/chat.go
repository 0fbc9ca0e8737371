package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/toolregistry"
	"github.com/gin-gonic/gin"
)

// chatMessageRequest is the POST body for submitting one chat turn
// (§4.8 Chat Orchestrator).
type chatMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content" binding:"required"`
}

// chatChunkEvent, chatToolEvent, and chatEndEvent are the websocket/HTTP
// streamed frame shapes for one chat round (§4.8).
type chatChunkEvent struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Text  string `json:"text"`
}

type chatToolEvent struct {
	Type     string `json:"type"` // "tool_preparing" | "tool_start" | "tool_end"
	RunID    string `json:"run_id"`
	ToolName string `json:"tool_name"`
	Summary  string `json:"summary,omitempty"`
}

type chatEndEvent struct {
	Type           string `json:"type"` // "chat_end"
	RunID          string `json:"run_id"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error,omitempty"`
}

// submitChatMessageHandler accepts one user message, starts the round-limited
// tool-use loop in a background goroutine, and responds 202 at once with the
// conversation and run ids. The loop runs until a non-tool-use turn or the
// round cap and streams its output to the caller's websocket connections via
// the Hub, ending with chat_end (§4.2/§4.8).
func (o *Orchestrator) submitChatMessageHandler(c *gin.Context) {
	orgID := c.Param("org")
	userID := userIDFromRequest(c)

	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = newID()
		if err := o.store.CreateConversation(context.Background(), &models.ChatConversation{
			ID: conversationID, OwningUser: userID, OwningOrg: orgID, CreatedAt: time.Now(),
		}); err != nil {
			writeError(c, err)
			return
		}
	}

	runID := newID()
	runCtx, cancel := context.WithCancel(context.Background())
	o.hub.RegisterCancel(runID, cancel)

	go func() {
		defer cancel()
		defer o.hub.UnregisterCancel(runID)
		o.runChatRounds(runCtx, orgID, userID, conversationID, runID, req.Content)
	}()

	c.JSON(http.StatusAccepted, gin.H{"conversation_id": conversationID, "run_id": runID})
}

// runChatRounds implements §4.8's round loop: load history (one Store
// session), stream the model with no Store call held across it, execute any
// requested tools, then persist the round's new messages (a second, later
// Store session) — repeating until a round produces no tool calls or the
// hard cap is reached.
func (o *Orchestrator) runChatRounds(ctx context.Context, orgID, userID, conversationID, runID, userMessage string) {
	provider, model := o.defaultLLM()
	tc := toolregistry.ToolContext{UserID: userID, OrgID: orgID}

	history, err := o.store.LoadHistory(ctx, conversationID)
	if err != nil {
		o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: err.Error()})
		return
	}

	messages := historyToMessages(history)
	messages = append(messages, llmgw.Message{Role: llmgw.RoleUser, Content: userMessage})
	if err := o.store.AppendMessages(ctx, conversationID, []models.ChatMessage{
		{ID: newID(), ConversationID: conversationID, Role: models.ChatRoleUser, Content: userMessage, CreatedAt: time.Now()},
	}); err != nil {
		o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: err.Error()})
		return
	}

	maxRounds := o.cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = 5
	}

	tools := toolDefs(o.tools.Available(tc))

	for round := 0; round < maxRounds; round++ {
		select {
		case <-ctx.Done():
			o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: "cancelled"})
			return
		default:
		}

		p, err := o.llm.Provider(provider)
		if err != nil {
			o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: err.Error()})
			return
		}

		events, err := p.Stream(ctx, llmgw.Request{Messages: messages, Tools: tools, Model: model}, ctx.Done())
		if err != nil {
			o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: err.Error()})
			return
		}

		var assistantText string
		var toolCalls []llmgw.ToolCall
		pendingNames := map[string]string{}

		for ev := range events {
			switch ev.Type {
			case llmgw.EventChunk:
				assistantText += ev.TextDelta
				o.hub.SendToUser(userID, chatChunkEvent{Type: "chat_chunk", RunID: runID, Text: ev.TextDelta})
			case llmgw.EventToolUseStart:
				pendingNames[ev.ToolCallID] = ev.ToolName
				o.hub.SendToUser(userID, chatToolEvent{Type: "tool_preparing", RunID: runID, ToolName: ev.ToolName})
			case llmgw.EventToolUse:
				toolCalls = append(toolCalls, llmgw.ToolCall{ID: ev.ToolCallID, Name: ev.ToolName, Arguments: ev.ToolArgsJSON})
			}
		}

		assistantMsg := models.ChatMessage{
			ID: newID(), ConversationID: conversationID, Role: models.ChatRoleAssistant,
			Content: assistantText, CreatedAt: time.Now(),
		}
		for _, tcCall := range toolCalls {
			assistantMsg.ToolCalls = append(assistantMsg.ToolCalls, models.ChatToolCall{ID: tcCall.ID, Name: tcCall.Name, Arguments: tcCall.Arguments})
		}
		messages = append(messages, llmgw.Message{Role: llmgw.RoleAssistant, Content: assistantText, ToolCalls: toolCalls})

		if len(toolCalls) == 0 {
			if err := o.store.AppendMessages(ctx, conversationID, []models.ChatMessage{assistantMsg}); err != nil {
				o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: err.Error()})
				return
			}
			o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID})
			return
		}

		toPersist := []models.ChatMessage{assistantMsg}
		for _, call := range toolCalls {
			o.hub.SendToUser(userID, chatToolEvent{Type: "tool_start", RunID: runID, ToolName: call.Name})

			var args map[string]any
			_ = json.Unmarshal([]byte(call.Arguments), &args)
			result, _, _ := o.tools.Execute(ctx, tc, call.Name, args)

			summary := firstLineOf(fmt.Sprint(result))
			o.hub.SendToUser(userID, chatToolEvent{Type: "tool_end", RunID: runID, ToolName: call.Name, Summary: summary})

			resultText := fmt.Sprint(result)
			messages = append(messages, llmgw.Message{Role: llmgw.RoleTool, Content: resultText, ToolCallID: call.ID, ToolName: call.Name})
			toPersist = append(toPersist, models.ChatMessage{
				ID: newID(), ConversationID: conversationID, Role: models.ChatRoleTool,
				Content: resultText, ToolCallID: call.ID, ToolName: call.Name, CreatedAt: time.Now(),
			})
		}

		if err := o.store.AppendMessages(ctx, conversationID, toPersist); err != nil {
			o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID, Error: err.Error()})
			return
		}
	}

	o.hub.SendToUser(userID, chatEndEvent{Type: "chat_end", RunID: runID, ConversationID: conversationID})
}

func historyToMessages(history []models.ChatMessage) []llmgw.Message {
	out := make([]llmgw.Message, 0, len(history))
	for _, m := range history {
		msg := llmgw.Message{Role: llmgw.Role(m.Role), Content: m.Content, ToolCallID: m.ToolCallID, ToolName: m.ToolName}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llmgw.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
		}
		out = append(out, msg)
	}
	return out
}

func toolDefs(tools []*toolregistry.Tool) []llmgw.ToolDef {
	out := make([]llmgw.ToolDef, 0, len(tools))
	for _, t := range tools {
		var schema map[string]any
		if t.Schema != nil {
			b, err := json.Marshal(t.Schema)
			if err == nil {
				_ = json.Unmarshal(b, &schema)
			}
		}
		out = append(out, llmgw.ToolDef{Name: t.Name, Description: t.Description, Schema: schema})
	}
	return out
}

func firstLineOf(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	if len(s) > 200 {
		return s[:200]
	}
	return s
}

func (o *Orchestrator) getConversationHandler(c *gin.Context) {
	conv, err := o.store.GetConversation(context.Background(), c.Param("id"))
	if err != nil {
		notFound(c, "conversation not found")
		return
	}
	history, err := o.store.LoadHistory(context.Background(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv, "messages": history})
}

// cancelChatHandler stops an in-flight round loop via the Hub's run-id
// registered cancel function (§4.2). The handler itself sends no chat_end;
// the loop sends one once it observes the cancellation.
func (o *Orchestrator) cancelChatHandler(c *gin.Context) {
	ok := o.hub.CancelRun(c.Param("run_id"))
	if !ok {
		notFound(c, "run not found or already finished")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}
