package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// CreateConversation inserts a new chat conversation.
func (s *Store) CreateConversation(ctx context.Context, c *models.ChatConversation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_conversations (id, owning_user, owning_org, created_at)
		VALUES ($1, $2, $3, $4)`,
		c.ID, c.OwningUser, c.OwningOrg, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// LoadHistory returns a conversation's messages in submission order. This is
// the first of the chat orchestrator's three independent sessions (§4.6,
// §4.8): load, then run the LLM with no Store call in between, then persist.
func (s *Store) LoadHistory(ctx context.Context, conversationID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, tool_calls, tool_call_id, tool_name, created_at
		FROM chat_messages WHERE conversation_id = $1 ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var toolCalls []byte
		var toolCallID, toolName sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &toolCalls, &toolCallID, &toolName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		if err := unmarshalJSON(toolCalls, &m.ToolCalls); err != nil {
			return nil, fmt.Errorf("decode chat message tool calls: %w", err)
		}
		m.ToolCallID = toolCallID.String
		m.ToolName = toolName.String
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendMessages inserts one round's new messages (assistant + tool results)
// in a single bulk statement, the persist step of the chat orchestrator's
// three sessions. seq continues from the conversation's current message
// count so ordering survives concurrent reads.
func (s *Store) AppendMessages(ctx context.Context, conversationID string, messages []models.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append messages: %w", err)
	}
	defer tx.Rollback()

	var nextSeq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), -1) + 1 FROM chat_messages WHERE conversation_id = $1`, conversationID)
	if err := row.Scan(&nextSeq); err != nil {
		return fmt.Errorf("resolve next seq: %w", err)
	}

	query, args := buildBulkInsert(
		"chat_messages",
		[]string{"id", "conversation_id", "seq", "role", "content", "tool_calls", "tool_call_id", "tool_name"},
		len(messages),
		func(i int) []any {
			m := messages[i]
			return []any{m.ID, conversationID, nextSeq + i, m.Role, m.Content, marshalJSON(m.ToolCalls), nullIfEmpty(m.ToolCallID), nullIfEmpty(m.ToolName)}
		},
	)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append chat messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append messages: %w", err)
	}
	return nil
}

// GetConversation loads one ChatConversation by id.
func (s *Store) GetConversation(ctx context.Context, id string) (*models.ChatConversation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, owning_user, owning_org, created_at FROM chat_conversations WHERE id = $1`, id)

	var c models.ChatConversation
	if err := row.Scan(&c.ID, &c.OwningUser, &c.OwningOrg, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}
