// Package progress implements the per-client duplex message channel used to
// stream pipeline progress and chat output to connected browsers (§4.2
// Progress Transport).
package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// writeTimeout bounds how long a single client send may block; a slow or
// dead client is disconnected rather than stalling the sender.
const writeTimeout = 5 * time.Second

// ClientMessage is a client->server frame. Submit messages carry
// pipeline-specific fields beyond Type, decoded by the caller from RawParams.
type ClientMessage struct {
	Type       string          `json:"type"`
	RunID      string          `json:"run_id,omitempty"`
	RawParams  json.RawMessage `json:"params,omitempty"`
}

// Connection is a single websocket client, registered under one user.
type Connection struct {
	ID     string
	UserID string
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// Hub routes server->client messages by connection-id and by user-id, and
// dispatches client->server control messages (§4.2 routing, ordering,
// cancellation).
type Hub struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	byUser      map[string]map[string]bool

	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc // run-id -> cancel, for chat cancellation
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		byUser:      make(map[string]map[string]bool),
		cancels:     make(map[string]context.CancelFunc),
	}
}

// Handle manages one websocket connection's lifecycle until it closes.
// onMessage receives every decoded client message after the built-in
// ping/cancel handling; pipeline submit messages are routed there.
func (h *Hub) Handle(parentCtx context.Context, userID string, conn *websocket.Conn, onMessage func(ctx context.Context, c *Connection, msg ClientMessage)) {
	ctx, cancel := context.WithCancel(parentCtx)
	c := &Connection{ID: uuid.New().String(), UserID: userID, conn: conn, ctx: ctx, cancel: cancel}

	h.register(c)
	defer h.unregister(c)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid progress message", "connection_id", c.ID, "error", err)
			continue
		}

		switch msg.Type {
		case "ping":
			h.SendToConnection(c.ID, map[string]string{"type": "pong"})
		case "cancel":
			h.CancelRun(msg.RunID)
		default:
			if onMessage != nil {
				onMessage(ctx, c, msg)
			}
		}
	}
}

func (h *Hub) register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c.ID] = c
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[string]bool)
	}
	h.byUser[c.UserID][c.ID] = true
}

func (h *Hub) unregister(c *Connection) {
	h.mu.Lock()
	delete(h.connections, c.ID)
	if set, ok := h.byUser[c.UserID]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
	h.mu.Unlock()

	c.cancel()
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

// SendToConnection delivers v to exactly one connection. Send errors
// silently disconnect the offending connection (§4.2).
func (h *Hub) SendToConnection(connID string, v any) {
	h.mu.RLock()
	c, ok := h.connections[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	h.send(c, v)
}

// SendToUser fans v out to every connection currently open for userID.
func (h *Hub) SendToUser(userID string, v any) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.byUser[userID]))
	for id := range h.byUser[userID] {
		ids = append(ids, id)
	}
	conns := make([]*Connection, 0, len(ids))
	for _, id := range ids {
		if c, ok := h.connections[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		h.send(c, v)
	}
}

func (h *Hub) send(c *Connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("failed to marshal progress message", "connection_id", c.ID, "error", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(c.ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		slog.Warn("failed to send progress message, disconnecting", "connection_id", c.ID, "error", err)
		h.unregister(c)
	}
}

// RegisterCancel associates a cancel function with runID, so a client
// "cancel" message can stop a chat request's streaming loop (§4.2
// cancellation).
func (h *Hub) RegisterCancel(runID string, cancel context.CancelFunc) {
	h.cancelMu.Lock()
	defer h.cancelMu.Unlock()
	h.cancels[runID] = cancel
}

// UnregisterCancel removes runID's cancel function once the request ends.
func (h *Hub) UnregisterCancel(runID string) {
	h.cancelMu.Lock()
	defer h.cancelMu.Unlock()
	delete(h.cancels, runID)
}

// CancelRun invokes the cancel function registered for runID, if any.
func (h *Hub) CancelRun(runID string) bool {
	h.cancelMu.Lock()
	cancel, ok := h.cancels[runID]
	h.cancelMu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// ProgressEvent is the common shape of `<pipeline>_progress` messages.
type ProgressEvent struct {
	Type      string `json:"type"` // "<pipeline>_progress"
	RunID     string `json:"run_id"`
	Phase     string `json:"phase"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Detail    string `json:"detail"`
	Status    string `json:"status"`
}

// TerminalEvent is the common shape of `<pipeline>_complete/_failed/_cancelled`.
type TerminalEvent struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
	Error string `json:"error,omitempty"`
}
