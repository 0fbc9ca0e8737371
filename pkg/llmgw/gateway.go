// Package llmgw is the provider-agnostic LLM Gateway (§4.7): a Call/Stream
// interface over a channel of typed chunks, with provider adapters
// translating to and from each vendor's wire format.
package llmgw

import (
	"context"
	"fmt"
	"sync"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
)

// Role is a conversation message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is the provider-neutral conversation message.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// ToolCall is an assistant message's request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON
}

// ToolDef describes a tool available to the LLM in neutral form; adapters
// translate it to each provider's schema shape.
type ToolDef struct {
	Name        string
	Description string
	Schema      map[string]any // JSON Schema, provider-neutral
}

// Request is one call/stream invocation.
type Request struct {
	Messages []Message
	Tools    []ToolDef
	Model    string
	MaxTokens int
}

// EventType identifies the kind of streaming event (§4.7).
type EventType string

const (
	EventChunk        EventType = "chunk"
	EventToolUseStart EventType = "tool_use_start"
	EventToolUse      EventType = "tool_use"
	EventEnd          EventType = "end"
)

// Event is one streamed unit from Stream.
type Event struct {
	Type EventType

	// EventChunk
	TextDelta string

	// EventToolUseStart / EventToolUse
	ToolCallID   string
	ToolName     string
	ToolArgsJSON string // populated on EventToolUse; parse failure still yields the raw string

	// EventEnd
	Usage       Usage
	StopReason  string
	Truncated   bool
}

// Usage reports token consumption for one call/stream.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Provider is the interface every vendor adapter implements.
type Provider interface {
	// Call awaits the full response.
	Call(ctx context.Context, req Request) (*Response, error)
	// Stream yields events on the returned channel, closing it when the
	// response completes, the context is cancelled, or cancelSignal fires.
	Stream(ctx context.Context, req Request, cancelSignal <-chan struct{}) (<-chan Event, error)
}

// Response is Call's synchronous result.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	Usage      Usage
	StopReason string
}

// Gateway dispatches to the configured provider adapters, caching one client
// per provider by API key so their connection pools are reused across calls
// (§4.7).
type Gateway struct {
	mu        sync.RWMutex
	providers map[string]Provider
	defaultProvider string
}

// NewGateway builds adapters for every configured provider.
func NewGateway(providerConfigs map[string]config.LLMProviderConfig) (*Gateway, error) {
	gw := &Gateway{providers: make(map[string]Provider)}
	for name, cfg := range providerConfigs {
		adapter, err := buildAdapter(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("build adapter for provider %q: %w", name, err)
		}
		gw.providers[name] = adapter
		if gw.defaultProvider == "" {
			gw.defaultProvider = name
		}
	}
	return gw, nil
}

// Provider resolves name (or, when name is empty, the default: the first
// provider New visited while ranging over the config map, whose order Go
// leaves undefined) to its adapter.
func (g *Gateway) Provider(name string) (Provider, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if name == "" {
		name = g.defaultProvider
	}
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q", name)
	}
	return p, nil
}
