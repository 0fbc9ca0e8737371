package llmgw

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw/anthropic"
	"github.com/cenkalti/backoff/v4"
)

type anthropicAdapter struct {
	client *anthropic.Client
}

func toAnthropicRequest(req Request) anthropic.Request {
	var system string
	messages := make([]anthropic.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system += m.Content
			continue
		}
		messages = append(messages, anthropic.Message{Role: string(m.Role), Content: m.Content})
	}

	tools := make([]anthropic.ToolDef, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, anthropic.ToolDef{Name: t.Name, Description: t.Description, InputSchema: t.Schema})
	}

	return anthropic.Request{
		Model:     req.Model,
		System:    system,
		Messages:  messages,
		Tools:     tools,
		MaxTokens: req.MaxTokens,
	}
}

// withRetry retries fn up to 4 attempts with exponential backoff (2s base,
// capped at 30s), classifying transient errors via the adapter's Transient()
// convention (§4.7, §7 transient error kind).
func withRetry(ctx context.Context, fn func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0
	bo := backoff.WithMaxRetries(policy, 3)
	bo = backoff.WithContext(bo, ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		type transient interface{ Transient() bool }
		if t, ok := err.(transient); ok && t.Transient() {
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

func (a anthropicAdapter) Call(ctx context.Context, req Request) (*Response, error) {
	var resp *anthropic.Response
	err := withRetry(ctx, func() error {
		var callErr error
		resp, callErr = a.client.Call(ctx, toAnthropicRequest(req))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic call: %w", err)
	}

	out := &Response{StopReason: resp.StopReason, Usage: Usage{
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			args, _ := json.Marshal(block.Input)
			out.ToolCalls = append(out.ToolCalls, ToolCall{ID: block.ID, Name: block.Name, Arguments: string(args)})
		}
	}
	return out, nil
}

func (a anthropicAdapter) Stream(ctx context.Context, req Request, cancelSignal <-chan struct{}) (<-chan Event, error) {
	sseCh, err := a.client.Stream(ctx, toAnthropicRequest(req))
	if err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	out := make(chan Event, 32)
	go func() {
		defer close(out)

		type blockState struct {
			toolID, toolName string
			argsBuf          []byte
			isTool           bool
		}
		blocks := map[int]*blockState{}
		var usage Usage
		stopReason := "end_turn"
		cancelled := false

		for evt := range sseCh {
			select {
			case <-cancelSignal:
				cancelled = true
			default:
			}
			if cancelled {
				continue // drain the channel without emitting further chunks
			}

			payload, perr := anthropic.ParsePayload(evt.Data)
			if perr != nil {
				continue
			}

			switch evt.Type {
			case "content_block_start":
				if payload.ContentBlock != nil && payload.ContentBlock.Type == "tool_use" {
					st := &blockState{toolID: payload.ContentBlock.ID, toolName: payload.ContentBlock.Name, isTool: true}
					blocks[payload.Index] = st
					out <- Event{Type: EventToolUseStart, ToolCallID: st.toolID, ToolName: st.toolName}
				}
			case "content_block_delta":
				if payload.Delta == nil {
					continue
				}
				switch payload.Delta.Type {
				case "text_delta":
					out <- Event{Type: EventChunk, TextDelta: payload.Delta.Text}
				case "input_json_delta":
					if st, ok := blocks[payload.Index]; ok {
						st.argsBuf = append(st.argsBuf, payload.Delta.PartialJSON...)
					}
				}
			case "content_block_stop":
				if st, ok := blocks[payload.Index]; ok && st.isTool {
					argsJSON := string(st.argsBuf)
					if !json.Valid([]byte(argsJSON)) {
						// Fall back to a raw-string record on parse failure (§4.7).
						raw, _ := json.Marshal(map[string]string{"raw": argsJSON})
						argsJSON = string(raw)
					}
					out <- Event{Type: EventToolUse, ToolCallID: st.toolID, ToolName: st.toolName, ToolArgsJSON: argsJSON}
				}
			case "message_delta":
				if payload.Delta != nil && payload.Delta.StopReason != "" {
					stopReason = payload.Delta.StopReason
				}
				if payload.Usage != nil {
					usage.OutputTokens = payload.Usage.OutputTokens
				}
			case "message_start":
				if payload.Usage != nil {
					usage.InputTokens = payload.Usage.InputTokens
				}
			}
		}

		if cancelled {
			stopReason = "cancelled"
		}
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		out <- Event{Type: EventEnd, Usage: usage, StopReason: stopReason}
	}()

	return out, nil
}
