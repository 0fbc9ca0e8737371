package llmgw

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw/openai"
)

type openAIAdapter struct {
	client *openai.Client
}

func toOpenAIRequest(req Request) openai.Request {
	messages := make([]openai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		om := openai.Message{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		messages = append(messages, om)
	}

	tools := make([]openai.ToolDef, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, openai.ToolDef{
			Type: "function",
			Function: openai.FunctionSpec{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Schema,
			},
		})
	}

	return openai.Request{Model: req.Model, Messages: messages, Tools: tools}
}

func (a openAIAdapter) Call(ctx context.Context, req Request) (*Response, error) {
	var resp *openai.Response
	err := withRetry(ctx, func() error {
		var callErr error
		resp, callErr = a.client.Call(ctx, toOpenAIRequest(req))
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("openai call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return &Response{Usage: Usage{TotalTokens: resp.Usage.TotalTokens}}, nil
	}

	choice := resp.Choices[0]
	out := &Response{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: tc.Function.Arguments})
	}
	return out, nil
}

func (a openAIAdapter) Stream(ctx context.Context, req Request, cancelSignal <-chan struct{}) (<-chan Event, error) {
	chunkCh, err := a.client.Stream(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	out := make(chan Event, 32)
	go func() {
		defer close(out)

		type callState struct {
			id, name string
			argsBuf  string
			started  bool
		}
		calls := map[int]*callState{}
		var usage Usage
		stopReason := "stop"
		cancelled := false

		flush := func() {
			for _, st := range calls {
				if st.argsBuf == "" {
					continue
				}
				argsJSON := st.argsBuf
				if !json.Valid([]byte(argsJSON)) {
					raw, _ := json.Marshal(map[string]string{"raw": argsJSON})
					argsJSON = string(raw)
				}
				out <- Event{Type: EventToolUse, ToolCallID: st.id, ToolName: st.name, ToolArgsJSON: argsJSON}
			}
		}

		for chunk := range chunkCh {
			select {
			case <-cancelSignal:
				cancelled = true
			default:
			}
			if cancelled {
				continue // drain without emitting further chunks
			}

			if chunk.Usage != nil {
				usage = Usage{
					InputTokens:  chunk.Usage.PromptTokens,
					OutputTokens: chunk.Usage.CompletionTokens,
					TotalTokens:  chunk.Usage.TotalTokens,
				}
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			choice := chunk.Choices[0]
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				stopReason = *choice.FinishReason
			}
			if choice.Delta.Content != "" {
				out <- Event{Type: EventChunk, TextDelta: choice.Delta.Content}
			}
			for _, tc := range choice.Delta.ToolCalls {
				st, ok := calls[tc.Index]
				if !ok {
					st = &callState{}
					calls[tc.Index] = st
				}
				if tc.ID != "" {
					st.id = tc.ID
				}
				if tc.Function.Name != "" {
					st.name = tc.Function.Name
				}
				if !st.started {
					st.started = true
					out <- Event{Type: EventToolUseStart, ToolCallID: st.id, ToolName: st.name}
				}
				st.argsBuf += tc.Function.Arguments
			}
		}

		if cancelled {
			stopReason = "cancelled"
		} else {
			flush()
		}
		usage.TotalTokens = usage.InputTokens + usage.OutputTokens
		out <- Event{Type: EventEnd, Usage: usage, StopReason: stopReason}
	}()

	return out, nil
}
