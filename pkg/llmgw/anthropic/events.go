package anthropic

import "encoding/json"

// StreamEventPayload covers the union of fields used across the
// content_block_start / content_block_delta / content_block_stop /
// message_delta / message_stop event types this gateway needs.
type StreamEventPayload struct {
	Index        int             `json:"index"`
	ContentBlock *ContentBlock   `json:"content_block,omitempty"`
	Delta        *Delta          `json:"delta,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
}

// Delta is the incremental payload of a content_block_delta event.
type Delta struct {
	Type        string `json:"type"` // text_delta | input_json_delta | ...
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// ParsePayload decodes raw into a StreamEventPayload, ignoring fields this
// gateway doesn't consume.
func ParsePayload(raw json.RawMessage) (StreamEventPayload, error) {
	var p StreamEventPayload
	err := json.Unmarshal(raw, &p)
	return p, err
}
