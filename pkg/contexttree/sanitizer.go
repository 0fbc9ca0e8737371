package contexttree

import (
	"context"
	"fmt"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// sanitizedDoc is one element of the Sanitizer's JSON array output.
type sanitizedDoc struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Scope   string `json:"scope"`
}

// SanitizeResult records, per leaf name, whether sanitized content was used
// or the original fell back (§4.5 Optional Sanitizer: "Record per-leaf
// whether sanitized or fallback").
type SanitizeResult struct {
	Usage    llmgw.Usage
	Fallback map[string]bool // leaf name (lowercased) -> true if no sanitized match existed
}

// Sanitize replaces the tree builder's content-attach step: it sends every
// collected entry through the LLM with a caller-supplied blueprint system
// prompt, demanding a JSON array of {name, content, scope} with a
// per-document token budget, then attaches by name match (falling back to
// original content when no sanitized match exists).
func Sanitize(ctx context.Context, gw *llmgw.Gateway, provider, model, blueprint string, entries []Entry, maxOutputTokens int) (map[string]sanitizedDoc, SanitizeResult, error) {
	p, err := gw.Provider(provider)
	if err != nil {
		return nil, SanitizeResult{}, err
	}

	budget := llmgw.PerDocumentBudget(maxOutputTokens, len(entries))
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "--- Document %d ---\nname: %s\nper-document token budget: %d\ncontent:\n%s\n\n", i+1, e.Name, budget, e.Content)
	}

	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{
			{Role: llmgw.RoleSystem, Content: blueprint},
			{Role: llmgw.RoleUser, Content: "Respond with a JSON array of {\"name\":..., \"content\":..., \"scope\":...} objects, one per document below, content trimmed to its per-document budget.\n\n" + b.String()},
		},
		Model: model,
	})
	if err != nil {
		return nil, SanitizeResult{}, fmt.Errorf("sanitizer: call LLM: %w", err)
	}

	var docs []sanitizedDoc
	if err := parseRecoveringJSON(resp.Text, true, &docs); err != nil {
		return nil, SanitizeResult{Usage: resp.Usage}, fmt.Errorf("sanitizer: parse array JSON: %w", err)
	}

	byName := make(map[string]sanitizedDoc, len(docs))
	for _, d := range docs {
		byName[strings.ToLower(d.Name)] = d
	}
	return byName, SanitizeResult{Usage: resp.Usage}, nil
}

// AttachSanitized attaches sanitized content to leaves by name match,
// falling back to the entry's original content if no sanitized match
// exists, and records per-leaf which happened.
func AttachSanitized(root *models.Node, sanitized map[string]sanitizedDoc, entries []Entry) SanitizeResult {
	byEntryName := map[string]Entry{}
	for _, e := range entries {
		byEntryName[strings.ToLower(e.Name)] = e
	}

	result := SanitizeResult{Fallback: map[string]bool{}}
	root.Walk(func(node, _ *models.Node) {
		if node.Type != models.NodeLeaf {
			return
		}
		key := strings.ToLower(node.Source)
		if key == "" {
			key = strings.ToLower(node.Name)
		}
		if d, ok := sanitized[key]; ok {
			node.Desc = d.Content
			result.Fallback[key] = false
			return
		}
		if e, ok := byEntryName[key]; ok {
			node.Desc = e.Content
		}
		result.Fallback[key] = true
	})
	return result
}
