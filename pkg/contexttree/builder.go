package contexttree

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

const treeBuilderSystemPrompt = `You organize a collection of source documents into a single JSON tree.

Respond with plain JSON only -- no code fences, no commentary before or after.

Shape:
{
  "id": "root", "name": "Organization Context", "type": "root", "visibility": "public",
  "children": [
    {
      "id": "<slug>", "name": "<category name>", "type": "cat", "visibility": "public",
      "children": [
        {
          "id": "<slug>", "name": "<leaf name>", "type": "leaf", "visibility": "public",
          "desc": "<one-paragraph summary of this document, NOT the original text>",
          "source": "<the document's name as given to you>",
          "source_doc_key": "<the document's key as given to you, if any>",
          "secretRefs": [],
          "analysis": {"redundancy": {"score": 0, "overlaps_with": []}, "conflicts": [], "suggestions": []}
        }
      ]
    }
  ]
}

Group leaves into categories by business domain. Every input document becomes exactly one leaf.`

// buildEntryList renders collected entries for the system prompt, decoding
// base64 content opportunistically (§4.5: "Content is base64-decoded
// opportunistically").
func buildEntryList(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		content := decodeBase64IfPossible(e.Content)
		fmt.Fprintf(&b, "--- Document %d ---\nname: %s\nsource_doc_key: %s\ncontent:\n%s\n\n", i+1, e.Name, e.SourceDocKey, content)
	}
	return b.String()
}

func decodeBase64IfPossible(s string) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if decoded, err := base64.StdEncoding.DecodeString(trimmed); err == nil && looksLikeText(decoded) {
		return string(decoded)
	}
	return s
}

func looksLikeText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c == 0 {
			return false
		}
	}
	return true
}

// rawNode mirrors models.Node's JSON shape for lenient unmarshalling of
// LLM output before validation fills in defaults.
type rawNode struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	Visibility   string           `json:"visibility"`
	Desc         string           `json:"desc"`
	Source       string           `json:"source"`
	SourceDocKey string           `json:"source_doc_key"`
	SecretRefs   []string         `json:"secretRefs"`
	Analysis     *models.Analysis `json:"analysis"`
	Children     []*rawNode       `json:"children"`
}

// BuildTree sends entries to the LLM and returns a validated, content-attached
// tree (§4.5 Tree Builder).
func BuildTree(ctx context.Context, gw *llmgw.Gateway, provider, model string, entries []Entry) (*models.Node, llmgw.Usage, error) {
	p, err := gw.Provider(provider)
	if err != nil {
		return nil, llmgw.Usage{}, err
	}

	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{
			{Role: llmgw.RoleSystem, Content: treeBuilderSystemPrompt},
			{Role: llmgw.RoleUser, Content: buildEntryList(entries)},
		},
		Model: model,
	})
	if err != nil {
		return nil, llmgw.Usage{}, fmt.Errorf("tree builder: call LLM: %w", err)
	}

	var raw rawNode
	if err := parseRecoveringJSON(resp.Text, false, &raw); err != nil {
		return nil, resp.Usage, fmt.Errorf("tree builder: parse tree JSON: %w", err)
	}

	root := validateAndConvert(&raw, true)
	attachContent(root, entries)
	return root, resp.Usage, nil
}

// validateAndConvert fills missing required fields with defaults and
// converts rawNode to models.Node (§4.5: "validated by filling missing
// required fields with defaults").
func validateAndConvert(n *rawNode, isRoot bool) *models.Node {
	if n == nil {
		n = &rawNode{}
	}

	out := &models.Node{
		ID:           n.ID,
		Name:         n.Name,
		Type:         models.NodeType(n.Type),
		Visibility:   models.VisibilityPublic,
		Desc:         n.Desc,
		Source:       n.Source,
		SourceDocKey: n.SourceDocKey,
		SecretRefs:   n.SecretRefs,
		Analysis:     n.Analysis,
	}

	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	if out.Name == "" {
		out.Name = "Untitled"
	}
	switch {
	case isRoot:
		out.Type = models.NodeRoot
		if out.Name == "Untitled" {
			out.Name = "Organization Context"
		}
	case out.Type != models.NodeCat && out.Type != models.NodeLeaf:
		if len(n.Children) > 0 {
			out.Type = models.NodeCat
		} else {
			out.Type = models.NodeLeaf
		}
	}
	if n.Visibility == string(models.VisibilityPrivate) {
		out.Visibility = models.VisibilityPrivate
	}

	if out.Type == models.NodeLeaf {
		if out.Analysis == nil {
			out.Analysis = &models.Analysis{}
		}
		if out.SecretRefs == nil {
			out.SecretRefs = []string{}
		}
		if out.Desc == "" && out.Source == "" {
			out.Desc = "(no summary provided)"
		}
	}

	for _, c := range n.Children {
		out.Children = append(out.Children, validateAndConvert(c, false))
	}
	return out
}

// attachContent replaces each leaf's LLM-written desc with the original
// source content, looked up by source_doc_key then by name
// case-insensitively (§4.5 Content attach).
func attachContent(root *models.Node, entries []Entry) {
	byKey := map[string]Entry{}
	byName := map[string]Entry{}
	for _, e := range entries {
		if e.SourceDocKey != "" {
			byKey[e.SourceDocKey] = e
		}
		byName[strings.ToLower(e.Name)] = e
	}

	root.Walk(func(node, _ *models.Node) {
		if node.Type != models.NodeLeaf {
			return
		}
		if e, ok := byKey[node.SourceDocKey]; ok {
			node.Desc = e.Content
			return
		}
		if e, ok := byName[strings.ToLower(node.Source)]; ok {
			node.Desc = e.Content
			return
		}
		if e, ok := byName[strings.ToLower(node.Name)]; ok {
			node.Desc = e.Content
		}
	})
}
