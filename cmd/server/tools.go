package main

import (
	"context"
	"fmt"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/persistence"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/toolregistry"
)

// searchContextDocsArgs is the Chat Orchestrator's minimal RAG tool: list the
// caller's org's currently active authored documents, optionally narrowed to
// one pipeline's source type (§4.8/§4.9).
type searchContextDocsArgs struct {
	SourceType string `json:"source_type,omitempty" jsonschema:"description=databricks or config_apis; omit to search both"`
}

// searchContextDocsTool wraps persistence.Store.ListActiveContextDocs as a
// registered tool so the chat round loop can actually ground its answers in
// the context library instead of only ever seeing an empty tool list.
func searchContextDocsTool(store *persistence.Store) func(ctx context.Context, tc toolregistry.ToolContext, args searchContextDocsArgs) (any, error) {
	return func(ctx context.Context, tc toolregistry.ToolContext, args searchContextDocsArgs) (any, error) {
		types := []models.ContextDocSourceType{models.SourceDatabricks, models.SourceConfigAPIs}
		if args.SourceType != "" {
			types = []models.ContextDocSourceType{models.ContextDocSourceType(args.SourceType)}
		}

		var results []map[string]any
		for _, st := range types {
			docs, err := store.ListActiveContextDocs(ctx, tc.OrgID, st)
			if err != nil {
				return nil, fmt.Errorf("search context docs: %w", err)
			}
			for _, d := range docs {
				results = append(results, map[string]any{
					"doc_key":     d.DocKey,
					"doc_name":    d.DocName,
					"source_type": string(d.SourceType),
					"content":     d.DocContent,
				})
			}
		}
		return results, nil
	}
}

// registerTools populates tools with every built-in tool the chat
// orchestrator's tool-use loop can invoke. Called once at startup.
func registerTools(tools *toolregistry.Registry, store *persistence.Store) error {
	return toolregistry.Register(tools,
		"search_context_docs",
		"Lists the organization's currently active authored context documents (SQL corpus and configuration object docs), optionally filtered by source_type.",
		"context_library",
		"",
		toolregistry.Annotation{Title: "Search context documents", ReadOnlyHint: true},
		searchContextDocsTool(store),
	)
}
