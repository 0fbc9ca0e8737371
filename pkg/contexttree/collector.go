// Package contexttree implements the Context Tree Engine (§4.5): the
// Collector, Tree Builder (with truncation-recovery JSON parsing), an
// optional Sanitizer, the Secret Scanner, Redundancy Detector, Conflict
// Detector, Health Scorer, and Restructure Proposer, all operating over
// pkg/models.Node.
package contexttree

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/persistence"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/wiki"
)

// Entry is one collected context entry, before tree assembly.
type Entry struct {
	Name       string
	Content    string
	SourceDocKey string
	Generated  bool // true for generated docs (databricks/config_apis), false for a live wiki page
}

// Collector pulls from three sources for an org and returns their union
// plus a provenance summary (§4.5 Collector).
type Collector struct {
	store *persistence.Store
	wiki  wiki.Client
}

func NewCollector(store *persistence.Store, wikiClient wiki.Client) *Collector {
	return &Collector{store: store, wiki: wikiClient}
}

// Result is the Collector's output.
type Result struct {
	Entries    []Entry
	Provenance string
}

// Collect pulls generated context docs of source-type databricks and
// config_apis (status=active, ordered newest first within each type) plus
// a live wiki listing, drops a live entry whose name case-insensitively
// equals a generated doc's name (generated wins, being richer and already
// curated), drops entries with empty content, and returns the union.
func (c *Collector) Collect(ctx context.Context, orgID string, wikiSpace string) (Result, error) {
	var all []Entry
	generatedNames := map[string]bool{}

	for _, sourceType := range []models.ContextDocSourceType{models.SourceDatabricks, models.SourceConfigAPIs} {
		docs, err := c.store.ListActiveContextDocs(ctx, orgID, sourceType)
		if err != nil {
			continue
		}
		// ListActiveContextDocs orders by doc_key; reorder newest first,
		// keeping doc_key order among docs created at the same instant.
		sort.SliceStable(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
		for _, d := range docs {
			if strings.TrimSpace(d.DocContent) == "" {
				continue
			}
			all = append(all, Entry{
				Name:         d.DocName,
				Content:      d.DocContent,
				SourceDocKey: d.DocKey,
				Generated:    true,
			})
			generatedNames[strings.ToLower(d.DocName)] = true
		}
	}

	liveCount := 0
	if c.wiki != nil {
		pages, err := c.wiki.ListPages(ctx, wikiSpace)
		if err == nil {
			for _, pg := range pages {
				if generatedNames[strings.ToLower(pg.Title)] {
					continue // generated wins, being richer and already curated
				}
				if strings.TrimSpace(pg.Markdown) == "" {
					continue
				}
				all = append(all, Entry{Name: pg.Title, Content: pg.Markdown})
				liveCount++
			}
		}
	}

	return Result{
		Entries:    all,
		Provenance: fmt.Sprintf("generated=%d live=%d", len(all)-liveCount, liveCount),
	}, nil
}
