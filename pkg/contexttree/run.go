package contexttree

import (
	"context"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// Options configures one end-to-end context tree build.
type Options struct {
	Provider  string
	Model     string
	OrgID     string
	WikiSpace string

	// SanitizeBlueprint, when non-empty, enables the Sanitizer in place of
	// the Tree Builder's default content-attach step.
	SanitizeBlueprint  string
	SanitizeMaxTokens  int
}

// Run executes the full Context Tree Engine pipeline: collect, build,
// attach (or sanitize), scan secrets, detect redundancy, detect conflicts,
// score health. Each phase's usage is summed into the returned total.
func Run(ctx context.Context, gw *llmgw.Gateway, collector *Collector, opts Options) (*models.Node, Result, llmgw.Usage, error) {
	collected, err := collector.Collect(ctx, opts.OrgID, opts.WikiSpace)
	if err != nil {
		return nil, Result{}, llmgw.Usage{}, err
	}

	root, usage, err := BuildTree(ctx, gw, opts.Provider, opts.Model, collected.Entries)
	if err != nil {
		return nil, collected, usage, err
	}
	total := usage

	if opts.SanitizeBlueprint != "" {
		sanitized, sanResult, err := Sanitize(ctx, gw, opts.Provider, opts.Model, opts.SanitizeBlueprint, collected.Entries, opts.SanitizeMaxTokens)
		if err == nil {
			AttachSanitized(root, sanitized, collected.Entries)
			total.InputTokens += sanResult.Usage.InputTokens
			total.OutputTokens += sanResult.Usage.OutputTokens
			total.TotalTokens += sanResult.Usage.TotalTokens
		}
	}

	ScanSecrets(root)

	if u, err := DetectRedundancy(ctx, gw, opts.Provider, opts.Model, root); err == nil {
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.TotalTokens += u.TotalTokens
	}

	if u, err := DetectConflicts(ctx, gw, opts.Provider, opts.Model, root); err == nil {
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.TotalTokens += u.TotalTokens
	}

	ScoreHealth(root)

	return root, collected, total, nil
}
