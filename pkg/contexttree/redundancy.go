package contexttree

import (
	"context"
	"fmt"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

const redundancyBatchSize = 10
const redundancyReportThreshold = 30 // overlap%% above which the LLM is asked to report a pair
const redundancyApplyThreshold = 40 // score at/above which the overlap is applied to the tree

// overlapLine is one JSON-lines record the LLM emits per overlapping pair.
type overlapLine struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Score  int    `json:"score"`
	Detail string `json:"detail"`
}

// DetectRedundancy batches leaves in groups of 10, asks the LLM to rate
// pairwise overlap, and applies every reported pair with score >= 40 by
// setting leaf.analysis.redundancy.score to the max incoming score and
// appending the other leaf's id to overlaps_with (§4.5 Redundancy Detector).
func DetectRedundancy(ctx context.Context, gw *llmgw.Gateway, provider, model string, root *models.Node) (llmgw.Usage, error) {
	p, err := gw.Provider(provider)
	if err != nil {
		return llmgw.Usage{}, err
	}

	leaves := root.Leaves()
	var total llmgw.Usage

	for start := 0; start < len(leaves); start += redundancyBatchSize {
		end := start + redundancyBatchSize
		if end > len(leaves) {
			end = len(leaves)
		}
		batch := leaves[start:end]
		if len(batch) < 2 {
			continue
		}

		prompt := buildRedundancyPrompt(batch)
		resp, err := p.Call(ctx, llmgw.Request{
			Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: prompt}},
			Model:    model,
		})
		if err != nil {
			continue // one batch failing doesn't abort the rest
		}
		total.InputTokens += resp.Usage.InputTokens
		total.OutputTokens += resp.Usage.OutputTokens
		total.TotalTokens += resp.Usage.TotalTokens

		for _, line := range strings.Split(resp.Text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			var ol overlapLine
			if err := parseRecoveringJSON(line, false, &ol); err != nil {
				continue
			}
			if ol.Score < redundancyApplyThreshold {
				continue
			}
			applyOverlap(root, ol)
		}
	}
	return total, nil
}

func buildRedundancyPrompt(batch []*models.Node) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Rate pairwise content overlap between these %d documents. For every pair whose overlap exceeds %d%%, "+
		"emit one JSON object per line: {\"a\": id, \"b\": id, \"score\": 0-100, \"detail\": \"...\"}. Emit nothing for pairs below the threshold.\n\n",
		len(batch), redundancyReportThreshold))
	for _, leaf := range batch {
		fmt.Fprintf(&b, "id=%s name=%q:\n%s\n\n", leaf.ID, leaf.Name, leaf.Desc)
	}
	return b.String()
}

func applyOverlap(root *models.Node, ol overlapLine) {
	a := root.FindByID(ol.A)
	b := root.FindByID(ol.B)
	if a == nil || b == nil {
		return
	}
	for _, leaf := range []*models.Node{a, b} {
		other := b
		if leaf == b {
			other = a
		}
		if leaf.Analysis == nil {
			leaf.Analysis = &models.Analysis{}
		}
		if ol.Score > leaf.Analysis.Redundancy.Score {
			leaf.Analysis.Redundancy.Score = ol.Score
			leaf.Analysis.Redundancy.Detail = ol.Detail
		}
		if !containsString(leaf.Analysis.Redundancy.OverlapsWith, other.ID) {
			leaf.Analysis.Redundancy.OverlapsWith = append(leaf.Analysis.Redundancy.OverlapsWith, other.ID)
		}
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
