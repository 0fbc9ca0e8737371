package contexttree

import (
	"context"
	"fmt"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

const maxConflictPairs = 20

// ruleKeywords are the rule-like terms that qualify a cross-category pair
// for conflict checking (§4.5 Conflict Detector).
var ruleKeywords = []string{"rule", "default", "always", "never", "must", "should"}

type leafPair struct {
	A, B *models.Node
}

// conflictReport is the LLM's per-pair output; a pair with no conflict is
// reported as the literal string "NONE" instead of this shape.
type conflictReport struct {
	Pair        [2]string `json:"pair"`
	Severity    string    `json:"severity"`
	Description string    `json:"description"`
}

// DetectConflicts builds up to 20 candidate pairs (every within-category
// pair, plus cross-category pairs where both leaves contain a rule-like
// keyword), sends them in one LLM call, and appends a mirrored conflict
// entry to both leaves for every reported pair (§4.5 Conflict Detector).
func DetectConflicts(ctx context.Context, gw *llmgw.Gateway, provider, model string, root *models.Node) (llmgw.Usage, error) {
	pairs := buildConflictPairs(root)
	if len(pairs) == 0 {
		return llmgw.Usage{}, nil
	}

	p, err := gw.Provider(provider)
	if err != nil {
		return llmgw.Usage{}, err
	}

	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: buildConflictPrompt(pairs)}},
		Model:    model,
	})
	if err != nil {
		return llmgw.Usage{}, fmt.Errorf("conflict detector: call LLM: %w", err)
	}

	for i, block := range splitConflictBlocks(resp.Text, len(pairs)) {
		trimmed := strings.TrimSpace(block)
		if trimmed == "" || strings.EqualFold(trimmed, "NONE") {
			continue
		}
		var cr conflictReport
		if err := parseRecoveringJSON(trimmed, false, &cr); err != nil {
			continue
		}
		if i < len(pairs) {
			applyConflict(pairs[i], cr)
		} else {
			applyConflictByID(root, cr)
		}
	}
	return resp.Usage, nil
}

func buildConflictPairs(root *models.Node) []leafPair {
	var pairs []leafPair
	for _, cat := range root.Categories() {
		leaves := cat.Leaves()
		for i := 0; i < len(leaves); i++ {
			for j := i + 1; j < len(leaves); j++ {
				pairs = append(pairs, leafPair{leaves[i], leaves[j]})
				if len(pairs) >= maxConflictPairs {
					return pairs
				}
			}
		}
	}

	allLeaves := root.Leaves()
	for i := 0; i < len(allLeaves) && len(pairs) < maxConflictPairs; i++ {
		for j := i + 1; j < len(allLeaves) && len(pairs) < maxConflictPairs; j++ {
			a, b := allLeaves[i], allLeaves[j]
			if sameCategory(root, a, b) {
				continue
			}
			if containsRuleKeyword(a.Desc) && containsRuleKeyword(b.Desc) {
				pairs = append(pairs, leafPair{a, b})
			}
		}
	}
	return pairs
}

func sameCategory(root *models.Node, a, b *models.Node) bool {
	catA := nearestCategory(root, a)
	catB := nearestCategory(root, b)
	return catA != nil && catB != nil && catA.ID == catB.ID
}

func containsRuleKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range ruleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func buildConflictPrompt(pairs []leafPair) string {
	var b strings.Builder
	b.WriteString("For each numbered pair below, respond on its own line with either the literal NONE, or a JSON object " +
		`{"pair": [id_a, id_b], "severity": "low|medium|high", "description": "..."}` + " if the two documents conflict.\n\n")
	for i, pr := range pairs {
		fmt.Fprintf(&b, "%d. A(id=%s name=%q): %s\n   B(id=%s name=%q): %s\n\n",
			i+1, pr.A.ID, pr.A.Name, firstLine(pr.A.Desc), pr.B.ID, pr.B.Name, firstLine(pr.B.Desc))
	}
	return b.String()
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return text[:idx]
	}
	return text
}

// splitConflictBlocks assumes one response line per pair position, which is
// the contract asked of the model; a model that collapses NONE lines still
// parses fine since blank/NONE blocks are just skipped.
func splitConflictBlocks(text string, n int) []string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == n {
		return lines
	}
	return lines
}

func applyConflict(pair leafPair, cr conflictReport) {
	addMirror(pair.A, pair.B.ID, cr)
	addMirror(pair.B, pair.A.ID, cr)
}

func applyConflictByID(root *models.Node, cr conflictReport) {
	a := root.FindByID(cr.Pair[0])
	b := root.FindByID(cr.Pair[1])
	if a == nil || b == nil {
		return
	}
	addMirror(a, b.ID, cr)
	addMirror(b, a.ID, cr)
}

func addMirror(leaf *models.Node, otherID string, cr conflictReport) {
	if leaf.Analysis == nil {
		leaf.Analysis = &models.Analysis{}
	}
	leaf.Analysis.Conflicts = append(leaf.Analysis.Conflicts, models.Conflict{
		With:        otherID,
		Description: cr.Description,
		Severity:    cr.Severity,
	})
}
