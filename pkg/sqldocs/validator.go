package sqldocs

import (
	"context"
	"math/rand"
	"regexp"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// sevenCategories are the fixed validator categories (§4.3).
var sevenCategories = []string{
	"terminology conflicts", "contradictions", "coverage gaps",
	"redundancy", "syntax inconsistency", "statistics leakage",
}

// ValidateResult is the cross-document validator's outcome.
type ValidateResult struct {
	Pass        bool
	Report      string
	FlaggedDocs []config.DocSlot
}

var docKeyRe = regexp.MustCompile(`0[1-5]_[A-Z]+`)

// Validate implements §4.3 Cross-Document Validator: concatenate all five
// docs, ask the LLM for issues across the seven fixed categories; PASS
// stops, otherwise parse which doc-keys are mentioned for re-authoring.
func Validate(ctx context.Context, gw *llmgw.Gateway, provider, model string, docs map[config.DocSlot]Doc) (ValidateResult, error) {
	var b strings.Builder
	for _, slot := range []config.DocSlot{config.SlotMaster, config.SlotSchema, config.SlotBusiness, config.SlotFilters, config.SlotPatterns} {
		d, ok := docs[slot]
		if !ok || d.Err != nil {
			continue
		}
		b.WriteString("=== " + string(slot) + " ===\n" + d.Text + "\n\n")
	}

	prompt := "Review these five documents for issues in exactly these categories: " +
		strings.Join(sevenCategories, ", ") + ". If there are no issues, respond with exactly PASS. " +
		"Otherwise list each issue with the doc-key(s) it concerns.\n\n" + b.String()

	p, err := gw.Provider(provider)
	if err != nil {
		return ValidateResult{}, err
	}
	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: prompt}},
		Model:    model,
	})
	if err != nil {
		return ValidateResult{}, err
	}

	trimmed := strings.TrimSpace(resp.Text)
	if strings.HasPrefix(trimmed, "PASS") {
		return ValidateResult{Pass: true, Report: trimmed}, nil
	}

	seen := map[string]bool{}
	var flagged []config.DocSlot
	for _, m := range docKeyRe.FindAllString(trimmed, -1) {
		if !seen[m] {
			seen[m] = true
			flagged = append(flagged, config.DocSlot(m))
		}
	}
	return ValidateResult{Pass: false, Report: trimmed, FlaggedDocs: flagged}, nil
}

// SpotCheck samples up to 20 fingerprints and verifies each sample's
// tables are textually present somewhere across the five docs (§4.3:
// "its pass rate is recorded but not gating").
func SpotCheck(fingerprints []models.AnalysisFingerprint, docs map[config.DocSlot]Doc) float64 {
	if len(fingerprints) == 0 {
		return 1.0
	}

	var allText strings.Builder
	for _, d := range docs {
		allText.WriteString(d.Text)
		allText.WriteString("\n")
	}
	corpus := allText.String()

	sampleSize := 20
	if sampleSize > len(fingerprints) {
		sampleSize = len(fingerprints)
	}
	indices := rand.Perm(len(fingerprints))[:sampleSize]

	passed := 0
	for _, idx := range indices {
		fp := fingerprints[idx]
		if allTablesPresent(fp.Tables, corpus) {
			passed++
		}
	}
	return float64(passed) / float64(sampleSize)
}

func allTablesPresent(tables []string, corpus string) bool {
	if len(tables) == 0 {
		return true
	}
	lower := strings.ToLower(corpus)
	for _, t := range tables {
		if !strings.Contains(lower, strings.ToLower(t)) {
			return false
		}
	}
	return true
}
