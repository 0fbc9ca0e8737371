package sqldocs

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/config"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/llmgw"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// FocusTopic is one suggested focus-doc topic (§4.3 Focus-Doc Assessor).
type FocusTopic struct {
	Title       string   `json:"title"`
	Reason      string   `json:"reason"`
	Tables      []string `json:"tables"`
	KeyConcepts []string `json:"key_concepts"`
}

const maxFocusTopics = 3

var fencesRe = regexp.MustCompile("(?s)```(?:json)?\\n?|```")

// AssessFocusTopics presents the core doc summaries and data highlights
// (all tables, complex multi-table clusters, enum columns, structural
// counters) and asks for up to three focus topics.
func AssessFocusTopics(ctx context.Context, gw *llmgw.Gateway, provider, model string, run *models.AnalysisRun, docs map[config.DocSlot]Doc) ([]FocusTopic, error) {
	highlights := buildHighlights(run)

	var summaries strings.Builder
	for _, slot := range []config.DocSlot{config.SlotMaster, config.SlotSchema, config.SlotBusiness, config.SlotFilters, config.SlotPatterns} {
		d, ok := docs[slot]
		if !ok || d.Err != nil {
			continue
		}
		summaries.WriteString(string(slot) + ": " + firstLines(d.Text, 5) + "\n")
	}

	prompt := "Given these document summaries and data highlights, suggest up to three focus topics worth a " +
		"dedicated deep-dive document. Respond with a JSON array of objects: " +
		`{"title":..., "reason":..., "tables":[...], "key_concepts":[...]}` +
		".\n\nSummaries:\n" + summaries.String() + "\n\nHighlights:\n" + highlights

	p, err := gw.Provider(provider)
	if err != nil {
		return nil, err
	}
	resp, err := p.Call(ctx, llmgw.Request{
		Messages: []llmgw.Message{{Role: llmgw.RoleUser, Content: prompt}},
		Model:    model,
	})
	if err != nil {
		return nil, err
	}

	text := fencesRe.ReplaceAllString(resp.Text, "")
	var topics []FocusTopic
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &topics); err != nil {
		return nil, fmt.Errorf("focus-doc assessor: parse topics: %w", err)
	}
	if len(topics) > maxFocusTopics {
		topics = topics[:maxFocusTopics]
	}
	return topics, nil
}

func buildHighlights(run *models.AnalysisRun) string {
	var b strings.Builder
	b.WriteString("All tables: " + strings.Join(run.Counters.Tables.Top(1000), ", ") + "\n")

	var multiTable []string
	for _, c := range run.Clusters {
		if strings.Contains(c.TableSignature, "|") {
			multiTable = append(multiTable, c.TableSignature)
		}
	}
	b.WriteString(fmt.Sprintf("Complex multi-table clusters: %s\n", strings.Join(multiTable, "; ")))

	var enumColumns []string
	for col, vals := range run.LiteralVals {
		if len(vals) > 0 && len(vals) <= 20 {
			enumColumns = append(enumColumns, col)
		}
	}
	b.WriteString("Enum-like columns: " + strings.Join(enumColumns, ", ") + "\n")
	b.WriteString(fmt.Sprintf("Structural counters: %v\n", run.Counters.StructuralFlags))
	return b.String()
}

// FocusPayload builds a payload restricted to topic.Tables (expanded via
// cluster intersection: any cluster sharing at least one table with the
// topic is included in full).
func FocusPayload(run *models.AnalysisRun, topic FocusTopic) (Payload, error) {
	tableSet := map[string]bool{}
	for _, t := range topic.Tables {
		tableSet[strings.ToLower(t)] = true
	}

	var expandedClusters []models.QueryCluster
	for _, c := range run.Clusters {
		for _, t := range strings.Split(c.TableSignature, "|") {
			if tableSet[strings.ToLower(t)] {
				expandedClusters = append(expandedClusters, c)
				break
			}
		}
	}

	data := map[string]any{
		"topic":    topic,
		"clusters": expandedClusters,
	}
	return buildPayload(config.DocSlot(""), data)
}

func firstLines(text string, n int) string {
	lines := strings.SplitN(text, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, " ")
}
