package llmgw

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// charsPerToken is the approximate number of characters per token for
// English text. Used for budgeting only, not exact token counting.
const charsPerToken = 4

// EstimateTokens returns an approximate token count for text, using the
// common ~4-chars-per-token heuristic. Intentionally approximate: an exact
// count would need a tokenizer library and a dependency for little benefit,
// since every caller here treats the result as a soft budget, not a hard one.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// PerDocumentBudget divides a total output token budget evenly across n
// documents (§4.4 Sanitizer: "per-document token budget = total output
// budget / number of documents"). n<=0 is treated as 1 to avoid a divide
// by zero when called before the document count is known.
func PerDocumentBudget(totalOutputTokens, n int) int {
	if n <= 0 {
		n = 1
	}
	return totalOutputTokens / n
}

// CapToBudget truncates text to fit within maxTokens, cutting at the last
// paragraph boundary before the limit when one exists past the halfway
// point, otherwise at the last line boundary, so structured content (JSON,
// Markdown sections) doesn't split mid-block.
func CapToBudget(text string, maxTokens int) string {
	maxChars := maxTokens * charsPerToken
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	truncated := text[:cut]

	if idx := strings.LastIndex(truncated, "\n\n"); idx > maxChars/2 {
		return truncated[:idx]
	}
	if idx := strings.LastIndex(truncated, "\n"); idx > 0 {
		return truncated[:idx]
	}
	return truncated
}

// FormatContextsForLLM renders a set of named context blobs into one prompt
// section and returns the per-document token budget alongside it (§4.4).
func FormatContextsForLLM(contexts []ContextBlob, maxOutputTokens int) (string, int) {
	budget := PerDocumentBudget(maxOutputTokens, len(contexts))

	var b strings.Builder
	for i, c := range contexts {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("Context_%d", i+1)
		}
		scope := c.Scope
		if scope == "" {
			scope = "org"
		}
		fmt.Fprintf(&b, "--- Context %d: %s (scope: %s) ---\n%s\n\n", i+1, name, scope, c.Content)
	}
	return strings.TrimRight(b.String(), "\n"), budget
}

// ContextBlob is one named context document fed into FormatContextsForLLM.
type ContextBlob struct {
	Name    string
	Scope   string
	Content string
}
