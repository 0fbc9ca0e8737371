package notebook

import (
	"regexp"
	"strings"
)

// ExtractPythonSQL walks a python cell's source collecting string literals
// passed to any `.sql(...)` call (§4.3): simple one-hop string-variable
// propagation, and f-string parts where substitution sites become
// "{...}". This is a hand-rolled scoped literal/variable tracker rather
// than a true AST walk — Python has no Go AST to reuse, so a small
// Python-lite tokenizer plays that role (see DESIGN.md). When the line pass
// finds no candidate in the cell, a looser whole-cell regex scan is used
// instead.
func ExtractPythonSQL(lines []string) []string {
	vars := map[string]string{}
	var candidates []string

	for _, line := range lines {
		if name, lit, ok := parseSimpleAssignment(line); ok {
			vars[name] = lit
		}
		for _, arg := range findSQLCallArgs(line) {
			if lit, ok := stringLiteralValue(arg); ok {
				candidates = append(candidates, lit)
				continue
			}
			if v, ok := vars[strings.TrimSpace(arg)]; ok {
				candidates = append(candidates, v)
			}
		}
	}

	if len(candidates) == 0 {
		candidates = regexFallback(strings.Join(lines, "\n"))
	}
	return candidates
}

var assignRe = regexp.MustCompile(`^\s*([A-Za-z_]\w*)\s*=\s*(.+?)\s*$`)

// parseSimpleAssignment recognizes `name = "literal"` (including f-strings),
// the only variable-propagation shape §4.3 asks for ("simple one-hop
// string-variable propagation").
func parseSimpleAssignment(line string) (name, value string, ok bool) {
	m := assignRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	lit, litOK := stringLiteralValue(m[2])
	if !litOK {
		return "", "", false
	}
	return m[1], lit, true
}

var sqlCallRe = regexp.MustCompile(`\.sql\(\s*([^,)]+)`)

func findSQLCallArgs(line string) []string {
	matches := sqlCallRe.FindAllStringSubmatch(line, -1)
	args := make([]string, 0, len(matches))
	for _, m := range matches {
		args = append(args, strings.TrimSpace(m[1]))
	}
	return args
}

var stringLiteralRe = regexp.MustCompile(`(?s)^(f|F)?("""(.*)"""|'''(.*)'''|"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')$`)
var fstringSubRe = regexp.MustCompile(`\{[^{}]*\}`)

// stringLiteralValue returns the literal's body if expr is a python string
// literal (optionally f-prefixed), normalizing f-string substitution sites
// to "{...}".
func stringLiteralValue(expr string) (string, bool) {
	expr = strings.TrimSpace(expr)
	m := stringLiteralRe.FindStringSubmatch(expr)
	if m == nil {
		return "", false
	}
	isF := m[1] != ""
	var body string
	for _, g := range []string{m[3], m[4], m[5], m[6]} {
		if g != "" {
			body = g
			break
		}
	}
	if isF {
		body = fstringSubRe.ReplaceAllString(body, "{...}")
	}
	return body, true
}

// regexFallback handles AST-unparseable fragments (multi-line calls,
// unusual formatting) by loosely matching `.sql(` followed eventually by a
// quoted literal anywhere in the cell text.
var fallbackSQLRe = regexp.MustCompile(`(?s)\.sql\(\s*(?:f|F)?("""(.*?)"""|'''(.*?)'''|"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')`)

func regexFallback(text string) []string {
	var out []string
	for _, m := range fallbackSQLRe.FindAllStringSubmatch(text, -1) {
		for _, g := range []string{m[2], m[3], m[4], m[5]} {
			if g != "" {
				out = append(out, fstringSubRe.ReplaceAllString(g, "{...}"))
				break
			}
		}
	}
	return out
}
