// Package sqlparser defines the contract for the external SQL engine the
// Fingerprint Engine (§4.3) depends on. Per §1 the parser itself is
// explicitly out of scope — this package only defines the interface, a
// small heuristic implementation usable without a real external service,
// and (in pkg/sqlparser/grpcparser) an adapter to call one over the wire.
package sqlparser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// Statement classifies the outer SQL verb for the validate/format contract
// in §4.3's Notebook Cell Parser: "pass-through for SELECT|WITH|USE|SHOW|
// DESCRIBE|DESC|EXPLAIN; for CREATE|INSERT, extract the embedded SELECT/WITH
// expression if present, else reject; reject all other DDL/DML."
type Statement string

const (
	StatementPassThrough Statement = "pass_through"
	StatementExtracted   Statement = "extracted"
	StatementRejected    Statement = "rejected"
)

// ValidateResult is the outcome of classifying and (if applicable)
// extracting a candidate SQL fragment.
type ValidateResult struct {
	Classification Statement
	SQL            string // the pass-through or extracted text; empty if rejected
}

// ParsedQuery is one query's structured decomposition, the Parse contract
// Phase 1 of the Fingerprint Engine consumes (§4.3, §9 "tagged variant").
type ParsedQuery struct {
	Tables            []string
	AliasMap          map[string]string
	QualifiedColumns  []string
	Functions         []string
	JoinEdges         []models.JoinEdge
	WherePredicates   []string
	GroupBy           []string
	Having            []string
	OrderBy           []string
	Literals          map[string][]string
	CaseWhenBlocks    []string
	WindowExprs       []string
	Flags             models.StructuralFlags
	LimitValue        *int
	SelectColumnCount int
	CanonicalSQL      string
}

// Parser is the external SQL engine's contract. Implementations may call out
// to a real parsing service (pkg/sqlparser/grpcparser) or, for local
// development and tests, the heuristic HeuristicParser below.
type Parser interface {
	// Validate classifies rawSQL per the pass-through/extract/reject
	// contract and returns the text to parse, if any.
	Validate(ctx context.Context, dialect, rawSQL string) (ValidateResult, error)
	// Parse decomposes sql (already validated/extracted) into a ParsedQuery.
	// A per-query parse failure is returned as an error, not a panic — the
	// Fingerprint Engine records it and continues (§4.3: "failures do not
	// abort").
	Parse(ctx context.Context, dialect, sql string) (*ParsedQuery, error)
}

var (
	passThroughVerbs = regexp.MustCompile(`(?i)^\s*(SELECT|WITH|USE|SHOW|DESCRIBE|DESC|EXPLAIN)\b`)
	extractableVerbs = regexp.MustCompile(`(?i)^\s*(CREATE|INSERT)\b`)
	embeddedSelect   = regexp.MustCompile(`(?is)\b(SELECT|WITH)\b.*`)
	paramSentinels   = regexp.MustCompile(`\$\{[^}]*\}|\{[^}]*\}|:\w+|@\w+|\?`)
)

// NormalizeParams rewrites parameter placeholders (${x}, {x}, :x, ?, @x) to
// a sentinel literal so the parser accepts otherwise-unparseable templated
// text (§4.3 Fingerprint Engine phase 0).
func NormalizeParams(sql string) string {
	return paramSentinels.ReplaceAllString(sql, "'__PARAM__'")
}

// HeuristicParser is a conservative, dependency-free Parser used when no
// external parsing service is configured. It classifies statements by verb
// and extracts structure via regex/tokenization rather than a real AST —
// adequate for local development, tests, and as the interface's reference
// implementation (the spec places true SQL parsing out of scope; see
// DESIGN.md for why this heuristic exists instead of a stub that always
// errors).
type HeuristicParser struct{}

// NewHeuristicParser returns a HeuristicParser.
func NewHeuristicParser() *HeuristicParser { return &HeuristicParser{} }

func (HeuristicParser) Validate(_ context.Context, _, rawSQL string) (ValidateResult, error) {
	trimmed := strings.TrimSpace(rawSQL)
	switch {
	case passThroughVerbs.MatchString(trimmed):
		return ValidateResult{Classification: StatementPassThrough, SQL: trimmed}, nil
	case extractableVerbs.MatchString(trimmed):
		if m := embeddedSelect.FindString(trimmed); m != "" {
			return ValidateResult{Classification: StatementExtracted, SQL: strings.TrimSpace(m)}, nil
		}
		return ValidateResult{Classification: StatementRejected}, nil
	default:
		return ValidateResult{Classification: StatementRejected}, nil
	}
}

var (
	fromRe    = regexp.MustCompile(`(?i)\bFROM\s+([a-zA-Z0-9_.]+)(?:\s+(?:AS\s+)?([a-zA-Z0-9_]+))?`)
	joinRe    = regexp.MustCompile(`(?i)\b(INNER|LEFT|RIGHT|FULL|CROSS)?\s*JOIN\s+([a-zA-Z0-9_.]+)(?:\s+(?:AS\s+)?([a-zA-Z0-9_]+))?\s*(?:ON\s+(.+?))?(?:\s+(?:INNER|LEFT|RIGHT|FULL|CROSS|JOIN|WHERE|GROUP|ORDER|HAVING|LIMIT)\b|$)`)
	whereRe   = regexp.MustCompile(`(?is)\bWHERE\s+(.+?)(?:\bGROUP\s+BY\b|\bORDER\s+BY\b|\bHAVING\b|\bLIMIT\b|$)`)
	groupByRe = regexp.MustCompile(`(?is)\bGROUP\s+BY\s+(.+?)(?:\bHAVING\b|\bORDER\s+BY\b|\bLIMIT\b|$)`)
	havingRe  = regexp.MustCompile(`(?is)\bHAVING\s+(.+?)(?:\bORDER\s+BY\b|\bLIMIT\b|$)`)
	orderByRe = regexp.MustCompile(`(?is)\bORDER\s+BY\s+(.+?)(?:\bLIMIT\b|$)`)
	limitRe   = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	funcRe    = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	selectRe  = regexp.MustCompile(`(?is)\bSELECT\s+(.+?)\bFROM\b`)
	caseRe    = regexp.MustCompile(`(?is)\bCASE\b.*?\bEND\b`)
	windowRe  = regexp.MustCompile(`(?i)\b[A-Za-z_][A-Za-z0-9_]*\s*\([^()]*\)\s*OVER\s*\([^()]*\)`)
)

// canonicalFunctionNames rewrites vendor-specific synonyms to a single
// canonical name (§4.3 Fingerprint Engine phase 1).
var canonicalFunctionNames = map[string]string{
	"ifnull":    "coalesce",
	"nvl":       "coalesce",
	"len":       "length",
	"substr":    "substring",
	"getdate":   "now",
	"sysdate":   "now",
	"dateadd":   "date_add",
	"datediff":  "date_diff",
	"concat_ws": "concat",
}

func (HeuristicParser) Parse(_ context.Context, _, sql string) (*ParsedQuery, error) {
	sql = NormalizeParams(sql)
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("sqlparser: empty statement")
	}

	pq := &ParsedQuery{
		AliasMap: map[string]string{},
		Literals: map[string][]string{},
	}

	tableSeen := map[string]bool{}
	if m := fromRe.FindStringSubmatch(sql); m != nil {
		addTable(pq, tableSeen, m[1], m[2])
	}
	for _, m := range joinRe.FindAllStringSubmatch(sql, -1) {
		table, alias, cond := m[2], m[3], strings.TrimSpace(m[4])
		addTable(pq, tableSeen, table, alias)
		joinType := strings.ToUpper(strings.TrimSpace(m[1]))
		if joinType == "" {
			joinType = "INNER"
		}
		if cond != "" {
			left := table
			if alias != "" {
				left = alias
			}
			pq.JoinEdges = append(pq.JoinEdges, models.JoinEdge{Left: left, JoinType: joinType, Condition: cond})
		}
	}

	if m := whereRe.FindStringSubmatch(sql); m != nil {
		pq.WherePredicates = splitTopLevelAnd(m[1])
		extractLiterals(pq, pq.WherePredicates)
	}
	if m := groupByRe.FindStringSubmatch(sql); m != nil {
		pq.GroupBy = splitCommaList(m[1])
	}
	if m := havingRe.FindStringSubmatch(sql); m != nil {
		pq.Having = splitTopLevelAnd(m[1])
	}
	if m := orderByRe.FindStringSubmatch(sql); m != nil {
		pq.OrderBy = splitCommaList(m[1])
	}
	if m := limitRe.FindStringSubmatch(sql); m != nil {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		pq.LimitValue = &n
		pq.Flags.Limit = true
	}
	if m := selectRe.FindStringSubmatch(sql); m != nil {
		cols := splitCommaList(m[1])
		pq.SelectColumnCount = len(cols)
		pq.QualifiedColumns = resolveQualifiedColumns(cols, pq.AliasMap)
	}

	seenFn := map[string]bool{}
	for _, m := range funcRe.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		if canonical, ok := canonicalFunctionNames[name]; ok {
			name = canonical
		}
		if isSQLKeyword(name) || seenFn[name] {
			continue
		}
		seenFn[name] = true
		pq.Functions = append(pq.Functions, name)
	}

	pq.CaseWhenBlocks = caseRe.FindAllString(sql, -1)
	pq.Flags.Case = len(pq.CaseWhenBlocks) > 0
	pq.WindowExprs = windowRe.FindAllString(sql, -1)
	pq.Flags.Window = len(pq.WindowExprs) > 0
	pq.Flags.Having = len(pq.Having) > 0
	pq.Flags.OrderBy = len(pq.OrderBy) > 0
	pq.Flags.CTE = regexp.MustCompile(`(?i)^\s*WITH\b`).MatchString(sql)
	pq.Flags.Union = regexp.MustCompile(`(?i)\bUNION\b`).MatchString(sql)
	pq.Flags.Subquery = strings.Count(sql, "(SELECT") > 0 || strings.Count(sql, "( SELECT") > 0
	pq.Flags.Distinct = regexp.MustCompile(`(?i)\bSELECT\s+DISTINCT\b`).MatchString(sql)

	pq.CanonicalSQL = canonicalize(sql)
	return pq, nil
}

func addTable(pq *ParsedQuery, seen map[string]bool, table, alias string) {
	table = strings.TrimSpace(table)
	if table == "" || seen[table] {
		if alias != "" {
			pq.AliasMap[alias] = table
		}
		return
	}
	seen[table] = true
	pq.Tables = append(pq.Tables, table)
	if alias != "" {
		pq.AliasMap[alias] = table
	}
}

func resolveQualifiedColumns(cols []string, aliasMap map[string]string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		c = strings.TrimSpace(c)
		if c == "" || c == "*" {
			continue
		}
		if idx := strings.LastIndex(c, "."); idx > 0 {
			prefix, col := c[:idx], c[idx+1:]
			if table, ok := aliasMap[prefix]; ok {
				c = table + "." + col
			}
		}
		out = append(out, c)
	}
	return out
}

func extractLiterals(pq *ParsedQuery, predicates []string) {
	eqRe := regexp.MustCompile(`(?i)([a-zA-Z0-9_.]+)\s*=\s*('[^']*'|\d+)`)
	for _, p := range predicates {
		if m := eqRe.FindStringSubmatch(p); m != nil {
			col, val := m[1], m[2]
			pq.Literals[col] = append(pq.Literals[col], val)
		}
	}
}

func splitTopLevelAnd(s string) []string {
	parts := regexp.MustCompile(`(?i)\s+AND\s+`).Split(strings.TrimSpace(s), -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitCommaList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func canonicalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"on": true, "join": true, "group": true, "order": true, "by": true,
	"having": true, "limit": true, "as": true, "case": true, "when": true,
	"then": true, "else": true, "end": true, "over": true,
}

func isSQLKeyword(s string) bool { return sqlKeywords[s] }
