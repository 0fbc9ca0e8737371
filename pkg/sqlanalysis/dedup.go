// Package sqlanalysis implements the SQL Fingerprint Engine, Frequency
// Counters, Query Clusterer, and Filter Classifier of §4.3. Phase 0 dedup
// and phase 1 extraction are grounded on the original's
// apps/api/app/services/sql_analysis.py merge passes; the canonical Go
// parse step dispatches through pkg/sqlparser.Parser (§1 excludes the
// parser itself).
package sqlanalysis

import (
	"regexp"
	"strings"
)

// candidate is one row surviving into phase 0 dedup: the raw SQL text plus
// its source frequency (always 1 coming from extraction, but merges sum).
type candidate struct {
	sql       string
	freq      int
	nlHint    string
}

var selectOrWithRe = regexp.MustCompile(`(?i)^\s*(SELECT|WITH)\b`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// DedupInput is one valid SQL row going into phase 0.
type DedupInput struct {
	SQL    string
	NLHint string
}

// dedupedQuery is phase 0's output before canonical-parse merge.
type dedupedQuery struct {
	SQL    string
	Freq   int
	NLHint string
}

// DedupPhase0 implements §4.3 Fingerprint Engine phase 0: drop non-SELECT/
// WITH, merge by exact case-insensitive whitespace-normalized text (summing
// frequency, keeping the first natural-language hint), then merge again by
// canonical-parsed text via canonicalize, summing frequencies further.
//
// canonicalize receives the original SQL text of each text group's first
// occurrence and returns a dialect-specific canonical form (false falls
// back to the whitespace-normalized text); callers pass a closure over
// pkg/sqlparser.Parser.Parse (or equivalent) so this package stays
// parser-agnostic.
func DedupPhase0(inputs []DedupInput, canonicalize func(sql string) (string, bool)) []dedupedQuery {
	byNormalized := map[string]*dedupedQuery{}
	var order []string

	for _, in := range inputs {
		if !selectOrWithRe.MatchString(in.SQL) {
			continue
		}
		norm := strings.ToUpper(whitespaceRe.ReplaceAllString(strings.TrimSpace(in.SQL), " "))
		if existing, ok := byNormalized[norm]; ok {
			existing.Freq++
			continue
		}
		dq := &dedupedQuery{SQL: in.SQL, Freq: 1, NLHint: in.NLHint}
		byNormalized[norm] = dq
		order = append(order, norm)
	}

	byCanonical := map[string]*dedupedQuery{}
	var canonicalOrder []string
	for _, norm := range order {
		dq := byNormalized[norm]
		canon, ok := canonicalize(dq.SQL)
		if !ok {
			canon = norm // fall back to the whitespace-normalized form
		}
		if existing, ok := byCanonical[canon]; ok {
			existing.Freq += dq.Freq
			continue
		}
		merged := &dedupedQuery{SQL: dq.SQL, Freq: dq.Freq, NLHint: dq.NLHint}
		byCanonical[canon] = merged
		canonicalOrder = append(canonicalOrder, canon)
	}

	out := make([]dedupedQuery, 0, len(canonicalOrder))
	for _, canon := range canonicalOrder {
		out = append(out, *byCanonical[canon])
	}
	return out
}
