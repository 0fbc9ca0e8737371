package notebook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/sqlparser"
)

// Source is one retained notebook's identity and exported text, the input
// to Extract.
type Source struct {
	Path     string
	Name     string
	Language Language
	FileType string // notebook file extension/type, passed through to ExtractedSql
	Text     string
}

// Extract implements the Notebook Cell Parser end to end (§4.3): split
// cells, classify and extract candidate SQL, sanitize, hash, validate via
// parser, and resolve org-id.
func Extract(ctx context.Context, parser sqlparser.Parser, dialect, runID string, src Source) ([]models.ExtractedSql, error) {
	cells := SplitCells(src.Text, src.Language)
	var rows []models.ExtractedSql

	for _, cell := range cells {
		class, body := classify(cell, src.Language)

		var candidates []string
		switch class {
		case classRejected:
			continue
		case classMagicSQL:
			candidates = []string{strings.Join(body, "\n")}
		case classPython:
			candidates = ExtractPythonSQL(body)
		case classSQL:
			candidates = []string{strings.Join(stripDirectives(body, src.Language), "\n")}
		case classMagicPython:
			candidates = ExtractPythonSQL(body)
		}

		for _, candidate := range candidates {
			candidate = strings.TrimSpace(candidate)
			if candidate == "" {
				continue
			}
			row, err := buildRow(ctx, parser, dialect, runID, src, cell.Index, candidate)
			if err != nil {
				continue // per-query failure does not abort (§4.3 phase 1 discipline)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func buildRow(ctx context.Context, parser sqlparser.Parser, dialect, runID string, src Source, cellIndex int, candidate string) (models.ExtractedSql, error) {
	stripped := StripSQLComments(candidate)
	normalized := sqlparser.NormalizeParams(stripped)

	result, err := parser.Validate(ctx, dialect, normalized)
	if err != nil {
		return models.ExtractedSql{}, err
	}

	cleaned := stripped
	valid := result.Classification != sqlparser.StatementRejected
	if valid && result.SQL != "" {
		cleaned = result.SQL
	}

	hash := sha256.Sum256([]byte(cleaned))
	orgID := ResolveOrgID(candidate, src.Text)

	return models.ExtractedSql{
		RunID:           runID,
		OrgID:           orgID,
		NotebookPath:    src.Path,
		NotebookName:    src.Name,
		Language:        string(src.Language),
		CellIndex:       cellIndex,
		FileType:        src.FileType,
		CleanedSQL:      cleaned,
		ContentHash:     hex.EncodeToString(hash[:]),
		IsValid:         valid,
		RedactedSnippet: RedactPII(candidate),
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// stripDirectives removes MAGIC directive lines from a sql-language cell's
// body before treating the remainder as plain SQL (§4.3: "strip notebook
// directives").
func stripDirectives(lines []string, lang Language) []string {
	prefix := commentPrefix(lang)
	var out []string
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), prefix+" MAGIC") {
			continue
		}
		out = append(out, l)
	}
	return out
}
