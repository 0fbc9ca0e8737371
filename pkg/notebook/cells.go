// Package notebook implements the Notebook Cell Parser (§4.3): splitting a
// retained notebook's exported source into cells, classifying and rejecting
// non-SQL-bearing cells, extracting candidate SQL text (via a MAGIC-SQL
// sub-block or an AST-walk-equivalent .sql(...) literal scan), sanitizing
// it, and handing it to the external SQL parser for validation.
package notebook

import "strings"

// Language is a notebook's (or cell's) source language.
type Language string

const (
	LangPython Language = "PYTHON"
	LangSQL    Language = "SQL"
)

// Cell is one notebook cell after splitting, before classification.
type Cell struct {
	Index int
	Lines []string
}

const commandBoundary = "COMMAND ----------"

func commentPrefix(lang Language) string {
	if lang == LangSQL {
		return "--"
	}
	return "#"
}

// SplitCells splits source on the platform-specific boundary marker: a line
// whose content (after the language comment prefix) is "COMMAND ----------".
func SplitCells(source string, lang Language) []Cell {
	prefix := commentPrefix(lang)
	boundary := prefix + " " + commandBoundary

	var cells []Cell
	var cur []string
	idx := 0
	flush := func() {
		if len(cur) == 0 {
			return
		}
		cells = append(cells, Cell{Index: idx, Lines: cur})
		idx++
		cur = nil
	}

	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if strings.HasPrefix(strings.TrimSpace(trimmed), boundary) || strings.TrimSpace(trimmed) == boundary {
			flush()
			continue
		}
		// Skip the notebook-source header line ("# Databricks notebook source" or similar).
		if idx == 0 && len(cur) == 0 && strings.Contains(trimmed, "notebook source") {
			continue
		}
		cur = append(cur, trimmed)
	}
	flush()
	return cells
}

// magicDirective reports the MAGIC directive on a line, if any, e.g. "%sql",
// "%md", "%python". Platform-exported MAGIC lines look like
// "# MAGIC %sql" (python cells) or "-- MAGIC %python" (sql cells).
func magicDirective(line string, lang Language) (directive string, body string, ok bool) {
	prefix := commentPrefix(lang)
	marker := prefix + " MAGIC"
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, marker) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
	if strings.HasPrefix(rest, "%") {
		fields := strings.SplitN(rest, " ", 2)
		directive = fields[0]
		if len(fields) > 1 {
			body = fields[1]
		}
		return directive, body, true
	}
	return "", rest, true
}

var rejectedMagics = map[string]bool{
	"%md": true, "%sh": true, "%pip": true, "%fs": true, "%run": true, "%r": true, "%scala": true,
}

// classification is the cell-level outcome before SQL extraction.
type classification int

const (
	classRejected classification = iota
	classPython
	classMagicSQL
	classSQL
	classMagicPython
)

// classify determines how to treat a cell per §4.3: reject markdown/
// shell/pip cells and fully-commented cells, otherwise identify a
// MAGIC-SQL or MAGIC-python sub-block.
func classify(cell Cell, notebookLang Language) (classification, []string) {
	prefix := commentPrefix(notebookLang)

	var magicDirectives []string
	var bodyLines []string
	allComment := true
	anyContent := false

	for _, line := range cell.Lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		anyContent = true
		if d, body, ok := magicDirective(line, notebookLang); ok {
			if d != "" {
				magicDirectives = append(magicDirectives, d)
			}
			bodyLines = append(bodyLines, body)
			continue
		}
		bodyLines = append(bodyLines, line)
		if !strings.HasPrefix(trimmed, prefix) {
			allComment = false
		}
	}

	if !anyContent {
		return classRejected, nil
	}
	for _, d := range magicDirectives {
		if rejectedMagics[d] {
			return classRejected, nil
		}
	}
	if allComment && len(magicDirectives) == 0 {
		return classRejected, nil
	}

	hasSQLMagic := false
	hasPythonMagic := false
	for _, d := range magicDirectives {
		if d == "%sql" {
			hasSQLMagic = true
		}
		if d == "%python" {
			hasPythonMagic = true
		}
	}

	switch notebookLang {
	case LangPython:
		if hasSQLMagic {
			return classMagicSQL, bodyLines
		}
		return classPython, cell.Lines
	case LangSQL:
		if hasPythonMagic {
			return classMagicPython, bodyLines
		}
		return classSQL, bodyLines
	}
	return classRejected, nil
}
