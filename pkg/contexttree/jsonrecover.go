package contexttree

import (
	"encoding/json"
	"regexp"
	"strings"
)

// codeFenceRe strips Markdown code fences an LLM sometimes wraps JSON in.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\n?|```")

// objectRe and arrayRe extract the outermost {...} or [...] span from text that
// has a preamble/trailer around the JSON.
var objectRe = regexp.MustCompile(`(?s)\{.*\}`)
var arrayRe = regexp.MustCompile(`(?s)\[.*\]`)

// parseRecoveringJSON parses text into out, tolerating a truncated response
// (§4.5: "Parsing is robust to truncation"). It tries, in order: strip code
// fences and parse directly; regex-extract the outermost object/array and
// parse; progressively trim the tail to the last plausible structural
// terminator, auto-closing any open strings/arrays/objects, and retry.
// wantArray selects whether the outermost structure is [...] or {...}.
func parseRecoveringJSON(text string, wantArray bool, out any) error {
	stripped := strings.TrimSpace(codeFenceRe.ReplaceAllString(text, ""))

	if err := json.Unmarshal([]byte(stripped), out); err == nil {
		return nil
	}

	re := objectRe
	if wantArray {
		re = arrayRe
	}
	if m := re.FindString(stripped); m != "" {
		if err := json.Unmarshal([]byte(m), out); err == nil {
			return nil
		}
		stripped = m
	}

	if repaired, ok := repairTruncated(stripped); ok {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	return json.Unmarshal([]byte(stripped), out) // surface the original error
}

// repairTruncated progressively trims text from the tail to the last
// plausible structural terminator (",", "}", "]") and auto-closes any open
// strings/arrays/objects, producing a best-effort parseable prefix.
func repairTruncated(text string) (string, bool) {
	terminators := []byte{'}', ']', ','}
	for cut := len(text); cut > 0; cut-- {
		if cut < len(text) {
			c := text[cut-1]
			terminal := false
			for _, t := range terminators {
				if c == t {
					terminal = true
					break
				}
			}
			if !terminal {
				continue
			}
		}
		candidate := text[:cut]
		candidate = strings.TrimRight(strings.TrimSpace(candidate), ",")
		if closed, ok := autoClose(candidate); ok && json.Valid([]byte(closed)) {
			return closed, true
		}
	}
	return "", false
}

// autoClose walks candidate tracking quote/escape state and a stack of open
// {/[ delimiters, closing any still-open string then appending the matching
// closers in reverse order.
func autoClose(candidate string) (string, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, c)
		case '}', ']':
			if len(stack) == 0 {
				return "", false
			}
			stack = stack[:len(stack)-1]
		}
	}

	var b strings.Builder
	b.WriteString(candidate)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	if len(stack) == 0 && !inString {
		return "", false // nothing was actually truncated/open; let the caller use its original attempt
	}
	return b.String(), true
}
