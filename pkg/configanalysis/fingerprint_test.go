package configanalysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestTruncateCapsLongStrings(t *testing.T) {
	long := strings.Repeat("x", maxStringLen+10)
	raw := json.RawMessage(`{"name":"short","description":"` + long + `"}`)

	out, err := truncate(raw)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	assert.Equal(t, "short", parsed.Get("name").String())
	desc := parsed.Get("description").String()
	assert.True(t, strings.HasSuffix(desc, "...[truncated]"))
	assert.Len(t, desc, maxStringLen+len("...[truncated]"))
}

func TestTruncateCapsLongArraysWithSummary(t *testing.T) {
	items := make([]string, maxArrayLen+5)
	for i := range items {
		items[i] = `"item"`
	}
	raw := json.RawMessage(`{"tags":[` + strings.Join(items, ",") + `]}`)

	out, err := truncate(raw)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	tags := parsed.Get("tags").Array()
	require.Len(t, tags, maxArrayLen+1)
	assert.Equal(t, "item", tags[0].String())
	assert.Contains(t, tags[maxArrayLen].Get("_summary").String(), "5 more items")
}

func TestTruncateLeavesShortDocumentsUnchanged(t *testing.T) {
	raw := json.RawMessage(`{"name":"ok","count":3,"tags":["a","b"]}`)
	out, err := truncate(raw)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(out))
}

func TestTruncateNestedStringsInsideCappedArray(t *testing.T) {
	longItem := `"` + strings.Repeat("y", maxStringLen+1) + `"`
	items := make([]string, maxArrayLen+1)
	for i := range items {
		items[i] = `{"note":` + longItem + `}`
	}
	raw := json.RawMessage(`{"entries":[` + strings.Join(items, ",") + `]}`)

	out, err := truncate(raw)
	require.NoError(t, err)

	parsed := gjson.ParseBytes(out)
	entries := parsed.Get("entries").Array()
	require.Len(t, entries, maxArrayLen+1)
	note := entries[0].Get("note").String()
	assert.True(t, strings.HasSuffix(note, "...[truncated]"))
}
