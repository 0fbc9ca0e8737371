package configanalysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	maxStringLen = 2000
	maxArrayLen  = 50
)

var ruleKeywords = map[string]string{
	"rule": "has_rules", "condition": "has_conditions", "conditions": "has_conditions",
	"workflow": "has_workflow", "stage": "has_workflow", "step": "has_workflow",
}

// BuildFingerprint implements §4.4 Config Fingerprint Engine for one
// returned item: entity-type/subtype/name resolution, top-level field
// names/types, categorical values, nested-object keys, complexity metrics,
// and the three structural flags from a recursive keyword scan of key
// names. Long strings/arrays are truncated/capped before RawJSON storage.
func BuildFingerprint(category, apiName string, raw json.RawMessage) (models.ConfigFingerprint, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsObject() {
		return models.ConfigFingerprint{}, fmt.Errorf("configanalysis: item is not a JSON object")
	}

	fp := models.ConfigFingerprint{
		ID:              uuid.New().String(),
		EntityType:      EntityType(category, apiName),
		Subtype:         firstPresent(parsed, subtypeKeys),
		EntityName:      firstPresent(parsed, nameKeys),
		ExternalID:      firstID(parsed),
		FieldTypes:      map[string]string{},
		CategoricalVals: map[string][]string{},
	}

	parsed.ForEach(func(key, value gjson.Result) bool {
		fp.FieldNames = append(fp.FieldNames, key.String())
		fp.FieldTypes[key.String()] = jsonTypeName(value)
		if value.Type == gjson.String || value.Type == gjson.Number || value.Type == gjson.True || value.Type == gjson.False {
			fp.CategoricalVals[key.String()] = append(fp.CategoricalVals[key.String()], value.String())
		}
		return true
	})

	depth, totalFields, nestedKeys, flags := walk(parsed, 0, ruleKeywords)
	fp.MaxDepth = depth
	fp.TotalFieldCount = totalFields
	fp.NestedKeys = nestedKeys
	fp.HasRules = flags["has_rules"]
	fp.HasConditions = flags["has_conditions"]
	fp.HasWorkflow = flags["has_workflow"]

	truncated, err := truncate(raw)
	if err != nil {
		truncated = raw
	}
	fp.RawJSON = string(truncated)
	fp.Frequency = 1
	return fp, nil
}

func firstID(json gjson.Result) string {
	for _, k := range []string{"id", "programId", "campaignId", "promotionId"} {
		if v := json.Get(k); v.Exists() {
			return v.String()
		}
	}
	return ""
}

func jsonTypeName(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		return "number"
	case gjson.True, gjson.False:
		return "bool"
	case gjson.Null:
		return "null"
	default:
		if v.IsArray() {
			return "array"
		}
		if v.IsObject() {
			return "object"
		}
		return "unknown"
	}
}

// walk recursively scans json's keys for the rule-like keyword buckets
// and returns (max depth, total field count, nested object keys, flags).
func walk(v gjson.Result, depth int, keywords map[string]string) (maxDepth, totalFields int, nestedKeys []string, flags map[string]bool) {
	flags = map[string]bool{}
	maxDepth = depth

	var visit func(v gjson.Result, d int, path string)
	visit = func(v gjson.Result, d int, path string) {
		if d > maxDepth {
			maxDepth = d
		}
		if !v.IsObject() && !v.IsArray() {
			return
		}
		v.ForEach(func(key, val gjson.Result) bool {
			totalFields++
			keyLower := strings.ToLower(key.String())
			for kw, flag := range keywords {
				if strings.Contains(keyLower, kw) {
					flags[flag] = true
				}
			}
			if val.IsObject() {
				nestedKeys = append(nestedKeys, key.String())
				visit(val, d+1, path+"."+key.String())
			} else if val.IsArray() {
				visit(val, d+1, path+"."+key.String())
			}
			return true
		})
	}
	visit(v, depth, "")
	return maxDepth, totalFields, nestedKeys, flags
}

// truncate caps string values over maxStringLen and arrays over
// maxArrayLen (§4.4: "String values longer than 2,000 chars are
// truncated; arrays longer than 50 are capped with a summary element").
// It walks the document with gjson and patches only the offending paths
// in place with sjson, rather than decoding the whole document into a
// generic Go value and re-marshalling it.
func truncate(raw json.RawMessage) (json.RawMessage, error) {
	out := []byte(raw)

	var edits []truncateEdit
	collectTruncateEdits(gjson.ParseBytes(raw), "", &edits)

	var err error
	for _, e := range edits {
		if e.isRaw {
			out, err = sjson.SetRawBytes(out, e.path, e.raw)
		} else {
			out, err = sjson.SetBytes(out, e.path, e.str)
		}
		if err != nil {
			return raw, fmt.Errorf("configanalysis: patch %q: %w", e.path, err)
		}
	}
	return out, nil
}

type truncateEdit struct {
	path  string
	isRaw bool
	raw   []byte
	str   string
}

// collectTruncateEdits walks v, appending a truncateEdit for every string
// over maxStringLen and every array over maxArrayLen. Arrays are capped by
// replacing them wholesale with their first maxArrayLen elements plus a
// summary marker; the kept elements are then walked themselves so nested
// strings inside them are still truncated.
func collectTruncateEdits(v gjson.Result, path string, edits *[]truncateEdit) {
	switch {
	case v.IsObject():
		v.ForEach(func(key, val gjson.Result) bool {
			collectTruncateEdits(val, joinPath(path, key.String()), edits)
			return true
		})
	case v.IsArray():
		arr := v.Array()
		if len(arr) > maxArrayLen {
			*edits = append(*edits, truncateEdit{path: path, isRaw: true, raw: cappedArrayJSON(arr)})
			arr = arr[:maxArrayLen]
		}
		for i, item := range arr {
			collectTruncateEdits(item, joinPath(path, strconv.Itoa(i)), edits)
		}
	case v.Type == gjson.String:
		if s := v.String(); len(s) > maxStringLen {
			*edits = append(*edits, truncateEdit{path: path, str: s[:maxStringLen] + "...[truncated]"})
		}
	}
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// cappedArrayJSON renders arr's first maxArrayLen elements verbatim plus a
// trailing summary object describing how many more were dropped.
func cappedArrayJSON(arr []gjson.Result) []byte {
	parts := make([]string, 0, maxArrayLen+1)
	for _, item := range arr[:maxArrayLen] {
		parts = append(parts, item.Raw)
	}
	parts = append(parts, fmt.Sprintf(`{"_summary":%q}`, strconv.Itoa(len(arr)-maxArrayLen)+" more items"))
	return []byte("[" + strings.Join(parts, ",") + "]")
}
