package configanalysis

import (
	"strings"

	"github.com/akhil-kumar-capillary/context-gen-tool-sub000/pkg/models"
)

// BuildCounters implements §4.4 Counters: entity-type, subtype, (entity,
// field) usage, (field, type) distribution, (field, value) for
// categorical fields, nested-structure keys, structural flags,
// naming-prefix frequency, naming-separator style, complexity bucket —
// mirroring the SQL pipeline's counter pattern.
func BuildCounters(fingerprints []models.ConfigFingerprint) models.ConfigCounterSet {
	cs := models.NewConfigCounterSet()

	for _, fp := range fingerprints {
		w := fp.Frequency
		if w <= 0 {
			w = 1
		}

		cs.EntityType.Add(fp.EntityType, w)
		if fp.Subtype != "" {
			cs.Subtype.Add(fp.Subtype, w)
		}
		for _, field := range fp.FieldNames {
			cs.EntityFieldUsage.Add(fp.EntityType+"|"+field, w)
			if t, ok := fp.FieldTypes[field]; ok {
				cs.FieldTypeDist.Add(field+"|"+t, w)
			}
			for _, v := range fp.CategoricalVals[field] {
				cs.FieldValue.Add(field+"|"+v, w)
			}
		}
		for _, k := range fp.NestedKeys {
			cs.NestedKeys.Add(k, w)
		}
		addFlag(cs.StructuralFlags, "has_rules", fp.HasRules, w)
		addFlag(cs.StructuralFlags, "has_conditions", fp.HasConditions, w)
		addFlag(cs.StructuralFlags, "has_workflow", fp.HasWorkflow, w)

		if prefix, ok := namingPrefix(fp.EntityName); ok {
			cs.NamingPrefix.Add(prefix, w)
		}
		cs.NamingSeparator.Add(namingSeparator(fp.EntityName), w)
		cs.ComplexityBucket.Add(complexityBucket(fp.MaxDepth, fp.TotalFieldCount), w)
	}
	return cs
}

func addFlag(ft models.FreqTable, name string, set bool, weight int) {
	if set {
		ft.Add(name, weight)
	}
}

// namingPrefix returns the leading alphabetic token of name (before the
// first separator), used to detect shared naming prefixes.
func namingPrefix(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	for i, r := range name {
		if r == '_' || r == '-' || r == ' ' {
			if i == 0 {
				return "", false
			}
			return name[:i], true
		}
	}
	return "", false
}

func namingSeparator(name string) string {
	switch {
	case strings.Contains(name, "_"):
		return "underscore"
	case strings.Contains(name, "-"):
		return "hyphen"
	case strings.Contains(name, " "):
		return "space"
	default:
		return "none"
	}
}

// complexityBucket buckets (depth, fieldCount) into a small label set used
// by the Document Author's complexity distribution.
func complexityBucket(depth, fieldCount int) string {
	score := depth * fieldCount
	switch {
	case score <= 5:
		return "simple"
	case score <= 25:
		return "moderate"
	default:
		return "complex"
	}
}
