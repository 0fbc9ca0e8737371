// Package configanalysis implements the Config Fingerprint Engine,
// Counters, and Clusterer (§4.4): typed decomposition of fan-out config
// objects into ConfigFingerprint rows, frequency counters mirroring the
// SQL pipeline's pattern, and diversity-based template clustering.
package configanalysis

import "github.com/tidwall/gjson"

// entityTypeTable maps "category.api_name" to a declared entity-type,
// mirroring §4.4: "entity-type (derived from a category+api-key -> type
// table)".
var entityTypeTable = map[string]string{
	"loyalty.loyalty.tiers":        "loyalty_tier",
	"loyalty.loyalty.rules":        "loyalty_rule",
	"extended-fields.extended_fields.list": "extended_field",
	"campaigns.campaigns.list":     "campaign",
	"promotions.promotions.list":   "promotion",
	"coupons.coupons.list":         "coupon",
	"audiences.audiences.list":     "audience",
	"org-settings.org_settings.get": "org_setting",
}

// EntityType resolves the entity-type for one category+api-name pair,
// falling back to apiName itself when the pair is not declared.
func EntityType(category, apiName string) string {
	if t, ok := entityTypeTable[category+"."+apiName]; ok {
		return t
	}
	return apiName
}

// subtypeKeys and nameKeys are the "first present of" key lists for
// subtype and entity-name resolution (§4.4).
var subtypeKeys = []string{"type", "campaignType", "promotionType", "ruleType", "fieldType", "entityType"}
var nameKeys = []string{"name", "programName", "campaignName", "promotionName", "title", "displayName"}

// firstPresent returns the value of the first key present in json that
// yields a non-empty string, or "".
func firstPresent(json gjson.Result, keys []string) string {
	for _, k := range keys {
		if v := json.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
