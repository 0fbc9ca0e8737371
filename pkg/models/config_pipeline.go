package models

import "time"

// ConfigFingerprint is one config object's typed decomposition (§3/§4.4
// Config Fingerprint Engine).
type ConfigFingerprint struct {
	ID               string              `json:"id"`
	ConfigAnalysisID string              `json:"config_analysis_id"`
	EntityType       string              `json:"entity_type"`
	Subtype          string              `json:"subtype,omitempty"`
	EntityName       string              `json:"entity_name,omitempty"`
	ExternalID       string              `json:"external_id,omitempty"`
	FieldNames       []string            `json:"field_names"`
	FieldTypes       map[string]string   `json:"field_types"`
	CategoricalVals  map[string][]string `json:"categorical_values"`
	NestedKeys       []string            `json:"nested_keys"`
	MaxDepth         int                 `json:"max_depth"`
	TotalFieldCount  int                 `json:"total_field_count"`
	HasRules         bool                `json:"has_rules"`
	HasConditions    bool                `json:"has_conditions"`
	HasWorkflow      bool                `json:"has_workflow"`
	RawJSON          string              `json:"raw_json"`
	Frequency        int                 `json:"frequency"`
}

// ConfigCounterSet mirrors the SQL pipeline's CounterSet for config objects
// (§4.4 Counters and Clusterer).
type ConfigCounterSet struct {
	EntityType       FreqTable `json:"entity_type"`
	Subtype          FreqTable `json:"subtype"`
	EntityFieldUsage FreqTable `json:"entity_field_usage"` // key: "entity|field"
	FieldTypeDist    FreqTable `json:"field_type_dist"`    // key: "field|type"
	FieldValue       FreqTable `json:"field_value"`        // key: "field|value"
	NestedKeys       FreqTable `json:"nested_keys"`
	StructuralFlags  FreqTable `json:"structural_flags"`
	NamingPrefix     FreqTable `json:"naming_prefix"`
	NamingSeparator  FreqTable `json:"naming_separator"`
	ComplexityBucket FreqTable `json:"complexity_bucket"`
}

func NewConfigCounterSet() ConfigCounterSet {
	return ConfigCounterSet{
		EntityType: FreqTable{}, Subtype: FreqTable{}, EntityFieldUsage: FreqTable{},
		FieldTypeDist: FreqTable{}, FieldValue: FreqTable{}, NestedKeys: FreqTable{},
		StructuralFlags: FreqTable{}, NamingPrefix: FreqTable{}, NamingSeparator: FreqTable{},
		ComplexityBucket: FreqTable{},
	}
}

// ConfigCluster groups fingerprints by (entity-type, subtype) and picks
// up to five diverse templates (§4.4 Config Clusterer).
type ConfigCluster struct {
	EntityType       string              `json:"entity_type"`
	Subtype          string              `json:"subtype"`
	FingerprintIDs   []string            `json:"fingerprint_ids"`
	TemplateIDs      []string            `json:"template_ids"` // up to five, diversity-picked
	CommonFields     []string            `json:"common_fields"` // present in >=70% of members
	TopValues        map[string][]string `json:"top_values"`
	NamingPrefix     string              `json:"naming_prefix,omitempty"`
	SeparatorStyle   string              `json:"separator_style,omitempty"`
	StructuralCounts map[string]int      `json:"structural_counts"`
	TotalWeight      int                 `json:"total_weight"`
}

// ConfigAnalysisRun is one config-pipeline analysis snapshot (§3
// ConfigAnalysisRun). Its inventory, structural summaries, fingerprints,
// counters and clusters are each JSON-serialized into their own jsonb
// column at the persistence boundary.
type ConfigAnalysisRun struct {
	ID                  string              `json:"id"`
	ConfigExtractionRunID string            `json:"config_extraction_run_id"`
	OrgID               string              `json:"org_id"`
	Version             int                 `json:"version"`
	Status              RunStatus           `json:"status"`
	Inventory           map[string]int      `json:"inventory"` // category -> item count
	StructuralSummaries map[string]any      `json:"structural_summaries"`
	Fingerprints        []ConfigFingerprint `json:"fingerprints"`
	Counters            ConfigCounterSet    `json:"counters"`
	Clusters            []ConfigCluster     `json:"clusters"`
	CreatedAt           time.Time           `json:"created_at"`
}

// ConfigAPIRequestRecord is one tracked fan-out request (§4.4 Fan-Out API
// Client).
type ConfigAPIRequestRecord struct {
	APIName        string `json:"api_name"`
	Status         string `json:"status"` // "success" | "error"
	HTTPStatus     int    `json:"http_status"`
	ItemCount      int    `json:"item_count"`
	DurationMS     int64  `json:"duration_ms"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ResponseBytes  int    `json:"response_bytes,omitempty"`
}
